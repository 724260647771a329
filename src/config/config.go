package config

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/mosaicnetworks/eddy/src/common"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultBadgerFile is the default name of the folder containing the Badger
	// database
	DefaultBadgerFile = "badger_db"
)

// Default configuration values.
const (
	DefaultLogLevel        = "debug"
	DefaultWorkload        = "echo"
	DefaultStore           = false
	DefaultService         = false
	DefaultServiceAddr     = "127.0.0.1:8000"
	DefaultCallTimeout     = 1000 * time.Millisecond
	DefaultShutdownTimeout = 5000 * time.Millisecond
)

// Config contains all the configuration properties of an Eddy node.
type Config struct {
	// DataDir is the top-level directory containing Eddy configuration and
	// data
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// LogFile is an optional file where logs are written on top of the
	// standard error output. Log output cannot go to standard output,
	// which carries the protocol stream.
	LogFile string `mapstructure:"log-file"`

	// Workload selects the application handler that the node runs: echo,
	// kv, or broadcast.
	Workload string `mapstructure:"workload"`

	// Store activates persistent storage. When false, the kv workload
	// keeps its data in memory and loses it when the process exits.
	Store bool `mapstructure:"store"`

	// DatabaseDir is the directory containing database files.
	DatabaseDir string `mapstructure:"db"`

	// Service enables the HTTP stats service. It is off by default
	// because a node under test should not open listeners unless asked
	// to.
	Service bool `mapstructure:"service"`

	// ServiceAddr is the address:port of the optional HTTP service.
	ServiceAddr string `mapstructure:"service-listen"`

	// CallTimeout is how long workloads wait for the reply to a
	// node-to-node request before giving up on it.
	CallTimeout time.Duration `mapstructure:"timeout"`

	// ShutdownTimeout is how long shutdown waits for in-flight handlers
	// to finish before letting go of them.
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout"`

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:         DefaultDataDir(),
		LogLevel:        DefaultLogLevel,
		Workload:        DefaultWorkload,
		Store:           DefaultStore,
		DatabaseDir:     DefaultDatabaseDir(),
		Service:         DefaultService,
		ServiceAddr:     DefaultServiceAddr,
		CallTimeout:     DefaultCallTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
	}

	return config
}

// NewTestConfig returns a config object with default values and a special
// logger for debugging tests.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.logger = common.NewTestLogger(t, level)
	return config
}

// SetDataDir sets the top-level Eddy directory, and updates the database
// directory if it is currently set to the default value. If the database
// directory is not currently the default, it means the user has explicitely set
// it to something else, so avoid changing it again here.
func (c *Config) SetDataDir(dataDir string) {
	c.DataDir = dataDir
	if c.DatabaseDir == DefaultDatabaseDir() {
		c.DatabaseDir = filepath.Join(dataDir, DefaultBadgerFile)
	}
}

// Logger returns a formatted logrus Entry, with prefix set to "eddy". The
// logger writes to standard error because standard output carries the
// protocol stream. If LogFile is set, entries are also collected in that
// file.
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Out = os.Stderr
		c.logger.Formatter = new(prefixed.TextFormatter)

		if c.LogFile != "" {
			pathMap := lfshook.PathMap{}

			f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
			if err == nil {
				f.Close()
				for _, level := range logrus.AllLevels {
					if level <= c.logger.Level {
						pathMap[level] = c.LogFile
					}
				}
			}

			c.logger.Hooks.Add(lfshook.NewHook(pathMap, new(logrus.TextFormatter)))
		}
	}
	return c.logger.WithField("prefix", "eddy")
}

// DefaultDatabaseDir returns the default path for the badger database files.
func DefaultDatabaseDir() string {
	return filepath.Join(DefaultDataDir(), DefaultBadgerFile)
}

// DefaultDataDir return the default directory name for top-level Eddy config
// based on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".Eddy")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "Eddy")
		} else {
			return filepath.Join(home, ".eddy")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
