package eddy

import (
	"github.com/mosaicnetworks/eddy/src/app"
	"github.com/mosaicnetworks/eddy/src/config"
	"github.com/mosaicnetworks/eddy/src/net"
	"github.com/mosaicnetworks/eddy/src/node"
	"github.com/mosaicnetworks/eddy/src/service"
	"github.com/mosaicnetworks/eddy/src/store"
	"github.com/mosaicnetworks/eddy/src/workload"
	"github.com/sirupsen/logrus"
)

// Eddy is the top-level wrapper which ties together a transport, a store, a
// workload handler, the node runtime, and the optional HTTP service. Any of
// the public fields may be preset before calling Init to override the
// component that would otherwise be built from the configuration.
type Eddy struct {
	Config    *config.Config
	Transport net.Transport
	Store     store.Store
	Handler   app.Handler
	Node      *node.Node
	Service   *service.Service

	logger *logrus.Entry
}

// NewEddy instantiates an engine with a config object. Call Init to
// instantiate the other components.
func NewEddy(config *config.Config) *Eddy {
	engine := &Eddy{
		Config: config,
		logger: config.Logger(),
	}

	return engine
}

func (e *Eddy) initTransport() error {
	if e.Transport != nil {
		return nil
	}

	e.Transport = net.NewStdioTransport()

	return nil
}

func (e *Eddy) initStore() error {
	if e.Store != nil {
		return nil
	}

	if !e.Config.Store {
		e.Store = store.NewInmemStore()

		e.logger.Debug("created new in-mem store")
	} else {
		var err error

		e.logger.WithField("path", e.Config.DatabaseDir).Debug("Attempting to load or create database")

		e.Store, err = store.NewBadgerStore(e.Config.DatabaseDir)

		if err != nil {
			return err
		}
	}

	return nil
}

func (e *Eddy) initHandler() error {
	if e.Handler != nil {
		return nil
	}

	handler, err := workload.New(e.Config.Workload, e.Store, e.Config.CallTimeout, e.logger)

	if err != nil {
		return err
	}

	e.Handler = handler

	return nil
}

func (e *Eddy) initNode() error {
	e.Node = node.NewNode(e.Config, e.Transport, e.Handler)

	return nil
}

func (e *Eddy) initService() error {
	if e.Config.Service {
		e.Service = service.NewService(e.Config.ServiceAddr, e.Node, e.logger)
	}

	return nil
}

// Init instantiates the engine components in dependency order. Components
// that were preset on the struct are left untouched.
func (e *Eddy) Init() error {
	if err := e.initTransport(); err != nil {
		return err
	}

	if err := e.initStore(); err != nil {
		return err
	}

	if err := e.initHandler(); err != nil {
		return err
	}

	if err := e.initNode(); err != nil {
		return err
	}

	if err := e.initService(); err != nil {
		return err
	}

	return nil
}

// Run starts the optional HTTP service and runs the node until its input is
// exhausted or it is shut down. The store is closed on the way out.
func (e *Eddy) Run() error {
	if e.Service != nil {
		go e.Service.Serve()
	}

	defer e.Store.Close()

	return e.Node.Run()
}
