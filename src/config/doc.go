// Package config defines the configuration for an Eddy node.
//
// Regardless of how Eddy is started, directly from Go code or as a standalone
// process from the command line, it uses the Config object defined in this
// package to store and forward configuration options. The DataDir is only
// used when persistent storage is enabled, in which case it contains the
// Badger database folder:
//
//  badger_db // the folder containing the Badger database files.
package config
