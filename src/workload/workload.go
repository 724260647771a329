package workload

import (
	"fmt"
	"time"

	"github.com/mosaicnetworks/eddy/src/app"
	"github.com/mosaicnetworks/eddy/src/store"
	"github.com/sirupsen/logrus"
)

// Names of the built-in workloads.
const (
	EchoWorkload      = "echo"
	KVWorkload        = "kv"
	BroadcastWorkload = "broadcast"
)

// New returns the handler for the named workload. The store is only used
// by the kv workload, and the call timeout only by the broadcast
// workload, but both are part of the factory signature so that callers
// do not need to know which workload uses what.
func New(name string, st store.Store, timeout time.Duration, logger *logrus.Entry) (app.Handler, error) {
	switch name {
	case EchoWorkload:
		return NewEcho(logger), nil
	case KVWorkload:
		return NewKV(st, logger), nil
	case BroadcastWorkload:
		return NewBroadcast(timeout, logger), nil
	default:
		return nil, fmt.Errorf("unknown workload %s", name)
	}
}
