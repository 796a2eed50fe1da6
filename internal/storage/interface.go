// Package storage defines interfaces and implementations for pipeline report
// storage backends.
package storage

import (
	"context"
	"sync"

	"github.com/hullwatch/hullwatch/internal/fouling"
)

// StorageEngineInterface is an interface that provides a few standardized
// methods for various storage backends
type StorageEngineInterface interface {
	StartStorageEngine(context.Context, *sync.WaitGroup) chan<- *fouling.RunReport
}
