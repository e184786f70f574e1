// Package metrics defines the supervisor engine's optional metrics
// surface: an interface any collector can implement, a process-wide
// Prometheus registry, and a constructor-registration hook so the
// prometheus subpackage can supply the default implementation without
// this package importing it directly (avoiding an import cycle between
// the interface and its Prometheus-backed implementation).
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StepMetrics provides observability for the supervisor engine's
// per-step request batching and flush cycle.
//
// Implementations are optional: pass nil to disable metrics collection
// with zero overhead, mirroring the pattern used throughout this stack
// for swapping an instrumented collaborator for a no-op one.
type StepMetrics interface {
	// RecordFlush records one completed step flush: how long the round
	// trip took and whether it returned an error.
	RecordFlush(duration time.Duration, err error)

	// RecordQueueDepth reports the number of SET/IMPORT/REMOVE requests
	// that were pending at the moment a step flushed.
	RecordQueueDepth(depth int)

	// RecordRegistrySize reports the current size of the node and field
	// registries, sampled once per step.
	RecordRegistrySize(nodes, fields int)

	// RecordGetInFlightRejected increments the counter of GET requests
	// rejected because another GET was already outstanding this step.
	RecordGetInFlightRejected()

	// RecordValidationError increments the counter of locally rejected
	// requests, labeled by the ValidationKind name.
	RecordValidationError(kind string)
}

var (
	registryOnce sync.Once
	registry     *prometheus.Registry
	enabled      bool

	constructorMu sync.Mutex
	constructor   func() StepMetrics
)

// InitRegistry enables metrics collection and creates the process-wide
// Prometheus registry. Must be called before any collector is
// constructed; calling it more than once is a no-op.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
		enabled = true
	})
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return enabled
}

// GetRegistry returns the process-wide registry, or nil if metrics were
// never enabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// RegisterStepMetricsConstructor is called by the prometheus subpackage
// during package initialization to supply the default StepMetrics
// implementation without an import cycle.
func RegisterStepMetricsConstructor(ctor func() StepMetrics) {
	constructorMu.Lock()
	defer constructorMu.Unlock()
	constructor = ctor
}

// NewStepMetrics returns the registered StepMetrics implementation, or
// nil if metrics are disabled or no implementation has registered
// itself (e.g. the prometheus subpackage was never imported).
func NewStepMetrics() StepMetrics {
	if !IsEnabled() {
		return nil
	}
	constructorMu.Lock()
	defer constructorMu.Unlock()
	if constructor == nil {
		return nil
	}
	return constructor()
}
