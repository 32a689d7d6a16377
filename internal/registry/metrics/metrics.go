package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registry module.
type Metrics struct {
	CollectionsCreated prometheus.Counter
	ItemsMinted        prometheus.Counter
	OwnershipTransfers prometheus.Counter
	AllocatorRetries   prometheus.Counter
}

// New creates a new Metrics instance with all registry metrics registered.
func New() *Metrics {
	return &Metrics{
		CollectionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "curio_collections_created_total",
			Help: "Total number of collections created",
		}),
		ItemsMinted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "curio_items_minted_total",
			Help: "Total number of items minted",
		}),
		OwnershipTransfers: promauto.NewCounter(prometheus.CounterOpts{
			Name: "curio_ownership_transfers_total",
			Help: "Total number of ownership transfers",
		}),
		AllocatorRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "curio_identifier_allocation_failures_total",
			Help: "Total number of identifier allocations that exhausted their retries",
		}),
	}
}

// IncrementCollectionsCreated records a successful collection creation.
func (m *Metrics) IncrementCollectionsCreated() {
	m.CollectionsCreated.Inc()
}

// IncrementItemsMinted records a successful mint.
func (m *Metrics) IncrementItemsMinted() {
	m.ItemsMinted.Inc()
}

// IncrementOwnershipTransfers records a successful ownership transfer.
func (m *Metrics) IncrementOwnershipTransfers() {
	m.OwnershipTransfers.Inc()
}

// IncrementAllocatorFailures records an exhausted allocation.
func (m *Metrics) IncrementAllocatorFailures() {
	m.AllocatorRetries.Inc()
}
