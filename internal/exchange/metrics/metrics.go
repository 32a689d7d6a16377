package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the exchange module.
type Metrics struct {
	ListingsCreated    prometheus.Counter
	Sales              prometheus.Counter
	AuctionsCreated    prometheus.Counter
	BidsPlaced         prometheus.Counter
	AuctionsSettled    prometheus.Counter
	SettlementFailures prometheus.Counter
}

// New creates a new Metrics instance with all exchange metrics registered.
func New() *Metrics {
	return &Metrics{
		ListingsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "curio_listings_created_total",
			Help: "Total number of fixed-price listings created",
		}),
		Sales: promauto.NewCounter(prometheus.CounterOpts{
			Name: "curio_sales_total",
			Help: "Total number of completed sales, fixed-price and auction",
		}),
		AuctionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "curio_auctions_created_total",
			Help: "Total number of auctions created",
		}),
		BidsPlaced: promauto.NewCounter(prometheus.CounterOpts{
			Name: "curio_bids_placed_total",
			Help: "Total number of accepted bids",
		}),
		AuctionsSettled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "curio_auctions_settled_total",
			Help: "Total number of auctions settled with a winner",
		}),
		SettlementFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "curio_settlement_failures_total",
			Help: "Total number of settlements that required compensation",
		}),
	}
}

func (m *Metrics) IncrementListingsCreated() { m.ListingsCreated.Inc() }
func (m *Metrics) IncrementSales()           { m.Sales.Inc() }
func (m *Metrics) IncrementAuctionsCreated() { m.AuctionsCreated.Inc() }
func (m *Metrics) IncrementBidsPlaced()      { m.BidsPlaced.Inc() }
func (m *Metrics) IncrementAuctionsSettled() { m.AuctionsSettled.Inc() }
func (m *Metrics) IncrementSettlementFailures() {
	m.SettlementFailures.Inc()
}
