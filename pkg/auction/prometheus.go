package auction

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/dauction/pkg/core/dao"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics for monitoring service.
var (
	// bidsTotal prometheus metric.
	bidsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of accepted bids",
			Name:      "auction_bids_total",
			Namespace: "dauction",
		},
	)
	// claimedUnits prometheus metric.
	claimedUnits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of units released to participants",
			Name:      "auction_claimed_units_total",
			Namespace: "dauction",
		},
	)
	// refundsTotal prometheus metric.
	refundsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of refunds settled",
			Name:      "auction_refunds_total",
			Namespace: "dauction",
		},
	)
	// committedUnits prometheus metric.
	committedUnits = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Help:      "Units committed by all bids",
			Name:      "auction_committed_units",
			Namespace: "dauction",
		},
	)
	// saleBalance prometheus metric.
	saleBalance = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Help:      "Native currency held by the sale, approximate",
			Name:      "auction_sale_balance_wei",
			Namespace: "dauction",
		},
	)
	// paused prometheus metric.
	paused = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Help:      "Whether the sale is paused",
			Name:      "auction_paused",
			Namespace: "dauction",
		},
	)
)

func init() {
	prometheus.MustRegister(
		bidsTotal,
		claimedUnits,
		refundsTotal,
		committedUnits,
		saleBalance,
		paused,
	)
}

func countEvent(e Event) {
	switch e := e.(type) {
	case BidEvent:
		bidsTotal.Inc()
	case ClaimEvent:
		claimedUnits.Add(float64(e.Quantity))
	case ClaimRefundEvent:
		refundsTotal.Inc()
	}
}

func updateMetrics(d *dao.Simple) {
	if g, err := d.GetGlobal(); err == nil {
		committedUnits.Set(float64(g.Committed))
		saleBalance.Set(weiToFloat(g.Balance))
	}
	if s, err := getSettings(d); err == nil {
		if s.Paused {
			paused.Set(1)
		} else {
			paused.Set(0)
		}
	}
}

func weiToFloat(a *uint256.Int) float64 {
	f, _ := new(big.Float).SetInt(a.ToBig()).Float64()
	return f
}
