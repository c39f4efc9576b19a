// internal/blockchain/solbc/transaction/metrics.go
package transaction

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	sendAttempts      prometheus.Counter
	sendFailures      prometheus.Counter
	confirmed         prometheus.Counter
	failed            prometheus.Counter
	timedOut          prometheus.Counter
	durationHistogram prometheus.Histogram
}

// NewMetrics создаёт счётчики транзакций и регистрирует их в reg.
// При reg == nil метрики считаются, но никуда не экспортируются.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sendAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "moonshot_tx_send_attempts_total",
			Help: "Total number of transaction send attempts",
		}),
		sendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "moonshot_tx_send_failures_total",
			Help: "Total number of failed transaction send attempts",
		}),
		confirmed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "moonshot_tx_confirmed_total",
			Help: "Total number of confirmed transactions",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "moonshot_tx_failed_total",
			Help: "Total number of transactions that failed on chain",
		}),
		timedOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "moonshot_tx_confirmation_timeouts_total",
			Help: "Total number of transactions not confirmed in time",
		}),
		durationHistogram: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "moonshot_tx_duration_seconds",
			Help:    "Time from send to final status in seconds",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
	}

	if reg != nil {
		reg.MustRegister(m.sendAttempts, m.sendFailures, m.confirmed, m.failed, m.timedOut, m.durationHistogram)
	}
	return m
}

func (m *Metrics) TrackTransaction(start time.Time) {
	m.durationHistogram.Observe(time.Since(start).Seconds())
}
