package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
)

// ExternalAPIMetrics contains all metrics for external API monitoring
type ExternalAPIMetrics struct {
	apiDuration         *prometheus.HistogramVec
	apiCalls            *prometheus.CounterVec
	circuitBreakerState *prometheus.GaugeVec
	timeouts            *prometheus.CounterVec
}

func NewExternalAPIMetrics() *ExternalAPIMetrics {
	return &ExternalAPIMetrics{
		apiDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chain_scanner_external_api_duration_seconds",
				Help:    "Duration of provider calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider", "operation", "status"},
		),
		apiCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chain_scanner_external_api_calls_total",
				Help: "Total number of provider calls",
			},
			[]string{"provider", "status"},
		),
		circuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "chain_scanner_circuit_breaker_state",
				Help: "Current state of circuit breakers (0=closed, 1=half-open, 2=open)",
			},
			[]string{"provider"},
		),
		timeouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chain_scanner_external_api_timeouts_total",
				Help: "Total number of provider call timeouts",
			},
			[]string{"provider", "operation"},
		),
	}
}

// MustRegister registers all metrics with the provided registry
func (m *ExternalAPIMetrics) MustRegister(registry prometheus.Registerer) {
	registry.MustRegister(
		m.apiDuration,
		m.apiCalls,
		m.circuitBreakerState,
		m.timeouts,
	)
}

func (m *ExternalAPIMetrics) RecordAPICall(provider, operation, status string, duration float64) {
	m.apiDuration.WithLabelValues(provider, operation, status).Observe(duration)
	m.apiCalls.WithLabelValues(provider, status).Inc()
}

func (m *ExternalAPIMetrics) UpdateCircuitBreakerState(provider string, state gobreaker.State) {
	m.circuitBreakerState.WithLabelValues(provider).Set(float64(state))
}

func (m *ExternalAPIMetrics) RecordTimeout(provider, operation string) {
	m.timeouts.WithLabelValues(provider, operation).Inc()
}

// ScannerMetrics are the per chain scanning metrics. It satisfies
// explorer.IMetrics.
type ScannerMetrics struct {
	apiErrors            *prometheus.CounterVec
	latestBlockProcessed *prometheus.GaugeVec
	missedBlockTxs       *prometheus.CounterVec
	serviceDelay         *prometheus.GaugeVec
	scanCycles           *prometheus.CounterVec
}

func NewScannerMetrics() *ScannerMetrics {
	return &ScannerMetrics{
		apiErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "api_errors_count",
				Help: "Provider failures by chain and provider",
			},
			[]string{"chain", "provider"},
		),
		latestBlockProcessed: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "latest_block_processed",
				Help: "Last committed block height",
			},
			[]string{"chain"},
		),
		missedBlockTxs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "missed_block_txs_by_network_provider",
				Help: "Block payloads rejected as structurally invalid",
			},
			[]string{"provider", "chain"},
		),
		serviceDelay: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "block_txs_service_delay_seconds",
				Help: "Age of the oldest transaction of the last committed window",
			},
			[]string{"chain"},
		),
		scanCycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chain_scanner_scan_cycles_total",
				Help: "Scan cycles by outcome",
			},
			[]string{"chain", "status"},
		),
	}
}

func (m *ScannerMetrics) MustRegister(registry prometheus.Registerer) {
	registry.MustRegister(
		m.apiErrors,
		m.latestBlockProcessed,
		m.missedBlockTxs,
		m.serviceDelay,
		m.scanCycles,
	)
}

func (m *ScannerMetrics) IncAPIError(chain, provider string) {
	m.apiErrors.WithLabelValues(chain, provider).Inc()
}

func (m *ScannerMetrics) IncMissedBlockTxs(chain, provider string) {
	m.missedBlockTxs.WithLabelValues(provider, chain).Inc()
}

func (m *ScannerMetrics) SetLatestBlockProcessed(chain string, height int64) {
	m.latestBlockProcessed.WithLabelValues(chain).Set(float64(height))
}

func (m *ScannerMetrics) SetServiceDelay(chain string, delay time.Duration) {
	m.serviceDelay.WithLabelValues(chain).Set(delay.Seconds())
}

// IncScanCycle counts a finished cycle; status is success, noop or failed.
func (m *ScannerMetrics) IncScanCycle(chain, status string) {
	m.scanCycles.WithLabelValues(chain, status).Inc()
}
