package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/mev-engine/ton-mev-lab/pkg/interfaces"
	"github.com/mev-engine/ton-mev-lab/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements the MetricsCollector interface
type Collector struct {
	mu sync.RWMutex

	// Run history
	runs    []RunRecord
	maxRuns int

	// Stage timings
	stages         map[string][]time.Duration
	maxStageSample int

	prometheusMetrics *PrometheusMetrics
	gatherer          prometheus.Gatherer

	config *CollectorConfig
}

// RunRecord is the retained outcome of one analysis run
type RunRecord struct {
	Timestamp    time.Time     `json:"timestamp"`
	Transactions int           `json:"transactions"`
	Events       int           `json:"events"`
	Swaps        int           `json:"swaps"`
	Triples      int           `json:"triples"`
	Victims      int           `json:"victims"`
	Duration     time.Duration `json:"duration"`
}

// CollectorConfig contains configuration for the metrics collector
type CollectorConfig struct {
	MaxRuns        int
	MaxStageSample int
	HitPctBuckets  []float64
	RateBuckets    []float64
}

// PrometheusMetrics contains all Prometheus metric collectors
type PrometheusMetrics struct {
	// Run metrics
	runsTotal         prometheus.Counter
	transactionsTotal prometheus.Counter
	eventsTotal       prometheus.Counter
	swapsTotal        prometheus.Counter
	lastRunTimestamp  prometheus.Gauge
	lastRunVictims    prometheus.Gauge

	// Reconstruction and indicator drops
	droppedGroups   *prometheus.CounterVec
	excludedRecords *prometheus.CounterVec

	// Detection metrics
	triplesTotal *prometheus.CounterVec
	pairsTotal   *prometheus.CounterVec

	// Distributions
	hitPct       prometheus.Histogram
	scaledRate   *prometheus.HistogramVec
	stageLatency *prometheus.HistogramVec
}

func defaultCollectorConfig() *CollectorConfig {
	return &CollectorConfig{
		MaxRuns:        100,
		MaxStageSample: 1000,
		HitPctBuckets:  []float64{50, 80, 90, 95, 97, 98, 99, 99.5, 100},
		RateBuckets:    prometheus.LinearBuckets(500, 500, 20),
	}
}

// NewCollector creates a new metrics collector on the default registry
func NewCollector(config *CollectorConfig) *Collector {
	return newCollector(config, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// NewCollectorWithRegistry creates a new metrics collector with a custom Prometheus registry
func NewCollectorWithRegistry(config *CollectorConfig, registry *prometheus.Registry) *Collector {
	return newCollector(config, registry, registry)
}

func newCollector(config *CollectorConfig, registerer prometheus.Registerer, gatherer prometheus.Gatherer) *Collector {
	if config == nil {
		config = defaultCollectorConfig()
	}

	collector := &Collector{
		runs:           make([]RunRecord, 0, config.MaxRuns),
		maxRuns:        config.MaxRuns,
		stages:         make(map[string][]time.Duration),
		maxStageSample: config.MaxStageSample,
		gatherer:       gatherer,
		config:         config,
	}

	collector.initPrometheusMetrics(promauto.With(registerer))
	return collector
}

func (c *Collector) initPrometheusMetrics(factory promauto.Factory) {
	c.prometheusMetrics = &PrometheusMetrics{
		runsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "ton_mev_runs_total",
			Help: "Total number of analysis runs",
		}),
		transactionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "ton_mev_transactions_total",
			Help: "Total number of transactions read",
		}),
		eventsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "ton_mev_events_total",
			Help: "Total number of router messages parsed",
		}),
		swapsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "ton_mev_swaps_total",
			Help: "Total number of swaps reconstructed",
		}),
		lastRunTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ton_mev_last_run_timestamp_seconds",
			Help: "Unix time of the last completed run",
		}),
		lastRunVictims: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ton_mev_last_run_victims",
			Help: "Swaps flagged as victims in the last run",
		}),
		droppedGroups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ton_mev_dropped_groups_total",
			Help: "Query id groups dropped during reconstruction by reason",
		}, []string{"reason"}),
		excludedRecords: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ton_mev_excluded_records_total",
			Help: "Swaps excluded from an indicator by reason",
		}, []string{"reason"}),
		triplesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ton_mev_triples_total",
			Help: "Front-runner, victim, back-runner candidates by confidence",
		}, []string{"confidence"}),
		pairsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ton_mev_pairs_total",
			Help: "Two-swap adjacency candidates by scan",
		}, []string{"kind"}),
		hitPct: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ton_mev_hit_pct",
			Help:    "Declared minimum output as a percentage of the received amount",
			Buckets: c.config.HitPctBuckets,
		}),
		scaledRate: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ton_mev_scaled_rate",
			Help:    "Scaled USDT per TON rate by direction",
			Buckets: c.config.RateBuckets,
		}, []string{"direction"}),
		stageLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ton_mev_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
	}
}

// RecordRun records the outcome of one analysis run
func (c *Collector) RecordRun(run *interfaces.RunReport) {
	if run == nil {
		return
	}
	pm := c.prometheusMetrics

	pm.runsTotal.Inc()
	pm.transactionsTotal.Add(float64(run.Transactions))
	pm.eventsTotal.Add(float64(run.Events))
	pm.lastRunTimestamp.SetToCurrentTime()

	record := RunRecord{
		Timestamp:    time.Now(),
		Transactions: run.Transactions,
		Events:       run.Events,
		Duration:     run.Duration,
	}

	if s := run.Summary; s != nil {
		pm.swapsTotal.Add(float64(s.TotalSwaps))
		pm.lastRunVictims.Set(float64(s.Victims))

		rt := s.Reconstruction
		pm.droppedGroups.WithLabelValues("incomplete").Add(float64(rt.Incomplete))
		pm.droppedGroups.WithLabelValues("unknown_direction").Add(float64(rt.UnknownDirection))
		pm.droppedGroups.WithLabelValues("failed").Add(float64(rt.Failed))
		pm.droppedGroups.WithLabelValues("pool_mismatch").Add(float64(rt.PoolMismatch))

		at := s.Tally
		pm.excludedRecords.WithLabelValues("invalid_rate").Add(float64(at.InvalidRate))
		pm.excludedRecords.WithLabelValues("sanity_range").Add(float64(at.SanityRange))
		pm.excludedRecords.WithLabelValues("zero_min_out").Add(float64(at.ZeroMinOut))
		pm.excludedRecords.WithLabelValues("no_block").Add(float64(at.NoBlock))

		for _, conf := range types.Confidences {
			pm.triplesTotal.WithLabelValues(string(conf)).Add(float64(s.TriplesByConfidence[conf]))
		}
		for _, kind := range types.PairKinds {
			pm.pairsTotal.WithLabelValues(string(kind)).Add(float64(s.PairsByKind[kind]))
		}

		record.Swaps = s.TotalSwaps
		record.Triples = s.TotalTriples()
		record.Victims = s.Victims
	}

	for i := range run.Records {
		rec := &run.Records[i]
		if rec.HitPct.Valid {
			pm.hitPct.Observe(rec.HitPct.Decimal.InexactFloat64())
		}
		if rec.RateValid() {
			pm.scaledRate.WithLabelValues(string(rec.Swap.Direction)).Observe(rec.ScaledRate.Decimal.InexactFloat64())
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.runs = append(c.runs, record)
	if len(c.runs) > c.maxRuns {
		c.runs = c.runs[1:]
	}
}

// RecordStage records the duration of a pipeline stage
func (c *Collector) RecordStage(stage string, duration time.Duration) {
	c.prometheusMetrics.stageLatency.WithLabelValues(stage).Observe(duration.Seconds())

	c.mu.Lock()
	defer c.mu.Unlock()

	c.stages[stage] = append(c.stages[stage], duration)
	if len(c.stages[stage]) > c.maxStageSample {
		c.stages[stage] = c.stages[stage][1:]
	}
}

// GetRunHistory returns a copy of the retained runs, oldest first
func (c *Collector) GetRunHistory() []RunRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]RunRecord, len(c.runs))
	copy(out, c.runs)
	return out
}

// GetStageStats describes the retained durations of a stage in milliseconds
func (c *Collector) GetStageStats(stage string) interfaces.Distribution {
	c.mu.RLock()
	samples := c.stages[stage]
	values := make([]float64, len(samples))
	for i, d := range samples {
		values[i] = float64(d.Microseconds()) / 1000
	}
	c.mu.RUnlock()

	return Describe(values)
}

// Handler serves the collector's registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return PrometheusHandler(c.gatherer)
}

// WriteTextfile writes the collector's registry for the node exporter textfile collector
func (c *Collector) WriteTextfile(path string) error {
	return WriteTextfile(path, c.gatherer)
}
