package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Recorder aggregates exchange latencies using HDR histograms.
//
// A Recorder belongs to one transport handle and is shared by every clone of
// it, so the numbers describe the handle's whole pool.
//
// # Thread Safety
//
// Recorder is safe for concurrent use. Counters use atomic operations and
// the histograms are mutex protected.
type Recorder struct {
	// Range: 1 microsecond to 1 hour, 3 significant figures
	latencyHist   *hdrhistogram.Histogram
	latencyHistMu sync.Mutex

	// Per-host histograms for a breakdown by authority
	hostHists   map[string]*hdrhistogram.Histogram
	hostHistsMu sync.Mutex

	totalRequests   atomic.Int64
	successRequests atomic.Int64
	failedRequests  atomic.Int64
	totalBytes      atomic.Int64

	startTime time.Time // guarded by latencyHistMu
	config    Config
}

// Config contains configuration for the recorder.
type Config struct {
	// HistogramMin is the minimum recordable value in microseconds (default: 1)
	HistogramMin int64

	// HistogramMax is the maximum recordable value in microseconds (default: 3600000000 = 1 hour)
	HistogramMax int64

	// HistogramSigFigs is the number of significant figures (default: 3)
	HistogramSigFigs int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		HistogramMin:     1,
		HistogramMax:     3600000000, // 1 hour in microseconds
		HistogramSigFigs: 3,
	}
}

// NewRecorder creates a recorder with the default configuration.
func NewRecorder() *Recorder {
	return NewRecorderWithConfig(DefaultConfig())
}

// NewRecorderWithConfig creates a recorder with a custom configuration.
func NewRecorderWithConfig(config Config) *Recorder {
	return &Recorder{
		latencyHist: hdrhistogram.New(config.HistogramMin, config.HistogramMax, config.HistogramSigFigs),
		hostHists:   make(map[string]*hdrhistogram.Histogram),
		startTime:   time.Now(),
		config:      config,
	}
}

// Record records one completed exchange.
//
// Parameters:
//   - duration: time from dispatch until the response head arrived (or the failure)
//   - host: authority of the target, empty to skip the per-host breakdown
//   - success: whether the transport delivered a response
//   - bytes: body bytes drained, zero when the body was not read
func (r *Recorder) Record(duration time.Duration, host string, success bool, bytes int64) {
	latencyMicros := r.clamp(duration.Microseconds())

	// HDR histogram RecordValue is not thread-safe
	r.latencyHistMu.Lock()
	r.latencyHist.RecordValue(latencyMicros)
	r.latencyHistMu.Unlock()

	if host != "" {
		r.recordHost(host, latencyMicros)
	}

	r.totalRequests.Add(1)
	r.totalBytes.Add(bytes)
	if success {
		r.successRequests.Add(1)
	} else {
		r.failedRequests.Add(1)
	}
}

// AddBytes accounts for body bytes drained after the exchange was recorded.
func (r *Recorder) AddBytes(n int64) {
	r.totalBytes.Add(n)
}

func (r *Recorder) clamp(v int64) int64 {
	if v < r.config.HistogramMin {
		return r.config.HistogramMin
	}
	if v > r.config.HistogramMax {
		return r.config.HistogramMax
	}
	return v
}

func (r *Recorder) recordHost(host string, latencyMicros int64) {
	r.hostHistsMu.Lock()
	defer r.hostHistsMu.Unlock()

	hist, exists := r.hostHists[host]
	if !exists {
		hist = hdrhistogram.New(r.config.HistogramMin, r.config.HistogramMax, r.config.HistogramSigFigs)
		r.hostHists[host] = hist
	}
	hist.RecordValue(latencyMicros)
}

// Snapshot returns a point-in-time view of all counters and the overall
// latency distribution.
func (r *Recorder) Snapshot() Snapshot {
	r.latencyHistMu.Lock()
	latency := statsOf(r.latencyHist)
	started := r.startTime
	r.latencyHistMu.Unlock()

	total := r.totalRequests.Load()
	failed := r.failedRequests.Load()

	errorRate := 0.0
	if total > 0 {
		errorRate = float64(failed) / float64(total)
	}

	return Snapshot{
		TotalRequests:   total,
		SuccessRequests: r.successRequests.Load(),
		FailedRequests:  failed,
		TotalBytes:      r.totalBytes.Load(),
		Latency:         latency,
		ErrorRate:       errorRate,
		Elapsed:         time.Since(started),
	}
}

// HostStats returns latency statistics per target host.
func (r *Recorder) HostStats() map[string]LatencyStats {
	r.hostHistsMu.Lock()
	defer r.hostHistsMu.Unlock()

	result := make(map[string]LatencyStats, len(r.hostHists))
	for host, hist := range r.hostHists {
		result[host] = statsOf(hist)
	}
	return result
}

// Reset clears all recorded values.
func (r *Recorder) Reset() {
	r.latencyHistMu.Lock()
	r.latencyHist.Reset()
	r.startTime = time.Now()
	r.latencyHistMu.Unlock()

	r.hostHistsMu.Lock()
	r.hostHists = make(map[string]*hdrhistogram.Histogram)
	r.hostHistsMu.Unlock()

	r.totalRequests.Store(0)
	r.successRequests.Store(0)
	r.failedRequests.Store(0)
	r.totalBytes.Store(0)
}

func statsOf(hist *hdrhistogram.Histogram) LatencyStats {
	return LatencyStats{
		Min:    time.Duration(hist.Min()) * time.Microsecond,
		Max:    time.Duration(hist.Max()) * time.Microsecond,
		Mean:   time.Duration(hist.Mean()) * time.Microsecond,
		StdDev: time.Duration(hist.StdDev()) * time.Microsecond,
		P50:    time.Duration(hist.ValueAtQuantile(50)) * time.Microsecond,
		P90:    time.Duration(hist.ValueAtQuantile(90)) * time.Microsecond,
		P95:    time.Duration(hist.ValueAtQuantile(95)) * time.Microsecond,
		P99:    time.Duration(hist.ValueAtQuantile(99)) * time.Microsecond,
		Count:  hist.TotalCount(),
	}
}

// Snapshot contains a point-in-time view of a recorder.
type Snapshot struct {
	TotalRequests   int64         `json:"totalRequests" yaml:"totalRequests"`
	SuccessRequests int64         `json:"successRequests" yaml:"successRequests"`
	FailedRequests  int64         `json:"failedRequests" yaml:"failedRequests"`
	TotalBytes      int64         `json:"totalBytes" yaml:"totalBytes"`
	Latency         LatencyStats  `json:"latency" yaml:"latency"`
	ErrorRate       float64       `json:"errorRate" yaml:"errorRate"`
	Elapsed         time.Duration `json:"elapsed" yaml:"elapsed"`
}

// LatencyStats contains latency statistics.
type LatencyStats struct {
	Min    time.Duration `json:"min" yaml:"min"`
	Max    time.Duration `json:"max" yaml:"max"`
	Mean   time.Duration `json:"mean" yaml:"mean"`
	StdDev time.Duration `json:"stdDev" yaml:"stdDev"`
	P50    time.Duration `json:"p50" yaml:"p50"`
	P90    time.Duration `json:"p90" yaml:"p90"`
	P95    time.Duration `json:"p95" yaml:"p95"`
	P99    time.Duration `json:"p99" yaml:"p99"`
	Count  int64         `json:"count" yaml:"count"`
}
