// Package stats accumulates per-PID statistics over decoded packets and
// exposes them as a snapshot and as Prometheus metrics.
package stats

import (
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	metrics "github.com/rcrowley/go-metrics"

	"github.com/zsiec/tsinspect/mpegts"
)

// DefaultPIDTableSize covers every 13-bit PID.
const DefaultPIDTableSize = mpegts.MaxPID + 1

// PIDStats describes the packets seen on one PID.
type PIDStats struct {
	PID             uint16 `json:"pid"`
	Packets         int64  `json:"packets"`
	PCRs            int64  `json:"pcrs"`
	LastPCR         uint64 `json:"lastPcr"`
	DTSs            int64  `json:"dtss"`
	LastDTS         uint64 `json:"lastDts"`
	Discontinuities int64  `json:"discontinuities"`
	Scrambled       bool   `json:"scrambled"`
}

// Snapshot is a point-in-time copy of a Tracker.
type Snapshot struct {
	Packets      int64      `json:"packets"`
	Errors       int64      `json:"errors"`
	Resyncs      int64      `json:"resyncs"`
	SkippedBytes int64      `json:"skippedBytes"`
	PCRs         int64      `json:"pcrs"`
	DTSs         int64      `json:"dtss"`
	Evicted      int64      `json:"evicted"`
	PIDs         []PIDStats `json:"pids"`
}

type config struct {
	pidTableSize int
	registry     metrics.Registry
}

// Option configures a Tracker.
type Option func(*config)

// WithPIDTableSize bounds how many PIDs are tracked at once. The least
// recently seen PID is evicted when the table is full.
func WithPIDTableSize(n int) Option {
	return func(c *config) {
		c.pidTableSize = n
	}
}

// WithRegistry registers the total counters in r instead of a private
// registry.
func WithRegistry(r metrics.Registry) Option {
	return func(c *config) {
		c.registry = r
	}
}

// Tracker is safe for concurrent use, so several scanners may feed one
// tracker.
type Tracker struct {
	registry metrics.Registry
	packets  metrics.Counter
	errors   metrics.Counter
	resyncs  metrics.Counter
	skipped  metrics.Counter
	pcrs     metrics.Counter
	dtss     metrics.Counter
	evicted  metrics.Counter

	mu   sync.Mutex
	pids *lru.Cache
}

// New creates a Tracker.
func New(opts ...Option) (*Tracker, error) {
	cfg := config{pidTableSize: DefaultPIDTableSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.registry == nil {
		cfg.registry = metrics.NewRegistry()
	}

	t := &Tracker{
		registry: cfg.registry,
		packets:  metrics.GetOrRegisterCounter("packets", cfg.registry),
		errors:   metrics.GetOrRegisterCounter("errors", cfg.registry),
		resyncs:  metrics.GetOrRegisterCounter("resyncs", cfg.registry),
		skipped:  metrics.GetOrRegisterCounter("skipped_bytes", cfg.registry),
		pcrs:     metrics.GetOrRegisterCounter("pcrs", cfg.registry),
		dtss:     metrics.GetOrRegisterCounter("dtss", cfg.registry),
		evicted:  metrics.GetOrRegisterCounter("pid_evictions", cfg.registry),
	}
	pids, err := lru.NewWithEvict(cfg.pidTableSize, func(key, value interface{}) {
		t.evicted.Inc(1)
	})
	if err != nil {
		return nil, err
	}
	t.pids = pids
	return t, nil
}

// Registry returns the go-metrics registry holding the total counters.
func (t *Tracker) Registry() metrics.Registry {
	return t.registry
}

// Observe records one decoded packet.
func (t *Tracker) Observe(p *mpegts.Packet) {
	t.packets.Inc(1)

	hasPCR, hasDTS := p.HasPCR(), p.HasDTS()
	if hasPCR {
		t.pcrs.Inc(1)
	}
	if hasDTS {
		t.dtss.Inc(1)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.pidStats(p.Header.PID)
	st.Packets++
	if p.Header.ScramblingControl != 0 {
		st.Scrambled = true
	}
	if p.Discontinuity() {
		st.Discontinuities++
	}
	if hasPCR {
		st.PCRs++
		st.LastPCR = p.PCR()
	}
	if hasDTS {
		st.DTSs++
		st.LastDTS = p.DTS()
	}
}

// ObserveError records an input that failed with a read or decode error.
func (t *Tracker) ObserveError(err error) {
	if err == nil {
		return
	}
	t.errors.Inc(1)
}

// ObserveResync records a loss of packet alignment that was recovered
// after skipping the given number of bytes. It matches the signature of
// scan.ScannerOptOnResync.
func (t *Tracker) ObserveResync(skipped int64) {
	t.resyncs.Inc(1)
	t.skipped.Inc(skipped)
}

func (t *Tracker) pidStats(pid uint16) *PIDStats {
	if v, ok := t.pids.Get(pid); ok {
		return v.(*PIDStats)
	}
	st := &PIDStats{PID: pid}
	t.pids.Add(pid, st)
	return st
}

// Snapshot returns the current counters with PIDs in ascending order.
func (t *Tracker) Snapshot() Snapshot {
	s := Snapshot{
		Packets:      t.packets.Count(),
		Errors:       t.errors.Count(),
		Resyncs:      t.resyncs.Count(),
		SkippedBytes: t.skipped.Count(),
		PCRs:         t.pcrs.Count(),
		DTSs:         t.dtss.Count(),
		Evicted:      t.evicted.Count(),
	}

	t.mu.Lock()
	for _, k := range t.pids.Keys() {
		if v, ok := t.pids.Peek(k); ok {
			s.PIDs = append(s.PIDs, *v.(*PIDStats))
		}
	}
	t.mu.Unlock()

	sort.Slice(s.PIDs, func(i, j int) bool { return s.PIDs[i].PID < s.PIDs[j].PID })
	return s
}
