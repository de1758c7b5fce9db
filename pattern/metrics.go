package pattern

import (
	"fmt"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the §4.1 "Metrics (external sidecar)": the minimum and
// maximum local element counts over all units, balanced/imbalanced
// unit counts, and the imbalance factor (max_elems/min_elems), all
// derivable from Pattern's pure operations. Per-unit block counts are
// not part of it.
// It is exposed as a set of Prometheus gauges so a running team can be
// scraped the same way the teacher exposes its own `stats` package
// counters (see the `stats` import in ais/prxs3.go for the analogous
// "surface internal counters externally" role).
type Metrics struct {
	MinElems        uint64
	MaxElems        uint64
	BalancedUnits   uint64
	ImbalancedUnits uint64
	ImbalanceFactor float64
}

// Compute derives Metrics by calling LocalSize for every unit in the
// pattern's team. This performs nunits pure-function calls; it is not
// itself a collective and does no communication.
func (p *Pattern) Compute() Metrics {
	var m Metrics
	if p.nunits == 0 {
		return m
	}
	m.MinElems = ^uint64(0)
	var total uint64
	for u := uint64(0); u < p.nunits; u++ {
		sz := p.LocalSize(u)
		total += sz
		if sz < m.MinElems {
			m.MinElems = sz
		}
		if sz > m.MaxElems {
			m.MaxElems = sz
		}
	}
	if p.nunits > 0 {
		avg := total / p.nunits
		for u := uint64(0); u < p.nunits; u++ {
			if p.LocalSize(u) == avg {
				m.BalancedUnits++
			} else {
				m.ImbalancedUnits++
			}
		}
	}
	if m.MinElems == 0 {
		m.ImbalanceFactor = 0
		if m.MaxElems == 0 {
			m.ImbalanceFactor = 1
		}
	} else {
		m.ImbalanceFactor = float64(m.MaxElems) / float64(m.MinElems)
	}
	return m
}

// sidecarSeq disambiguates the constant_label for successive
// sidecars registered against the same default Prometheus registerer
// within one process (e.g. multiple containers/tests).
var sidecarSeq atomic.Uint64

// Sidecar wraps a set of Prometheus gauges tracking a single
// Pattern's Metrics. Refresh must be called after any event that
// could change local sizes (patterns are otherwise immutable, so in
// practice this means "once, right after construction", but the hook
// exists for callers that rebuild patterns across resizes).
type Sidecar struct {
	pattern         *Pattern
	minElems        prometheus.Gauge
	maxElems        prometheus.Gauge
	balancedUnits   prometheus.Gauge
	imbalancedUnits prometheus.Gauge
	imbalanceFactor prometheus.Gauge
}

// NewSidecar registers gauges for p under the given name (used as a
// constant "pattern" label) against reg. Pass prometheus.DefaultRegisterer
// unless isolating metrics in tests.
func NewSidecar(name string, p *Pattern, reg prometheus.Registerer) (*Sidecar, error) {
	if name == "" {
		name = fmt.Sprintf("pattern-%d", sidecarSeq.Add(1))
	}
	labels := prometheus.Labels{"pattern": name}
	s := &Sidecar{
		pattern: p,
		minElems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dash", Subsystem: "pattern", Name: "min_elems",
			Help: "Minimum local element count across units.", ConstLabels: labels,
		}),
		maxElems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dash", Subsystem: "pattern", Name: "max_elems",
			Help: "Maximum local element count across units.", ConstLabels: labels,
		}),
		balancedUnits: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dash", Subsystem: "pattern", Name: "balanced_units",
			Help: "Units holding exactly the average local element count.", ConstLabels: labels,
		}),
		imbalancedUnits: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dash", Subsystem: "pattern", Name: "imbalanced_units",
			Help: "Units deviating from the average local element count.", ConstLabels: labels,
		}),
		imbalanceFactor: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dash", Subsystem: "pattern", Name: "imbalance_factor",
			Help: "max_elems / min_elems across units.", ConstLabels: labels,
		}),
	}
	for _, c := range []prometheus.Collector{s.minElems, s.maxElems, s.balancedUnits, s.imbalancedUnits, s.imbalanceFactor} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	s.Refresh()
	return s, nil
}

// Refresh recomputes Metrics and updates the gauges.
func (s *Sidecar) Refresh() Metrics {
	m := s.pattern.Compute()
	s.minElems.Set(float64(m.MinElems))
	s.maxElems.Set(float64(m.MaxElems))
	s.balancedUnits.Set(float64(m.BalancedUnits))
	s.imbalancedUnits.Set(float64(m.ImbalancedUnits))
	s.imbalanceFactor.Set(m.ImbalanceFactor)
	return m
}
