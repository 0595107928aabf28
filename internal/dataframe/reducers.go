package dataframe

import (
	"cmp"
	"time"
)

type Sum struct {
	total float64
}

func (s *Sum) Add(v float64) { s.total += v }

func (s *Sum) Value() float64 { return s.total }

// Mean ignores nothing: callers decide which values qualify before adding them.
type Mean struct {
	total float64
	count int
}

func (m *Mean) Add(v float64) {
	m.total += v
	m.count++
}

func (m *Mean) Count() int { return m.count }

// Value returns the arithmetic mean and false when nothing was added.
func (m *Mean) Value() (float64, bool) {
	if m.count == 0 {
		return 0, false
	}
	return m.total / float64(m.count), true
}

type Min[T cmp.Ordered] struct {
	value T
	set   bool
}

func (m *Min[T]) Add(v T) {
	if !m.set || v < m.value {
		m.value = v
		m.set = true
	}
}

func (m *Min[T]) Value() (T, bool) { return m.value, m.set }

// TimeRange tracks the earliest start and latest end of a set of intervals.
type TimeRange struct {
	start time.Time
	end   time.Time
	set   bool
}

func (r *TimeRange) Add(start, end time.Time) {
	if !r.set {
		r.start, r.end, r.set = start, end, true
		return
	}
	if start.Before(r.start) {
		r.start = start
	}
	if end.After(r.end) {
		r.end = end
	}
}

func (r *TimeRange) Start() time.Time { return r.start }

func (r *TimeRange) End() time.Time { return r.end }

func (r *TimeRange) Duration() time.Duration {
	if !r.set {
		return 0
	}
	return r.end.Sub(r.start)
}

// Counter counts occurrences of values, e.g. the service of each observation.
type Counter[T cmp.Ordered] struct {
	counts map[T]int
}

func (c *Counter[T]) Add(v T) {
	if c.counts == nil {
		c.counts = make(map[T]int)
	}
	c.counts[v]++
}

// Mode returns the most frequent value; ties go to the smallest value.
func (c *Counter[T]) Mode() (T, bool) {
	var best T
	bestCount := 0
	for v, n := range c.counts {
		if n > bestCount || (n == bestCount && v < best) {
			best, bestCount = v, n
		}
	}
	return best, bestCount > 0
}
