// Package stats provides lightweight, optionally-enabled counters used
// to track block-cache hits/misses, page-fault counts and similar
// kernel statistics, plus a helper that exports a struct of counters as
// Prometheus gauges.
package stats

import (
	"reflect"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const Stats = false
const Timing = false

/// Rdtsc returns a monotonic nanosecond timestamp when timing is enabled,
/// standing in for the teacher's cycle counter (there is no hardware
/// TSC to read from a hosted Go process).
func Rdtsc() uint64 {
	if Timing {
		return uint64(time.Now().UnixNano())
	}
	return 0
}

/// Counter_t is a statistical counter.
type Counter_t struct{ v atomic.Int64 }

/// Cycles_t holds an elapsed-time accumulator, in nanoseconds.
type Cycles_t struct{ v atomic.Int64 }

/// Inc increments the counter.
func (c *Counter_t) Inc() {
	if Stats {
		c.v.Add(1)
	}
}

/// Add adds elapsed time (since m, as returned by Rdtsc) to the counter.
func (c *Cycles_t) Add(m uint64) {
	if Timing {
		c.v.Add(int64(Rdtsc() - m))
	}
}

/// Stats2String converts a struct of counters to a printable string.
func Stats2String(st interface{}) string {
	if !Stats {
		return ""
	}
	v := reflect.ValueOf(st)
	s := ""
	for i := 0; i < v.NumField(); i++ {
		t := v.Field(i).Type().String()
		name := v.Type().Field(i).Name
		switch {
		case strings.HasSuffix(t, "Counter_t"):
			c := v.Field(i).Addr().Interface().(*Counter_t)
			s += "\n\t#" + name + ": " + strconv.FormatInt(c.v.Load(), 10)
		case strings.HasSuffix(t, "Cycles_t"):
			c := v.Field(i).Addr().Interface().(*Cycles_t)
			s += "\n\t#" + name + ": " + strconv.FormatInt(c.v.Load(), 10)
		}
	}
	return s + "\n"
}

/// PrometheusGauges walks a struct of Counter_t/Cycles_t fields and
/// registers one gauge per field under the given namespace, returning
/// a function that refreshes every gauge's value from its counter.
func PrometheusGauges(reg prometheus.Registerer, namespace string, st interface{}) func() {
	v := reflect.ValueOf(st)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	type binding struct {
		gauge prometheus.Gauge
		load  func() int64
	}
	var bindings []binding
	for i := 0; i < v.NumField(); i++ {
		t := v.Field(i).Type().String()
		name := v.Type().Field(i).Name
		switch {
		case strings.HasSuffix(t, "Counter_t"):
			c := v.Field(i).Addr().Interface().(*Counter_t)
			g := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: strings.ToLower(name)})
			reg.MustRegister(g)
			bindings = append(bindings, binding{g, c.v.Load})
		case strings.HasSuffix(t, "Cycles_t"):
			c := v.Field(i).Addr().Interface().(*Cycles_t)
			g := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: strings.ToLower(name) + "_ns"})
			reg.MustRegister(g)
			bindings = append(bindings, binding{g, c.v.Load})
		}
	}
	return func() {
		for _, b := range bindings {
			b.gauge.Set(float64(b.load()))
		}
	}
}
