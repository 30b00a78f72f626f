// Package metrics exposes expvar-published counters and gauges for flow
// runs, node dispatch, code emission and the mixing transport. The
// cashflow-server binary serves them on /debug/vars and, in Prometheus text
// format, on /metrics.
package metrics
