package main

import (
	"expvar"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

type metricMeta struct {
	typ, help string
	isMap     bool
	label     string
}

// metricMetas describes the expvar variables published by
// internal/infrastructure/metrics.
var metricMetas = map[string]metricMeta{
	"cashflow_channel_sent_total":      {typ: "counter", help: "Coordinator channel messages sent", isMap: true, label: "kind"},
	"cashflow_channel_received_total":  {typ: "counter", help: "Coordinator channel messages received", isMap: true, label: "kind"},
	"cashflow_runs_total":              {typ: "counter", help: "Finished flow runs", isMap: true, label: "status"},
	"cashflow_node_executions_total":   {typ: "counter", help: "Nodes executed", isMap: true, label: "kind"},
	"cashflow_node_failures_total":     {typ: "counter", help: "Nodes that failed", isMap: true, label: "kind"},
	"cashflow_emits_total":             {typ: "counter", help: "Programs generated", isMap: true, label: "target"},
	"cashflow_runs_rejected_total":     {typ: "counter", help: "Runs rejected because another run was in flight"},
	"cashflow_wallets_generated_total": {typ: "counter", help: "Ephemeral wallets generated"},
	"cashflow_runs_active":             {typ: "gauge", help: "Runs in flight"},
}

// promMetricsHandler renders expvar metrics in Prometheus text format.
// Known metrics get HELP and TYPE lines; other integer vars are exported as
// untyped gauges.
func promMetricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	varNames := make([]string, 0, 64)
	expvar.Do(func(kv expvar.KeyValue) {
		varNames = append(varNames, kv.Key)
	})
	sort.Strings(varNames)

	for _, name := range varNames {
		v := expvar.Get(name)
		m, known := metricMetas[name]
		if !known {
			if iv, ok := v.(*expvar.Int); ok {
				_, _ = fmt.Fprintf(w, "# TYPE %s gauge\n", name)
				_, _ = fmt.Fprintf(w, "%s %s\n", name, iv.String())
			}
			continue
		}
		_, _ = fmt.Fprintf(w, "# HELP %s %s\n", name, sanitizeHelp(m.help))
		_, _ = fmt.Fprintf(w, "# TYPE %s %s\n", name, m.typ)
		if !m.isMap {
			_, _ = fmt.Fprintf(w, "%s %s\n", name, v.String())
			continue
		}
		mp, ok := v.(*expvar.Map)
		if !ok {
			continue
		}
		sub := make([]expvar.KeyValue, 0, 8)
		mp.Do(func(kv expvar.KeyValue) { sub = append(sub, kv) })
		sort.Slice(sub, func(i, j int) bool { return sub[i].Key < sub[j].Key })
		for _, kv := range sub {
			_, _ = fmt.Fprintf(w, "%s{%s=\"%s\"} %s\n", name, m.label, escapeLabel(kv.Key), kv.Value.String())
		}
	}
}

func sanitizeHelp(s string) string {
	return strings.ReplaceAll(s, "\n", " ")
}

// escapeLabel escapes backslash, double quote and newline.
func escapeLabel(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
