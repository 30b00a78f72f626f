// Package flowgraph is the public façade over the cashflow packages. It
// re-exports the graph types and exposes a Runtime that orders, emits and
// runs flows with components chosen from a config.Config.
package flowgraph
