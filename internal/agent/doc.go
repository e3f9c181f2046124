// Package agent defines the task-handler abstraction behind the agent
// endpoint: a closed set of agent types, a registry that maps each
// type to its handler, and the native handlers that run in-process.
//
// Process-backed handlers (weather, product, store locator) live in
// the runner subpackage; they delegate to an external interpreter per
// invocation. Native handlers (search, summarize) run entirely in Go.
package agent
