// Package registry implements the worker registry: it owns every worker's
// shared state and the handle used to join its goroutine, and provides the
// only safe entry points for creating, observing, mutating, and removing
// workers. The initializer that seeds the pool at startup lives here too.
package registry
