// Package lifecycle manages registered components and their dependency graph.
//
// Components are arbitrary values. Hooks are discovered through the small
// capability interfaces in this package, so a component implements only the
// phases it cares about:
//
//	type Cache struct{ ... }
//
//	func (c *Cache) OnInitialize(ctx context.Context) error { ... }
//	func (c *Cache) OnDestroy(ctx context.Context) error    { ... }
//
// InitializeAll orders components so that every dependency is initialized
// before its dependents. Cycles and failed dependencies exclude only the
// affected components; everything else still initializes. DestroyAll walks
// the recorded initialization order backwards.
//
// Hooks always run outside the manager's lock and through an isolating
// executor, so a panicking or failing hook is captured as an
// orcherr.ComponentError in the returned Result.
package lifecycle
