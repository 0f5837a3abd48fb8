// Package index keeps derived value indexes over ECS component stores.
//
// For a component type C the registry owns one entry: an Index mapping each
// key to the set of entities holding it (forward) and each entity to its key
// (reverse), a Tracker collecting entities written since the last pass, and
// a Syncer that reconciles the two from the store.
//
// Writers never touch the index. Store writes only mark the entity dirty, so
// any number of writes to one entity between passes cost one reconciliation.
// The registry plugs into the system runner as a planner: it schedules a sync
// unit after the writers of C and before every consumer of C, plus one at the
// end of each tick, and rejects plans where that order does not hold.
//
//	reg := index.NewRegistry(world)
//	index.Track[Shape](reg)
//	stars, err := index.RegisterConsumer[Shape, Shape](reg)
//	...
//	runner.AddPlanner(reg)
//	for _, id := range stars.Get(Star) { ... }
package index
