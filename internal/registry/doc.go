// Package registry owns the bounded set of live peer connections.
//
// Ownership boundary:
// - id assignment and capacity admission
// - membership lookup and snapshots for status reporting
// - best-effort text fan-out (broadcast, send-to-one, client listing)
//
// Mutation and iteration share one RWMutex: broadcasts hold the read side for
// the whole fan-out, so they never observe a half-applied register/deregister.
package registry
