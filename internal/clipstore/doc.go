// Package clipstore persists clip records as a single JSON snapshot.
//
// The store keeps every record in memory, guarded by a RWMutex, and writes the
// whole mapping back atomically on Save. Open additionally takes an exclusive
// flock beside the snapshot so only one process mutates it at a time. Save is
// a no-op until Load has succeeded, which keeps a half-initialized process from
// truncating an existing snapshot.
package clipstore
