// Package history records batch runs and the outcome of each batch line in a
// SQLite ledger. The clip snapshot remains the source of truth for clip
// state; the ledger only answers "what happened when I ran this file".
package history
