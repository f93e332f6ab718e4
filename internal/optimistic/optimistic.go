// Package optimistic implements snapshot/apply/commit-or-revert updates of
// in-memory state. It follows the database transaction shape:
//
//	tx := optimistic.Begin(snapshot, restore)
//	defer tx.Rollback()
//	apply()
//	if err := confirm(); err != nil {
//		return err
//	}
//	tx.Commit()
package optimistic

import "sync"

// Tx holds a snapshot of state taken before an optimistic mutation.
type Tx[S any] struct {
	mu       sync.Mutex
	snapshot S
	restore  func(S)
	done     bool
}

// Begin starts a transaction. snapshot must be an independent copy of the
// state; restore puts it back.
func Begin[S any](snapshot S, restore func(S)) *Tx[S] {
	return &Tx[S]{snapshot: snapshot, restore: restore}
}

// Commit keeps the mutation. Later calls to Rollback do nothing.
func (tx *Tx[S]) Commit() {
	tx.mu.Lock()
	tx.done = true
	tx.mu.Unlock()
}

// Rollback restores the snapshot unless the transaction was committed or
// already rolled back. It reports whether a restore happened.
func (tx *Tx[S]) Rollback() bool {
	tx.mu.Lock()
	if tx.done {
		tx.mu.Unlock()
		return false
	}
	tx.done = true
	tx.mu.Unlock()

	tx.restore(tx.snapshot)
	return true
}

// Snapshot returns the state captured by Begin.
func (tx *Tx[S]) Snapshot() S {
	return tx.snapshot
}

// Apply runs apply then confirm inside a transaction, reverting to snapshot
// when confirm fails.
func Apply[S any](snapshot S, restore func(S), apply func(), confirm func() error) error {
	tx := Begin(snapshot, restore)
	defer tx.Rollback()

	apply()
	if err := confirm(); err != nil {
		return err
	}
	tx.Commit()
	return nil
}
