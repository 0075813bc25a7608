// Package store defines the persistence contracts for flashcards, generations,
// generation error logs and users, together with the shared error vocabulary
// and transaction helpers used by every implementation.
//
// Every store can be rebound to a *sql.Tx through WithTx so that services can
// compose several writes into one atomic unit.
package store
