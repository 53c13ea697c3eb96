package db

// Store exposes the query surface over either the pool or an open
// transaction. Services hold the narrow interfaces they need; the app layer
// hands them a Store scoped to the right transaction boundary.
type Store struct {
	q Querier
}

func NewStore(q Querier) *Store {
	return &Store{q: q}
}

type scanner interface {
	Scan(dest ...any) error
}
