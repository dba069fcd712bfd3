package recordstore

import "context"

// Store is the subset of the record store the backup subsystem uses.
// Backup and audit only read; restore is the only writer.
type Store interface {
	// Ping returns an error wrapping errors.ErrConnectivity when the store is unreachable.
	Ping(ctx context.Context) error
	// List returns every record of a collection in storage order.
	List(ctx context.Context, collection string) ([]Record, error)
	// Find returns the record matching key or errors.ErrRecordNotFound.
	Find(ctx context.Context, collection string, key Key) (Record, error)
	Insert(ctx context.Context, collection string, rec Record) error
	// Update replaces the record matching key.
	Update(ctx context.Context, collection string, key Key, rec Record) error
}

// Closer is implemented by stores that hold resources.
type Closer interface {
	Close() error
}
