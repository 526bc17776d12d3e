package core

import "context"

// Storage persists registration records keyed by peer id. Implementations must
// be atomic per key and serialize access to any shared handle.
type Storage interface {
	// Init prepares the backing structure. Safe to call more than once.
	Init(ctx context.Context) error
	Contains(ctx context.Context, peerID string) (bool, error)
	Upsert(ctx context.Context, peerID string, isRegistered bool) error
	// Delete removes the record. Removing an absent peer is not an error.
	Delete(ctx context.Context, peerID string) error
}

// Lister is implemented by backends that can enumerate registered peers.
type Lister interface {
	List(ctx context.Context) ([]RegistrationRecord, error)
}

type StorageProvider interface {
	Storage() Storage
}

type RepositoryStorageFactory interface {
	BuildStorage(persistenceClient any) (StorageProvider, error)
}
