package core

import (
	"context"
	"fmt"
	"sync"
)

const (
	operationRegister = "register"
	operationRemove   = "remove"
)

// Registry decides who may register or remove peers. A caller is privileged
// when it is the owner or is itself currently registered, so admission chains
// transitively from the owner. Removing a peer does not remove the peers it
// admitted.
type Registry struct {
	mu      sync.Mutex
	storage Storage
}

func NewRegistry(storage Storage) (*Registry, error) {
	if storage == nil {
		return nil, fmt.Errorf("core: registry storage is required")
	}
	return &Registry{storage: storage}, nil
}

func (r *Registry) Storage() Storage {
	if r == nil {
		return nil
	}
	return r.storage
}

func (r *Registry) Init(ctx context.Context) error {
	if r == nil || r.storage == nil {
		return internalError("core: registry is not configured")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.storage.Init(ctx); err != nil {
		return StorageFailure(err, "init")
	}
	return nil
}

func (r *Registry) Status(ctx context.Context, access AccessContext) (RegistrationStatus, error) {
	if r == nil || r.storage == nil {
		return RegistrationStatus{}, internalError("core: registry is not configured")
	}
	if err := access.Validate(); err != nil {
		return RegistrationStatus{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	registered, err := r.storage.Contains(ctx, access.CallerID)
	if err != nil {
		return RegistrationStatus{}, StorageFailure(err, "contains")
	}
	return RegistrationStatus{IsRegistered: registered}, nil
}

func (r *Registry) IsPrivileged(ctx context.Context, access AccessContext) (bool, error) {
	if r == nil || r.storage == nil {
		return false, internalError("core: registry is not configured")
	}
	if err := access.Validate(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.isPrivilegedLocked(ctx, access)
}

func (r *Registry) Register(ctx context.Context, access AccessContext, targetPeerID string) error {
	return r.mutate(ctx, access, targetPeerID, operationRegister, func(ctx context.Context) error {
		return r.storage.Upsert(ctx, targetPeerID, true)
	})
}

func (r *Registry) Remove(ctx context.Context, access AccessContext, targetPeerID string) error {
	return r.mutate(ctx, access, targetPeerID, operationRemove, func(ctx context.Context) error {
		return r.storage.Delete(ctx, targetPeerID)
	})
}

func (r *Registry) List(ctx context.Context) ([]RegistrationRecord, error) {
	if r == nil || r.storage == nil {
		return nil, internalError("core: registry is not configured")
	}
	lister, ok := r.storage.(Lister)
	if !ok {
		return nil, StorageFailure(fmt.Errorf("core: storage %T does not support listing", r.storage), "list")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	records, err := lister.List(ctx)
	if err != nil {
		return nil, StorageFailure(err, "list")
	}
	return records, nil
}

func (r *Registry) mutate(
	ctx context.Context,
	access AccessContext,
	targetPeerID string,
	operation string,
	apply func(context.Context) error,
) error {
	if r == nil || r.storage == nil {
		return internalError("core: registry is not configured")
	}
	if err := access.Validate(); err != nil {
		return err
	}
	if err := validatePeerID("target_peer_id", targetPeerID); err != nil {
		return err
	}

	// The privilege check and the write are one unit.
	r.mu.Lock()
	defer r.mu.Unlock()

	privileged, err := r.isPrivilegedLocked(ctx, access)
	if err != nil {
		return err
	}
	if !privileged {
		return unauthorized(access, operation)
	}
	if err := apply(ctx); err != nil {
		return StorageFailure(err, operation)
	}
	return nil
}

func (r *Registry) isPrivilegedLocked(ctx context.Context, access AccessContext) (bool, error) {
	if access.IsOwner() {
		return true, nil
	}
	registered, err := r.storage.Contains(ctx, access.CallerID)
	if err != nil {
		return false, StorageFailure(err, "contains")
	}
	return registered, nil
}
