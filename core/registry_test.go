package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

const ownerID = "owner"

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	registry, err := NewRegistry(NewMemoryStorage())
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	if err := registry.Init(context.Background()); err != nil {
		t.Fatalf("init registry: %v", err)
	}
	return registry
}

func mustStatus(t *testing.T, registry *Registry, peerID string) bool {
	t.Helper()
	status, err := registry.Status(context.Background(), access(peerID, ownerID))
	if err != nil {
		t.Fatalf("status %s: %v", peerID, err)
	}
	return status.IsRegistered
}

func TestNewRegistry_RequiresStorage(t *testing.T) {
	if _, err := NewRegistry(nil); err == nil {
		t.Fatalf("expected error for nil storage")
	}
}

func TestRegistry_StatusDefaultsToNotRegistered(t *testing.T) {
	registry := newTestRegistry(t)
	if mustStatus(t, registry, "nobody") {
		t.Fatalf("expected unknown peer to be not registered")
	}
	if mustStatus(t, registry, ownerID) {
		t.Fatalf("expected owner to be not registered until registered explicitly")
	}
}

func TestRegistry_OwnerRegistersAndRemoves(t *testing.T) {
	ctx := context.Background()
	registry := newTestRegistry(t)

	if err := registry.Register(ctx, access(ownerID, ownerID), "A"); err != nil {
		t.Fatalf("owner register: %v", err)
	}
	if !mustStatus(t, registry, "A") {
		t.Fatalf("expected A registered")
	}

	if err := registry.Remove(ctx, access(ownerID, ownerID), "A"); err != nil {
		t.Fatalf("owner remove: %v", err)
	}
	if mustStatus(t, registry, "A") {
		t.Fatalf("expected A removed")
	}
}

func TestRegistry_RegisterIsIdempotent(t *testing.T) {
	ctx := context.Background()
	registry := newTestRegistry(t)
	for i := 0; i < 2; i++ {
		if err := registry.Register(ctx, access(ownerID, ownerID), "X"); err != nil {
			t.Fatalf("register attempt %d: %v", i+1, err)
		}
		if !mustStatus(t, registry, "X") {
			t.Fatalf("expected X registered after attempt %d", i+1)
		}
	}
}

func TestRegistry_RemoveAbsentPeerSucceeds(t *testing.T) {
	ctx := context.Background()
	registry := newTestRegistry(t)
	if err := registry.Remove(ctx, access(ownerID, ownerID), "ghost"); err != nil {
		t.Fatalf("remove absent peer: %v", err)
	}
	if mustStatus(t, registry, "ghost") {
		t.Fatalf("expected ghost not registered")
	}
}

func TestRegistry_DelegatedAdmission(t *testing.T) {
	ctx := context.Background()
	registry := newTestRegistry(t)

	if err := registry.Register(ctx, access(ownerID, ownerID), "A"); err != nil {
		t.Fatalf("owner registers A: %v", err)
	}
	if err := registry.Register(ctx, access("A", ownerID), "B"); err != nil {
		t.Fatalf("A registers B: %v", err)
	}
	if !mustStatus(t, registry, "B") {
		t.Fatalf("expected B registered through A")
	}

	err := registry.Register(ctx, access("C", ownerID), "D")
	if err == nil {
		t.Fatalf("expected unprivileged register to be rejected")
	}
	if ClassifyError(err) != CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if mustStatus(t, registry, "D") {
		t.Fatalf("expected D to remain unregistered")
	}
}

func TestRegistry_RemovalDoesNotCascade(t *testing.T) {
	ctx := context.Background()
	registry := newTestRegistry(t)

	mustRegister := func(caller string, target string) {
		t.Helper()
		if err := registry.Register(ctx, access(caller, ownerID), target); err != nil {
			t.Fatalf("%s registers %s: %v", caller, target, err)
		}
	}
	mustRegister(ownerID, "A")
	mustRegister("A", "B")

	if err := registry.Remove(ctx, access(ownerID, ownerID), "A"); err != nil {
		t.Fatalf("owner removes A: %v", err)
	}
	if mustStatus(t, registry, "A") {
		t.Fatalf("expected A removed")
	}
	if !mustStatus(t, registry, "B") {
		t.Fatalf("expected B to stay registered after A was removed")
	}

	if err := registry.Register(ctx, access("A", ownerID), "E"); !IsUnauthorized(err) {
		t.Fatalf("expected removed A to lose privilege, got %v", err)
	}
}

func TestRegistry_UnprivilegedRemoveIsRejected(t *testing.T) {
	ctx := context.Background()
	registry := newTestRegistry(t)
	if err := registry.Register(ctx, access(ownerID, ownerID), "A"); err != nil {
		t.Fatalf("owner registers A: %v", err)
	}

	err := registry.Remove(ctx, access("mallory", ownerID), "A")
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryAuthz || rich.TextCode != PeersErrorUnauthorized {
		t.Fatalf("unexpected envelope category=%q text_code=%q", rich.Category, rich.TextCode)
	}
	if !mustStatus(t, registry, "A") {
		t.Fatalf("expected A untouched by rejected remove")
	}
}

func TestRegistry_EmptyIdentifiersAreInvalid(t *testing.T) {
	ctx := context.Background()
	registry := newTestRegistry(t)

	if _, err := registry.Status(ctx, access("", ownerID)); ClassifyError(err) != CodeInvalidArgument {
		t.Fatalf("expected invalid argument for empty caller status, got %v", err)
	}
	if err := registry.Register(ctx, access(ownerID, ownerID), ""); ClassifyError(err) != CodeInvalidArgument {
		t.Fatalf("expected invalid argument for empty target, got %v", err)
	}
	if err := registry.Remove(ctx, access("", ""), "A"); ClassifyError(err) != CodeInvalidArgument {
		t.Fatalf("expected invalid argument for empty caller remove, got %v", err)
	}
}

func TestRegistry_EmptyOwnerGrantsNothing(t *testing.T) {
	registry := newTestRegistry(t)
	err := registry.Register(context.Background(), access("someone", ""), "A")
	if !IsUnauthorized(err) {
		t.Fatalf("expected unauthorized with empty owner, got %v", err)
	}
}

func TestRegistry_PrivilegeCheckSurfacesStorageFailure(t *testing.T) {
	ctx := context.Background()
	storage := newStubStorage()
	registry, err := NewRegistry(storage)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	storage.containsErr = fmt.Errorf("disk on fire")

	err = registry.Register(ctx, access("A", ownerID), "B")
	if ClassifyError(err) != CodeStorageFailure {
		t.Fatalf("expected storage failure, got %v", err)
	}
	if IsUnauthorized(err) {
		t.Fatalf("storage failure must not look like a rejection")
	}
	if _, upserts, _ := storage.calls(); upserts != 0 {
		t.Fatalf("expected no write after failed privilege check, got %d", upserts)
	}

	if _, err := registry.Status(ctx, access("A", ownerID)); !IsStorageFailure(err) {
		t.Fatalf("expected status to surface storage failure, got %v", err)
	}
}

func TestRegistry_OwnerSkipsStorageLookup(t *testing.T) {
	storage := newStubStorage()
	registry, err := NewRegistry(storage)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	if err := registry.Register(context.Background(), access(ownerID, ownerID), "A"); err != nil {
		t.Fatalf("owner register: %v", err)
	}
	if contains, upserts, _ := storage.calls(); contains != 0 || upserts != 1 {
		t.Fatalf("expected 0 contains and 1 upsert, got %d and %d", contains, upserts)
	}
}

func TestRegistry_WriteFailureIsStorageFailure(t *testing.T) {
	storage := newStubStorage()
	storage.deleteErr = errors.New("write refused")
	registry, err := NewRegistry(storage)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	err = registry.Remove(context.Background(), access(ownerID, ownerID), "A")
	if ClassifyError(err) != CodeStorageFailure {
		t.Fatalf("expected storage failure, got %v", err)
	}
}

func TestRegistry_ListRequiresLister(t *testing.T) {
	registry, err := NewRegistry(newStubStorage())
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	if _, err := registry.List(context.Background()); ClassifyError(err) != CodeStorageFailure {
		t.Fatalf("expected storage failure for non-listing backend, got %v", err)
	}
}

func TestRegistry_ListReturnsRegisteredPeers(t *testing.T) {
	ctx := context.Background()
	registry := newTestRegistry(t)
	for _, peer := range []string{"b", "a", "c"} {
		if err := registry.Register(ctx, access(ownerID, ownerID), peer); err != nil {
			t.Fatalf("register %s: %v", peer, err)
		}
	}
	if err := registry.Remove(ctx, access(ownerID, ownerID), "c"); err != nil {
		t.Fatalf("remove c: %v", err)
	}
	records, err := registry.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 || records[0].PeerID != "a" || records[1].PeerID != "b" {
		t.Fatalf("unexpected records %#v", records)
	}
}

func TestRegistry_ConcurrentMutationsSerialize(t *testing.T) {
	ctx := context.Background()
	registry := newTestRegistry(t)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			target := fmt.Sprintf("peer-%d", i%4)
			if i%2 == 0 {
				_ = registry.Register(ctx, access(ownerID, ownerID), target)
				return
			}
			_ = registry.Remove(ctx, access(ownerID, ownerID), target)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 4; i++ {
		if _, err := registry.Status(ctx, access(fmt.Sprintf("peer-%d", i), ownerID)); err != nil {
			t.Fatalf("status after concurrent writes: %v", err)
		}
	}
}
