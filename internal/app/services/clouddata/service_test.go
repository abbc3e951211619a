package clouddata

import (
	"context"
	"errors"
	"testing"

	"github.com/frogworks/storefront/internal/app/storage"
	"github.com/frogworks/storefront/internal/app/storage/memory"
)

type staticEntitlements struct {
	owned map[string]bool
}

func (s staticEntitlements) Owns(ctx context.Context, userID, applicationID string) (bool, error) {
	return s.owned[userID+"/"+applicationID], nil
}

func TestService_SaveSlot(t *testing.T) {
	store := memory.New()
	svc := New(store, staticEntitlements{owned: map[string]bool{"u1/a1": true}}, nil)

	first, err := svc.Put(context.Background(), "u1", "a1", map[string]any{"level": 3})
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	// One slot per user and application; writing again replaces it.
	second, err := svc.Put(context.Background(), "u1", "a1", map[string]any{"level": 7})
	if err != nil {
		t.Fatalf("second put: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("overwrite should keep the slot, got new id %s", second.ID)
	}

	save, err := svc.Get(context.Background(), "u1", "a1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if save.Data["level"] != 7 {
		t.Fatalf("expected latest data, got %#v", save.Data)
	}

	if err := svc.Delete(context.Background(), "u1", "a1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(context.Background(), "u1", "a1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestService_EntitlementGate(t *testing.T) {
	store := memory.New()
	svc := New(store, staticEntitlements{owned: map[string]bool{}}, nil)

	if _, err := svc.Put(context.Background(), "u1", "a1", map[string]any{"level": 1}); !errors.Is(err, ErrNotEntitled) {
		t.Fatalf("expected ErrNotEntitled on put, got %v", err)
	}
	if _, err := svc.Get(context.Background(), "u1", "a1"); !errors.Is(err, ErrNotEntitled) {
		t.Fatalf("expected ErrNotEntitled on get, got %v", err)
	}
}

func TestService_NilCheckerAllowsAll(t *testing.T) {
	store := memory.New()
	svc := New(store, nil, nil)

	if _, err := svc.Put(context.Background(), "u1", "a1", map[string]any{"level": 1}); err != nil {
		t.Fatalf("put without checker: %v", err)
	}
}

func TestService_PurgeApplication(t *testing.T) {
	store := memory.New()
	svc := New(store, nil, nil)

	for _, userID := range []string{"u1", "u2"} {
		if _, err := svc.Put(context.Background(), userID, "a1", map[string]any{"level": 1}); err != nil {
			t.Fatalf("put %s: %v", userID, err)
		}
	}
	if _, err := svc.Put(context.Background(), "u1", "a2", map[string]any{"level": 9}); err != nil {
		t.Fatalf("put other app: %v", err)
	}

	if err := svc.PurgeApplication(context.Background(), "a1"); err != nil {
		t.Fatalf("purge: %v", err)
	}
	for _, userID := range []string{"u1", "u2"} {
		if _, err := svc.Get(context.Background(), userID, "a1"); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("expected %s save purged, got %v", userID, err)
		}
	}
	// Saves for other applications are untouched.
	if _, err := svc.Get(context.Background(), "u1", "a2"); err != nil {
		t.Fatalf("unrelated save lost: %v", err)
	}
}
