package social

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/frogworks/storefront/internal/app/domain/catalog"
	"github.com/frogworks/storefront/internal/app/domain/money"
	"github.com/frogworks/storefront/internal/app/domain/social"
	"github.com/frogworks/storefront/internal/app/domain/user"
	"github.com/frogworks/storefront/internal/app/storage"
	"github.com/frogworks/storefront/internal/app/storage/memory"
)

func seedUser(t *testing.T, store storage.Store, username string) user.User {
	t.Helper()
	u, err := store.CreateUser(context.Background(), user.User{
		Identifier:   "id-" + username,
		Username:     username,
		Name:         username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		Joined:       time.Now().UTC(),
		Balance:      money.Zero(),
	})
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

func seedApplication(t *testing.T, store storage.Store) catalog.Application {
	t.Helper()
	app, err := store.CreateApplication(context.Background(), catalog.Application{
		Name:        "Skyforge",
		PackageName: "com.example.skyforge",
		Type:        "game",
		ReleaseDate: catalog.DateOnly(time.Now().UTC()),
		BasePrice:   money.Zero(),
	})
	if err != nil {
		t.Fatalf("create application: %v", err)
	}
	return app
}

func TestService_FriendRequestLifecycle(t *testing.T) {
	store := memory.New()
	alice := seedUser(t, store, "alice")
	bob := seedUser(t, store, "bob")
	svc := New(store, nil)

	req, err := svc.SendFriendRequest(context.Background(), alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("send request: %v", err)
	}

	// Duplicate and reverse requests are both rejected.
	if _, err := svc.SendFriendRequest(context.Background(), alice.ID, bob.ID); !errors.Is(err, ErrRequestExists) {
		t.Fatalf("expected ErrRequestExists, got %v", err)
	}
	if _, err := svc.SendFriendRequest(context.Background(), bob.ID, alice.ID); !errors.Is(err, ErrAwaitingResponse) {
		t.Fatalf("expected ErrAwaitingResponse, got %v", err)
	}

	// Only the addressee may accept.
	if err := svc.AcceptFriendRequest(context.Background(), alice.ID, req.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("sender accepting must look like not found, got %v", err)
	}
	if err := svc.AcceptFriendRequest(context.Background(), bob.ID, req.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	// Friendship is symmetric and the request is gone.
	for _, pair := range [][2]string{{alice.ID, bob.ID}, {bob.ID, alice.ID}} {
		ok, err := svc.AreFriends(context.Background(), pair[0], pair[1])
		if err != nil {
			t.Fatalf("are friends: %v", err)
		}
		if !ok {
			t.Fatalf("friendship should be symmetric")
		}
	}
	pending, _ := svc.FriendRequests(context.Background(), bob.ID)
	if len(pending) != 0 {
		t.Fatalf("accepted request should be deleted, got %d", len(pending))
	}

	if _, err := svc.SendFriendRequest(context.Background(), alice.ID, bob.ID); !errors.Is(err, ErrAlreadyFriends) {
		t.Fatalf("expected ErrAlreadyFriends, got %v", err)
	}
}

// failingRequestStore breaks GetFriendRequestBetween while everything else
// rides on the embedded store.
type failingRequestStore struct {
	storage.Store
	err error
}

func (f *failingRequestStore) WithTx(ctx context.Context, fn func(storage.Store) error) error {
	return f.Store.WithTx(ctx, func(tx storage.Store) error {
		return fn(&failingRequestStore{Store: tx, err: f.err})
	})
}

func (f *failingRequestStore) GetFriendRequestBetween(context.Context, string, string) (social.FriendRequest, error) {
	return social.FriendRequest{}, f.err
}

func TestService_SendFriendRequestSurfacesStoreErrors(t *testing.T) {
	store := memory.New()
	alice := seedUser(t, store, "alice")
	bob := seedUser(t, store, "bob")

	broken := errors.New("connection reset by peer")
	svc := New(&failingRequestStore{Store: store, err: broken}, nil)

	_, err := svc.SendFriendRequest(context.Background(), alice.ID, bob.ID)
	if !errors.Is(err, broken) {
		t.Fatalf("store failures must surface, got %v", err)
	}
	if errors.Is(err, ErrRequestExists) || errors.Is(err, ErrAwaitingResponse) {
		t.Fatalf("a store failure must not read as an existing request: %v", err)
	}
}

func TestService_SelfAndUnknownRequests(t *testing.T) {
	store := memory.New()
	alice := seedUser(t, store, "alice")
	svc := New(store, nil)

	if _, err := svc.SendFriendRequest(context.Background(), alice.ID, alice.ID); !errors.Is(err, ErrSelfRequest) {
		t.Fatalf("expected ErrSelfRequest, got %v", err)
	}
	if _, err := svc.SendFriendRequest(context.Background(), alice.ID, "ghost"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown target, got %v", err)
	}
}

func TestService_DeclineAndRemove(t *testing.T) {
	store := memory.New()
	alice := seedUser(t, store, "alice")
	bob := seedUser(t, store, "bob")
	svc := New(store, nil)

	req, err := svc.SendFriendRequest(context.Background(), alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("send request: %v", err)
	}
	if err := svc.DeclineFriendRequest(context.Background(), bob.ID, req.ID); err != nil {
		t.Fatalf("decline: %v", err)
	}
	ok, _ := svc.AreFriends(context.Background(), alice.ID, bob.ID)
	if ok {
		t.Fatalf("declined request must not create a friendship")
	}

	// Declining clears the slate; a later request succeeds.
	req, err = svc.SendFriendRequest(context.Background(), alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("second request: %v", err)
	}
	if err := svc.AcceptFriendRequest(context.Background(), bob.ID, req.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	if err := svc.RemoveFriend(context.Background(), alice.ID, bob.ID); err != nil {
		t.Fatalf("remove friend: %v", err)
	}
	// Removal tears down both directions.
	ok, _ = svc.AreFriends(context.Background(), bob.ID, alice.ID)
	if ok {
		t.Fatalf("removal should apply to both directions")
	}

	if err := svc.RemoveFriend(context.Background(), alice.ID, bob.ID); !errors.Is(err, ErrNotFriends) {
		t.Fatalf("expected ErrNotFriends, got %v", err)
	}
}

func TestService_Invites(t *testing.T) {
	store := memory.New()
	alice := seedUser(t, store, "alice")
	bob := seedUser(t, store, "bob")
	app := seedApplication(t, store)
	svc := New(store, nil)

	inv, err := svc.SendInvite(context.Background(), alice.ID, bob.ID, app.ID, map[string]any{"lobby": "alpha"})
	if err != nil {
		t.Fatalf("send invite: %v", err)
	}
	if inv.Details["lobby"] != "alpha" {
		t.Fatalf("invite payload not carried: %#v", inv.Details)
	}

	// Later invites for the same pair and application coexist.
	if _, err := svc.SendInvite(context.Background(), alice.ID, bob.ID, app.ID, nil); err != nil {
		t.Fatalf("second invite: %v", err)
	}

	all, err := svc.Invites(context.Background(), bob.ID, "")
	if err != nil {
		t.Fatalf("list invites: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 invites, got %d", len(all))
	}
	scoped, _ := svc.Invites(context.Background(), bob.ID, app.ID)
	if len(scoped) != 2 {
		t.Fatalf("expected scoped listing to match, got %d", len(scoped))
	}

	if err := svc.DismissInvite(context.Background(), bob.ID, inv.ID); err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	// Only the addressee may dismiss.
	remaining, _ := svc.Invites(context.Background(), bob.ID, "")
	if len(remaining) != 1 {
		t.Fatalf("expected 1 invite left, got %d", len(remaining))
	}
	if err := svc.DismissInvite(context.Background(), alice.ID, remaining[0].ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("foreign dismiss must look like not found, got %v", err)
	}
}
