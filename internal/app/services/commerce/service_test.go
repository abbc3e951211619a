package commerce

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/frogworks/storefront/internal/app/domain/catalog"
	commerceDomain "github.com/frogworks/storefront/internal/app/domain/commerce"
	"github.com/frogworks/storefront/internal/app/domain/money"
	"github.com/frogworks/storefront/internal/app/domain/user"
	catalogsvc "github.com/frogworks/storefront/internal/app/services/catalog"
	"github.com/frogworks/storefront/internal/app/storage"
	"github.com/frogworks/storefront/internal/app/storage/memory"
)

func mustAmount(t *testing.T, value string) money.Amount {
	t.Helper()
	a, err := money.Parse(value)
	if err != nil {
		t.Fatalf("parse amount %q: %v", value, err)
	}
	return a
}

func seedUser(t *testing.T, store storage.Store, username, balance string) user.User {
	t.Helper()
	u, err := store.CreateUser(context.Background(), user.User{
		Identifier:   "id-" + username,
		Username:     username,
		Name:         username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		Joined:       time.Now().UTC(),
		Balance:      mustAmount(t, balance),
		Verified:     true,
	})
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

func seedApplication(t *testing.T, store storage.Store, name, price string, owners ...string) catalog.Application {
	t.Helper()
	app, err := store.CreateApplication(context.Background(), catalog.Application{
		Name:        name,
		PackageName: "com.example." + name,
		Type:        "game",
		ReleaseDate: catalog.DateOnly(time.Now().UTC()),
		BasePrice:   mustAmount(t, price),
		Owners:      owners,
	})
	if err != nil {
		t.Fatalf("create application %s: %v", name, err)
	}
	return app
}

func newCatalog(store storage.Store) *catalogsvc.Service {
	return catalogsvc.New(store, nil)
}

func TestService_PurchaseApplication(t *testing.T) {
	store := memory.New()
	buyer := seedUser(t, store, "buyer", "20.00")
	app := seedApplication(t, store, "skyforge", "15.00")

	svc := New(store, newCatalog(store), nil)
	receipt, err := svc.PurchaseApplication(context.Background(), buyer.ID, "", app.ID)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}

	if receipt.Key == nil || !receipt.Key.Redeemed || receipt.Key.UserID != buyer.ID {
		t.Fatalf("unexpected key state: %#v", receipt.Key)
	}
	if receipt.Purchase.Source != commerceDomain.SourceSelf {
		t.Fatalf("expected self purchase, got %q", receipt.Purchase.Source)
	}
	if receipt.Transaction.Reference != receipt.Purchase.ID {
		t.Fatalf("transaction should reference the purchase")
	}

	after, err := store.GetUser(context.Background(), buyer.ID)
	if err != nil {
		t.Fatalf("reload buyer: %v", err)
	}
	if money.Format(after.Balance) != "5.00" {
		t.Fatalf("expected balance 5.00 after purchase, got %s", money.Format(after.Balance))
	}

	owns, err := svc.Owns(context.Background(), buyer.ID, app.ID)
	if err != nil {
		t.Fatalf("owns: %v", err)
	}
	if !owns {
		t.Fatalf("buyer should own the application")
	}
}

func TestService_PurchaseApplicationInsufficientFunds(t *testing.T) {
	store := memory.New()
	buyer := seedUser(t, store, "poor", "5.00")
	app := seedApplication(t, store, "skyforge", "15.00")

	svc := New(store, newCatalog(store), nil)
	if _, err := svc.PurchaseApplication(context.Background(), buyer.ID, "", app.ID); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	after, _ := store.GetUser(context.Background(), buyer.ID)
	if money.Format(after.Balance) != "5.00" {
		t.Fatalf("failed purchase must not touch the balance, got %s", money.Format(after.Balance))
	}
	keys, _ := store.ListUserApplicationKeys(context.Background(), buyer.ID)
	if len(keys) != 0 {
		t.Fatalf("failed purchase must not issue keys, got %d", len(keys))
	}
}

func TestService_PurchaseApplicationAlreadyOwned(t *testing.T) {
	store := memory.New()
	buyer := seedUser(t, store, "buyer", "100.00")
	app := seedApplication(t, store, "skyforge", "15.00")

	svc := New(store, newCatalog(store), nil)
	first, err := svc.PurchaseApplication(context.Background(), buyer.ID, "", app.ID)
	if err != nil {
		t.Fatalf("first purchase: %v", err)
	}
	if _, err := svc.PurchaseApplication(context.Background(), buyer.ID, "", app.ID); !errors.Is(err, ErrAlreadyOwned) {
		t.Fatalf("expected ErrAlreadyOwned, got %v", err)
	}

	// The rejected purchase leaves no trace: one key, one ledger entry,
	// one charge.
	keys, err := store.ListUserApplicationKeys(context.Background(), buyer.ID)
	if err != nil {
		t.Fatalf("list keys: %v", err)
	}
	if len(keys) != 1 || keys[0].Key != first.Key.Key {
		t.Fatalf("expected exactly the first key, got %#v", keys)
	}
	txs, err := store.ListUserTransactions(context.Background(), buyer.ID)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(txs) != 1 || txs[0].Reference != first.Purchase.ID {
		t.Fatalf("expected only the first purchase in the ledger, got %#v", txs)
	}
	after, err := store.GetUser(context.Background(), buyer.ID)
	if err != nil {
		t.Fatalf("reload buyer: %v", err)
	}
	if money.Format(after.Balance) != "85.00" {
		t.Fatalf("rejected purchase must not charge again, got %s", money.Format(after.Balance))
	}
}

func TestService_PurchaseApplicationCreatorOwnsImplicitly(t *testing.T) {
	store := memory.New()
	dev := seedUser(t, store, "dev", "50.00")
	app := seedApplication(t, store, "skyforge", "15.00", dev.ID)

	svc := New(store, newCatalog(store), nil)
	if _, err := svc.PurchaseApplication(context.Background(), dev.ID, "", app.ID); !errors.Is(err, ErrAlreadyOwned) {
		t.Fatalf("creator must not buy their own application, got %v", err)
	}
}

func TestService_GiftPurchase(t *testing.T) {
	store := memory.New()
	payer := seedUser(t, store, "payer", "20.00")
	friend := seedUser(t, store, "friend", "0.00")
	app := seedApplication(t, store, "skyforge", "15.00")

	svc := New(store, newCatalog(store), nil)
	receipt, err := svc.PurchaseApplication(context.Background(), payer.ID, friend.ID, app.ID)
	if err != nil {
		t.Fatalf("gift purchase: %v", err)
	}

	if receipt.Purchase.Source != commerceDomain.SourceGift {
		t.Fatalf("expected gift source, got %q", receipt.Purchase.Source)
	}
	if receipt.Purchase.UserID != friend.ID {
		t.Fatalf("recipient should hold the purchase")
	}
	if receipt.Transaction.UserID != payer.ID {
		t.Fatalf("payer should hold the transaction")
	}

	owns, _ := svc.Owns(context.Background(), friend.ID, app.ID)
	if !owns {
		t.Fatalf("recipient should own the application")
	}
	owns, _ = svc.Owns(context.Background(), payer.ID, app.ID)
	if owns {
		t.Fatalf("payer should not own the gifted application")
	}

	purchase, tx, err := svc.PurchaseSource(context.Background(), friend.ID, app.ID)
	if err != nil {
		t.Fatalf("purchase source: %v", err)
	}
	if purchase.ID != receipt.Purchase.ID || tx.UserID != payer.ID {
		t.Fatalf("reverse lookup should find the payer, got purchase %s payer %s", purchase.ID, tx.UserID)
	}
}

func TestService_SalePriceApplies(t *testing.T) {
	store := memory.New()
	buyer := seedUser(t, store, "buyer", "10.00")
	app := seedApplication(t, store, "skyforge", "19.99")

	cat := newCatalog(store)
	now := time.Now().UTC()
	if _, err := cat.CreateSale(context.Background(), app.ID, "summer", "", mustAmount(t, "9.99"), now.AddDate(0, 0, -1), now.AddDate(0, 0, 1)); err != nil {
		t.Fatalf("create sale: %v", err)
	}

	svc := New(store, cat, nil)
	receipt, err := svc.PurchaseApplication(context.Background(), buyer.ID, "", app.ID)
	if err != nil {
		t.Fatalf("purchase during sale: %v", err)
	}
	if money.Format(receipt.Purchase.Price) != "9.99" {
		t.Fatalf("expected sale price 9.99, got %s", money.Format(receipt.Purchase.Price))
	}

	after, _ := store.GetUser(context.Background(), buyer.ID)
	if money.Format(after.Balance) != "0.01" {
		t.Fatalf("expected balance 0.01, got %s", money.Format(after.Balance))
	}
}

func TestService_PurchaseIAP(t *testing.T) {
	store := memory.New()
	buyer := seedUser(t, store, "buyer", "30.00")
	outsider := seedUser(t, store, "outsider", "30.00")
	app := seedApplication(t, store, "skyforge", "15.00")

	cat := newCatalog(store)
	iap, err := cat.CreateIAP(context.Background(), app.ID, "gems", "a pile of gems", mustAmount(t, "4.99"), map[string]any{"gems": 100})
	if err != nil {
		t.Fatalf("create iap: %v", err)
	}

	svc := New(store, cat, nil)

	// Owning the application gates every in-app purchase.
	if _, err := svc.PurchaseIAP(context.Background(), outsider.ID, iap.ID); !errors.Is(err, ErrNotEntitled) {
		t.Fatalf("expected ErrNotEntitled, got %v", err)
	}

	if _, err := svc.PurchaseApplication(context.Background(), buyer.ID, "", app.ID); err != nil {
		t.Fatalf("buy application: %v", err)
	}

	receipt, err := svc.PurchaseIAP(context.Background(), buyer.ID, iap.ID)
	if err != nil {
		t.Fatalf("buy iap: %v", err)
	}
	if receipt.IAPRecord == nil || receipt.IAPRecord.Acknowledged {
		t.Fatalf("iap record should exist unacknowledged: %#v", receipt.IAPRecord)
	}

	// Repeat purchases of the same IAP are allowed.
	if _, err := svc.PurchaseIAP(context.Background(), buyer.ID, iap.ID); err != nil {
		t.Fatalf("second iap purchase: %v", err)
	}

	pending, err := svc.PendingIAPRecords(context.Background(), buyer.ID, app.ID)
	if err != nil {
		t.Fatalf("pending records: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending records, got %d", len(pending))
	}

	record, err := svc.AcknowledgeIAPRecord(context.Background(), buyer.ID, pending[0].ID)
	if err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if !record.Acknowledged {
		t.Fatalf("record should be acknowledged")
	}

	pending, _ = svc.PendingIAPRecords(context.Background(), buyer.ID, app.ID)
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending record after acknowledge, got %d", len(pending))
	}
}

func TestService_AcknowledgeForeignRecord(t *testing.T) {
	store := memory.New()
	buyer := seedUser(t, store, "buyer", "30.00")
	other := seedUser(t, store, "other", "30.00")
	app := seedApplication(t, store, "skyforge", "1.00")

	cat := newCatalog(store)
	iap, _ := cat.CreateIAP(context.Background(), app.ID, "gems", "", mustAmount(t, "0.99"), nil)

	svc := New(store, cat, nil)
	if _, err := svc.PurchaseApplication(context.Background(), buyer.ID, "", app.ID); err != nil {
		t.Fatalf("buy application: %v", err)
	}
	receipt, err := svc.PurchaseIAP(context.Background(), buyer.ID, iap.ID)
	if err != nil {
		t.Fatalf("buy iap: %v", err)
	}

	if _, err := svc.AcknowledgeIAPRecord(context.Background(), other.ID, receipt.IAPRecord.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("foreign acknowledge must look like not found, got %v", err)
	}
}

func TestService_CreatorKeysAndRedemption(t *testing.T) {
	store := memory.New()
	player := seedUser(t, store, "player", "0.00")
	app := seedApplication(t, store, "skyforge", "15.00")

	svc := New(store, newCatalog(store), nil)
	keys, err := svc.CreateCreatorKeys(context.Background(), app.ID, 3)
	if err != nil {
		t.Fatalf("create creator keys: %v", err)
	}
	if len(keys) != 3 {
		t.Fatalf("expected 3 keys, got %d", len(keys))
	}
	for _, k := range keys {
		if k.Redeemed || k.UserID != "" || k.Type != commerceDomain.KeyTypeCreator {
			t.Fatalf("unexpected creator key state: %#v", k)
		}
	}

	receipt, err := svc.RedeemKey(context.Background(), player.ID, keys[0].Key)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if money.Format(receipt.Purchase.Price) != "0.00" {
		t.Fatalf("redemption must be free, got %s", money.Format(receipt.Purchase.Price))
	}

	owns, _ := svc.Owns(context.Background(), player.ID, app.ID)
	if !owns {
		t.Fatalf("player should own after redemption")
	}

	if _, err := svc.RedeemKey(context.Background(), player.ID, keys[0].Key); !errors.Is(err, ErrKeyRedeemed) {
		t.Fatalf("expected ErrKeyRedeemed, got %v", err)
	}
	if _, err := svc.RedeemKey(context.Background(), player.ID, keys[1].Key); !errors.Is(err, ErrAlreadyOwned) {
		t.Fatalf("expected ErrAlreadyOwned for second key, got %v", err)
	}
}

func TestService_RevokeKey(t *testing.T) {
	store := memory.New()
	player := seedUser(t, store, "player", "0.00")
	app := seedApplication(t, store, "skyforge", "15.00")
	other := seedApplication(t, store, "otherapp", "5.00")

	svc := New(store, newCatalog(store), nil)
	keys, err := svc.CreateCreatorKeys(context.Background(), app.ID, 2)
	if err != nil {
		t.Fatalf("create creator keys: %v", err)
	}

	// A key cannot be revoked through another application.
	if err := svc.RevokeKey(context.Background(), other.ID, keys[0].ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for wrong application, got %v", err)
	}

	if err := svc.RevokeKey(context.Background(), app.ID, keys[0].ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := svc.RedeemKey(context.Background(), player.ID, keys[0].Key); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("revoked key must not redeem, got %v", err)
	}

	if _, err := svc.RedeemKey(context.Background(), player.ID, keys[1].Key); err != nil {
		t.Fatalf("redeem surviving key: %v", err)
	}
	if err := svc.RevokeKey(context.Background(), app.ID, keys[1].ID); !errors.Is(err, ErrKeyRedeemed) {
		t.Fatalf("redeemed key must not revoke, got %v", err)
	}
}
