package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/frogworks/storefront/internal/app/domain/money"
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

func date(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := time.Parse(time.DateOnly, value)
	if err != nil {
		t.Fatalf("parse date %q: %v", value, err)
	}
	return d
}

func TestService_ApplicationLifecycle(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)

	app, err := svc.CreateApplication(context.Background(), CreateApplicationParams{
		Name:               "Skyforge",
		PackageName:        "com.example.skyforge",
		ReleaseDate:        date(t, "2024-03-01"),
		SupportedPlatforms: []string{"windows", "linux"},
		Genres:             []string{"rpg"},
		BasePrice:          mustAmount(t, "19.99"),
		Owners:             []string{"dev-1"},
	})
	if err != nil {
		t.Fatalf("create application: %v", err)
	}
	if app.Type != "game" {
		t.Fatalf("expected default type game, got %q", app.Type)
	}

	if _, err := svc.CreateApplication(context.Background(), CreateApplicationParams{
		Name:        "Clone",
		PackageName: "com.example.skyforge",
		ReleaseDate: date(t, "2024-03-01"),
		Owners:      []string{"dev-1"},
	}); !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("expected duplicate package error, got %v", err)
	}

	byPackage, err := svc.GetApplicationByPackage(context.Background(), "com.example.skyforge")
	if err != nil {
		t.Fatalf("get by package: %v", err)
	}
	if byPackage.ID != app.ID {
		t.Fatalf("package lookup returned wrong application")
	}

	v, err := svc.AddVersion(context.Background(), app.ID, "1.0.0", "windows", "skyforge-1.0.0.zip", "skyforge.exe", date(t, "2024-03-01"))
	if err != nil {
		t.Fatalf("add version: %v", err)
	}
	if _, err := svc.AddVersion(context.Background(), app.ID, "1.0.0", "windows", "again.zip", "", date(t, "2024-03-02")); err == nil {
		t.Fatalf("expected duplicate version error")
	}
	// Same version name on another platform is a separate build.
	if _, err := svc.AddVersion(context.Background(), app.ID, "1.0.0", "linux", "skyforge-1.0.0.tar.gz", "skyforge", date(t, "2024-03-01")); err != nil {
		t.Fatalf("add linux version: %v", err)
	}

	updated, err := svc.SetLatestVersion(context.Background(), app.ID, v.Name)
	if err != nil {
		t.Fatalf("set latest: %v", err)
	}
	if updated.LatestVersion != "1.0.0" {
		t.Fatalf("latest version not recorded: %q", updated.LatestVersion)
	}

	windowsOnly, err := svc.Versions(context.Background(), app.ID, "windows")
	if err != nil {
		t.Fatalf("list versions: %v", err)
	}
	if len(windowsOnly) != 1 {
		t.Fatalf("expected 1 windows version, got %d", len(windowsOnly))
	}
	all, _ := svc.Versions(context.Background(), app.ID, "")
	if len(all) != 2 {
		t.Fatalf("expected 2 versions total, got %d", len(all))
	}
}

func TestService_SalePricing(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)

	app, err := svc.CreateApplication(context.Background(), CreateApplicationParams{
		Name:        "Skyforge",
		PackageName: "com.example.skyforge",
		ReleaseDate: date(t, "2024-03-01"),
		BasePrice:   mustAmount(t, "19.99"),
		Owners:      []string{"dev-1"},
	})
	if err != nil {
		t.Fatalf("create application: %v", err)
	}

	sale, err := svc.CreateSale(context.Background(), app.ID, "summer", "midyear discount",
		mustAmount(t, "9.99"), date(t, "2024-06-01"), date(t, "2024-06-30"))
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}

	// Sales for one application may not overlap in time.
	if _, err := svc.CreateSale(context.Background(), app.ID, "clash", "",
		mustAmount(t, "4.99"), date(t, "2024-06-15"), date(t, "2024-07-15")); !errors.Is(err, ErrSaleOverlap) {
		t.Fatalf("expected ErrSaleOverlap, got %v", err)
	}
	// Back to back is fine.
	if _, err := svc.CreateSale(context.Background(), app.ID, "july", "",
		mustAmount(t, "14.99"), date(t, "2024-07-01"), date(t, "2024-07-15")); err != nil {
		t.Fatalf("adjacent sale rejected: %v", err)
	}

	price, err := svc.EffectivePrice(context.Background(), app.ID, date(t, "2024-06-15"))
	if err != nil {
		t.Fatalf("effective price: %v", err)
	}
	if money.Format(price) != "9.99" {
		t.Fatalf("expected sale price 9.99, got %s", money.Format(price))
	}

	// Both endpoint days are covered.
	for _, day := range []string{"2024-06-01", "2024-06-30"} {
		price, _ := svc.EffectivePrice(context.Background(), app.ID, date(t, day))
		if money.Format(price) != "9.99" {
			t.Fatalf("day %s should be on sale, got %s", day, money.Format(price))
		}
	}

	price, _ = svc.EffectivePrice(context.Background(), app.ID, date(t, "2024-05-31"))
	if money.Format(price) != "19.99" {
		t.Fatalf("expected base price before the sale, got %s", money.Format(price))
	}

	active, ok, err := svc.ActiveSale(context.Background(), app.ID, date(t, "2024-06-10"))
	if err != nil {
		t.Fatalf("active sale: %v", err)
	}
	if !ok || active.ID != sale.ID {
		t.Fatalf("expected the summer sale active, got ok=%v id=%s", ok, active.ID)
	}

	if err := svc.DeleteSale(context.Background(), sale.ID); err != nil {
		t.Fatalf("delete sale: %v", err)
	}
	price, _ = svc.EffectivePrice(context.Background(), app.ID, date(t, "2024-06-15"))
	if money.Format(price) != "19.99" {
		t.Fatalf("expected base price after deleting the sale, got %s", money.Format(price))
	}
}

func TestService_SaleDateValidation(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)

	app, _ := svc.CreateApplication(context.Background(), CreateApplicationParams{
		Name:        "Skyforge",
		PackageName: "com.example.skyforge",
		ReleaseDate: date(t, "2024-03-01"),
		BasePrice:   mustAmount(t, "19.99"),
		Owners:      []string{"dev-1"},
	})

	if _, err := svc.CreateSale(context.Background(), app.ID, "backwards", "",
		mustAmount(t, "9.99"), date(t, "2024-06-30"), date(t, "2024-06-01")); err == nil {
		t.Fatalf("expected end-before-start rejection")
	}

	// A single-day sale is valid.
	if _, err := svc.CreateSale(context.Background(), app.ID, "flash", "",
		mustAmount(t, "9.99"), date(t, "2024-08-01"), date(t, "2024-08-01")); err != nil {
		t.Fatalf("single-day sale rejected: %v", err)
	}
}

func TestService_IAPs(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)

	app, _ := svc.CreateApplication(context.Background(), CreateApplicationParams{
		Name:        "Skyforge",
		PackageName: "com.example.skyforge",
		ReleaseDate: date(t, "2024-03-01"),
		BasePrice:   mustAmount(t, "19.99"),
		Owners:      []string{"dev-1"},
	})

	iap, err := svc.CreateIAP(context.Background(), app.ID, "gems", "a pile of gems",
		mustAmount(t, "4.99"), map[string]any{"gems": 100})
	if err != nil {
		t.Fatalf("create iap: %v", err)
	}
	if iap.Data["gems"] != 100 {
		t.Fatalf("iap payload not stored: %#v", iap.Data)
	}

	list, err := svc.ListIAPs(context.Background(), app.ID)
	if err != nil {
		t.Fatalf("list iaps: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 iap, got %d", len(list))
	}
}
