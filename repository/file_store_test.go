package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"pricewatch/models"

	"github.com/shopspring/decimal"
)

func newItem(id string) models.TrackedItem {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return models.TrackedItem{
		ID:             id,
		URL:            "https://inkhouse.pl/" + id,
		Email:          "kupujacy@example.pl",
		Title:          "Tusz " + id,
		PriceAtAdd:     decimal.RequireFromString("59.90"),
		LastKnownPrice: decimal.RequireFromString("59.90"),
		Lowest30D:      decimal.RequireFromString("64.90"),
		Currency:       models.Currency,
		Status:         models.VerdictGreen,
		CreatedAt:      now,
		LastChecked:    now,
	}
}

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "tracked.json"))

	items, err := s.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected empty collection, got %d items", len(items))
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracked.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewFileStore(path)

	if _, err := s.LoadAll(context.Background()); !errors.Is(err, models.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}

	// Update treats the corrupt file as empty and replaces it.
	if err := AddItem(context.Background(), s, newItem("a")); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	items, err := s.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll after repair: %v", err)
	}
	if len(items) != 1 || items[0].ID != "a" {
		t.Errorf("unexpected items %+v", items)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "tracked.json"))
	ctx := context.Background()

	want := []models.TrackedItem{newItem("a"), newItem("b")}
	if err := s.SaveAll(ctx, want); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}

	got, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].ID != want[i].ID || !got[i].LastKnownPrice.Equal(want[i].LastKnownPrice) ||
			!got[i].CreatedAt.Equal(want[i].CreatedAt) || got[i].Status != want[i].Status {
			t.Errorf("item %d: got %+v expected %+v", i, got[i], want[i])
		}
	}
}

func TestDeleteItem(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "tracked.json"))
	ctx := context.Background()
	if err := s.SaveAll(ctx, []models.TrackedItem{newItem("a"), newItem("b")}); err != nil {
		t.Fatal(err)
	}

	if err := DeleteItem(ctx, s, "missing"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := DeleteItem(ctx, s, "a"); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}

	items, _ := s.LoadAll(ctx)
	if len(items) != 1 || items[0].ID != "b" {
		t.Errorf("unexpected items %+v", items)
	}
}

func TestFileStoreConcurrentAdds(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "tracked.json"))
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := AddItem(ctx, s, newItem(fmt.Sprintf("item-%d", i))); err != nil {
				t.Errorf("AddItem: %v", err)
			}
		}(i)
	}
	wg.Wait()

	items, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(items) != n {
		t.Errorf("expected %d items, got %d", n, len(items))
	}
}

func TestUpdateErrorLeavesStoreUntouched(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "tracked.json"))
	ctx := context.Background()
	if err := s.SaveAll(ctx, []models.TrackedItem{newItem("a")}); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	err := s.Update(ctx, func([]models.TrackedItem) ([]models.TrackedItem, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	items, _ := s.LoadAll(ctx)
	if len(items) != 1 {
		t.Errorf("expected the original item to survive, got %+v", items)
	}
}

func TestFileStoreUpdateReadErrorKeepsFile(t *testing.T) {
	// A directory at the store path fails to read without being corrupt.
	path := filepath.Join(t.TempDir(), "tracked.json")
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatal(err)
	}
	store := NewFileStore(path)

	called := false
	err := store.Update(context.Background(), func(items []models.TrackedItem) ([]models.TrackedItem, error) {
		called = true
		return append(items, newItem("a")), nil
	})
	if !errors.Is(err, models.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if called {
		t.Error("update func must not run when the store cannot be read")
	}
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		t.Errorf("store path was replaced: %v", err)
	}
}
