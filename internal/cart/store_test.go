package cart

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAddSameVariantMergesQuantity(t *testing.T) {
	store := NewStore()
	cartID := store.Create()

	item := Item{Slug: "silk-22", Shade: "jet-black", Length: "22", Price: price("45")}
	if _, err := store.AddItem(cartID, item); err != nil {
		t.Fatalf("add: %v", err)
	}
	snap, err := store.AddItem(cartID, item)
	if err != nil {
		t.Fatalf("add again: %v", err)
	}

	if len(snap.Items) != 1 {
		t.Fatalf("expected one merged line, got %d", len(snap.Items))
	}
	if snap.Items[0].Quantity != 2 {
		t.Fatalf("expected quantity 2, got %d", snap.Items[0].Quantity)
	}
	if !snap.Total.Equal(price("90")) {
		t.Fatalf("expected total 90, got %s", snap.Total)
	}
}

func TestAddExistingEntryWinsOverIncomingFields(t *testing.T) {
	store := NewStore()
	cartID := store.Create()

	first := Item{Slug: "silk-22", Shade: "jet-black", Length: "22", Price: price("45")}
	if _, err := store.AddItem(cartID, first); err != nil {
		t.Fatalf("add: %v", err)
	}

	// Same identity, different price: the stored entry must win.
	conflicting := Item{Slug: "silk-22", Shade: "jet-black", Length: "22", Price: price("99")}
	snap, err := store.AddItem(cartID, conflicting)
	if err != nil {
		t.Fatalf("add conflicting: %v", err)
	}
	if !snap.Items[0].Price.Equal(price("45")) {
		t.Fatalf("existing price should win, got %s", snap.Items[0].Price)
	}
	if !snap.Total.Equal(price("90")) {
		t.Fatalf("expected total 90, got %s", snap.Total)
	}
}

func TestDerivedTotalsRecomputeOnEveryRead(t *testing.T) {
	store := NewStore()
	cartID := store.Create()

	store.AddItem(cartID, Item{Slug: "silk-18", Price: price("39.99")})
	store.AddItem(cartID, Item{Slug: "silk-22", Price: price("45")})
	if _, err := store.UpdateQuantity(cartID, LineKey("silk-18", "", "", ""), 3); err != nil {
		t.Fatalf("update: %v", err)
	}

	snap, err := store.Get(cartID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if snap.ItemCount != 4 {
		t.Fatalf("expected item count 4, got %d", snap.ItemCount)
	}
	want := price("39.99").Mul(decimal.NewFromInt(3)).Add(price("45"))
	if !snap.Total.Equal(want) {
		t.Fatalf("expected total %s, got %s", want, snap.Total)
	}
}

func TestUpdateQuantityZeroRemovesLine(t *testing.T) {
	store := NewStore()
	cartID := store.Create()

	store.AddItem(cartID, Item{Slug: "silk-22", Price: price("45")})
	snap, err := store.UpdateQuantity(cartID, LineKey("silk-22", "", "", ""), 0)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(snap.Items) != 0 {
		t.Fatalf("expected empty cart after zero quantity, got %d lines", len(snap.Items))
	}

	// Negative quantity behaves identically.
	store.AddItem(cartID, Item{Slug: "silk-22", Price: price("45")})
	snap, err = store.UpdateQuantity(cartID, LineKey("silk-22", "", "", ""), -2)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if snap.ItemCount != 0 {
		t.Fatalf("expected empty cart, got count %d", snap.ItemCount)
	}
}

func TestRemoveAbsentLineIsNoop(t *testing.T) {
	store := NewStore()
	cartID := store.Create()
	store.AddItem(cartID, Item{Slug: "silk-22", Price: price("45")})

	snap, err := store.RemoveItem(cartID, "missing")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(snap.Items) != 1 {
		t.Fatalf("expected untouched cart, got %d lines", len(snap.Items))
	}
}

func TestClearIsIdempotent(t *testing.T) {
	store := NewStore()
	cartID := store.Create()
	store.AddItem(cartID, Item{Slug: "silk-22", Price: price("45")})

	store.Clear(cartID)
	store.Clear(cartID)

	snap, err := store.Get(cartID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if snap.ItemCount != 0 || !snap.Total.Equal(decimal.Zero) {
		t.Fatalf("expected empty cart, got count=%d total=%s", snap.ItemCount, snap.Total)
	}
}

func TestExplicitIDTakesPrecedence(t *testing.T) {
	store := NewStore()
	cartID := store.Create()

	store.AddItem(cartID, Item{ID: "legacy-1", Slug: "silk-22", Price: price("45")})
	snap, _ := store.AddItem(cartID, Item{ID: "legacy-2", Slug: "silk-22", Price: price("45")})
	if len(snap.Items) != 2 {
		t.Fatalf("distinct explicit IDs must not merge, got %d lines", len(snap.Items))
	}
}

func TestPruneExpiredDropsStaleCarts(t *testing.T) {
	store := NewStore()
	stale := store.Create()
	store.carts[stale].touched = time.Now().Add(-48 * time.Hour)
	fresh := store.Create()

	if pruned := store.PruneExpired(24 * time.Hour); pruned != 1 {
		t.Fatalf("expected one pruned cart, got %d", pruned)
	}
	if _, err := store.Get(stale); err == nil {
		t.Fatalf("stale cart should be gone")
	}
	if _, err := store.Get(fresh); err != nil {
		t.Fatalf("fresh cart should survive: %v", err)
	}
}
