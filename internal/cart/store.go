package cart

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/avalogan/silkstrands-backend/pkg/errors"
)

// Store holds every live cart in memory. Carts are deliberately not
// persisted: a process restart loses them, matching the storefront's
// browser-held cart semantics. Testers should treat that as a design
// choice, not a defect.
type Store struct {
	mu    sync.RWMutex
	carts map[uuid.UUID]*cartState
}

type cartState struct {
	items   []Item
	touched time.Time
}

// Snapshot is a point-in-time read of a cart with its derived totals. The
// totals are recomputed on every read, never cached.
type Snapshot struct {
	CartID    uuid.UUID       `json:"cart_id"`
	Items     []Item          `json:"items"`
	ItemCount int             `json:"item_count"`
	Total     decimal.Decimal `json:"total"`
}

// NewStore builds an empty cart store.
func NewStore() *Store {
	return &Store{carts: map[uuid.UUID]*cartState{}}
}

// Create allocates a new empty cart and returns its ID.
func (s *Store) Create() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.carts[id] = &cartState{touched: time.Now()}
	return id
}

// AddItem appends the item or, when a line with the same identity already
// exists, increments that line's quantity by one. The existing entry wins
// over any differing fields on the incoming item.
func (s *Store) AddItem(cartID uuid.UUID, item Item) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.cart(cartID)
	if err != nil {
		return Snapshot{}, err
	}

	key := item.key()
	if key == "" || key == LineKey("", "", "", "") {
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "cart item needs an id or a slug")
	}
	if item.Quantity < 1 {
		item.Quantity = 1
	}

	for idx := range state.items {
		if state.items[idx].key() == key {
			state.items[idx].Quantity++
			state.touched = time.Now()
			return s.snapshotLocked(cartID, state), nil
		}
	}

	item.ID = key
	item.Quantity = 1
	state.items = append(state.items, item)
	state.touched = time.Now()
	return s.snapshotLocked(cartID, state), nil
}

// RemoveItem deletes the matching line; removing an absent line is a no-op.
func (s *Store) RemoveItem(cartID uuid.UUID, itemID string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.cart(cartID)
	if err != nil {
		return Snapshot{}, err
	}

	for idx := range state.items {
		if state.items[idx].ID == itemID {
			state.items = append(state.items[:idx], state.items[idx+1:]...)
			break
		}
	}
	state.touched = time.Now()
	return s.snapshotLocked(cartID, state), nil
}

// UpdateQuantity sets the line's quantity; a quantity of zero or less is
// equivalent to removing the line.
func (s *Store) UpdateQuantity(cartID uuid.UUID, itemID string, quantity int) (Snapshot, error) {
	if quantity <= 0 {
		return s.RemoveItem(cartID, itemID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.cart(cartID)
	if err != nil {
		return Snapshot{}, err
	}

	for idx := range state.items {
		if state.items[idx].ID == itemID {
			state.items[idx].Quantity = quantity
			break
		}
	}
	state.touched = time.Now()
	return s.snapshotLocked(cartID, state), nil
}

// Clear empties the cart. Clearing is idempotent and tolerates carts that
// no longer exist, so the post-payment dispatcher can always call it.
func (s *Store) Clear(cartID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.carts[cartID]
	if !ok {
		return
	}
	state.items = nil
	state.touched = time.Now()
}

// Get returns the current snapshot of the cart.
func (s *Store) Get(cartID uuid.UUID) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, err := s.cart(cartID)
	if err != nil {
		return Snapshot{}, err
	}
	return s.snapshotLocked(cartID, state), nil
}

// PruneExpired drops carts untouched for longer than maxAge and reports how
// many were removed.
func (s *Store) PruneExpired(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	pruned := 0
	for id, state := range s.carts {
		if state.touched.Before(cutoff) {
			delete(s.carts, id)
			pruned++
		}
	}
	return pruned
}

func (s *Store) cart(cartID uuid.UUID) (*cartState, error) {
	state, ok := s.carts[cartID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
	}
	return state, nil
}

func (s *Store) snapshotLocked(cartID uuid.UUID, state *cartState) Snapshot {
	items := make([]Item, len(state.items))
	copy(items, state.items)

	count := 0
	total := decimal.Zero
	for _, item := range items {
		count += item.Quantity
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	return Snapshot{
		CartID:    cartID,
		Items:     items,
		ItemCount: count,
		Total:     total,
	}
}
