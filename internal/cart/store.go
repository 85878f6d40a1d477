// Package cart is the single source of truth for the shopping cart. State is
// persisted through the storage port on every mutation so it survives
// restarts, mirroring how the web client keeps the cart in localStorage.
package cart

import (
	"context"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/hittygas/storefront/internal/errors"
	"github.com/hittygas/storefront/internal/events"
	"github.com/hittygas/storefront/internal/models"
	"github.com/hittygas/storefront/internal/storage"
)

type Store struct {
	mu     sync.Mutex
	state  models.CartState
	store  storage.Store
	hub    *events.Hub
	logger *slog.Logger
	now    func() time.Time
}

// NewStore hydrates the cart from storage. A read failure is logged and the
// store starts from an empty cart rather than failing to initialize.
func NewStore(ctx context.Context, kv storage.Store, hub *events.Hub, logger *slog.Logger) *Store {

	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		store:  kv,
		hub:    hub,
		logger: logger,
		now:    time.Now,
	}

	s.state = models.DefaultCartState(s.now())

	var persisted models.CartState

	found, err := kv.Get(ctx, storage.KeyCart, &persisted)
	if err != nil {
		logger.Error("Failed to hydrate cart from storage, starting empty", slog.String("error", err.Error()))

		return s
	}

	if found {

		if persisted.Items == nil {
			persisted.Items = []models.CartLineItem{}
		}

		if persisted.PaymentMethod == "" {
			persisted.PaymentMethod = models.PaymentMethodCash
		}

		s.state = persisted
	}

	return s
}

// persist must be called with the mutex held.
func (s *Store) persist(ctx context.Context) {
	if err := s.store.Set(ctx, storage.KeyCart, &s.state); err != nil {
		s.logger.Error("Failed to persist cart", slog.String("error", err.Error()))
	}
}

// AddItem merges into an existing line for the same product, summing the
// quantity and re-snapshotting the unit price from the product passed now, so
// a server-side price change is picked up by later additions. A new product
// gets a fresh line with a client-generated id.
func (s *Store) AddItem(ctx context.Context, product *models.Product, quantity int) (models.CartLineItem, error) {

	if quantity < 1 {
		return models.CartLineItem{}, apperrors.ValidationError("Quantity must be at least 1")
	}

	s.mu.Lock()

	merged := false

	var line models.CartLineItem

	for i := range s.state.Items {

		if s.state.Items[i].ProductID == product.ID {

			item := &s.state.Items[i]
			item.Quantity += quantity
			item.UnitPrice = product.Price
			item.Subtotal = item.UnitPrice * float64(item.Quantity)

			merged = true
			line = *item

			break
		}
	}

	if !merged {
		line = models.NewCartLineItem(product, quantity)
		s.state.Items = append(s.state.Items, line)
	}

	s.persist(ctx)
	s.mu.Unlock()

	if s.hub != nil {
		s.hub.Publish(events.CartItemAdded{
			LineID:    line.ID,
			ProductID: product.ID,
			Quantity:  quantity,
			Merged:    merged,
		})
	}

	return line, nil
}

// UpdateQuantity sets the line's quantity, recomputing the subtotal from its
// stored unit price. A quantity of zero or less removes the line.
func (s *Store) UpdateQuantity(ctx context.Context, lineID string, quantity int) error {

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.Items {

		if s.state.Items[i].ID != lineID {
			continue
		}

		if quantity <= 0 {
			s.state.Items = append(s.state.Items[:i], s.state.Items[i+1:]...)
		} else {
			item := &s.state.Items[i]
			item.Quantity = quantity
			item.Subtotal = item.UnitPrice * float64(item.Quantity)
		}

		s.persist(ctx)

		return nil
	}

	return apperrors.NotFoundError("Item not found in the cart")
}

func (s *Store) RemoveItem(ctx context.Context, lineID string) {

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.Items {

		if s.state.Items[i].ID == lineID {

			s.state.Items = append(s.state.Items[:i], s.state.Items[i+1:]...)
			s.persist(ctx)

			return
		}
	}
}

// Clear resets the cart to its defaults: no items, cash payment, expected
// payment date pushed out by the standard credit term.
func (s *Store) Clear(ctx context.Context) {

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = models.DefaultCartState(s.now())
	s.persist(ctx)
}

func (s *Store) SetPaymentMethod(ctx context.Context, method models.PaymentMethod) error {

	switch method {
	case models.PaymentMethodCash, models.PaymentMethodMobileMoney, models.PaymentMethodAccount:
	default:
		return apperrors.ValidationError("Unknown payment method")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.PaymentMethod = method
	s.persist(ctx)

	return nil
}

func (s *Store) SetPaymentDetails(ctx context.Context, details models.PaymentDetails) {

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.PaymentDetails = details
	s.persist(ctx)
}

// Items returns a copy; callers cannot mutate store state through it.
func (s *Store) Items() []models.CartLineItem {

	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]models.CartLineItem, len(s.state.Items))
	copy(items, s.state.Items)

	return items
}

// ItemCount is the sum of all line quantities, derived on every call.
func (s *Store) ItemCount() int {

	s.mu.Lock()
	defer s.mu.Unlock()

	var count int

	for _, item := range s.state.Items {
		count += item.Quantity
	}

	return count
}

// Subtotal is the sum of all line subtotals, derived on every call.
func (s *Store) Subtotal() float64 {

	s.mu.Lock()
	defer s.mu.Unlock()

	var total float64

	for _, item := range s.state.Items {
		total += item.Subtotal
	}

	return total
}

func (s *Store) PaymentMethod() models.PaymentMethod {

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state.PaymentMethod
}

func (s *Store) PaymentDetails() models.PaymentDetails {

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state.PaymentDetails
}

// Snapshot returns a deep copy of the whole cart state, used by the checkout
// orchestrator to assemble a request without holding the lock.
func (s *Store) Snapshot() models.CartState {

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state
	snapshot.Items = make([]models.CartLineItem, len(s.state.Items))
	copy(snapshot.Items, s.state.Items)

	return snapshot
}
