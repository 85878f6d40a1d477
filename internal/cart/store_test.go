package cart_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hittygas/storefront/internal/cart"
	apperrors "github.com/hittygas/storefront/internal/errors"
	"github.com/hittygas/storefront/internal/events"
	"github.com/hittygas/storefront/internal/models"
	"github.com/hittygas/storefront/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// brokenStore fails every read, to exercise the empty-cart fallback.
type brokenStore struct{}

func (brokenStore) Get(context.Context, string, any) (bool, error) {
	return false, errors.New("storage unavailable")
}
func (brokenStore) Set(context.Context, string, any) error { return nil }
func (brokenStore) Delete(context.Context, string) error   { return nil }
func (brokenStore) Close() error                           { return nil }

func newTestStore(t *testing.T) (*cart.Store, storage.Store) {
	t.Helper()

	kv, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)

	return cart.NewStore(t.Context(), kv, events.NewHub(), nil), kv
}

func cylinder(id string, price float64) *models.Product {
	return &models.Product{
		ID:       id,
		Name:     "6kg Gas Cylinder",
		Price:    price,
		Category: "refill",
		InStock:  true,
	}
}

func TestAddItem(t *testing.T) {
	ctx := t.Context()

	t.Run("Success - New Line", func(t *testing.T) {
		// Arrange
		store, _ := newTestStore(t)

		// Act
		line, err := store.AddItem(ctx, cylinder("p1", 1200), 1)

		// Assert
		require.NoError(t, err)
		assert.NotEmpty(t, line.ID)
		assert.NotEqual(t, "p1", line.ID, "line id must be distinct from the product id")
		assert.Equal(t, 1, store.ItemCount())
		assert.Equal(t, 1200.0, store.Subtotal())
	})

	t.Run("Success - Merges Same Product", func(t *testing.T) {
		// Arrange
		store, _ := newTestStore(t)

		first, err := store.AddItem(ctx, cylinder("p1", 1200), 1)
		require.NoError(t, err)

		// Act
		second, err := store.AddItem(ctx, cylinder("p1", 1200), 2)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID, "merge must reuse the existing line")
		assert.Len(t, store.Items(), 1)
		assert.Equal(t, 3, store.ItemCount())
		assert.Equal(t, 3600.0, store.Subtotal())
	})

	t.Run("Success - Merge Uses Current Price", func(t *testing.T) {
		// Arrange
		store, _ := newTestStore(t)

		_, err := store.AddItem(ctx, cylinder("p1", 1000), 1)
		require.NoError(t, err)

		// Act: the server changed the price between adds
		line, err := store.AddItem(ctx, cylinder("p1", 1500), 1)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, 1500.0, line.UnitPrice)
		assert.Equal(t, 3000.0, line.Subtotal, "subtotal = 2 × latest unit price")
	})

	t.Run("Failure - Non-Positive Quantity", func(t *testing.T) {
		// Arrange
		store, _ := newTestStore(t)

		// Act
		_, err := store.AddItem(ctx, cylinder("p1", 1200), 0)

		// Assert
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
		assert.Empty(t, store.Items())
	})

	t.Run("Success - Publishes Event", func(t *testing.T) {
		// Arrange
		kv, err := storage.NewFileStore(t.TempDir())
		require.NoError(t, err)

		hub := events.NewHub()
		store := cart.NewStore(ctx, kv, hub, nil)

		var got []events.CartItemAdded

		hub.Subscribe(func(event any) {
			if added, ok := event.(events.CartItemAdded); ok {
				got = append(got, added)
			}
		})

		// Act
		_, err = store.AddItem(ctx, cylinder("p1", 1200), 1)
		require.NoError(t, err)
		_, err = store.AddItem(ctx, cylinder("p1", 1200), 2)
		require.NoError(t, err)

		// Assert
		require.Len(t, got, 2)
		assert.False(t, got[0].Merged)
		assert.True(t, got[1].Merged)
		assert.Equal(t, 2, got[1].Quantity)
	})
}

func TestUpdateQuantity(t *testing.T) {
	ctx := t.Context()

	t.Run("Success - Recomputes From Stored Price", func(t *testing.T) {
		// Arrange
		store, _ := newTestStore(t)
		line, err := store.AddItem(ctx, cylinder("p1", 1200), 1)
		require.NoError(t, err)

		// Act
		err = store.UpdateQuantity(ctx, line.ID, 5)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, 5, store.ItemCount())
		assert.Equal(t, 6000.0, store.Subtotal())
	})

	t.Run("Success - Zero Removes Line", func(t *testing.T) {
		// Arrange
		store, _ := newTestStore(t)
		line, err := store.AddItem(ctx, cylinder("p1", 1200), 2)
		require.NoError(t, err)

		// Act
		err = store.UpdateQuantity(ctx, line.ID, 0)

		// Assert
		require.NoError(t, err)
		assert.Empty(t, store.Items())
		assert.Equal(t, 0.0, store.Subtotal())
	})

	t.Run("Success - Negative Removes Line", func(t *testing.T) {
		// Arrange
		store, _ := newTestStore(t)
		line, err := store.AddItem(ctx, cylinder("p1", 1200), 2)
		require.NoError(t, err)

		// Act
		err = store.UpdateQuantity(ctx, line.ID, -1)

		// Assert
		require.NoError(t, err)
		assert.Empty(t, store.Items())
	})

	t.Run("Failure - Unknown Line", func(t *testing.T) {
		// Arrange
		store, _ := newTestStore(t)

		// Act
		err := store.UpdateQuantity(ctx, "nope", 3)

		// Assert
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
	})
}

func TestRemoveItem(t *testing.T) {
	ctx := t.Context()

	// Arrange
	store, _ := newTestStore(t)
	line, err := store.AddItem(ctx, cylinder("p1", 1200), 1)
	require.NoError(t, err)
	_, err = store.AddItem(ctx, cylinder("p2", 800), 1)
	require.NoError(t, err)

	// Act
	store.RemoveItem(ctx, line.ID)

	// Assert
	assert.Len(t, store.Items(), 1)
	assert.Equal(t, 800.0, store.Subtotal())

	// Removing again is harmless
	store.RemoveItem(ctx, line.ID)
	assert.Len(t, store.Items(), 1)
}

func TestClear(t *testing.T) {
	ctx := t.Context()

	// Arrange
	store, _ := newTestStore(t)
	_, err := store.AddItem(ctx, cylinder("p1", 1200), 3)
	require.NoError(t, err)

	require.NoError(t, store.SetPaymentMethod(ctx, models.PaymentMethodMobileMoney))
	store.SetPaymentDetails(ctx, models.PaymentDetails{
		MobileMoneyPhone:         "0771234567",
		MobileMoneyTransactionID: "MM-1",
	})

	// Act
	store.Clear(ctx)

	// Assert
	assert.Empty(t, store.Items())
	assert.Equal(t, 0.0, store.Subtotal())
	assert.Equal(t, models.PaymentMethodCash, store.PaymentMethod())

	details := store.PaymentDetails()
	assert.Empty(t, details.MobileMoneyPhone)
	assert.Empty(t, details.MobileMoneyTransactionID)
	assert.Empty(t, details.CreditReason)
	assert.WithinDuration(t, time.Now().Add(models.DefaultCreditTerm), details.ExpectedPaymentDate, time.Minute)
}

func TestPersistenceRoundTrip(t *testing.T) {
	ctx := t.Context()

	// Arrange
	kv, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)

	original := cart.NewStore(ctx, kv, nil, nil)
	_, err = original.AddItem(ctx, cylinder("p1", 1200), 2)
	require.NoError(t, err)
	_, err = original.AddItem(ctx, cylinder("p2", 800), 1)
	require.NoError(t, err)
	require.NoError(t, original.SetPaymentMethod(ctx, models.PaymentMethodAccount))
	original.SetPaymentDetails(ctx, models.PaymentDetails{
		CreditReason:        "salary end of month",
		ExpectedPaymentDate: time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC),
	})

	// Act: a fresh store over the same backing storage
	rehydrated := cart.NewStore(ctx, kv, nil, nil)

	// Assert
	assert.Equal(t, original.Snapshot(), rehydrated.Snapshot())
	assert.Equal(t, 3, rehydrated.ItemCount())
	assert.Equal(t, 3200.0, rehydrated.Subtotal())
}

func TestHydrateFallback(t *testing.T) {
	// Arrange / Act
	store := cart.NewStore(t.Context(), brokenStore{}, nil, nil)

	// Assert: read failure falls back to an empty cart, not a broken store
	assert.Empty(t, store.Items())
	assert.Equal(t, models.PaymentMethodCash, store.PaymentMethod())
}

func TestSetPaymentMethod(t *testing.T) {
	ctx := t.Context()

	t.Run("Failure - Unknown Method", func(t *testing.T) {
		// Arrange
		store, _ := newTestStore(t)

		// Act
		err := store.SetPaymentMethod(ctx, models.PaymentMethod("barter"))

		// Assert
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
		assert.Equal(t, models.PaymentMethodCash, store.PaymentMethod())
	})
}
