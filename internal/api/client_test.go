package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/hittygas/storefront/internal/api"
	apperrors "github.com/hittygas/storefront/internal/errors"
	"github.com/hittygas/storefront/internal/models"
	"github.com/hittygas/storefront/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "tok-123"

type backendFixture struct {
	server     *httptest.Server
	csrfPrimes atomic.Int64
}

func writeEnvelope(w http.ResponseWriter, statusCode int, success bool, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": success,
		"data":    data,
		"message": message,
	})
}

// newBackend stands up a storefront backend double covering the endpoints
// the tests touch.
func newBackend(t *testing.T) *backendFixture {
	t.Helper()

	f := &backendFixture{}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /sanctum/csrf-cookie", func(w http.ResponseWriter, r *http.Request) {
		f.csrfPrimes.Add(1)
		http.SetCookie(w, &http.Cookie{Name: "XSRF-TOKEN", Value: "xsrf-abc", Path: "/"})
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("POST /customers/login", func(w http.ResponseWriter, r *http.Request) {

		var req models.LoginRequest

		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		if req.Password != "correct-horse" {
			writeEnvelope(w, http.StatusUnprocessableEntity, false, nil, "Invalid credentials")

			return
		}

		writeEnvelope(w, http.StatusOK, true, models.AuthSession{
			Token:    testToken,
			Customer: models.Customer{ID: "c1", Name: "Asha", Email: req.Email, Address: "Plot 12, Ntinda"},
		}, "")
	})

	mux.HandleFunc("POST /customers/logout", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, true, nil, "")
	})

	mux.HandleFunc("GET /customers/profile", func(w http.ResponseWriter, r *http.Request) {

		if r.Header.Get("Authorization") != "Bearer "+testToken {
			writeEnvelope(w, http.StatusUnauthorized, false, nil, "Unauthenticated.")

			return
		}

		writeEnvelope(w, http.StatusOK, true, models.Customer{ID: "c1", Name: "Asha", Address: "Plot 12, Ntinda"}, "")
	})

	mux.HandleFunc("GET /products", func(w http.ResponseWriter, r *http.Request) {

		assert.Equal(t, "2", r.URL.Query().Get("page"))

		writeEnvelope(w, http.StatusOK, true, models.ProductList{
			Products: []models.Product{{ID: "p1", Name: "6kg Gas Cylinder", Price: 1200}},
			Total:    1,
			Page:     2,
		}, "")
	})

	mux.HandleFunc("POST /checkout", func(w http.ResponseWriter, r *http.Request) {

		if r.Header.Get("Authorization") != "Bearer "+testToken {
			writeEnvelope(w, http.StatusUnauthorized, false, nil, "Unauthenticated.")

			return
		}

		var req models.CheckoutRequest

		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.NotEmpty(t, req.Items)

		writeEnvelope(w, http.StatusOK, true, models.CheckoutResponse{
			OrderID:           "o-1",
			OrderNumber:       "HG-1001",
			TransactionNumber: "T1",
			Status:            models.OrderStatusCompleted,
			PointsEarned:      10,
		}, "")
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)

	return f
}

func newClient(t *testing.T, baseURL string) (*api.Client, storage.Store) {
	t.Helper()

	kv, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)

	client, err := api.NewClient(api.Options{
		BaseURL: baseURL,
		Store:   kv,
	})
	require.NoError(t, err)

	return client, kv
}

func TestLogin(t *testing.T) {
	ctx := t.Context()

	t.Run("Success - Primes CSRF And Persists Session", func(t *testing.T) {
		// Arrange
		backend := newBackend(t)
		client, kv := newClient(t, backend.server.URL)

		// Act
		session, err := client.Login(ctx, &models.LoginRequest{Email: "a@example.com", Password: "correct-horse"})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, testToken, session.Token)
		assert.Equal(t, "Asha", session.Customer.Name)
		assert.Equal(t, int64(1), backend.csrfPrimes.Load(), "login must prime the CSRF cookie first")

		var persisted models.AuthSession
		found, err := kv.Get(ctx, storage.KeyAuthSession, &persisted)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, testToken, persisted.Token)
	})

	t.Run("Success - CSRF Priming Failure Is Tolerated", func(t *testing.T) {
		// Arrange: the CSRF handshake host is already gone
		backend := newBackend(t)

		csrfHost := httptest.NewServer(http.NotFoundHandler())
		csrfHost.Close()

		kv, err := storage.NewFileStore(t.TempDir())
		require.NoError(t, err)

		client, err := api.NewClient(api.Options{
			BaseURL:     backend.server.URL,
			CSRFBaseURL: csrfHost.URL,
			Store:       kv,
		})
		require.NoError(t, err)

		// Act
		session, err := client.Login(ctx, &models.LoginRequest{Email: "a@example.com", Password: "correct-horse"})

		// Assert: login proceeds and the session still lands in storage
		require.NoError(t, err)
		assert.Equal(t, testToken, session.Token)
		assert.Zero(t, backend.csrfPrimes.Load())

		var persisted models.AuthSession
		found, err := kv.Get(ctx, storage.KeyAuthSession, &persisted)
		require.NoError(t, err)
		assert.True(t, found)
	})

	t.Run("Failure - Server Message Verbatim", func(t *testing.T) {
		// Arrange
		backend := newBackend(t)
		client, _ := newClient(t, backend.server.URL)

		// Act
		session, err := client.Login(ctx, &models.LoginRequest{Email: "a@example.com", Password: "wrong"})

		// Assert
		require.Error(t, err)
		assert.Nil(t, session)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeServer))
		assert.Equal(t, "Invalid credentials", err.Error())
	})
}

func TestBearerInjection(t *testing.T) {
	ctx := t.Context()

	t.Run("Success - Token From Storage", func(t *testing.T) {
		// Arrange
		backend := newBackend(t)
		client, kv := newClient(t, backend.server.URL)

		require.NoError(t, kv.Set(ctx, storage.KeyAuthSession, &models.AuthSession{Token: testToken}))

		// Act
		profile, err := client.GetProfile(ctx)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "Plot 12, Ntinda", profile.Address)
	})

	t.Run("Failure - Missing Token Maps To Unauthenticated", func(t *testing.T) {
		// Arrange
		backend := newBackend(t)
		client, _ := newClient(t, backend.server.URL)

		// Act
		profile, err := client.GetProfile(ctx)

		// Assert
		require.Error(t, err)
		assert.Nil(t, profile)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeUnauthenticated))
		assert.Equal(t, "Please log in to continue", err.Error(), "raw server string must not leak through")
	})
}

func TestNetworkFailure(t *testing.T) {
	// Arrange: a server that is already gone
	backend := httptest.NewServer(http.NotFoundHandler())
	backend.Close()

	client, _ := newClient(t, backend.URL)

	// Act
	_, err := client.ListCategories(t.Context())

	// Assert
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNetwork))
	assert.Contains(t, err.Error(), "Check your connection")
}

func TestListProducts(t *testing.T) {
	// Arrange
	backend := newBackend(t)
	client, _ := newClient(t, backend.server.URL)

	// Act
	list, err := client.ListProducts(t.Context(), &models.ProductListRequest{Page: 2, Size: 0})

	// Assert
	require.NoError(t, err)
	require.Len(t, list.Products, 1)
	assert.Equal(t, "6kg Gas Cylinder", list.Products[0].Name)
	assert.Equal(t, 2, list.Page)
}

func TestSubmitCheckout(t *testing.T) {
	ctx := t.Context()

	// Arrange
	backend := newBackend(t)
	client, kv := newClient(t, backend.server.URL)
	require.NoError(t, kv.Set(ctx, storage.KeyAuthSession, &models.AuthSession{Token: testToken}))

	// Act
	resp, err := client.SubmitCheckout(ctx, &models.CheckoutRequest{
		Items:         []models.CheckoutItem{{ProductID: "p1", Quantity: 2}},
		PaymentMethod: models.PaymentMethodCash,
		DeliveryNotes: "Plot 12, Ntinda",
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "T1", resp.TransactionNumber)
	assert.Equal(t, models.OrderStatusCompleted, resp.Status)
	assert.Equal(t, 10, resp.PointsEarned)
}

func TestLogout(t *testing.T) {
	ctx := t.Context()

	// Arrange
	backend := newBackend(t)
	client, kv := newClient(t, backend.server.URL)
	require.NoError(t, kv.Set(ctx, storage.KeyAuthSession, &models.AuthSession{Token: testToken}))

	// Act
	err := client.Logout(ctx)

	// Assert
	require.NoError(t, err)

	var persisted models.AuthSession
	found, err := kv.Get(ctx, storage.KeyAuthSession, &persisted)
	require.NoError(t, err)
	assert.False(t, found, "logout must drop the local session")
}

func TestSession(t *testing.T) {
	ctx := t.Context()

	t.Run("No Token", func(t *testing.T) {
		// Arrange
		backend := newBackend(t)
		client, _ := newClient(t, backend.server.URL)

		// Act / Assert
		assert.False(t, client.Session(ctx).Authenticated)
	})

	t.Run("Opaque Token Assumed Live", func(t *testing.T) {
		// Arrange
		backend := newBackend(t)
		client, kv := newClient(t, backend.server.URL)
		require.NoError(t, kv.Set(ctx, storage.KeyAuthSession, &models.AuthSession{
			Token:    "1|plain-sanctum-token",
			Customer: models.Customer{Name: "Asha"},
		}))

		// Act
		session := client.Session(ctx)

		// Assert
		assert.True(t, session.Authenticated)
		assert.False(t, session.Expired)
		assert.Equal(t, "Asha", session.Customer.Name)
	})

	t.Run("Expired JWT Flagged", func(t *testing.T) {
		// Arrange: unsigned JWT with exp in the past
		// header {"alg":"none"} . claims {"exp": 1000000000}
		expired := "eyJhbGciOiJub25lIn0.eyJleHAiOjEwMDAwMDAwMDB9."

		backend := newBackend(t)
		client, kv := newClient(t, backend.server.URL)
		require.NoError(t, kv.Set(ctx, storage.KeyAuthSession, &models.AuthSession{Token: expired}))

		// Act
		session := client.Session(ctx)

		// Assert
		assert.True(t, session.Authenticated)
		assert.True(t, session.Expired)
	})
}
