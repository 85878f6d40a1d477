// Package checkout turns cart, profile and loyalty-points state into a
// validated order submission and drives the post-submit flow. Both the
// checkout page and the checkout modal of the original client re-derived this
// logic independently; here it lives once.
package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hittygas/storefront/internal/cart"
	apperrors "github.com/hittygas/storefront/internal/errors"
	"github.com/hittygas/storefront/internal/models"
)

const noAddressFallback = "No delivery address provided"

// Backend is the slice of the API client the orchestrator needs.
type Backend interface {
	GetProfile(ctx context.Context) (*models.Customer, error)
	SubmitCheckout(ctx context.Context, req *models.CheckoutRequest) (*models.CheckoutResponse, error)
}

// Redirect receives the identifiers the "my orders" view needs as query
// parameters once the countdown completes (or the user skips it).
type Redirect func(orderID, orderNumber, transactionNumber string)

type Options struct {
	PointsFloor       int
	CountdownSeconds  int
	CountdownInterval time.Duration
	OnTick            func(remaining int)
	Redirect          Redirect
	Logger            *slog.Logger
}

type Orchestrator struct {
	cart       *cart.Store
	backend    Backend
	validate   *validator.Validate
	opts       Options
	submitting atomic.Bool
}

func NewOrchestrator(cartStore *cart.Store, backend Backend, opts Options) *Orchestrator {

	if opts.PointsFloor <= 0 {
		opts.PointsFloor = 100
	}

	if opts.CountdownSeconds <= 0 {
		opts.CountdownSeconds = 4
	}

	if opts.CountdownInterval <= 0 {
		opts.CountdownInterval = time.Second
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Orchestrator{
		cart:     cartStore,
		backend:  backend,
		validate: validator.New(),
		opts:     opts,
	}
}

// Summary recomputes the client-side pricing preview. The server remains the
// source of truth; this only mirrors what the customer will be charged.
func (o *Orchestrator) Summary(usePoints bool, pointsAmount int) models.OrderSummary {

	subtotal := o.cart.Subtotal()

	var discount float64

	if usePoints {
		discount = min(float64(pointsAmount), subtotal)
	}

	return models.OrderSummary{
		Subtotal:    subtotal,
		DeliveryFee: 0,
		Discount:    discount,
		Total:       subtotal - discount,
	}
}

// EnablePoints checks the redemption floor and returns the initial points
// amount: the balance clamped to the subtotal rounded to the nearest whole
// point, never below the floor.
func (o *Orchestrator) EnablePoints(balance int) (int, error) {

	if balance < o.opts.PointsFloor {
		return 0, apperrors.ValidationError(
			fmt.Sprintf("You need at least %d points to redeem", o.opts.PointsFloor))
	}

	amount := min(balance, int(math.Round(o.cart.Subtotal())))
	if amount < o.opts.PointsFloor {
		amount = o.opts.PointsFloor
	}

	return amount, nil
}

type SubmitInput struct {
	Note          string
	UsePoints     bool
	PointsAmount  int
	PointsBalance int
}

type Result struct {
	Response *models.CheckoutResponse
	Message  string
	// Countdown is already running when Submit returns; callers own its
	// lifecycle and must Stop it on teardown.
	Countdown *Countdown
}

// Submit validates preconditions locally, assembles the request, sends it,
// and on success clears the cart and starts the redirect countdown. No
// network call is made when a precondition fails.
func (o *Orchestrator) Submit(ctx context.Context, input SubmitInput) (*Result, error) {

	if !o.submitting.CompareAndSwap(false, true) {
		return nil, apperrors.ConflictError("An order is already being submitted")
	}

	defer o.submitting.Store(false)

	state := o.cart.Snapshot()

	if err := o.checkPreconditions(&state, input); err != nil {
		return nil, err
	}

	req, err := o.assemble(ctx, &state, input)
	if err != nil {
		return nil, err
	}

	resp, err := o.backend.SubmitCheckout(ctx, req)
	if err != nil {

		o.opts.Logger.Warn("Checkout submission failed", slog.String("error", err.Error()))

		return nil, err
	}

	o.cart.Clear(ctx)

	result := &Result{
		Response: resp,
		Message: fmt.Sprintf("Order %s placed (transaction %s). Status: %s. You earned %d Hitty Points!",
			resp.OrderNumber, resp.TransactionNumber, resp.Status, resp.PointsEarned),
	}

	orderID, orderNumber, txNumber := resp.OrderID, resp.OrderNumber, resp.TransactionNumber

	result.Countdown = newCountdown(o.opts.CountdownSeconds, o.opts.CountdownInterval, o.opts.OnTick, func() {
		if o.opts.Redirect != nil {
			o.opts.Redirect(orderID, orderNumber, txNumber)
		}
	})

	o.opts.Logger.Info("Checkout succeeded",
		slog.String("order_number", orderNumber),
		slog.String("status", string(resp.Status)),
		slog.Int("points_earned", resp.PointsEarned))

	return result, nil
}

func (o *Orchestrator) checkPreconditions(state *models.CartState, input SubmitInput) error {

	if len(state.Items) == 0 {
		return apperrors.BadRequestError("Cannot check out with an empty cart")
	}

	switch state.PaymentMethod {
	case models.PaymentMethodMobileMoney:

		if strings.TrimSpace(state.PaymentDetails.MobileMoneyPhone) == "" {
			return apperrors.FieldValidationError("mobile_money_phone", "phone number is required")
		}

		if strings.TrimSpace(state.PaymentDetails.MobileMoneyTransactionID) == "" {
			return apperrors.FieldValidationError("mobile_money_transaction_id", "transaction id is required")
		}

	case models.PaymentMethodAccount:

		if strings.TrimSpace(state.PaymentDetails.CreditReason) == "" {
			return apperrors.FieldValidationError("credit_reason", "reason is required")
		}

		if state.PaymentDetails.ExpectedPaymentDate.IsZero() {
			return apperrors.FieldValidationError("expected_payment_date", "expected payment date is required")
		}
	}

	if input.UsePoints && input.PointsBalance < o.opts.PointsFloor {
		return apperrors.ValidationError(
			fmt.Sprintf("You need at least %d points to redeem", o.opts.PointsFloor))
	}

	return nil
}

func (o *Orchestrator) assemble(ctx context.Context, state *models.CartState, input SubmitInput) (*models.CheckoutRequest, error) {

	items := make([]models.CheckoutItem, 0, len(state.Items))

	for _, line := range state.Items {
		items = append(items, models.CheckoutItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
		})
	}

	address := noAddressFallback

	profile, err := o.backend.GetProfile(ctx)

	switch {
	case err == nil && strings.TrimSpace(profile.Address) != "":
		address = strings.TrimSpace(profile.Address)
	case apperrors.IsCode(err, apperrors.ErrCodeUnauthenticated):
		return nil, err
	case err != nil:
		// Deliverable without the profile; the fallback text tells dispatch
		// to call the customer.
		o.opts.Logger.Warn("Could not fetch profile for delivery notes", slog.String("error", err.Error()))
	}

	notes := address

	if note := strings.TrimSpace(input.Note); note != "" {
		notes = notes + "\n" + note
	}

	req := &models.CheckoutRequest{
		Items:         items,
		PaymentMethod: state.PaymentMethod,
		DeliveryNotes: notes,
	}

	switch state.PaymentMethod {
	case models.PaymentMethodMobileMoney:
		req.MobileMoneyPhone = state.PaymentDetails.MobileMoneyPhone
		req.MobileMoneyTransactionID = state.PaymentDetails.MobileMoneyTransactionID
	case models.PaymentMethodAccount:
		req.CreditReason = state.PaymentDetails.CreditReason
		req.ExpectedPaymentDate = state.PaymentDetails.ExpectedPaymentDate.Format("2006-01-02")
	}

	if input.UsePoints && input.PointsAmount >= o.opts.PointsFloor {
		points := input.PointsAmount
		req.PointsToRedeem = &points
	}

	if err := o.validate.Struct(req); err != nil {
		return nil, apperrors.ValidationError("Checkout request is invalid").WithError(err)
	}

	return req, nil
}

// Submitting reports whether a submission is currently in flight.
func (o *Orchestrator) Submitting() bool {
	return o.submitting.Load()
}
