package service

import (
	"context"
	"errors"

	"glowmarket/internal/domain"
	"glowmarket/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrEmptyCart = errors.New("cart is empty")
)

// cartClearAttempts bounds the post-commit cart clear retries.
const cartClearAttempts = 3

// CheckoutService coordinates cart, validator, and factory into the single
// externally-callable checkout operation. Any failure leaves cart, stock,
// and orders exactly as they were.
type CheckoutService interface {
	StockCheck(ctx context.Context, userID uuid.UUID) (domain.StockCheckResult, error)
	Checkout(ctx context.Context, userID uuid.UUID, shipping domain.ShippingInfo, paymentMethod string) ([]uuid.UUID, error)
}

type checkoutService struct {
	carts     repository.CartRepository
	validator StockValidator
	factory   *OrderFactory
	logger    *zap.Logger
}

// NewCheckoutService creates a new instance of CheckoutService
func NewCheckoutService(
	carts repository.CartRepository,
	validator StockValidator,
	factory *OrderFactory,
	logger *zap.Logger,
) CheckoutService {
	return &checkoutService{
		carts:     carts,
		validator: validator,
		factory:   factory,
		logger:    logger,
	}
}

// StockCheck runs the advisory validator over the caller's current cart
func (s *checkoutService) StockCheck(ctx context.Context, userID uuid.UUID) (domain.StockCheckResult, error) {
	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return domain.StockCheckResult{}, err
	}
	if cart.IsEmpty() {
		return domain.StockCheckResult{}, ErrEmptyCart
	}

	return s.validator.Check(ctx, cart.Lines)
}

// Checkout turns the caller's cart into one or more pending orders.
// The cart is cleared only after the factory's transaction has committed;
// on any error path the cart is untouched and no order or stock change is
// observable.
func (s *checkoutService) Checkout(
	ctx context.Context,
	userID uuid.UUID,
	shipping domain.ShippingInfo,
	paymentMethod string,
) ([]uuid.UUID, error) {
	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	// Advisory pre-flight: fail fast on known shortfalls before opening a
	// transaction. The factory's conditional decrement re-checks anyway.
	verdict, err := s.validator.Check(ctx, cart.Lines)
	if err != nil {
		return nil, err
	}
	if !verdict.OK {
		return nil, &domain.StockShortfallError{Shortfalls: verdict.Shortfalls}
	}

	orderIDs, err := s.factory.CreateFromCart(ctx, cart, shipping, paymentMethod)
	if err != nil {
		return nil, err
	}

	// Orders are already committed, so the clear is retried a few times to
	// shrink the window where a reader sees both the new orders and the old
	// cart. If it still fails the stale cart is an annoyance, not a
	// consistency violation. Log and return success.
	var clearErr error
	for attempt := 0; attempt < cartClearAttempts; attempt++ {
		if clearErr = s.carts.Clear(ctx, userID); clearErr == nil {
			break
		}
	}
	if clearErr != nil {
		s.logger.Error("Failed to clear cart after checkout",
			zap.String("user_id", userID.String()),
			zap.Int("attempts", cartClearAttempts),
			zap.Error(clearErr),
		)
	}

	s.logger.Info("Checkout completed",
		zap.String("user_id", userID.String()),
		zap.Int("orders", len(orderIDs)),
	)

	return orderIDs, nil
}
