// Package orders coordinates order placement against the cart engine and the
// remote order endpoint.
package orders

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pharmakart/cartsync/internal/cart"
	"github.com/pharmakart/cartsync/internal/remote"
	"github.com/pharmakart/cartsync/internal/session"
	pkgerrors "github.com/pharmakart/cartsync/pkg/errors"
	"github.com/pharmakart/cartsync/pkg/logger"
	"github.com/pharmakart/cartsync/pkg/metrics"
	"github.com/pharmakart/cartsync/pkg/types"
)

// cartEngine is the slice of the reconciliation engine the coordinator needs.
type cartEngine interface {
	Snapshot() cart.Snapshot
	Binding() session.Binding
	Drain(ctx context.Context) error
}

// orderBackend places orders and clears the authoritative remote cart.
type orderBackend interface {
	PlaceOrder(ctx context.Context, credential string, items []types.LineItem, shipping types.ShippingInfo) (*remote.OrderRecord, error)
	ClearCart(ctx context.Context, credential string) error
}

// Params carries the coordinator's collaborators.
type Params struct {
	Engine  cartEngine
	Backend orderBackend
	Logger  *logger.Logger
	Metrics *metrics.SyncMetrics
}

// Coordinator drives a single order attempt through its state machine. At most
// one attempt is in flight at a time; the cart is cleared only after the
// remote commit is confirmed.
type Coordinator struct {
	mu         sync.Mutex
	submitting bool

	engine   cartEngine
	backend  orderBackend
	logg     *logger.Logger
	metrics  *metrics.SyncMetrics
	validate *validator.Validate
}

// NewCoordinator builds an order placement coordinator.
func NewCoordinator(params Params) (*Coordinator, error) {
	if params.Engine == nil {
		return nil, fmt.Errorf("cart engine required")
	}
	if params.Backend == nil {
		return nil, fmt.Errorf("order backend required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Coordinator{
		engine:   params.Engine,
		backend:  params.Backend,
		logg:     params.Logger,
		metrics:  params.Metrics,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}, nil
}

// Place validates the shipping payload, submits the current cart to the order
// endpoint, and on confirmed success drains the cart. On any failure the cart
// is left exactly as it was so the caller can adjust and retry.
func (c *Coordinator) Place(ctx context.Context, shipping types.ShippingInfo) (*remote.OrderRecord, error) {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "an order is already being submitted")
	}
	c.submitting = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.submitting = false
		c.mu.Unlock()
	}()

	snapshot := c.engine.Snapshot()
	if len(snapshot.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}
	if err := c.validateShipping(shipping); err != nil {
		return nil, err
	}

	binding := c.engine.Binding()
	ctx = c.logg.WithScope(ctx, binding.Scope.String())
	ctx = c.logg.WithField(ctx, "attempt_id", uuid.NewString())

	start := time.Now()
	record, err := c.backend.PlaceOrder(ctx, binding.Credential, snapshot.Items, shipping)
	c.metrics.ObserveOrder(err == nil, time.Since(start))
	if err != nil {
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "order placement failed, cart unchanged")
		return nil, err
	}

	// the order is committed; everything below is cleanup that must not
	// surface a failure to the caller
	if !binding.Scope.IsGuest() {
		if err := c.backend.ClearCart(ctx, binding.Credential); err != nil {
			c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "post-order remote cart clear failed")
		}
	}
	if err := c.engine.Drain(ctx); err != nil {
		c.logg.Error(ctx, "post-order cart drain failed", err)
	}

	c.logg.Info(c.logg.WithFields(ctx, map[string]any{
		"order_id": record.OrderID,
		"items":    len(snapshot.Items),
		"total":    record.Total.String(),
	}), "order placed")
	return record, nil
}

func (c *Coordinator) validateShipping(shipping types.ShippingInfo) error {
	err := c.validate.Struct(shipping)
	if err == nil {
		return nil
	}

	fields := []string{}
	if invalid, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range invalid {
			fields = append(fields, strings.ToLower(fe.Field()))
		}
	}
	return pkgerrors.New(pkgerrors.CodeInvalidShipping, "delivery address and contact phone are required").
		WithDetails(map[string]any{"fields": fields})
}
