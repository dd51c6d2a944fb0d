package payment

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Status is the gateway's view of a charge
type Status string

const (
	StatusCompleted  Status = "completed"
	StatusProcessing Status = "processing"
	StatusFailed     Status = "failed"
)

// ErrOrderNotFound is returned by Status for an order the gateway never saw
var ErrOrderNotFound = errors.New("payment order not found")

// ChargeRequest describes one stage-5 payment
type ChargeRequest struct {
	OrderID       string
	Amount        int64
	Method        string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Items         []Item
}

// Item is one line of the charge
type Item struct {
	ID    string
	Name  string
	Price int64
}

// ChargeResult is what the gateway answered
type ChargeResult struct {
	Status        Status
	TransactionID string
	// RedirectURL is set when the applicant has to finish on the gateway's page
	RedirectURL string
	Reason      string
}

// Gateway captures admission payments
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	// Status re-queries the authoritative state of an order
	Status(ctx context.Context, orderID string) (*ChargeResult, error)
	Name() string
}

// Validate checks that the amounts add up
func (r ChargeRequest) Validate() error {
	if r.OrderID == "" {
		return fmt.Errorf("payment: order id is required")
	}
	if r.Amount <= 0 {
		return fmt.Errorf("payment: amount must be positive, got %d", r.Amount)
	}
	var sum int64
	for _, it := range r.Items {
		sum += it.Price
	}
	if len(r.Items) > 0 && sum != r.Amount {
		return fmt.Errorf("payment: items total %d does not match amount %d", sum, r.Amount)
	}
	return nil
}

// WithTimeout bounds every call of a gateway
type WithTimeout struct {
	Gateway
	Timeout time.Duration
}

func (g WithTimeout) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, g.Timeout)
	defer cancel()
	return g.Gateway.Charge(ctx, req)
}

func (g WithTimeout) Status(ctx context.Context, orderID string) (*ChargeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, g.Timeout)
	defer cancel()
	return g.Gateway.Status(ctx, orderID)
}

// callWithContext runs a blocking SDK call and gives up when ctx ends.
func callWithContext[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
