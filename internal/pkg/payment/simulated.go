package payment

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// SimulatedGateway completes every valid charge immediately. It is the
// default for development and the test suite.
type SimulatedGateway struct {
	mu     sync.Mutex
	orders map[string]*ChargeResult
}

func NewSimulatedGateway() *SimulatedGateway {
	return &SimulatedGateway{orders: make(map[string]*ChargeResult)}
}

func (g *SimulatedGateway) Name() string { return "simulated" }

func (g *SimulatedGateway) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if existing, ok := g.orders[req.OrderID]; ok {
		res := *existing
		return &res, nil
	}

	res := &ChargeResult{Status: StatusCompleted, TransactionID: "SIM-" + uuid.NewString()}
	if err := req.Validate(); err != nil {
		res = &ChargeResult{Status: StatusFailed, Reason: err.Error()}
	}
	g.orders[req.OrderID] = res

	out := *res
	return &out, nil
}

func (g *SimulatedGateway) Status(ctx context.Context, orderID string) (*ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	res, ok := g.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	out := *res
	return &out, nil
}
