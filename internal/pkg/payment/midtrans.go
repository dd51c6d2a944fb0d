package payment

import (
	"context"
	"fmt"
	"strings"

	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
)

// MidtransGateway opens a Snap checkout and reads the outcome through the Core API.
type MidtransGateway struct {
	snap snap.Client
	core coreapi.Client
}

// NewMidtransGateway configures both clients. environment is "production" or "sandbox".
func NewMidtransGateway(serverKey, environment string) (*MidtransGateway, error) {
	if serverKey == "" {
		return nil, fmt.Errorf("midtrans server key is required")
	}

	env := midtrans.Sandbox
	if strings.EqualFold(environment, "production") {
		env = midtrans.Production
	}

	g := &MidtransGateway{}
	g.snap.New(serverKey, env)
	g.core.New(serverKey, env)
	return g, nil
}

func (g *MidtransGateway) Name() string { return "midtrans" }

func (g *MidtransGateway) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if err := req.Validate(); err != nil {
		return &ChargeResult{Status: StatusFailed, Reason: err.Error()}, nil
	}

	items := make([]midtrans.ItemDetails, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, midtrans.ItemDetails{ID: it.ID, Name: it.Name, Price: it.Price, Qty: 1, Category: "ADMISSION"})
	}

	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.OrderID,
			GrossAmt: req.Amount,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: req.CustomerName,
			Email: req.CustomerEmail,
			Phone: req.CustomerPhone,
		},
		Items: &items,
	}

	resp, err := callWithContext(ctx, func() (*snap.Response, error) {
		r, mErr := g.snap.CreateTransaction(snapReq)
		if mErr != nil {
			return nil, mErr
		}
		return r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("midtrans create transaction: %w", err)
	}

	return &ChargeResult{
		Status:        StatusProcessing,
		TransactionID: resp.Token,
		RedirectURL:   resp.RedirectURL,
	}, nil
}

func (g *MidtransGateway) Status(ctx context.Context, orderID string) (*ChargeResult, error) {
	resp, err := callWithContext(ctx, func() (*coreapi.TransactionStatusResponse, error) {
		r, mErr := g.core.CheckTransaction(orderID)
		if mErr != nil {
			if mErr.StatusCode == 404 {
				return nil, ErrOrderNotFound
			}
			return nil, mErr
		}
		return r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("midtrans check transaction: %w", err)
	}

	return &ChargeResult{
		Status:        MapMidtransStatus(resp.TransactionStatus, resp.FraudStatus),
		TransactionID: resp.TransactionID,
		Reason:        resp.StatusMessage,
	}, nil
}

// MapMidtransStatus folds Midtrans transaction states into ours.
func MapMidtransStatus(transactionStatus, fraudStatus string) Status {
	switch strings.ToLower(transactionStatus) {
	case "capture":
		switch strings.ToLower(fraudStatus) {
		case "accept", "":
			return StatusCompleted
		case "challenge":
			return StatusProcessing
		}
		return StatusFailed
	case "settlement":
		return StatusCompleted
	case "pending", "authorize":
		return StatusProcessing
	default:
		// deny, cancel, expire, failure, refund
		return StatusFailed
	}
}
