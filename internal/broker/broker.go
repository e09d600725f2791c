package broker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"
)

// ExecutionError wraps a failed order placement. The engine surfaces it to the
// caller and keeps evaluating bars; retrying is the adapter caller's business.
type ExecutionError struct {
	Symbol string
	Side   string
	Err    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution failed: %s %s: %v", e.Side, e.Symbol, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

type OrderRequest struct {
	Symbol        string
	Qty           decimal.Decimal
	Side          alpaca.Side
	ClientOrderID string
}

type OrderRef struct {
	ID            string
	ClientOrderID string
	Status        string
}

type Position struct {
	Symbol   string
	Qty      decimal.Decimal
	AvgEntry float64
}

type Account struct {
	Equity      decimal.Decimal
	BuyingPower decimal.Decimal
}

type Client struct {
	client *alpaca.Client
}

func New(apiKey, apiSecret, baseURL string) *Client {
	opts := alpaca.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   baseURL,
	}
	return &Client{client: alpaca.NewClient(opts)}
}

// PlaceOrder submits a day market order for a fractional quantity.
func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (OrderRef, error) {
	qty := req.Qty
	orderReq := alpaca.PlaceOrderRequest{
		Symbol:        req.Symbol,
		Qty:           &qty,
		Side:          req.Side,
		Type:          alpaca.Market,
		TimeInForce:   alpaca.Day,
		ClientOrderID: req.ClientOrderID,
	}

	order, err := c.client.PlaceOrder(orderReq)
	if err != nil {
		slog.Error("place order failed", "side", req.Side, "symbol", req.Symbol, "qty", req.Qty, "error", err)
		return OrderRef{}, &ExecutionError{Symbol: req.Symbol, Side: string(req.Side), Err: err}
	}

	slog.Info("place order success", "order_id", order.ID, "side", req.Side, "symbol", req.Symbol, "qty", req.Qty, "status", order.Status)
	return OrderRef{
		ID:            order.ID,
		ClientOrderID: order.ClientOrderID,
		Status:        string(order.Status),
	}, nil
}

func (c *Client) OpenOrders(ctx context.Context) ([]OrderRef, error) {
	req := alpaca.GetOrdersRequest{
		Status: "open",
	}
	orders, err := c.client.GetOrders(req)
	if err != nil {
		slog.Error("fetch open orders failed", "error", err)
		return nil, err
	}
	refs := make([]OrderRef, 0, len(orders))
	for _, order := range orders {
		refs = append(refs, OrderRef{
			ID:            order.ID,
			ClientOrderID: order.ClientOrderID,
			Status:        string(order.Status),
		})
	}
	return refs, nil
}

func (c *Client) Position(ctx context.Context, symbol string) (Position, error) {
	pos, err := c.client.GetPosition(symbol)
	if err != nil {
		return Position{}, err
	}
	avgEntry, _ := pos.AvgEntryPrice.Float64()
	return Position{
		Symbol:   pos.Symbol,
		Qty:      pos.Qty,
		AvgEntry: avgEntry,
	}, nil
}

// Account reports per-asset balances used for position sizing in live mode.
func (c *Client) Account(ctx context.Context) (Account, error) {
	acct, err := c.client.GetAccount()
	if err != nil {
		slog.Error("fetch account failed", "error", err)
		return Account{}, err
	}
	return Account{Equity: acct.Equity, BuyingPower: acct.BuyingPower}, nil
}

func WaitForContext(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
