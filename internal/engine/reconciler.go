package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"

	"tradebot/internal/broker"
	"tradebot/internal/state"
)

// ReconcileLoop periodically syncs open orders and the broker-side position
// into the state store so the gate evaluates against reality, not against
// what the bot believes it did.
func ReconcileLoop(ctx context.Context, brokerClient *broker.Client, store *state.Store, symbol string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reconcileOnce(ctx, brokerClient, store, symbol)
		}
	}
}

func reconcileOnce(ctx context.Context, brokerClient *broker.Client, store *state.Store, symbol string) {
	orders, err := brokerClient.OpenOrders(ctx)
	if err != nil {
		slog.Error("reconcile open orders failed", "error", err)
	} else {
		openOrders := make(map[string]state.OpenOrder, len(orders))
		for _, order := range orders {
			openOrders[order.ClientOrderID] = state.OpenOrder{
				ClientOrderID: order.ClientOrderID,
				OrderID:       order.ID,
				Status:        order.Status,
			}
		}
		store.SetOpenOrders(openOrders)
	}

	position, err := brokerClient.Position(ctx, symbol)
	if err != nil {
		var apiErr *alpaca.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == 404 {
			// Broker says flat; drop any stale local position.
			store.SetPosition(nil)
		} else {
			slog.Error("reconcile position failed", "symbol", symbol, "error", err)
		}
		return
	}
	if position.Qty.IsZero() {
		store.SetPosition(nil)
		return
	}
	snapshot := store.Snapshot()
	if snapshot.Position != nil && !snapshot.Position.Quantity.Equal(position.Qty) {
		pos := *snapshot.Position
		pos.Quantity = position.Qty
		store.SetPosition(&pos)
		slog.Warn("position quantity reconciled", "symbol", symbol, "qty", position.Qty)
	}
}
