package broker

import (
	"context"

	"intradesk/broker/dhan"
)

// dhanWrapper Dhan 包装器
type dhanWrapper struct {
	client *dhan.Client
}

func (w *dhanWrapper) Name() string {
	return w.client.Name()
}

func (w *dhanWrapper) PlaceOrder(ctx context.Context, req *OrderRequest) (string, error) {
	return w.client.PlaceOrder(ctx, &dhan.OrderParams{
		Symbol:        req.Symbol,
		Side:          req.Side,
		OrderType:     req.OrderType,
		Quantity:      req.Quantity,
		Price:         req.Price,
		ClientOrderID: req.ClientOrderID,
	})
}

func (w *dhanWrapper) GetLivePrice(ctx context.Context, symbol string) (float64, error) {
	return w.client.GetLivePrice(ctx, symbol)
}
