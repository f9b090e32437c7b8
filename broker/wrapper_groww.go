package broker

import (
	"context"

	"intradesk/broker/groww"
)

// growwWrapper Groww 包装器
type growwWrapper struct {
	client *groww.Client
}

func (w *growwWrapper) Name() string {
	return w.client.Name()
}

func (w *growwWrapper) PlaceOrder(ctx context.Context, req *OrderRequest) (string, error) {
	return w.client.PlaceOrder(ctx, &groww.OrderParams{
		Symbol:        req.Symbol,
		Side:          req.Side,
		OrderType:     req.OrderType,
		Quantity:      req.Quantity,
		Price:         req.Price,
		ClientOrderID: req.ClientOrderID,
	})
}

func (w *growwWrapper) GetLivePrice(ctx context.Context, symbol string) (float64, error) {
	return w.client.GetLivePrice(ctx, symbol)
}
