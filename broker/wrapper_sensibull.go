package broker

import (
	"context"

	"intradesk/broker/sensibull"
)

// sensibullWrapper Sensibull 包装器
type sensibullWrapper struct {
	client *sensibull.Client
}

func (w *sensibullWrapper) Name() string {
	return w.client.Name()
}

func (w *sensibullWrapper) PlaceOrder(ctx context.Context, req *OrderRequest) (string, error) {
	return w.client.PlaceOrder(ctx, &sensibull.OrderParams{
		Symbol:        req.Symbol,
		Side:          req.Side,
		OrderType:     req.OrderType,
		Quantity:      req.Quantity,
		Price:         req.Price,
		ClientOrderID: req.ClientOrderID,
	})
}

func (w *sensibullWrapper) GetLivePrice(ctx context.Context, symbol string) (float64, error) {
	return w.client.GetLivePrice(ctx, symbol)
}
