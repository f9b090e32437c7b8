package broker

import (
	"context"

	"intradesk/broker/paper"
)

// paperWrapper 模拟券商包装器
type paperWrapper struct {
	broker *paper.Broker
}

func (w *paperWrapper) Name() string {
	return w.broker.Name()
}

func (w *paperWrapper) PlaceOrder(ctx context.Context, req *OrderRequest) (string, error) {
	return w.broker.PlaceOrder(ctx, &paper.OrderParams{
		Symbol:        req.Symbol,
		Side:          req.Side,
		OrderType:     req.OrderType,
		Quantity:      req.Quantity,
		Price:         req.Price,
		ClientOrderID: req.ClientOrderID,
	})
}

func (w *paperWrapper) GetLivePrice(ctx context.Context, symbol string) (float64, error) {
	return w.broker.GetLivePrice(ctx, symbol)
}

// SetPrice 透传喂价，供引擎在每个行情周期更新
func (w *paperWrapper) SetPrice(symbol string, price float64) {
	w.broker.SetPrice(symbol, price)
}
