// Package paper 提供内存模拟券商，用于休市验证与测试。
// 订单按参考价立即成交，不产生任何网络请求。
package paper

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Fill 一笔模拟成交
type Fill struct {
	OrderID       string
	ClientOrderID string
	Symbol        string
	Side          string
	OrderType     string
	Quantity      int
	Price         float64
	FilledAt      time.Time
}

// OrderParams 下单参数
type OrderParams struct {
	Symbol        string
	Side          string
	OrderType     string
	Quantity      int
	Price         float64
	ClientOrderID string
}

// Broker 模拟券商
type Broker struct {
	mu     sync.Mutex
	seq    int
	prices map[string]float64
	fills  []Fill
}

// New 创建模拟券商
func New() *Broker {
	return &Broker{
		prices: make(map[string]float64),
	}
}

// Name 券商名称
func (b *Broker) Name() string {
	return "paper"
}

// SetPrice 更新标的最新价，由引擎在每个行情周期喂入
func (b *Broker) SetPrice(symbol string, price float64) {
	if price <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prices[symbol] = price
}

// PlaceOrder 模拟下单：按参考价成交，无参考价时回退到最新喂价
func (b *Broker) PlaceOrder(ctx context.Context, p *OrderParams) (string, error) {
	if p.Quantity <= 0 {
		return "", fmt.Errorf("无效的下单数量: %d", p.Quantity)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	fillPrice := p.Price
	if fillPrice <= 0 {
		fillPrice = b.prices[p.Symbol]
	}
	if fillPrice <= 0 {
		return "", fmt.Errorf("标的 %s 无可用成交价", p.Symbol)
	}

	b.seq++
	orderID := fmt.Sprintf("PAPER-%06d", b.seq)

	b.fills = append(b.fills, Fill{
		OrderID:       orderID,
		ClientOrderID: p.ClientOrderID,
		Symbol:        p.Symbol,
		Side:          p.Side,
		OrderType:     p.OrderType,
		Quantity:      p.Quantity,
		Price:         fillPrice,
		FilledAt:      time.Now(),
	})
	b.prices[p.Symbol] = fillPrice

	return orderID, nil
}

// GetLivePrice 返回最新喂价
func (b *Broker) GetLivePrice(ctx context.Context, symbol string) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	price, ok := b.prices[symbol]
	if !ok {
		return 0, fmt.Errorf("标的 %s 无可用成交价", symbol)
	}
	return price, nil
}

// Fills 返回全部成交记录的副本
func (b *Broker) Fills() []Fill {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Fill, len(b.fills))
	copy(out, b.fills)
	return out
}
