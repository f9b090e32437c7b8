// Package broker 封装多券商下单通道。
// 每个券商在独立子包中实现自己的认证与 HTTP 客户端，
// 本包提供统一的适配器接口与订单路由。
package broker

import (
	"context"
	"errors"
)

// ProductIntraday 日内产品类型，所有订单固定使用
const ProductIntraday = "INTRADAY"

var (
	// ErrBrokerNotConfigured 信号指定的券商未启用
	ErrBrokerNotConfigured = errors.New("券商未配置")
	// ErrDuplicateOrder 同方向重复下单被拦截
	ErrDuplicateOrder = errors.New("重复下单被拦截")
)

// OrderRequest 统一下单请求
type OrderRequest struct {
	Symbol        string  // 标的代码
	Side          string  // BUY / SELL
	OrderType     string  // MARKET / LIMIT
	Quantity      int     // 数量（股）
	Price         float64 // 参考价（市价单也携带，供模拟成交）
	ProductType   string  // 固定 INTRADAY
	ClientOrderID string  // 客户端订单号
}

// Adapter 券商适配器接口
// PlaceOrder 返回券商订单号；非 2xx 响应或网络错误一律返回 error，
// 适配器内部不做任何重试
type Adapter interface {
	Name() string
	PlaceOrder(ctx context.Context, req *OrderRequest) (string, error)
	GetLivePrice(ctx context.Context, symbol string) (float64, error)
}

// PriceSetter 可喂价的适配器（模拟券商实现）
type PriceSetter interface {
	SetPrice(symbol string, price float64)
}
