package storage

import "time"

// SignalRecord 策略信号归档行
type SignalRecord struct {
	ID         int64     `json:"id"`
	Strategy   string    `json:"strategy"`
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"`
	Price      float64   `json:"price"`
	Quantity   float64   `json:"quantity"`
	StopLoss   float64   `json:"stop_loss"`
	TakeProfit float64   `json:"take_profit"`
	Confidence float64   `json:"confidence"`
	Broker     string    `json:"broker"`
	Status     string    `json:"status"` // generated / rejected
	Reason     string    `json:"reason"` // 拒绝原因，通过风控时为空
	CreatedAt  time.Time `json:"created_at"`
}

// OrderRecord 券商订单归档行
type OrderRecord struct {
	ID            int64     `json:"id"`
	OrderID       string    `json:"order_id"` // 券商订单号，失败时为空
	ClientOrderID string    `json:"client_order_id"`
	Broker        string    `json:"broker"`
	Symbol        string    `json:"symbol"`
	Side          string    `json:"side"`
	Strategy      string    `json:"strategy"`
	Price         float64   `json:"price"`
	Quantity      float64   `json:"quantity"`
	Status        string    `json:"status"` // placed / failed
	Error         string    `json:"error"`
	CreatedAt     time.Time `json:"created_at"`
}

// TradeRecord 平仓归档行
type TradeRecord struct {
	ID         int64     `json:"id"`
	Symbol     string    `json:"symbol"`
	Strategy   string    `json:"strategy"`
	Side       string    `json:"side"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Quantity   float64   `json:"quantity"`
	PnL        float64   `json:"pnl"`
	Reason     string    `json:"reason"` // signal / stop_loss / take_profit / exposure_cap / shutdown
	Broker     string    `json:"broker"`
	CreatedAt  time.Time `json:"created_at"`
}

// AlertEntry 预警归档行
type AlertEntry struct {
	ID        int64     `json:"id"`
	Symbol    string    `json:"symbol"`
	Kind      string    `json:"kind"`
	Level     float64   `json:"level"`
	Price     float64   `json:"price"`
	Status    string    `json:"status"` // triggered / confirmed
	CreatedAt time.Time `json:"created_at"`
}

// EventRow 原始事件行，data 为 JSON 序列化的事件负载
type EventRow struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Data      string    `json:"data"`
	CreatedAt time.Time `json:"created_at"`
}
