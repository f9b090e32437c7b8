// Package database 提供报表存储：平仓成交、当日统计、
// 风控拒绝、预警历史与事件记录，支持 sqlite/mysql/postgres。
package database

import (
	"context"
	"time"
)

// Database 数据库接口
type Database interface {
	// 平仓成交记录
	SaveTrade(ctx context.Context, trade *Trade) error
	GetTrades(ctx context.Context, filter *TradeFilter) ([]*Trade, error)

	// 按交易日汇总
	SaveDailyStat(ctx context.Context, stat *DailyStat) error
	GetDailyStats(ctx context.Context, filter *DailyStatFilter) ([]*DailyStat, error)

	// 风控拒绝记录
	SaveRiskDecision(ctx context.Context, decision *RiskDecision) error
	GetRiskDecisions(ctx context.Context, filter *RiskDecisionFilter) ([]*RiskDecision, error)

	// 预警历史
	SaveAlert(ctx context.Context, alert *AlertRecord) error
	GetAlerts(ctx context.Context, filter *AlertFilter) ([]*AlertRecord, error)

	// 事件记录
	SaveEvent(ctx context.Context, event *EventRecord) error
	GetEvents(ctx context.Context, filter *EventFilter) ([]*EventRecord, error)
	GetEventByID(ctx context.Context, id int64) (*EventRecord, error)
	GetEventStats(ctx context.Context) (*EventStats, error)
	CleanupOldEvents(ctx context.Context, severity string, keepCount int, keepDays int) error

	// 健康检查
	Ping(ctx context.Context) error

	// 关闭连接
	Close() error
}

// 数据模型

// Trade 平仓成交记录
type Trade struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Broker        string    `gorm:"index:idx_broker_symbol_time;size:20" json:"broker"`
	Symbol        string    `gorm:"index:idx_broker_symbol_time;size:30" json:"symbol"`
	Side          string    `gorm:"size:10" json:"side"` // BUY, SELL
	Strategy      string    `gorm:"index;size:30" json:"strategy"`
	Quantity      int       `json:"quantity"`
	EntryPrice    float64   `json:"entry_price"`
	ExitPrice     float64   `json:"exit_price"`
	PnL           float64   `json:"pnl"`
	Reason        string    `gorm:"size:20" json:"reason"` // stop_loss, take_profit, manual, exposure, shutdown
	OrderID       string    `gorm:"size:50" json:"order_id"`
	ClientOrderID string    `gorm:"size:50" json:"client_order_id"`
	OpenedAt      time.Time `json:"opened_at"`
	ClosedAt      time.Time `gorm:"index:idx_broker_symbol_time" json:"closed_at"`
	CreatedAt     time.Time `json:"created_at"`
}

// DailyStat 按交易日（IST）汇总的盈亏统计
type DailyStat struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Day         string    `gorm:"uniqueIndex;size:10" json:"day"` // 格式 2006-01-02
	RealizedPnL float64   `json:"realized_pnl"`
	TradeCount  int       `json:"trade_count"`
	WinCount    int       `json:"win_count"`
	LossCount   int       `json:"loss_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RiskDecision 风控拒绝记录
type RiskDecision struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Strategy  string    `gorm:"size:30" json:"strategy"`
	Symbol    string    `gorm:"index;size:30" json:"symbol"`
	Side      string    `gorm:"size:10" json:"side"`
	Reason    string    `gorm:"index;size:30" json:"reason"` // position_limit, daily_loss_limit, trade_risk_limit
	Detail    string    `gorm:"type:text" json:"detail"`
	Price     float64   `json:"price"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// AlertRecord 预警历史
type AlertRecord struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Symbol    string    `gorm:"index;size:30" json:"symbol"`
	Kind      string    `gorm:"size:20" json:"kind"` // breakout, breakdown, pcr, volume
	Level     float64   `json:"level"`
	Status    string    `gorm:"index;size:20" json:"status"` // triggered, confirmed, cancelled
	Message   string    `gorm:"type:text" json:"message"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// EventRecord 事件记录
type EventRecord struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Type      string    `gorm:"index;size:50" json:"type"`
	Severity  string    `gorm:"index;size:20" json:"severity"`
	Source    string    `gorm:"index;size:30" json:"source"`
	Broker    string    `gorm:"size:20" json:"broker"`
	Symbol    string    `gorm:"index;size:30" json:"symbol"`
	Title     string    `gorm:"size:100" json:"title"`
	Message   string    `gorm:"type:text" json:"message"`
	Details   string    `gorm:"type:text" json:"details"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// EventStats 事件统计
type EventStats struct {
	TotalCount       int            `json:"total_count"`
	CriticalCount    int            `json:"critical_count"`
	WarningCount     int            `json:"warning_count"`
	InfoCount        int            `json:"info_count"`
	Last24HoursCount int            `json:"last_24_hours_count"`
	CountByType      map[string]int `json:"count_by_type"`
	CountBySource    map[string]int `json:"count_by_source"`
}

// 过滤器

// TradeFilter 成交记录过滤器
type TradeFilter struct {
	Broker    string
	Symbol    string
	Strategy  string
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int
	Offset    int
}

// DailyStatFilter 日统计过滤器
type DailyStatFilter struct {
	StartDay string
	EndDay   string
	Limit    int
}

// RiskDecisionFilter 风控记录过滤器
type RiskDecisionFilter struct {
	Symbol    string
	Reason    string
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int
	Offset    int
}

// AlertFilter 预警历史过滤器
type AlertFilter struct {
	Symbol string
	Kind   string
	Status string
	Limit  int
	Offset int
}

// EventFilter 事件记录过滤器
type EventFilter struct {
	Type      string
	Severity  string
	Source    string
	Broker    string
	Symbol    string
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int
	Offset    int
}
