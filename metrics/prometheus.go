package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// 行情指标
	quoteFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intradesk_quote_fetch_total",
			Help: "Total number of quote fetches",
		},
		[]string{"source", "symbol", "status"},
	)

	quoteFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intradesk_quote_fetch_duration_seconds",
			Help:    "Quote fetch duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0},
		},
		[]string{"source"},
	)

	dataUnavailableTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intradesk_data_unavailable_total",
			Help: "Total number of cycles skipped due to missing market data",
		},
		[]string{"symbol"},
	)

	currentPrice = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "intradesk_current_price",
			Help: "Last observed index price",
		},
		[]string{"symbol"},
	)

	priceUpdateCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intradesk_price_update_count_total",
			Help: "Total number of price updates received",
		},
		[]string{"symbol"},
	)

	// 信号指标
	signalGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intradesk_signal_generated_total",
			Help: "Total number of trading signals generated",
		},
		[]string{"strategy", "symbol", "side"},
	)

	signalRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intradesk_signal_rejected_total",
			Help: "Total number of signals rejected by the risk gate",
		},
		[]string{"strategy", "symbol", "reason"},
	)

	webhookReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intradesk_webhook_received_total",
			Help: "Total number of inbound webhook signals",
		},
		[]string{"source", "status"},
	)

	// 订单指标
	orderSuccessTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intradesk_order_success_total",
			Help: "Total number of successful orders",
		},
		[]string{"broker", "symbol", "side"},
	)

	orderFailureTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intradesk_order_failure_total",
			Help: "Total number of failed orders",
		},
		[]string{"broker", "symbol", "side", "reason"},
	)

	orderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intradesk_order_duration_seconds",
			Help:    "Order submission duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0},
		},
		[]string{"broker", "symbol", "side"},
	)

	// 券商 API 指标
	apiCallTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intradesk_api_call_total",
			Help: "Total number of broker API calls",
		},
		[]string{"broker", "endpoint", "status"},
	)

	apiCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intradesk_api_call_duration_seconds",
			Help:    "Broker API call duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0, 10.0},
		},
		[]string{"broker", "endpoint"},
	)

	apiRateLimitHit = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intradesk_api_rate_limit_hit_total",
			Help: "Total number of rate limiter waits before broker calls",
		},
		[]string{"broker"},
	)

	// 持仓与盈亏指标
	openPositions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "intradesk_open_positions",
			Help: "Number of currently open positions",
		},
	)

	positionValue = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "intradesk_position_value",
			Help: "Current absolute position value in INR",
		},
		[]string{"symbol"},
	)

	positionPnL = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "intradesk_position_pnl",
			Help: "Current unrealized P&L per position symbol",
		},
		[]string{"symbol"},
	)

	unrealizedPnL = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "intradesk_pnl_unrealized",
			Help: "Total unrealized profit and loss",
		},
	)

	dailyRealizedPnL = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "intradesk_pnl_daily_realized",
			Help: "Realized profit and loss for the current session day",
		},
	)

	totalExposure = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "intradesk_total_exposure",
			Help: "Sum of absolute open position values in INR",
		},
	)

	stopLossTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intradesk_stop_loss_total",
			Help: "Total number of stop-loss closures",
		},
		[]string{"symbol"},
	)

	takeProfitTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intradesk_take_profit_total",
			Help: "Total number of take-profit closures",
		},
		[]string{"symbol"},
	)

	forcedCloseTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intradesk_forced_close_total",
			Help: "Total number of exposure-cap forced closures",
		},
		[]string{"symbol"},
	)

	// 预警指标
	alertTriggeredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intradesk_alert_triggered_total",
			Help: "Total number of alerts triggered",
		},
		[]string{"symbol", "kind"},
	)

	activeAlerts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "intradesk_active_alerts",
			Help: "Number of currently active alert rules",
		},
	)

	// WebSocket 指标
	wsClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "intradesk_ws_clients",
			Help: "Number of connected WebSocket clients",
		},
	)

	// 系统指标
	goroutineCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "intradesk_goroutine_count",
			Help: "Number of goroutines",
		},
	)

	gcPauseDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "intradesk_gc_pause_duration_seconds",
			Help:    "GC pause duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
	)

	memoryAllocBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "intradesk_memory_alloc_bytes",
			Help: "Bytes of allocated heap objects",
		},
	)

	// 分布式锁指标
	lockAcquireTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intradesk_lock_acquire_total",
			Help: "Total number of lock acquisitions",
		},
		[]string{"key", "status"}, // status: success, failed, skipped
	)

	lockHoldDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intradesk_lock_hold_duration_seconds",
			Help:    "Lock hold duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0, 30.0},
		},
		[]string{"key"},
	)

	lockConflictTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intradesk_lock_conflict_total",
			Help: "Total number of lock conflicts",
		},
		[]string{"key"},
	)
)

// PrometheusMetrics Prometheus 指标收集器
type PrometheusMetrics struct {
	mu sync.RWMutex
}

// NewPrometheusMetrics 创建 Prometheus 指标收集器
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{}
}

// 行情相关指标记录

// RecordQuoteFetch 记录行情请求
func (pm *PrometheusMetrics) RecordQuoteFetch(source, symbol, status string, duration time.Duration) {
	quoteFetchTotal.WithLabelValues(source, symbol, status).Inc()
	quoteFetchDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordDataUnavailable 记录行情缺失
func (pm *PrometheusMetrics) RecordDataUnavailable(symbol string) {
	dataUnavailableTotal.WithLabelValues(symbol).Inc()
}

// SetCurrentPrice 设置当前价格
func (pm *PrometheusMetrics) SetCurrentPrice(symbol string, price float64) {
	currentPrice.WithLabelValues(symbol).Set(price)
}

// RecordPriceUpdate 记录价格更新
func (pm *PrometheusMetrics) RecordPriceUpdate(symbol string) {
	priceUpdateCount.WithLabelValues(symbol).Inc()
}

// 信号相关指标记录

// RecordSignalGenerated 记录信号生成
func (pm *PrometheusMetrics) RecordSignalGenerated(strategy, symbol, side string) {
	signalGeneratedTotal.WithLabelValues(strategy, symbol, side).Inc()
}

// RecordSignalRejected 记录信号被风控拒绝
func (pm *PrometheusMetrics) RecordSignalRejected(strategy, symbol, reason string) {
	signalRejectedTotal.WithLabelValues(strategy, symbol, reason).Inc()
}

// RecordWebhookReceived 记录外部信号接入
func (pm *PrometheusMetrics) RecordWebhookReceived(source, status string) {
	webhookReceivedTotal.WithLabelValues(source, status).Inc()
}

// 订单相关指标记录

// RecordOrderSuccess 记录订单成功
func (pm *PrometheusMetrics) RecordOrderSuccess(broker, symbol, side string, duration time.Duration) {
	orderSuccessTotal.WithLabelValues(broker, symbol, side).Inc()
	orderDuration.WithLabelValues(broker, symbol, side).Observe(duration.Seconds())
}

// RecordOrderFailure 记录订单失败
func (pm *PrometheusMetrics) RecordOrderFailure(broker, symbol, side, reason string) {
	orderFailureTotal.WithLabelValues(broker, symbol, side, reason).Inc()
}

// RecordAPICall 记录券商 API 调用
func (pm *PrometheusMetrics) RecordAPICall(broker, endpoint, status string, duration time.Duration) {
	apiCallTotal.WithLabelValues(broker, endpoint, status).Inc()
	apiCallDuration.WithLabelValues(broker, endpoint).Observe(duration.Seconds())
}

// RecordAPIRateLimitHit 记录限流等待
func (pm *PrometheusMetrics) RecordAPIRateLimitHit(broker string) {
	apiRateLimitHit.WithLabelValues(broker).Inc()
}

// 持仓与盈亏相关指标记录

// SetOpenPositions 设置开仓数量
func (pm *PrometheusMetrics) SetOpenPositions(count int) {
	openPositions.Set(float64(count))
}

// SetPositionValue 设置持仓价值
func (pm *PrometheusMetrics) SetPositionValue(symbol string, value float64) {
	positionValue.WithLabelValues(symbol).Set(value)
}

// SetPositionPnL 设置持仓盈亏
func (pm *PrometheusMetrics) SetPositionPnL(symbol string, pnl float64) {
	positionPnL.WithLabelValues(symbol).Set(pnl)
}

// SetUnrealizedPnL 设置未实现盈亏
func (pm *PrometheusMetrics) SetUnrealizedPnL(pnl float64) {
	unrealizedPnL.Set(pnl)
}

// SetDailyRealizedPnL 设置当日已实现盈亏
func (pm *PrometheusMetrics) SetDailyRealizedPnL(pnl float64) {
	dailyRealizedPnL.Set(pnl)
}

// SetTotalExposure 设置总敞口
func (pm *PrometheusMetrics) SetTotalExposure(exposure float64) {
	totalExposure.Set(exposure)
}

// RecordStopLoss 记录止损平仓
func (pm *PrometheusMetrics) RecordStopLoss(symbol string) {
	stopLossTotal.WithLabelValues(symbol).Inc()
}

// RecordTakeProfit 记录止盈平仓
func (pm *PrometheusMetrics) RecordTakeProfit(symbol string) {
	takeProfitTotal.WithLabelValues(symbol).Inc()
}

// RecordForcedClose 记录敞口超限强制平仓
func (pm *PrometheusMetrics) RecordForcedClose(symbol string) {
	forcedCloseTotal.WithLabelValues(symbol).Inc()
}

// 预警相关指标记录

// RecordAlertTriggered 记录预警触发
func (pm *PrometheusMetrics) RecordAlertTriggered(symbol, kind string) {
	alertTriggeredTotal.WithLabelValues(symbol, kind).Inc()
}

// SetActiveAlerts 设置活跃预警数量
func (pm *PrometheusMetrics) SetActiveAlerts(count int) {
	activeAlerts.Set(float64(count))
}

// WebSocket 相关指标记录

// SetWSClients 设置 WebSocket 客户端数量
func (pm *PrometheusMetrics) SetWSClients(count int) {
	wsClients.Set(float64(count))
}

// 系统相关指标记录

// SetGoroutineCount 设置 Goroutine 数量
func (pm *PrometheusMetrics) SetGoroutineCount(count int) {
	goroutineCount.Set(float64(count))
}

// RecordGCPause 记录 GC 停顿时间
func (pm *PrometheusMetrics) RecordGCPause(duration time.Duration) {
	gcPauseDuration.Observe(duration.Seconds())
}

// SetMemoryAlloc 设置内存分配
func (pm *PrometheusMetrics) SetMemoryAlloc(bytes uint64) {
	memoryAllocBytes.Set(float64(bytes))
}

// 分布式锁相关指标记录

// RecordLockAcquire 记录锁获取
func (pm *PrometheusMetrics) RecordLockAcquire(key, status string) {
	lockAcquireTotal.WithLabelValues(key, status).Inc()
}

// RecordLockConflict 记录锁冲突
func (pm *PrometheusMetrics) RecordLockConflict(key string) {
	lockConflictTotal.WithLabelValues(key).Inc()
}

// RecordLockHoldDuration 记录锁持有时长
func (pm *PrometheusMetrics) RecordLockHoldDuration(key string, duration time.Duration) {
	lockHoldDuration.WithLabelValues(key).Observe(duration.Seconds())
}

// 全局实例
var globalPrometheusMetrics *PrometheusMetrics

// GetPrometheusMetrics 获取全局 Prometheus 指标收集器
func GetPrometheusMetrics() *PrometheusMetrics {
	once.Do(func() {
		globalPrometheusMetrics = NewPrometheusMetrics()
	})
	return globalPrometheusMetrics
}
