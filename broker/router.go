package broker

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"intradesk/config"
	"intradesk/event"
	"intradesk/lock"
	"intradesk/logger"
	"intradesk/metrics"
	"intradesk/strategy"
	"intradesk/utils"
)

// 券商 API 限速：每秒25个请求，突发30
const (
	orderRatePerSecond = 25
	orderRateBurst     = 30
)

// Router 订单路由器
// 持有全部已启用的券商适配器，共享一个限流器，
// 通过分布式锁拦截同方向的重复下单
type Router struct {
	adapters  map[string]Adapter
	limiter   *rate.Limiter
	locker    lock.DistributedLock
	eventBus  *event.EventBus
	paperMode bool
	lockTTL   time.Duration
}

// NewRouter 创建订单路由器，初始化所有已启用券商
func NewRouter(cfg *config.Config, locker lock.DistributedLock, eventBus *event.EventBus) (*Router, error) {
	adapters := make(map[string]Adapter)
	for name, bc := range cfg.Brokers {
		if !bc.Enabled {
			continue
		}
		adapter, err := New(name, bc)
		if err != nil {
			return nil, fmt.Errorf("初始化券商 %s 失败: %w", name, err)
		}
		adapters[name] = adapter
		logger.Info("🔌 券商 %s 已接入", name)
	}

	if len(adapters) == 0 {
		return nil, fmt.Errorf("没有任何已启用的券商")
	}

	if locker == nil {
		locker = lock.NewNopLock()
	}

	lockTTL := time.Duration(cfg.DistributedLock.DefaultTTL) * time.Second
	if lockTTL <= 0 {
		lockTTL = 5 * time.Second
	}

	if cfg.App.PaperTrading {
		logger.Info("🧪 模拟交易模式：所有订单路由到 paper 券商")
	}

	return &Router{
		adapters:  adapters,
		limiter:   rate.NewLimiter(rate.Limit(orderRatePerSecond), orderRateBurst),
		locker:    locker,
		eventBus:  eventBus,
		paperMode: cfg.App.PaperTrading,
		lockTTL:   lockTTL,
	}, nil
}

// Adapter 按名称返回适配器
func (r *Router) Adapter(name string) (Adapter, bool) {
	adapter, ok := r.adapters[name]
	return adapter, ok
}

// Brokers 返回已接入的券商名称（有序）
func (r *Router) Brokers() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Route 把已通过风控的信号提交到目标券商，返回券商订单号和本地单号。
// 券商未配置时立刻失败，不发起任何网络请求；
// 提交失败直接返回错误，信号不再重试。
func (r *Router) Route(ctx context.Context, signal *strategy.TradingSignal) (string, string, error) {
	brokerName := signal.Broker
	if r.paperMode {
		brokerName = "paper"
	}

	adapter, ok := r.adapters[brokerName]
	if !ok {
		return "", "", fmt.Errorf("券商 %s: %w", brokerName, ErrBrokerNotConfigured)
	}

	pm := metrics.GetPrometheusMetrics()

	// 共享限流器，满载时等待配额
	if !r.limiter.Allow() {
		pm.RecordAPIRateLimitHit(brokerName)
		if err := r.limiter.Wait(ctx); err != nil {
			return "", "", fmt.Errorf("等待限流配额失败: %w", err)
		}
	}

	// 重复下单保护：同券商同标的同方向在锁 TTL 内只允许一笔
	lockKey := fmt.Sprintf("order:%s:%s:%s", brokerName, signal.Symbol, signal.Side)
	acquired, err := r.locker.TryLock(ctx, lockKey, r.lockTTL)
	if err != nil {
		// 锁服务异常时降级放行，重复保护失效但不阻断交易
		logger.Warn("⚠️ 获取下单锁失败，跳过重复检查: %v", err)
		pm.RecordLockAcquire(lockKey, "skipped")
	} else if !acquired {
		pm.RecordLockAcquire(lockKey, "failed")
		pm.RecordLockConflict(lockKey)
		return "", "", fmt.Errorf("%s: %w", lockKey, ErrDuplicateOrder)
	} else {
		pm.RecordLockAcquire(lockKey, "success")
	}
	lockedAt := time.Now()

	clientOrderID := utils.AddBrokerPrefix(brokerName,
		utils.GenerateOrderID(signal.Strategy, string(signal.Side)))

	req := &OrderRequest{
		Symbol:        signal.Symbol,
		Side:          string(signal.Side),
		OrderType:     string(signal.Kind),
		Quantity:      signal.Quantity,
		Price:         signal.Price,
		ProductType:   ProductIntraday,
		ClientOrderID: clientOrderID,
	}

	start := time.Now()
	orderID, err := adapter.PlaceOrder(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		pm.RecordAPICall(brokerName, "orders", "error", elapsed)
		pm.RecordOrderFailure(brokerName, signal.Symbol, string(signal.Side), "api_error")
		// 提交失败时释放锁，下一个真实信号不受影响；
		// 成功时锁保留到 TTL 过期，这段时间就是重复下单的拦截窗口
		if acquired {
			pm.RecordLockHoldDuration(lockKey, time.Since(lockedAt))
			r.locker.Unlock(ctx, lockKey)
		}

		logger.Error("❌ %s 下单失败 %s %s %d股: %v",
			brokerName, signal.Symbol, signal.Side, signal.Quantity, err)
		r.publish(event.EventTypeOrderFailed, map[string]interface{}{
			"broker":          brokerName,
			"symbol":          signal.Symbol,
			"side":            string(signal.Side),
			"quantity":        float64(signal.Quantity),
			"price":           signal.Price,
			"strategy":        signal.Strategy,
			"client_order_id": clientOrderID,
			"error":           err.Error(),
		})
		return "", "", fmt.Errorf("%s 下单失败: %w", brokerName, err)
	}

	pm.RecordAPICall(brokerName, "orders", "success", elapsed)
	pm.RecordOrderSuccess(brokerName, signal.Symbol, string(signal.Side), elapsed)

	logger.Info("✅ %s 订单已提交 %s %s %d股 @ %.2f (订单号 %s)",
		brokerName, signal.Symbol, signal.Side, signal.Quantity, signal.Price, orderID)
	r.publish(event.EventTypeOrderPlaced, map[string]interface{}{
		"broker":          brokerName,
		"symbol":          signal.Symbol,
		"side":            string(signal.Side),
		"quantity":        float64(signal.Quantity),
		"price":           signal.Price,
		"strategy":        signal.Strategy,
		"order_id":        orderID,
		"client_order_id": clientOrderID,
	})

	return orderID, clientOrderID, nil
}

// LivePrice 透传查询指定券商的最新成交价
func (r *Router) LivePrice(ctx context.Context, brokerName, symbol string) (float64, error) {
	adapter, ok := r.adapters[brokerName]
	if !ok {
		return 0, fmt.Errorf("券商 %s: %w", brokerName, ErrBrokerNotConfigured)
	}

	pm := metrics.GetPrometheusMetrics()
	start := time.Now()
	price, err := adapter.GetLivePrice(ctx, symbol)
	if err != nil {
		pm.RecordAPICall(brokerName, "quotes", "error", time.Since(start))
		return 0, err
	}
	pm.RecordAPICall(brokerName, "quotes", "success", time.Since(start))
	return price, nil
}

// FeedPrice 给支持喂价的券商（paper）更新最新价
func (r *Router) FeedPrice(symbol string, price float64) {
	for _, adapter := range r.adapters {
		if ps, ok := adapter.(PriceSetter); ok {
			ps.SetPrice(symbol, price)
		}
	}
}

func (r *Router) publish(eventType event.EventType, data map[string]interface{}) {
	if r.eventBus == nil {
		return
	}
	r.eventBus.Publish(&event.Event{Type: eventType, Data: data})
}
