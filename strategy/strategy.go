package strategy

import (
	"fmt"
	"sync"

	"intradesk/config"
	"intradesk/indicators"
	"intradesk/logger"
	"intradesk/marketdata"
	"intradesk/metrics"
)

// Strategy 策略接口
// Evaluate 为纯函数：不产生信号时返回 nil
type Strategy interface {
	Name() string
	Evaluate(quote *marketdata.Quote, snap *indicators.Snapshot, series marketdata.Series) *TradingSignal
}

// New 按名称创建策略，策略集合封闭，未知名称返回错误
func New(name string, cfg *config.Config) (Strategy, error) {
	qty := cfg.Trading.Quantity

	switch name {
	case "momentum":
		sc := cfg.Strategies.Momentum
		return &Momentum{
			Threshold:  sc.ThresholdPct,
			StopLoss:   sc.StopLossRatio,
			TakeProfit: sc.TakeProfitRatio,
			Confidence: sc.Confidence,
			Broker:     sc.Broker,
			Quantity:   qty,
		}, nil

	case "mean_reversion":
		sc := cfg.Strategies.MeanReversion
		return &MeanReversion{
			UpperBand:  sc.UpperBand,
			LowerBand:  sc.LowerBand,
			StopLoss:   sc.StopLossRatio,
			TakeProfit: sc.TakeProfitRatio,
			Confidence: sc.Confidence,
			Broker:     sc.Broker,
			Quantity:   qty,
		}, nil

	case "breakout":
		sc := cfg.Strategies.Breakout
		return &Breakout{
			HighRatio:  sc.HighRatio,
			StopLoss:   sc.StopLossRatio,
			TakeProfit: sc.TakeProfitRatio,
			Confidence: sc.Confidence,
			Broker:     sc.Broker,
			Quantity:   qty,
		}, nil

	case "volume_proxy":
		sc := cfg.Strategies.VolumeProxy
		return &VolumeProxy{
			MinVolume:    sc.MinVolume,
			MinChangePct: sc.MinChangePct,
			StopLoss:     sc.StopLossRatio,
			TakeProfit:   sc.TakeProfitRatio,
			Confidence:   sc.Confidence,
			Broker:       sc.Broker,
			Quantity:     qty,
		}, nil

	default:
		return nil, fmt.Errorf("未知策略: %s", name)
	}
}

// AllNames 封闭策略集合的全部名称
func AllNames() []string {
	return []string{"momentum", "mean_reversion", "breakout", "volume_proxy"}
}

// Manager 策略管理器，持有启用的策略集合
type Manager struct {
	mu         sync.RWMutex
	strategies []Strategy
}

// NewManager 按配置创建策略管理器
func NewManager(cfg *config.Config) *Manager {
	m := &Manager{}
	if !cfg.Strategies.Enabled {
		logger.Info("📊 策略总开关关闭，不加载任何策略")
		return m
	}

	enabled := map[string]bool{
		"momentum":       cfg.Strategies.Momentum.Enabled,
		"mean_reversion": cfg.Strategies.MeanReversion.Enabled,
		"breakout":       cfg.Strategies.Breakout.Enabled,
		"volume_proxy":   cfg.Strategies.VolumeProxy.Enabled,
	}

	for _, name := range AllNames() {
		if !enabled[name] {
			continue
		}
		s, err := New(name, cfg)
		if err != nil {
			logger.Warn("⚠️ 加载策略 %s 失败: %v", name, err)
			continue
		}
		m.strategies = append(m.strategies, s)
		logger.Info("📊 已加载策略: %s", name)
	}

	return m
}

// EvaluateAll 对单个标的运行全部策略，收集产生的信号
func (m *Manager) EvaluateAll(quote *marketdata.Quote, snap *indicators.Snapshot, series marketdata.Series) []*TradingSignal {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var signals []*TradingSignal
	for _, s := range m.strategies {
		signal := s.Evaluate(quote, snap, series)
		if signal == nil {
			continue
		}

		logger.Info("📊 %s 策略产生信号: %s %s %d股 @ %.2f (止损 %.2f 止盈 %.2f)",
			signal.Strategy, signal.Symbol, signal.Side, signal.Quantity,
			signal.Price, signal.StopLoss, signal.TakeProfit)
		metrics.GetPrometheusMetrics().RecordSignalGenerated(signal.Strategy, signal.Symbol, string(signal.Side))

		signals = append(signals, signal)
	}

	return signals
}

// Names 已启用策略名称
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.strategies))
	for _, s := range m.strategies {
		names = append(names, s.Name())
	}
	return names
}

// Count 已启用策略数量
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.strategies)
}
