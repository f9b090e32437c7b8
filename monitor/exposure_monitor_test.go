package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"intradesk/broker"
	"intradesk/config"
	"intradesk/marketdata"
	"intradesk/position"
	"intradesk/risk"
	"intradesk/strategy"
)

type fixedSource struct {
	mu     sync.Mutex
	prices map[string]float64
}

func (s *fixedSource) setPrice(symbol string, price float64) {
	s.mu.Lock()
	s.prices[symbol] = price
	s.mu.Unlock()
}

func (s *fixedSource) GetQuote(ctx context.Context, symbol string) (*marketdata.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	price, ok := s.prices[symbol]
	if !ok {
		return nil, marketdata.ErrNoData
	}
	return &marketdata.Quote{Symbol: symbol, Price: price, Timestamp: time.Now()}, nil
}

func (s *fixedSource) GetSeries(ctx context.Context, symbol string, lookback int, interval string) (marketdata.Series, error) {
	return nil, marketdata.ErrNoData
}

func (s *fixedSource) Name() string { return "fixed" }

// newTestLedger 返回接入模拟券商的台账与可控行情源
func newTestLedger(t *testing.T) (*position.Ledger, *fixedSource) {
	t.Helper()
	router, err := broker.NewRouter(config.CreateMinimalConfig(), nil, nil)
	if err != nil {
		t.Fatalf("创建路由器失败: %v", err)
	}
	source := &fixedSource{prices: make(map[string]float64)}
	return position.NewLedger(source, router, risk.NewDailyTracker(), nil, nil, time.Hour), source
}

func openPosition(l *position.Ledger, symbol string, qty int, entry float64) position.Position {
	return l.Open(&strategy.TradingSignal{
		Symbol:    symbol,
		Side:      strategy.SideBuy,
		Kind:      strategy.OrderKindMarket,
		Quantity:  qty,
		Price:     entry,
		Strategy:  "momentum",
		Broker:    "paper",
		CreatedAt: time.Now(),
	}, "O-"+symbol, "C-"+symbol)
}

func TestExposureUnderCapNoAction(t *testing.T) {
	ledger, source := newTestLedger(t)
	em := NewExposureMonitor(ledger, nil, 100000, 5)

	openPosition(ledger, "NIFTY50", 10, 6000)
	source.setPrice("NIFTY50", 6000)
	ledger.RefreshOnce(context.Background())

	em.checkOnce(context.Background())

	if ledger.Count() != 1 {
		t.Errorf("敞口未超限不应平仓, 剩余 %d", ledger.Count())
	}
}

func TestExposureClosesWorstFirst(t *testing.T) {
	ledger, source := newTestLedger(t)
	em := NewExposureMonitor(ledger, nil, 100000, 5)

	// A: 敞口 60000, 盈亏 0；B: 敞口 70000, 盈亏 -1000，总计 130000 超限
	posA := openPosition(ledger, "NIFTY50", 10, 6000)
	posB := openPosition(ledger, "BANKNIFTY", 10, 7100)
	source.setPrice("NIFTY50", 6000)
	source.setPrice("BANKNIFTY", 7000)
	ledger.RefreshOnce(context.Background())

	em.checkOnce(context.Background())

	// 平掉盈亏最差的 B 后敞口 60000 已低于上限，A 应保留
	if ledger.Count() != 1 {
		t.Fatalf("应只平掉一笔持仓, 剩余 %d", ledger.Count())
	}
	if _, ok := ledger.Get(posA.ID); !ok {
		t.Error("盈亏较好的持仓不应被平掉")
	}
	if _, ok := ledger.Get(posB.ID); ok {
		t.Error("盈亏最差的持仓应先被平掉")
	}
}

func TestExposureClosesSecondWhenStillOver(t *testing.T) {
	ledger, source := newTestLedger(t)
	em := NewExposureMonitor(ledger, nil, 50000, 5)

	openPosition(ledger, "NIFTY50", 10, 6000)
	openPosition(ledger, "BANKNIFTY", 10, 7100)
	source.setPrice("NIFTY50", 6000)
	source.setPrice("BANKNIFTY", 7000)
	ledger.RefreshOnce(context.Background())

	em.checkOnce(context.Background())

	// 平掉一笔后仍超限，继续平第二笔
	if ledger.Count() != 0 {
		t.Errorf("两笔都应被平掉, 剩余 %d", ledger.Count())
	}
}

func TestExposureBatchLimit(t *testing.T) {
	ledger, source := newTestLedger(t)
	em := NewExposureMonitor(ledger, nil, 10000, 5)

	openPosition(ledger, "NIFTY50", 10, 3000)
	openPosition(ledger, "BANKNIFTY", 10, 3000)
	openPosition(ledger, "FINNIFTY", 10, 3000)
	source.setPrice("NIFTY50", 2900)
	source.setPrice("BANKNIFTY", 2950)
	source.setPrice("FINNIFTY", 2980)
	ledger.RefreshOnce(context.Background())

	em.checkOnce(context.Background())

	// 单轮最多平 2 笔，第三笔留给下一轮
	if ledger.Count() != 1 {
		t.Errorf("单轮应只平 2 笔, 剩余 %d", ledger.Count())
	}
}
