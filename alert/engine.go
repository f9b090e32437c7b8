package alert

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"intradesk/analysis"
	"intradesk/config"
	"intradesk/database"
	"intradesk/event"
	"intradesk/indicators"
	"intradesk/logger"
	"intradesk/marketdata"
	"intradesk/metrics"
	"intradesk/utils"
)

const maxHistory = 200

// Engine 预警引擎。
// 两条独立轮询：突破/跌破每30秒对照最新报价，PCR/量比每60秒对照K线。
// rules 集合只由本引擎和 Setup/Cancel 在锁内修改。
type Engine struct {
	cfg      *config.Config
	source   marketdata.Source
	db       database.Database
	eventBus *event.EventBus
	pivot    *indicators.PivotLevels
	volume   *indicators.VolumeSMA

	breakoutInterval time.Duration
	marketInterval   time.Duration
	confirmBars      int
	pivotLookback    int
	lookbackDays     int
	kline            string

	mu      sync.RWMutex
	rules   map[string]*Rule
	history []*Rule
	seq     int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine 创建预警引擎
func NewEngine(cfg *config.Config, source marketdata.Source, db database.Database, eventBus *event.EventBus) *Engine {
	breakoutSec := cfg.Alerts.BreakoutInterval
	if breakoutSec <= 0 {
		breakoutSec = 30
	}
	marketSec := cfg.Alerts.MarketInterval
	if marketSec <= 0 {
		marketSec = 60
	}
	confirmBars := cfg.Alerts.ConfirmBars
	if confirmBars <= 0 {
		confirmBars = 2
	}
	pivotLookback := cfg.Alerts.PivotLookback
	if pivotLookback <= 0 {
		pivotLookback = 20
	}
	tolerance := cfg.Alerts.ClusterTolerance
	if tolerance <= 0 {
		tolerance = 0.02
	}
	lookback := cfg.MarketData.LookbackDays
	if lookback <= 0 {
		lookback = 5
	}
	kline := cfg.MarketData.Interval
	if kline == "" {
		kline = "5m"
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		cfg:              cfg,
		source:           source,
		db:               db,
		eventBus:         eventBus,
		pivot:            indicators.NewPivotLevels(2, 2, tolerance),
		volume:           indicators.NewVolumeSMA(20),
		breakoutInterval: time.Duration(breakoutSec) * time.Second,
		marketInterval:   time.Duration(marketSec) * time.Second,
		confirmBars:      confirmBars,
		pivotLookback:    pivotLookback,
		lookbackDays:     lookback,
		kline:            kline,
		rules:            make(map[string]*Rule),
		ctx:              ctx,
		cancel:           cancel,
	}
}

// Start 启动两条检查循环
func (e *Engine) Start() {
	if !e.cfg.Alerts.Enabled {
		logger.Info("⚠️ 预警引擎未启用")
		return
	}

	logger.Info("🔔 启动预警引擎: 突破检查 %v，市场检查 %v", e.breakoutInterval, e.marketInterval)
	e.wg.Add(2)
	go e.breakoutLoop()
	go e.marketLoop()
}

// Stop 停止检查循环
func (e *Engine) Stop() {
	e.cancel()
	e.wg.Wait()
	logger.Info("⏹️ 预警引擎已停止")
}

// Setup 创建预警规则。
// breakout/breakdown 未指定关口时，从近期K线的枢轴位中取现价上方最近阻力
// 或下方最近支撑；pcr/volume 未指定阈值时用配置默认值。
func (e *Engine) Setup(ctx context.Context, symbol string, kind Kind, level float64, note string) (*Rule, error) {
	if symbol == "" {
		return nil, fmt.Errorf("标的不能为空")
	}
	if !ValidKind(kind) {
		return nil, fmt.Errorf("未知预警类型: %s", kind)
	}

	rule := &Rule{
		Symbol:    symbol,
		Kind:      kind,
		Status:    StatusActive,
		CreatedAt: utils.NowConfiguredTimezone(),
		Note:      note,
	}

	switch kind {
	case KindBreakout, KindBreakdown:
		target := level
		if target <= 0 {
			derived, err := e.deriveLevel(ctx, symbol, kind)
			if err != nil {
				return nil, err
			}
			target = derived
		}
		if kind == KindBreakout {
			rule.Resistance = target
		} else {
			rule.Support = target
		}
	case KindPCR:
		rule.Threshold = level
		if rule.Threshold <= 0 {
			rule.Threshold = e.cfg.Alerts.PCRHigh
		}
		if rule.Threshold <= 0 {
			rule.Threshold = 1.5
		}
	case KindVolume:
		rule.Threshold = level
		if rule.Threshold <= 0 {
			rule.Threshold = e.cfg.Alerts.VolumeRatio
		}
		if rule.Threshold <= 0 {
			rule.Threshold = 2.0
		}
	}

	e.mu.Lock()
	e.seq++
	rule.ID = fmt.Sprintf("%s_%s_%s_%03d",
		strings.ToUpper(string(kind)), symbol,
		rule.CreatedAt.Format("20060102_150405"), e.seq%1000)
	e.rules[rule.ID] = rule
	snapshot := *rule
	live := len(e.rules)
	e.mu.Unlock()

	metrics.GetPrometheusMetrics().SetActiveAlerts(live)
	logger.Info("🔔 创建预警 %s: %s %s 关口 %.2f", rule.ID, symbol, kind, rule.Level())
	return &snapshot, nil
}

// deriveLevel 从枢轴位推导监控关口
func (e *Engine) deriveLevel(ctx context.Context, symbol string, kind Kind) (float64, error) {
	quote, err := e.source.GetQuote(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("无法获取 %s 报价: %w", symbol, err)
	}
	series, err := e.source.GetSeries(ctx, symbol, e.lookbackDays, e.kline)
	if err != nil {
		return 0, fmt.Errorf("无法获取 %s K线: %w", symbol, err)
	}

	candles := series.Candles()
	if len(candles) > e.pivotLookback {
		candles = candles[len(candles)-e.pivotLookback:]
	}

	if kind == KindBreakout {
		levels := e.pivot.Resistances(candles)
		if lv, ok := indicators.NearestAbove(levels, quote.Price); ok {
			return lv, nil
		}
		return 0, fmt.Errorf("%s 现价上方没有可用阻力位", symbol)
	}
	levels := e.pivot.Supports(candles)
	if lv, ok := indicators.NearestBelow(levels, quote.Price); ok {
		return lv, nil
	}
	return 0, fmt.Errorf("%s 现价下方没有可用支撑位", symbol)
}

// Cancel 取消存续中的规则并移入历史
func (e *Engine) Cancel(ctx context.Context, id string) error {
	e.mu.Lock()
	rule, ok := e.rules[id]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("预警 %s 不存在或已结束", id)
	}
	rule.Status = StatusCancelled
	delete(e.rules, id)
	e.appendHistory(rule)
	snapshot := *rule
	live := len(e.rules)
	e.mu.Unlock()

	metrics.GetPrometheusMetrics().SetActiveAlerts(live)
	e.persist(&snapshot, fmt.Sprintf("预警已取消: %s", id))
	e.publish(event.EventTypeAlertCancelled, &snapshot, snapshot.BreachPrice)
	logger.Info("🗑️ 取消预警 %s", id)
	return nil
}

// Active 存续规则快照，按创建时间排序
func (e *Engine) Active() []Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]Rule, 0, len(e.rules))
	for _, r := range e.rules {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// History 已结束规则快照，新的在前
func (e *Engine) History() []Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]Rule, 0, len(e.history))
	for i := len(e.history) - 1; i >= 0; i-- {
		out = append(out, *e.history[i])
	}
	return out
}

// Get 按ID查询存续规则
func (e *Engine) Get(id string) (Rule, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if r, ok := e.rules[id]; ok {
		return *r, true
	}
	return Rule{}, false
}

func (e *Engine) breakoutLoop() {
	defer e.wg.Done()

	e.CheckBreakouts(e.ctx)
	ticker := time.NewTicker(e.breakoutInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.CheckBreakouts(e.ctx)
		}
	}
}

func (e *Engine) marketLoop() {
	defer e.wg.Done()

	e.CheckMarket(e.ctx)
	ticker := time.NewTicker(e.marketInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.CheckMarket(e.ctx)
		}
	}
}

// CheckBreakouts 跑一轮突破/跌破检查。
// ACTIVE 规则对照最新报价判断首次突破；TRIGGERED 规则对照K线收盘确认。
func (e *Engine) CheckBreakouts(ctx context.Context) {
	rules := e.liveByKind(KindBreakout, KindBreakdown)
	if len(rules) == 0 {
		return
	}

	quotes := make(map[string]*marketdata.Quote)
	seriesCache := make(map[string]marketdata.Series)

	for _, r := range rules {
		quote, ok := quotes[r.Symbol]
		if !ok {
			q, err := e.source.GetQuote(ctx, r.Symbol)
			if err != nil {
				logger.Debug("⏭️ %s 报价不可用，本轮跳过突破检查: %v", r.Symbol, err)
				quotes[r.Symbol] = nil
				continue
			}
			quote = q
			quotes[r.Symbol] = q
		}
		if quote == nil {
			continue
		}

		switch r.Status {
		case StatusActive:
			if breached(&r, quote.Price) {
				e.triggerBreakout(r.ID, quote.Price)
			}
		case StatusTriggered:
			series, ok := seriesCache[r.Symbol]
			if !ok {
				s, err := e.source.GetSeries(ctx, r.Symbol, e.lookbackDays, e.kline)
				if err != nil {
					logger.Debug("⏭️ %s K线不可用，本轮跳过确认: %v", r.Symbol, err)
					seriesCache[r.Symbol] = nil
					continue
				}
				series = s
				seriesCache[r.Symbol] = s
			}
			if series == nil {
				continue
			}
			if e.confirmed(&r, series) {
				e.confirmBreakout(r.ID)
			}
		}
	}
}

// CheckMarket 跑一轮 PCR/量比检查，命中即触发并退场（一次性预警）
func (e *Engine) CheckMarket(ctx context.Context) {
	rules := e.liveByKind(KindPCR, KindVolume)
	if len(rules) == 0 {
		return
	}

	seriesCache := make(map[string]marketdata.Series)
	for _, r := range rules {
		if r.Status != StatusActive {
			continue
		}
		series, ok := seriesCache[r.Symbol]
		if !ok {
			s, err := e.source.GetSeries(ctx, r.Symbol, e.lookbackDays, e.kline)
			if err != nil {
				logger.Debug("⏭️ %s K线不可用，本轮跳过市场检查: %v", r.Symbol, err)
				seriesCache[r.Symbol] = nil
				continue
			}
			series = s
			seriesCache[r.Symbol] = s
		}
		if series == nil {
			continue
		}

		switch r.Kind {
		case KindPCR:
			pcr, err := analysis.PCRProxy(series)
			if err != nil {
				logger.Debug("⏭️ %s K线不足，无法计算PCR: %v", r.Symbol, err)
				continue
			}
			if pcr > r.Threshold {
				e.triggerMarket(r.ID, pcr)
			}
		case KindVolume:
			ratio := e.volume.Ratio(series.Candles())
			if ratio > r.Threshold {
				e.triggerMarket(r.ID, ratio)
			}
		}
	}
}

// liveByKind 指定类型的存续规则快照
func (e *Engine) liveByKind(kinds ...Kind) []Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []Rule
	for _, r := range e.rules {
		for _, k := range kinds {
			if r.Kind == k {
				out = append(out, *r)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func breached(r *Rule, price float64) bool {
	switch r.Kind {
	case KindBreakout:
		return r.Resistance > 0 && price > r.Resistance
	case KindBreakdown:
		return r.Support > 0 && price < r.Support
	}
	return false
}

// confirmed 最近 confirmBars 根K线收盘全部站稳关口外侧
func (e *Engine) confirmed(r *Rule, series marketdata.Series) bool {
	closes := series.Closes()
	if len(closes) < e.confirmBars {
		return false
	}
	tail := closes[len(closes)-e.confirmBars:]
	for _, c := range tail {
		if r.Kind == KindBreakout && c <= r.Resistance {
			return false
		}
		if r.Kind == KindBreakdown && c >= r.Support {
			return false
		}
	}
	return true
}

// triggerBreakout 首次突破：转 TRIGGERED 并发交易计划通知，等待确认
func (e *Engine) triggerBreakout(id string, price float64) {
	e.mu.Lock()
	rule, ok := e.rules[id]
	if !ok || rule.Status != StatusActive {
		e.mu.Unlock()
		return
	}
	rule.Status = StatusTriggered
	rule.TriggeredAt = utils.NowConfiguredTimezone()
	rule.BreachPrice = price
	snapshot := *rule
	e.mu.Unlock()

	plan := BuildTradePlan(snapshot.Kind, snapshot.Symbol, price, snapshot.Level(),
		e.cfg.Trading.Capital, e.cfg.Trading.MaxRiskPerTrade)
	msg := plan.Message(snapshot.Kind, snapshot.Level(), snapshot.TriggeredAt)

	metrics.GetPrometheusMetrics().RecordAlertTriggered(snapshot.Symbol, string(snapshot.Kind))
	e.persist(&snapshot, msg)
	e.publish(event.EventTypeAlertTriggered, &snapshot, price)
	logger.Warn("🚨 预警触发 %s: %s %s 价格 %.2f 关口 %.2f",
		snapshot.ID, snapshot.Symbol, snapshot.Kind, price, snapshot.Level())
}

// confirmBreakout 确认成立：转 CONFIRMED 并退入历史
func (e *Engine) confirmBreakout(id string) {
	e.mu.Lock()
	rule, ok := e.rules[id]
	if !ok || rule.Status != StatusTriggered {
		e.mu.Unlock()
		return
	}
	rule.Status = StatusConfirmed
	delete(e.rules, id)
	e.appendHistory(rule)
	snapshot := *rule
	live := len(e.rules)
	e.mu.Unlock()

	metrics.GetPrometheusMetrics().SetActiveAlerts(live)
	e.persist(&snapshot, fmt.Sprintf("%s %s 突破确认: 连续 %d 根K线站稳 %.2f",
		snapshot.Symbol, snapshot.Kind, e.confirmBars, snapshot.Level()))
	e.publish(event.EventTypeAlertConfirmed, &snapshot, snapshot.BreachPrice)
	logger.Info("✅ 预警确认 %s: %s 站稳关口 %.2f", snapshot.ID, snapshot.Symbol, snapshot.Level())
}

// triggerMarket PCR/量比命中：触发即退入历史，避免每轮重复轰炸
func (e *Engine) triggerMarket(id string, measured float64) {
	e.mu.Lock()
	rule, ok := e.rules[id]
	if !ok || rule.Status != StatusActive {
		e.mu.Unlock()
		return
	}
	rule.Status = StatusTriggered
	rule.TriggeredAt = utils.NowConfiguredTimezone()
	rule.BreachPrice = measured
	delete(e.rules, id)
	e.appendHistory(rule)
	snapshot := *rule
	live := len(e.rules)
	e.mu.Unlock()

	msg := marketMessage(&snapshot, measured, snapshot.TriggeredAt)
	metrics.GetPrometheusMetrics().RecordAlertTriggered(snapshot.Symbol, string(snapshot.Kind))
	metrics.GetPrometheusMetrics().SetActiveAlerts(live)
	e.persist(&snapshot, msg)
	e.publish(event.EventTypeAlertTriggered, &snapshot, measured)
	logger.Warn("🚨 预警触发 %s: %s %s 测量值 %.2f 阈值 %.2f",
		snapshot.ID, snapshot.Symbol, snapshot.Kind, measured, snapshot.Threshold)
}

// appendHistory 调用方需持有写锁
func (e *Engine) appendHistory(r *Rule) {
	e.history = append(e.history, r)
	if len(e.history) > maxHistory {
		e.history = e.history[len(e.history)-maxHistory:]
	}
}

// persist 落库一条预警记录，失败只记日志
func (e *Engine) persist(r *Rule, message string) {
	if e.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	record := &database.AlertRecord{
		Symbol:    r.Symbol,
		Kind:      string(r.Kind),
		Level:     r.Level(),
		Status:    strings.ToLower(string(r.Status)),
		Message:   message,
		CreatedAt: utils.NowConfiguredTimezone(),
	}
	if err := e.db.SaveAlert(ctx, record); err != nil {
		logger.Error("❌ 保存预警记录失败: %v", err)
	}
}

func (e *Engine) publish(eventType event.EventType, r *Rule, price float64) {
	if e.eventBus == nil {
		return
	}
	e.eventBus.Publish(&event.Event{
		Type:      eventType,
		Timestamp: utils.NowConfiguredTimezone(),
		Data: map[string]interface{}{
			"symbol": r.Symbol,
			"kind":   string(r.Kind),
			"level":  r.Level(),
			"price":  price,
		},
	})
}
