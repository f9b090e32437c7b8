package indicators

// ========== 指标快照 ==========

// Snapshot 单标的的指标快照
// 仅记录窗口长度满足的指标，数据不足的键不存在
type Snapshot struct {
	Symbol      string             `json:"symbol"`
	Values      map[string]float64 `json:"values"`
	Supports    []float64          `json:"supports"`
	Resistances []float64          `json:"resistances"`
	Bars        int                `json:"bars"`
	Time        int64              `json:"time"`
}

// Get 查询指标值，未计算时返回 false
func (s *Snapshot) Get(key string) (float64, bool) {
	if s == nil || s.Values == nil {
		return 0, false
	}
	v, ok := s.Values[key]
	return v, ok
}

// NearestResistance 高于 price 的最近阻力位
func (s *Snapshot) NearestResistance(price float64) (float64, bool) {
	if s == nil {
		return 0, false
	}
	return NearestAbove(s.Resistances, price)
}

// NearestSupport 低于 price 的最近支撑位
func (s *Snapshot) NearestSupport(price float64) (float64, bool) {
	if s == nil {
		return 0, false
	}
	return NearestBelow(s.Supports, price)
}

// SnapshotBuilder 指标快照计算器
// RSI(14)、MACD(12,26,9)、SMA(20/50)、EMA(12/26)、布林带(20)、
// ATR(14)、成交量均线(20) 加上枢轴支撑/阻力位
type SnapshotBuilder struct {
	rsi   *RSI
	macd  *MACD
	boll  *BollingerBands
	atr   *ATR
	sma20 *MovingAverage
	sma50 *MovingAverage
	ema12 *MovingAverage
	ema26 *MovingAverage
	volMA *VolumeSMA
	pivot *PivotLevels
}

// NewSnapshotBuilder 创建快照计算器
func NewSnapshotBuilder(bollMultiplier float64, pivotLeft, pivotRight int, clusterTolerance float64) *SnapshotBuilder {
	return &SnapshotBuilder{
		rsi:   NewRSI(14),
		macd:  NewMACD(12, 26, 9),
		boll:  NewBollingerBands(20, bollMultiplier),
		atr:   NewATR(14),
		sma20: NewSMAIndicator(20),
		sma50: NewSMAIndicator(50),
		ema12: NewEMAIndicator(12),
		ema26: NewEMAIndicator(26),
		volMA: NewVolumeSMA(20),
		pivot: NewPivotLevels(pivotLeft, pivotRight, clusterTolerance),
	}
}

// DefaultSnapshotBuilder 默认参数的快照计算器
func DefaultSnapshotBuilder() *SnapshotBuilder {
	return NewSnapshotBuilder(2.0, 2, 2, 0.02)
}

// Compute 对给定K线窗口计算快照
func (b *SnapshotBuilder) Compute(symbol string, candles []Candle) *Snapshot {
	snap := &Snapshot{
		Symbol: symbol,
		Values: make(map[string]float64),
		Bars:   len(candles),
	}
	if len(candles) > 0 {
		snap.Time = candles[len(candles)-1].Time
	}

	if rsi := b.rsi.Calculate(candles); len(rsi) > 0 {
		snap.Values["rsi"] = rsi[len(rsi)-1]
	}

	if macd := b.macd.CalculateMulti(candles); macd != nil {
		snap.Values["macd"] = last(macd["macd"])
		snap.Values["macd_signal"] = last(macd["signal"])
		snap.Values["macd_hist"] = last(macd["histogram"])
	}

	if v, ok := b.sma20.Last(candles); ok {
		snap.Values["sma_20"] = v
	}
	if v, ok := b.sma50.Last(candles); ok {
		snap.Values["sma_50"] = v
	}
	if v, ok := b.ema12.Last(candles); ok {
		snap.Values["ema_12"] = v
	}
	if v, ok := b.ema26.Last(candles); ok {
		snap.Values["ema_26"] = v
	}

	if boll := b.boll.CalculateMulti(candles); boll != nil {
		snap.Values["boll_upper"] = last(boll["upper"])
		snap.Values["boll_middle"] = last(boll["middle"])
		snap.Values["boll_lower"] = last(boll["lower"])
	}

	if atr := b.atr.Calculate(candles); len(atr) > 0 {
		snap.Values["atr"] = atr[len(atr)-1]
	}

	if volMA := b.volMA.Calculate(candles); len(volMA) > 0 {
		snap.Values["volume_ma"] = volMA[len(volMA)-1]
		if ratio := b.volMA.Ratio(candles); ratio > 0 {
			snap.Values["volume_ratio"] = ratio
		}
	}

	snap.Resistances = b.pivot.Resistances(candles)
	snap.Supports = b.pivot.Supports(candles)

	return snap
}

func last(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}
