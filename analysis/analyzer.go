package analysis

import (
	"context"
	"fmt"
	"time"

	"intradesk/config"
	"intradesk/indicators"
	"intradesk/logger"
	"intradesk/marketdata"
	"intradesk/utils"
)

// Suggestion 报告给出的倾向性建议（仅供参考，不进下单链路）
type Suggestion struct {
	Type       string `json:"type"`       // BUY_CALL / BUY_PUT
	Reason     string `json:"reason"`
	Confidence string `json:"confidence"` // HIGH / MEDIUM / LOW
}

// Report 单标的完整分析报告
type Report struct {
	Symbol            string            `json:"symbol"`
	Price             float64           `json:"price"`
	ChangePercent     float64           `json:"change_percent"`
	Sentiment         *Sentiment        `json:"sentiment,omitempty"`
	PCR               *PCRReading       `json:"pcr,omitempty"`
	Buildup           *BuildupReading   `json:"buildup,omitempty"`
	Unwinding         *UnwindingReading `json:"unwinding,omitempty"`
	GammaLevel        string            `json:"gamma_level,omitempty"`
	Skew              string            `json:"skew,omitempty"`
	SkewImplication   string            `json:"skew_implication,omitempty"`
	MaxPain           *MaxPain          `json:"max_pain,omitempty"`
	Supports          []float64         `json:"supports,omitempty"`
	Resistances       []float64         `json:"resistances,omitempty"`
	NearestSupport    float64           `json:"nearest_support,omitempty"`
	NearestResistance float64           `json:"nearest_resistance,omitempty"`
	Suggestions       []Suggestion      `json:"suggestions,omitempty"`
	GeneratedAt       time.Time         `json:"generated_at"`
}

// Analyzer 拉取行情并产出分析报告
type Analyzer struct {
	source   marketdata.Source
	builder  *indicators.SnapshotBuilder
	interval string
	lookback int
}

// NewAnalyzer 创建分析器，指标参数沿用预警模块的支撑阻力口径
func NewAnalyzer(source marketdata.Source, cfg *config.Config) *Analyzer {
	tolerance := cfg.Alerts.ClusterTolerance
	if tolerance <= 0 {
		tolerance = 0.02
	}
	interval := cfg.MarketData.Interval
	if interval == "" {
		interval = "5m"
	}
	lookback := cfg.MarketData.LookbackDays
	if lookback <= 0 {
		lookback = 5
	}
	return &Analyzer{
		source:   source,
		builder:  indicators.NewSnapshotBuilder(2.0, 2, 2, tolerance),
		interval: interval,
		lookback: lookback,
	}
}

// Analyze 生成标的的分析报告。
// 行情或K线拉不到时返回错误，上层展示"分析暂不可用"而不是半份报告。
func (a *Analyzer) Analyze(ctx context.Context, symbol string) (*Report, error) {
	quote, err := a.source.GetQuote(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("获取 %s 报价失败: %w", symbol, err)
	}

	series, err := a.source.GetSeries(ctx, symbol, a.lookback, a.interval)
	if err != nil {
		return nil, fmt.Errorf("获取 %s K线失败: %w", symbol, err)
	}

	snap := a.builder.Compute(symbol, series.Candles())
	report := a.Compose(symbol, quote, series, snap)
	logger.Debug("🔍 %s 分析完成: 情绪=%s PCR=%.2f 建议数=%d",
		symbol, sentimentLabel(report.Sentiment), pcrValue(report.PCR), len(report.Suggestions))
	return report, nil
}

// Compose 由已就绪的行情数据组装报告，便于离线复用
func (a *Analyzer) Compose(symbol string, quote *marketdata.Quote, series marketdata.Series, snap *indicators.Snapshot) *Report {
	report := &Report{
		Symbol:        symbol,
		Price:         quote.Price,
		ChangePercent: quote.ChangePercent,
		Supports:      snap.Supports,
		Resistances:   snap.Resistances,
		GeneratedAt:   utils.NowConfiguredTimezone(),
	}

	if lv, ok := snap.NearestSupport(quote.Price); ok {
		report.NearestSupport = lv
	}
	if lv, ok := snap.NearestResistance(quote.Price); ok {
		report.NearestResistance = lv
	}

	sentiment, err := ScoreSentiment(symbol, quote.Price, snap)
	if err == nil {
		report.Sentiment = sentiment
	}

	pcr, err := PCRProxy(series)
	if err == nil {
		reading := InterpretPCR(pcr)
		report.PCR = &reading
		report.GammaLevel = GammaExposure(pcr)
		report.Skew, report.SkewImplication = VolatilitySkew(pcr)

		label := sentimentLabel(sentiment)
		buildup := DetectBuildup(pcr, label)
		unwinding := DetectUnwinding(pcr, label)
		report.Buildup = &buildup
		report.Unwinding = &unwinding
	}

	if mp, ok := EstimateMaxPain(quote.Price, snap.Supports, snap.Resistances); ok {
		report.MaxPain = mp
	}

	report.Suggestions = buildSuggestions(report)
	return report
}

// buildSuggestions 从极端情绪和持仓堆积推导方向性建议
func buildSuggestions(r *Report) []Suggestion {
	var out []Suggestion
	if r.PCR != nil {
		switch r.PCR.Signal {
		case "EXTREME_FEAR":
			out = append(out, Suggestion{
				Type:       "BUY_CALL",
				Reason:     "PCR 显示极度恐慌，反转概率高",
				Confidence: r.PCR.Confidence,
			})
		case "EXTREME_GREED":
			out = append(out, Suggestion{
				Type:       "BUY_PUT",
				Reason:     "PCR 显示极度贪婪，回调概率高",
				Confidence: r.PCR.Confidence,
			})
		}
	}
	if r.Buildup != nil {
		switch r.Buildup.Pattern {
		case "PUT_BUILDUP":
			out = append(out, Suggestion{
				Type:       "BUY_CALL",
				Reason:     "看跌持仓堆积，轧空反弹动能强",
				Confidence: "HIGH",
			})
		case "CALL_BUILDUP":
			out = append(out, Suggestion{
				Type:       "BUY_PUT",
				Reason:     "看涨持仓堆积，回吐压力大",
				Confidence: "HIGH",
			})
		}
	}
	return out
}

func sentimentLabel(s *Sentiment) string {
	if s == nil {
		return SentimentNeutral
	}
	return s.Label
}

func pcrValue(r *PCRReading) float64 {
	if r == nil {
		return 0
	}
	return r.Value
}
