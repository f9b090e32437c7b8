package analysis

import "intradesk/indicators"

// 情绪标签
const (
	SentimentBullish = "BULLISH"
	SentimentBearish = "BEARISH"
	SentimentNeutral = "NEUTRAL"
)

// Sentiment 技术面情绪打分结果
type Sentiment struct {
	Symbol      string  `json:"symbol"`
	Label       string  `json:"label"`
	Score       int     `json:"score"`
	Price       float64 `json:"price"`
	SMA20       float64 `json:"sma_20"`
	SMA50       float64 `json:"sma_50,omitempty"`
	RSI         float64 `json:"rsi,omitempty"`
	VolumeRatio float64 `json:"volume_ratio,omitempty"`
}

// ScoreSentiment 按指标快照给多空情绪打分。
// 计分规则：价格站上SMA20 +1，站上SMA50 +1，SMA20上穿SMA50 +1，
// RSI超卖(<30) +1，RSI超买(>70) -1，放量(量比>1.5) +1。
// 总分 >=3 看多，<=-1 看空，其余中性。
// SMA20 算不出来（K线不足20根）时直接报数据不足。
func ScoreSentiment(symbol string, price float64, snap *indicators.Snapshot) (*Sentiment, error) {
	sma20, ok := snap.Get("sma_20")
	if !ok || price <= 0 {
		return nil, ErrInsufficientData
	}

	s := &Sentiment{
		Symbol: symbol,
		Price:  price,
		SMA20:  sma20,
	}

	score := 0
	if price > sma20 {
		score++
	}

	// SMA50 需要50根K线，周期短时缺失，相关两项按0分处理
	if sma50, ok := snap.Get("sma_50"); ok {
		s.SMA50 = sma50
		if price > sma50 {
			score++
		}
		if sma20 > sma50 {
			score++
		}
	}

	if rsi, ok := snap.Get("rsi"); ok {
		s.RSI = rsi
		if rsi < 30 {
			score++
		} else if rsi > 70 {
			score--
		}
	}

	if ratio, ok := snap.Get("volume_ratio"); ok {
		s.VolumeRatio = ratio
		if ratio > 1.5 {
			score++
		}
	}

	s.Score = score
	switch {
	case score >= 3:
		s.Label = SentimentBullish
	case score <= -1:
		s.Label = SentimentBearish
	default:
		s.Label = SentimentNeutral
	}
	return s, nil
}
