// Package marketdata 行情数据源
// 统一的报价/K线接口，当前实现为 Yahoo 行情 HTTP API，
// 可选 Redis 缓存层包装任意数据源
package marketdata

import (
	"context"
	"errors"
	"time"

	"intradesk/indicators"
)

// ErrNoData 行情源无可用数据
// 调用方本轮跳过该标的，不得用零值代替
var ErrNoData = errors.New("行情数据不可用")

// Quote 实时报价快照
type Quote struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	Volume        float64   `json:"volume"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Open          float64   `json:"open"`
	Timestamp     time.Time `json:"timestamp"`
}

// Bar 单根K线
type Bar struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Series K线序列，按时间升序
type Series []Bar

// Closes 提取收盘价
func (s Series) Closes() []float64 {
	result := make([]float64, len(s))
	for i, b := range s {
		result[i] = b.Close
	}
	return result
}

// Last 最后一根K线
func (s Series) Last() (Bar, bool) {
	if len(s) == 0 {
		return Bar{}, false
	}
	return s[len(s)-1], true
}

// Candles 转换为指标计算用的K线
func (s Series) Candles() []indicators.Candle {
	out := make([]indicators.Candle, len(s))
	for i, b := range s {
		out[i] = indicators.Candle{
			Time:   b.Time,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		}
	}
	return out
}

// Source 行情数据源接口
type Source interface {
	// GetQuote 获取实时报价，无数据时返回 ErrNoData
	GetQuote(ctx context.Context, symbol string) (*Quote, error)
	// GetSeries 获取K线序列，lookback 为回看天数
	GetSeries(ctx context.Context, symbol string, lookback int, interval string) (Series, error)
	// Name 数据源名称
	Name() string
}
