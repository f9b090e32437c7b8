package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"intradesk/logger"
	"intradesk/metrics"
)

// DefaultYahooBaseURL Yahoo 行情 API 默认地址
const DefaultYahooBaseURL = "https://query1.finance.yahoo.com"

// YahooSource Yahoo 行情数据源
// 逻辑标的名（如 NIFTY50）经符号表映射为行情代码（如 ^NSEI），
// 未登记的名称按原样作为行情代码使用
type YahooSource struct {
	baseURL    string
	httpClient *http.Client

	mu      sync.RWMutex
	tickers map[string]string
}

// NewYahooSource 创建 Yahoo 行情数据源
func NewYahooSource(baseURL string, timeout time.Duration) *YahooSource {
	if baseURL == "" {
		baseURL = DefaultYahooBaseURL
	}
	return &YahooSource{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		tickers: make(map[string]string),
	}
}

// SetSymbols 整体替换符号表，监控列表热更新时调用
func (y *YahooSource) SetSymbols(tickers map[string]string) {
	table := make(map[string]string, len(tickers))
	for name, ticker := range tickers {
		table[name] = ticker
	}

	y.mu.Lock()
	y.tickers = table
	y.mu.Unlock()
}

// Name 数据源名称
func (y *YahooSource) Name() string {
	return "yahoo"
}

func (y *YahooSource) resolve(symbol string) string {
	y.mu.RLock()
	defer y.mu.RUnlock()
	if ticker, ok := y.tickers[symbol]; ok && ticker != "" {
		return ticker
	}
	return symbol
}

// chartResponse Yahoo v8 chart 接口响应
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol               string  `json:"symbol"`
				RegularMarketPrice   float64 `json:"regularMarketPrice"`
				ChartPreviousClose   float64 `json:"chartPreviousClose"`
				PreviousClose        float64 `json:"previousClose"`
				RegularMarketDayHigh float64 `json:"regularMarketDayHigh"`
				RegularMarketDayLow  float64 `json:"regularMarketDayLow"`
				RegularMarketVolume  float64 `json:"regularMarketVolume"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (y *YahooSource) fetchChart(ctx context.Context, ticker, rng, interval string) (*chartResponse, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s", y.baseURL, url.PathEscape(ticker))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}

	q := req.URL.Query()
	q.Set("range", rng)
	q.Set("interval", interval)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("User-Agent", "IntraDesk/1.0")

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("行情请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Warn("⚠️ 行情接口返回异常状态: %s %d", ticker, resp.StatusCode)
		return nil, fmt.Errorf("行情接口 HTTP %d: %w", resp.StatusCode, ErrNoData)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取行情响应失败: %w", err)
	}

	var chart chartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("解析行情响应失败: %w", err)
	}

	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("行情接口错误 %s: %w", chart.Chart.Error.Code, ErrNoData)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("行情响应为空: %w", ErrNoData)
	}

	return &chart, nil
}

// GetQuote 获取实时报价
func (y *YahooSource) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	start := time.Now()
	ticker := y.resolve(symbol)

	chart, err := y.fetchChart(ctx, ticker, "1d", "5m")
	if err != nil {
		metrics.GetPrometheusMetrics().RecordQuoteFetch(y.Name(), symbol, "error", time.Since(start))
		return nil, err
	}

	result := chart.Chart.Result[0]
	meta := result.Meta

	quote := &Quote{
		Symbol:    symbol,
		Price:     meta.RegularMarketPrice,
		High:      meta.RegularMarketDayHigh,
		Low:       meta.RegularMarketDayLow,
		Volume:    meta.RegularMarketVolume,
		Timestamp: time.Now(),
	}

	// meta 缺字段时从K线补齐
	if len(result.Indicators.Quote) > 0 {
		bars := result.Indicators.Quote[0]
		for _, v := range bars.Open {
			if v != nil {
				if quote.Open == 0 {
					quote.Open = *v
				}
				break
			}
		}
		for i := len(bars.Close) - 1; i >= 0; i-- {
			if bars.Close[i] != nil {
				if quote.Price == 0 {
					quote.Price = *bars.Close[i]
				}
				break
			}
		}
		for _, v := range bars.High {
			if v != nil && *v > quote.High {
				quote.High = *v
			}
		}
		for _, v := range bars.Low {
			if v != nil && (quote.Low == 0 || *v < quote.Low) {
				quote.Low = *v
			}
		}
		if quote.Volume == 0 {
			for _, v := range bars.Volume {
				if v != nil {
					quote.Volume += *v
				}
			}
		}
	}

	if quote.Price == 0 {
		metrics.GetPrometheusMetrics().RecordQuoteFetch(y.Name(), symbol, "empty", time.Since(start))
		return nil, fmt.Errorf("%s 无有效报价: %w", symbol, ErrNoData)
	}

	prevClose := meta.ChartPreviousClose
	if prevClose == 0 {
		prevClose = meta.PreviousClose
	}
	if prevClose > 0 {
		quote.Change = quote.Price - prevClose
		quote.ChangePercent = quote.Change / prevClose * 100
	}

	metrics.GetPrometheusMetrics().RecordQuoteFetch(y.Name(), symbol, "success", time.Since(start))
	metrics.GetPrometheusMetrics().SetCurrentPrice(symbol, quote.Price)
	return quote, nil
}

// GetSeries 获取K线序列
func (y *YahooSource) GetSeries(ctx context.Context, symbol string, lookback int, interval string) (Series, error) {
	start := time.Now()
	ticker := y.resolve(symbol)
	if lookback <= 0 {
		lookback = 5
	}
	if interval == "" {
		interval = "5m"
	}

	chart, err := y.fetchChart(ctx, ticker, fmt.Sprintf("%dd", lookback), interval)
	if err != nil {
		metrics.GetPrometheusMetrics().RecordQuoteFetch(y.Name(), symbol, "error", time.Since(start))
		return nil, err
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		metrics.GetPrometheusMetrics().RecordQuoteFetch(y.Name(), symbol, "empty", time.Since(start))
		return nil, fmt.Errorf("%s 无K线数据: %w", symbol, ErrNoData)
	}

	bars := result.Indicators.Quote[0]
	series := make(Series, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(bars.Open) || i >= len(bars.High) || i >= len(bars.Low) || i >= len(bars.Close) {
			break
		}
		// 跳过停牌等原因产生的空洞
		if bars.Open[i] == nil || bars.High[i] == nil || bars.Low[i] == nil || bars.Close[i] == nil {
			continue
		}

		bar := Bar{
			Time:  ts,
			Open:  *bars.Open[i],
			High:  *bars.High[i],
			Low:   *bars.Low[i],
			Close: *bars.Close[i],
		}
		if i < len(bars.Volume) && bars.Volume[i] != nil {
			bar.Volume = *bars.Volume[i]
		}
		series = append(series, bar)
	}

	if len(series) == 0 {
		metrics.GetPrometheusMetrics().RecordQuoteFetch(y.Name(), symbol, "empty", time.Since(start))
		return nil, fmt.Errorf("%s 无K线数据: %w", symbol, ErrNoData)
	}

	metrics.GetPrometheusMetrics().RecordQuoteFetch(y.Name(), symbol, "success", time.Since(start))
	return series, nil
}
