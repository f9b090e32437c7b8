package marketdata

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const quotePayload = `{
  "chart": {
    "result": [{
      "meta": {
        "symbol": "^NSEI",
        "regularMarketPrice": 24500.5,
        "chartPreviousClose": 24400.5,
        "regularMarketDayHigh": 24600,
        "regularMarketDayLow": 24350,
        "regularMarketVolume": 250000
      },
      "timestamp": [1756093500, 1756093800],
      "indicators": {
        "quote": [{
          "open": [24420.0, 24430.5],
          "high": [24450.0, 24600.0],
          "low": [24380.0, 24350.0],
          "close": [24440.0, 24500.5],
          "volume": [120000, 130000]
        }]
      }
    }],
    "error": null
  }
}`

func TestYahooGetQuote(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, quotePayload)
	}))
	defer server.Close()

	src := NewYahooSource(server.URL, 5*time.Second)
	src.SetSymbols(map[string]string{"NIFTY50": "^NSEI"})

	quote, err := src.GetQuote(context.Background(), "NIFTY50")
	if err != nil {
		t.Fatalf("GetQuote 失败: %v", err)
	}

	if gotPath != "/v8/finance/chart/^NSEI" {
		t.Errorf("符号表映射错误, 请求路径 %s", gotPath)
	}
	if quote.Symbol != "NIFTY50" {
		t.Errorf("报价应回填逻辑标的名, 得到 %s", quote.Symbol)
	}
	if quote.Price != 24500.5 {
		t.Errorf("Price = %.2f, 期望 24500.5", quote.Price)
	}
	if math.Abs(quote.Change-100) > 1e-9 {
		t.Errorf("Change = %.4f, 期望 100", quote.Change)
	}
	if math.Abs(quote.ChangePercent-100/24400.5*100) > 1e-9 {
		t.Errorf("ChangePercent = %.4f", quote.ChangePercent)
	}
	if quote.High != 24600 || quote.Low != 24350 {
		t.Errorf("High/Low = %.2f/%.2f", quote.High, quote.Low)
	}
	if quote.Open != 24420 {
		t.Errorf("Open = %.2f, 期望取首根K线开盘价 24420", quote.Open)
	}
	if quote.Volume != 250000 {
		t.Errorf("Volume = %.0f, 期望 250000", quote.Volume)
	}
}

func TestYahooGetQuoteNoData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":[],"error":null}}`)
	}))
	defer server.Close()

	src := NewYahooSource(server.URL, 5*time.Second)
	_, err := src.GetQuote(context.Background(), "NIFTY50")
	if !errors.Is(err, ErrNoData) {
		t.Errorf("空响应应返回 ErrNoData, 得到 %v", err)
	}
}

func TestYahooHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	src := NewYahooSource(server.URL, 5*time.Second)
	_, err := src.GetQuote(context.Background(), "NIFTY50")
	if !errors.Is(err, ErrNoData) {
		t.Errorf("非 2xx 应返回 ErrNoData, 得到 %v", err)
	}
}

func TestYahooGetSeries(t *testing.T) {
	payload := `{
	  "chart": {
	    "result": [{
	      "meta": {"symbol": "^NSEBANK"},
	      "timestamp": [100, 200, 300],
	      "indicators": {
	        "quote": [{
	          "open": [50.0, null, 52.0],
	          "high": [51.0, null, 53.0],
	          "low": [49.0, null, 51.0],
	          "close": [50.5, null, 52.5],
	          "volume": [1000, null, null]
	        }]
	      }
	    }],
	    "error": null
	  }
	}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("range") != "5d" || r.URL.Query().Get("interval") != "5m" {
			t.Errorf("查询参数错误: %s", r.URL.RawQuery)
		}
		fmt.Fprint(w, payload)
	}))
	defer server.Close()

	src := NewYahooSource(server.URL, 5*time.Second)
	series, err := src.GetSeries(context.Background(), "BANKNIFTY", 5, "5m")
	if err != nil {
		t.Fatalf("GetSeries 失败: %v", err)
	}

	if len(series) != 2 {
		t.Fatalf("空洞K线应被跳过, 期望 2 根, 得到 %d", len(series))
	}
	if series[0].Time != 100 || series[1].Time != 300 {
		t.Errorf("时间序列错误: %d/%d", series[0].Time, series[1].Time)
	}
	if series[0].Close != 50.5 || series[1].Close != 52.5 {
		t.Errorf("收盘价错误: %.2f/%.2f", series[0].Close, series[1].Close)
	}
	if series[1].Volume != 0 {
		t.Errorf("缺失成交量应为 0, 得到 %.0f", series[1].Volume)
	}
}

// stubSource 计数桩数据源
type stubSource struct {
	quoteCalls  int
	seriesCalls int
}

func (s *stubSource) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	s.quoteCalls++
	return &Quote{Symbol: symbol, Price: 100}, nil
}

func (s *stubSource) GetSeries(ctx context.Context, symbol string, lookback int, interval string) (Series, error) {
	s.seriesCalls++
	return Series{{Time: 1, Close: 100}}, nil
}

func (s *stubSource) Name() string { return "stub" }

func TestCachedSourceLocalFallback(t *testing.T) {
	stub := &stubSource{}
	cached := NewCachedSource(stub, nil, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := cached.GetQuote(ctx, "NIFTY50"); err != nil {
			t.Fatalf("GetQuote 失败: %v", err)
		}
	}
	if stub.quoteCalls != 1 {
		t.Errorf("TTL 内应只回源一次, 实际 %d 次", stub.quoteCalls)
	}

	for i := 0; i < 3; i++ {
		if _, err := cached.GetSeries(ctx, "NIFTY50", 5, "5m"); err != nil {
			t.Fatalf("GetSeries 失败: %v", err)
		}
	}
	if stub.seriesCalls != 1 {
		t.Errorf("K线 TTL 内应只回源一次, 实际 %d 次", stub.seriesCalls)
	}

	// 不同参数各自独立缓存
	if _, err := cached.GetSeries(ctx, "NIFTY50", 10, "5m"); err != nil {
		t.Fatalf("GetSeries 失败: %v", err)
	}
	if stub.seriesCalls != 2 {
		t.Errorf("不同回看参数应分别回源, 实际 %d 次", stub.seriesCalls)
	}
}

func TestCachedSourceExpiry(t *testing.T) {
	stub := &stubSource{}
	cached := NewCachedSource(stub, nil, 10*time.Millisecond)
	ctx := context.Background()

	cached.GetQuote(ctx, "NIFTY50")
	time.Sleep(20 * time.Millisecond)
	cached.GetQuote(ctx, "NIFTY50")

	if stub.quoteCalls != 2 {
		t.Errorf("过期后应重新回源, 实际 %d 次", stub.quoteCalls)
	}
}

func TestMarketHours(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	hours, err := NewMarketHours("09:15", "15:30", ist)
	if err != nil {
		t.Fatalf("NewMarketHours 失败: %v", err)
	}

	cases := []struct {
		name string
		t    time.Time
		open bool
	}{
		{"周二盘中", time.Date(2026, 8, 25, 10, 0, 0, 0, ist), true},
		{"开盘前一分钟", time.Date(2026, 8, 25, 9, 14, 0, 0, ist), false},
		{"开盘边界", time.Date(2026, 8, 25, 9, 15, 0, 0, ist), true},
		{"收盘前一分钟", time.Date(2026, 8, 25, 15, 29, 0, 0, ist), true},
		{"收盘那一分钟", time.Date(2026, 8, 25, 15, 30, 0, 0, ist), false},
		{"周六", time.Date(2026, 8, 29, 10, 0, 0, 0, ist), false},
		{"周日", time.Date(2026, 8, 30, 10, 0, 0, 0, ist), false},
		// UTC 05:00 = IST 10:30，判定前应先换算到日历时区
		{"UTC时刻换算", time.Date(2026, 8, 25, 5, 0, 0, 0, time.UTC), true},
	}

	for _, tc := range cases {
		if got := hours.IsOpen(tc.t); got != tc.open {
			t.Errorf("%s: IsOpen = %v, 期望 %v", tc.name, got, tc.open)
		}
	}
}

func TestMarketHoursNextOpen(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	hours, _ := NewMarketHours("09:15", "15:30", ist)

	// 周五收盘后 -> 下周一开盘
	friday := time.Date(2026, 8, 28, 16, 0, 0, 0, ist)
	next := hours.NextOpen(friday)
	want := time.Date(2026, 8, 31, 9, 15, 0, 0, ist)
	if !next.Equal(want) {
		t.Errorf("NextOpen = %v, 期望 %v", next, want)
	}
}

func TestMarketHoursInvalid(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)

	if _, err := NewMarketHours("0915", "15:30", ist); err == nil {
		t.Error("非法时间格式应报错")
	}
	if _, err := NewMarketHours("15:30", "09:15", ist); err == nil {
		t.Error("收盘早于开盘应报错")
	}
}
