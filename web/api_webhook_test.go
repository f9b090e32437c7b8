package web

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"intradesk/config"
	"intradesk/strategy"
)

type stubEngine struct {
	mu        sync.Mutex
	submitted []*strategy.TradingSignal
	full      bool
	open      bool
	nextOpen  time.Time
}

func (s *stubEngine) MarketOpen() bool { return s.open }

func (s *stubEngine) NextMarketOpen() time.Time { return s.nextOpen }

func (s *stubEngine) Symbols() []config.SymbolConfig { return nil }

func (s *stubEngine) Submit(signal *strategy.TradingSignal) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.full {
		return false
	}
	s.submitted = append(s.submitted, signal)
	return true
}

func (s *stubEngine) last(t *testing.T) *strategy.TradingSignal {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.submitted) == 0 {
		t.Fatal("没有提交任何信号")
	}
	return s.submitted[len(s.submitted)-1]
}

func newWebhookHarness(t *testing.T, mutate func(cfg *config.Config)) (*gin.Engine, *stubEngine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.CreateMinimalConfig()
	cfg.Webhook.Enabled = true
	cfg.Trading.Symbols = []config.SymbolConfig{
		{Name: "NIFTY50", Ticker: "^NSEI", Enabled: true},
		{Name: "BANKNIFTY", Ticker: "^NSEBANK", Enabled: true},
	}
	if mutate != nil {
		mutate(cfg)
	}
	SetConfig(cfg)

	eng := &stubEngine{}
	SetEngine(eng)

	r := gin.New()
	r.POST("/webhook/tradingview", handleTradingViewWebhook)
	r.POST("/webhook/custom", handleCustomWebhook)
	return r, eng
}

func postJSON(r *gin.Engine, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestWebhookDerivesDefaultExitLevels(t *testing.T) {
	r, eng := newWebhookHarness(t, nil)

	w := postJSON(r, "/webhook/tradingview",
		`{"symbol":"NIFTY50","action":"BUY","price":19000,"quantity":100}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("状态码 = %d, 期望 200, body=%s", w.Code, w.Body.String())
	}

	signal := eng.last(t)
	// 止损止盈缺省时按默认比例推导（5%/15%），不能留零值
	if !approxEqual(signal.StopLoss, 19000*0.95) {
		t.Errorf("StopLoss = %v, 期望 %v", signal.StopLoss, 19000*0.95)
	}
	if !approxEqual(signal.TakeProfit, 19000*1.15) {
		t.Errorf("TakeProfit = %v, 期望 %v", signal.TakeProfit, 19000*1.15)
	}
	if signal.Strategy != "TradingView" {
		t.Errorf("Strategy = %q, 期望 TradingView", signal.Strategy)
	}
	if !approxEqual(signal.Confidence, 0.7) {
		t.Errorf("Confidence = %v, 期望 0.7", signal.Confidence)
	}
	if signal.Broker != "dhan" {
		t.Errorf("Broker = %q, 期望 dhan", signal.Broker)
	}
	if signal.Quantity != 100 {
		t.Errorf("Quantity = %d, 期望 100", signal.Quantity)
	}
}

func TestWebhookSellDirectionExitLevels(t *testing.T) {
	r, eng := newWebhookHarness(t, nil)

	w := postJSON(r, "/webhook/tradingview",
		`{"symbol":"NIFTY50","action":"SELL","price":20000}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("状态码 = %d, 期望 200", w.Code)
	}

	signal := eng.last(t)
	// 做空方向：止损在上方，止盈在下方
	if !approxEqual(signal.StopLoss, 20000*1.05) {
		t.Errorf("StopLoss = %v, 期望 %v", signal.StopLoss, 20000*1.05)
	}
	if !approxEqual(signal.TakeProfit, 20000*0.85) {
		t.Errorf("TakeProfit = %v, 期望 %v", signal.TakeProfit, 20000*0.85)
	}
	if signal.Side != strategy.SideSell {
		t.Errorf("Side = %v, 期望 SELL", signal.Side)
	}
	// 数量缺省取配置默认值
	if signal.Quantity != 100 {
		t.Errorf("Quantity = %d, 期望 100", signal.Quantity)
	}
}

func TestWebhookKeepsExplicitExitLevels(t *testing.T) {
	r, eng := newWebhookHarness(t, nil)

	w := postJSON(r, "/webhook/tradingview",
		`{"symbol":"NIFTY50","action":"BUY","price":19000,"stop_loss":18800,"take_profit":19500,"confidence":0.9,"broker":"groww","strategy":"MyScript","quantity":50}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("状态码 = %d, 期望 200", w.Code)
	}

	signal := eng.last(t)
	if !approxEqual(signal.StopLoss, 18800) || !approxEqual(signal.TakeProfit, 19500) {
		t.Errorf("显式止损止盈被覆盖: SL=%v TP=%v", signal.StopLoss, signal.TakeProfit)
	}
	if signal.Strategy != "MyScript" || signal.Broker != "groww" {
		t.Errorf("显式字段被覆盖: strategy=%q broker=%q", signal.Strategy, signal.Broker)
	}
	if !approxEqual(signal.Confidence, 0.9) || signal.Quantity != 50 {
		t.Errorf("显式字段被覆盖: confidence=%v quantity=%d", signal.Confidence, signal.Quantity)
	}
}

func TestWebhookActionNormalization(t *testing.T) {
	cases := []struct {
		action string
		side   strategy.Side
	}{
		{"BUY", strategy.SideBuy},
		{"LONG", strategy.SideBuy},
		{"call", strategy.SideBuy},
		{"SELL", strategy.SideSell},
		{"short", strategy.SideSell},
		{"PUT", strategy.SideSell},
	}

	for _, tc := range cases {
		r, eng := newWebhookHarness(t, nil)
		w := postJSON(r, "/webhook/tradingview",
			`{"symbol":"NIFTY50","action":"`+tc.action+`","price":19000}`, nil)
		if w.Code != http.StatusOK {
			t.Errorf("action=%q 状态码 = %d, 期望 200", tc.action, w.Code)
			continue
		}
		if got := eng.last(t).Side; got != tc.side {
			t.Errorf("action=%q Side = %v, 期望 %v", tc.action, got, tc.side)
		}
	}
}

func TestWebhookRejectsInvalidPayload(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"缺少symbol", `{"action":"BUY","price":19000}`},
		{"价格为零", `{"symbol":"NIFTY50","action":"BUY","price":0}`},
		{"价格为负", `{"symbol":"NIFTY50","action":"BUY","price":-5}`},
		{"未知方向", `{"symbol":"NIFTY50","action":"HOLD","price":19000}`},
		{"未知标的", `{"symbol":"DOGE","action":"BUY","price":19000}`},
		{"非法JSON", `{symbol:NIFTY50}`},
		{"空载荷", ``},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, eng := newWebhookHarness(t, nil)
			w := postJSON(r, "/webhook/tradingview", tc.body, nil)
			if w.Code != http.StatusBadRequest {
				t.Errorf("状态码 = %d, 期望 400", w.Code)
			}
			eng.mu.Lock()
			submitted := len(eng.submitted)
			eng.mu.Unlock()
			if submitted != 0 {
				t.Errorf("非法载荷仍提交了 %d 个信号", submitted)
			}
		})
	}
}

func TestWebhookSignature(t *testing.T) {
	const secret = "tv-secret"
	body := `{"symbol":"NIFTY50","action":"BUY","price":19000}`

	sign := func(payload string) string {
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write([]byte(payload))
		return hex.EncodeToString(mac.Sum(nil))
	}

	mutate := func(cfg *config.Config) { cfg.Webhook.Secret = secret }

	// 无签名 → 401
	r, _ := newWebhookHarness(t, mutate)
	if w := postJSON(r, "/webhook/tradingview", body, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("无签名状态码 = %d, 期望 401", w.Code)
	}

	// 错误签名 → 401
	r, _ = newWebhookHarness(t, mutate)
	headers := map[string]string{"X-Signature": sign("tampered")}
	if w := postJSON(r, "/webhook/tradingview", body, headers); w.Code != http.StatusUnauthorized {
		t.Errorf("错误签名状态码 = %d, 期望 401", w.Code)
	}

	// 正确签名 → 200
	r, eng := newWebhookHarness(t, mutate)
	headers = map[string]string{"X-Signature": sign(body)}
	if w := postJSON(r, "/webhook/tradingview", body, headers); w.Code != http.StatusOK {
		t.Errorf("正确签名状态码 = %d, 期望 200", w.Code)
	}
	eng.last(t)

	// 未配置密钥时不要求签名
	r, _ = newWebhookHarness(t, nil)
	if w := postJSON(r, "/webhook/tradingview", body, nil); w.Code != http.StatusOK {
		t.Errorf("未配置密钥状态码 = %d, 期望 200", w.Code)
	}
}

func TestWebhookQueueFull(t *testing.T) {
	r, eng := newWebhookHarness(t, nil)
	eng.full = true

	w := postJSON(r, "/webhook/tradingview",
		`{"symbol":"NIFTY50","action":"BUY","price":19000}`, nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("队列满状态码 = %d, 期望 503", w.Code)
	}
}

func TestWebhookDisabled(t *testing.T) {
	r, _ := newWebhookHarness(t, func(cfg *config.Config) {
		cfg.Webhook.Enabled = false
	})

	w := postJSON(r, "/webhook/tradingview",
		`{"symbol":"NIFTY50","action":"BUY","price":19000}`, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("未启用状态码 = %d, 期望 403", w.Code)
	}
}

func TestCustomWebhookTagsStrategy(t *testing.T) {
	r, eng := newWebhookHarness(t, nil)

	// 载荷里的策略名在 custom 通道会被统一打标
	w := postJSON(r, "/webhook/custom",
		`{"symbol":"BANKNIFTY","action":"SELL","price":44000,"strategy":"Whatever"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("状态码 = %d, 期望 200", w.Code)
	}

	signal := eng.last(t)
	if signal.Strategy != "Custom" {
		t.Errorf("Strategy = %q, 期望 Custom", signal.Strategy)
	}
	if !approxEqual(signal.Confidence, 0.8) {
		t.Errorf("Confidence = %v, 期望 0.8", signal.Confidence)
	}
}

func TestCustomWebhookSkipsSignature(t *testing.T) {
	r, eng := newWebhookHarness(t, func(cfg *config.Config) {
		cfg.Webhook.Secret = "tv-secret"
	})

	// custom 通道不校验签名
	w := postJSON(r, "/webhook/custom",
		`{"symbol":"NIFTY50","action":"BUY","price":19000}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("状态码 = %d, 期望 200", w.Code)
	}
	eng.last(t)
}
