package web

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"intradesk/event"
	"intradesk/logger"
	"intradesk/metrics"
	"intradesk/strategy"
	"intradesk/utils"
)

var webhookEventBus *event.EventBus

// SetEventBus 注入事件总线，Webhook 接收后发布 webhook_received 事件
func SetEventBus(bus *event.EventBus) {
	webhookEventBus = bus
}

// webhookPayload 外部信号载荷。symbol/action/price 必填，
// 其余字段缺省时按配置填充
type webhookPayload struct {
	Symbol     string  `json:"symbol"`
	Action     string  `json:"action"`
	Price      float64 `json:"price"`
	Quantity   int     `json:"quantity"`
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
	Strategy   string  `json:"strategy"`
	Confidence float64 `json:"confidence"`
	Broker     string  `json:"broker"`
}

// normalizeAction 归一化方向词：做多词表 → BUY，做空词表 → SELL
func normalizeAction(action string) (strategy.Side, bool) {
	switch strings.ToUpper(strings.TrimSpace(action)) {
	case "BUY", "LONG", "CALL":
		return strategy.SideBuy, true
	case "SELL", "SHORT", "PUT":
		return strategy.SideSell, true
	}
	return "", false
}

// verifySignature 校验 X-Signature 头：HMAC-SHA256(secret, body) 十六进制，常数时间比较
func verifySignature(c *gin.Context, secret string, body []byte) bool {
	provided := c.GetHeader("X-Signature")
	if provided == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(strings.ToLower(provided)), []byte(expected))
}

// handleTradingViewWebhook TradingView 图表预警接入。
// 配置了密钥时要求签名，载荷转换为交易信号后与内部信号走同一条风控→下单链路
func handleTradingViewWebhook(c *gin.Context) {
	acceptWebhook(c, "tradingview", true)
}

// handleCustomWebhook 自定义脚本接入：不校验签名，策略名固定
func handleCustomWebhook(c *gin.Context) {
	acceptWebhook(c, "custom", false)
}

func acceptWebhook(c *gin.Context, source string, checkSignature bool) {
	pm := metrics.GetPrometheusMetrics()

	if webCfg == nil || !webCfg.Webhook.Enabled {
		pm.RecordWebhookReceived(source, "disabled")
		respondError(c, http.StatusForbidden, "error.webhook_disabled")
		return
	}

	body, err := c.GetRawData()
	if err != nil || len(body) == 0 {
		pm.RecordWebhookReceived(source, "invalid")
		respondError(c, http.StatusBadRequest, "error.invalid_request")
		return
	}

	if checkSignature && webCfg.Webhook.Secret != "" {
		if !verifySignature(c, webCfg.Webhook.Secret, body) {
			logger.Warn("⚠️ Webhook 签名校验失败，来源 %s", c.ClientIP())
			pm.RecordWebhookReceived(source, "unauthorized")
			respondError(c, http.StatusUnauthorized, "error.invalid_signature")
			return
		}
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		pm.RecordWebhookReceived(source, "invalid")
		respondError(c, http.StatusBadRequest, "error.invalid_request")
		return
	}

	signal, ok := buildSignal(&payload, source)
	if !ok {
		pm.RecordWebhookReceived(source, "invalid")
		respondError(c, http.StatusBadRequest, "error.invalid_request")
		return
	}

	if engineProvider == nil {
		pm.RecordWebhookReceived(source, "unavailable")
		respondError(c, http.StatusServiceUnavailable, "error.engine_unavailable")
		return
	}

	if !engineProvider.Submit(signal) {
		pm.RecordWebhookReceived(source, "queue_full")
		respondError(c, http.StatusServiceUnavailable, "webhook.queue_full")
		return
	}

	pm.RecordWebhookReceived(source, "accepted")
	if webhookEventBus != nil {
		webhookEventBus.Publish(&event.Event{
			Type: event.EventTypeWebhookReceived,
			Data: map[string]interface{}{
				"source":   source,
				"symbol":   signal.Symbol,
				"side":     string(signal.Side),
				"price":    signal.Price,
				"quantity": signal.Quantity,
				"strategy": signal.Strategy,
				"ip":       c.ClientIP(),
			},
		})
	}

	logger.Info("📨 接收外部信号 [%s] %s %s @%.2f x%d",
		source, signal.Symbol, signal.Side, signal.Price, signal.Quantity)
	c.JSON(http.StatusOK, gin.H{
		"message": T(c, "webhook.accepted"),
		"signal":  signal,
	})
}

// buildSignal 载荷转交易信号：校验必填项并补全缺省值。
// 止损止盈缺省时按默认比例推导，方向感知，不会留零值
func buildSignal(p *webhookPayload, source string) (*strategy.TradingSignal, bool) {
	if p.Symbol == "" || p.Price <= 0 {
		return nil, false
	}
	side, ok := normalizeAction(p.Action)
	if !ok {
		return nil, false
	}
	if _, known := webCfg.SymbolByName(p.Symbol); !known {
		return nil, false
	}

	signal := &strategy.TradingSignal{
		Symbol:     p.Symbol,
		Side:       side,
		Kind:       strategy.OrderKindMarket,
		Quantity:   p.Quantity,
		Price:      p.Price,
		StopLoss:   p.StopLoss,
		TakeProfit: p.TakeProfit,
		Strategy:   p.Strategy,
		Confidence: p.Confidence,
		Broker:     p.Broker,
		CreatedAt:  utils.NowConfiguredTimezone(),
	}

	if signal.Quantity <= 0 {
		signal.Quantity = webCfg.Trading.Quantity
	}
	if signal.Broker == "" {
		signal.Broker = "dhan"
	}
	// custom 通道统一打标，策略名不接受载荷覆盖
	if source == "custom" {
		signal.Strategy = "Custom"
		if signal.Confidence <= 0 {
			signal.Confidence = 0.8
		}
	} else {
		if signal.Strategy == "" {
			signal.Strategy = "TradingView"
		}
		if signal.Confidence <= 0 {
			signal.Confidence = 0.7
		}
	}

	defaultSL, defaultTP := strategy.ExitLevels(signal.Price, side,
		webCfg.Trading.StopLossRatio, webCfg.Trading.TakeProfitRatio)
	if signal.StopLoss <= 0 {
		signal.StopLoss = defaultSL
	}
	if signal.TakeProfit <= 0 {
		signal.TakeProfit = defaultTP
	}
	return signal, true
}
