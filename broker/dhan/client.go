package dhan

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultBaseURL Dhan API 默认地址
const DefaultBaseURL = "https://api.dhan.co"

// Client Dhan REST API 客户端
// 认证方式：时间戳 + HMAC-SHA256 签名
type Client struct {
	apiKey     string
	apiSecret  string
	baseURL    string
	httpClient *http.Client
}

// NewClient 创建 Dhan 客户端
func NewClient(apiKey, apiSecret, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Name 券商名称
func (c *Client) Name() string {
	return "dhan"
}

// sign 生成签名：HMAC-SHA256(secret, apiKey + timestamp)
func (c *Client) sign(timestamp string) string {
	h := hmac.New(sha256.New, []byte(c.apiSecret))
	h.Write([]byte(c.apiKey + timestamp))
	return hex.EncodeToString(h.Sum(nil))
}

// setAuthHeaders 设置认证请求头，时间戳为毫秒
func (c *Client) setAuthHeaders(req *http.Request) {
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	req.Header.Set("X-Dhan-Api-Key", c.apiKey)
	req.Header.Set("X-Dhan-Timestamp", timestamp)
	req.Header.Set("X-Dhan-Signature", c.sign(timestamp))
}

// OrderParams 下单参数
type OrderParams struct {
	Symbol        string
	Side          string
	OrderType     string
	Quantity      int
	Price         float64
	ClientOrderID string
}

type orderPayload struct {
	Symbol        string  `json:"symbol"`
	Side          string  `json:"side"`
	OrderType     string  `json:"orderType"`
	Quantity      int     `json:"quantity"`
	Price         float64 `json:"price"`
	ProductType   string  `json:"productType"`
	ClientOrderID string  `json:"clientOrderId"`
}

// PlaceOrder 下单，返回券商订单号
func (c *Client) PlaceOrder(ctx context.Context, p *OrderParams) (string, error) {
	body, err := json.Marshal(orderPayload{
		Symbol:        p.Symbol,
		Side:          p.Side,
		OrderType:     p.OrderType,
		Quantity:      p.Quantity,
		Price:         p.Price,
		ProductType:   "INTRADAY",
		ClientOrderID: p.ClientOrderID,
	})
	if err != nil {
		return "", fmt.Errorf("序列化请求体失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuthHeaders(req)

	respBody, err := c.do(req)
	if err != nil {
		return "", err
	}

	var result struct {
		OrderID string `json:"orderId"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("解析下单响应失败: %w", err)
	}
	if result.OrderID == "" {
		return "", fmt.Errorf("下单响应缺少订单号: %s", string(respBody))
	}

	return result.OrderID, nil
}

// GetLivePrice 查询最新成交价
func (c *Client) GetLivePrice(ctx context.Context, symbol string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/quotes/"+url.PathEscape(symbol), nil)
	if err != nil {
		return 0, fmt.Errorf("创建请求失败: %w", err)
	}
	c.setAuthHeaders(req)

	respBody, err := c.do(req)
	if err != nil {
		return 0, err
	}

	var result struct {
		LTP float64 `json:"ltp"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return 0, fmt.Errorf("解析行情响应失败: %w", err)
	}

	return result.LTP, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("发送请求失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP 错误 %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
