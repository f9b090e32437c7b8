package sensibull

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultBaseURL Sensibull API 默认地址
const DefaultBaseURL = "https://api.sensibull.com"

// Client Sensibull REST API 客户端
// 认证方式：X-API-Key 请求头
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient 创建 Sensibull 客户端
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Name 券商名称
func (c *Client) Name() string {
	return "sensibull"
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
	req.Header.Set("X-API-Key", c.apiKey)

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
	req.Header.Set("X-API-Key", c.apiKey)

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
