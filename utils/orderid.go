package utils

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// 订单序号计数器（同一毫秒内保证唯一）
var orderSeq uint64

// 各券商对客户端订单号的长度限制
const (
	dhanMaxLen      = 25
	growwMaxLen     = 30
	sensibullMaxLen = 32
)

// sanitizeTag 规范化策略标签：大写、去掉非字母数字、最长8位
func sanitizeTag(tag string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(tag) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
		if b.Len() >= 8 {
			break
		}
	}
	if b.Len() == 0 {
		return "SIG"
	}
	return b.String()
}

// GenerateOrderID 生成客户端订单ID
// 格式: <策略标签>_<B|S>_<毫秒时间戳><3位序号>
// 例如: MOMENTUM_B_1700000000001007
func GenerateOrderID(strategy string, side string) string {
	sideChar := "B"
	if strings.EqualFold(side, "SELL") {
		sideChar = "S"
	}
	ms := time.Now().UnixMilli()
	seq := atomic.AddUint64(&orderSeq, 1) % 1000
	return fmt.Sprintf("%s_%s_%d%03d", sanitizeTag(strategy), sideChar, ms, seq)
}

// ParseOrderID 解析客户端订单ID
// 返回策略标签、方向（BUY/SELL）、毫秒时间戳和是否合法
func ParseOrderID(clientOID string) (strategy string, side string, timestamp int64, valid bool) {
	parts := strings.Split(clientOID, "_")
	if len(parts) != 3 {
		return "", "", 0, false
	}

	strategy = parts[0]
	switch parts[1] {
	case "B":
		side = "BUY"
	case "S":
		side = "SELL"
	default:
		return "", "", 0, false
	}

	// 最后一段是 毫秒时间戳(13位) + 3位序号
	numPart := parts[2]
	if len(numPart) < 13 {
		return "", "", 0, false
	}
	ts, err := strconv.ParseInt(numPart[:13], 10, 64)
	if err != nil {
		return "", "", 0, false
	}
	return strategy, side, ts, true
}

// AddBrokerPrefix 为客户端订单ID添加券商要求的前缀并截断到长度限制
func AddBrokerPrefix(broker string, clientOID string) string {
	var prefixed string
	var maxLen int

	switch strings.ToLower(broker) {
	case "dhan":
		// dhan 的 correlationId 不要求前缀，但限制25位
		prefixed = clientOID
		maxLen = dhanMaxLen
	case "groww":
		prefixed = "g-" + clientOID
		maxLen = growwMaxLen
	case "sensibull":
		prefixed = "s-" + clientOID
		maxLen = sensibullMaxLen
	default:
		return clientOID
	}

	if len(prefixed) > maxLen {
		prefixed = prefixed[:maxLen]
	}
	return prefixed
}

// RemoveBrokerPrefix 移除券商前缀，还原客户端订单ID
func RemoveBrokerPrefix(broker string, orderID string) string {
	switch strings.ToLower(broker) {
	case "groww":
		return strings.TrimPrefix(orderID, "g-")
	case "sensibull":
		return strings.TrimPrefix(orderID, "s-")
	default:
		return orderID
	}
}
