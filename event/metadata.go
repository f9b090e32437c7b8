package event

// EventSeverity 事件严重程度
type EventSeverity string

const (
	SeverityInfo     EventSeverity = "info"
	SeverityWarning  EventSeverity = "warning"
	SeverityCritical EventSeverity = "critical"
)

// EventSource 事件来源
type EventSource string

const (
	SourceEngine   EventSource = "engine"
	SourceRisk     EventSource = "risk"
	SourceBroker   EventSource = "broker"
	SourcePosition EventSource = "position"
	SourceMonitor  EventSource = "monitor"
	SourceAlert    EventSource = "alert"
	SourceData     EventSource = "data"
	SourceWebhook  EventSource = "webhook"
	SourceSystem   EventSource = "system"
)

// GetEventSeverity 获取事件严重程度
func GetEventSeverity(eventType EventType) EventSeverity {
	switch eventType {
	case EventTypeOrderFailed, EventTypeDailyLossLimit, EventTypeError:
		return SeverityCritical
	case EventTypeSignalRejected, EventTypeStopLoss, EventTypeExposureReduced,
		EventTypeAlertTriggered, EventTypeDataUnavailable, EventTypePriceVolatility,
		EventTypeSystemCPUHigh, EventTypeSystemMemHigh:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// GetEventSource 获取事件来源
func GetEventSource(eventType EventType) EventSource {
	switch eventType {
	case EventTypeSignalGenerated:
		return SourceEngine
	case EventTypeSignalRejected, EventTypeDailyLossLimit:
		return SourceRisk
	case EventTypeOrderPlaced, EventTypeOrderFailed:
		return SourceBroker
	case EventTypePositionOpened, EventTypePositionClosed, EventTypeStopLoss, EventTypeTakeProfit:
		return SourcePosition
	case EventTypeExposureReduced:
		return SourceMonitor
	case EventTypeAlertTriggered, EventTypeAlertConfirmed, EventTypeAlertCancelled:
		return SourceAlert
	case EventTypeDataUnavailable, EventTypePriceVolatility:
		return SourceData
	case EventTypeWebhookReceived:
		return SourceWebhook
	default:
		return SourceSystem
	}
}

// GetEventTitle 获取事件标题
func GetEventTitle(eventType EventType) string {
	switch eventType {
	case EventTypeSignalGenerated:
		return "信号生成"
	case EventTypeSignalRejected:
		return "信号被风控拒绝"
	case EventTypeOrderPlaced:
		return "订单已提交"
	case EventTypeOrderFailed:
		return "订单提交失败"
	case EventTypePositionOpened:
		return "持仓开启"
	case EventTypePositionClosed:
		return "持仓关闭"
	case EventTypeStopLoss:
		return "止损触发"
	case EventTypeTakeProfit:
		return "止盈触发"
	case EventTypeExposureReduced:
		return "敞口超限减仓"
	case EventTypeDailyLossLimit:
		return "日亏损达到上限"
	case EventTypeAlertTriggered:
		return "预警触发"
	case EventTypeAlertConfirmed:
		return "预警确认"
	case EventTypeAlertCancelled:
		return "预警取消"
	case EventTypeDataUnavailable:
		return "行情数据不可用"
	case EventTypePriceVolatility:
		return "价格剧烈波动"
	case EventTypeWebhookReceived:
		return "外部信号接入"
	case EventTypeSystemCPUHigh:
		return "CPU使用率过高"
	case EventTypeSystemMemHigh:
		return "内存使用率过高"
	case EventTypeSystemStart:
		return "系统启动"
	case EventTypeSystemStop:
		return "系统停止"
	case EventTypeError:
		return "系统错误"
	default:
		return string(eventType)
	}
}
