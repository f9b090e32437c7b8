package event

import (
	"testing"
	"time"
)

// MockNotifier 模拟通知服务
type MockNotifier struct {
	notifications []*Event
}

func (m *MockNotifier) Send(event *Event) {
	m.notifications = append(m.notifications, event)
}

func TestEventBusPublishSubscribe(t *testing.T) {
	eventBus := NewEventBus(100)
	if eventBus == nil {
		t.Fatal("创建事件总线失败")
	}

	eventBus.Publish(&Event{
		Type: EventTypeSignalGenerated,
		Data: map[string]interface{}{"symbol": "NIFTY50"},
	})

	select {
	case ev := <-eventBus.Subscribe():
		if ev.Type != EventTypeSignalGenerated {
			t.Errorf("事件类型错误: %s", ev.Type)
		}
		if ev.Timestamp.IsZero() {
			t.Error("事件时间戳未设置")
		}
	case <-time.After(time.Second):
		t.Fatal("未收到已发布的事件")
	}
}

func TestEventBusFullDrops(t *testing.T) {
	eventBus := NewEventBus(1)

	// 填满后继续发布不应阻塞
	eventBus.Publish(&Event{Type: EventTypeSystemStart})
	done := make(chan struct{})
	go func() {
		eventBus.Publish(&Event{Type: EventTypeSystemStop})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("队列满时发布事件阻塞")
	}
}

func TestEventSeverity(t *testing.T) {
	tests := []struct {
		eventType EventType
		expected  EventSeverity
	}{
		{EventTypeOrderFailed, SeverityCritical},
		{EventTypeDailyLossLimit, SeverityCritical},
		{EventTypeSignalRejected, SeverityWarning},
		{EventTypeStopLoss, SeverityWarning},
		{EventTypeExposureReduced, SeverityWarning},
		{EventTypeOrderPlaced, SeverityInfo},
		{EventTypeTakeProfit, SeverityInfo},
		{EventTypePriceVolatility, SeverityWarning},
	}

	for _, tt := range tests {
		severity := GetEventSeverity(tt.eventType)
		if severity != tt.expected {
			t.Errorf("GetEventSeverity(%s) = %s, want %s", tt.eventType, severity, tt.expected)
		}
	}
}

func TestEventSource(t *testing.T) {
	tests := []struct {
		eventType EventType
		expected  EventSource
	}{
		{EventTypeSignalGenerated, SourceEngine},
		{EventTypeSignalRejected, SourceRisk},
		{EventTypeOrderPlaced, SourceBroker},
		{EventTypeStopLoss, SourcePosition},
		{EventTypeExposureReduced, SourceMonitor},
		{EventTypeAlertTriggered, SourceAlert},
		{EventTypeDataUnavailable, SourceData},
		{EventTypeSystemCPUHigh, SourceSystem},
	}

	for _, tt := range tests {
		source := GetEventSource(tt.eventType)
		if source != tt.expected {
			t.Errorf("GetEventSource(%s) = %s, want %s", tt.eventType, source, tt.expected)
		}
	}
}

func TestEventTitle(t *testing.T) {
	tests := []EventType{
		EventTypeSignalRejected,
		EventTypeOrderPlaced,
		EventTypeStopLoss,
		EventTypeExposureReduced,
		EventTypeAlertTriggered,
	}

	for _, eventType := range tests {
		title := GetEventTitle(eventType)
		if title == "" {
			t.Errorf("GetEventTitle(%s) 返回空字符串", eventType)
		}
	}
}

func TestCheckPriceVolatility(t *testing.T) {
	eventBus := NewEventBus(10)
	config := &EventCenterConfig{
		Enabled:                  true,
		PriceVolatilityThreshold: 2.0,
		MonitoredSymbols:         []string{"NIFTY50"},
		CleanupInterval:          24,
	}
	ec := NewEventCenter(nil, eventBus, &MockNotifier{}, config)

	// 未监控的标的不触发
	ec.CheckPriceVolatility("SENSEX", 100, 110)
	// 低于阈值不触发
	ec.CheckPriceVolatility("NIFTY50", 100, 101)
	// 超过阈值触发
	ec.CheckPriceVolatility("NIFTY50", 100, 103)

	select {
	case ev := <-eventBus.Subscribe():
		if ev.Type != EventTypePriceVolatility {
			t.Errorf("事件类型错误: %s", ev.Type)
		}
		if ev.Data["symbol"] != "NIFTY50" {
			t.Errorf("标的错误: %v", ev.Data["symbol"])
		}
	case <-time.After(time.Second):
		t.Fatal("价格波动事件未发布")
	}

	// 队列中不应再有其他事件
	select {
	case ev := <-eventBus.Subscribe():
		t.Errorf("收到多余事件: %s", ev.Type)
	default:
	}
}
