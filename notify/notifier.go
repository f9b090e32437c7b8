// Package notify 把事件中心筛选出的事件推送到外部渠道。
// 支持 Telegram、通用 Webhook 和 SMTP 邮件，发送全部异步，
// 单个渠道失败只记日志，不影响其他渠道。
package notify

import (
	"sync"

	"intradesk/config"
	"intradesk/event"
	"intradesk/logger"
)

// Notifier 通知渠道接口
type Notifier interface {
	Send(evt *event.Event) error
	Name() string
}

// NotificationService 通知服务
type NotificationService struct {
	notifiers []Notifier
	cfg       *config.Config
}

// NewNotificationService 创建通知服务
func NewNotificationService(cfg *config.Config) *NotificationService {
	ns := &NotificationService{
		cfg: cfg,
	}

	if cfg.Notifications.Enabled {
		if cfg.Notifications.Telegram.Enabled && cfg.Notifications.Telegram.BotToken != "" {
			telegramNotifier, err := NewTelegramNotifier(cfg)
			if err != nil {
				logger.Warn("⚠️ 初始化 Telegram 通知失败: %v", err)
			} else {
				ns.notifiers = append(ns.notifiers, telegramNotifier)
				logger.Info("✅ Telegram 通知已启用")
			}
		}

		if cfg.Notifications.Webhook.Enabled && cfg.Notifications.Webhook.URL != "" {
			webhookNotifier, err := NewWebhookNotifier(cfg)
			if err != nil {
				logger.Warn("⚠️ 初始化 Webhook 通知失败: %v", err)
			} else {
				ns.notifiers = append(ns.notifiers, webhookNotifier)
				logger.Info("✅ Webhook 通知已启用")
			}
		}

		if cfg.Notifications.Email.Enabled {
			emailNotifier, err := NewEmailNotifier(cfg)
			if err != nil {
				logger.Warn("⚠️ 初始化邮件通知失败: %v", err)
			} else {
				ns.notifiers = append(ns.notifiers, emailNotifier)
				logger.Info("✅ 邮件通知已启用 (SMTP: %s)", cfg.Notifications.Email.SMTP.Host)
			}
		}
	}

	return ns
}

// shouldNotify 按配置规则检查事件是否需要通知
func (ns *NotificationService) shouldNotify(eventType event.EventType) bool {
	if !ns.cfg.Notifications.Enabled {
		return false
	}

	rules := ns.cfg.Notifications.Rules
	switch eventType {
	case event.EventTypeSignalRejected:
		return rules.SignalRejected
	case event.EventTypeOrderPlaced:
		return rules.OrderPlaced
	case event.EventTypeOrderFailed:
		return rules.OrderFailed
	case event.EventTypeStopLoss:
		return rules.StopLoss
	case event.EventTypeTakeProfit:
		return rules.TakeProfit
	case event.EventTypeExposureReduced:
		return rules.ExposureReduced
	case event.EventTypeDailyLossLimit:
		return rules.DailyLossLimit
	case event.EventTypeAlertTriggered, event.EventTypeAlertConfirmed:
		return rules.AlertTriggered
	case event.EventTypeError:
		return rules.Error
	default:
		// 级别过滤已在事件中心完成，其余事件（系统启停等）默认通知
		return true
	}
}

// Send 发送通知（异步，不阻塞事件处理循环）
func (ns *NotificationService) Send(evt *event.Event) {
	if evt == nil {
		return
	}

	if !ns.shouldNotify(evt.Type) {
		return
	}

	go func() {
		var wg sync.WaitGroup
		for _, notifier := range ns.notifiers {
			wg.Add(1)
			go func(n Notifier) {
				defer wg.Done()
				if err := n.Send(evt); err != nil {
					logger.Warn("⚠️ [%s] 通知发送失败: %v", n.Name(), err)
				}
			}(notifier)
		}
		wg.Wait()
	}()
}

// eventTitle 事件类型对应的表情和标题，各渠道共用
func eventTitle(eventType event.EventType) (emoji, title string) {
	switch eventType {
	case event.EventTypeSignalRejected:
		return "🚫", "信号被风控拒绝"
	case event.EventTypeOrderPlaced:
		return "📝", "订单已提交"
	case event.EventTypeOrderFailed:
		return "❌", "下单失败"
	case event.EventTypePositionOpened:
		return "📈", "已开仓"
	case event.EventTypePositionClosed:
		return "📉", "已平仓"
	case event.EventTypeStopLoss:
		return "🛑", "止损触发"
	case event.EventTypeTakeProfit:
		return "💰", "止盈触发"
	case event.EventTypeExposureReduced:
		return "⚠️", "敞口超限减仓"
	case event.EventTypeDailyLossLimit:
		return "🚨", "当日亏损熔断"
	case event.EventTypeAlertTriggered:
		return "🔔", "价位提醒触发"
	case event.EventTypeAlertConfirmed:
		return "✅", "价位提醒确认"
	case event.EventTypePriceVolatility:
		return "⚡", "价格剧烈波动"
	case event.EventTypeDataUnavailable:
		return "📡", "行情数据不可用"
	case event.EventTypeSystemCPUHigh:
		return "⚠️", "CPU 使用率过高"
	case event.EventTypeSystemMemHigh:
		return "⚠️", "内存使用率过高"
	case event.EventTypeError:
		return "❌", "系统错误"
	case event.EventTypeSystemStart:
		return "🚀", "系统启动"
	case event.EventTypeSystemStop:
		return "🛑", "系统停止"
	default:
		return "ℹ️", "系统通知"
	}
}
