package notify

import (
	"fmt"
	"net/smtp"

	"intradesk/config"
	"intradesk/event"
)

// EmailNotifier SMTP 邮件通知器
type EmailNotifier struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       string
	subject  string
}

// NewEmailNotifier 创建邮件通知器
func NewEmailNotifier(cfg *config.Config) (*EmailNotifier, error) {
	email := cfg.Notifications.Email
	if email.SMTP.Host == "" {
		return nil, fmt.Errorf("SMTP Host 未配置")
	}
	if email.From == "" || email.To == "" {
		return nil, fmt.Errorf("邮件 From 或 To 未配置")
	}

	port := email.SMTP.Port
	if port <= 0 {
		port = 587
	}

	return &EmailNotifier{
		host:     email.SMTP.Host,
		port:     port,
		username: email.SMTP.Username,
		password: email.SMTP.Password,
		from:     email.From,
		to:       email.To,
		subject:  email.Subject,
	}, nil
}

// Name 返回通知器名称
func (en *EmailNotifier) Name() string {
	return "Email"
}

// Send 发送通知
func (en *EmailNotifier) Send(evt *event.Event) error {
	subject := en.subject
	if subject == "" {
		subject = fmt.Sprintf("IntraDesk 通知: %s", string(evt.Type))
	}

	body := formatEmailMessage(evt)
	addr := fmt.Sprintf("%s:%d", en.host, en.port)
	auth := smtp.PlainAuth("", en.username, en.password, en.host)

	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		en.from, en.to, subject, body))

	return smtp.SendMail(addr, auth, en.from, []string{en.to}, msg)
}

// formatEmailMessage 格式化邮件正文
func formatEmailMessage(evt *event.Event) string {
	_, title := eventTitle(evt.Type)

	message := fmt.Sprintf("%s\n\n", title)
	message += fmt.Sprintf("时间: %s\n\n", evt.Timestamp.Format("2006-01-02 15:04:05"))

	if evt.Data != nil {
		message += "详细信息:\n"
		for key, value := range evt.Data {
			message += fmt.Sprintf("  %s: %v\n", key, value)
		}
	}

	return message
}
