package broker

import (
	"fmt"
	"time"

	"intradesk/broker/dhan"
	"intradesk/broker/groww"
	"intradesk/broker/paper"
	"intradesk/broker/sensibull"
	"intradesk/config"
)

// New 按名称创建券商适配器
func New(name string, cfg config.BrokerConfig) (Adapter, error) {
	timeout := time.Duration(cfg.Timeout) * time.Second

	switch name {
	case "dhan":
		if cfg.APIKey == "" || cfg.APISecret == "" {
			return nil, fmt.Errorf("dhan 凭证不完整")
		}
		return &dhanWrapper{client: dhan.NewClient(cfg.APIKey, cfg.APISecret, cfg.BaseURL, timeout)}, nil

	case "groww":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("groww 凭证不完整")
		}
		return &growwWrapper{client: groww.NewClient(cfg.APIKey, cfg.BaseURL, timeout)}, nil

	case "sensibull":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("sensibull 凭证不完整")
		}
		return &sensibullWrapper{client: sensibull.NewClient(cfg.APIKey, cfg.BaseURL, timeout)}, nil

	case "paper":
		return &paperWrapper{broker: paper.New()}, nil

	default:
		return nil, fmt.Errorf("不支持的券商: %s", name)
	}
}
