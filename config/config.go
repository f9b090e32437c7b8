package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SymbolConfig 单个指数标的配置
type SymbolConfig struct {
	Name     string `yaml:"name" json:"name"`         // 指数名称，如 NIFTY50
	Ticker   string `yaml:"ticker" json:"ticker"`     // 行情源代码，如 ^NSEI
	Enabled  bool   `yaml:"enabled" json:"enabled"`   // 是否参与信号生成
	Quantity int    `yaml:"quantity" json:"quantity"` // 每笔信号数量（0表示使用全局默认）
}

// BrokerConfig 券商接入配置
type BrokerConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	APIKey    string `yaml:"api_key" json:"api_key"`
	APISecret string `yaml:"api_secret" json:"api_secret"` // dhan 签名需要
	BaseURL   string `yaml:"base_url" json:"base_url"`     // 留空使用默认地址
	Timeout   int    `yaml:"timeout" json:"timeout"`       // 请求超时（秒，默认10）
}

// 内置指数与行情源代码映射
var builtinTickers = map[string]string{
	"NIFTY50":   "^NSEI",
	"BANKNIFTY": "^NSEBANK",
	"SENSEX":    "^BSESN",
	"FINNIFTY":  "NIFTY_FIN_SERVICE.NS",
}

// 各券商默认 API 地址
var defaultBrokerURLs = map[string]string{
	"dhan":      "https://api.dhan.co",
	"groww":     "https://api.groww.in",
	"sensibull": "https://api.sensibull.com",
}

// Config 日内交易系统配置
type Config struct {
	// 应用配置
	App struct {
		Name         string `yaml:"name"`          // 实例名称（用于通知标题）
		DataDir      string `yaml:"data_dir"`      // 数据目录，默认 ./data
		PaperTrading bool   `yaml:"paper_trading"` // 模拟交易模式：所有信号路由到 paper 券商
	} `yaml:"app"`

	// 多券商配置（dhan / groww / sensibull / paper）
	Brokers map[string]BrokerConfig `yaml:"brokers"`

	Trading struct {
		Capital           float64 `yaml:"capital"`              // 交易本金（INR，默认100000）
		Quantity          int     `yaml:"quantity"`             // 每笔信号默认数量（默认100）
		MaxPositions      int     `yaml:"max_positions"`        // 最大并发持仓数（默认5）
		MaxDailyLossRatio float64 `yaml:"max_daily_loss_ratio"` // 日亏损上限比例（默认0.05）
		MaxRiskPerTrade   float64 `yaml:"max_risk_per_trade"`   // 单笔风险上限比例（默认0.02）
		MaxExposure       float64 `yaml:"max_exposure"`         // 总敞口上限（INR，默认等于本金）
		StopLossRatio     float64 `yaml:"stop_loss_ratio"`      // 默认止损比例（默认0.05）
		TakeProfitRatio   float64 `yaml:"take_profit_ratio"`    // 默认止盈比例（默认0.15）
		MarketOpen        string  `yaml:"market_open"`          // 开盘时间 HH:MM（默认09:15）
		MarketClose       string  `yaml:"market_close"`         // 收盘时间 HH:MM（默认15:30）

		Symbols []SymbolConfig `yaml:"symbols"` // 交易标的列表
	} `yaml:"trading"`

	// 行情数据配置
	MarketData struct {
		Provider     string `yaml:"provider"`      // 行情源: yahoo，默认 yahoo
		BaseURL      string `yaml:"base_url"`      // 留空使用默认地址
		Timeout      int    `yaml:"timeout"`       // 请求超时（秒，默认10）
		Interval     string `yaml:"interval"`      // K线周期（默认 5m）
		LookbackDays int    `yaml:"lookback_days"` // K线回看天数（默认5）

		Cache struct {
			Enabled  bool   `yaml:"enabled"`  // 是否启用 Redis 行情缓存
			TTL      int    `yaml:"ttl"`      // 缓存过期时间（秒，默认5）
			Addr     string `yaml:"addr"`     // Redis 地址，默认 localhost:6379
			Password string `yaml:"password"` // Redis 密码
			DB       int    `yaml:"db"`       // Redis 数据库
		} `yaml:"cache"`
	} `yaml:"marketdata"`

	// 策略配置
	Strategies struct {
		Enabled bool `yaml:"enabled"` // 总开关

		Momentum struct {
			Enabled         bool    `yaml:"enabled"`
			ThresholdPct    float64 `yaml:"threshold_pct"`     // 涨跌幅阈值（百分比，默认0.5）
			StopLossRatio   float64 `yaml:"stop_loss_ratio"`   // 止损比例（默认0.02）
			TakeProfitRatio float64 `yaml:"take_profit_ratio"` // 止盈比例（默认0.02）
			Confidence      float64 `yaml:"confidence"`        // 置信度（默认0.7）
			Broker          string  `yaml:"broker"`            // 目标券商（默认dhan）
		} `yaml:"momentum"`

		MeanReversion struct {
			Enabled         bool    `yaml:"enabled"`
			UpperBand       float64 `yaml:"upper_band"`        // 区间上沿（默认0.8）
			LowerBand       float64 `yaml:"lower_band"`        // 区间下沿（默认0.2）
			StopLossRatio   float64 `yaml:"stop_loss_ratio"`   // 止损比例（默认0.01）
			TakeProfitRatio float64 `yaml:"take_profit_ratio"` // 止盈比例（默认0.01）
			Confidence      float64 `yaml:"confidence"`        // 置信度（默认0.6）
			Broker          string  `yaml:"broker"`            // 目标券商（默认groww）
		} `yaml:"mean_reversion"`

		Breakout struct {
			Enabled         bool    `yaml:"enabled"`
			HighRatio       float64 `yaml:"high_ratio"`        // 接近日内高点比例（默认0.99）
			StopLossRatio   float64 `yaml:"stop_loss_ratio"`   // 止损比例（默认0.02）
			TakeProfitRatio float64 `yaml:"take_profit_ratio"` // 止盈比例（默认0.02）
			Confidence      float64 `yaml:"confidence"`        // 置信度（默认0.8）
			Broker          string  `yaml:"broker"`            // 目标券商（默认sensibull）
		} `yaml:"breakout"`

		VolumeProxy struct {
			Enabled         bool    `yaml:"enabled"`
			MinVolume       int64   `yaml:"min_volume"`        // 成交量阈值（默认1000000）
			MinChangePct    float64 `yaml:"min_change_pct"`    // 最小涨跌幅（百分比，默认0.3）
			StopLossRatio   float64 `yaml:"stop_loss_ratio"`   // 止损比例（默认0.02）
			TakeProfitRatio float64 `yaml:"take_profit_ratio"` // 止盈比例（默认0.02）
			Confidence      float64 `yaml:"confidence"`        // 置信度（默认0.75）
			Broker          string  `yaml:"broker"`            // 目标券商（默认dhan）
		} `yaml:"volume_proxy"`
	} `yaml:"strategies"`

	// 外部信号 Webhook 配置
	Webhook struct {
		Enabled bool   `yaml:"enabled"` // 是否接收外部信号
		Secret  string `yaml:"secret"`  // HMAC 签名密钥（留空则不校验签名）
	} `yaml:"webhook"`

	// 预警配置
	Alerts struct {
		Enabled          bool    `yaml:"enabled"`
		BreakoutInterval int     `yaml:"breakout_interval"` // 突破检查间隔（秒，默认30）
		MarketInterval   int     `yaml:"market_interval"`   // PCR/成交量检查间隔（秒，默认60）
		ConfirmBars      int     `yaml:"confirm_bars"`      // 突破确认K线数（默认2）
		PivotLookback    int     `yaml:"pivot_lookback"`    // 支撑阻力回看K线数（默认20）
		ClusterTolerance float64 `yaml:"cluster_tolerance"` // 价位聚类容差（默认0.02）
		PCRHigh          float64 `yaml:"pcr_high"`          // PCR 恐慌阈值（默认1.5）
		PCRLow           float64 `yaml:"pcr_low"`           // PCR 贪婪阈值（默认0.5）
		VolumeRatio      float64 `yaml:"volume_ratio"`      // 成交量异动倍数（默认2.0）
	} `yaml:"alerts"`

	// 时间间隔配置（单位：秒，除非特别说明）
	Timing struct {
		SignalInterval      int `yaml:"signal_interval"`       // 信号生成周期（秒，默认1）
		RefreshInterval     int `yaml:"refresh_interval"`      // 持仓价格刷新周期（秒，默认1）
		ExposureInterval    int `yaml:"exposure_interval"`     // 敞口检查周期（秒，默认5）
		StatusPrintInterval int `yaml:"status_print_interval"` // 定期打印状态的间隔（分钟，默认1）
	} `yaml:"timing"`

	System struct {
		LogLevel             string `yaml:"log_level"`
		Timezone             string `yaml:"timezone"`     // 时区，默认 "Asia/Kolkata"
		LogLanguage          string `yaml:"log_language"` // 日志语言，如 "zh-CN" 或 "en-US"
		ClosePositionsOnExit bool   `yaml:"close_positions_on_exit"` // 退出时是否平仓（默认false）
		LogRetentionDays     int    `yaml:"log_retention_days"`      // 日志保留天数（默认30天，0表示不清理）
	} `yaml:"system"`

	// 数据库配置（支持 SQLite、PostgreSQL、MySQL）
	Database struct {
		Type            string `yaml:"type"`              // 数据库类型: sqlite, postgres, mysql，默认 sqlite
		DSN             string `yaml:"dsn"`               // 数据源名称，默认 ./data/intradesk-report.db
		MaxOpenConns    int    `yaml:"max_open_conns"`    // 最大打开连接数，默认100
		MaxIdleConns    int    `yaml:"max_idle_conns"`    // 最大空闲连接数，默认10
		ConnMaxLifetime int    `yaml:"conn_max_lifetime"` // 连接最大生命周期（秒），默认3600
		LogLevel        string `yaml:"log_level"`         // 日志级别: silent, error, warn, info，默认 error
	} `yaml:"database"`

	// 分布式锁配置（多实例部署共用券商账户时启用）
	DistributedLock struct {
		Enabled    bool   `yaml:"enabled"`     // 是否启用分布式锁，默认false（单实例模式）
		Type       string `yaml:"type"`        // 锁类型: redis，默认 redis
		Prefix     string `yaml:"prefix"`      // 锁键前缀，默认 "intradesk:lock:"
		DefaultTTL int    `yaml:"default_ttl"` // 默认锁过期时间（秒），默认5

		Redis struct {
			Addr     string `yaml:"addr"`      // Redis 地址，默认 localhost:6379
			Password string `yaml:"password"`  // Redis 密码，默认为空
			DB       int    `yaml:"db"`        // Redis 数据库，默认0
			PoolSize int    `yaml:"pool_size"` // 连接池大小，默认10
		} `yaml:"redis"`
	} `yaml:"distributed_lock"`

	// 通知配置
	Notifications struct {
		Enabled bool `yaml:"enabled"`

		Telegram struct {
			Enabled  bool   `yaml:"enabled"`
			BotToken string `yaml:"bot_token"`
			ChatID   string `yaml:"chat_id"`
		} `yaml:"telegram"`

		Webhook struct {
			Enabled bool   `yaml:"enabled"`
			URL     string `yaml:"url"`
			Timeout int    `yaml:"timeout"` // 超时时间（秒，默认3）
		} `yaml:"webhook"`

		Email struct {
			Enabled bool `yaml:"enabled"`

			SMTP struct {
				Host     string `yaml:"host"`
				Port     int    `yaml:"port"`
				Username string `yaml:"username"`
				Password string `yaml:"password"`
			} `yaml:"smtp"`

			From    string `yaml:"from"`
			To      string `yaml:"to"`
			Subject string `yaml:"subject"`
		} `yaml:"email"`

		// 通知规则：哪些事件需要通知
		Rules struct {
			SignalRejected  bool `yaml:"signal_rejected"`
			OrderPlaced     bool `yaml:"order_placed"`
			OrderFailed     bool `yaml:"order_failed"`
			StopLoss        bool `yaml:"stop_loss"`
			TakeProfit      bool `yaml:"take_profit"`
			ExposureReduced bool `yaml:"exposure_reduced"`
			DailyLossLimit  bool `yaml:"daily_loss_limit"`
			AlertTriggered  bool `yaml:"alert_triggered"`
			Error           bool `yaml:"error"`
		} `yaml:"rules"`
	} `yaml:"notifications"`

	// 存储配置
	Storage struct {
		Enabled       bool   `yaml:"enabled"`
		Type          string `yaml:"type"`           // sqlite
		Path          string `yaml:"path"`           // 数据库文件路径
		BufferSize    int    `yaml:"buffer_size"`    // 缓冲区大小（默认1000）
		BatchSize     int    `yaml:"batch_size"`     // 批量写入大小（默认100）
		FlushInterval int    `yaml:"flush_interval"` // 刷新间隔（秒，默认5）
	} `yaml:"storage"`

	// Web 服务配置
	Web struct {
		Enabled bool   `yaml:"enabled"`
		Host    string `yaml:"host"`    // 监听地址（默认 0.0.0.0）
		Port    int    `yaml:"port"`    // 监听端口（默认 8080）
		APIKey  string `yaml:"api_key"` // API 密钥（可选，用于认证）

		// pprof 性能分析配置
		Pprof struct {
			Enabled     bool     `yaml:"enabled"`      // 是否启用 pprof，默认 false（生产环境建议禁用）
			RequireAuth bool     `yaml:"require_auth"` // 是否需要认证，默认 true
			AllowedIPs  []string `yaml:"allowed_ips"`  // IP 白名单（可选，为空则允许所有 IP）
		} `yaml:"pprof"`
	} `yaml:"web"`

	// 事件中心配置
	EventCenter struct {
		Enabled                  bool     `yaml:"enabled"`                    // 是否启用事件中心，默认true
		PriceVolatilityThreshold float64  `yaml:"price_volatility_threshold"` // 价格波动阈值（百分比），默认2.0
		MonitoredSymbols         []string `yaml:"monitored_symbols"`          // 监控价格波动的标的

		// 事件保留策略
		Retention struct {
			CriticalDays int `yaml:"critical_days"` // Critical 事件保留天数，默认365
			WarningDays  int `yaml:"warning_days"`  // Warning 事件保留天数，默认90
			InfoDays     int `yaml:"info_days"`     // Info 事件保留天数，默认30

			CriticalMaxCount int `yaml:"critical_max_count"` // Critical 事件最大保留数量，默认1000000
			WarningMaxCount  int `yaml:"warning_max_count"`  // Warning 事件最大保留数量，默认500000
			InfoMaxCount     int `yaml:"info_max_count"`     // Info 事件最大保留数量，默认300000
		} `yaml:"retention"`

		CleanupInterval int `yaml:"cleanup_interval"` // 清理间隔（小时），默认24
	} `yaml:"event_center"`

	// 监控配置
	Metrics struct {
		Enabled         bool `yaml:"enabled"`
		CollectInterval int  `yaml:"collect_interval"` // 收集间隔（秒，默认60）

		// 资源告警阈值
		CPUThreshold      float64 `yaml:"cpu_threshold"`       // CPU 使用率告警阈值（%），默认85
		MemoryThreshold   float64 `yaml:"memory_threshold"`    // 内存使用率告警阈值（%），默认85
		RateWindowMinutes int     `yaml:"rate_window_minutes"` // 变化率检查窗口（分钟），默认5
		CPUIncrease       float64 `yaml:"cpu_increase"`        // 窗口内 CPU 涨幅告警（百分点），0表示不检查
		MemoryIncreaseMB  float64 `yaml:"memory_increase_mb"`  // 窗口内内存涨幅告警（MB），0表示不检查
		CooldownMinutes   int     `yaml:"cooldown_minutes"`    // 告警冷却时间（分钟），默认30
	} `yaml:"metrics"`

	// 自选列表配置（独立文件，支持热更新）
	Watchlist struct {
		Path string `yaml:"path"` // 自选列表文件路径，留空则不启用
	} `yaml:"watchlist"`
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %v", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %v", err)
	}

	return &cfg, nil
}

// LoadConfigFromBytes 从字节数组加载配置（用于测试）
func LoadConfigFromBytes(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %v", err)
	}

	return &cfg, nil
}

// SaveConfig 保存配置到文件
func SaveConfig(cfg *Config, configPath string) error {
	// 验证配置
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("配置验证失败: %v", err)
	}

	// 序列化为YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("序列化配置失败: %v", err)
	}

	// 写入文件
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("写入配置文件失败: %v", err)
	}

	return nil
}

// SaveConfigWithoutValidation 保存配置到文件（不验证，用于保存最小化配置）
func SaveConfigWithoutValidation(cfg *Config, configPath string) error {
	// 序列化为YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("序列化配置失败: %v", err)
	}

	// 写入文件
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("写入配置文件失败: %v", err)
	}

	return nil
}

// CreateMinimalConfig 创建最小化配置（仅用于启动 Web 服务）
func CreateMinimalConfig() *Config {
	cfg := &Config{}

	// 应用配置
	cfg.App.Name = "intradesk"
	cfg.App.DataDir = "./data"
	cfg.App.PaperTrading = true

	// 券商配置：默认只有模拟券商
	cfg.Brokers = map[string]BrokerConfig{
		"paper": {Enabled: true},
	}

	// 交易配置使用全部默认值
	cfg.Trading.Capital = 100000
	cfg.Trading.Quantity = 100
	cfg.Trading.MaxPositions = 5
	cfg.Trading.MaxDailyLossRatio = 0.05
	cfg.Trading.MaxRiskPerTrade = 0.02
	cfg.Trading.MaxExposure = 100000
	cfg.Trading.StopLossRatio = 0.05
	cfg.Trading.TakeProfitRatio = 0.15
	cfg.Trading.MarketOpen = "09:15"
	cfg.Trading.MarketClose = "15:30"

	// 系统配置
	cfg.System.LogLevel = "INFO"
	cfg.System.Timezone = "Asia/Kolkata"
	cfg.System.LogLanguage = "zh-CN"
	cfg.System.ClosePositionsOnExit = false
	cfg.System.LogRetentionDays = 30

	// Web 服务配置（启用）
	cfg.Web.Enabled = true
	cfg.Web.Host = "0.0.0.0"
	cfg.Web.Port = 8080
	cfg.Web.APIKey = ""

	// 行情配置
	cfg.MarketData.Provider = "yahoo"
	cfg.MarketData.Timeout = 10
	cfg.MarketData.Interval = "5m"
	cfg.MarketData.LookbackDays = 5
	cfg.MarketData.Cache.TTL = 5

	cfg.Storage.Enabled = true
	cfg.Storage.Type = "sqlite"
	cfg.Storage.Path = "./data/intradesk.db"
	cfg.Storage.BufferSize = 1000
	cfg.Storage.BatchSize = 100
	cfg.Storage.FlushInterval = 5

	cfg.Notifications.Enabled = false
	cfg.Notifications.Webhook.Timeout = 3

	cfg.Metrics.Enabled = true
	cfg.Metrics.CollectInterval = 60
	cfg.Metrics.CPUThreshold = 85
	cfg.Metrics.MemoryThreshold = 85
	cfg.Metrics.RateWindowMinutes = 5
	cfg.Metrics.CooldownMinutes = 30

	cfg.EventCenter.Enabled = true
	cfg.EventCenter.PriceVolatilityThreshold = 2.0
	cfg.EventCenter.Retention.CriticalDays = 365
	cfg.EventCenter.Retention.WarningDays = 90
	cfg.EventCenter.Retention.InfoDays = 30
	cfg.EventCenter.Retention.CriticalMaxCount = 1000000
	cfg.EventCenter.Retention.WarningMaxCount = 500000
	cfg.EventCenter.Retention.InfoMaxCount = 300000
	cfg.EventCenter.CleanupInterval = 24

	// 时间间隔配置
	cfg.Timing.SignalInterval = 1
	cfg.Timing.RefreshInterval = 1
	cfg.Timing.ExposureInterval = 5
	cfg.Timing.StatusPrintInterval = 1

	return cfg
}

// parseClock 解析 HH:MM 格式时间
func parseClock(s string) error {
	_, err := time.Parse("15:04", s)
	return err
}

// Validate 验证配置
func (c *Config) Validate() error {
	// ==== 应用配置 ====
	if c.App.Name == "" {
		c.App.Name = "intradesk"
	}
	if c.App.DataDir == "" {
		c.App.DataDir = "./data"
	}

	// ==== 交易配置 ====
	if c.Trading.Capital < 0 {
		return fmt.Errorf("交易本金不能为负数")
	}
	if c.Trading.Capital == 0 {
		c.Trading.Capital = 100000
	}
	if c.Trading.Quantity <= 0 {
		c.Trading.Quantity = 100
	}
	if c.Trading.MaxPositions <= 0 {
		c.Trading.MaxPositions = 5
	}
	if c.Trading.MaxDailyLossRatio < 0 || c.Trading.MaxDailyLossRatio > 1 {
		return fmt.Errorf("日亏损上限比例必须在 0 到 1 之间")
	}
	if c.Trading.MaxDailyLossRatio == 0 {
		c.Trading.MaxDailyLossRatio = 0.05
	}
	if c.Trading.MaxRiskPerTrade < 0 || c.Trading.MaxRiskPerTrade > 1 {
		return fmt.Errorf("单笔风险上限比例必须在 0 到 1 之间")
	}
	if c.Trading.MaxRiskPerTrade == 0 {
		c.Trading.MaxRiskPerTrade = 0.02
	}
	if c.Trading.MaxExposure < 0 {
		return fmt.Errorf("总敞口上限不能为负数")
	}
	if c.Trading.MaxExposure == 0 {
		c.Trading.MaxExposure = c.Trading.Capital
	}
	if c.Trading.StopLossRatio <= 0 {
		c.Trading.StopLossRatio = 0.05
	}
	if c.Trading.TakeProfitRatio <= 0 {
		c.Trading.TakeProfitRatio = 0.15
	}
	if c.Trading.MarketOpen == "" {
		c.Trading.MarketOpen = "09:15"
	}
	if c.Trading.MarketClose == "" {
		c.Trading.MarketClose = "15:30"
	}
	if err := parseClock(c.Trading.MarketOpen); err != nil {
		return fmt.Errorf("开盘时间格式错误（应为 HH:MM）: %s", c.Trading.MarketOpen)
	}
	if err := parseClock(c.Trading.MarketClose); err != nil {
		return fmt.Errorf("收盘时间格式错误（应为 HH:MM）: %s", c.Trading.MarketClose)
	}

	// ==== 标的配置 ====
	// 未配置标的时使用内置四大指数
	if len(c.Trading.Symbols) == 0 {
		c.Trading.Symbols = []SymbolConfig{
			{Name: "NIFTY50", Enabled: true},
			{Name: "BANKNIFTY", Enabled: true},
			{Name: "SENSEX", Enabled: false},
			{Name: "FINNIFTY", Enabled: false},
		}
	}
	for i := range c.Trading.Symbols {
		sc := &c.Trading.Symbols[i]
		if sc.Name == "" {
			return fmt.Errorf("标的名称不能为空")
		}
		if sc.Ticker == "" {
			ticker, ok := builtinTickers[sc.Name]
			if !ok {
				return fmt.Errorf("标的 %s 未配置行情源代码且不在内置列表中", sc.Name)
			}
			sc.Ticker = ticker
		}
		if sc.Quantity <= 0 {
			sc.Quantity = c.Trading.Quantity
		}
	}

	// ==== 券商配置 ====
	if c.Brokers == nil {
		c.Brokers = make(map[string]BrokerConfig)
	}
	// 模拟交易模式下自动启用 paper 券商
	if c.App.PaperTrading {
		bc := c.Brokers["paper"]
		bc.Enabled = true
		c.Brokers["paper"] = bc
	}
	for name, bc := range c.Brokers {
		if !bc.Enabled {
			continue
		}
		// paper 券商不需要凭证
		if name == "paper" {
			continue
		}
		if bc.APIKey == "" {
			return fmt.Errorf("券商 %s 已启用但未配置 api_key", name)
		}
		// dhan 的签名认证需要密钥
		if name == "dhan" && bc.APISecret == "" {
			return fmt.Errorf("券商 dhan 已启用但未配置 api_secret")
		}
		if bc.BaseURL == "" {
			url, ok := defaultBrokerURLs[name]
			if !ok {
				return fmt.Errorf("券商 %s 未配置 base_url 且无默认地址", name)
			}
			bc.BaseURL = url
		}
		if bc.Timeout <= 0 {
			bc.Timeout = 10
		}
		c.Brokers[name] = bc
	}

	// ==== 行情配置 ====
	if c.MarketData.Provider == "" {
		c.MarketData.Provider = "yahoo"
	}
	if c.MarketData.Timeout <= 0 {
		c.MarketData.Timeout = 10
	}
	if c.MarketData.Interval == "" {
		c.MarketData.Interval = "5m"
	}
	if c.MarketData.LookbackDays <= 0 {
		c.MarketData.LookbackDays = 5
	}
	if c.MarketData.Cache.TTL <= 0 {
		c.MarketData.Cache.TTL = 5
	}
	if c.MarketData.Cache.Enabled && c.MarketData.Cache.Addr == "" {
		c.MarketData.Cache.Addr = "localhost:6379"
	}

	// ==== 策略配置 ====
	if c.Strategies.Momentum.ThresholdPct <= 0 {
		c.Strategies.Momentum.ThresholdPct = 0.5
	}
	if c.Strategies.Momentum.StopLossRatio <= 0 {
		c.Strategies.Momentum.StopLossRatio = 0.02
	}
	if c.Strategies.Momentum.TakeProfitRatio <= 0 {
		c.Strategies.Momentum.TakeProfitRatio = 0.02
	}
	if c.Strategies.Momentum.Confidence <= 0 {
		c.Strategies.Momentum.Confidence = 0.7
	}
	if c.Strategies.Momentum.Broker == "" {
		c.Strategies.Momentum.Broker = "dhan"
	}

	if c.Strategies.MeanReversion.UpperBand <= 0 {
		c.Strategies.MeanReversion.UpperBand = 0.8
	}
	if c.Strategies.MeanReversion.LowerBand <= 0 {
		c.Strategies.MeanReversion.LowerBand = 0.2
	}
	if c.Strategies.MeanReversion.LowerBand >= c.Strategies.MeanReversion.UpperBand {
		return fmt.Errorf("均值回归区间下沿必须小于上沿")
	}
	if c.Strategies.MeanReversion.StopLossRatio <= 0 {
		c.Strategies.MeanReversion.StopLossRatio = 0.01
	}
	if c.Strategies.MeanReversion.TakeProfitRatio <= 0 {
		c.Strategies.MeanReversion.TakeProfitRatio = 0.01
	}
	if c.Strategies.MeanReversion.Confidence <= 0 {
		c.Strategies.MeanReversion.Confidence = 0.6
	}
	if c.Strategies.MeanReversion.Broker == "" {
		c.Strategies.MeanReversion.Broker = "groww"
	}

	if c.Strategies.Breakout.HighRatio <= 0 || c.Strategies.Breakout.HighRatio > 1 {
		c.Strategies.Breakout.HighRatio = 0.99
	}
	if c.Strategies.Breakout.StopLossRatio <= 0 {
		c.Strategies.Breakout.StopLossRatio = 0.02
	}
	if c.Strategies.Breakout.TakeProfitRatio <= 0 {
		c.Strategies.Breakout.TakeProfitRatio = 0.02
	}
	if c.Strategies.Breakout.Confidence <= 0 {
		c.Strategies.Breakout.Confidence = 0.8
	}
	if c.Strategies.Breakout.Broker == "" {
		c.Strategies.Breakout.Broker = "sensibull"
	}

	if c.Strategies.VolumeProxy.MinVolume <= 0 {
		c.Strategies.VolumeProxy.MinVolume = 1000000
	}
	if c.Strategies.VolumeProxy.MinChangePct <= 0 {
		c.Strategies.VolumeProxy.MinChangePct = 0.3
	}
	if c.Strategies.VolumeProxy.StopLossRatio <= 0 {
		c.Strategies.VolumeProxy.StopLossRatio = 0.02
	}
	if c.Strategies.VolumeProxy.TakeProfitRatio <= 0 {
		c.Strategies.VolumeProxy.TakeProfitRatio = 0.02
	}
	if c.Strategies.VolumeProxy.Confidence <= 0 {
		c.Strategies.VolumeProxy.Confidence = 0.75
	}
	if c.Strategies.VolumeProxy.Broker == "" {
		c.Strategies.VolumeProxy.Broker = "dhan"
	}

	// ==== 预警配置 ====
	if c.Alerts.BreakoutInterval <= 0 {
		c.Alerts.BreakoutInterval = 30
	}
	if c.Alerts.MarketInterval <= 0 {
		c.Alerts.MarketInterval = 60
	}
	if c.Alerts.ConfirmBars <= 0 {
		c.Alerts.ConfirmBars = 2
	}
	if c.Alerts.ConfirmBars > 3 {
		c.Alerts.ConfirmBars = 3
	}
	if c.Alerts.PivotLookback <= 0 {
		c.Alerts.PivotLookback = 20
	}
	if c.Alerts.ClusterTolerance <= 0 {
		c.Alerts.ClusterTolerance = 0.02
	}
	if c.Alerts.PCRHigh <= 0 {
		c.Alerts.PCRHigh = 1.5
	}
	if c.Alerts.PCRLow <= 0 {
		c.Alerts.PCRLow = 0.5
	}
	if c.Alerts.PCRLow >= c.Alerts.PCRHigh {
		return fmt.Errorf("PCR 贪婪阈值必须小于恐慌阈值")
	}
	if c.Alerts.VolumeRatio <= 0 {
		c.Alerts.VolumeRatio = 2.0
	}

	// ==== 时间间隔 ====
	if c.Timing.SignalInterval <= 0 {
		c.Timing.SignalInterval = 1
	}
	if c.Timing.RefreshInterval <= 0 {
		c.Timing.RefreshInterval = 1
	}
	if c.Timing.ExposureInterval <= 0 {
		c.Timing.ExposureInterval = 5
	}
	if c.Timing.StatusPrintInterval <= 0 {
		c.Timing.StatusPrintInterval = 1
	}

	// ==== 系统配置 ====
	if c.System.LogLevel == "" {
		c.System.LogLevel = "INFO"
	}
	if c.System.Timezone == "" {
		c.System.Timezone = "Asia/Kolkata"
	}
	if c.System.LogLanguage == "" {
		c.System.LogLanguage = "zh-CN"
	}
	if c.System.LogRetentionDays < 0 {
		c.System.LogRetentionDays = 30
	}

	// ==== 数据库配置 ====
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.DSN == "" {
		c.Database.DSN = "./data/intradesk-report.db"
	}
	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = 100
	}
	if c.Database.MaxIdleConns <= 0 {
		c.Database.MaxIdleConns = 10
	}
	if c.Database.ConnMaxLifetime <= 0 {
		c.Database.ConnMaxLifetime = 3600
	}
	if c.Database.LogLevel == "" {
		c.Database.LogLevel = "error"
	}

	// ==== 分布式锁配置 ====
	if c.DistributedLock.Type == "" {
		c.DistributedLock.Type = "redis"
	}
	if c.DistributedLock.Prefix == "" {
		c.DistributedLock.Prefix = "intradesk:lock:"
	}
	if c.DistributedLock.DefaultTTL <= 0 {
		c.DistributedLock.DefaultTTL = 5
	}
	if c.DistributedLock.Enabled {
		if c.DistributedLock.Redis.Addr == "" {
			c.DistributedLock.Redis.Addr = "localhost:6379"
		}
		if c.DistributedLock.Redis.PoolSize <= 0 {
			c.DistributedLock.Redis.PoolSize = 10
		}
	}

	// ==== 存储配置 ====
	if c.Storage.Type == "" {
		c.Storage.Type = "sqlite"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "./data/intradesk.db"
	}
	if c.Storage.BufferSize <= 0 {
		c.Storage.BufferSize = 1000
	}
	if c.Storage.BatchSize <= 0 {
		c.Storage.BatchSize = 100
	}
	if c.Storage.FlushInterval <= 0 {
		c.Storage.FlushInterval = 5
	}

	// ==== 通知配置 ====
	if c.Notifications.Webhook.Timeout <= 0 {
		c.Notifications.Webhook.Timeout = 3
	}
	if c.Notifications.Enabled && c.Notifications.Telegram.Enabled {
		if c.Notifications.Telegram.BotToken == "" || c.Notifications.Telegram.ChatID == "" {
			return fmt.Errorf("telegram 通知已启用但未配置 bot_token 或 chat_id")
		}
	}
	if c.Notifications.Enabled && c.Notifications.Webhook.Enabled && c.Notifications.Webhook.URL == "" {
		return fmt.Errorf("webhook 通知已启用但未配置 url")
	}
	if c.Notifications.Enabled && c.Notifications.Email.Enabled {
		if c.Notifications.Email.SMTP.Host == "" || c.Notifications.Email.To == "" {
			return fmt.Errorf("邮件通知已启用但 SMTP 配置不完整")
		}
	}
	// 规则全空视为未配置，给一组默认开关（只通知影响资金的事件）
	if c.Notifications.Enabled {
		r := &c.Notifications.Rules
		if !r.SignalRejected && !r.OrderPlaced && !r.OrderFailed && !r.StopLoss &&
			!r.TakeProfit && !r.ExposureReduced && !r.DailyLossLimit &&
			!r.AlertTriggered && !r.Error {
			r.OrderFailed = true
			r.StopLoss = true
			r.TakeProfit = true
			r.ExposureReduced = true
			r.DailyLossLimit = true
			r.AlertTriggered = true
			r.Error = true
		}
	}

	// ==== Web 配置 ====
	if c.Web.Host == "" {
		c.Web.Host = "0.0.0.0"
	}
	if c.Web.Port <= 0 {
		c.Web.Port = 8080
	}

	// ==== 事件中心配置 ====
	if c.EventCenter.PriceVolatilityThreshold <= 0 {
		c.EventCenter.PriceVolatilityThreshold = 2.0
	}
	if c.EventCenter.Retention.CriticalDays <= 0 {
		c.EventCenter.Retention.CriticalDays = 365
	}
	if c.EventCenter.Retention.WarningDays <= 0 {
		c.EventCenter.Retention.WarningDays = 90
	}
	if c.EventCenter.Retention.InfoDays <= 0 {
		c.EventCenter.Retention.InfoDays = 30
	}
	if c.EventCenter.Retention.CriticalMaxCount <= 0 {
		c.EventCenter.Retention.CriticalMaxCount = 1000000
	}
	if c.EventCenter.Retention.WarningMaxCount <= 0 {
		c.EventCenter.Retention.WarningMaxCount = 500000
	}
	if c.EventCenter.Retention.InfoMaxCount <= 0 {
		c.EventCenter.Retention.InfoMaxCount = 300000
	}
	if c.EventCenter.CleanupInterval <= 0 {
		c.EventCenter.CleanupInterval = 24
	}

	// ==== 监控配置 ====
	if c.Metrics.CollectInterval <= 0 {
		c.Metrics.CollectInterval = 60
	}
	if c.Metrics.CPUThreshold <= 0 {
		c.Metrics.CPUThreshold = 85
	}
	if c.Metrics.MemoryThreshold <= 0 {
		c.Metrics.MemoryThreshold = 85
	}
	if c.Metrics.RateWindowMinutes <= 0 {
		c.Metrics.RateWindowMinutes = 5
	}
	if c.Metrics.CooldownMinutes <= 0 {
		c.Metrics.CooldownMinutes = 30
	}

	return nil
}

// EnabledSymbols 返回启用的标的列表
func (c *Config) EnabledSymbols() []SymbolConfig {
	var out []SymbolConfig
	for _, sc := range c.Trading.Symbols {
		if sc.Enabled {
			out = append(out, sc)
		}
	}
	return out
}

// SymbolByName 按名称查找标的配置
func (c *Config) SymbolByName(name string) (SymbolConfig, bool) {
	for _, sc := range c.Trading.Symbols {
		if sc.Name == name {
			return sc, true
		}
	}
	return SymbolConfig{}, false
}

// HasTradableBroker 检查是否有可用券商（至少一个启用的券商）
func (c *Config) HasTradableBroker() bool {
	for _, bc := range c.Brokers {
		if bc.Enabled {
			return true
		}
	}
	return false
}
