package config

import (
	"os"
	"path/filepath"
	"testing"
)

func createValidConfig() *Config {
	cfg := &Config{}
	cfg.Brokers = map[string]BrokerConfig{
		"dhan": {
			Enabled:   true,
			APIKey:    "test_key",
			APISecret: "test_secret",
		},
	}
	cfg.Trading.Capital = 100000
	cfg.Trading.Symbols = []SymbolConfig{
		{Name: "NIFTY50", Enabled: true},
	}
	cfg.Storage.Path = "./test_data/intradesk.db"
	cfg.Web.Port = 8080

	return cfg
}

func TestConfigValidate(t *testing.T) {
	// 测试有效配置
	cfg := createValidConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("有效配置验证失败: %v", err)
	}

	// dhan 启用但缺少密钥应该报错
	invalidCfg1 := createValidConfig()
	dhanCfg := invalidCfg1.Brokers["dhan"]
	dhanCfg.APISecret = ""
	invalidCfg1.Brokers["dhan"] = dhanCfg
	if err := invalidCfg1.Validate(); err == nil {
		t.Error("dhan 缺少 api_secret 应该报错")
	}

	// 启用券商缺少 api_key 应该报错
	invalidCfg2 := createValidConfig()
	invalidCfg2.Brokers["groww"] = BrokerConfig{Enabled: true}
	if err := invalidCfg2.Validate(); err == nil {
		t.Error("groww 缺少 api_key 应该报错")
	}

	// 负数本金应该报错
	invalidCfg3 := createValidConfig()
	invalidCfg3.Trading.Capital = -1
	if err := invalidCfg3.Validate(); err == nil {
		t.Error("负数本金应该报错")
	}

	// 均值回归区间颠倒应该报错
	invalidCfg4 := createValidConfig()
	invalidCfg4.Strategies.MeanReversion.UpperBand = 0.2
	invalidCfg4.Strategies.MeanReversion.LowerBand = 0.8
	if err := invalidCfg4.Validate(); err == nil {
		t.Error("均值回归区间下沿大于上沿应该报错")
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := createValidConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}

	if cfg.Trading.Quantity != 100 {
		t.Errorf("期望默认数量为100, 得到 %d", cfg.Trading.Quantity)
	}
	if cfg.Trading.MaxPositions != 5 {
		t.Errorf("期望默认最大持仓为5, 得到 %d", cfg.Trading.MaxPositions)
	}
	if cfg.Trading.MaxDailyLossRatio != 0.05 {
		t.Errorf("期望默认日亏损比例为0.05, 得到 %f", cfg.Trading.MaxDailyLossRatio)
	}
	if cfg.Trading.MaxRiskPerTrade != 0.02 {
		t.Errorf("期望默认单笔风险比例为0.02, 得到 %f", cfg.Trading.MaxRiskPerTrade)
	}
	if cfg.Trading.MaxExposure != cfg.Trading.Capital {
		t.Errorf("敞口上限默认应等于本金, 得到 %f", cfg.Trading.MaxExposure)
	}
	if cfg.Trading.StopLossRatio != 0.05 || cfg.Trading.TakeProfitRatio != 0.15 {
		t.Errorf("默认止损止盈比例错误: %f / %f", cfg.Trading.StopLossRatio, cfg.Trading.TakeProfitRatio)
	}
	if cfg.Trading.MarketOpen != "09:15" || cfg.Trading.MarketClose != "15:30" {
		t.Errorf("默认交易时段错误: %s - %s", cfg.Trading.MarketOpen, cfg.Trading.MarketClose)
	}

	// 策略默认值
	if cfg.Strategies.Momentum.ThresholdPct != 0.5 {
		t.Errorf("动量阈值默认值错误: %f", cfg.Strategies.Momentum.ThresholdPct)
	}
	if cfg.Strategies.Momentum.Broker != "dhan" {
		t.Errorf("动量策略默认券商错误: %s", cfg.Strategies.Momentum.Broker)
	}
	if cfg.Strategies.MeanReversion.Broker != "groww" {
		t.Errorf("均值回归默认券商错误: %s", cfg.Strategies.MeanReversion.Broker)
	}
	if cfg.Strategies.Breakout.Broker != "sensibull" {
		t.Errorf("突破策略默认券商错误: %s", cfg.Strategies.Breakout.Broker)
	}
	if cfg.Strategies.VolumeProxy.MinVolume != 1000000 {
		t.Errorf("成交量阈值默认值错误: %d", cfg.Strategies.VolumeProxy.MinVolume)
	}

	// 券商地址默认值
	if cfg.Brokers["dhan"].BaseURL != "https://api.dhan.co" {
		t.Errorf("dhan 默认地址错误: %s", cfg.Brokers["dhan"].BaseURL)
	}

	// 预警默认值
	if cfg.Alerts.BreakoutInterval != 30 || cfg.Alerts.MarketInterval != 60 {
		t.Errorf("预警间隔默认值错误: %d / %d", cfg.Alerts.BreakoutInterval, cfg.Alerts.MarketInterval)
	}
	if cfg.Alerts.ConfirmBars != 2 {
		t.Errorf("确认K线数默认值错误: %d", cfg.Alerts.ConfirmBars)
	}

	// 时间间隔默认值
	if cfg.Timing.SignalInterval != 1 || cfg.Timing.RefreshInterval != 1 || cfg.Timing.ExposureInterval != 5 {
		t.Errorf("时间间隔默认值错误: %d/%d/%d",
			cfg.Timing.SignalInterval, cfg.Timing.RefreshInterval, cfg.Timing.ExposureInterval)
	}

	if cfg.System.Timezone != "Asia/Kolkata" {
		t.Errorf("默认时区错误: %s", cfg.System.Timezone)
	}
}

func TestConfigDefaultSymbols(t *testing.T) {
	cfg := createValidConfig()
	cfg.Trading.Symbols = nil
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}

	if len(cfg.Trading.Symbols) != 4 {
		t.Fatalf("期望内置4个指数, 得到 %d", len(cfg.Trading.Symbols))
	}

	// 内置映射应补全行情源代码
	sc, ok := cfg.SymbolByName("NIFTY50")
	if !ok {
		t.Fatal("内置标的缺少 NIFTY50")
	}
	if sc.Ticker != "^NSEI" {
		t.Errorf("NIFTY50 行情源代码错误: %s", sc.Ticker)
	}

	enabled := cfg.EnabledSymbols()
	if len(enabled) != 2 {
		t.Errorf("期望默认启用2个指数, 得到 %d", len(enabled))
	}
}

func TestLoadConfigFromBytes(t *testing.T) {
	yamlData := []byte(`
brokers:
  dhan:
    enabled: true
    api_key: "k"
    api_secret: "s"
  sensibull:
    enabled: true
    api_key: "sk"
trading:
  capital: 200000
  symbols:
    - name: BANKNIFTY
      enabled: true
strategies:
  enabled: true
  momentum:
    enabled: true
    threshold_pct: 0.8
webhook:
  enabled: true
  secret: "whsec"
`)

	cfg, err := LoadConfigFromBytes(yamlData)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	if cfg.Trading.Capital != 200000 {
		t.Errorf("本金解析错误: %f", cfg.Trading.Capital)
	}
	if cfg.Strategies.Momentum.ThresholdPct != 0.8 {
		t.Errorf("动量阈值解析错误: %f", cfg.Strategies.Momentum.ThresholdPct)
	}
	if cfg.Brokers["sensibull"].BaseURL != "https://api.sensibull.com" {
		t.Errorf("sensibull 默认地址未填充: %s", cfg.Brokers["sensibull"].BaseURL)
	}
	if cfg.Webhook.Secret != "whsec" {
		t.Errorf("webhook 密钥解析错误: %s", cfg.Webhook.Secret)
	}

	sc, ok := cfg.SymbolByName("BANKNIFTY")
	if !ok || sc.Ticker != "^NSEBANK" {
		t.Errorf("BANKNIFTY 行情源代码未补全: %+v", sc)
	}
}

func TestCreateMinimalConfig(t *testing.T) {
	cfg := CreateMinimalConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("最小化配置验证失败: %v", err)
	}

	if !cfg.Web.Enabled {
		t.Error("最小化配置应启用 Web 服务")
	}
	if !cfg.App.PaperTrading {
		t.Error("最小化配置应启用模拟交易")
	}
	if !cfg.HasTradableBroker() {
		t.Error("最小化配置应有可用券商（paper）")
	}
}

func TestWatchlist(t *testing.T) {
	tempDir := t.TempDir()
	listPath := filepath.Join(tempDir, "watchlist.yaml")

	content := "symbols:\n  - name: NIFTY50\n    enabled: true\n  - name: SENSEX\n    ticker: \"^BSESN\"\n    enabled: false\n"
	if err := os.WriteFile(listPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	wl, err := LoadWatchlist(listPath)
	if err != nil {
		t.Fatalf("加载自选列表失败: %v", err)
	}

	if len(wl.Symbols) != 2 {
		t.Fatalf("自选列表数量错误: %d", len(wl.Symbols))
	}
	if wl.Symbols[0].Ticker != "^NSEI" {
		t.Errorf("NIFTY50 行情源代码未补全: %s", wl.Symbols[0].Ticker)
	}

	// 未知标的且无代码应该报错
	badPath := filepath.Join(tempDir, "bad.yaml")
	if err := os.WriteFile(badPath, []byte("symbols:\n  - name: UNKNOWN\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadWatchlist(badPath); err == nil {
		t.Error("未知标的应该报错")
	}

	// 保存后可重新加载
	savePath := filepath.Join(tempDir, "saved.yaml")
	if err := SaveWatchlist(wl, savePath); err != nil {
		t.Fatalf("保存自选列表失败: %v", err)
	}
	reloaded, err := LoadWatchlist(savePath)
	if err != nil {
		t.Fatalf("重新加载自选列表失败: %v", err)
	}
	if len(reloaded.Symbols) != 2 {
		t.Errorf("重新加载数量错误: %d", len(reloaded.Symbols))
	}
}
