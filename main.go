// IntraDesk 指数日内交易面板入口。
//
// 启动顺序刻意固定：先初始化日志存储（保证后续所有日志都能落库），
// 再加载配置，随后按 事件总线 → 归档存储 → 报表库 → 事件中心 →
// 去重锁 → 行情 → 交易组件 → Web 的依赖顺序逐层拉起。
// 退出时按相反顺序收尾，确保事件队列排空后才关闭底层存储。
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"intradesk/alert"
	"intradesk/analysis"
	"intradesk/broker"
	"intradesk/config"
	"intradesk/database"
	"intradesk/engine"
	"intradesk/event"
	"intradesk/i18n"
	"intradesk/lock"
	"intradesk/logger"
	"intradesk/marketdata"
	"intradesk/monitor"
	"intradesk/notify"
	"intradesk/position"
	"intradesk/risk"
	"intradesk/storage"
	"intradesk/strategy"
	"intradesk/utils"
	"intradesk/web"

	"github.com/redis/go-redis/v9"
)

// Version 程序版本号
var Version = "1.2.0"

func main() {
	// 检查版本参数
	if len(os.Args) > 1 && (os.Args[1] == "-version" || os.Args[1] == "--version") {
		fmt.Printf("IntraDesk 指数日内交易面板\n")
		fmt.Printf("Version: %s\n", Version)
		os.Exit(0)
	}

	// 解析调试参数（-debug / --debug）
	debugMode := false
	filteredArgs := []string{os.Args[0]}
	for _, arg := range os.Args[1:] {
		switch arg {
		case "-debug", "--debug":
			debugMode = true
		default:
			filteredArgs = append(filteredArgs, arg)
		}
	}
	os.Args = filteredArgs

	// 一次性命令：跑完即退，不拉起完整系统
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "-analyze", "--analyze":
			if len(os.Args) < 3 {
				fmt.Fprintln(os.Stderr, "用法: intradesk --analyze <标的> [配置文件]")
				os.Exit(2)
			}
			runAnalyze(os.Args[2], argOr(3, "config.yaml"))
			return
		case "-overview", "--overview":
			runOverview(argOr(2, "config.yaml"))
			return
		}
	}

	// 最早初始化日志存储（在配置加载之前），保证启动日志也能入库
	logStoragePath := "./logs.db"
	if len(os.Args) > 2 && os.Args[1] == "--log-db" {
		logStoragePath = os.Args[2]
		os.Args = append(os.Args[:1], os.Args[3:]...)
	}

	logStorage, err := storage.NewLogStorage(logStoragePath)
	if err != nil {
		logger.Warn("⚠️ 初始化日志存储失败: %v，将继续运行但日志不落库", err)
		logStorage = nil
	} else {
		logger.InitLogStorage(func(level, message string) {
			logStorage.WriteLog(level, message)
		})
	}

	logger.Info("🚀 IntraDesk 日内交易面板启动中...")
	logger.Info("📦 版本号: %s", Version)

	// 加载配置；文件不存在时创建最小化配置，仅启动 Web 服务
	configPath := "config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	var cfg *config.Config
	configComplete := true
	if _, statErr := os.Stat(configPath); os.IsNotExist(statErr) {
		logger.Warn("⚠️ 配置文件 %s 不存在，创建最小化配置", configPath)
		cfg = config.CreateMinimalConfig()
		configComplete = false
		if err := config.SaveConfigWithoutValidation(cfg, configPath); err != nil {
			logger.Warn("⚠️ 保存最小化配置失败: %v，将继续运行", err)
		} else {
			logger.Info("✅ 已生成最小化配置文件: %s，请补全券商与标的后重启", configPath)
		}
	} else {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			logger.Fatalf("❌ 加载配置失败: %v", err)
		}
		configComplete = cfg.HasTradableBroker() && len(cfg.EnabledSymbols()) > 0
	}

	// 时区：行情时间戳和交易时段判断都依赖这里
	if err := utils.SetLocation(cfg.System.Timezone); err != nil {
		logger.Warn("⚠️ 加载时区 %s 失败: %v，回退到 Asia/Kolkata", cfg.System.Timezone, err)
		_ = utils.SetLocation("Asia/Kolkata")
	}
	logger.SetLocation(utils.GlobalLocation)

	if debugMode {
		cfg.System.LogLevel = "debug"
		logger.Info("🔍 调试模式已启用")
	}
	logger.SetLevel(logger.ParseLogLevel(cfg.System.LogLevel))

	// 日志语言
	logLang := cfg.System.LogLanguage
	if logLang == "" {
		logLang = "zh-CN"
	}
	if err := i18n.Init(logLang); err != nil {
		logger.Warn("⚠️ 初始化多语言失败: %v，使用内置文案", err)
	} else {
		logger.SetLogLanguage(logLang)
		logger.SetTranslateFunc(i18n.T)
	}

	// 日志保留：每天凌晨两点清理过期记录并压缩库文件
	if logStorage != nil && cfg.System.LogRetentionDays > 0 {
		retentionDays := cfg.System.LogRetentionDays
		go func() {
			now := time.Now()
			next := time.Date(now.Year(), now.Month(), now.Day(), 2, 0, 0, 0, now.Location())
			if !next.After(now) {
				next = next.Add(24 * time.Hour)
			}
			time.Sleep(next.Sub(now))

			ticker := time.NewTicker(24 * time.Hour)
			defer ticker.Stop()
			for {
				logger.Info("🧹 开始清理 %d 天前的日志...", retentionDays)
				if err := logStorage.CleanOldLogs(retentionDays); err != nil {
					logger.Warn("⚠️ 清理日志失败: %v", err)
				}
				if err := logStorage.Vacuum(); err != nil {
					logger.Warn("⚠️ 压缩日志数据库失败: %v", err)
				}
				<-ticker.C
			}
		}()
	}

	if err := os.MkdirAll(cfg.App.DataDir, 0755); err != nil {
		logger.Warn("⚠️ 创建数据目录 %s 失败: %v", cfg.App.DataDir, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 事件总线：单消费者，归档与推送都挂在事件中心内部
	eventBus := event.NewEventBus(1000)
	notifier := notify.NewNotificationService(cfg)

	storageService, err := storage.NewStorageService(cfg, ctx)
	if err != nil {
		logger.Warn("⚠️ 初始化归档存储失败: %v，信号与订单将不归档", err)
		storageService = nil
	} else if cfg.Storage.Enabled {
		storageService.Start()
	}

	// 报表数据库：历史查询与日报依赖，失败时降级运行
	var db database.Database
	if cfg.Database.Type != "" && cfg.Database.DSN != "" {
		db, err = database.NewDatabase(&database.Config{
			Type:            cfg.Database.Type,
			DSN:             cfg.Database.DSN,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetime) * time.Second,
			LogLevel:        cfg.Database.LogLevel,
		})
		if err != nil {
			logger.Warn("⚠️ 初始化报表数据库失败: %v，历史查询不可用", err)
			db = nil
		} else {
			defer db.Close()
			logger.Info("✅ 报表数据库已就绪 (类型: %s)", cfg.Database.Type)
		}
	}

	// 事件中心：报表库不可用时仍会分发通知和 WebSocket 推送
	eventCenter := event.NewEventCenter(db, eventBus, notifier, &event.EventCenterConfig{
		Enabled:                  cfg.EventCenter.Enabled,
		PriceVolatilityThreshold: cfg.EventCenter.PriceVolatilityThreshold,
		MonitoredSymbols:         cfg.EventCenter.MonitoredSymbols,
		CleanupInterval:          cfg.EventCenter.CleanupInterval,
		Retention: event.RetentionConfig{
			CriticalDays:     cfg.EventCenter.Retention.CriticalDays,
			WarningDays:      cfg.EventCenter.Retention.WarningDays,
			InfoDays:         cfg.EventCenter.Retention.InfoDays,
			CriticalMaxCount: cfg.EventCenter.Retention.CriticalMaxCount,
			WarningMaxCount:  cfg.EventCenter.Retention.WarningMaxCount,
			InfoMaxCount:     cfg.EventCenter.Retention.InfoMaxCount,
		},
	})
	if storageService != nil && cfg.Storage.Enabled {
		eventCenter.SetArchive(storageService)
	}
	eventCenter.SetBroadcast(web.BroadcastEvent)
	if err := eventCenter.Start(); err != nil {
		logger.Warn("⚠️ 启动事件中心失败: %v", err)
	}
	defer eventCenter.Stop()

	// 下单去重锁：多实例共用券商账户时防止重复下单
	distributedLock, err := lock.NewDistributedLock(&lock.Config{
		Enabled:    cfg.DistributedLock.Enabled,
		Type:       cfg.DistributedLock.Type,
		Prefix:     cfg.DistributedLock.Prefix,
		DefaultTTL: time.Duration(cfg.DistributedLock.DefaultTTL) * time.Second,
		Redis: lock.RedisConfig{
			Addr:     cfg.DistributedLock.Redis.Addr,
			Password: cfg.DistributedLock.Redis.Password,
			DB:       cfg.DistributedLock.Redis.DB,
			PoolSize: cfg.DistributedLock.Redis.PoolSize,
		},
	})
	if err != nil {
		logger.Fatalf("❌ 初始化下单去重锁失败: %v", err)
	}
	defer distributedLock.Close()
	if cfg.DistributedLock.Enabled {
		logger.Info("🔐 下单去重锁已启用 (类型: %s)", cfg.DistributedLock.Type)
	}

	// 系统资源看守：CPU/内存阈值与增速告警
	watchdog := monitor.NewSystemWatchdog(cfg, eventBus)
	watchdog.Start()

	// 行情源：Yahoo 拉取 + 可选 Redis 缓存
	source, yahoo := newMarketSource(cfg)
	logger.Info("🌐 行情数据源: %s (K线周期 %s, 回看 %d 天)",
		source.Name(), cfg.MarketData.Interval, cfg.MarketData.LookbackDays)

	analyzer := analysis.NewAnalyzer(source, cfg)

	// 交易组件：配置不完整时整体跳过，Web 与 Webhook 照常服务
	var (
		tradingEngine   *engine.Engine
		ledger          *position.Ledger
		tracker         *risk.DailyTracker
		router          *broker.Router
		exposureMonitor *monitor.ExposureMonitor
	)
	if configComplete {
		manager := strategy.NewManager(cfg)
		gate := risk.NewGate(cfg)
		tracker = risk.NewDailyTracker()

		router, err = broker.NewRouter(cfg, distributedLock, eventBus)
		if err != nil {
			logger.Fatalf("❌ 初始化券商路由失败: %v", err)
		}

		ledger = position.NewLedger(source, router, tracker, db, eventBus,
			time.Duration(cfg.Timing.RefreshInterval)*time.Second)
		ledger.Start()

		tradingEngine = engine.NewEngine(cfg, source, manager, gate, router, ledger, db, eventBus)
		tradingEngine.Start()

		exposureMonitor = monitor.NewExposureMonitor(ledger, eventBus,
			cfg.Trading.MaxExposure, cfg.Timing.ExposureInterval)
		exposureMonitor.Start()

		logger.Info("✅ 交易系统已启动: %d 个策略, %d 个标的, 资金 %.0f",
			manager.Count(), len(cfg.EnabledSymbols()), gate.Capital())
		if cfg.App.PaperTrading {
			logger.Info("📋 当前为模拟盘模式，订单不会发往真实券商")
		}
	} else {
		logger.Warn("⚠️ 配置不完整（缺少可用券商或启用标的），交易功能已禁用")
	}

	// 价位提醒：只依赖行情，不依赖券商
	var alertEngine *alert.Engine
	if cfg.Alerts.Enabled {
		alertEngine = alert.NewEngine(cfg, source, db, eventBus)
		alertEngine.Start()
	}

	// 自选列表热更新：文件变化时替换引擎的标的集合
	if cfg.Watchlist.Path != "" {
		if wl, wlErr := config.LoadWatchlist(cfg.Watchlist.Path); wlErr != nil {
			logger.Warn("⚠️ 加载自选列表失败: %v", wlErr)
		} else {
			applyWatchlist(cfg, yahoo, tradingEngine, wl)
		}

		watcher, wErr := config.NewWatchlistWatcher(cfg.Watchlist.Path)
		if wErr != nil {
			logger.Warn("⚠️ 创建自选列表监控失败: %v", wErr)
		} else if wErr = watcher.Start(ctx); wErr != nil {
			logger.Warn("⚠️ 启动自选列表监控失败: %v", wErr)
		} else {
			defer watcher.Stop()
			go func() {
				for {
					select {
					case <-ctx.Done():
						return
					case wl := <-watcher.GetUpdateChan():
						applyWatchlist(cfg, yahoo, tradingEngine, wl)
					case watchErr := <-watcher.GetErrorChan():
						logger.Warn("⚠️ 自选列表监控错误: %v", watchErr)
					}
				}
			}()
		}
	}

	// Web 服务：注册数据提供者后再启动
	var webServer *web.WebServer
	if cfg.Web.Enabled {
		passwordManager, pmErr := web.NewPasswordManager(cfg.App.DataDir)
		if pmErr != nil {
			logger.Error("❌ 初始化密码管理器失败: %v", pmErr)
		} else {
			web.SetPasswordManager(passwordManager)
		}

		web.SetVersion(Version)
		web.SetEventBus(eventBus)
		web.SetQuoteProvider(source)
		web.SetAnalyzer(analyzer)
		web.SetWatchdog(watchdog)
		if logStorage != nil {
			web.SetLogStorage(logStorage)
		}
		if tradingEngine != nil {
			web.SetEngine(tradingEngine)
		}
		if ledger != nil {
			web.SetLedger(ledger)
		}
		if tracker != nil {
			web.SetTracker(tracker)
		}
		if exposureMonitor != nil {
			web.SetExposure(exposureMonitor)
		}
		if router != nil {
			web.SetLivePriceProvider(router)
		}
		if alertEngine != nil {
			web.SetAlertProvider(alertEngine)
		}
		if db != nil {
			web.SetEventProvider(db)
			web.SetReportProvider(db)
		}
		if storageService != nil && storageService.GetStorage() != nil {
			web.SetArchiveProvider(storageService.GetStorage())
		}

		webServer = web.NewWebServer(cfg)
		if webServer != nil {
			if err := webServer.Start(ctx); err != nil {
				logger.Error("❌ 启动Web服务器失败: %v", err)
			}
		}

		// 周期推送状态快照给 WebSocket 客户端
		go func() {
			ticker := time.NewTicker(5 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					web.BroadcastStatus(web.CollectStatus())
				}
			}
		}()
	}

	// 控制台状态行
	if configComplete && cfg.Timing.StatusPrintInterval > 0 {
		go statusLoop(ctx, cfg, tradingEngine, ledger, tracker)
	}

	eventBus.Publish(&event.Event{
		Type:      event.EventTypeSystemStart,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"version":       Version,
			"paper_trading": cfg.App.PaperTrading,
		},
	})

	logger.Info("✅ 系统初始化完成，程序正在运行中...")
	logger.Info("💡 按 Ctrl+C 退出程序")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("🛑 收到退出信号，开始优雅关闭...")

	eventBus.Publish(&event.Event{
		Type:      event.EventTypeSystemStop,
		Timestamp: time.Now(),
		Data:      map[string]interface{}{"reason": "收到退出信号"},
	})

	if configComplete {
		// 先停引擎，不再产生新信号
		if tradingEngine != nil {
			tradingEngine.Stop()
		}

		if cfg.System.ClosePositionsOnExit && ledger != nil {
			logger.Info("📒 正在平掉所有持仓...")
			closeCtx, closeCancel := context.WithTimeout(context.Background(), 30*time.Second)
			ledger.CloseAll(closeCtx, position.CloseReasonShutdown)
			closeCancel()
		}

		if exposureMonitor != nil {
			exposureMonitor.Stop()
		}
		if ledger != nil {
			ledger.Stop()
		}
	}
	if alertEngine != nil {
		alertEngine.Stop()
	}
	watchdog.Stop()
	if webServer != nil {
		webServer.Stop()
	}

	cancel()
	time.Sleep(500 * time.Millisecond)

	// 归档服务最后停，确保队列里的事件全部落盘
	if storageService != nil {
		storageService.Stop()
	}
	time.Sleep(200 * time.Millisecond)

	logger.Close()
	if logStorage != nil {
		if err := logStorage.Close(); err != nil {
			logger.Error("❌ 关闭日志存储失败: %v", err)
		}
	}

	logger.Info("✅ IntraDesk 已安全退出")
}

// newMarketSource 构建行情源，缓存启用时外面包一层 Redis 缓存
func newMarketSource(cfg *config.Config) (marketdata.Source, *marketdata.YahooSource) {
	yahoo := marketdata.NewYahooSource(cfg.MarketData.BaseURL,
		time.Duration(cfg.MarketData.Timeout)*time.Second)
	yahoo.SetSymbols(tickerTable(cfg.Trading.Symbols))

	var source marketdata.Source = yahoo
	if cfg.MarketData.Cache.Enabled {
		var client *redis.Client
		if cfg.MarketData.Cache.Addr != "" {
			client = redis.NewClient(&redis.Options{
				Addr:     cfg.MarketData.Cache.Addr,
				Password: cfg.MarketData.Cache.Password,
				DB:       cfg.MarketData.Cache.DB,
			})
		}
		source = marketdata.NewCachedSource(yahoo, client,
			time.Duration(cfg.MarketData.Cache.TTL)*time.Second)
	}
	return source, yahoo
}

// tickerTable 标的名到行情代码的映射表
func tickerTable(symbols []config.SymbolConfig) map[string]string {
	table := make(map[string]string, len(symbols))
	for _, sc := range symbols {
		table[sc.Name] = sc.Ticker
	}
	return table
}

// applyWatchlist 应用自选列表：扩充行情代码表并替换引擎的标的集合。
// 配置里的标的保留在代码表中，Webhook 和总览接口仍能解析它们。
func applyWatchlist(cfg *config.Config, yahoo *marketdata.YahooSource, eng *engine.Engine, wl *config.Watchlist) {
	if wl == nil {
		return
	}
	table := tickerTable(cfg.Trading.Symbols)
	for _, sc := range wl.Symbols {
		table[sc.Name] = sc.Ticker
	}
	yahoo.SetSymbols(table)
	if eng != nil {
		eng.SetWatchlist(wl.Symbols)
	}
}

// statusLoop 定期在日志里打一行运行状态
func statusLoop(ctx context.Context, cfg *config.Config, eng *engine.Engine, ledger *position.Ledger, tracker *risk.DailyTracker) {
	ticker := time.NewTicker(time.Duration(cfg.Timing.StatusPrintInterval) * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			realized, wins, losses := tracker.Stats()
			open := eng.MarketOpen()
			logger.Info("📊 运行状态: 开盘=%v | 持仓=%d | 当日已实现=%+.2f | 浮动盈亏=%+.2f | 胜/负=%d/%d",
				open, ledger.Count(), realized, ledger.TotalPnL(), wins, losses)
			if !open {
				logger.Info("⏸️ 市场休市，下次开盘 %s", eng.NextMarketOpen().Format("01-02 15:04"))
			}
		}
	}
}

// argOr 取第 i 个命令行参数，缺省时返回默认值
func argOr(i int, def string) string {
	if len(os.Args) > i {
		return os.Args[i]
	}
	return def
}

// loadConfigLenient 一次性命令的配置加载：文件缺失时退回内置默认标的
func loadConfigLenient(configPath string) *config.Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := config.CreateMinimalConfig()
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "初始化默认配置失败: %v\n", err)
			os.Exit(1)
		}
		return cfg
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// runAnalyze 对单个标的生成盘中分析报告并打印到控制台
func runAnalyze(symbol, configPath string) {
	cfg := loadConfigLenient(configPath)
	logger.SetLevel(logger.WARN)
	_ = utils.SetLocation(cfg.System.Timezone)

	source, _ := newMarketSource(cfg)
	analyzer := analysis.NewAnalyzer(source, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	report, err := analyzer.Analyze(ctx, symbol)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ 分析 %s 失败: %v\n", symbol, err)
		os.Exit(1)
	}
	fmt.Print(formatReport(report))
}

// runOverview 打印所有配置标的的行情总览
func runOverview(configPath string) {
	cfg := loadConfigLenient(configPath)
	logger.SetLevel(logger.WARN)
	_ = utils.SetLocation(cfg.System.Timezone)

	source, _ := newMarketSource(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	line := strings.Repeat("═", 64)
	fmt.Println()
	fmt.Println(line)
	fmt.Println("                          市场总览")
	fmt.Println(line)
	fmt.Printf("%-12s %12s %10s %12s %12s\n", "标的", "现价", "涨跌幅", "最高", "最低")

	for _, sc := range cfg.Trading.Symbols {
		quote, err := source.GetQuote(ctx, sc.Name)
		if err != nil {
			fmt.Printf("%-12s %12s\n", sc.Name, "行情不可用")
			continue
		}
		fmt.Printf("%-12s %12.2f %+9.2f%% %12.2f %12.2f\n",
			sc.Name, quote.Price, quote.ChangePercent, quote.High, quote.Low)
	}
	fmt.Println(line)
	fmt.Printf("生成时间: %s\n\n", utils.NowConfiguredTimezone().Format("2006-01-02 15:04:05"))
}

// formatReport 把分析报告渲染成控制台文本
func formatReport(r *analysis.Report) string {
	var b strings.Builder
	line := strings.Repeat("═", 64) + "\n"

	b.WriteString("\n" + line)
	fmt.Fprintf(&b, "                    %s 盘中分析报告\n", r.Symbol)
	b.WriteString(line)
	fmt.Fprintf(&b, "时间: %s\n", r.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "现价: %.2f (%+.2f%%)\n\n", r.Price, r.ChangePercent)

	if s := r.Sentiment; s != nil {
		fmt.Fprintf(&b, "1. 技术面情绪: %s (评分 %d)\n", s.Label, s.Score)
		fmt.Fprintf(&b, "   SMA20: %.2f\n", s.SMA20)
		if s.SMA50 > 0 {
			fmt.Fprintf(&b, "   SMA50: %.2f\n", s.SMA50)
		}
		if s.RSI > 0 {
			fmt.Fprintf(&b, "   RSI(14): %.1f\n", s.RSI)
		}
		if s.VolumeRatio > 0 {
			fmt.Fprintf(&b, "   量比: %.2f\n", s.VolumeRatio)
		}
		b.WriteString("\n")
	}

	if p := r.PCR; p != nil {
		fmt.Fprintf(&b, "2. PCR 代理: %.2f (%s)\n", p.Value, p.Signal)
		fmt.Fprintf(&b, "   解读: %s\n", p.Interpretation)
		fmt.Fprintf(&b, "   建议: %s\n", p.Action)
		if bu := r.Buildup; bu != nil && bu.Pattern != "BALANCED" {
			fmt.Fprintf(&b, "   仓位堆积: %s (%s)\n", bu.Pattern, bu.Interpretation)
		}
		if uw := r.Unwinding; uw != nil && uw.Signal != "NO_UNWINDING" {
			fmt.Fprintf(&b, "   仓位解除: %s (%s)\n", uw.Signal, uw.Interpretation)
		}
		if r.GammaLevel != "" {
			fmt.Fprintf(&b, "   Gamma 暴露: %s\n", r.GammaLevel)
		}
		if r.Skew != "" {
			fmt.Fprintf(&b, "   波动率偏斜: %s (%s)\n", r.Skew, r.SkewImplication)
		}
		b.WriteString("\n")
	}

	if len(r.Supports) > 0 || len(r.Resistances) > 0 {
		b.WriteString("3. 关键价位:\n")
		if r.NearestSupport > 0 {
			fmt.Fprintf(&b, "   最近支撑: %.2f\n", r.NearestSupport)
		}
		if r.NearestResistance > 0 {
			fmt.Fprintf(&b, "   最近阻力: %.2f\n", r.NearestResistance)
		}
		fmt.Fprintf(&b, "   支撑位: %s\n", joinLevels(r.Supports))
		fmt.Fprintf(&b, "   阻力位: %s\n", joinLevels(r.Resistances))
		if r.MaxPain != nil {
			fmt.Fprintf(&b, "   最大痛点(近似): %.2f (%s)\n", r.MaxPain.Level, r.MaxPain.Probability)
		}
		b.WriteString("\n")
	}

	if len(r.Suggestions) > 0 {
		b.WriteString("4. 倾向性建议（仅供参考，不构成投资建议）:\n")
		for i, s := range r.Suggestions {
			fmt.Fprintf(&b, "   %d) %s [%s] %s\n", i+1, s.Type, s.Confidence, s.Reason)
		}
	} else {
		b.WriteString("4. 暂无明确方向建议\n")
	}

	b.WriteString(line)
	return b.String()
}

// joinLevels 价位列表转成一行文本
func joinLevels(levels []float64) string {
	if len(levels) == 0 {
		return "-"
	}
	parts := make([]string, len(levels))
	for i, lv := range levels {
		parts[i] = fmt.Sprintf("%.2f", lv)
	}
	return strings.Join(parts, " / ")
}
