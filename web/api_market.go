package web

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"intradesk/analysis"
	"intradesk/logger"
	"intradesk/marketdata"
)

// QuoteProvider 行情提供者
type QuoteProvider interface {
	GetQuote(ctx context.Context, symbol string) (*marketdata.Quote, error)
	Name() string
}

// AnalysisProvider 盘面解读提供者
type AnalysisProvider interface {
	Analyze(ctx context.Context, symbol string) (*analysis.Report, error)
}

// LivePriceProvider 券商实时价提供者
type LivePriceProvider interface {
	LivePrice(ctx context.Context, broker, symbol string) (float64, error)
	Brokers() []string
}

var (
	quoteProvider     QuoteProvider
	analysisProvider  AnalysisProvider
	livePriceProvider LivePriceProvider
)

// SetQuoteProvider 注入行情源
func SetQuoteProvider(p QuoteProvider) {
	quoteProvider = p
}

// SetAnalyzer 注入盘面分析器
func SetAnalyzer(p AnalysisProvider) {
	analysisProvider = p
}

// SetLivePriceProvider 注入券商路由
func SetLivePriceProvider(p LivePriceProvider) {
	livePriceProvider = p
}

// resolveSymbol 解析 symbol 查询参数，缺省取第一个启用标的
func resolveSymbol(c *gin.Context) (string, bool) {
	symbol := c.Query("symbol")
	if symbol == "" && webCfg != nil {
		if enabled := webCfg.EnabledSymbols(); len(enabled) > 0 {
			symbol = enabled[0].Name
		}
	}
	if symbol == "" {
		return "", false
	}
	if webCfg != nil {
		if _, ok := webCfg.SymbolByName(symbol); !ok {
			return "", false
		}
	}
	return symbol, true
}

// getMarketOverview 全部已配置指数的行情一览
func getMarketOverview(c *gin.Context) {
	if quoteProvider == nil {
		respondError(c, http.StatusServiceUnavailable, "error.engine_unavailable")
		return
	}

	var symbols []string
	if webCfg != nil {
		for _, sc := range webCfg.Trading.Symbols {
			symbols = append(symbols, sc.Name)
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	quotes := []*marketdata.Quote{}
	unavailable := []string{}
	for _, symbol := range symbols {
		quote, err := quoteProvider.GetQuote(ctx, symbol)
		if err != nil {
			// 单个标的失败不影响其余标的
			logger.Debug("⏭️ 概览拉取 %s 失败: %v", symbol, err)
			unavailable = append(unavailable, symbol)
			continue
		}
		quotes = append(quotes, quote)
	}

	c.JSON(http.StatusOK, gin.H{
		"source":      quoteProvider.Name(),
		"quotes":      quotes,
		"unavailable": unavailable,
		"count":       len(quotes),
	})
}

// getMarketQuote 单标的行情
func getMarketQuote(c *gin.Context) {
	if quoteProvider == nil {
		respondError(c, http.StatusServiceUnavailable, "error.engine_unavailable")
		return
	}

	symbol, ok := resolveSymbol(c)
	if !ok {
		respondError(c, http.StatusBadRequest, "error.unknown_symbol")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	quote, err := quoteProvider.GetQuote(ctx, symbol)
	if err != nil {
		logger.Warn("⚠️ 拉取 %s 行情失败: %v", symbol, err)
		respondError(c, http.StatusBadGateway, "error.quote_failed")
		return
	}
	c.JSON(http.StatusOK, quote)
}

// getAnalysis 盘面解读报告
func getAnalysis(c *gin.Context) {
	if analysisProvider == nil {
		respondError(c, http.StatusServiceUnavailable, "error.engine_unavailable")
		return
	}

	symbol, ok := resolveSymbol(c)
	if !ok {
		respondError(c, http.StatusBadRequest, "error.unknown_symbol")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	report, err := analysisProvider.Analyze(ctx, symbol)
	if err != nil {
		logger.Warn("⚠️ 分析 %s 失败: %v", symbol, err)
		respondError(c, http.StatusBadGateway, "error.analysis_failed")
		return
	}
	c.JSON(http.StatusOK, report)
}

// getLivePrice 指定券商的实时报价
func getLivePrice(c *gin.Context) {
	if livePriceProvider == nil {
		respondError(c, http.StatusServiceUnavailable, "error.engine_unavailable")
		return
	}

	symbol, ok := resolveSymbol(c)
	if !ok {
		respondError(c, http.StatusBadRequest, "error.unknown_symbol")
		return
	}

	brokerName := c.Query("broker")
	if brokerName == "" {
		if brokers := livePriceProvider.Brokers(); len(brokers) > 0 {
			brokerName = brokers[0]
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	price, err := livePriceProvider.LivePrice(ctx, brokerName, symbol)
	if err != nil {
		logger.Warn("⚠️ 查询 %s/%s 实时价失败: %v", brokerName, symbol, err)
		respondError(c, http.StatusBadGateway, "error.quote_failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"broker":    brokerName,
		"symbol":    symbol,
		"price":     price,
		"timestamp": time.Now(),
	})
}
