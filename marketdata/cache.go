package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"intradesk/logger"
)

// CachedSource 行情缓存层
// 包装任意 Source，短 TTL 缓存报价和K线，
// Redis 客户端为 nil 或读写失败时退回进程内缓存
type CachedSource struct {
	inner  Source
	client *redis.Client
	ttl    time.Duration

	mu          sync.RWMutex
	localQuotes map[string]*cachedQuote
	localSeries map[string]*cachedSeries
}

type cachedQuote struct {
	quote     *Quote
	expiresAt time.Time
}

type cachedSeries struct {
	series    Series
	expiresAt time.Time
}

// NewCachedSource 创建行情缓存层
func NewCachedSource(inner Source, client *redis.Client, ttl time.Duration) *CachedSource {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &CachedSource{
		inner:       inner,
		client:      client,
		ttl:         ttl,
		localQuotes: make(map[string]*cachedQuote),
		localSeries: make(map[string]*cachedSeries),
	}
}

// Name 数据源名称
func (c *CachedSource) Name() string {
	return c.inner.Name()
}

// GetQuote 获取报价，优先命中缓存
func (c *CachedSource) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	c.mu.RLock()
	entry, ok := c.localQuotes[symbol]
	c.mu.RUnlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return entry.quote, nil
	}

	key := "md:quote:" + symbol
	if c.client != nil {
		if payload, err := c.client.Get(ctx, key).Result(); err == nil {
			var quote Quote
			if err := json.Unmarshal([]byte(payload), &quote); err == nil {
				c.storeQuote(symbol, &quote)
				return &quote, nil
			}
		} else if err != redis.Nil {
			logger.Debug("行情缓存读取失败: %v", err)
		}
	}

	quote, err := c.inner.GetQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}

	c.storeQuote(symbol, quote)
	if c.client != nil {
		if payload, err := json.Marshal(quote); err == nil {
			if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
				logger.Debug("行情缓存写入失败: %v", err)
			}
		}
	}

	return quote, nil
}

// GetSeries 获取K线，优先命中缓存
func (c *CachedSource) GetSeries(ctx context.Context, symbol string, lookback int, interval string) (Series, error) {
	cacheKey := fmt.Sprintf("%s:%d:%s", symbol, lookback, interval)

	c.mu.RLock()
	entry, ok := c.localSeries[cacheKey]
	c.mu.RUnlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return entry.series, nil
	}

	key := "md:series:" + cacheKey
	if c.client != nil {
		if payload, err := c.client.Get(ctx, key).Result(); err == nil {
			var series Series
			if err := json.Unmarshal([]byte(payload), &series); err == nil && len(series) > 0 {
				c.storeSeries(cacheKey, series)
				return series, nil
			}
		} else if err != redis.Nil {
			logger.Debug("K线缓存读取失败: %v", err)
		}
	}

	series, err := c.inner.GetSeries(ctx, symbol, lookback, interval)
	if err != nil {
		return nil, err
	}

	c.storeSeries(cacheKey, series)
	if c.client != nil {
		if payload, err := json.Marshal(series); err == nil {
			if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
				logger.Debug("K线缓存写入失败: %v", err)
			}
		}
	}

	return series, nil
}

func (c *CachedSource) storeQuote(symbol string, quote *Quote) {
	c.mu.Lock()
	c.localQuotes[symbol] = &cachedQuote{quote: quote, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *CachedSource) storeSeries(key string, series Series) {
	c.mu.Lock()
	c.localSeries[key] = &cachedSeries{series: series, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}
