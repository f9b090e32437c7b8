package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// GormDatabase GORM 数据库实现
type GormDatabase struct {
	db *gorm.DB
}

// NewGormDatabase 创建 GORM 数据库实例并完成自动迁移
func NewGormDatabase(config *Config) (*GormDatabase, error) {
	var dialector gorm.Dialector

	switch config.Type {
	case "sqlite":
		dialector = sqlite.Open(config.DSN)
	case "postgres", "postgresql":
		dialector = postgres.Open(config.DSN)
	case "mysql":
		dialector = mysql.Open(config.DSN)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", config.Type)
	}

	// 日志级别
	logLevel := logger.Silent
	switch config.LogLevel {
	case "error":
		logLevel = logger.Error
	case "warn":
		logLevel = logger.Warn
	case "info":
		logLevel = logger.Info
	}

	// 打开数据库
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 获取底层 sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// 配置连接池
	if config.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	// 自动迁移
	if err := db.AutoMigrate(
		&Trade{},
		&DailyStat{},
		&RiskDecision{},
		&AlertRecord{},
		&EventRecord{},
	); err != nil {
		return nil, fmt.Errorf("failed to auto migrate: %w", err)
	}

	return &GormDatabase{db: db}, nil
}

// SaveTrade 保存平仓成交记录
func (g *GormDatabase) SaveTrade(ctx context.Context, trade *Trade) error {
	return g.db.WithContext(ctx).Create(trade).Error
}

// GetTrades 获取成交记录
func (g *GormDatabase) GetTrades(ctx context.Context, filter *TradeFilter) ([]*Trade, error) {
	query := g.db.WithContext(ctx).Model(&Trade{})

	if filter.Broker != "" {
		query = query.Where("broker = ?", filter.Broker)
	}
	if filter.Symbol != "" {
		query = query.Where("symbol = ?", filter.Symbol)
	}
	if filter.Strategy != "" {
		query = query.Where("strategy = ?", filter.Strategy)
	}
	if filter.StartTime != nil {
		query = query.Where("closed_at >= ?", filter.StartTime)
	}
	if filter.EndTime != nil {
		query = query.Where("closed_at <= ?", filter.EndTime)
	}

	query = query.Order("closed_at DESC")

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var trades []*Trade
	if err := query.Find(&trades).Error; err != nil {
		return nil, err
	}

	return trades, nil
}

// SaveDailyStat 保存日统计，同一交易日重复写入时覆盖
func (g *GormDatabase) SaveDailyStat(ctx context.Context, stat *DailyStat) error {
	stat.UpdatedAt = time.Now()
	return g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "day"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"realized_pnl", "trade_count", "win_count", "loss_count", "updated_at",
		}),
	}).Create(stat).Error
}

// GetDailyStats 获取日统计
func (g *GormDatabase) GetDailyStats(ctx context.Context, filter *DailyStatFilter) ([]*DailyStat, error) {
	query := g.db.WithContext(ctx).Model(&DailyStat{})

	if filter.StartDay != "" {
		query = query.Where("day >= ?", filter.StartDay)
	}
	if filter.EndDay != "" {
		query = query.Where("day <= ?", filter.EndDay)
	}

	query = query.Order("day DESC")

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var stats []*DailyStat
	if err := query.Find(&stats).Error; err != nil {
		return nil, err
	}

	return stats, nil
}

// SaveRiskDecision 保存风控拒绝记录
func (g *GormDatabase) SaveRiskDecision(ctx context.Context, decision *RiskDecision) error {
	return g.db.WithContext(ctx).Create(decision).Error
}

// GetRiskDecisions 获取风控记录
func (g *GormDatabase) GetRiskDecisions(ctx context.Context, filter *RiskDecisionFilter) ([]*RiskDecision, error) {
	query := g.db.WithContext(ctx).Model(&RiskDecision{})

	if filter.Symbol != "" {
		query = query.Where("symbol = ?", filter.Symbol)
	}
	if filter.Reason != "" {
		query = query.Where("reason = ?", filter.Reason)
	}
	if filter.StartTime != nil {
		query = query.Where("created_at >= ?", filter.StartTime)
	}
	if filter.EndTime != nil {
		query = query.Where("created_at <= ?", filter.EndTime)
	}

	query = query.Order("created_at DESC")

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var decisions []*RiskDecision
	if err := query.Find(&decisions).Error; err != nil {
		return nil, err
	}

	return decisions, nil
}

// SaveAlert 保存预警历史
func (g *GormDatabase) SaveAlert(ctx context.Context, alert *AlertRecord) error {
	return g.db.WithContext(ctx).Create(alert).Error
}

// GetAlerts 获取预警历史
func (g *GormDatabase) GetAlerts(ctx context.Context, filter *AlertFilter) ([]*AlertRecord, error) {
	query := g.db.WithContext(ctx).Model(&AlertRecord{})

	if filter.Symbol != "" {
		query = query.Where("symbol = ?", filter.Symbol)
	}
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	query = query.Order("created_at DESC")

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var alerts []*AlertRecord
	if err := query.Find(&alerts).Error; err != nil {
		return nil, err
	}

	return alerts, nil
}

// Ping 健康检查
func (g *GormDatabase) Ping(ctx context.Context) error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close 关闭连接
func (g *GormDatabase) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveEvent 保存事件记录
func (g *GormDatabase) SaveEvent(ctx context.Context, event *EventRecord) error {
	return g.db.WithContext(ctx).Create(event).Error
}

// GetEvents 获取事件记录
func (g *GormDatabase) GetEvents(ctx context.Context, filter *EventFilter) ([]*EventRecord, error) {
	query := g.db.WithContext(ctx).Model(&EventRecord{})

	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Severity != "" {
		query = query.Where("severity = ?", filter.Severity)
	}
	if filter.Source != "" {
		query = query.Where("source = ?", filter.Source)
	}
	if filter.Broker != "" {
		query = query.Where("broker = ?", filter.Broker)
	}
	if filter.Symbol != "" {
		query = query.Where("symbol = ?", filter.Symbol)
	}
	if filter.StartTime != nil {
		query = query.Where("created_at >= ?", filter.StartTime)
	}
	if filter.EndTime != nil {
		query = query.Where("created_at <= ?", filter.EndTime)
	}

	query = query.Order("created_at DESC")

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var events []*EventRecord
	if err := query.Find(&events).Error; err != nil {
		return nil, err
	}

	return events, nil
}

// GetEventByID 根据ID获取事件
func (g *GormDatabase) GetEventByID(ctx context.Context, id int64) (*EventRecord, error) {
	var event EventRecord
	if err := g.db.WithContext(ctx).First(&event, id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// GetEventStats 获取事件统计
func (g *GormDatabase) GetEventStats(ctx context.Context) (*EventStats, error) {
	stats := &EventStats{
		CountByType:   make(map[string]int),
		CountBySource: make(map[string]int),
	}

	// 总数
	var totalCount int64
	g.db.WithContext(ctx).Model(&EventRecord{}).Count(&totalCount)
	stats.TotalCount = int(totalCount)

	// 按严重程度统计
	var criticalCount, warningCount, infoCount int64
	g.db.WithContext(ctx).Model(&EventRecord{}).Where("severity = ?", "critical").Count(&criticalCount)
	g.db.WithContext(ctx).Model(&EventRecord{}).Where("severity = ?", "warning").Count(&warningCount)
	g.db.WithContext(ctx).Model(&EventRecord{}).Where("severity = ?", "info").Count(&infoCount)
	stats.CriticalCount = int(criticalCount)
	stats.WarningCount = int(warningCount)
	stats.InfoCount = int(infoCount)

	// 最近24小时
	last24h := time.Now().Add(-24 * time.Hour)
	var last24hCount int64
	g.db.WithContext(ctx).Model(&EventRecord{}).Where("created_at >= ?", last24h).Count(&last24hCount)
	stats.Last24HoursCount = int(last24hCount)

	// 按类型统计（top 20）
	var typeStats []struct {
		Type  string
		Count int
	}
	g.db.WithContext(ctx).Model(&EventRecord{}).
		Select("type, COUNT(*) as count").
		Group("type").
		Order("count DESC").
		Limit(20).
		Scan(&typeStats)
	for _, ts := range typeStats {
		stats.CountByType[ts.Type] = ts.Count
	}

	// 按来源统计
	var sourceStats []struct {
		Source string
		Count  int
	}
	g.db.WithContext(ctx).Model(&EventRecord{}).
		Select("source, COUNT(*) as count").
		Group("source").
		Scan(&sourceStats)
	for _, ss := range sourceStats {
		stats.CountBySource[ss.Source] = ss.Count
	}

	return stats, nil
}

// CleanupOldEvents 清理旧事件
func (g *GormDatabase) CleanupOldEvents(ctx context.Context, severity string, keepCount int, keepDays int) error {
	// 按时间清理：删除超过指定天数的事件
	cutoffDate := time.Now().AddDate(0, 0, -keepDays)
	if err := g.db.WithContext(ctx).
		Where("severity = ? AND created_at < ?", severity, cutoffDate).
		Delete(&EventRecord{}).Error; err != nil {
		return err
	}

	// 按数量清理：保留最新的 keepCount 条
	var count int64
	g.db.WithContext(ctx).Model(&EventRecord{}).Where("severity = ?", severity).Count(&count)

	if int(count) > keepCount {
		// 获取需要保留的最老记录的ID
		var cutoffID int64
		g.db.WithContext(ctx).Model(&EventRecord{}).
			Where("severity = ?", severity).
			Order("created_at DESC").
			Limit(1).
			Offset(keepCount).
			Pluck("id", &cutoffID)

		// 删除ID小于cutoffID的记录
		if cutoffID > 0 {
			if err := g.db.WithContext(ctx).
				Where("severity = ? AND id < ?", severity, cutoffID).
				Delete(&EventRecord{}).Error; err != nil {
				return err
			}
		}
	}

	return nil
}
