package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"intradesk/utils"
)

// SQLiteStorage SQLite 存储实现
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage 创建 SQLite 存储
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	// 使用 WAL 模式提高并发性能
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}

	// SQLite 并发限制
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("创建表失败: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// createTables 创建表
func createTables(db *sql.DB) error {
	// 信号表
	signalsSQL := `
	CREATE TABLE IF NOT EXISTS signals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		strategy TEXT,
		symbol TEXT,
		side TEXT,
		price DECIMAL(20,8),
		quantity DECIMAL(20,8),
		stop_loss DECIMAL(20,8),
		take_profit DECIMAL(20,8),
		confidence DECIMAL(10,4),
		broker TEXT,
		status TEXT,
		reason TEXT,
		created_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_signals_created ON signals(created_at);
	CREATE INDEX IF NOT EXISTS idx_signals_strategy ON signals(strategy);
	CREATE INDEX IF NOT EXISTS idx_signals_symbol ON signals(symbol);
	`

	// 订单表
	ordersSQL := `
	CREATE TABLE IF NOT EXISTS orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id TEXT,
		client_order_id TEXT,
		broker TEXT,
		symbol TEXT,
		side TEXT,
		strategy TEXT,
		price DECIMAL(20,8),
		quantity DECIMAL(20,8),
		status TEXT,
		error TEXT,
		created_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_orders_created ON orders(created_at);
	CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);
	`

	// 平仓记录表
	tradesSQL := `
	CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT,
		strategy TEXT,
		side TEXT,
		entry_price DECIMAL(20,8),
		exit_price DECIMAL(20,8),
		quantity DECIMAL(20,8),
		pnl DECIMAL(20,8),
		reason TEXT,
		broker TEXT,
		created_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_trades_created ON trades(created_at);
	CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);
	`

	// 预警表
	alertsSQL := `
	CREATE TABLE IF NOT EXISTS alerts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT,
		kind TEXT,
		level DECIMAL(20,8),
		price DECIMAL(20,8),
		status TEXT,
		created_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_alerts_created ON alerts(created_at);
	`

	// 原始事件表
	eventsSQL := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type TEXT,
		data TEXT,
		created_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_events_created ON events(created_at);
	CREATE INDEX IF NOT EXISTS idx_events_type ON events(event_type);
	`

	for _, sqlStmt := range []string{signalsSQL, ordersSQL, tradesSQL, alertsSQL, eventsSQL} {
		if _, err := db.Exec(sqlStmt); err != nil {
			return fmt.Errorf("执行 SQL 失败: %w", err)
		}
	}

	return nil
}

// SaveSignal 保存信号
func (s *SQLiteStorage) SaveSignal(signal *SignalRecord) error {
	// 转换为UTC时间存储
	createdAt := utils.ToUTC(signal.CreatedAt)
	_, err := s.db.Exec(`
		INSERT INTO signals
		(strategy, symbol, side, price, quantity, stop_loss, take_profit, confidence, broker, status, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, signal.Strategy, signal.Symbol, signal.Side, signal.Price, signal.Quantity,
		signal.StopLoss, signal.TakeProfit, signal.Confidence, signal.Broker,
		signal.Status, signal.Reason, createdAt)
	return err
}

// SaveOrder 保存订单
func (s *SQLiteStorage) SaveOrder(order *OrderRecord) error {
	// 转换为UTC时间存储
	createdAt := utils.ToUTC(order.CreatedAt)
	_, err := s.db.Exec(`
		INSERT INTO orders
		(order_id, client_order_id, broker, symbol, side, strategy, price, quantity, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, order.OrderID, order.ClientOrderID, order.Broker, order.Symbol, order.Side,
		order.Strategy, order.Price, order.Quantity, order.Status, order.Error, createdAt)
	return err
}

// SaveTrade 保存平仓记录
func (s *SQLiteStorage) SaveTrade(trade *TradeRecord) error {
	// 转换为UTC时间存储
	createdAt := utils.ToUTC(trade.CreatedAt)
	_, err := s.db.Exec(`
		INSERT INTO trades
		(symbol, strategy, side, entry_price, exit_price, quantity, pnl, reason, broker, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, trade.Symbol, trade.Strategy, trade.Side, trade.EntryPrice, trade.ExitPrice,
		trade.Quantity, trade.PnL, trade.Reason, trade.Broker, createdAt)
	return err
}

// SaveAlert 保存预警
func (s *SQLiteStorage) SaveAlert(alert *AlertEntry) error {
	// 转换为UTC时间存储
	createdAt := utils.ToUTC(alert.CreatedAt)
	_, err := s.db.Exec(`
		INSERT INTO alerts
		(symbol, kind, level, price, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, alert.Symbol, alert.Kind, alert.Level, alert.Price, alert.Status, createdAt)
	return err
}

// SaveEvent 保存事件
func (s *SQLiteStorage) SaveEvent(eventType string, data map[string]interface{}) error {
	// 将 data 序列化为 JSON
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("序列化事件数据失败: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO events (event_type, data, created_at)
		VALUES (?, ?, ?)
	`, eventType, string(jsonData), utils.NowUTC())
	return err
}

// QuerySignals 查询信号
func (s *SQLiteStorage) QuerySignals(limit, offset int, strategy, symbol string) ([]*SignalRecord, error) {
	query := `
		SELECT id, strategy, symbol, side, price, quantity, stop_loss, take_profit, confidence, broker, status, reason, created_at
		FROM signals
		WHERE 1=1
	`
	args := []interface{}{}

	if strategy != "" {
		query += " AND strategy = ?"
		args = append(args, strategy)
	}
	if symbol != "" {
		query += " AND symbol = ?"
		args = append(args, symbol)
	}

	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("查询信号失败: %w", err)
	}
	defer rows.Close()

	var signals []*SignalRecord
	for rows.Next() {
		signal := &SignalRecord{}
		err := rows.Scan(
			&signal.ID,
			&signal.Strategy,
			&signal.Symbol,
			&signal.Side,
			&signal.Price,
			&signal.Quantity,
			&signal.StopLoss,
			&signal.TakeProfit,
			&signal.Confidence,
			&signal.Broker,
			&signal.Status,
			&signal.Reason,
			&signal.CreatedAt,
		)
		if err != nil {
			continue
		}
		signals = append(signals, signal)
	}

	return signals, nil
}

// QueryOrders 查询订单
func (s *SQLiteStorage) QueryOrders(limit, offset int, status string) ([]*OrderRecord, error) {
	query := `
		SELECT id, order_id, client_order_id, broker, symbol, side, strategy, price, quantity, status, error, created_at
		FROM orders
		WHERE 1=1
	`
	args := []interface{}{}

	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("查询订单失败: %w", err)
	}
	defer rows.Close()

	var orders []*OrderRecord
	for rows.Next() {
		order := &OrderRecord{}
		err := rows.Scan(
			&order.ID,
			&order.OrderID,
			&order.ClientOrderID,
			&order.Broker,
			&order.Symbol,
			&order.Side,
			&order.Strategy,
			&order.Price,
			&order.Quantity,
			&order.Status,
			&order.Error,
			&order.CreatedAt,
		)
		if err != nil {
			continue
		}
		orders = append(orders, order)
	}

	return orders, nil
}

// QueryTrades 查询平仓记录
func (s *SQLiteStorage) QueryTrades(startTime, endTime time.Time, limit, offset int) ([]*TradeRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, symbol, strategy, side, entry_price, exit_price, quantity, pnl, reason, broker, created_at
		FROM trades
		WHERE created_at >= ? AND created_at <= ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, utils.ToUTC(startTime), utils.ToUTC(endTime), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("查询交易失败: %w", err)
	}
	defer rows.Close()

	var trades []*TradeRecord
	for rows.Next() {
		trade := &TradeRecord{}
		err := rows.Scan(
			&trade.ID,
			&trade.Symbol,
			&trade.Strategy,
			&trade.Side,
			&trade.EntryPrice,
			&trade.ExitPrice,
			&trade.Quantity,
			&trade.PnL,
			&trade.Reason,
			&trade.Broker,
			&trade.CreatedAt,
		)
		if err != nil {
			continue
		}
		trades = append(trades, trade)
	}

	return trades, nil
}

// QueryAlerts 查询预警
func (s *SQLiteStorage) QueryAlerts(limit, offset int, kind string) ([]*AlertEntry, error) {
	query := `
		SELECT id, symbol, kind, level, price, status, created_at
		FROM alerts
		WHERE 1=1
	`
	args := []interface{}{}

	if kind != "" {
		query += " AND kind = ?"
		args = append(args, kind)
	}

	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("查询预警失败: %w", err)
	}
	defer rows.Close()

	var alerts []*AlertEntry
	for rows.Next() {
		alert := &AlertEntry{}
		err := rows.Scan(
			&alert.ID,
			&alert.Symbol,
			&alert.Kind,
			&alert.Level,
			&alert.Price,
			&alert.Status,
			&alert.CreatedAt,
		)
		if err != nil {
			continue
		}
		alerts = append(alerts, alert)
	}

	return alerts, nil
}

// QueryEvents 查询事件
func (s *SQLiteStorage) QueryEvents(limit, offset int, eventType string) ([]*EventRow, error) {
	query := `
		SELECT id, event_type, data, created_at
		FROM events
		WHERE 1=1
	`
	args := []interface{}{}

	if eventType != "" {
		query += " AND event_type = ?"
		args = append(args, eventType)
	}

	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("查询事件失败: %w", err)
	}
	defer rows.Close()

	var events []*EventRow
	for rows.Next() {
		event := &EventRow{}
		err := rows.Scan(
			&event.ID,
			&event.Type,
			&event.Data,
			&event.CreatedAt,
		)
		if err != nil {
			continue
		}
		events = append(events, event)
	}

	return events, nil
}

// CleanupOldEvents 清理过期事件
func (s *SQLiteStorage) CleanupOldEvents(days int) (int64, error) {
	cutoff := utils.NowUTC().AddDate(0, 0, -days)
	result, err := s.db.Exec(`DELETE FROM events WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("清理事件失败: %w", err)
	}
	return result.RowsAffected()
}

// Close 关闭存储
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
