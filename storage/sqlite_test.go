package storage

import (
	"os"
	"testing"
	"time"
)

func TestSQLiteStorage(t *testing.T) {
	dbPath := "./test_intradesk.db"
	defer os.Remove(dbPath)
	defer os.Remove(dbPath + "-shm")
	defer os.Remove(dbPath + "-wal")

	storage, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("创建存储失败: %v", err)
	}
	defer storage.Close()

	// 1. 测试保存和查询信号
	signal := &SignalRecord{
		Strategy:   "ORB",
		Symbol:     "NIFTY50",
		Side:       "BUY",
		Price:      22100.0,
		Quantity:   100,
		StopLoss:   21995.0,
		TakeProfit: 22300.0,
		Confidence: 0.72,
		Broker:     "dhan",
		Status:     "generated",
		CreatedAt:  time.Now(),
	}

	if err := storage.SaveSignal(signal); err != nil {
		t.Errorf("保存信号失败: %v", err)
	}

	rejected := &SignalRecord{
		Strategy:  "VWAP",
		Symbol:    "BANKNIFTY",
		Side:      "SELL",
		Price:     47200.0,
		Quantity:  50,
		Broker:    "zerodha",
		Status:    "rejected",
		Reason:    "持仓数量已达上限",
		CreatedAt: time.Now(),
	}
	if err := storage.SaveSignal(rejected); err != nil {
		t.Errorf("保存被拒信号失败: %v", err)
	}

	signals, err := storage.QuerySignals(10, 0, "ORB", "")
	if err != nil {
		t.Errorf("查询信号失败: %v", err)
	}
	if len(signals) != 1 || signals[0].Symbol != "NIFTY50" {
		t.Errorf("按策略查询信号结果不正确: %v", signals)
	}
	if signals[0].StopLoss != 21995.0 || signals[0].Confidence != 0.72 {
		t.Errorf("信号字段未完整保存: %+v", signals[0])
	}

	all, err := storage.QuerySignals(10, 0, "", "")
	if err != nil {
		t.Errorf("查询全部信号失败: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("期望 2 条信号，得到 %d", len(all))
	}

	// 2. 测试保存和查询订单
	order := &OrderRecord{
		OrderID:       "DH123456789",
		ClientOrderID: "intradesk_1712000000_000001",
		Broker:        "dhan",
		Symbol:        "NIFTY50",
		Side:          "BUY",
		Strategy:      "ORB",
		Price:         22100.0,
		Quantity:      100,
		Status:        "placed",
		CreatedAt:     time.Now(),
	}
	if err := storage.SaveOrder(order); err != nil {
		t.Errorf("保存订单失败: %v", err)
	}

	failed := &OrderRecord{
		ClientOrderID: "intradesk_1712000000_000002",
		Broker:        "angelone",
		Symbol:        "SENSEX",
		Side:          "SELL",
		Strategy:      "MACD+RSI",
		Price:         73500.0,
		Quantity:      25,
		Status:        "failed",
		Error:         "请求超时",
		CreatedAt:     time.Now(),
	}
	if err := storage.SaveOrder(failed); err != nil {
		t.Errorf("保存失败订单失败: %v", err)
	}

	orders, err := storage.QueryOrders(10, 0, "placed")
	if err != nil {
		t.Errorf("查询订单失败: %v", err)
	}
	if len(orders) != 1 || orders[0].OrderID != "DH123456789" {
		t.Errorf("按状态查询订单结果不正确: %v", orders)
	}

	failedOrders, _ := storage.QueryOrders(10, 0, "failed")
	if len(failedOrders) != 1 || failedOrders[0].Error != "请求超时" {
		t.Errorf("失败订单未记录错误信息: %v", failedOrders)
	}

	// 3. 测试保存和查询平仓记录
	trade := &TradeRecord{
		Symbol:     "NIFTY50",
		Strategy:   "ORB",
		Side:       "BUY",
		EntryPrice: 22100.0,
		ExitPrice:  22300.0,
		Quantity:   100,
		PnL:        20000.0,
		Reason:     "take_profit",
		Broker:     "dhan",
		CreatedAt:  time.Now(),
	}
	if err := storage.SaveTrade(trade); err != nil {
		t.Errorf("保存平仓记录失败: %v", err)
	}

	trades, err := storage.QueryTrades(time.Now().Add(-time.Hour), time.Now().Add(time.Hour), 10, 0)
	if err != nil {
		t.Errorf("查询平仓记录失败: %v", err)
	}
	if len(trades) != 1 || trades[0].PnL != 20000.0 {
		t.Errorf("平仓记录查询结果不正确: %v", trades)
	}
	if trades[0].Strategy != "ORB" || trades[0].Reason != "take_profit" {
		t.Errorf("平仓记录字段未完整保存: %+v", trades[0])
	}

	// 时间窗口外应查不到
	old, _ := storage.QueryTrades(time.Now().Add(-2*time.Hour), time.Now().Add(-time.Hour), 10, 0)
	if len(old) != 0 {
		t.Errorf("时间窗口外不应有记录，得到 %d 条", len(old))
	}

	// 4. 测试保存和查询预警
	alert := &AlertEntry{
		Symbol:    "NIFTY50",
		Kind:      "breakout_up",
		Level:     22150.0,
		Price:     22163.5,
		Status:    "triggered",
		CreatedAt: time.Now(),
	}
	if err := storage.SaveAlert(alert); err != nil {
		t.Errorf("保存预警失败: %v", err)
	}

	alerts, err := storage.QueryAlerts(10, 0, "breakout_up")
	if err != nil {
		t.Errorf("查询预警失败: %v", err)
	}
	if len(alerts) != 1 || alerts[0].Level != 22150.0 {
		t.Errorf("预警查询结果不正确: %v", alerts)
	}

	// 5. 测试保存和查询事件
	if err := storage.SaveEvent("daily_loss_limit", map[string]interface{}{
		"message": "当日亏损触及熔断线，今日不再接受新信号",
	}); err != nil {
		t.Errorf("保存事件失败: %v", err)
	}

	events, err := storage.QueryEvents(10, 0, "daily_loss_limit")
	if err != nil {
		t.Errorf("查询事件失败: %v", err)
	}
	if len(events) != 1 || events[0].Type != "daily_loss_limit" {
		t.Errorf("事件查询结果不正确: %v", events)
	}
	if events[0].Data == "" {
		t.Error("事件数据不应为空")
	}

	// 6. 测试清理过期事件（刚写入的事件不应被清理）
	removed, err := storage.CleanupOldEvents(7)
	if err != nil {
		t.Errorf("清理事件失败: %v", err)
	}
	if removed != 0 {
		t.Errorf("7 天内的事件不应被清理，清理了 %d 条", removed)
	}
}

func TestSQLiteStorageQueryPagination(t *testing.T) {
	dbPath := "./test_intradesk_page.db"
	defer os.Remove(dbPath)
	defer os.Remove(dbPath + "-shm")
	defer os.Remove(dbPath + "-wal")

	storage, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("创建存储失败: %v", err)
	}
	defer storage.Close()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		signal := &SignalRecord{
			Strategy:  "ORB",
			Symbol:    "NIFTY50",
			Side:      "BUY",
			Price:     22000.0 + float64(i),
			Quantity:  100,
			Broker:    "dhan",
			Status:    "generated",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := storage.SaveSignal(signal); err != nil {
			t.Fatalf("保存信号失败: %v", err)
		}
	}

	page1, err := storage.QuerySignals(2, 0, "", "")
	if err != nil {
		t.Fatalf("查询第一页失败: %v", err)
	}
	if len(page1) != 2 {
		t.Errorf("期望 2 条，得到 %d", len(page1))
	}
	// 按时间倒序，第一条应是最新的
	if page1[0].Price != 22004.0 {
		t.Errorf("期望最新信号价格 22004，得到 %v", page1[0].Price)
	}

	page2, err := storage.QuerySignals(2, 2, "", "")
	if err != nil {
		t.Fatalf("查询第二页失败: %v", err)
	}
	if len(page2) != 2 {
		t.Errorf("期望 2 条，得到 %d", len(page2))
	}
	if page2[0].Price != 22002.0 {
		t.Errorf("期望第二页首条价格 22002，得到 %v", page2[0].Price)
	}
}
