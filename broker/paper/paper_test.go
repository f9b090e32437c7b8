package paper

import (
	"context"
	"testing"
)

func TestPlaceOrderFillsAtReferencePrice(t *testing.T) {
	b := New()

	orderID, err := b.PlaceOrder(context.Background(), &OrderParams{
		Symbol: "NIFTY50", Side: "BUY", OrderType: "MARKET", Quantity: 100, Price: 24500,
	})
	if err != nil {
		t.Fatalf("模拟下单失败: %v", err)
	}
	if orderID != "PAPER-000001" {
		t.Errorf("orderID = %s, want PAPER-000001", orderID)
	}

	second, err := b.PlaceOrder(context.Background(), &OrderParams{
		Symbol: "BANKNIFTY", Side: "SELL", OrderType: "MARKET", Quantity: 50, Price: 52000,
	})
	if err != nil {
		t.Fatalf("第二笔模拟下单失败: %v", err)
	}
	if second != "PAPER-000002" {
		t.Errorf("订单号应递增, got %s", second)
	}

	fills := b.Fills()
	if len(fills) != 2 {
		t.Fatalf("成交记录数 = %d, want 2", len(fills))
	}
	if fills[0].Price != 24500 || fills[0].Quantity != 100 {
		t.Errorf("第一笔成交 = %+v", fills[0])
	}
}

func TestPlaceOrderFallsBackToFedPrice(t *testing.T) {
	b := New()
	b.SetPrice("NIFTY50", 24480)

	_, err := b.PlaceOrder(context.Background(), &OrderParams{
		Symbol: "NIFTY50", Side: "BUY", OrderType: "MARKET", Quantity: 100,
	})
	if err != nil {
		t.Fatalf("应回退到喂价成交: %v", err)
	}

	fills := b.Fills()
	if fills[0].Price != 24480 {
		t.Errorf("成交价 = %.2f, want 24480", fills[0].Price)
	}
}

func TestPlaceOrderNoPrice(t *testing.T) {
	b := New()

	_, err := b.PlaceOrder(context.Background(), &OrderParams{
		Symbol: "NIFTY50", Side: "BUY", OrderType: "MARKET", Quantity: 100,
	})
	if err == nil {
		t.Fatal("无参考价也无喂价时应下单失败")
	}

	_, err = b.PlaceOrder(context.Background(), &OrderParams{
		Symbol: "NIFTY50", Side: "BUY", OrderType: "MARKET", Price: 24500,
	})
	if err == nil {
		t.Fatal("数量为 0 时应下单失败")
	}
}

func TestGetLivePrice(t *testing.T) {
	b := New()

	if _, err := b.GetLivePrice(context.Background(), "NIFTY50"); err == nil {
		t.Fatal("未喂价的标的查询应失败")
	}

	b.SetPrice("NIFTY50", 24500)
	price, err := b.GetLivePrice(context.Background(), "NIFTY50")
	if err != nil {
		t.Fatalf("查询喂价失败: %v", err)
	}
	if price != 24500 {
		t.Errorf("price = %.2f, want 24500", price)
	}

	// 成交后最新价跟随成交价
	b.PlaceOrder(context.Background(), &OrderParams{
		Symbol: "NIFTY50", Side: "BUY", OrderType: "MARKET", Quantity: 10, Price: 24510,
	})
	price, _ = b.GetLivePrice(context.Background(), "NIFTY50")
	if price != 24510 {
		t.Errorf("成交后最新价 = %.2f, want 24510", price)
	}
}
