package risk

import (
	"sync"

	"intradesk/utils"
)

// DailyTracker 累计当日已实现盈亏，交易日按配置时区（默认 IST）划分，
// 跨日后自动清零
type DailyTracker struct {
	mu       sync.Mutex
	day      string
	realized float64
	wins     int
	losses   int
}

// NewDailyTracker 创建当日盈亏跟踪器
func NewDailyTracker() *DailyTracker {
	return &DailyTracker{day: currentTradingDay()}
}

// Add 记录一笔已实现盈亏
func (t *DailyTracker) Add(pnl float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rolloverLocked()

	t.realized += pnl
	if pnl >= 0 {
		t.wins++
	} else {
		t.losses++
	}
}

// Realized 返回当日累计已实现盈亏
func (t *DailyTracker) Realized() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rolloverLocked()
	return t.realized
}

// Stats 返回当日盈亏、盈利笔数与亏损笔数
func (t *DailyTracker) Stats() (realized float64, wins, losses int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rolloverLocked()
	return t.realized, t.wins, t.losses
}

// Day 返回当前统计的交易日
func (t *DailyTracker) Day() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rolloverLocked()
	return t.day
}

func (t *DailyTracker) rolloverLocked() {
	today := currentTradingDay()
	if t.day != today {
		t.day = today
		t.realized = 0
		t.wins = 0
		t.losses = 0
	}
}

func currentTradingDay() string {
	return utils.NowConfiguredTimezone().Format("2006-01-02")
}
