package marketdata

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MarketHours 交易时段日历。
// 印度市场 09:15-15:30，周六周日休市；开盘分钟含、收盘分钟不含。
type MarketHours struct {
	openMinute  int
	closeMinute int
	loc         *time.Location
}

// NewMarketHours 创建交易时段日历，open/close 形如 "09:15"
func NewMarketHours(open, close string, loc *time.Location) (*MarketHours, error) {
	openMinute, err := parseHHMM(open)
	if err != nil {
		return nil, fmt.Errorf("开盘时间无效: %w", err)
	}
	closeMinute, err := parseHHMM(close)
	if err != nil {
		return nil, fmt.Errorf("收盘时间无效: %w", err)
	}
	if closeMinute <= openMinute {
		return nil, fmt.Errorf("收盘时间 %s 需晚于开盘时间 %s", close, open)
	}
	if loc == nil {
		loc = time.UTC
	}

	return &MarketHours{
		openMinute:  openMinute,
		closeMinute: closeMinute,
		loc:         loc,
	}, nil
}

// IsOpen 判断给定时刻是否在交易时段内。
// 收盘那一分钟视为休市，不再接受新信号。
func (h *MarketHours) IsOpen(t time.Time) bool {
	local := t.In(h.loc)

	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}

	minute := local.Hour()*60 + local.Minute()
	return minute >= h.openMinute && minute < h.closeMinute
}

// NextOpen 给定时刻之后的下一个开盘时间
func (h *MarketHours) NextOpen(t time.Time) time.Time {
	local := t.In(h.loc)
	open := time.Date(local.Year(), local.Month(), local.Day(),
		h.openMinute/60, h.openMinute%60, 0, 0, h.loc)

	if !local.Before(open) {
		open = open.AddDate(0, 0, 1)
	}
	for open.Weekday() == time.Saturday || open.Weekday() == time.Sunday {
		open = open.AddDate(0, 0, 1)
	}

	return open
}

func parseHHMM(clock string) (int, error) {
	parts := strings.Split(clock, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("时间格式应为 HH:MM: %s", clock)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("小时无效: %s", clock)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("分钟无效: %s", clock)
	}

	return hour*60 + minute, nil
}
