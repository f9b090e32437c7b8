package utils

import (
	"time"
)

var (
	// GlobalLocation 全局配置的时区
	GlobalLocation *time.Location
)

func init() {
	// 默认加载印度标准时间（IST）
	SetLocation("Asia/Kolkata")
}

// SetLocation 设置全局时区
func SetLocation(name string) error {
	loc, err := time.LoadLocation(name)
	if err != nil {
		// 如果加载失败，尝试常见的时区格式
		if name == "IST" || name == "UTC+5:30" || name == "Asia/Kolkata" {
			GlobalLocation = time.FixedZone("UTC+5:30", 5*60*60+30*60)
			return nil
		}
		// 如果还是失败，保留原有时区或默认值
		if GlobalLocation == nil {
			GlobalLocation = time.Local
		}
		return err
	}
	GlobalLocation = loc
	return nil
}

// ToConfiguredTimezone 将时间转换为配置的时区
func ToConfiguredTimezone(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.In(GlobalLocation)
}

// ToIST 将时间转换为印度标准时间 (保留兼容性，现在根据配置转换)
func ToIST(t time.Time) time.Time {
	return ToConfiguredTimezone(t)
}

// ToUTC 将时间转换为UTC时间
func ToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	// 转换为UTC时区
	return t.UTC()
}

// NowUTC 获取当前UTC时间
func NowUTC() time.Time {
	return time.Now().UTC()
}

// NowConfiguredTimezone 获取当前配置时区的时间
func NowConfiguredTimezone() time.Time {
	return time.Now().In(GlobalLocation)
}

// NowIST 获取当前印度标准时间 (保留兼容性，现在根据配置获取)
func NowIST() time.Time {
	return NowConfiguredTimezone()
}
