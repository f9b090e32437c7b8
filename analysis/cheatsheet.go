package analysis

// CheatsheetEntry 速查表条目
type CheatsheetEntry struct {
	Key         string `json:"key"`
	Description string `json:"description"`
}

// Cheatsheet 期权情绪速查表，静态内容，给仪表盘帮助页用
type Cheatsheet struct {
	PCRInterpretation []CheatsheetEntry `json:"pcr_interpretation"`
	OIPatterns        []CheatsheetEntry `json:"oi_patterns"`
	TradingRules      []CheatsheetEntry `json:"trading_rules"`
	RiskManagement    []CheatsheetEntry `json:"risk_management"`
}

// BuildCheatsheet 返回速查表
func BuildCheatsheet() *Cheatsheet {
	return &Cheatsheet{
		PCRInterpretation: []CheatsheetEntry{
			{Key: "PCR > 1.5", Description: "极度恐慌，反转买点，考虑买入看涨期权"},
			{Key: "PCR 1.2-1.5", Description: "偏恐慌，等待企稳确认"},
			{Key: "PCR 0.8-1.2", Description: "中性区间，跟随技术面"},
			{Key: "PCR 0.5-0.8", Description: "偏贪婪，小心追高"},
			{Key: "PCR < 0.5", Description: "极度贪婪，考虑买入看跌期权"},
		},
		OIPatterns: []CheatsheetEntry{
			{Key: "PUT_BUILDUP", Description: "看跌持仓堆积+技术面走空，关注轧空反弹"},
			{Key: "CALL_BUILDUP", Description: "看涨持仓堆积+技术面走多，关注获利回吐"},
			{Key: "PUT_UNWINDING", Description: "恐慌解除，底部确认信号"},
			{Key: "CALL_UNWINDING", Description: "贪婪解除，顶部确认信号"},
		},
		TradingRules: []CheatsheetEntry{
			{Key: "顺势", Description: "信号与趋势同向时才加码，逆势信号减半仓"},
			{Key: "确认", Description: "突破需收盘确认，影线刺穿不算数"},
			{Key: "时段", Description: "开盘半小时和收盘前半小时波动大，轻仓应对"},
		},
		RiskManagement: []CheatsheetEntry{
			{Key: "单笔风险", Description: "单笔亏损不超过本金的2%"},
			{Key: "止损", Description: "进场前先定止损位，触发即走不抱侥幸"},
			{Key: "日内熔断", Description: "当日亏损到上限立即停止交易"},
		},
	}
}
