package analysis

// BuildupReading 持仓堆积形态（代理口径）
type BuildupReading struct {
	Pattern        string `json:"pattern"`         // PUT_BUILDUP / CALL_BUILDUP / BALANCED
	Interpretation string `json:"interpretation"`
	RiskLevel      string `json:"risk_level"`      // HIGH / LOW
	TimeHorizon    string `json:"time_horizon"`    // SHORT_TERM / MEDIUM_TERM
}

// DetectBuildup 结合 PCR 代理与技术面情绪判断堆积方向。
// 恐慌盘里技术面反而走空，视作看跌持仓在堆积（反转燃料）；反之亦然。
func DetectBuildup(pcr float64, sentiment string) BuildupReading {
	switch {
	case pcr > 1.2 && sentiment == SentimentBearish:
		return BuildupReading{
			Pattern:        "PUT_BUILDUP",
			Interpretation: "看跌持仓堆积，一旦企稳容易轧空反弹",
			RiskLevel:      "HIGH",
			TimeHorizon:    "SHORT_TERM",
		}
	case pcr < 0.8 && sentiment == SentimentBullish:
		return BuildupReading{
			Pattern:        "CALL_BUILDUP",
			Interpretation: "看涨持仓堆积，追高盘多，谨防获利回吐",
			RiskLevel:      "HIGH",
			TimeHorizon:    "SHORT_TERM",
		}
	default:
		return BuildupReading{
			Pattern:        "BALANCED",
			Interpretation: "多空持仓均衡，无明显堆积",
			RiskLevel:      "LOW",
			TimeHorizon:    "MEDIUM_TERM",
		}
	}
}

// UnwindingReading 持仓解除形态（代理口径）
type UnwindingReading struct {
	Signal         string `json:"signal"`         // PUT_UNWINDING / CALL_UNWINDING / NO_UNWINDING
	Interpretation string `json:"interpretation"`
	Confidence     string `json:"confidence"`     // HIGH / LOW
}

// DetectUnwinding 极端情绪配合反向技术面，视作原有持仓在解除
func DetectUnwinding(pcr float64, sentiment string) UnwindingReading {
	switch {
	case pcr > 1.5 && sentiment == SentimentBullish:
		return UnwindingReading{
			Signal:         "PUT_UNWINDING",
			Interpretation: "恐慌见顶而技术面转多，看跌持仓解除中",
			Confidence:     "HIGH",
		}
	case pcr < 0.5 && sentiment == SentimentBearish:
		return UnwindingReading{
			Signal:         "CALL_UNWINDING",
			Interpretation: "贪婪见顶而技术面转空，看涨持仓解除中",
			Confidence:     "HIGH",
		}
	default:
		return UnwindingReading{
			Signal:         "NO_UNWINDING",
			Interpretation: "未见明显持仓解除",
			Confidence:     "LOW",
		}
	}
}
