package analysis

import (
	"math"
	"sort"
)

// MaxPain 最大痛点估算。没有期权持仓分布数据，
// 退而求其次取离现价最近的支撑/阻力位当磁吸位。
type MaxPain struct {
	Level       float64 `json:"level"`
	Distance    float64 `json:"distance"`    // 现价到痛点的距离（现价-痛点）
	Probability string  `json:"probability"` // MEDIUM（2%以内）/ LOW
}

// EstimateMaxPain 从支撑阻力位中选最接近现价的一档。
// 没有任何价位时返回 false。
func EstimateMaxPain(price float64, supports, resistances []float64) (*MaxPain, bool) {
	levels := make([]float64, 0, len(supports)+len(resistances))
	levels = append(levels, supports...)
	levels = append(levels, resistances...)
	if len(levels) == 0 || price <= 0 {
		return nil, false
	}

	sort.Float64s(levels)
	nearest := levels[0]
	best := math.Abs(price - nearest)
	for _, lv := range levels[1:] {
		if d := math.Abs(price - lv); d < best {
			best = d
			nearest = lv
		}
	}

	mp := &MaxPain{
		Level:    nearest,
		Distance: price - nearest,
	}
	if best/price < 0.02 {
		mp.Probability = "MEDIUM"
	} else {
		mp.Probability = "LOW"
	}
	return mp, true
}
