package indicators

import (
	"sort"
)

// ========== 支撑/阻力位 ==========

// PivotLevels 枢轴点支撑/阻力位
// 最高价严格高于左右各 N 根邻居的K线构成阻力位候选，
// 最低价严格低于左右邻居的构成支撑位候选，
// 相对间距在容差内的候选聚合为均值，避免位值碎片化
type PivotLevels struct {
	leftBars  int
	rightBars int
	tolerance float64
}

// NewPivotLevels 创建枢轴位指标
func NewPivotLevels(leftBars, rightBars int, tolerance float64) *PivotLevels {
	return &PivotLevels{
		leftBars:  leftBars,
		rightBars: rightBars,
		tolerance: tolerance,
	}
}

// Name 指标名称
func (p *PivotLevels) Name() string {
	return "PivotLevels"
}

// Period 所需周期数
func (p *PivotLevels) Period() int {
	return p.leftBars + p.rightBars + 1
}

// Calculate 返回聚合后的阻力位（升序）
func (p *PivotLevels) Calculate(candles []Candle) []float64 {
	return p.Resistances(candles)
}

// Resistances 聚合后的阻力位，升序
func (p *PivotLevels) Resistances(candles []Candle) []float64 {
	return ClusterLevels(p.pivotHighs(candles), p.tolerance)
}

// Supports 聚合后的支撑位，升序
func (p *PivotLevels) Supports(candles []Candle) []float64 {
	return ClusterLevels(p.pivotLows(candles), p.tolerance)
}

func (p *PivotLevels) pivotHighs(candles []Candle) []float64 {
	if len(candles) < p.Period() {
		return nil
	}

	var levels []float64
	for i := p.leftBars; i < len(candles)-p.rightBars; i++ {
		high := candles[i].High
		isPivot := true
		for j := i - p.leftBars; j <= i+p.rightBars; j++ {
			if j == i {
				continue
			}
			if candles[j].High >= high {
				isPivot = false
				break
			}
		}
		if isPivot {
			levels = append(levels, high)
		}
	}

	return levels
}

func (p *PivotLevels) pivotLows(candles []Candle) []float64 {
	if len(candles) < p.Period() {
		return nil
	}

	var levels []float64
	for i := p.leftBars; i < len(candles)-p.rightBars; i++ {
		low := candles[i].Low
		isPivot := true
		for j := i - p.leftBars; j <= i+p.rightBars; j++ {
			if j == i {
				continue
			}
			if candles[j].Low <= low {
				isPivot = false
				break
			}
		}
		if isPivot {
			levels = append(levels, low)
		}
	}

	return levels
}

// ClusterLevels 聚合相近的位值
// 输入先升序排序，与当前簇尾部的相对间距不超过容差的并入该簇，
// 每个簇输出为成员均值。对已聚合的结果再次聚合不会改变输出
func ClusterLevels(levels []float64, tolerance float64) []float64 {
	if len(levels) == 0 {
		return nil
	}

	sorted := make([]float64, len(levels))
	copy(sorted, levels)
	sort.Float64s(sorted)

	var result []float64
	cluster := []float64{sorted[0]}

	for _, level := range sorted[1:] {
		tail := cluster[len(cluster)-1]
		if tail > 0 && (level-tail)/tail <= tolerance {
			cluster = append(cluster, level)
		} else {
			result = append(result, Mean(cluster))
			cluster = []float64{level}
		}
	}
	result = append(result, Mean(cluster))

	return result
}

// NearestAbove 返回高于 price 的最近位值，levels 需升序
func NearestAbove(levels []float64, price float64) (float64, bool) {
	for _, level := range levels {
		if level > price {
			return level, true
		}
	}
	return 0, false
}

// NearestBelow 返回低于 price 的最近位值，levels 需升序
func NearestBelow(levels []float64, price float64) (float64, bool) {
	for i := len(levels) - 1; i >= 0; i-- {
		if levels[i] < price {
			return levels[i], true
		}
	}
	return 0, false
}

// 注册枢轴位指标
func init() {
	RegisterIndicator("PivotLevels", func(params map[string]interface{}) Indicator {
		left := getIntParam(params, "left_bars", 2)
		right := getIntParam(params, "right_bars", 2)
		tolerance := getFloatParam(params, "tolerance", 0.02)
		return NewPivotLevels(left, right, tolerance)
	})
}
