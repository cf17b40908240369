package partitioner

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Evaluator 计算分组方案的适应度，持有一份只读的成绩副本
type Evaluator struct {
	scores    []float64
	groups    int
	tolerance Tolerance
	weights   Weights

	// 分层阈值：<= lowCut 为低分层，>= highCut 为高分层，其余为中分层
	lowCut  float64
	highCut float64
}

func NewEvaluator(scores []float64, groups int, tolerance Tolerance, weights Weights) *Evaluator {
	e := &Evaluator{
		scores:    slices.Clone(scores),
		groups:    groups,
		tolerance: tolerance,
		weights:   weights,
	}

	sorted := slices.Clone(scores)
	slices.Sort(sorted)
	third := len(sorted) / 3
	e.lowCut = sorted[third]
	e.highCut = sorted[len(sorted)-third-1]

	return e
}

// Feasible 检查每组人数是否落在容忍范围内
func (e *Evaluator) Feasible(sizes []int) bool {
	n := len(e.scores)
	for _, size := range sizes {
		switch e.tolerance {
		case ToleranceExact:
			if size*e.groups != n {
				return false
			}
		case ToleranceBand:
			// |size - N/K| <= 1
			diff := size*e.groups - n
			if diff < -e.groups || diff > e.groups {
				return false
			}
		}
		if size == 0 {
			return false
		}
	}
	return true
}

/**
 * 计算分组方案的适应度
 * fitness = Baseline - Balance * balance - Homogeneity * homogeneity + Diversity * diversity
 * 其中:
 * 		1. balance 为各组平均分的（总体）标准差
 * 		2. homogeneity 为各组组内方差的平均值
 * 		3. diversity 为各组覆盖的分层数之和除以 3K，范围 [1/3, 1]
 * 人数不满足约束的方案直接返回 PenaltyFitness
 */
func (e *Evaluator) Evaluate(partition Partition) float64 {
	if !e.Feasible(partition.Sizes()) {
		return PenaltyFitness
	}

	means := make([]float64, len(partition))
	variances := make([]float64, len(partition))
	members := make([]float64, 0, len(e.scores))

	for g, indices := range partition {
		members = members[:0]
		for _, i := range indices {
			members = append(members, e.scores[i])
		}
		means[g], variances[g] = stat.PopMeanVariance(members, nil)
	}

	fitness := e.weights.Baseline
	fitness -= e.weights.Balance * stat.PopStdDev(means, nil)
	if e.weights.Homogeneity != 0 {
		fitness -= e.weights.Homogeneity * stat.Mean(variances, nil)
	}
	if e.weights.Diversity != 0 {
		fitness += e.weights.Diversity * e.diversity(partition)
	}

	// 极端成绩可能溢出为 -Inf 或 NaN，可行解仍须严格高于 PenaltyFitness
	if math.IsNaN(fitness) || fitness <= PenaltyFitness {
		return math.Nextafter(PenaltyFitness, 0)
	}

	return fitness
}

// diversity 统计每组覆盖了几个分层（1~3），求和后按理想值 3K 归一化
func (e *Evaluator) diversity(partition Partition) float64 {
	total := 0
	for _, indices := range partition {
		low, mid, high := e.tiers(indices)
		for _, cnt := range []int{low, mid, high} {
			if cnt > 0 {
				total++
			}
		}
	}
	return float64(total) / float64(3*len(partition))
}

func (e *Evaluator) tiers(indices []int) (low, mid, high int) {
	for _, i := range indices {
		switch score := e.scores[i]; {
		case score <= e.lowCut:
			low++
		case score >= e.highCut:
			high++
		default:
			mid++
		}
	}
	return low, mid, high
}

// Summarize 生成每个分组的统计信息，供报表与持久化使用
func (e *Evaluator) Summarize(partition Partition) []GroupStats {
	groups := make([]GroupStats, len(partition))

	for g, indices := range partition {
		members := make([]float64, len(indices))
		for k, i := range indices {
			members[k] = e.scores[i]
		}

		stats := GroupStats{
			Label:   GroupLabel(g),
			Members: slices.Clone(indices),
			Size:    len(indices),
		}
		if len(members) > 0 {
			stats.Mean, stats.Variance = stat.PopMeanVariance(members, nil)
		}
		stats.Low, stats.Mid, stats.High = e.tiers(indices)

		groups[g] = stats
	}

	return groups
}
