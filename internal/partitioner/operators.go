package partitioner

import (
	"math/rand/v2"
	"slices"
)

// Mutate 随机选择两个学生（可重复），若组别不同则交换，各组人数保持不变
// 仅适用于离散编码，其余情况原样返回
func Mutate(ch *Chromosome, rng *rand.Rand) *Chromosome {
	if ch.encoding != EncodingDiscrete {
		return ch
	}

	n := len(ch.labels)
	i := rng.IntN(n)
	j := rng.IntN(n)

	if ch.labels[i] == ch.labels[j] {
		return ch
	}

	labels := slices.Clone(ch.labels)
	labels[i], labels[j] = labels[j], labels[i]

	return &Chromosome{encoding: ch.encoding, groups: ch.groups, labels: labels}
}

// MutateGaussian 对每个权重加上 N(0, sigma) 噪声，负值截断为 0 后重新归一化
// 整块被截断为 0 时重置为均匀分布
func MutateGaussian(ch *Chromosome, sigma float64, rng *rand.Rand) *Chromosome {
	if ch.encoding != EncodingContinuous || sigma == 0 {
		return ch
	}

	weights := slices.Clone(ch.weights)
	for i := 0; i < len(weights); i += ch.groups {
		block := weights[i : i+ch.groups]
		for j := range block {
			block[j] = max(0, block[j]+rng.NormFloat64()*sigma)
		}
		normalizeBlock(block)
	}

	return &Chromosome{encoding: ch.encoding, groups: ch.groups, weights: weights}
}

// Crossover 块级均匀交叉：每个学生的整块权重等概率来自 p1 或 p2，不会在块内混合
func Crossover(p1, p2 *Chromosome, rng *rand.Rand) *Chromosome {
	if p1.encoding != EncodingContinuous || len(p1.weights) != len(p2.weights) {
		return p1
	}

	k := p1.groups
	weights := make([]float64, len(p1.weights))
	for i := 0; i < len(weights); i += k {
		src := p2.weights
		if rng.Float64() < 0.5 {
			src = p1.weights
		}
		copy(weights[i:i+k], src[i:i+k])
	}

	return &Chromosome{encoding: p1.encoding, groups: k, weights: weights}
}
