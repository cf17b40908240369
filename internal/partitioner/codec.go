package partitioner

import (
	"fmt"
	"math/rand/v2"
	"slices"
)

// Chromosome: 一个候选分组方案
// 离散编码直接保存每个学生的组别，只有在 Genes / FromGenes 时才展开为 one-hot
// 创建后不可修改，变异与交叉总是返回新的染色体
type Chromosome struct {
	encoding Encoding
	groups   int
	labels   []int     // 离散编码：labels[i] 为第 i 个学生的组别
	weights  []float64 // 连续编码：weights[i*K:(i+1)*K] 为第 i 个学生的权重
}

func (c *Chromosome) Encoding() Encoding {
	return c.encoding
}

func (c *Chromosome) GroupCount() int {
	return c.groups
}

// Individuals 返回染色体所描述的个体数量 N
func (c *Chromosome) Individuals() int {
	if c.encoding == EncodingDiscrete {
		return len(c.labels)
	}
	return len(c.weights) / c.groups
}

// Len 返回基因长度 N*K
func (c *Chromosome) Len() int {
	return c.Individuals() * c.groups
}

// Genes 返回长度为 N*K 的基因序列：离散编码为 one-hot 块，连续编码为权重块
func (c *Chromosome) Genes() []float64 {
	if c.encoding == EncodingContinuous {
		return slices.Clone(c.weights)
	}

	genes := make([]float64, len(c.labels)*c.groups)
	for i, label := range c.labels {
		genes[i*c.groups+label] = 1
	}
	return genes
}

// Block 返回第 i 个学生的基因块
func (c *Chromosome) Block(i int) []float64 {
	if c.encoding == EncodingContinuous {
		return slices.Clone(c.weights[i*c.groups : (i+1)*c.groups])
	}

	block := make([]float64, c.groups)
	block[c.labels[i]] = 1
	return block
}

// FromGenes 从外部的基因序列还原染色体
// 离散编码中不是严格 one-hot 的块取第一个最大值所在的组，连续编码的块会被重新归一化
func FromGenes(encoding Encoding, groups int, genes []float64) (*Chromosome, error) {
	if groups < 2 || len(genes) == 0 || len(genes)%groups != 0 {
		return nil, fmt.Errorf("%w: 长度 %d，分组数 %d", ErrMalformedGenes, len(genes), groups)
	}

	n := len(genes) / groups

	switch encoding {
	case EncodingDiscrete:
		labels := make([]int, n)
		for i := 0; i < n; i++ {
			labels[i] = argmax(genes[i*groups : (i+1)*groups])
		}
		return &Chromosome{encoding: encoding, groups: groups, labels: labels}, nil
	case EncodingContinuous:
		weights := slices.Clone(genes)
		for i := 0; i < n; i++ {
			block := weights[i*groups : (i+1)*groups]
			for j := range block {
				block[j] = max(0, block[j])
			}
			normalizeBlock(block)
		}
		return &Chromosome{encoding: encoding, groups: groups, weights: weights}, nil
	default:
		return nil, fmt.Errorf("%w: 未知的编码方式 %q", ErrMalformedGenes, encoding)
	}
}

// Codec 负责染色体的随机生成与解码
type Codec interface {
	Create(rng *rand.Rand) *Chromosome
	Decode(ch *Chromosome) Partition
}

// NewCodec 根据编码方式创建对应的编解码器
func NewCodec(encoding Encoding, n, groups int) Codec {
	if encoding == EncodingContinuous {
		return &continuousCodec{n: n, groups: groups}
	}
	return &discreteCodec{n: n, groups: groups}
}

type discreteCodec struct {
	n      int
	groups int
}

// Create 随机初始化一个染色体
// 每组先放入 N/K 个标签，余下的名额分给互不相同的随机组，再整体打乱
func (c *discreteCodec) Create(rng *rand.Rand) *Chromosome {
	base := c.n / c.groups
	labels := make([]int, 0, c.n)
	for g := 0; g < c.groups; g++ {
		for i := 0; i < base; i++ {
			labels = append(labels, g)
		}
	}

	extra := rng.Perm(c.groups)
	for i := 0; i < c.n%c.groups; i++ {
		labels = append(labels, extra[i])
	}

	rng.Shuffle(len(labels), func(i, j int) {
		labels[i], labels[j] = labels[j], labels[i]
	})

	return &Chromosome{encoding: EncodingDiscrete, groups: c.groups, labels: labels}
}

func (c *discreteCodec) Decode(ch *Chromosome) Partition {
	partition := make(Partition, ch.groups)
	for g := range partition {
		partition[g] = []int{}
	}
	for i, label := range ch.labels {
		partition[label] = append(partition[label], i)
	}
	return partition
}

type continuousCodec struct {
	n      int
	groups int
}

func (c *continuousCodec) Create(rng *rand.Rand) *Chromosome {
	weights := make([]float64, c.n*c.groups)
	for i := 0; i < c.n; i++ {
		block := weights[i*c.groups : (i+1)*c.groups]
		for j := range block {
			block[j] = rng.Float64()
		}
		normalizeBlock(block)
	}

	return &Chromosome{encoding: EncodingContinuous, groups: c.groups, weights: weights}
}

// Decode 把每个学生分到权重最大的组，权重相同时取下标最小的组
func (c *continuousCodec) Decode(ch *Chromosome) Partition {
	partition := make(Partition, ch.groups)
	for g := range partition {
		partition[g] = []int{}
	}
	for i := 0; i < ch.Individuals(); i++ {
		g := argmax(ch.weights[i*ch.groups : (i+1)*ch.groups])
		partition[g] = append(partition[g], i)
	}
	return partition
}

// argmax 返回第一个最大值的下标
func argmax(block []float64) int {
	best := 0
	for j := 1; j < len(block); j++ {
		if block[j] > block[best] {
			best = j
		}
	}
	return best
}

// normalizeBlock 原地把非负权重归一化，总和为 0 时重置为均匀分布
func normalizeBlock(block []float64) {
	sum := 0.0
	for _, w := range block {
		sum += w
	}

	if sum <= 0 {
		for j := range block {
			block[j] = 1 / float64(len(block))
		}
		return
	}

	for j := range block {
		block[j] /= sum
	}
}
