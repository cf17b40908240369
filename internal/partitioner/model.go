package partitioner

import (
	"errors"
	"fmt"
	"math"
)

// PenaltyFitness 分组人数不满足约束时的适应度
// 可行解的适应度随成绩量纲变化且没有下界，因此取最小的有限浮点数（-Inf 无法编码为 JSON）
const PenaltyFitness = -math.MaxFloat64

var (
	ErrInfeasibleConfiguration = errors.New("分组配置不可行")
	ErrMalformedGenes          = errors.New("基因长度与分组数不匹配")
)

// Encoding: 染色体的编码方式
type Encoding string

const (
	EncodingDiscrete   Encoding = "discrete"   // 每个学生一个组别标签（对外表现为 one-hot）
	EncodingContinuous Encoding = "continuous" // 每个学生 K 个归一化权重
)

// Tolerance: 组大小的容忍策略
type Tolerance string

const (
	ToleranceExact Tolerance = "exact" // 每组恰好 N/K 人
	ToleranceBand  Tolerance = "band"  // 每组人数与 N/K 相差不超过 1
	ToleranceFree  Tolerance = "free"  // 只要求每组非空
)

// Weights: 适应度各项的权重
// fitness = Baseline - Balance*组均值标准差 - Homogeneity*组内方差均值 + Diversity*分层多样性
type Weights struct {
	Balance     float64 `json:"balance"`
	Homogeneity float64 `json:"homogeneity"`
	Diversity   float64 `json:"diversity"`
	Baseline    float64 `json:"baseline"`
}

var (
	DiversityWeights  = Weights{Balance: 1, Homogeneity: 1, Diversity: 1}
	BalanceWeights    = Weights{Balance: 1}
	ContinuousWeights = Weights{Balance: 80, Homogeneity: 10, Baseline: 100}
)

// 遗传算法参数
type Parameters struct {
	Encoding       Encoding  // 编码方式
	GroupCount     int       // 分组数 K
	Tolerance      Tolerance // 组大小容忍策略
	PopulationSize int       // 种群大小
	MaxGenerations int       // 迭代次数
	EliteFraction  float64   // 精英比例，取值 [0, 1)
	Sigma          float64   // 高斯变异强度（仅连续编码）
	Weights        Weights   // 适应度权重
	Seed           *uint64   // 随机种子，为 nil 时随机生成
	LogEvery       int       // 每隔多少代输出一次日志，0 表示使用默认值
}

const defaultLogEvery = 20

// DiversityPreset: 三组、严格等分、兼顾组内方差与分层多样性
func DiversityPreset() *Parameters {
	return &Parameters{
		Encoding:       EncodingDiscrete,
		GroupCount:     3,
		Tolerance:      ToleranceExact,
		PopulationSize: 50,
		MaxGenerations: 100,
		EliteFraction:  0.2,
		Weights:        DiversityWeights,
	}
}

// BalancePreset: 四组、允许 ±1 人、只追求组均值平衡
func BalancePreset() *Parameters {
	return &Parameters{
		Encoding:       EncodingDiscrete,
		GroupCount:     4,
		Tolerance:      ToleranceBand,
		PopulationSize: 50,
		MaxGenerations: 100,
		EliteFraction:  0.2,
		Weights:        BalanceWeights,
	}
}

// ContinuousPreset: 连续权重编码，交叉 + 高斯变异
func ContinuousPreset(sigma float64) *Parameters {
	return &Parameters{
		Encoding:       EncodingContinuous,
		GroupCount:     3,
		Tolerance:      ToleranceFree,
		PopulationSize: 100,
		MaxGenerations: 150,
		EliteFraction:  0.1,
		Sigma:          sigma,
		Weights:        ContinuousWeights,
	}
}

// Validate 检查参数与个体数量 n 能否共存
func (p *Parameters) Validate(n int) error {
	switch {
	case p.GroupCount < 2:
		return fmt.Errorf("%w: 分组数至少为 2，当前为 %d", ErrInfeasibleConfiguration, p.GroupCount)
	case n < p.GroupCount:
		return fmt.Errorf("%w: 人数 %d 少于分组数 %d", ErrInfeasibleConfiguration, n, p.GroupCount)
	case p.PopulationSize < 1:
		return fmt.Errorf("%w: 种群大小必须为正数", ErrInfeasibleConfiguration)
	case p.MaxGenerations < 1:
		return fmt.Errorf("%w: 迭代次数必须为正数", ErrInfeasibleConfiguration)
	case p.EliteFraction < 0 || p.EliteFraction >= 1:
		return fmt.Errorf("%w: 精英比例必须位于 [0, 1)", ErrInfeasibleConfiguration)
	case p.Sigma < 0:
		return fmt.Errorf("%w: 变异强度不能为负数", ErrInfeasibleConfiguration)
	}

	switch p.Encoding {
	case EncodingDiscrete, EncodingContinuous:
	default:
		return fmt.Errorf("%w: 未知的编码方式 %q", ErrInfeasibleConfiguration, p.Encoding)
	}

	switch p.Tolerance {
	case ToleranceExact:
		if n%p.GroupCount != 0 {
			return fmt.Errorf("%w: %d 人无法严格等分为 %d 组", ErrInfeasibleConfiguration, n, p.GroupCount)
		}
	case ToleranceBand, ToleranceFree:
	default:
		return fmt.Errorf("%w: 未知的容忍策略 %q", ErrInfeasibleConfiguration, p.Tolerance)
	}

	return nil
}

// Partition: 组下标 -> 按升序排列的个体下标
type Partition [][]int

func (p Partition) Sizes() []int {
	sizes := make([]int, len(p))
	for g, members := range p {
		sizes[g] = len(members)
	}
	return sizes
}

// GroupLabel 返回第 g 组的标签：A, B, C ...
func GroupLabel(g int) string {
	if g < 26 {
		return string(rune('A' + g))
	}
	return fmt.Sprintf("G%d", g+1)
}

// GroupStats: 单个分组的统计结果
type GroupStats struct {
	Label    string
	Members  []int
	Size     int
	Mean     float64
	Variance float64
	Low      int // 低分层人数
	Mid      int // 中分层人数
	High     int // 高分层人数
}

// Result: 一次完整运行的结果
type Result struct {
	Best        *Chromosome
	BestFitness float64
	History     []float64 // 每一代的最佳适应度
	Groups      []GroupStats
}
