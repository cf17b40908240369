package partitioner

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"slices"
)

type Partitioner struct {
	parameters *Parameters
	n          int
	codec      Codec
	evaluator  *Evaluator
	rng        *rand.Rand
	logger     *slog.Logger
}

type Option func(*Partitioner)

// WithRand 使用调用方提供的随机数生成器，优先于 Parameters.Seed
func WithRand(rng *rand.Rand) Option {
	return func(p *Partitioner) {
		p.rng = rng
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Partitioner) {
		p.logger = logger
	}
}

// scored: 种群中的一个成员
type scored struct {
	chromosome *Chromosome
	fitness    float64
}

func New(parameters *Parameters, scores []float64, opts ...Option) (*Partitioner, error) {
	if err := parameters.Validate(len(scores)); err != nil {
		return nil, err
	}

	p := &Partitioner{
		parameters: parameters,
		n:          len(scores),
		codec:      NewCodec(parameters.Encoding, len(scores), parameters.GroupCount),
		evaluator:  NewEvaluator(scores, parameters.GroupCount, parameters.Tolerance, parameters.Weights),
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.rng == nil {
		seed := rand.Uint64()
		if parameters.Seed != nil {
			seed = *parameters.Seed
		}
		p.rng = rand.New(rand.NewPCG(seed, seed))
	}

	return p, nil
}

func (p *Partitioner) Codec() Codec {
	return p.codec
}

func (p *Partitioner) Evaluator() *Evaluator {
	return p.evaluator
}

// Evaluate 解码后计算适应度
func (p *Partitioner) Evaluate(ch *Chromosome) float64 {
	return p.evaluator.Evaluate(p.codec.Decode(ch))
}

// Run 执行完整的进化过程，在两代之间检查 ctx 是否已取消
func (p *Partitioner) Run(ctx context.Context) (*Result, error) {
	size := p.parameters.PopulationSize
	eliteCount := int(p.parameters.EliteFraction * float64(size))
	logEvery := p.parameters.LogEvery
	if logEvery <= 0 {
		logEvery = defaultLogEvery
	}

	// 生成初始种群
	pop := make([]*Chromosome, size)
	for i := range pop {
		pop[i] = p.codec.Create(p.rng)
	}

	history := make([]float64, 0, p.parameters.MaxGenerations)
	var ranked []scored

	for gen := 0; gen < p.parameters.MaxGenerations; gen++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// 评估并按适应度降序排列
		ranked = make([]scored, size)
		for i, ch := range pop {
			ranked[i] = scored{chromosome: ch, fitness: p.Evaluate(ch)}
		}
		slices.SortStableFunc(ranked, func(a, b scored) int {
			switch {
			case a.fitness > b.fitness:
				return -1
			case a.fitness < b.fitness:
				return 1
			default:
				return 0
			}
		})

		history = append(history, ranked[0].fitness)

		if gen%logEvery == 0 {
			p.logger.Debug("进化中", slog.Int("generation", gen), slog.Float64("best_fitness", ranked[0].fitness))
		}

		if gen == p.parameters.MaxGenerations-1 {
			break
		}

		pop = p.reproduce(ranked, eliteCount)
	}

	best := ranked[0]
	return &Result{
		Best:        best.chromosome,
		BestFitness: best.fitness,
		History:     history,
		Groups:      p.evaluator.Summarize(p.codec.Decode(best.chromosome)),
	}, nil
}

// reproduce 保留精英，其余位置由变异（离散）或交叉 + 高斯变异（连续）产生
func (p *Partitioner) reproduce(ranked []scored, eliteCount int) []*Chromosome {
	size := len(ranked)
	newPop := make([]*Chromosome, 0, size)

	// 保留精英
	for i := 0; i < eliteCount; i++ {
		newPop = append(newPop, ranked[i].chromosome)
	}

	switch p.parameters.Encoding {
	case EncodingDiscrete:
		// 从较好的一半中选择父本
		pool := max(size/2, 1)
		for len(newPop) < size {
			parent := ranked[p.rng.IntN(pool)].chromosome
			newPop = append(newPop, Mutate(parent, p.rng))
		}
	case EncodingContinuous:
		// 从前四分之一中选择两个父本
		pool := max(size/4, 1)
		for len(newPop) < size {
			p1 := ranked[p.rng.IntN(pool)].chromosome
			p2 := ranked[p.rng.IntN(pool)].chromosome
			child := Crossover(p1, p2, p.rng)
			newPop = append(newPop, MutateGaussian(child, p.parameters.Sigma, p.rng))
		}
	}

	return newPop
}
