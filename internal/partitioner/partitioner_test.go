package partitioner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded(p *Parameters, seed uint64) *Parameters {
	p.Seed = &seed
	return p
}

func TestNewRejectsInfeasibleConfiguration(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Parameters)
		scores []float64
	}{
		{"分组数大于人数", func(p *Parameters) { p.GroupCount = 40 }, classScores},
		{"分组数小于 2", func(p *Parameters) { p.GroupCount = 1 }, classScores},
		{"无法严格等分", func(p *Parameters) { p.GroupCount = 4 }, classScores},
		{"精英比例为 1", func(p *Parameters) { p.EliteFraction = 1 }, classScores},
		{"种群为空", func(p *Parameters) { p.PopulationSize = 0 }, classScores},
		{"迭代次数为 0", func(p *Parameters) { p.MaxGenerations = 0 }, classScores},
		{"负的变异强度", func(p *Parameters) { p.Sigma = -0.1 }, classScores},
		{"未知的编码", func(p *Parameters) { p.Encoding = "permutation" }, classScores},
		{"未知的容忍策略", func(p *Parameters) { p.Tolerance = "loose" }, classScores},
		{"没有学生", func(p *Parameters) {}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := DiversityPreset()
			tt.mutate(params)

			_, err := New(params, tt.scores)
			assert.ErrorIs(t, err, ErrInfeasibleConfiguration)
		})
	}
}

func TestRunDiscreteThreeGroups(t *testing.T) {
	params := seeded(DiversityPreset(), 42)
	params.MaxGenerations = 30

	p, err := New(params, classScores)
	require.NoError(t, err)

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, res.History, 30)
	assert.Equal(t, res.History[len(res.History)-1], res.BestFitness)
	assert.Greater(t, res.BestFitness, PenaltyFitness)

	require.Len(t, res.Groups, 3)
	for _, g := range res.Groups {
		assert.Equal(t, 13, g.Size)
		assert.Len(t, g.Members, 13)
	}
	assert.Equal(t, []int{13, 13, 13}, p.Codec().Decode(res.Best).Sizes())
}

func TestRunDiscreteFourGroupsWithinBand(t *testing.T) {
	p, err := New(seeded(BalancePreset(), 7), classScores)
	require.NoError(t, err)

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	total := 0
	for _, g := range res.Groups {
		assert.Contains(t, []int{9, 10}, g.Size)
		total += g.Size
	}
	assert.Equal(t, 39, total)
}

func TestRunHistoryIsMonotonic(t *testing.T) {
	for name, params := range map[string]*Parameters{
		"diversity":  seeded(DiversityPreset(), 1),
		"balance":    seeded(BalancePreset(), 2),
		"continuous": seeded(ContinuousPreset(0.1), 3),
	} {
		t.Run(name, func(t *testing.T) {
			params.MaxGenerations = 40

			p, err := New(params, classScores)
			require.NoError(t, err)

			res, err := p.Run(context.Background())
			require.NoError(t, err)

			for g := 1; g < len(res.History); g++ {
				assert.GreaterOrEqual(t, res.History[g], res.History[g-1], "generation %d", g)
			}
		})
	}
}

func TestRunIsDeterministicWithSeed(t *testing.T) {
	for name, preset := range map[string]func() *Parameters{
		"discrete":   DiversityPreset,
		"continuous": func() *Parameters { return ContinuousPreset(0.5) },
	} {
		t.Run(name, func(t *testing.T) {
			run := func() *Result {
				params := seeded(preset(), 2024)
				params.MaxGenerations = 25

				p, err := New(params, classScores)
				require.NoError(t, err)
				res, err := p.Run(context.Background())
				require.NoError(t, err)
				return res
			}

			first, second := run(), run()
			assert.Equal(t, first.History, second.History)
			assert.Equal(t, first.Best.Genes(), second.Best.Genes())
		})
	}
}

func TestRunImprovesOverInitialPopulation(t *testing.T) {
	params := seeded(BalancePreset(), 99)
	params.MaxGenerations = 200

	p, err := New(params, classScores)
	require.NoError(t, err)

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Greater(t, res.History[len(res.History)-1], res.History[0])
}

func TestRunContinuousWithZeroSigma(t *testing.T) {
	params := seeded(ContinuousPreset(0), 5)
	params.MaxGenerations = 10

	p, err := New(params, classScores)
	require.NoError(t, err)

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.History, 10)

	genes := res.Best.Genes()
	for i := 0; i < len(genes); i += 3 {
		assert.InDelta(t, 1.0, genes[i]+genes[i+1]+genes[i+2], 1e-9)
	}
}

func TestRunWithInjectedRand(t *testing.T) {
	params := DiversityPreset()
	params.MaxGenerations = 5

	a, err := New(params, classScores, WithRand(newRand(77)))
	require.NoError(t, err)
	b, err := New(params, classScores, WithRand(newRand(77)))
	require.NoError(t, err)

	resA, err := a.Run(context.Background())
	require.NoError(t, err)
	resB, err := b.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, resA.History, resB.History)
}

func TestRunStopsWhenContextIsCanceled(t *testing.T) {
	p, err := New(seeded(DiversityPreset(), 1), classScores)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunWithoutElites(t *testing.T) {
	params := seeded(DiversityPreset(), 3)
	params.EliteFraction = 0
	params.PopulationSize = 1
	params.MaxGenerations = 3

	p, err := New(params, classScores)
	require.NoError(t, err)

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.History, 3)
}

func TestRunContinuousOnHundredPointScaleKeepsGroupsNonEmpty(t *testing.T) {
	scores := make([]float64, len(classScores))
	for i, s := range classScores {
		scores[i] = s * 5 // 0~20 分映射到 0~100 分
	}

	params := seeded(ContinuousPreset(0.5), 11)
	params.MaxGenerations = 40

	p, err := New(params, scores)
	require.NoError(t, err)

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Greater(t, res.BestFitness, PenaltyFitness)
	for _, f := range res.History {
		assert.Greater(t, f, PenaltyFitness)
	}
	for _, g := range res.Groups {
		assert.Positive(t, g.Size)
	}
}
