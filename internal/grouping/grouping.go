package grouping

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sysu-ecnc-dev/exam-balancer/backend/internal/domain"
	"github.com/sysu-ecnc-dev/exam-balancer/backend/internal/partitioner"
	"github.com/sysu-ecnc-dev/exam-balancer/backend/internal/report"
)

// ToPartitionerParameters 把请求参数转换为算法参数
// 未指定权重时：连续编码使用加权组合，离散编码严格等分时兼顾方差与多样性，否则只看均值平衡
func ToPartitionerParameters(params domain.GroupingParameters, logEvery int) *partitioner.Parameters {
	p := &partitioner.Parameters{
		Encoding:       partitioner.Encoding(params.Encoding),
		GroupCount:     params.GroupCount,
		Tolerance:      partitioner.Tolerance(params.Tolerance),
		PopulationSize: params.PopulationSize,
		MaxGenerations: params.MaxGenerations,
		EliteFraction:  params.EliteFraction,
		Sigma:          params.Sigma,
		Seed:           params.Seed,
		LogEvery:       logEvery,
	}

	switch {
	case params.Weights != nil:
		p.Weights = partitioner.Weights{
			Balance:     params.Weights.Balance,
			Homogeneity: params.Weights.Homogeneity,
			Diversity:   params.Weights.Diversity,
			Baseline:    params.Weights.Baseline,
		}
	case p.Encoding == partitioner.EncodingContinuous:
		p.Weights = partitioner.ContinuousWeights
	case p.Tolerance == partitioner.ToleranceExact:
		p.Weights = partitioner.DiversityWeights
	default:
		p.Weights = partitioner.BalanceWeights
	}

	return p
}

// Run 对名单执行一次自动分组并转换为可持久化的结果
func Run(ctx context.Context, roster *domain.Roster, params domain.GroupingParameters, logEvery int) (*domain.GroupingResult, error) {
	p, err := partitioner.New(ToPartitionerParameters(params, logEvery), roster.Scores(),
		partitioner.WithLogger(slog.Default().With(slog.Int64("roster_id", roster.ID))),
	)
	if err != nil {
		return nil, err
	}

	res, err := p.Run(ctx)
	if err != nil {
		return nil, err
	}

	return ToDomainResult(roster, params, res), nil
}

// ToDomainResult 把学生下标映射为学生 ID
func ToDomainResult(roster *domain.Roster, params domain.GroupingParameters, res *partitioner.Result) *domain.GroupingResult {
	return &domain.GroupingResult{
		RosterID:       roster.ID,
		Parameters:     params,
		BestFitness:    res.BestFitness,
		FitnessHistory: res.History,
		Genes:          res.Best.Genes(),
		Groups:         toDomainGroups(roster, res.Groups),
	}
}

func toDomainGroups(roster *domain.Roster, stats []partitioner.GroupStats) []domain.GroupingResultGroup {
	groups := make([]domain.GroupingResultGroup, len(stats))
	for g, s := range stats {
		ids := make([]int64, len(s.Members))
		for k, i := range s.Members {
			ids[k] = roster.Students[i].ID
		}

		groups[g] = domain.GroupingResultGroup{
			Label:      s.Label,
			StudentIDs: ids,
			Size:       s.Size,
			Mean:       s.Mean,
			Variance:   s.Variance,
			LowCount:   s.Low,
			MidCount:   s.Mid,
			HighCount:  s.High,
		}
	}
	return groups
}

// Sweep 使用相同的参数、不同的变异强度进行对比
func Sweep(ctx context.Context, roster *domain.Roster, params domain.GroupingParameters, sigmas []float64, logEvery int) ([]domain.SigmaSweepEntry, error) {
	results, err := partitioner.Sweep(ctx, ToPartitionerParameters(params, logEvery), roster.Scores(), sigmas)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.SigmaSweepEntry, len(results))
	for i, r := range results {
		entries[i] = domain.SigmaSweepEntry{
			Sigma:          r.Sigma,
			FinalFitness:   r.FinalFitness,
			FitnessHistory: r.Result.History,
			Groups:         toDomainGroups(roster, r.Result.Groups),
		}
	}

	return entries, nil
}

// ScoreGroups 按分组整理成员成绩，名单中已不存在的学生会被忽略
func ScoreGroups(roster *domain.Roster, groups []domain.GroupingResultGroup) []report.Group {
	index := make(map[int64]int, len(roster.Students))
	for i, s := range roster.Students {
		index[s.ID] = i
	}

	out := make([]report.Group, len(groups))
	for i, g := range groups {
		members := make([]int, 0, len(g.StudentIDs))
		for _, id := range g.StudentIDs {
			if k, ok := index[id]; ok {
				members = append(members, k)
			}
		}
		out[i] = report.Group{Label: g.Label, Scores: memberScores(roster, members)}
	}
	return out
}

// GroupScores 与 ScoreGroups 相同，但直接使用算法输出的学生下标，适用于未入库的名单
func GroupScores(roster *domain.Roster, stats []partitioner.GroupStats) []report.Group {
	out := make([]report.Group, len(stats))
	for i, s := range stats {
		out[i] = report.Group{Label: s.Label, Scores: memberScores(roster, s.Members)}
	}
	return out
}

func memberScores(roster *domain.Roster, members []int) []float64 {
	scores := make([]float64, len(members))
	for k, i := range members {
		scores[k] = roster.Students[i].Score
	}
	return scores
}

func SweepSeries(entries []domain.SigmaSweepEntry) []report.Series {
	series := make([]report.Series, len(entries))
	for i, e := range entries {
		series[i] = report.Series{
			Name:    fmt.Sprintf("sigma=%g", e.Sigma),
			History: e.FitnessHistory,
		}
	}
	return series
}
