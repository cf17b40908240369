package partitioner

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// SweepResult: 某个变异强度下的运行结果
type SweepResult struct {
	Sigma        float64
	FinalFitness float64 // 最后一代的最佳适应度
	Result       *Result
}

// Sweep 对每个 sigma 并行地运行一个独立的引擎，结果按 sigmas 的顺序返回
// 给定种子时第 i 次运行使用 Seed+i，各次运行之间不共享任何可变状态
func Sweep(ctx context.Context, parameters *Parameters, scores []float64, sigmas []float64) ([]SweepResult, error) {
	if len(sigmas) == 0 {
		return nil, fmt.Errorf("%w: 至少需要一个变异强度", ErrInfeasibleConfiguration)
	}

	runs := make([]*Partitioner, len(sigmas))
	for i, sigma := range sigmas {
		params := *parameters
		params.Sigma = sigma
		if parameters.Seed != nil {
			seed := *parameters.Seed + uint64(i)
			params.Seed = &seed
		}

		p, err := New(&params, scores)
		if err != nil {
			return nil, err
		}
		runs[i] = p
	}

	results := make([]SweepResult, len(sigmas))
	g, ctx := errgroup.WithContext(ctx)
	for i, p := range runs {
		g.Go(func() error {
			res, err := p.Run(ctx)
			if err != nil {
				return err
			}
			results[i] = SweepResult{
				Sigma:        sigmas[i],
				FinalFitness: res.History[len(res.History)-1],
				Result:       res,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
