package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/sysu-ecnc-dev/exam-balancer/backend/internal/domain"
	"github.com/sysu-ecnc-dev/exam-balancer/backend/internal/grouping"
	"github.com/sysu-ecnc-dev/exam-balancer/backend/internal/partitioner"
	"github.com/sysu-ecnc-dev/exam-balancer/backend/internal/report"
	"github.com/sysu-ecnc-dev/exam-balancer/backend/internal/seed"
)

type options struct {
	csvPath     string
	preset      string
	sigma       float64
	sweep       string
	seed        uint64
	seeded      bool
	generations int
	population  int
	plotPath    string
	scoresPath  string
	historyPath string
	verbose     bool
}

func parseFlags(args []string) (*options, error) {
	opts := &options{}

	fs := flag.NewFlagSet("grouper", flag.ContinueOnError)
	fs.StringVar(&opts.csvPath, "csv", "", "成绩表路径（必填）")
	fs.StringVar(&opts.preset, "preset", "diversity", "参数预设 (diversity | balance | continuous)")
	fs.Float64Var(&opts.sigma, "sigma", 0.5, "高斯变异强度，仅对 continuous 生效")
	fs.StringVar(&opts.sweep, "sweep", "", "逗号分隔的变异强度列表，指定后对比不同强度，仅对 continuous 生效")
	fs.Uint64Var(&opts.seed, "seed", 0, "随机种子，不指定时随机生成")
	fs.IntVar(&opts.generations, "generations", 0, "迭代代数，0 表示使用预设值")
	fs.IntVar(&opts.population, "population", 0, "种群大小，0 表示使用预设值")
	fs.StringVar(&opts.plotPath, "plot", "", "适应度曲线输出路径 (PNG)")
	fs.StringVar(&opts.scoresPath, "scores-plot", "", "各组成绩箱线图输出路径 (PNG)")
	fs.StringVar(&opts.historyPath, "history", "", "逐代最佳适应度输出路径 (CSV)")
	fs.BoolVar(&opts.verbose, "v", false, "输出进化过程日志")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			opts.seeded = true
		}
	})

	if opts.csvPath == "" {
		return nil, errors.New("请通过 -csv 指定成绩表")
	}

	return opts, nil
}

func (o *options) parameters() (*partitioner.Parameters, error) {
	var p *partitioner.Parameters
	switch o.preset {
	case "diversity":
		p = partitioner.DiversityPreset()
	case "balance":
		p = partitioner.BalancePreset()
	case "continuous":
		p = partitioner.ContinuousPreset(o.sigma)
	default:
		return nil, fmt.Errorf("未知的预设 %q", o.preset)
	}

	if o.generations > 0 {
		p.MaxGenerations = o.generations
	}
	if o.population > 0 {
		p.PopulationSize = o.population
	}
	if o.seeded {
		seed := o.seed
		p.Seed = &seed
	}

	return p, nil
}

func parseSigmas(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	sigmas := make([]float64, 0, len(parts))
	for _, part := range parts {
		sigma, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("无效的变异强度 %q", part)
		}
		sigmas = append(sigmas, sigma)
	}
	return sigmas, nil
}

func writeFile(path string, write func(w io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := write(file); err != nil {
		_ = file.Close()
		return err
	}

	return file.Close()
}

func writeHistory(w io.Writer, history []float64) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"generation", "best_fitness"}); err != nil {
		return err
	}
	for gen, fitness := range history {
		if err := cw.Write([]string{strconv.Itoa(gen), strconv.FormatFloat(fitness, 'f', -1, 64)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func printGroups(w io.Writer, roster *domain.Roster, res *partitioner.Result) error {
	fmt.Fprintf(w, "最佳适应度: %.6f\n\n", res.BestFitness)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "分组\t人数\t平均分\t方差\t低/中/高\t成员")
	for _, g := range res.Groups {
		names := make([]string, len(g.Members))
		for k, i := range g.Members {
			names[k] = roster.Students[i].FullName
		}
		fmt.Fprintf(tw, "%s\t%d\t%.3f\t%.3f\t%d/%d/%d\t%s\n",
			g.Label, g.Size, g.Mean, g.Variance, g.Low, g.Mid, g.High, strings.Join(names, " "))
	}
	return tw.Flush()
}

func runSingle(ctx context.Context, w io.Writer, opts *options, p *partitioner.Parameters, roster *domain.Roster, logger *slog.Logger) error {
	engine, err := partitioner.New(p, roster.Scores(), partitioner.WithLogger(logger))
	if err != nil {
		return err
	}

	res, err := engine.Run(ctx)
	if err != nil {
		return err
	}

	if err := printGroups(w, roster, res); err != nil {
		return err
	}

	if opts.historyPath != "" {
		if err := writeFile(opts.historyPath, func(f io.Writer) error { return writeHistory(f, res.History) }); err != nil {
			return err
		}
	}
	if opts.plotPath != "" {
		if err := writeFile(opts.plotPath, func(f io.Writer) error { return report.FitnessPlot(f, res.History) }); err != nil {
			return err
		}
	}
	if opts.scoresPath != "" {
		if err := writeFile(opts.scoresPath, func(f io.Writer) error { return report.ScoresPlot(f, grouping.GroupScores(roster, res.Groups)) }); err != nil {
			return err
		}
	}

	return nil
}

func runSweep(ctx context.Context, w io.Writer, opts *options, p *partitioner.Parameters, roster *domain.Roster) error {
	if p.Encoding != partitioner.EncodingContinuous {
		return errors.New("只有 continuous 预设支持变异强度对比")
	}

	sigmas, err := parseSigmas(opts.sweep)
	if err != nil {
		return err
	}

	results, err := partitioner.Sweep(ctx, p, roster.Scores(), sigmas)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "sigma\t最终适应度")
	series := make([]report.Series, len(results))
	for i, r := range results {
		fmt.Fprintf(tw, "%g\t%.6f\n", r.Sigma, r.FinalFitness)
		series[i] = report.Series{Name: fmt.Sprintf("sigma=%g", r.Sigma), History: r.Result.History}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if opts.plotPath != "" {
		return writeFile(opts.plotPath, func(f io.Writer) error { return report.SweepPlot(f, series) })
	}
	return nil
}

func run(ctx context.Context, args []string, w io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	p, err := opts.parameters()
	if err != nil {
		return err
	}

	roster, err := seed.LoadRoster(opts.csvPath, 0)
	if err != nil {
		return err
	}
	logger.Info("已读取名单", slog.String("name", roster.Name), slog.Int("students", len(roster.Students)))

	if opts.sweep != "" {
		return runSweep(ctx, w, opts, p, roster)
	}
	return runSingle(ctx, w, opts, p, roster, logger)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		slog.Error("分组失败", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
