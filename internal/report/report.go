package report

import (
	"errors"
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

const (
	width  = 6 * vg.Inch
	height = 4 * vg.Inch
	format = "png"
)

var ErrNoData = errors.New("没有可绘制的数据")

// Series 一次运行的逐代最佳适应度
type Series struct {
	Name    string
	History []float64
}

// Group 一个分组内所有成员的成绩
type Group struct {
	Label  string
	Scores []float64
}

func historyPoints(history []float64) plotter.XYs {
	pts := make(plotter.XYs, len(history))
	for i, fitness := range history {
		pts[i].X = float64(i)
		pts[i].Y = fitness
	}
	return pts
}

func render(p *plot.Plot, w io.Writer) error {
	wt, err := p.WriterTo(width, height, format)
	if err != nil {
		return err
	}

	_, err = wt.WriteTo(w)
	return err
}

// FitnessPlot 绘制逐代最佳适应度曲线
func FitnessPlot(w io.Writer, history []float64) error {
	return SweepPlot(w, []Series{{Name: "best", History: history}})
}

// SweepPlot 在同一张图中绘制多次运行的适应度曲线
func SweepPlot(w io.Writer, series []Series) error {
	if len(series) == 0 {
		return ErrNoData
	}

	p := plot.New()
	p.Title.Text = "Fitness history"
	p.X.Label.Text = "Generation"
	p.Y.Label.Text = "Best fitness"

	for i, s := range series {
		if len(s.History) == 0 {
			return fmt.Errorf("%w: %s", ErrNoData, s.Name)
		}

		line, err := plotter.NewLine(historyPoints(s.History))
		if err != nil {
			return err
		}
		line.Color = plotutil.Color(i)

		p.Add(line)
		p.Legend.Add(s.Name, line)
	}

	p.Legend.Top = false
	p.Legend.Left = false
	p.Add(plotter.NewGrid())

	return render(p, w)
}

// ScoresPlot 为每个分组绘制一个成绩箱线图，空的分组只保留横轴标签
func ScoresPlot(w io.Writer, groups []Group) error {
	if len(groups) == 0 {
		return ErrNoData
	}

	p := plot.New()
	p.Title.Text = "Scores per group"
	p.Y.Label.Text = "Score"

	labels := make([]string, len(groups))
	boxWidth := vg.Points(20)
	for i, g := range groups {
		labels[i] = g.Label
		if len(g.Scores) == 0 {
			continue
		}

		box, err := plotter.NewBoxPlot(boxWidth, float64(i), plotter.Values(g.Scores))
		if err != nil {
			return err
		}
		p.Add(box)
	}

	p.NominalX(labels...)

	return render(p, w)
}
