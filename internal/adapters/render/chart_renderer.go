package render

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/wcharczuk/go-chart/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Arrow-air/Flight-Log-Analyser/internal/domain"
	"github.com/Arrow-air/Flight-Log-Analyser/internal/ports"
)

// secondaryAxisRatio is how many times smaller a series' peak must be than
// the topic's largest peak before it moves to the right-hand axis.
const secondaryAxisRatio = 100

// errNothingToDraw means every sample of a topic was NaN or infinite.
var errNothingToDraw = errors.New("no finite samples")

// ChartRenderer draws one PNG line chart per populated topic. Groups that
// share a topic, such as the two barometer channels, share a chart. Series
// far smaller than the largest one, like ESC voltage next to RPM, are
// drawn against a secondary axis.
type ChartRenderer struct {
	Width       int
	Height      int
	Parallelism int
}

func NewChartRenderer(width, height, parallelism int) *ChartRenderer {
	if width <= 0 {
		width = 1200
	}
	if height <= 0 {
		height = 600
	}
	if parallelism <= 0 {
		parallelism = 1
	}
	return &ChartRenderer{Width: width, Height: height, Parallelism: parallelism}
}

type topicPlot struct {
	topic  string
	groups []*domain.Group
}

// Render writes <dir>/<topic>.png for every populated topic.
func (c *ChartRenderer) Render(ctx context.Context, set *domain.SeriesSet, dir string) (map[string]string, error) {
	plots := byTopic(set)
	out := make(map[string]string, len(plots))
	if len(plots) == 0 {
		return out, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create plot dir: %w", err)
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.Parallelism)
	for _, p := range plots {
		p := p
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(dir, p.topic+".png")
			err := c.renderTopic(p, path)
			if errors.Is(err, errNothingToDraw) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("render %s: %w", p.topic, err)
			}
			mu.Lock()
			out[p.topic] = path
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func byTopic(set *domain.SeriesSet) []topicPlot {
	var plots []topicPlot
	index := make(map[string]int)
	for _, g := range set.Groups() {
		i, ok := index[g.Topic]
		if !ok {
			i = len(plots)
			index[g.Topic] = i
			plots = append(plots, topicPlot{topic: g.Topic})
		}
		plots[i].groups = append(plots[i].groups, g)
	}
	return plots
}

type line struct {
	name   string
	xs, ys []float64
}

func (c *ChartRenderer) renderTopic(p topicPlot, path string) error {
	var lines []line
	for _, g := range p.groups {
		for _, s := range g.AllSeries() {
			xs, ys := finite(s.Times, s.Values)
			if len(xs) == 0 {
				continue
			}
			if len(xs) == 1 {
				xs = append(xs, xs[0])
				ys = append(ys, ys[0])
			}
			lines = append(lines, line{name: s.Name, xs: xs, ys: ys})
		}
	}
	if len(lines) == 0 {
		return errNothingToDraw
	}

	peaks := make([]float64, len(lines))
	for i, l := range lines {
		for _, v := range l.ys {
			peaks[i] = math.Max(peaks[i], math.Abs(v))
		}
	}
	secondary := splitAxes(peaks)

	var (
		series   []chart.Series
		xr       = newBounds()
		yr       = newBounds()
		y2r      = newBounds()
		y2labels []string
	)
	for i, l := range lines {
		xr.add(l.xs...)
		cs := chart.ContinuousSeries{Name: l.name, XValues: l.xs, YValues: l.ys}
		if secondary[i] {
			cs.YAxis = chart.YAxisSecondary
			y2r.add(l.ys...)
			y2labels = append(y2labels, l.name)
		} else {
			yr.add(l.ys...)
		}
		series = append(series, cs)
	}

	graph := chart.Chart{
		Title:  p.topic,
		Width:  c.Width,
		Height: c.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:  "Time (s)",
			Range: xr.rangeOf(),
		},
		YAxis: chart.YAxis{
			Name:  p.topic,
			Range: yr.rangeOf(),
		},
		Series: series,
	}
	if len(y2labels) > 0 {
		graph.YAxisSecondary = chart.YAxis{
			Name:  strings.Join(y2labels, ", "),
			Range: y2r.rangeOf(),
		}
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := graph.Render(chart.PNG, f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}

// splitAxes marks the series whose peak magnitude is at least
// secondaryAxisRatio times below the largest peak.
func splitAxes(peaks []float64) []bool {
	var top float64
	for _, p := range peaks {
		top = math.Max(top, p)
	}
	out := make([]bool, len(peaks))
	if top == 0 {
		return out
	}
	for i, p := range peaks {
		out[i] = p*secondaryAxisRatio <= top
	}
	return out
}

func finite(times, values []float64) ([]float64, []float64) {
	xs := make([]float64, 0, len(times))
	ys := make([]float64, 0, len(values))
	for i := range times {
		if !isFinite(times[i]) || !isFinite(values[i]) {
			continue
		}
		xs = append(xs, times[i])
		ys = append(ys, values[i])
	}
	return xs, ys
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

type bounds struct{ min, max float64 }

func newBounds() *bounds { return &bounds{min: math.Inf(1), max: math.Inf(-1)} }

func (b *bounds) add(vs ...float64) {
	for _, v := range vs {
		b.min = math.Min(b.min, v)
		b.max = math.Max(b.max, v)
	}
}

// rangeOf widens a flat range; go-chart rejects zero-width axes.
func (b *bounds) rangeOf() *chart.ContinuousRange {
	lo, hi := b.min, b.max
	if hi-lo < 1e-9 {
		lo, hi = lo-1, hi+1
	}
	return &chart.ContinuousRange{Min: lo, Max: hi}
}

var _ ports.Renderer = (*ChartRenderer)(nil)
