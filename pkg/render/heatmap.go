// Package render draws the cluster x GO-term outputs: the PNG heatmap, the
// combined workbook and the HTML report.
package render

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"

	"github.com/yumyai/goenrich/pkg/goterms"
)

// termGrid adapts a goterms.Matrix to the plotter grid interface. Matrix row
// 0 is drawn at the top, matching the cluster order the caller asked for.
type termGrid struct {
	m *goterms.Matrix
}

func (g termGrid) Dims() (c, r int) {
	r, c = g.m.Data.Dims()
	return c, r
}

func (g termGrid) Z(c, r int) float64 {
	rows, _ := g.m.Data.Dims()
	return g.m.Data.At(rows-1-r, c)
}

func (g termGrid) X(c int) float64 { return float64(c) }
func (g termGrid) Y(r int) float64 { return float64(r) }

// labelTicks places one tick per cell, labelled from a fixed list.
type labelTicks struct {
	labels []string
}

func (lt labelTicks) Ticks(min, max float64) []plot.Tick {
	var ticks []plot.Tick
	for i, label := range lt.labels {
		v := float64(i)
		if v < min || v > max {
			continue
		}
		ticks = append(ticks, plot.Tick{Value: v, Label: label})
	}
	return ticks
}

func reversed(labels []string) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[len(labels)-1-i] = l
	}
	return out
}

// SaveHeatmapPNG renders the matrix as a heatmap image. Column blocks are
// separated with thin white rules so per-cluster (or per-group) term runs
// stay readable.
func SaveHeatmapPNG(m *goterms.Matrix, path string) error {

	p := plot.New()
	p.Title.Text = "GO term enrichment by cluster"
	p.X.Label.Text = "GO terms"
	p.Y.Label.Text = "Clusters"

	grid := termGrid{m: m}
	heat := plotter.NewHeatMap(grid, palette.Heat(255, 1))
	heat.Min = 0
	p.Add(heat)

	rows, cols := m.Data.Dims()

	p.X.Tick.Marker = labelTicks{labels: m.ColLabels}
	p.X.Tick.Label.Rotation = math.Pi / 2
	p.X.Tick.Label.XAlign = text.XRight
	p.X.Tick.Label.YAlign = text.YCenter
	p.X.Tick.Label.Font.Size = vg.Points(7)

	p.Y.Tick.Marker = labelTicks{labels: reversed(m.RowLabels)}
	p.Y.Tick.Label.Font.Size = vg.Points(9)

	// Separator rules between column blocks
	for _, block := range m.Blocks[:len(m.Blocks)-1] {
		x := float64(block.End) - 0.5
		sep := plotter.XYs{
			{X: x, Y: -0.5},
			{X: x, Y: float64(rows) - 0.5},
		}
		line, err := plotter.NewLine(sep)
		if err != nil {
			return fmt.Errorf("heatmap separator: %w", err)
		}
		line.LineStyle.Color = color.White
		line.LineStyle.Width = vg.Points(1.5)
		p.Add(line)
	}

	width := vg.Points(float64(cols)*12 + 140)
	height := vg.Points(float64(rows)*26 + 120)

	if err := p.Save(width, height, path); err != nil {
		return fmt.Errorf("save heatmap: %w", err)
	}
	return nil
}
