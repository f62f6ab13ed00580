package congestion

import (
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// ChartOptions controls RenderChart output
type ChartOptions struct {
	Title  string
	Width  vg.Length
	Height vg.Length
}

// RenderChart draws the hourly mean load of each category as a line
// chart and writes it to w as PNG.
func RenderChart(w io.Writer, t Table, opts ChartOptions) error {
	if len(t) == 0 {
		return fmt.Errorf("cannot render chart: empty congestion table")
	}
	if opts.Width == 0 {
		opts.Width = 8 * vg.Inch
	}
	if opts.Height == 0 {
		opts.Height = 4 * vg.Inch
	}

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = "hour"
	p.Y.Label.Text = "mean load"
	p.X.Min = 0
	p.X.Max = 23
	p.Legend.Top = true

	for i, category := range t.Categories() {
		rows := t.ForCategory(category)
		pts := make(plotter.XYs, len(rows))
		for j, row := range rows {
			pts[j].X = float64(row.Hour)
			pts[j].Y = row.MeanLoad
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("failed to build line for %s: %w", category, err)
		}
		line.Color = plotutil.Color(i)
		line.Dashes = plotutil.Dashes(i)
		p.Add(line)
		p.Legend.Add(category, line)
	}

	writer, err := p.WriterTo(opts.Width, opts.Height, "png")
	if err != nil {
		return fmt.Errorf("failed to create png writer: %w", err)
	}
	if _, err := writer.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write chart: %w", err)
	}
	return nil
}
