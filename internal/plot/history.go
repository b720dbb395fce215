// Package plot renders training histories as PNG charts.
package plot

import (
	"io"
	"os"

	"github.com/born-ml/fixpoint/internal/train"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Panel is one chart of the history grid.
type Panel struct {
	Title   string
	YLabel  string
	Metrics []string // train.History metric names, one line each
}

// DefaultPanels shows loss, accuracy, depth and adjoint operator applications.
var DefaultPanels = []Panel{
	{Title: "Loss", YLabel: "loss", Metrics: []string{"train_loss", "test_loss"}},
	{Title: "Accuracy", YLabel: "accuracy", Metrics: []string{"train_acc", "test_acc"}},
	{Title: "Depth", YLabel: "iterations", Metrics: []string{"depth", "test_depth"}},
	{Title: "Adjoint operator applications", YLabel: "n_Umatvecs", Metrics: []string{"n_umatvecs"}},
}

// Options configures Save and Write.
type Options struct {
	Width, Height vg.Length // Image size (default: 12 x 8 inches)
	Panels        []Panel   // Charts, laid out two per row (default: DefaultPanels)
}

// Save renders h to a PNG file at path.
func Save(h *train.History, path string, opts Options) error {
	//nolint:gosec // G304: output path comes from the command line
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}
	if err := Write(f, h, opts); err != nil {
		_ = f.Close()
		return errors.WithMessagef(err, "plotting %s", path)
	}
	return errors.Wrapf(f.Close(), "closing %s", path)
}

// Write renders h as PNG to w.
func Write(w io.Writer, h *train.History, opts Options) error {
	if len(h.Epochs) == 0 {
		return errors.New("history has no epochs")
	}
	if opts.Width == 0 {
		opts.Width = 12 * vg.Inch
	}
	if opts.Height == 0 {
		opts.Height = 8 * vg.Inch
	}
	if len(opts.Panels) == 0 {
		opts.Panels = DefaultPanels
	}

	const cols = 2
	rows := (len(opts.Panels) + cols - 1) / cols
	grid := make([][]*plot.Plot, rows)
	for r := range grid {
		grid[r] = make([]*plot.Plot, cols)
		for c := range grid[r] {
			grid[r][c] = plot.New()
		}
	}
	for i, panel := range opts.Panels {
		if err := fill(grid[i/cols][i%cols], h, panel); err != nil {
			return err
		}
	}

	img := vgimg.New(opts.Width, opts.Height)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      rows,
		Cols:      cols,
		PadX:      vg.Millimeter,
		PadY:      vg.Millimeter,
		PadTop:    vg.Points(4),
		PadBottom: vg.Points(4),
		PadLeft:   vg.Points(4),
		PadRight:  vg.Points(4),
	}
	canvases := plot.Align(grid, tiles, dc)
	for r := range grid {
		for c := range grid[r] {
			grid[r][c].Draw(canvases[r][c])
		}
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(w); err != nil {
		return errors.Wrap(err, "encoding PNG")
	}
	return nil
}

func fill(p *plot.Plot, h *train.History, panel Panel) error {
	p.Title.Text = panel.Title
	p.X.Label.Text = "epoch"
	p.Y.Label.Text = panel.YLabel
	p.Add(plotter.NewGrid())

	lines := make([]any, 0, 2*len(panel.Metrics))
	for _, metric := range panel.Metrics {
		values, err := h.Series(metric)
		if err != nil {
			return err
		}
		xys := make(plotter.XYs, len(values))
		for i, v := range values {
			xys[i].X = float64(h.Epochs[i].Epoch)
			xys[i].Y = v
		}
		lines = append(lines, metric, xys)
	}
	return errors.Wrapf(plotutil.AddLinePoints(p, lines...), "panel %q", panel.Title)
}
