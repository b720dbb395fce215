package train

import (
	"fmt"
	"strconv"

	"github.com/born-ml/fixpoint/internal/nn"
	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
)

var (
	cellStyle         = lipgloss.NewStyle().Padding(0, 1)
	rightAlignedStyle = lipgloss.NewStyle().Align(lipgloss.Right).Padding(0, 1)
	headerStyle       = lipgloss.NewStyle().Padding(0, 1).Bold(true)
)

func newTable(headers ...string) *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.RoundedBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == lgtable.HeaderRow:
				return headerStyle
			case col > 0:
				return rightAlignedStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

// ParameterTable lists each parameter with its size, followed by the total count.
func ParameterTable(params []*nn.Parameter) string {
	table := newTable("Modules", "Parameters")
	for _, p := range params {
		table.Row(p.Name(), humanize.Comma(int64(p.NumElements())))
	}
	return table.String() + fmt.Sprintf("\nTotal Trainable Params: %s", humanize.Comma(int64(nn.CountParameters(params))))
}

// FormatEpoch renders one epoch summary line.
func FormatEpoch(e Epoch, epochs int) string {
	return fmt.Sprintf("[%4d/%4d]: train acc = %5.2f%% | train_loss = %7.3e | test acc = %5.2f%% | test loss = %7.3e | "+
		"depth = %3d | lr = %5.1e | time = %4.1f sec | n_Umatvecs = %s",
		e.Epoch, epochs, 100*e.TrainAcc, e.TrainLoss, 100*e.TestAcc, e.TestLoss,
		e.Depth, e.LR, e.Seconds, humanize.Comma(int64(e.Matvecs)))
}

// SummaryTable renders the best epoch and run totals.
func SummaryTable(h *History) string {
	table := newTable("Run", h.RunID)
	table.Row("Epochs", strconv.Itoa(len(h.Epochs)))
	table.Row("Gradients", h.Mode)
	if best, ok := h.Best(); ok {
		table.Row("Best test accuracy", fmt.Sprintf("%.2f%% (epoch %d)", 100*best.TestAcc, best.Epoch))
	}
	var matvecs int64
	for _, e := range h.Epochs {
		matvecs += int64(e.Matvecs)
	}
	table.Row("Adjoint operator applications", humanize.Comma(matvecs))
	table.Row("Average epoch time", fmt.Sprintf("%.1f sec", h.AverageSeconds()))
	return table.String()
}
