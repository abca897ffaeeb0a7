package output

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/leapstack-labs/orderlake/internal/report"
	"github.com/leapstack-labs/orderlake/internal/state"
)

// NoData is printed for a report without rows.
const NoData = "(no data)"

// ReportsOutput is the JSON payload of the report command.
type ReportsOutput struct {
	Target  string          `json:"target"`
	Reports []report.Result `json:"reports"`
}

// RunInfo is a run with its steps, as shown by history.
type RunInfo struct {
	*state.Run
	DurationMS int64            `json:"duration_ms"`
	Steps      []*state.StepRun `json:"steps,omitempty"`
}

// HistoryOutput is the JSON payload of the history command.
type HistoryOutput struct {
	Runs []RunInfo `json:"runs"`
}

// Reports renders report results in the effective mode.
func (r *Renderer) Reports(target string, results []report.Result) error {
	if r.EffectiveMode() == ModeJSON {
		return r.JSON(ReportsOutput{Target: target, Reports: results})
	}

	for i, res := range results {
		if i > 0 {
			r.Println("")
		}
		r.Header(2, res.Title)
		if res.Empty() {
			r.Println(NoData)
			continue
		}
		if r.EffectiveMode() == ModeMarkdown {
			r.Println(r.reportTable(res).RenderMarkdown())
			continue
		}
		r.renderReportText(res)
	}
	return nil
}

// renderReportText prints charts for totals and a table for rankings.
func (r *Renderer) renderReportText(res report.Result) {
	switch res.Kind {
	case report.TopCustomers:
		points := make([]ChartPoint, 0, len(res.Customers))
		for _, c := range res.Customers {
			points = append(points, ChartPoint{
				Label: strconv.Itoa(c.CustomerID),
				Value: c.Total,
				Text:  r.Number(int64(c.Total + 0.5)),
			})
		}
		_, _ = fmt.Fprint(r.out, r.BarChart(points))
	case report.SalesByYear, report.SalesByMonth:
		points := make([]ChartPoint, 0, len(res.Periods))
		for _, p := range res.Periods {
			points = append(points, ChartPoint{
				Label: periodLabel(res.Kind, p.Period),
				Value: p.Total,
				Text:  r.Thousands(p.Total),
			})
		}
		_, _ = fmt.Fprint(r.out, r.SeriesChart(points))
	default:
		t := r.reportTable(res)
		t.SetStyle(table.StyleLight)
		if r.isTTY {
			t.Style().Color.Header = text.Colors{text.Bold}
		}
		r.Println(t.Render())
	}
}

// reportTable builds the tabular form of a report.
func (r *Renderer) reportTable(res report.Result) table.Writer {
	t := table.NewWriter()

	switch res.Kind {
	case report.TopCustomers:
		t.AppendHeader(table.Row{"#", "Customer id", "Total sales"})
		for i, c := range res.Customers {
			t.AppendRow(table.Row{i + 1, c.CustomerID, r.Amount(c.Total)})
		}
		t.SetColumnConfigs([]table.ColumnConfig{{Number: 3, Align: text.AlignRight}})
	case report.TopProducts:
		t.AppendHeader(table.Row{"Rank", "Category", "Product", "Total quantity"})
		for _, p := range res.Products {
			t.AppendRow(table.Row{p.Rank, p.CategoryName, p.ProductName, r.Number(p.Quantity)})
		}
		t.SetColumnConfigs([]table.ColumnConfig{{Number: 4, Align: text.AlignRight}})
	case report.SalesByYear, report.SalesByMonth:
		label := "Year"
		if res.Kind == report.SalesByMonth {
			label = "Month"
		}
		t.AppendHeader(table.Row{label, "Total sales", "Thousands"})
		for _, p := range res.Periods {
			t.AppendRow(table.Row{periodLabel(res.Kind, p.Period), r.Amount(p.Total), r.Thousands(p.Total)})
		}
		t.SetColumnConfigs([]table.ColumnConfig{
			{Number: 2, Align: text.AlignRight},
			{Number: 3, Align: text.AlignRight},
		})
	}
	return t
}

func periodLabel(kind report.Kind, period int) string {
	if kind == report.SalesByMonth && period >= 1 && period <= 12 {
		return time.Month(period).String()[:3]
	}
	return strconv.Itoa(period)
}

// History renders recorded runs.
func (r *Renderer) History(runs []RunInfo) error {
	if r.EffectiveMode() == ModeJSON {
		return r.JSON(HistoryOutput{Runs: runs})
	}

	r.Header(1, fmt.Sprintf("Run history (%d runs)", len(runs)))
	if len(runs) == 0 {
		r.Println(NoData)
		return nil
	}

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Run", "Target", "Status", "Started", "Duration", "Steps", "Error"})
	for _, run := range runs {
		steps := ""
		for i, s := range run.Steps {
			if i > 0 {
				steps += ","
			}
			steps += s.Step
		}
		duration := "-"
		if run.CompletedAt != nil {
			duration = time.Duration(run.DurationMS * int64(time.Millisecond)).String()
		}
		t.AppendRow(table.Row{
			shortID(run.ID), run.Target, string(run.Status),
			run.StartedAt.Local().Format(time.DateTime), duration, steps, run.Error,
		})
	}

	if r.EffectiveMode() == ModeMarkdown {
		r.Println(t.RenderMarkdown())
		return nil
	}
	t.SetStyle(table.StyleLight)
	r.Println(t.Render())
	return nil
}

// NewRunInfo pairs a run with its steps.
func NewRunInfo(run *state.Run, steps []*state.StepRun) RunInfo {
	return RunInfo{Run: run, DurationMS: run.Duration().Milliseconds(), Steps: steps}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
