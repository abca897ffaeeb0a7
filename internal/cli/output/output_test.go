package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/leapstack-labs/orderlake/internal/report"
	"github.com/leapstack-labs/orderlake/internal/state"
	"github.com/leapstack-labs/orderlake/pkg/adapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(mode Mode, isTTY bool) (*Renderer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return NewRendererWithTTY(out, &bytes.Buffer{}, isTTY, mode), out
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeAuto, false},
		{"auto", ModeAuto, false},
		{"TEXT", ModeText, false},
		{"md", ModeMarkdown, false},
		{"markdown", ModeMarkdown, false},
		{"json", ModeJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEffectiveMode(t *testing.T) {
	tty, _ := newTestRenderer(ModeAuto, true)
	assert.Equal(t, ModeText, tty.EffectiveMode())

	piped, _ := newTestRenderer(ModeAuto, false)
	assert.Equal(t, ModeMarkdown, piped.EffectiveMode())

	forced, _ := newTestRenderer(ModeJSON, true)
	assert.Equal(t, ModeJSON, forced.EffectiveMode())
}

func TestNumberFormatting(t *testing.T) {
	r, _ := newTestRenderer(ModeText, false)

	assert.Equal(t, "1,234,567", r.Number(1234567))
	assert.Equal(t, "1,819.11", r.Amount(1819.11))
	assert.Equal(t, "1,235k", r.Thousands(1234567))
	assert.Equal(t, "3k", r.Thousands(2857.24))
}

func TestBarChart(t *testing.T) {
	r, _ := newTestRenderer(ModeText, false)

	got := r.BarChart([]ChartPoint{
		{Label: "1001", Value: 200, Text: "200"},
		{Label: "1002", Value: 100, Text: "100"},
		{Label: "17", Value: 1, Text: "1"},
	})
	want := "1001 │ " + strings.Repeat("█", 40) + " 200\n" +
		"1002 │ " + strings.Repeat("█", 20) + " 100\n" +
		"  17 │ █ 1\n"

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("BarChart mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, r.BarChart(nil))
}

func TestSeriesChart(t *testing.T) {
	r, _ := newTestRenderer(ModeText, false)

	got := r.SeriesChart([]ChartPoint{
		{Label: "2023", Value: 100, Text: "0k"},
		{Label: "2024", Value: 200, Text: "0k"},
	})
	want := "2023 │" + strings.Repeat("─", 3) + "● 0k\n" +
		"2024 │" + strings.Repeat("─", 34) + "● 0k\n"

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SeriesChart mismatch (-want +got):\n%s", diff)
	}

	flat := r.SeriesChart([]ChartPoint{{Label: "Jan", Value: 0, Text: "0k"}})
	assert.Equal(t, "Jan │"+strings.Repeat("─", 20)+"● 0k\n", flat)
}

func sampleResults() []report.Result {
	return []report.Result{
		{
			Kind: report.TopCustomers, Title: "Top 5 customers by total sales in 2024", Year: 2024,
			Customers: []adapter.CustomerSales{{CustomerID: 1001, Total: 1819.11}, {CustomerID: 1002, Total: 999.12}},
		},
		{
			Kind: report.TopProducts, Title: "Top 3 products by category",
			Products: []adapter.RankedProduct{{Rank: 1, CategoryName: "Books", ProductName: "Novel", Quantity: 1200}},
		},
		{Kind: report.SalesByYear, Title: "Total sales by year"},
		{
			Kind: report.SalesByMonth, Title: "Monthly total sales in 2024", Year: 2024,
			Periods: []adapter.PeriodSales{{Period: 1, Total: 1819.11}, {Period: 3, Total: 151038.13}},
		},
	}
}

func TestReports_Markdown(t *testing.T) {
	r, out := newTestRenderer(ModeAuto, false)
	require.NoError(t, r.Reports("duckdb", sampleResults()))

	got := out.String()
	assert.Contains(t, got, "## Top 5 customers by total sales in 2024")
	assert.Contains(t, got, "| Customer id |")
	assert.Contains(t, got, "1,819.11")
	assert.Contains(t, got, "| Novel |")
	assert.Contains(t, got, "1,200")
	assert.Contains(t, got, "## Total sales by year\n"+NoData)
	assert.Contains(t, got, "| Mar |")
	assert.Contains(t, got, "151k")
}

func TestReports_Text(t *testing.T) {
	r, out := newTestRenderer(ModeText, false)
	require.NoError(t, r.Reports("duckdb", sampleResults()))

	got := out.String()
	assert.Contains(t, got, "Top 5 customers by total sales in 2024\n")
	assert.Contains(t, got, "1001 │ "+strings.Repeat("█", 40)+" 1,819\n")
	assert.Contains(t, got, "Novel")
	assert.Contains(t, got, "Mar │")
	assert.Contains(t, got, "● 151k")
	assert.NotContains(t, got, "\x1b[", "no escape codes without a terminal")
}

func TestReports_JSON(t *testing.T) {
	r, out := newTestRenderer(ModeJSON, false)
	require.NoError(t, r.Reports("mongo", sampleResults()))

	var payload struct {
		Target  string `json:"target"`
		Reports []struct {
			Kind      string `json:"kind"`
			Customers []struct {
				CustomerID int     `json:"customer_id"`
				Total      float64 `json:"total_sales"`
			} `json:"customers"`
		} `json:"reports"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &payload))
	assert.Equal(t, "mongo", payload.Target)
	require.Len(t, payload.Reports, 4)
	assert.Equal(t, "top-customers", payload.Reports[0].Kind)
	assert.Equal(t, 1001, payload.Reports[0].Customers[0].CustomerID)
	assert.InDelta(t, 1819.11, payload.Reports[0].Customers[0].Total, 0.001)
}

func TestHistory(t *testing.T) {
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	completed := started.Add(1500 * time.Millisecond)
	runs := []RunInfo{
		NewRunInfo(&state.Run{
			ID: "0123456789abcdef", Target: "duckdb", Status: state.StatusCompleted,
			StartedAt: started, CompletedAt: &completed,
		}, []*state.StepRun{{Step: state.StepGenerate}, {Step: state.StepLoad}}),
		NewRunInfo(&state.Run{
			ID: "fedcba", Target: "mongo", Status: state.StatusFailed,
			StartedAt: started, Error: "load: refused",
		}, nil),
	}

	r, out := newTestRenderer(ModeMarkdown, false)
	require.NoError(t, r.History(runs))
	got := out.String()
	assert.Contains(t, got, "# Run history (2 runs)")
	assert.Contains(t, got, "| 01234567 |")
	assert.Contains(t, got, "1.5s")
	assert.Contains(t, got, "generate,load")
	assert.Contains(t, got, "load: refused")

	r, out = newTestRenderer(ModeJSON, false)
	require.NoError(t, r.History(runs))
	var payload HistoryOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &payload))
	require.Len(t, payload.Runs, 2)
	assert.Equal(t, int64(1500), payload.Runs[0].DurationMS)

	r, out = newTestRenderer(ModeText, false)
	require.NoError(t, r.History(nil))
	assert.Contains(t, out.String(), NoData)
}

func TestStatusLine(t *testing.T) {
	r, out := newTestRenderer(ModeText, false)
	r.StatusLine("orders.csv", "success", "5,000 orders")
	r.StatusLine("load", "failed", "")

	want := "✓ orders.csv 5,000 orders\n✗ load\n"
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Errorf("StatusLine mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "## Reports", FormatHeader(2, "Reports"))
	assert.Equal(t, "# Reports", FormatHeader(0, "Reports"))
	assert.Equal(t, "- **Target:** duckdb", FormatKeyValue("Target", "duckdb"))
	assert.Equal(t, "```yaml\na: 1\n```", FormatCodeBlock("yaml", "a: 1\n"))
}
