package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/orderlake/internal/catalog"
	"github.com/leapstack-labs/orderlake/internal/cli/config"
	"github.com/leapstack-labs/orderlake/internal/cli/output"
	"github.com/leapstack-labs/orderlake/internal/csvload"
	"github.com/leapstack-labs/orderlake/internal/state"
	"github.com/spf13/cobra"
)

// Check statuses.
const (
	checkPass  = "pass"
	checkWarn  = "warn"
	checkError = "error"
)

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, data files, state and warehouse",
		Long: `Run a health check of the orderlake project.

The doctor command checks:
- Configuration: config file and target
- Data: presence and validity of the three CSV files
- State: the run history database and its schema version
- Warehouse: the connection and the row counts of each table

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # Run health check
  orderlake doctor

  # Check the prod environment, as JSON
  orderlake doctor -t prod -o json`,
		Args: cobra.NoArgs,
		RunE: runDoctor,
	}
}

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	Target          string        `json:"target"`
	HealthChecks    []HealthCheck `json:"health_checks"`
	Score           int           `json:"score"`
	Recommendations []string      `json:"recommendations"`
	IssueCount      int           `json:"issue_count"`
}

// HealthCheck represents a single health check result.
type HealthCheck struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Group   string   `json:"group"`
	Status  string   `json:"status"` // "pass", "warn", "error"
	Details []string `json:"details,omitempty"`
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	cc, err := NewCommandContextWithoutEngine(cmd)
	if err != nil {
		return err
	}
	ctx := commandCtx(cmd)

	var checks []HealthCheck
	checks = append(checks, configChecks(cc.Cfg)...)
	checks = append(checks, dataChecks(ctx, cc)...)
	checks = append(checks, stateCheck(ctx, cc))
	checks = append(checks, warehouseChecks(ctx, cc)...)

	out := buildDoctorOutput(cc.Cfg.Target.Type, checks)

	r := cc.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		return renderDoctorMarkdown(r, out)
	default:
		return renderDoctorText(r, out)
	}
}

func configChecks(cfg *config.Config) []HealthCheck {
	file := HealthCheck{ID: "CF01", Name: "Config file", Group: "configuration", Status: checkPass}
	if used := config.GetConfigFileUsed(); used != "" {
		file.Details = []string{used}
	} else {
		file.Status = checkWarn
		file.Details = []string{"no orderlake.yaml found, using defaults"}
	}

	target := HealthCheck{ID: "CF02", Name: "Target", Group: "configuration", Status: checkPass}
	target.Details = []string{fmt.Sprintf("%s (environment %s)", cfg.Target.Type, cfg.Environment)}
	return []HealthCheck{file, target}
}

func dataChecks(ctx context.Context, cc *CommandContext) []HealthCheck {
	files := HealthCheck{ID: "DT01", Name: "CSV files", Group: "data", Status: checkPass}
	parse := HealthCheck{ID: "DT02", Name: "CSV contents", Group: "data", Status: checkPass}

	cats, prods, orders := pipelineConfig(cc.Cfg).Paths()
	for _, path := range []string{cats, prods, orders} {
		if _, err := os.Stat(path); err != nil {
			files.Status = checkWarn
			files.Details = append(files.Details, "missing "+path)
		}
	}
	if files.Status != checkPass {
		parse.Status = checkWarn
		parse.Details = []string{"skipped until all files exist"}
		return []HealthCheck{files, parse}
	}

	if err := validateData(ctx, cc.Cfg.Delimiter, cats, prods, orders, &parse); err != nil {
		parse.Status = checkError
		parse.Details = append(parse.Details, err.Error())
	}
	return []HealthCheck{files, parse}
}

func validateData(ctx context.Context, delimiter, catPath, prodPath, orderPath string, check *HealthCheck) error {
	reader, err := csvload.NewReader(delimiter)
	if err != nil {
		return err
	}
	cats, err := reader.ReadCategories(ctx, catPath)
	if err != nil {
		return err
	}
	prods, err := reader.ReadProducts(ctx, prodPath)
	if err != nil {
		return err
	}
	if err := catalog.Validate(cats, prods); err != nil {
		return err
	}
	orders, err := reader.ReadOrders(ctx, orderPath)
	if err != nil {
		return err
	}
	check.Details = append(check.Details,
		fmt.Sprintf("%d categories, %d products, %d orders", len(cats), len(prods), len(orders)))
	return nil
}

func stateCheck(ctx context.Context, cc *CommandContext) HealthCheck {
	check := HealthCheck{ID: "ST01", Name: "State database", Group: "state", Status: checkPass}

	store := state.NewSQLiteStore(cc.Logger)
	if err := store.Open(ctx, cc.Cfg.StatePath); err != nil {
		check.Status = checkError
		check.Details = []string{err.Error()}
		return check
	}
	defer func() { _ = store.Close() }()

	version, err := store.MigrationVersion(ctx)
	if err != nil {
		check.Status = checkError
		check.Details = []string{err.Error()}
		return check
	}
	check.Details = []string{fmt.Sprintf("%s (schema version %d)", cc.Cfg.StatePath, version)}
	return check
}

func warehouseChecks(ctx context.Context, cc *CommandContext) []HealthCheck {
	conn := HealthCheck{ID: "WH01", Name: "Connection", Group: "warehouse", Status: checkPass}
	tables := HealthCheck{ID: "WH02", Name: "Tables", Group: "warehouse", Status: checkPass}

	adp, err := connectAdapter(ctx, cc.Cfg.Target, cc.Logger)
	if err != nil {
		conn.Status = checkError
		conn.Details = []string{err.Error()}
		tables.Status = checkWarn
		tables.Details = []string{"skipped without a connection"}
		return []HealthCheck{conn, tables}
	}
	defer func() { _ = adp.Close() }()
	conn.Details = []string{adp.Name()}

	infos, err := adp.Describe(ctx)
	if err != nil {
		tables.Status = checkError
		tables.Details = []string{err.Error()}
		return []HealthCheck{conn, tables}
	}
	if len(infos) == 0 {
		tables.Status = checkWarn
		tables.Details = []string{"no tables, run 'orderlake create'"}
	}
	for _, t := range infos {
		if t.RowCount == 0 && tables.Status == checkPass {
			tables.Status = checkWarn
		}
		tables.Details = append(tables.Details, fmt.Sprintf("%s: %d rows", t.Name, t.RowCount))
	}
	return []HealthCheck{conn, tables}
}

func buildDoctorOutput(target string, checks []HealthCheck) *DoctorOutput {
	out := &DoctorOutput{
		Target:       target,
		HealthChecks: checks,
		Score:        calculateHealthScore(checks),
	}
	seen := make(map[string]bool)
	for _, check := range checks {
		if check.Status == checkPass {
			continue
		}
		out.IssueCount++
		if rec := getRecommendation(check.ID); rec != "" && !seen[rec] {
			out.Recommendations = append(out.Recommendations, rec)
			seen[rec] = true
		}
	}
	return out
}

// calculateHealthScore computes a health score from 0-100.
// Errors cost twice as much as warnings.
func calculateHealthScore(checks []HealthCheck) int {
	score := 100
	for _, check := range checks {
		switch check.Status {
		case checkError:
			score -= 20
		case checkWarn:
			score -= 10
		}
	}
	return max(score, 0)
}

// getRecommendation returns a recommendation for a specific check.
func getRecommendation(id string) string {
	switch id {
	case "CF01":
		return "Run 'orderlake init' to write a starter orderlake.yaml"
	case "DT01", "DT02":
		return "Run 'orderlake generate' to write fresh CSV files"
	case "ST01":
		return "Check that the state path is writable, or pass --state"
	case "WH01":
		return "Check the target settings with 'orderlake config'"
	case "WH02":
		return "Run 'orderlake create' and 'orderlake load' to fill the warehouse"
	default:
		return ""
	}
}

func statusLabel(status string) string {
	switch status {
	case checkWarn:
		return "WARN"
	case checkError:
		return "ERROR"
	default:
		return "PASS"
	}
}

func renderDoctorText(r *output.Renderer, out *DoctorOutput) error {
	styles := r.Styles()

	r.Println("")
	r.Println(styles.Title.Render("orderlake Health Report"))
	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			if currentGroup != "" {
				r.Println("")
			}
			currentGroup = check.Group
			r.Println(styles.Header.Render("   " + titleCaser.String(currentGroup)))
			r.Println(styles.Muted.Render("   " + strings.Repeat("-", 40)))
		}

		icon := styles.Success.Render("✓")
		switch check.Status {
		case checkWarn:
			icon = styles.Warning.Render("!")
		case checkError:
			icon = styles.Error.Render("✗")
		}
		r.Printf("   %s %s: %s\n", icon, check.ID, check.Name)
		for _, detail := range check.Details {
			r.Println(styles.Muted.Render("       - " + detail))
		}
	}
	r.Println("")

	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	scoreStyle := styles.Success
	if out.Score < 70 {
		scoreStyle = styles.Warning
	}
	if out.Score < 50 {
		scoreStyle = styles.Error
	}
	r.Printf("   Health Score: %s\n", scoreStyle.Render(fmt.Sprintf("%d/100", out.Score)))
	r.Println("")

	if len(out.Recommendations) > 0 {
		r.Println(styles.Header.Render("Recommendations"))
		for i, rec := range out.Recommendations {
			r.Printf("   %d. %s\n", i+1, rec)
		}
		r.Println("")
	}
	return nil
}

func renderDoctorMarkdown(r *output.Renderer, out *DoctorOutput) error {
	r.Println("# orderlake Health Report")
	r.Println("")
	r.Println(output.FormatKeyValue("Target", out.Target))
	r.Println("")

	r.Println("## Health Checks")
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println("### " + titleCaser.String(currentGroup))
			r.Println("")
		}
		r.Printf("- **[%s]** %s: %s\n", statusLabel(check.Status), check.ID, check.Name)
		for _, detail := range check.Details {
			r.Printf("  - %s\n", detail)
		}
	}
	r.Println("")

	r.Println("## Health Score")
	r.Println("")
	r.Printf("**%d/100**\n", out.Score)
	r.Println("")

	if len(out.Recommendations) > 0 {
		r.Println("## Recommendations")
		r.Println("")
		for i, rec := range out.Recommendations {
			r.Printf("%d. %s\n", i+1, rec)
		}
		r.Println("")
	}
	return nil
}
