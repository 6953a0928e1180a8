package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/KaramelBytes/tabloom/internal/aggregate"
	"github.com/KaramelBytes/tabloom/internal/export"
	"github.com/KaramelBytes/tabloom/internal/logging"
	"github.com/KaramelBytes/tabloom/internal/pipeline"
	"github.com/KaramelBytes/tabloom/internal/utils"
	"github.com/spf13/cobra"
)

var (
	aggInput        inputFlags
	aggGroupBy      []string
	aggExprs        []string
	aggCountAll     bool
	aggOrder        string
	aggDropNullKeys bool
	aggRecipe       string

	aggChart    string
	aggX        string
	aggY        []string
	aggColor    string
	aggTitle    string
	aggXLSXPath string
	aggHTMLPath string
	aggSVGPath  string
	aggQuiet    bool
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate <file>",
	Short: "Group a CSV/XLSX file and aggregate the other columns",
	Long: `Aggregate groups rows by the --group-by columns and reduces the others.

Aggregations are written as "column:reducer" or "output=column:reducer",
where reducer is one of sum, count, mean, min, max. Without --agg every
non-key column is counted.

Examples:
  tabloom aggregate sales.csv --group-by Category --agg Sales:sum --agg Profit:sum
  tabloom aggregate sales.xlsx --group-by Region --agg "Avg Sales=Sales:mean" --xlsx --html
  tabloom aggregate sales.csv --recipe category.yaml --svg=chart.svg`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := aggregateRequest(cmd)
		if err != nil {
			return err
		}
		sess, err := openSession(args[0], &aggInput)
		if err != nil {
			return err
		}
		log := logging.WithFields(cmd.Context(), "session", sess.ID.String(), "file", sess.Filename)
		log.Debug("file loaded", "format", sess.Format, "rows", sess.Table.Len(), "cols", sess.Table.Width())

		res, err := sess.Run(req)
		if err != nil {
			return err
		}
		log.Debug("aggregated", "group_by", req.GroupBy, "groups", res.Summary.Len())

		out := cmd.OutOrStdout()
		if !aggQuiet {
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, strings.Join(res.Summary.Names(), "\t"))
			for i := 0; i < res.Summary.Len(); i++ {
				fmt.Fprintln(tw, strings.Join(res.Summary.Row(i), "\t"))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
		}

		writes := []struct {
			flag   string
			target string
			build  func() (*export.Artifact, error)
		}{
			{"xlsx", aggXLSXPath, res.Spreadsheet},
			{"html", aggHTMLPath, func() (*export.Artifact, error) {
				return res.ChartDocument(export.ChartOptions{AssetsHost: cfg.AssetsHost})
			}},
			{"svg", aggSVGPath, res.ChartImage},
		}
		for _, w := range writes {
			if !cmd.Flags().Changed(w.flag) {
				continue
			}
			art, err := w.build()
			if err != nil {
				return err
			}
			path := utils.OutputPath(cfg.OutputDir, w.target, art.Filename)
			if err := utils.SafeWriteFile(path, art.Data); err != nil {
				return fmt.Errorf("write %s: %w", w.flag, err)
			}
			log.Info("artifact written", "kind", w.flag, "path", path, "bytes", art.Size())
			fmt.Fprintf(out, "✓ Wrote %s\n", path)
		}
		return nil
	},
}

// aggregateRequest merges the optional recipe with explicit flags; flags win.
func aggregateRequest(cmd *cobra.Command) (pipeline.Request, error) {
	var req pipeline.Request
	recipeOrder := false
	if aggRecipe != "" {
		r, err := pipeline.LoadRecipe(aggRecipe)
		if err != nil {
			return req, err
		}
		if req, err = r.Request(); err != nil {
			return req, err
		}
		recipeOrder = r.Order != ""
	}

	// configured defaults apply only where neither the recipe nor a flag
	// sets a value
	f := cmd.Flags()
	if !recipeOrder && !f.Changed("order") {
		o, err := aggregate.ParseOrder(cfg.GroupOrder)
		if err != nil {
			return req, fmt.Errorf("config group_order: %w", err)
		}
		req.Order = o
	}
	if req.Chart.Kind == "" && !f.Changed("chart") && cfg.DefaultChart != "" {
		k, err := export.ParseChartKind(cfg.DefaultChart)
		if err != nil {
			return req, fmt.Errorf("config default_chart: %w", err)
		}
		req.Chart.Kind = k
	}

	if f.Changed("group-by") {
		req.GroupBy = aggGroupBy
	}
	if f.Changed("agg") {
		spec, err := aggregate.ParseSpec(aggExprs)
		if err != nil {
			return req, err
		}
		req.Aggregations = spec
	}
	if f.Changed("count-all") {
		req.CountAll = aggCountAll
	}
	if f.Changed("drop-null-keys") {
		req.DropNullKeys = aggDropNullKeys
	}
	if f.Changed("order") {
		o, err := aggregate.ParseOrder(aggOrder)
		if err != nil {
			return req, err
		}
		req.Order = o
	}
	if f.Changed("chart") {
		k, err := export.ParseChartKind(aggChart)
		if err != nil {
			return req, err
		}
		req.Chart.Kind = k
	}
	if f.Changed("x") {
		req.Chart.X = aggX
	}
	if f.Changed("y") {
		req.Chart.Y = aggY
	}
	if f.Changed("color") {
		req.Chart.Color = aggColor
	}
	if f.Changed("title") {
		req.Chart.Title = aggTitle
	}
	if len(req.GroupBy) == 0 {
		return req, fmt.Errorf("--group-by is required (or set group_by in the recipe)")
	}
	return req, nil
}

func init() {
	rootCmd.AddCommand(aggregateCmd)
	addInputFlags(aggregateCmd, &aggInput)
	f := aggregateCmd.Flags()
	f.StringSliceVarP(&aggGroupBy, "group-by", "g", nil, "group key column(s); repeat or comma-separate for a composite key")
	f.StringArrayVarP(&aggExprs, "agg", "a", nil, `aggregation "column:reducer" or "output=column:reducer" (repeatable)`)
	f.BoolVar(&aggCountAll, "count-all", false, "count every non-key column")
	f.StringVar(&aggOrder, "order", "", "group order: first-seen | sorted (default from config)")
	f.BoolVar(&aggDropNullKeys, "drop-null-keys", false, "drop rows whose group key has a missing value")
	f.StringVar(&aggRecipe, "recipe", "", "YAML recipe with group_by, aggregations and chart")

	f.StringVar(&aggChart, "chart", "", "chart kind: bar | pie | scatter | box (default from config)")
	f.StringVar(&aggX, "x", "", "chart X column (default: first group column)")
	f.StringSliceVar(&aggY, "y", nil, "chart Y column(s) (default: first aggregation output)")
	f.StringVar(&aggColor, "color", "", "split the chart into series by this column")
	f.StringVar(&aggTitle, "title", "", `chart title (default: "<x> Analysis")`)

	f.StringVar(&aggXLSXPath, "xlsx", "", "write the summary spreadsheet; --xlsx alone writes "+export.SpreadsheetFilename)
	f.StringVar(&aggHTMLPath, "html", "", "write the interactive chart page; --html alone writes "+export.ChartFilename)
	f.StringVar(&aggSVGPath, "svg", "", "write the chart image; --svg alone writes "+export.ImageFilename)
	f.Lookup("xlsx").NoOptDefVal = export.SpreadsheetFilename
	f.Lookup("html").NoOptDefVal = export.ChartFilename
	f.Lookup("svg").NoOptDefVal = export.ImageFilename
	f.BoolVarP(&aggQuiet, "quiet", "q", false, "do not print the summary table")
}
