package cmd

import (
	"fmt"

	"github.com/KaramelBytes/tabloom/internal/stats"
	"github.com/KaramelBytes/tabloom/internal/table"
	"github.com/KaramelBytes/tabloom/internal/utils"
	"github.com/spf13/cobra"
)

var (
	descInput      inputFlags
	descColumn     string
	descSampleRows int
	descOutputPath string
)

var describeCmd = &cobra.Command{
	Use:   "describe <file>",
	Short: "Print summary statistics for a CSV/XLSX file",
	Long: `Describe loads a file and reports per-column statistics: count, missing,
mean, std, quartiles, min and max for numeric columns, and unique values,
top value and its frequency for text and date columns.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(args[0], &descInput)
		if err != nil {
			return err
		}
		sums := sess.Describe()
		if descColumn != "" {
			c, ok := sess.Table.Column(descColumn)
			if !ok {
				return &table.SchemaError{Missing: []string{descColumn}, Available: sess.Table.Names()}
			}
			sums = []stats.Summary{stats.Describe(c)}
		}
		md := stats.Markdown(sess.Filename, sess.Table, sums, descSampleRows)
		if descOutputPath != "" {
			path := utils.OutputPath(cfg.OutputDir, descOutputPath, "")
			if err := utils.SafeWriteFile(path, []byte(md)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote summary to %s\n", path)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), md)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
	addInputFlags(describeCmd, &descInput)
	describeCmd.Flags().StringVar(&descColumn, "column", "", "describe a single column")
	describeCmd.Flags().IntVar(&descSampleRows, "sample-rows", 5, "number of leading rows to include")
	describeCmd.Flags().StringVarP(&descOutputPath, "output", "o", "", "write the summary to a file instead of stdout")
}
