package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var colInput inputFlags

var columnsCmd = &cobra.Command{
	Use:   "columns <file>",
	Short: "List the columns of a CSV/XLSX file with their inferred kinds",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(args[0], &colInput)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s (%s): %d rows, %d columns\n", sess.Filename, sess.Format, sess.Table.Len(), sess.Table.Width())
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "COLUMN\tKIND\tNON-NULL")
		for _, c := range sess.Table.Columns {
			fmt.Fprintf(tw, "%s\t%s\t%d\n", c.Name, c.Kind, c.Present())
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(columnsCmd)
	addInputFlags(columnsCmd, &colInput)
}
