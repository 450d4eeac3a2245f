package main

import (
	"database/sql"
	"fmt"
	"text/tabwriter"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"

	"github.com/canele-orm/canele/schema"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <table>...",
	Short: "Show the field metadata canele would synthesize for a table",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := sql.Open("sqlite3", cfg.Database)
		if err != nil {
			return fmt.Errorf("opening %s: %w", cfg.Database, err)
		}
		defer db.Close()

		ns := namer()
		for _, table := range args {
			t, err := schema.Introspect(db, table, nil)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "table %s\n", t.Name)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "COLUMN\tSQL TYPE\tTYPE\tNULL\tDEFAULT\tPK\tGO NAME")
			for _, f := range t.Fields {
				dflt := ""
				if f.HasDefault {
					dflt = fmt.Sprint(f.Default)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%s\t%v\t%s\n",
					f.Name, f.DBType, f.DataType, !f.NotNull, dflt, f.PrimaryKey, ns.GoName(f.Name))
			}
			if err := w.Flush(); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
