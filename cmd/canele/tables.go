package main

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List the user tables of the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := sql.Open("sqlite3", cfg.Database)
		if err != nil {
			return fmt.Errorf("opening %s: %w", cfg.Database, err)
		}
		defer db.Close()

		rows, err := db.Query(
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
		if err != nil {
			return fmt.Errorf("listing tables: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return rows.Err()
	},
}

func init() {
	rootCmd.AddCommand(tablesCmd)
}
