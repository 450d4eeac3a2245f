package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/canele-orm/canele/schema"
)

// config is the optional YAML configuration; flags take precedence.
type config struct {
	Database    string `yaml:"database"`
	TablePrefix string `yaml:"table_prefix"`
	Pluralize   bool   `yaml:"pluralize"`
}

var (
	cfgPath string
	dbPath  string
	cfg     config
)

var rootCmd = &cobra.Command{
	Use:   "canele",
	Short: "Inspect the schema of a SQLite database the way canele maps it",
	Long: `canele introspects a SQLite database file and reports the table
metadata the mapping layer would synthesize: column types, inferred
semantic types, defaults and primary keys.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgPath != "" {
			data, err := os.ReadFile(cfgPath)
			if err != nil {
				return fmt.Errorf("reading config file: %w", err)
			}
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return fmt.Errorf("parsing config file: %w", err)
			}
		}
		if dbPath != "" {
			cfg.Database = dbPath
		}
		if cfg.Database == "" {
			return fmt.Errorf("no database given, use --db or a config file")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the SQLite database file")
}

func namer() schema.NamingStrategy {
	return schema.NamingStrategy{TablePrefix: cfg.TablePrefix, PluralizeTable: cfg.Pluralize}
}
