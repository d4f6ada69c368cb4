package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	sqlitestore "go-co2-emissions-dashboard/internal/connectors/sqlite"
	"go-co2-emissions-dashboard/internal/emissions"
	"go-co2-emissions-dashboard/internal/logging"
)

var (
	importCSV    string
	importSQLite string
	importTable  string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load a CSV file into a SQLite dataset",
	Long: `Load an emissions CSV file into a SQLite table, replacing its contents.
Point APP_DATA_PATH at the database afterwards to serve from it.`,
	Args: cobra.NoArgs,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importCSV, "csv", "", "CSV file to import (required)")
	importCmd.Flags().StringVar(&importSQLite, "sqlite", "", "SQLite database file (required)")
	importCmd.Flags().StringVar(&importTable, "table", "", "table name (default: APP_DATA_TABLE)")
	_ = importCmd.MarkFlagRequired("csv")
	_ = importCmd.MarkFlagRequired("sqlite")
}

func runImport(cmd *cobra.Command, _ []string) error {
	table := strings.TrimSpace(importTable)
	if table == "" {
		table = appConfig.DataTable
	}

	f, err := os.Open(importCSV)
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	tbl, err := emissions.ReadCSV(f)
	if err != nil {
		return fmt.Errorf("%s: %w", importCSV, err)
	}

	store, err := sqlitestore.NewStore(importSQLite)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer store.Close()

	n, err := store.ImportEmissions(cmd.Context(), table, tbl.Records())
	if err != nil {
		return err
	}
	first, last := tbl.YearRange()
	logging.Component("import").Info("import complete",
		"rows", n,
		"table", table,
		"first_year", first,
		"last_year", last,
	)
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d rows into %s:%s\n", n, importSQLite, table)
	return nil
}
