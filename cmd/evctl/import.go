package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ev-dashboard/internal/app"
	"ev-dashboard/internal/services"
)

var (
	importFile  string
	importBrand string
)

var importCmd = &cobra.Command{
	Use:       "import <dataset>",
	Short:     "Import a CSV export into the database",
	Long:      "Datasets: " + strings.Join(services.Datasets, ", ") + ". brand-faq also needs --brand.",
	Args:      cobra.ExactArgs(1),
	ValidArgs: services.Datasets,
	RunE:      runImport,
}

func init() {
	importCmd.Flags().StringVarP(&importFile, "file", "f", "", "CSV file, or a directory of *.csv files, to import (UTF-8 or EUC-KR)")
	importCmd.Flags().StringVar(&importBrand, "brand", "", "brand for brand-faq: KIA, BMW, Tesla or BYD")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	a, err := app.New(ctx, cfg, newLogger(cfg), newMetrics())
	if err != nil {
		return err
	}
	defer a.Close()

	opts := services.ImportOptions{Dataset: args[0], Brand: importBrand}

	info, err := os.Stat(importFile)
	if err != nil {
		return fmt.Errorf("opening %s: %w", importFile, err)
	}

	var result *services.ImportResult
	if info.IsDir() {
		result, err = a.Imports.ImportDirectory(ctx, importFile, opts)
	} else {
		result, err = importOne(ctx, a, opts)
	}
	if err != nil {
		return err
	}
	if err := writeImportResult(cmd.OutOrStdout(), outputFormat, result); err != nil {
		return err
	}
	if result.SuccessfulRecords == 0 && result.TotalRecords > 0 {
		return fmt.Errorf("no records imported from %s", importFile)
	}
	return nil
}

func importOne(ctx context.Context, a *app.App, opts services.ImportOptions) (*services.ImportResult, error) {
	f, err := os.Open(importFile)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", importFile, err)
	}
	defer f.Close()

	return a.Imports.Import(ctx, f, opts)
}
