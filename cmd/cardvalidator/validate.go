package main

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/alovak/cardflow-validator/internal/apiclient"
	"github.com/alovak/cardflow-validator/internal/cardfile"
	"github.com/alovak/cardflow-validator/validator"
	"github.com/alovak/cardflow-validator/validator/models"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	validateIn      string
	validateOut     string
	validateToday   string
	validateWorkers int
	validateRemote  string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a credit_cards file and write the accepted records",
	Long: `Read {"credit_cards":[...]} from the input file, keep the records that pass
validation and write them as {"validated_credit_cards":[...]} to the output file.

A malformed input file aborts the run. Rejected records are simply left out.`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVarP(&validateIn, "in", "i", "", "Input file (default from config: credit_cards.json)")
	validateCmd.Flags().StringVarP(&validateOut, "out", "o", "", "Output file (default from config: validated_credit_cards.json)")
	validateCmd.Flags().StringVar(&validateToday, "today", "", "Validate as of this month, YYYY-MM (default: current month)")
	validateCmd.Flags().IntVar(&validateWorkers, "workers", 0, "Records validated concurrently (default from config)")
	validateCmd.Flags().StringVar(&validateRemote, "remote", "", "Base URL of a running validator server; validate there instead of locally")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := validator.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if validateIn != "" {
		cfg.InputPath = validateIn
	}
	if validateOut != "" {
		cfg.OutputPath = validateOut
	}
	if validateWorkers > 0 {
		cfg.Workers = validateWorkers
	}

	logger := newLogger(cmd)
	ctx := cmd.Context()

	if validateRemote != "" {
		return runRemoteValidate(cmd, cfg)
	}

	repo, db, err := validator.OpenRepository(ctx, cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}
	svc := validator.NewService(repo, cfg, logger)

	today := svc.Today()
	if validateToday != "" {
		today, err = parseToday(validateToday)
		if err != nil {
			return err
		}
	}

	records, err := cardfile.ReadFile(cfg.InputPath)
	if err != nil {
		return err
	}

	batch, err := svc.ValidateBatch(ctx, records, today)
	if err != nil {
		return err
	}

	if err := cardfile.WriteFile(cfg.OutputPath, batch.Accepted); err != nil {
		return err
	}

	printSummary(cmd.OutOrStdout(), cfg.OutputPath, batch.Run)
	return nil
}

func runRemoteValidate(cmd *cobra.Command, cfg *validator.Config) error {
	records, err := cardfile.ReadFile(cfg.InputPath)
	if err != nil {
		return err
	}
	accepted, runID, err := apiclient.New(validateRemote, nil).ValidateBatch(cmd.Context(), records)
	if err != nil {
		return err
	}
	if err := cardfile.WriteFile(cfg.OutputPath, accepted); err != nil {
		return err
	}
	printSummary(cmd.OutOrStdout(), cfg.OutputPath, &models.Run{ID: runID, Total: len(records), Accepted: len(accepted)})
	return nil
}

func parseToday(s string) (time.Time, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("--today must be YYYY-MM: %w", err)
	}
	return t, nil
}

func printSummary(w io.Writer, outPath string, run *models.Run) {
	heading := color.New(color.Bold)
	ok := color.New(color.FgGreen)
	bad := color.New(color.FgYellow)

	heading.Fprintf(w, "Run %s\n", run.ID)
	fmt.Fprintf(w, "  records:  %d\n", run.Total)
	ok.Fprintf(w, "  accepted: %d\n", run.Accepted)
	bad.Fprintf(w, "  rejected: %d\n", run.Total-run.Accepted)

	reasons := make([]string, 0, len(run.Rejections))
	for r := range run.Rejections {
		reasons = append(reasons, string(r))
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		fmt.Fprintf(w, "    %-20s %d\n", r, run.Rejections[models.Reason(r)])
	}
	fmt.Fprintf(w, "  written:  %s\n", outPath)
}
