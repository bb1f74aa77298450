package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"bank-statement-engine/cmd/extractor/config"
	"bank-statement-engine/internal/engine"
	"bank-statement-engine/internal/export"
	"bank-statement-engine/internal/profile"
	"bank-statement-engine/internal/report"
	"bank-statement-engine/internal/tokens"
	"bank-statement-engine/pkg/errors"

	"github.com/spf13/cobra"
)

var (
	extractBank       string
	extractOut        string
	extractFormat     string
	extractProfileDir string
	extractStrict     bool
	extractReport     string
	extractTimeout    time.Duration
)

// extractCmd parses one statement PDF into a reconciled ledger.
var extractCmd = &cobra.Command{
	Use:   "extract <statement.pdf>",
	Short: "Extract and reconcile transactions from a statement PDF",
	Long: `Extract reads the PDF's native text layer, resolves the bank (or uses
--bank), parses the transaction table and reconciles every balance.

Exit codes:
  0  success
  2  unsupported bank / invalid profile
  3  parse failure
  4  reconciliation failure in strict mode`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVar(&extractBank, "bank", "", "bank profile to use (default: detect from statement)")
	extractCmd.Flags().StringVar(&extractOut, "out", "", "output file (.csv, .json or .xlsx)")
	extractCmd.Flags().StringVar(&extractFormat, "format", "", "output format override (csv, json, xlsx)")
	extractCmd.Flags().StringVar(&extractProfileDir, "profiles", "", "directory of additional bank profile descriptors")
	extractCmd.Flags().BoolVar(&extractStrict, "strict", false, "fail when any period does not reconcile")
	extractCmd.Flags().StringVar(&extractReport, "report", "text", "summary format (text, json)")
	extractCmd.Flags().DurationVar(&extractTimeout, "timeout", 0, "abort parsing after this duration")
}

func runExtract(cmd *cobra.Command, args []string) error {
	log, err := config.CreateLogger(verbose)
	if err != nil {
		return err
	}

	registry, err := config.CreateRegistry(log, extractProfileDir)
	if err != nil {
		return err
	}

	stream, err := tokens.OpenPDF(args[0], log)
	if err != nil {
		return err
	}

	bankProfile, err := resolveProfile(registry, stream)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if extractTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, extractTimeout)
		defer cancel()
	}

	stream.Reset()
	parser := engine.New(log, engine.Options{RequireStrict: extractStrict})
	result, err := parser.Parse(ctx, stream, bankProfile)
	if err != nil && !errors.IsKind(err, errors.CodeCancelled) {
		return err
	}

	if extractOut != "" {
		format := export.FormatForPath(extractOut)
		if extractFormat != "" {
			parsed, ok := export.ParseFormat(extractFormat)
			if !ok {
				return fmt.Errorf("unknown output format %q", extractFormat)
			}
			format = parsed
		}
		if writeErr := export.Write(result, extractOut, format); writeErr != nil {
			return writeErr
		}
		log.WithField("path", extractOut).Info("Wrote ledger")
	}

	reporter := report.NewReporter(config.CreateReporterConfig(extractReport))
	if reportErr := reporter.Write(os.Stdout, result); reportErr != nil {
		return reportErr
	}

	if err != nil {
		// Cancelled: the partial result was still written and reported.
		return err
	}
	if extractStrict && !result.AllReconciled() {
		return errors.New(errors.CategoryReconciliation, errors.CodePeriodUnreconciled,
			"one or more periods failed reconciliation")
	}
	return nil
}

func resolveProfile(registry *profile.Registry, stream *tokens.SliceStream) (*profile.BankProfile, error) {
	if extractBank != "" {
		return registry.Get(extractBank)
	}
	return registry.Detect(tokens.HeaderText(stream, 400))
}
