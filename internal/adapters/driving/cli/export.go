package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/memoir/internal/core/domain"
)

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all answers",
	Long: `Export every answer of the profile, oldest first.

Formats: json, csv, yaml. Output goes to stdout unless --output is given.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", string(domain.ExportJSON), "output format: json, csv, yaml")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to this file instead of stdout")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) (err error) {
	if answerService == nil {
		return errors.New("answer service not configured")
	}
	format := domain.ExportFormat(strings.ToLower(exportFormat))
	if !format.IsValid() {
		return fmt.Errorf("%w: unsupported export format %q", domain.ErrInvalidInput, exportFormat)
	}

	ctx := commandContext(cmd)
	profile, err := resolveProfile(ctx)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("creating %s: %w", exportOutput, err)
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}

	if err := answerService.Export(ctx, profile.ID, format, w); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	return nil
}
