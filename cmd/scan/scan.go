package scan

import (
	"context"
	"fmt"
	"io"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/scan-io-git/scanio-audit/cmd/version"
	"github.com/scan-io-git/scanio-audit/internal/auditclient"
	"github.com/scan-io-git/scanio-audit/internal/config"
	"github.com/scan-io-git/scanio-audit/internal/findings"
	"github.com/scan-io-git/scanio-audit/internal/formatter"
	"github.com/scan-io-git/scanio-audit/internal/ingest"
	"github.com/scan-io-git/scanio-audit/internal/logger"
	internalsarif "github.com/scan-io-git/scanio-audit/internal/sarif"
	"github.com/scan-io-git/scanio-audit/pkg/shared"
	"github.com/scan-io-git/scanio-audit/pkg/shared/errors"
)

// RunOptions holds the arguments for the scan command.
type RunOptions struct {
	Upload     bool     `json:"upload,omitempty"`
	Files      []string `json:"files,omitempty"`
	Format     string   `json:"format,omitempty"`
	OutputPath string   `json:"output_path,omitempty"`
}

var (
	AppConfig        *config.Config
	scanOptions      RunOptions
	exampleScanUsage = `  # Scan a path the backend can read
  scanio-audit scan /path/to/my_project

  # Walk a local folder and upload its files to the backend
  scanio-audit scan --upload ./my_project

  # Upload a few selected files
  scanio-audit scan --files app/db.py,app/views.py

  # Write a SARIF report into a folder
  scanio-audit scan --format sarif --output /path/to/results /path/to/my_project`

	// ScanCmd represents the scan command.
	ScanCmd = &cobra.Command{
		Use:                   "scan [--upload] [--files PATH[,PATH...]] [--format/-f FORMAT] [--output/-o PATH] [PATH]",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Example:               exampleScanUsage,
		Short:                 "Scans a source tree with the audit backend and prints the findings",
		RunE:                  runScanCommand,
	}
)

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

// runScanCommand executes the scan command.
func runScanCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !shared.HasFlags(cmd.Flags()) {
		return cmd.Help()
	}

	lg := logger.NewLogger(AppConfig, "core-scan")

	if err := validateScanArgs(&scanOptions, args); err != nil {
		lg.Error("invalid scan arguments", "error", err)
		return errors.NewCommandError(err, 1)
	}

	client := auditclient.NewFromConfig(AppConfig, lg.Named("client"))
	report, sarifOpts, err := runScan(cmd.Context(), AppConfig, client, &scanOptions, args, cmd.ErrOrStderr(), lg)
	if err != nil {
		lg.Error("scan command failed", "error", err)
		return errors.NewCommandError(err, 2)
	}

	path, err := formatter.Emit(cmd.OutOrStdout(), scanOptions.OutputPath, formatter.DefaultFileName("scan", scanOptions.Format), func(w io.Writer) error {
		return formatter.WriteScan(w, scanOptions.Format, report, sarifOpts)
	})
	if err != nil {
		lg.Error("failed to write result", "error", err)
		return errors.NewCommandError(err, 1)
	}
	if path != "" {
		lg.Info("results saved", "path", path)
	}

	lg.Info("scan command completed successfully", "files", len(report.Files), "findings", report.Summary["total"])
	return nil
}

// runScan builds the descriptor, submits it and prepares the report.
func runScan(ctx context.Context, cfg *config.Config, scanner ingest.Scanner, opts *RunOptions, args []string, progress io.Writer, lg hclog.Logger) (formatter.ScanReport, internalsarif.ReportOptions, error) {
	d, err := buildDescriptor(ctx, cfg, opts, args, lg)
	if err != nil {
		return formatter.ScanReport{}, internalsarif.ReportOptions{}, fmt.Errorf("failed to prepare scan source: %w", err)
	}
	if !d.Warning.Empty() {
		lg.Warn("partial ingestion", "source", d.String(), "details", d.Warning.String())
	}

	session := ingest.NewSession(scanner, lg)
	var files []findings.AnalyzedFile
	err = formatter.Progress(progress, "Scanning "+d.String()+"...", func() error {
		var scanErr error
		files, scanErr = session.Submit(ctx, d)
		return scanErr
	})
	if err != nil {
		return formatter.ScanReport{}, internalsarif.ReportOptions{}, err
	}

	report := formatter.NewScanReport(d, files)
	sarifOpts := internalsarif.ReportOptions{ToolVersion: version.CoreVersion}
	if root := localRoot(opts, args); root != "" {
		report.Repository = collectMetadata(root, lg)
		if d.Path != "" {
			sarifOpts.SourceRoot = root
		}
	}
	return report, sarifOpts, nil
}

func init() {
	ScanCmd.Flags().BoolVar(&scanOptions.Upload, "upload", false, "Walk PATH locally and upload its files instead of sending the path to the backend.")
	ScanCmd.Flags().StringSliceVar(&scanOptions.Files, "files", nil, "Comma separated list of files to upload without recursion.")
	ScanCmd.Flags().StringVarP(&scanOptions.Format, "format", "f", formatter.FormatHuman, "Output format: human, json, yaml or sarif.")
	ScanCmd.Flags().StringVarP(&scanOptions.OutputPath, "output", "o", "", "Path to the output file or directory where the report will be saved.")
	ScanCmd.Flags().BoolP("help", "h", false, "Show help for the scan command.")
}
