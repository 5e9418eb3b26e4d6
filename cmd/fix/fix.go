package fix

import (
	"context"
	"fmt"
	"io"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/scan-io-git/scanio-audit/internal/auditclient"
	"github.com/scan-io-git/scanio-audit/internal/config"
	"github.com/scan-io-git/scanio-audit/internal/formatter"
	"github.com/scan-io-git/scanio-audit/internal/ingest"
	"github.com/scan-io-git/scanio-audit/internal/logger"
	"github.com/scan-io-git/scanio-audit/internal/workflow"
	"github.com/scan-io-git/scanio-audit/pkg/shared"
	"github.com/scan-io-git/scanio-audit/pkg/shared/errors"
)

// RunOptions holds the arguments for the fix command.
type RunOptions struct {
	FindingID  string `json:"finding_id,omitempty"`
	File       string `json:"file,omitempty"`
	Upload     bool   `json:"upload,omitempty"`
	Apply      bool   `json:"apply,omitempty"`
	Format     string `json:"format,omitempty"`
	OutputPath string `json:"output_path,omitempty"`
}

// Backend is everything the fix workflow exchanges with the audit service.
type Backend interface {
	ingest.Scanner
	workflow.Fixer
}

var (
	AppConfig       *config.Config
	fixOptions      RunOptions
	exampleFixUsage = `  # Show the proposed fix for a finding
  scanio-audit fix --finding vuln-3 /path/to/my_project

  # Pick the finding in a specific file and apply the fix
  scanio-audit fix --finding vuln-3 --file app/db.py --apply /path/to/my_project

  # Upload a local folder, apply the fix and print the outcome as JSON
  scanio-audit fix --upload --finding vuln-3 --apply --format json ./my_project`

	// FixCmd represents the fix command.
	FixCmd = &cobra.Command{
		Use:                   "fix --finding ID [--file PATH] [--upload] [--apply] [--format/-f FORMAT] [--output/-o PATH] PATH",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Example:               exampleFixUsage,
		Short:                 "Generates and optionally applies a fix for one finding, then re-scans",
		RunE:                  runFixCommand,
	}
)

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

// runFixCommand executes the fix command.
func runFixCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !shared.HasFlags(cmd.Flags()) {
		return cmd.Help()
	}

	lg := logger.NewLogger(AppConfig, "core-fix")

	if err := validateFixArgs(&fixOptions, args); err != nil {
		lg.Error("invalid fix arguments", "error", err)
		return errors.NewCommandError(err, 1)
	}

	client := auditclient.NewFromConfig(AppConfig, lg.Named("client"))
	report, err := runFix(cmd.Context(), AppConfig, client, &fixOptions, args, cmd.ErrOrStderr(), lg)
	if err != nil {
		lg.Error("fix command failed", "error", err)
		return errors.NewCommandError(err, 2)
	}

	path, err := formatter.Emit(cmd.OutOrStdout(), fixOptions.OutputPath, formatter.DefaultFileName("fix", fixOptions.Format), func(w io.Writer) error {
		return formatter.WriteFix(w, fixOptions.Format, report)
	})
	if err != nil {
		lg.Error("failed to write result", "error", err)
		return errors.NewCommandError(err, 1)
	}
	if path != "" {
		lg.Info("results saved", "path", path)
	}

	lg.Info("fix command completed successfully", "finding", report.Finding.ID, "applied", report.Applied)
	return nil
}

// runFix drives one pass of the audit workflow: scan, select the finding,
// request a fix and, when asked, apply it and re-scan.
func runFix(ctx context.Context, cfg *config.Config, backend Backend, opts *RunOptions, args []string, progress io.Writer, lg hclog.Logger) (formatter.FixReport, error) {
	d, err := buildDescriptor(ctx, cfg, opts, args[0], lg)
	if err != nil {
		return formatter.FixReport{}, fmt.Errorf("failed to prepare scan source: %w", err)
	}

	coord := workflow.NewCoordinator(ingest.NewSession(backend, lg), backend, lg.Named("workflow"))

	if err := formatter.Progress(progress, "Scanning "+d.String()+"...", func() error {
		return coord.SubmitScan(ctx, d)
	}); err != nil {
		return formatter.FixReport{}, err
	}

	snap := coord.Snapshot()
	fileIdx, finding, err := locateFinding(snap.Files, opts.File, opts.FindingID)
	if err != nil {
		return formatter.FixReport{}, err
	}
	if err := coord.SelectFile(fileIdx); err != nil {
		return formatter.FixReport{}, err
	}

	if err := formatter.Progress(progress, "Generating fix...", func() error {
		return coord.ClickFinding(ctx, finding.ID)
	}); err != nil {
		return formatter.FixReport{}, err
	}

	snap = coord.Snapshot()
	report := formatter.FixReport{
		File:     snap.Files[fileIdx].Path,
		Finding:  finding,
		Proposal: *snap.Proposal,
	}

	if !opts.Apply {
		return report, coord.Cancel()
	}

	err = formatter.Progress(progress, "Applying fix...", func() error {
		return coord.Apply(ctx)
	})
	if errors.IsOp(err, errors.OpApplyFix) {
		return formatter.FixReport{}, err
	}
	report.Applied = true
	if err != nil {
		lg.Warn("fix applied but the re-scan failed", "error", err)
		return report, nil
	}
	report.Outcome = coord.Snapshot().Outcome
	return report, nil
}

func init() {
	FixCmd.Flags().StringVar(&fixOptions.FindingID, "finding", "", "Id of the finding to fix, as printed by the scan command.")
	FixCmd.Flags().StringVar(&fixOptions.File, "file", "", "File that holds the finding, as a full path, a path suffix or a file name.")
	FixCmd.Flags().BoolVar(&fixOptions.Upload, "upload", false, "Walk PATH locally and upload its files instead of sending the path to the backend.")
	FixCmd.Flags().BoolVar(&fixOptions.Apply, "apply", false, "Write the proposed fix and re-scan.")
	FixCmd.Flags().StringVarP(&fixOptions.Format, "format", "f", formatter.FormatHuman, "Output format: human, json or yaml.")
	FixCmd.Flags().StringVarP(&fixOptions.OutputPath, "output", "o", "", "Path to the output file or directory where the result will be saved.")
	FixCmd.Flags().BoolP("help", "h", false, "Show help for the fix command.")
}
