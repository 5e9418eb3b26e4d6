package audit

import (
	"fmt"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/scan-io-git/scanio-audit/internal/auditclient"
	"github.com/scan-io-git/scanio-audit/internal/config"
	"github.com/scan-io-git/scanio-audit/internal/ingest"
	"github.com/scan-io-git/scanio-audit/internal/logger"
	"github.com/scan-io-git/scanio-audit/internal/tui"
	"github.com/scan-io-git/scanio-audit/internal/workflow"
	"github.com/scan-io-git/scanio-audit/pkg/shared/errors"
	"github.com/scan-io-git/scanio-audit/pkg/shared/files"
)

// RunOptions holds the arguments for the audit command.
type RunOptions struct {
	NoUpload bool `json:"no_upload,omitempty"`
	NoBrowse bool `json:"no_browse,omitempty"`
}

var (
	AppConfig         *config.Config
	auditOptions      RunOptions
	exampleAuditUsage = `  # Open the audit screen and type a path to scan
  scanio-audit audit

  # Open the audit screen with the path prompt pre-filled
  scanio-audit audit ~/src/my_project`

	// AuditCmd represents the audit command.
	AuditCmd = &cobra.Command{
		Use:                   "audit [--no-upload] [--no-browse] [PATH]",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Example:               exampleAuditUsage,
		Args:                  cobra.MaximumNArgs(1),
		Short:                 "Opens the interactive audit screen",
		Long: `Opens the interactive audit screen: scan a folder, browse the files and their
findings, review fix proposals, apply them and verify suspected false positives.

Logs are discarded while the screen is open unless the configured logger output is a file.`,
		RunE: runAuditCommand,
	}
)

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

func runAuditCommand(cmd *cobra.Command, args []string) error {
	lg := logger.NewScreenLogger(AppConfig, "core-audit")

	initial, err := initialPath(args)
	if err != nil {
		return errors.NewCommandError(err, 1)
	}

	client := auditclient.NewFromConfig(AppConfig, lg.Named("client"))
	coord := workflow.NewCoordinator(ingest.NewSession(client, lg.Named("ingest")), client, lg.Named("workflow"))

	if err := tui.Start(cmd.Context(), coord, screenOptions(AppConfig, client, &auditOptions, initial, lg)...); err != nil {
		lg.Error("audit screen failed", "error", err)
		return errors.NewCommandError(err, 2)
	}
	return nil
}

// screenOptions wires the optional screen features.
func screenOptions(cfg *config.Config, browser tui.Browser, opts *RunOptions, initial string, lg hclog.Logger) []tui.Option {
	screen := []tui.Option{tui.WithLogger(lg.Named("tui"))}
	if !opts.NoBrowse {
		screen = append(screen, tui.WithBrowser(browser))
	}
	if !opts.NoUpload {
		screen = append(screen, tui.WithUploader(ingest.NewLocal(cfg.Ingestion, lg.Named("local"))))
	}
	if initial != "" {
		screen = append(screen, tui.WithInitialPath(initial))
	}
	return screen
}

// initialPath expands a leading ~ and makes a local path absolute so the
// backend sees the same folder.
func initialPath(args []string) (string, error) {
	if len(args) == 0 {
		return "", nil
	}
	expanded, err := files.ExpandPath(args[0])
	if err != nil {
		return "", fmt.Errorf("failed to expand path %q: %w", args[0], err)
	}
	if abs, err := filepath.Abs(expanded); err == nil {
		return abs, nil
	}
	return expanded, nil
}

func init() {
	AuditCmd.Flags().BoolVar(&auditOptions.NoUpload, "no-upload", false, "Disable uploading a local folder from the screen.")
	AuditCmd.Flags().BoolVar(&auditOptions.NoBrowse, "no-browse", false, "Disable the backend folder picker.")
	AuditCmd.Flags().BoolP("help", "h", false, "Show help for the audit command.")
}
