package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/scan-io-git/scanio-audit/cmd/audit"
	"github.com/scan-io-git/scanio-audit/cmd/browse"
	"github.com/scan-io-git/scanio-audit/cmd/fix"
	"github.com/scan-io-git/scanio-audit/cmd/scan"
	"github.com/scan-io-git/scanio-audit/cmd/verify"
	"github.com/scan-io-git/scanio-audit/cmd/version"
	"github.com/scan-io-git/scanio-audit/internal/config"
	"github.com/scan-io-git/scanio-audit/pkg/shared/errors"
)

var (
	cfgFile   string
	AppConfig *config.Config
	rootCmd   = &cobra.Command{
		Use:                   "scanio-audit [command]",
		SilenceUsage:          true,
		SilenceErrors:         true,
		DisableFlagsInUseLine: true,
		Short:                 "Scanio-audit is a client for an AI assisted code audit backend.",
		Long: `Scanio-audit sends a folder or a set of files to a code audit backend, shows the
reported vulnerabilities per file, asks the backend for fix proposals, applies them
and re-scans to show which findings were resolved.`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is config.yml, or $SCANIO_AUDIT_CONFIG)")

	rootCmd.AddCommand(audit.AuditCmd)
	rootCmd.AddCommand(scan.ScanCmd)
	rootCmd.AddCommand(fix.FixCmd)
	rootCmd.AddCommand(verify.VerifyCmd)
	rootCmd.AddCommand(browse.BrowseCmd)
	rootCmd.AddCommand(version.NewVersionCmd())
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	var cmdErr *errors.CommandError
	if stderrors.As(err, &cmdErr) {
		return cmdErr.ExitCode
	}
	return 1
}

func initConfig() {
	var err error

	AppConfig, err = config.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize config: %v\n", err)
		os.Exit(1)
	}
	if err := config.ValidateConfig(AppConfig); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	audit.Init(AppConfig)
	scan.Init(AppConfig)
	fix.Init(AppConfig)
	verify.Init(AppConfig)
	browse.Init(AppConfig)
	version.Init(AppConfig)
}
