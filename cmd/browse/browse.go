package browse

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/scan-io-git/scanio-audit/internal/auditclient"
	"github.com/scan-io-git/scanio-audit/internal/config"
	"github.com/scan-io-git/scanio-audit/internal/logger"
	"github.com/scan-io-git/scanio-audit/pkg/shared/errors"
)

// Browser opens the backend's folder picker.
type Browser interface {
	Browse(ctx context.Context) (string, error)
}

var (
	AppConfig *config.Config

	// BrowseCmd represents the browse command.
	BrowseCmd = &cobra.Command{
		Use:                   "browse",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Args:                  cobra.NoArgs,
		Short:                 "Opens the backend's folder picker and prints the selected path",
		Long: `Opens the native folder picker on the machine that runs the audit backend and
prints the selected absolute path. Nothing is printed when the selection is cancelled.`,
		RunE: runBrowseCommand,
	}
)

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

func runBrowseCommand(cmd *cobra.Command, args []string) error {
	lg := logger.NewLogger(AppConfig, "core-browse")
	client := auditclient.NewFromConfig(AppConfig, lg.Named("client"))

	if err := runBrowse(cmd.Context(), client, cmd.OutOrStdout()); err != nil {
		lg.Error("browse command failed", "error", err)
		return errors.NewCommandError(err, 2)
	}
	return nil
}

func runBrowse(ctx context.Context, browser Browser, out io.Writer) error {
	path, err := browser.Browse(ctx)
	if err != nil {
		return err
	}
	if path == "" {
		return nil
	}
	_, err = fmt.Fprintln(out, path)
	return err
}
