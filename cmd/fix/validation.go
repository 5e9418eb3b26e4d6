package fix

import (
	"fmt"
	"strings"

	"github.com/scan-io-git/scanio-audit/internal/formatter"
	"github.com/scan-io-git/scanio-audit/pkg/shared/files"
)

// validateFixArgs validates the arguments provided to the fix command.
func validateFixArgs(options *RunOptions, args []string) error {
	if err := formatter.ValidateFormat(options.Format, formatter.FormatHuman, formatter.FormatJSON, formatter.FormatYAML); err != nil {
		return err
	}

	options.FindingID = strings.TrimSpace(options.FindingID)
	if options.FindingID == "" {
		return fmt.Errorf("the 'finding' flag must be specified")
	}

	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return fmt.Errorf("exactly one target path must be specified")
	}

	if options.Upload {
		if err := files.ValidateDir(args[0]); err != nil {
			return fmt.Errorf("the target path is not a readable directory: %w", err)
		}
	}
	return nil
}
