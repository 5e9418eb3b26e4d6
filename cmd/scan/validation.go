package scan

import (
	"fmt"
	"strings"

	"github.com/scan-io-git/scanio-audit/internal/formatter"
	"github.com/scan-io-git/scanio-audit/pkg/shared/files"
)

// validateScanArgs validates the arguments provided to the scan command.
func validateScanArgs(options *RunOptions, args []string) error {
	if err := formatter.ValidateFormat(options.Format, formatter.FormatHuman, formatter.FormatJSON, formatter.FormatYAML, formatter.FormatSARIF); err != nil {
		return err
	}

	if len(options.Files) > 0 {
		if len(args) > 0 {
			return fmt.Errorf("you cannot use the 'files' flag and a target path at the same time")
		}
		if options.Upload {
			return fmt.Errorf("the 'upload' flag applies to a target path only")
		}
		for _, f := range options.Files {
			if err := files.ValidatePath(f); err != nil {
				return fmt.Errorf("invalid file %q: %w", f, err)
			}
		}
		return nil
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
