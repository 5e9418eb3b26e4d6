package verify

import (
	"fmt"
	"strings"

	"github.com/scan-io-git/scanio-audit/internal/formatter"
	"github.com/scan-io-git/scanio-audit/pkg/shared/files"
)

// validateVerifyArgs validates the arguments provided to the verify command.
func validateVerifyArgs(options *RunOptions, args []string) error {
	if err := formatter.ValidateFormat(options.Format, formatter.FormatHuman, formatter.FormatJSON, formatter.FormatYAML); err != nil {
		return err
	}
	if len(args) > 0 {
		return fmt.Errorf("the verify command does not take positional arguments")
	}

	if strings.TrimSpace(options.Kind) == "" {
		return fmt.Errorf("the 'type' flag must be specified")
	}

	switch {
	case options.Content != "" && options.ContentFile != "":
		return fmt.Errorf("you cannot use the 'content' and 'content-file' flags at the same time")
	case options.Content == "" && options.ContentFile == "":
		return fmt.Errorf("either the 'content' or the 'content-file' flag must be specified")
	case options.ContentFile != "":
		expanded, err := files.ExpandPath(options.ContentFile)
		if err != nil {
			return fmt.Errorf("failed to expand content file path %q: %w", options.ContentFile, err)
		}
		if err := files.ValidatePath(expanded); err != nil {
			return fmt.Errorf("invalid content file %q: %w", options.ContentFile, err)
		}
		options.ContentFile = expanded
	}
	return nil
}
