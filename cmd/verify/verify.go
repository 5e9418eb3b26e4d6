package verify

import (
	"context"
	"io"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/scan-io-git/scanio-audit/internal/auditclient"
	"github.com/scan-io-git/scanio-audit/internal/config"
	"github.com/scan-io-git/scanio-audit/internal/findings"
	"github.com/scan-io-git/scanio-audit/internal/formatter"
	"github.com/scan-io-git/scanio-audit/internal/logger"
	"github.com/scan-io-git/scanio-audit/pkg/shared"
	"github.com/scan-io-git/scanio-audit/pkg/shared/errors"
)

// RunOptions holds the arguments for the verify command.
type RunOptions struct {
	Kind        string `json:"type,omitempty"`
	Content     string `json:"content,omitempty"`
	ContentFile string `json:"content_file,omitempty"`
	Format      string `json:"format,omitempty"`
	OutputPath  string `json:"output_path,omitempty"`
}

// Verifier asks the backend whether a finding is a false positive.
type Verifier interface {
	Verify(ctx context.Context, finding findings.Finding) (findings.VerifyResult, error)
}

var (
	AppConfig          *config.Config
	verifyOptions      RunOptions
	exampleVerifyUsage = `  # Check whether a reported snippet is a real issue
  scanio-audit verify --type "SQL Injection" --content 'cursor.execute("SELECT * FROM t WHERE id=" + uid)'

  # Read the snippet from a file and save the verdict as JSON
  scanio-audit verify --type "Hardcoded Secret" --content-file snippet.txt --format json -o /tmp/verdict.json`

	// VerifyCmd represents the verify command.
	VerifyCmd = &cobra.Command{
		Use:                   "verify --type TYPE (--content SNIPPET | --content-file PATH) [--format/-f FORMAT] [--output/-o PATH]",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Example:               exampleVerifyUsage,
		Short:                 "Asks the backend whether a finding is a false positive",
		RunE:                  runVerifyCommand,
	}
)

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

// runVerifyCommand executes the verify command.
func runVerifyCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !shared.HasFlags(cmd.Flags()) {
		return cmd.Help()
	}

	lg := logger.NewLogger(AppConfig, "core-verify")

	if err := validateVerifyArgs(&verifyOptions, args); err != nil {
		lg.Error("invalid verify arguments", "error", err)
		return errors.NewCommandError(err, 1)
	}

	client := auditclient.NewFromConfig(AppConfig, lg.Named("client"))
	report, err := runVerify(cmd.Context(), client, &verifyOptions, cmd.ErrOrStderr(), lg)
	if err != nil {
		lg.Error("verify command failed", "error", err)
		return errors.NewCommandError(err, 2)
	}

	path, err := formatter.Emit(cmd.OutOrStdout(), verifyOptions.OutputPath, formatter.DefaultFileName("verify", verifyOptions.Format), func(w io.Writer) error {
		return formatter.WriteVerify(w, verifyOptions.Format, report)
	})
	if err != nil {
		lg.Error("failed to write result", "error", err)
		return errors.NewCommandError(err, 1)
	}
	if path != "" {
		lg.Info("results saved", "path", path)
	}
	return nil
}

func runVerify(ctx context.Context, verifier Verifier, opts *RunOptions, progress io.Writer, lg hclog.Logger) (formatter.VerifyReport, error) {
	finding, err := buildFinding(opts)
	if err != nil {
		return formatter.VerifyReport{}, err
	}

	var result findings.VerifyResult
	if err := formatter.Progress(progress, "Verifying "+finding.Kind+"...", func() error {
		var verr error
		result, verr = verifier.Verify(ctx, finding)
		return verr
	}); err != nil {
		return formatter.VerifyReport{}, err
	}

	lg.Debug("verification finished", "type", finding.Kind, "false_positive", result.IsFalsePositive, "confidence", result.Confidence)
	return formatter.VerifyReport{Finding: finding, Result: result}, nil
}

func init() {
	VerifyCmd.Flags().StringVar(&verifyOptions.Kind, "type", "", "Vulnerability type of the finding, for example \"SQL Injection\".")
	VerifyCmd.Flags().StringVar(&verifyOptions.Content, "content", "", "Code snippet of the finding.")
	VerifyCmd.Flags().StringVar(&verifyOptions.ContentFile, "content-file", "", "Path to a file holding the code snippet of the finding.")
	VerifyCmd.Flags().StringVarP(&verifyOptions.Format, "format", "f", formatter.FormatHuman, "Output format: human, json or yaml.")
	VerifyCmd.Flags().StringVarP(&verifyOptions.OutputPath, "output", "o", "", "Path to the output file or directory where the result will be saved.")
	VerifyCmd.Flags().BoolP("help", "h", false, "Show help for the verify command.")
}
