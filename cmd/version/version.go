package version

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/scan-io-git/scanio-audit/internal/config"
	"github.com/scan-io-git/scanio-audit/internal/formatter"
	"github.com/scan-io-git/scanio-audit/pkg/shared/errors"
)

// Set at build time with -ldflags "-X".
var (
	AppConfig     *config.Config
	CoreVersion   = "unknown"
	GolangVersion = "unknown"
	BuildTime     = "unknown"
)

// Info holds version information for the binary and the backend it targets.
type Info struct {
	Version       string `json:"version" yaml:"version"`
	GolangVersion string `json:"golang_version" yaml:"golang_version"`
	BuildTime     string `json:"build_time" yaml:"build_time"`
	Platform      string `json:"platform" yaml:"platform"`
	BackendURL    string `json:"backend_url" yaml:"backend_url"`
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

// NewVersionCmd creates a new cobra.Command for the version command.
func NewVersionCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:                   "version [--format/-f FORMAT]",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Args:                  cobra.NoArgs,
		Short:                 "Print the version number of the application",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := formatter.ValidateFormat(format, formatter.FormatHuman, formatter.FormatJSON, formatter.FormatYAML); err != nil {
				return errors.NewCommandError(err, 1)
			}
			return printVersionInfo(cmd.OutOrStdout(), format, Current(AppConfig))
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatter.FormatHuman, "Output format: human, json or yaml.")
	return cmd
}

// Current collects the build variables and the configured backend.
func Current(cfg *config.Config) Info {
	if cfg == nil {
		cfg = config.Default()
	}
	goVersion := GolangVersion
	if goVersion == "unknown" {
		goVersion = runtime.Version()
	}
	return Info{
		Version:       CoreVersion,
		GolangVersion: goVersion,
		BuildTime:     BuildTime,
		Platform:      runtime.GOOS + "/" + runtime.GOARCH,
		BackendURL:    cfg.Backend.URL,
	}
}

// printVersionInfo writes info to w in format.
func printVersionInfo(w io.Writer, format string, info Info) error {
	switch format {
	case formatter.FormatJSON:
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case formatter.FormatYAML:
		data, err := yaml.Marshal(info)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
	fmt.Fprintf(w, "Core Version: v%s\n", info.Version)
	fmt.Fprintf(w, "Go Version: %s\n", info.GolangVersion)
	fmt.Fprintf(w, "Build Time: %s\n", info.BuildTime)
	fmt.Fprintf(w, "Platform: %s\n", info.Platform)
	fmt.Fprintf(w, "Backend: %s\n", info.BackendURL)
	return nil
}
