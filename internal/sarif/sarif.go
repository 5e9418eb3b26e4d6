package sarif

import (
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/scan-io-git/scanio-audit/internal/findings"
	"github.com/scan-io-git/scanio-audit/internal/git"
	"github.com/scan-io-git/scanio-audit/pkg/shared/files"
)

const (
	DefaultToolName       = "scanio-audit"
	DefaultInformationURI = "https://github.com/scan-io-git/scanio-audit"
)

// ReportOptions describes the producing tool and where the scanned files live.
type ReportOptions struct {
	ToolName       string
	ToolVersion    string
	InformationURI string
	// SourceRoot makes artifact URIs relative when files lie below it.
	SourceRoot string
	Repository *git.RepositoryMetadata
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// RuleID derives a stable rule identifier from a vulnerability type.
func RuleID(kind string) string {
	id := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(kind), "-"), "-")
	if id == "" {
		return "unknown"
	}
	return id
}

// BuildReport converts analyzed files into a single-run SARIF 2.1.0 report.
// One rule is registered per vulnerability type.
func BuildReport(files []findings.AnalyzedFile, opts ReportOptions) (*sarif.Report, error) {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, fmt.Errorf("failed to create SARIF report: %w", err)
	}

	name := opts.ToolName
	if name == "" {
		name = DefaultToolName
	}
	uri := opts.InformationURI
	if uri == "" {
		uri = DefaultInformationURI
	}
	run := sarif.NewRunWithInformationURI(name, uri)
	if opts.ToolVersion != "" {
		version := opts.ToolVersion
		run.Tool.Driver.Version = &version
	}
	if md := opts.Repository; md != nil {
		props := sarif.Properties{"repositoryRoot": md.RepoRootFolder}
		if md.RepositoryFullName != nil {
			props["repository"] = *md.RepositoryFullName
		}
		if md.BranchName != nil {
			props["branch"] = *md.BranchName
		}
		if md.CommitHash != nil {
			props["commit"] = *md.CommitHash
		}
		run.Properties = props
	}

	for _, file := range files {
		artifactURI := relativeURI(opts.SourceRoot, file.Path)
		for _, finding := range file.Findings {
			level := toSarifErrorLevel(finding.Severity)
			rule := run.AddRule(RuleID(finding.Kind)).
				WithDescription(finding.Kind).
				WithDefaultConfiguration(&sarif.ReportingConfiguration{Level: level})

			location := sarif.NewLocation().WithPhysicalLocation(
				sarif.NewPhysicalLocation().
					WithArtifactLocation(sarif.NewArtifactLocation().WithUri(artifactURI)).
					WithRegion(sarif.NewRegion().WithStartLine(finding.Line)),
			)

			result := sarif.NewRuleResult(rule.ID).
				WithMessage(sarif.NewTextMessage(resultMessage(finding))).
				WithLevel(level).
				WithLocations([]*sarif.Location{location})
			result.Properties = sarif.Properties{
				"findingId": finding.ID,
				"severity":  strings.ToUpper(finding.Severity),
			}
			run.AddResult(result)
		}
	}
	report.AddRun(run)

	return report, nil
}

// WriteReport renders files as an indented SARIF document to w.
func WriteReport(w io.Writer, files []findings.AnalyzedFile, opts ReportOptions) error {
	report, err := BuildReport(files, opts)
	if err != nil {
		return err
	}
	return report.PrettyWrite(w)
}

func resultMessage(f findings.Finding) string {
	content := strings.TrimSpace(f.Content)
	if content == "" {
		return f.Kind
	}
	return fmt.Sprintf("%s: %s", f.Kind, content)
}

func relativeURI(root, path string) string {
	if root == "" || !filepath.IsAbs(path) {
		return filepath.ToSlash(path)
	}
	abs, err := files.EnsureWithinRoot(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func toSarifErrorLevel(severity string) string {
	switch strings.ToUpper(severity) {
	case "CRITICAL", "HIGH":
		return "error"
	case "MEDIUM":
		return "warning"
	case "LOW", "UNKNOWN", "INFO":
		return "note"
	default:
		return "none"
	}
}
