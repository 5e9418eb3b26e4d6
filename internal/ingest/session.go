package ingest

import (
	"context"
	stderrors "errors"

	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/scanio-audit/internal/findings"
	"github.com/scan-io-git/scanio-audit/pkg/shared/errors"
)

// Scanner performs the scan exchange with the backend.
type Scanner interface {
	ScanPath(ctx context.Context, path string) ([]findings.AnalyzedFile, error)
	ScanFiles(ctx context.Context, files []SourceFile) ([]findings.AnalyzedFile, error)
}

// Session submits descriptors to a Scanner and validates what comes back.
// It holds no state between submissions.
type Session struct {
	scanner Scanner
	logger  hclog.Logger
}

// NewSession creates a Session backed by scanner.
func NewSession(scanner Scanner, logger hclog.Logger) *Session {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Session{scanner: scanner, logger: logger}
}

// Submit scans d and returns the analyzed files in service order. Any failure,
// including a result that violates the data model, is an OperationError for
// OpScan and no partial result is returned.
func (s *Session) Submit(ctx context.Context, d Descriptor) ([]findings.AnalyzedFile, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	s.logger.Debug("submitting scan", "source", d.String(), "files", len(d.Files))

	var (
		files []findings.AnalyzedFile
		err   error
	)
	if d.Path != "" {
		files, err = s.scanner.ScanPath(ctx, d.Path)
	} else {
		files, err = s.scanner.ScanFiles(ctx, d.Files)
	}
	if err != nil {
		s.logger.Error("scan failed", "source", d.String(), "error", err)
		var opErr *errors.OperationError
		if stderrors.As(err, &opErr) {
			return nil, err
		}
		return nil, errors.NewOperationError(errors.OpScan, err)
	}

	if err := findings.Validate(files); err != nil {
		s.logger.Error("malformed scan result", "source", d.String(), "error", err)
		return nil, errors.NewOperationError(errors.OpScan, &errors.ServiceError{Op: errors.OpScan, Message: err.Error()})
	}

	s.logger.Info("scan completed", "source", d.String(), "files", len(files), "findings", findings.CountFindings(files))
	return files, nil
}
