package auditclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/scanio-audit/internal/config"
	"github.com/scan-io-git/scanio-audit/internal/findings"
	"github.com/scan-io-git/scanio-audit/internal/ingest"
	"github.com/scan-io-git/scanio-audit/pkg/shared/errors"
	"github.com/scan-io-git/scanio-audit/pkg/shared/httpclient"
)

const (
	pathScanPath    = "/scan-path"
	pathUpload      = "/upload"
	pathGenerateFix = "/generate-fix"
	pathApplyFix    = "/apply-fix"
	pathVerify      = "/verify-vuln"
	pathBrowse      = "/browse"

	headerRequestID = "X-Request-ID"
)

var _ ingest.Scanner = (*Client)(nil)

// Client talks to the audit backend. Every exchange is a single attempt.
type Client struct {
	httpc  *resty.Client
	logger hclog.Logger
}

// New creates a Client for baseURL on top of an existing resty client.
func New(baseURL string, httpc *resty.Client, logger hclog.Logger) *Client {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	httpc.SetBaseURL(strings.TrimRight(baseURL, "/"))
	httpc.SetRetryCount(0)
	httpc.SetHeader("Accept", "application/json")
	return &Client{httpc: httpc, logger: logger}
}

// NewFromConfig creates a Client from the backend and http_client settings.
func NewFromConfig(cfg *config.Config, logger hclog.Logger) *Client {
	return New(cfg.Backend.URL, httpclient.InitializeRestyClient(logger, cfg), logger)
}

type scanPathRequest struct {
	Path string `json:"path"`
}

type scanResponse struct {
	Files *[]findings.AnalyzedFile `json:"files"`
}

type generateFixRequest struct {
	VulnerabilityID string `json:"vulnerability_id"`
	Line            int    `json:"line"`
	Content         string `json:"content"`
}

type applyFixRequest struct {
	FilePath   string `json:"file_path"`
	Line       int    `json:"line"`
	NewContent string `json:"new_content"`
}

// ApplyResult is the backend acknowledgement of an applied fix.
type ApplyResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type verifyRequest struct {
	Content string `json:"content"`
	Type    string `json:"type"`
}

type browseResponse struct {
	Path *string `json:"path"`
}

// ScanPath asks the backend to scan a path it can resolve itself.
func (c *Client) ScanPath(ctx context.Context, path string) ([]findings.AnalyzedFile, error) {
	req := c.request(ctx, errors.OpScan).SetBody(scanPathRequest{Path: path})
	return c.scan(req, http.MethodPost, pathScanPath)
}

// ScanFiles uploads a materialized file set, one multipart "files" part per file.
func (c *Client) ScanFiles(ctx context.Context, files []ingest.SourceFile) ([]findings.AnalyzedFile, error) {
	req := c.request(ctx, errors.OpScan)
	for _, f := range files {
		req.SetMultipartField("files", f.RelPath, "text/plain", bytes.NewReader(f.Content))
	}
	return c.scan(req, http.MethodPost, pathUpload)
}

func (c *Client) scan(req *resty.Request, method, path string) ([]findings.AnalyzedFile, error) {
	var out scanResponse
	if err := c.do(req, errors.OpScan, method, path, &out); err != nil {
		return nil, err
	}
	if out.Files == nil {
		return nil, c.malformed(errors.OpScan, "missing files")
	}
	return *out.Files, nil
}

// GenerateFix requests a fix proposal for one finding.
func (c *Client) GenerateFix(ctx context.Context, finding findings.Finding) (findings.FixProposal, error) {
	req := c.request(ctx, errors.OpGenerateFix).SetBody(generateFixRequest{
		VulnerabilityID: finding.ID,
		Line:            finding.Line,
		Content:         finding.Content,
	})

	var out findings.FixProposal
	if err := c.do(req, errors.OpGenerateFix, http.MethodPost, pathGenerateFix, &out); err != nil {
		return findings.FixProposal{}, err
	}
	if out.FixedSnippet == "" && out.OriginalSnippet == "" {
		return findings.FixProposal{}, c.malformed(errors.OpGenerateFix, "empty proposal")
	}
	return out, nil
}

// ApplyFix writes newContent over the given line of filePath on the backend host.
func (c *Client) ApplyFix(ctx context.Context, filePath string, line int, newContent string) (ApplyResult, error) {
	req := c.request(ctx, errors.OpApplyFix).SetBody(applyFixRequest{
		FilePath:   filePath,
		Line:       line,
		NewContent: newContent,
	})

	var out ApplyResult
	if err := c.do(req, errors.OpApplyFix, http.MethodPost, pathApplyFix, &out); err != nil {
		return ApplyResult{}, err
	}
	if out.Status != "success" {
		msg := out.Message
		if msg == "" {
			msg = fmt.Sprintf("unexpected status %q", out.Status)
		}
		return ApplyResult{}, c.malformed(errors.OpApplyFix, msg)
	}
	return out, nil
}

// Verify asks whether finding is a false positive.
func (c *Client) Verify(ctx context.Context, finding findings.Finding) (findings.VerifyResult, error) {
	req := c.request(ctx, errors.OpVerify).SetBody(verifyRequest{
		Content: finding.Content,
		Type:    finding.Kind,
	})

	var out findings.VerifyResult
	if err := c.do(req, errors.OpVerify, http.MethodPost, pathVerify, &out); err != nil {
		return findings.VerifyResult{}, err
	}
	if out.Confidence < 0 || out.Confidence > 1 {
		return findings.VerifyResult{}, c.malformed(errors.OpVerify, fmt.Sprintf("confidence %v out of range", out.Confidence))
	}
	return out, nil
}

// Browse opens the folder picker on the backend host. An empty path means the
// user dismissed the dialog.
func (c *Client) Browse(ctx context.Context) (string, error) {
	var out browseResponse
	if err := c.do(c.request(ctx, errors.OpBrowse), errors.OpBrowse, http.MethodGet, pathBrowse, &out); err != nil {
		return "", err
	}
	if out.Path == nil {
		return "", c.malformed(errors.OpBrowse, "missing path")
	}
	return *out.Path, nil
}

func (c *Client) request(ctx context.Context, op errors.Op) *resty.Request {
	id := uuid.NewString()
	c.logger.Debug("backend request", "op", op, "request_id", id)
	return c.httpc.R().
		SetContext(ctx).
		SetHeader(headerRequestID, id)
}

// do executes req and decodes a successful JSON body into out.
func (c *Client) do(req *resty.Request, op errors.Op, method, path string, out interface{}) error {
	resp, err := req.Execute(method, path)
	if err != nil {
		c.logger.Error("backend unreachable", "op", op, "error", err)
		return errors.NewOperationError(op, &errors.TransportError{Op: op, Err: err})
	}

	if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		svcErr := &errors.ServiceError{Op: op, StatusCode: resp.StatusCode(), Message: errorMessage(resp.Body())}
		c.logger.Error("backend rejected request", "op", op, "status", resp.StatusCode(), "message", svcErr.Message)
		return errors.NewOperationError(op, svcErr)
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return c.malformed(op, err.Error())
	}
	return nil
}

func (c *Client) malformed(op errors.Op, msg string) error {
	c.logger.Error("malformed backend response", "op", op, "reason", msg)
	return errors.NewOperationError(op, &errors.ServiceError{Op: op, Message: msg})
}

// errorMessage extracts a FastAPI style {"detail": ...} message, falling back to the raw body.
func errorMessage(body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		var detail string
		if len(payload.Detail) > 0 && json.Unmarshal(payload.Detail, &detail) == nil && detail != "" {
			return detail
		}
		if len(payload.Detail) > 0 {
			return string(payload.Detail)
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	if msg == "" {
		msg = "empty response body"
	}
	return msg
}
