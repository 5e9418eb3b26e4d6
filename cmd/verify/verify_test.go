package verify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/scanio-audit/internal/auditclient"
	"github.com/scan-io-git/scanio-audit/pkg/shared/errors"
)

func TestValidateVerifyArgs(t *testing.T) {
	snippet := filepath.Join(t.TempDir(), "snippet.txt")
	require.NoError(t, os.WriteFile(snippet, []byte("password = 'x'\n"), 0o644))

	tests := []struct {
		name    string
		options RunOptions
		args    []string
		wantErr string
	}{
		{
			// valid: scanio-audit verify --type "SQL Injection" --content "..."
			name:    "Valid inline content",
			options: RunOptions{Format: "human", Kind: "SQL Injection", Content: "q = 1"},
		},
		{
			name:    "Valid content file",
			options: RunOptions{Format: "json", Kind: "Hardcoded Secret", ContentFile: snippet},
		},
		{
			name:    "Unknown format",
			options: RunOptions{Format: "sarif", Kind: "x", Content: "y"},
			wantErr: `unsupported output format "sarif", expected one of: human, json, yaml`,
		},
		{
			name:    "Positional argument",
			options: RunOptions{Format: "human", Kind: "x", Content: "y"},
			args:    []string{"extra"},
			wantErr: "the verify command does not take positional arguments",
		},
		{
			name:    "Missing type",
			options: RunOptions{Format: "human", Content: "y"},
			wantErr: "the 'type' flag must be specified",
		},
		{
			name:    "Both contents",
			options: RunOptions{Format: "human", Kind: "x", Content: "y", ContentFile: snippet},
			wantErr: "you cannot use the 'content' and 'content-file' flags at the same time",
		},
		{
			name:    "No content",
			options: RunOptions{Format: "human", Kind: "x"},
			wantErr: "either the 'content' or the 'content-file' flag must be specified",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateVerifyArgs(&tt.options, tt.args)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidateVerifyArgsMissingContentFile(t *testing.T) {
	opts := RunOptions{Format: "human", Kind: "x", ContentFile: filepath.Join(t.TempDir(), "missing.txt")}
	err := validateVerifyArgs(&opts, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid content file")
}

func TestRunVerify(t *testing.T) {
	snippet := filepath.Join(t.TempDir(), "snippet.txt")
	require.NoError(t, os.WriteFile(snippet, []byte("password = 'x'\n"), 0o644))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/verify-vuln", r.URL.Path)
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "password = 'x'", req["content"])
		assert.Equal(t, "Hardcoded Secret", req["type"])
		io.WriteString(w, `{"is_false_positive":true,"confidence":0.85,"reasoning":"test fixture"}`)
	}))
	defer srv.Close()

	opts := &RunOptions{Format: "human", Kind: "Hardcoded Secret", ContentFile: snippet}
	report, err := runVerify(context.Background(), auditclient.New(srv.URL, resty.New(), nil), opts, io.Discard, hclog.NewNullLogger())
	require.NoError(t, err)
	assert.Equal(t, "Hardcoded Secret", report.Finding.Kind)
	assert.True(t, report.Result.IsFalsePositive)
	assert.Equal(t, "test fixture", report.Result.Reasoning)
}

func TestRunVerifyBackendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, `{"detail":"model unavailable"}`)
	}))
	defer srv.Close()

	opts := &RunOptions{Format: "human", Kind: "SQL Injection", Content: "q = 1"}
	_, err := runVerify(context.Background(), auditclient.New(srv.URL, resty.New(), nil), opts, io.Discard, hclog.NewNullLogger())
	assert.True(t, errors.IsOp(err, errors.OpVerify))
	assert.EqualError(t, err, "verify failed: verify: service responded 502: model unavailable")
}
