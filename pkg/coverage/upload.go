package coverage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gh-download/ghpipe/pkg/logger"
	"github.com/go-resty/resty/v2"
)

var uploadLog = logger.New("coverage:upload")

// ErrMissingToken is returned when an upload is attempted without a token.
var ErrMissingToken = errors.New("coverage token is not set")

// Report is a coverage artifact produced by one matrix cell.
type Report struct {
	Path string
	Data []byte
}

// ReadReport loads the coverage artifact at path.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read coverage report: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("coverage report %s is empty", path)
	}
	return &Report{Path: path, Data: data}, nil
}

// UploadMeta identifies the build a report belongs to.
type UploadMeta struct {
	Commit string
	Branch string
	Build  string
	Flags  []string
}

// Uploader transmits a coverage report to an aggregation service.
type Uploader interface {
	Upload(ctx context.Context, report *Report, meta UploadMeta, token string) error
}

// CodecovUploader submits reports to Codecov's upload endpoint. It makes a
// single attempt; failures are reported, never retried.
type CodecovUploader struct {
	client *resty.Client
}

// NewCodecovUploader creates an uploader for the service at endpoint.
func NewCodecovUploader(endpoint string) *CodecovUploader {
	client := resty.New().
		SetBaseURL(strings.TrimRight(endpoint, "/")).
		SetRetryCount(0).
		SetHeader("Accept", "text/plain")
	return &CodecovUploader{client: client}
}

// Upload posts the report. The token is sent as an Authorization header and
// never logged.
func (u *CodecovUploader) Upload(ctx context.Context, report *Report, meta UploadMeta, token string) error {
	if token == "" {
		return ErrMissingToken
	}
	if report == nil || len(report.Data) == 0 {
		return errors.New("no coverage data to upload")
	}

	uploadLog.Printf("Uploading %d bytes from %s (commit=%s, branch=%s, build=%s)",
		len(report.Data), report.Path, meta.Commit, meta.Branch, meta.Build)

	params := map[string]string{
		"package": "ghpipe",
	}
	if meta.Commit != "" {
		params["commit"] = meta.Commit
	}
	if meta.Branch != "" {
		params["branch"] = meta.Branch
	}
	if meta.Build != "" {
		params["build"] = meta.Build
	}
	if len(meta.Flags) > 0 {
		params["flags"] = strings.Join(meta.Flags, ",")
	}

	body := make([]byte, 0, len(report.Data)+len("\n<<<<<< EOF\n"))
	body = append(body, report.Data...)
	body = append(body, "\n<<<<<< EOF\n"...)

	resp, err := u.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "token "+token).
		SetHeader("Content-Type", "text/plain").
		SetQueryParams(params).
		SetBody(body).
		Post("/upload/v2")
	if err != nil {
		return fmt.Errorf("coverage upload request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("coverage service returned %s: %s", resp.Status(), strings.TrimSpace(truncate(resp.String(), 200)))
	}

	uploadLog.Printf("Coverage upload accepted: %s", resp.Status())
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
