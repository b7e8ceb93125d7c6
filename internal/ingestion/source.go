package ingestion

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/wakala/status-reconciler/internal/domain"
)

// maxReportBytes caps how much of a report body is read into memory.
const maxReportBytes = 32 << 20

// HTTPSource downloads the report with a GET request.
type HTTPSource struct {
	URL   string
	Token string
	HTTP  *http.Client
}

func NewHTTPSource(url, token string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPSource{
		URL:   strings.TrimSpace(url),
		Token: strings.TrimSpace(token),
		HTTP:  &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSource) FetchReport(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrReportFetch, err)
	}
	req.Header.Set("Accept", "application/json")
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}

	resp, err := s.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrReportFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := "report download failed"
		if body, err := io.ReadAll(io.LimitReader(resp.Body, 4096)); err == nil {
			if trimmed := strings.TrimSpace(string(body)); trimmed != "" {
				msg = fmt.Sprintf("%s: %s", msg, trimmed)
			}
		}
		return nil, fmt.Errorf("%w: %s (status %d)", domain.ErrReportFetch, msg, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReportBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrReportFetch, err)
	}
	if len(data) > maxReportBytes {
		return nil, fmt.Errorf("%w: report larger than %d bytes", domain.ErrReportFetch, maxReportBytes)
	}
	return data, nil
}

// FileSource reads the report from a local path, e.g. a file dropped by an
// SFTP job.
type FileSource struct {
	Path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (s *FileSource) FetchReport(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrReportFetch, err)
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrReportFetch, err)
	}
	return data, nil
}
