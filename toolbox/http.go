package toolbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/elnormous/contenttype"
	"github.com/ggoodman/mcp-stdio-go/mcpservice"
	"github.com/ggoodman/mcp-stdio-go/sessions"
)

const (
	defaultHTTPTimeout  = 15 * time.Second
	defaultMaxBodyBytes = 1 << 20
)

type httpGetArgs struct {
	URL string `json:"url" jsonschema:"description=Absolute http or https URL"`
}

type httpGetResult struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	// Body is the decoded JSON document for JSON responses and text otherwise.
	Body      any  `json:"body"`
	Truncated bool `json:"truncated,omitempty"`
}

// HTTPGet fetches a URL and returns its status and body.
func HTTPGet(cfg HTTPConfig) mcpservice.StaticTool {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	client := &http.Client{Timeout: timeout}

	return mcpservice.NewTool[httpGetArgs]("http_get", func(ctx context.Context, s sessions.Session, a httpGetArgs) (any, error) {
		u, err := url.Parse(a.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, &mcpservice.ArgumentError{Tool: "http_get", Err: fmt.Errorf("url must be an absolute http or https URL")}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json, text/*;q=0.9, */*;q=0.5")

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("GET %s: %w", u.Redacted(), err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody+1))
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		res := httpGetResult{
			Status:      resp.StatusCode,
			ContentType: resp.Header.Get("Content-Type"),
		}
		if int64(len(body)) > maxBody {
			body = body[:maxBody]
			res.Truncated = true
		}

		if !res.Truncated && isJSON(resp.Header) && json.Valid(body) {
			res.Body = json.RawMessage(body)
		} else {
			res.Body = string(body)
		}
		return res, nil
	}, mcpservice.WithToolDescription("Fetch a URL with HTTP GET; JSON bodies are returned decoded"))
}

// isJSON reports whether the header names application/json or a +json
// structured syntax suffix.
func isJSON(h http.Header) bool {
	if h.Get("Content-Type") == "" {
		return false
	}
	// contenttype parses from a request; wrap the response header in one.
	mt, err := contenttype.GetMediaType(&http.Request{Header: h})
	if err != nil {
		return false
	}
	return mt.Type == "application" && (mt.Subtype == "json" || strings.HasSuffix(mt.Subtype, "+json"))
}
