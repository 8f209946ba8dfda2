package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	// maxJSONResponseSize caps how much of a backend JSON answer is read.
	maxJSONResponseSize = 16 << 20
	userAgent           = "audiomab/1.0"
)

// doJSON sends a request and decodes a JSON answer into dest.
// Failures are returned already classified as backend error kinds.
func doJSON(ctx context.Context, client *http.Client, method, reqURL string, body, dest any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return classify(ctx, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if err := statusError(resp.StatusCode); err != nil {
		return err
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseSize)).Decode(dest); err != nil {
		if ctx.Err() != nil {
			return classify(ctx, err)
		}
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return nil
}

func getJSON(ctx context.Context, client *http.Client, reqURL string, dest any) error {
	return doJSON(ctx, client, http.MethodGet, reqURL, nil, dest)
}

// statusError maps a non-200 HTTP status to a backend error kind.
func statusError(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: status %d", ErrNotFound, code)
	case code == http.StatusGatewayTimeout || code == http.StatusRequestTimeout:
		return fmt.Errorf("%w: status %d", ErrTimeout, code)
	default:
		return fmt.Errorf("%w: status %d", ErrUnavailable, code)
	}
}

// joinURL appends escaped path segments to a base URL.
func joinURL(base string, segments ...string) string {
	escaped := make([]string, 0, len(segments))
	for _, s := range segments {
		escaped = append(escaped, url.PathEscape(s))
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(escaped, "/")
}

// instanceName returns the host of a base URL for use in backend names.
func instanceName(base string) string {
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return base
	}
	return u.Host
}

// flexFloat decodes numbers that some APIs send as strings.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexFloat(v)
	return nil
}

func (f flexFloat) seconds() int {
	if f < 0 {
		return 0
	}
	return int(f)
}
