package resolver

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// openHTTPStream issues a GET for an audio URL and hands back the open body.
func openHTTPStream(ctx context.Context, client *http.Client, streamURL, source string) (*AudioStream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, classify(ctx, err)
	}

	if err := statusError(resp.StatusCode); err != nil {
		_ = resp.Body.Close()
		return nil, err
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = defaultStreamMime
	}

	return &AudioStream{
		Body:          resp.Body,
		ContentType:   contentType,
		ContentLength: resp.ContentLength,
		Source:        source,
	}, nil
}

// cancelOnClose releases a context when the wrapped body is closed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
