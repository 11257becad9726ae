package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Request is a single exchange issued by a procedural strategy.
type Request struct {
	Method  string
	URL     string
	Referer string
	// Range is sent verbatim as the Range header when set.
	Range           string
	Header          http.Header
	FollowRedirects bool
	// Limit caps how many body bytes are read. Zero discards the body.
	Limit int64
}

// Response is what Do observed.
type Response struct {
	Status int
	Header http.Header
	// URL is the effective URL after any followed redirects.
	URL string
	// Location is the redirect target of a 3xx response, "//" prefixed targets made https.
	Location string
	Body     []byte
}

// Do performs req once without retries.
func (f *Fetcher) Do(ctx context.Context, req Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, nil)
	if err != nil {
		return nil, classify(ctx, err)
	}
	f.browserHeaders(httpReq.Header, req.Referer)
	httpReq.Header.Set("Accept", "*/*")
	if req.Range != "" {
		httpReq.Header.Set("Range", req.Range)
	}
	for k, vs := range req.Header {
		httpReq.Header[k] = vs
	}

	client := f.noRedirect
	if req.FollowRedirects {
		client = f.client
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, classify(ctx, fmt.Errorf("%s %s: %w", method, req.URL, err))
	}
	defer resp.Body.Close()

	out := &Response{
		Status:   resp.StatusCode,
		Header:   resp.Header,
		URL:      resp.Request.URL.String(),
		Location: normalizeLocation(resp.Header.Get("Location")),
	}

	if req.Limit > 0 {
		out.Body, err = io.ReadAll(io.LimitReader(resp.Body, req.Limit))
		if err != nil {
			return nil, classify(ctx, fmt.Errorf("read body: %w", err))
		}
	}

	return out, nil
}

func normalizeLocation(location string) string {
	if strings.HasPrefix(location, "//") {
		return "https:" + location
	}
	return location
}
