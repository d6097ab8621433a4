package http

import (
	"context"
	"net/http"
	"time"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// No overall Timeout: segment downloads of large files may run for hours.
var downloadClient = &http.Client{
	Transport: &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          50,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       30,
		IdleConnTimeout:       120 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 90 * time.Second,
	},
}

// DownloadClient returns the shared client used when Options.Client is nil.
func DownloadClient() *http.Client {
	return downloadClient
}

func (d *Download) newRequest(ctx context.Context, method string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, d.URL, nil)
	if err != nil {
		return nil, err
	}
	if _, ok := d.opts.Headers["User-Agent"]; !ok {
		req.Header.Set("User-Agent", defaultUserAgent)
	}
	for k, v := range d.opts.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}
