package download

import (
	"errors"
	"net/http"
	"time"
)

// UserAgent is sent with every request
var UserAgent = "iadl/dev"

// NewHTTPClient returns the client shared by every worker of a run. There is no
// overall timeout since bodies can take arbitrarily long; stalled connections
// are bounded by the transport timeouts instead.
func NewHTTPClient(maxConns int) *http.Client {
	if maxConns <= 0 {
		maxConns = DefaultMaxConcurrency
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 100
	transport.MaxIdleConnsPerHost = maxConns
	transport.IdleConnTimeout = 90 * time.Second
	transport.ResponseHeaderTimeout = 60 * time.Second

	return &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > 10 {
				return errors.New("too many redirects")
			}
			return nil
		},
	}
}

func setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", UserAgent)
}
