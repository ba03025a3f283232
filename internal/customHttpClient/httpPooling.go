package customHttpClient

import (
	"net/http"
	"sync"

	"github.com/akolanti/filebook/internal/config"
)

var (
	once       sync.Once
	httpClient *http.Client
)

var customTransport = &http.Transport{
	Proxy:               http.ProxyFromEnvironment,
	MaxIdleConns:        config.MaxIdleConns,
	MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
	IdleConnTimeout:     config.IdleConnTimeout,
	ForceAttemptHTTP2:   true,
}

// GetHttpClient returns the pooled client shared by the embedding and chat
// model SDKs. No client timeout is set; callers bound requests with contexts
// so streamed answers are not cut off.
func GetHttpClient() *http.Client {
	once.Do(func() {
		httpClient = &http.Client{Transport: customTransport}
	})
	return httpClient
}
