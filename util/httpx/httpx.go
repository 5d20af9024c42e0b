package httpx

import (
	"net"
	"net/http"
	"time"
)

var defaultClient = &http.Client{
	Timeout: 30 * time.Second,
	Transport: &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxConnsPerHost:     100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	},
}

func Client() *http.Client { return defaultClient }

// StreamingClient has no overall timeout; used for SSE relays where the
// response body stays open for the duration of the stream.
var streamingClient = &http.Client{
	Transport: defaultClient.Transport,
}

func StreamingClient() *http.Client { return streamingClient }
