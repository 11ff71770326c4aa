package forward

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"prd_gateway/internal/adsb"
)

// HTTPSink POSTs each aircraft state as a JSON object to a fixed endpoint,
// the /adsb path of the configured downstream host.
type HTTPSink struct {
	endpoint string
	client   *http.Client
}

// NewHTTPSink builds a sink POSTing to http://host:port/adsb.
func NewHTTPSink(host string, port int) *HTTPSink {
	return &HTTPSink{
		endpoint: fmt.Sprintf("http://%s:%d/adsb", host, port),
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// NewHTTPSinkURL builds a sink POSTing to an explicit endpoint URL.
func NewHTTPSinkURL(endpoint string) *HTTPSink {
	return &HTTPSink{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *HTTPSink) Name() string { return "http" }

// Deliver POSTs the state. Any non-2xx response is an error; the body is
// drained so the client can reuse the connection.
func (s *HTTPSink) Deliver(ctx context.Context, st adsb.AircraftState) error {
	body, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", s.endpoint, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("post %s: status %s", s.endpoint, resp.Status)
	}
	return nil
}
