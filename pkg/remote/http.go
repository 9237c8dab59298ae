package remote

import (
	"bytes"
	"context"
	stderrors "errors"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/carewire/hospital-api/pkg/circuitbreaker"
)

const (
	defaultTimeout = 5 * time.Second
	maxErrorBody   = 4 << 10
)

// HTTPNotifier sends JSON notifications to a single remote service. Every
// request carries a bounded deadline so a hung peer can never stall the
// coordinator indefinitely.
type HTTPNotifier struct {
	baseURL string
	client  *http.Client
	cb      *circuitbreaker.CircuitBreaker
}

type HTTPNotifierConfig struct {
	BaseURL     string
	Timeout     time.Duration
	MaxFailures int
}

func NewHTTPNotifier(cfg HTTPNotifierConfig) *HTTPNotifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &HTTPNotifier{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
		cb: circuitbreaker.New(circuitbreaker.Settings{
			Name:        fmt.Sprintf("notifier:%s", cfg.BaseURL),
			MaxFailures: cfg.MaxFailures,
			Timeout:     30 * time.Second,
		}),
	}
}

func (n *HTTPNotifier) Send(ctx context.Context, method, path string, payload interface{}, bearer string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &Rejected{Status: http.StatusBadRequest, Body: fmt.Sprintf("unencodable payload: %v", err)}
	}

	return n.cb.Execute(func() error {
		return n.send(ctx, method, path, body, bearer)
	})
}

func (n *HTTPNotifier) send(ctx context.Context, method, path string, body []byte, bearer string) error {
	req, err := http.NewRequestWithContext(ctx, method, n.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return &Unreachable{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return &Timeout{Err: err}
		}
		return &Unreachable{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &Rejected{Status: resp.StatusCode, Body: string(respBody)}
}

func isTimeout(err error) bool {
	var timeoutErr interface{ Timeout() bool }
	return stderrors.As(err, &timeoutErr) && timeoutErr.Timeout()
}
