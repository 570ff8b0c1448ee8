package multilogin

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
)

// RelayRequest describes a committed local mutation to replicate downstream.
// Body is the original request body as received, Authorization the caller's
// bearer header, both passed through verbatim.
type RelayRequest struct {
	Method        string
	Path          string
	Body          []byte
	Authorization string
	Target        string
}

// RelayResult carries the downstream response body back to the caller.
type RelayResult struct {
	StatusCode int
	Body       []byte
}

// Relay replicates a directory mutation to a downstream directory. The local
// write is committed before Forward runs and is never rolled back.
type Relay interface {
	Forward(req *RelayRequest) (*RelayResult, error)
}

// ForwardingRelay is the HTTP implementation of Relay.
type ForwardingRelay struct {
	defaultTarget string
	httpClient    *http.Client
	logger        Logger
}

// Verify interface compliance
var _ Relay = (*ForwardingRelay)(nil)

// RelayOption configures a ForwardingRelay
type RelayOption func(*ForwardingRelay)

// WithRelayTimeout bounds each downstream call
func WithRelayTimeout(timeout time.Duration) RelayOption {
	return func(r *ForwardingRelay) {
		if timeout > 0 {
			r.httpClient.Timeout = timeout
		}
	}
}

// WithRelayHTTPClient swaps the underlying client
func WithRelayHTTPClient(client *http.Client) RelayOption {
	return func(r *ForwardingRelay) {
		if client != nil {
			r.httpClient = client
		}
	}
}

// WithRelayLogger overrides the default logger
func WithRelayLogger(logger Logger) RelayOption {
	return func(r *ForwardingRelay) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewForwardingRelay creates a relay with defaultTarget as the downstream
// base URL. A per-request target overrides it.
func NewForwardingRelay(defaultTarget string, opts ...RelayOption) *ForwardingRelay {
	r := &ForwardingRelay{
		defaultTarget: defaultTarget,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		logger:        defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// ShouldForward reports whether a request would be relayed at all.
func (r *ForwardingRelay) ShouldForward(req *RelayRequest) bool {
	return r.resolveTarget(req) != ""
}

// Forward sends the mutation to the downstream directory with the same verb
// and the caller's bearer token. The relay deliberately uses its own timeout
// rather than the caller's context so a client disconnect cannot orphan a
// half-applied replication.
func (r *ForwardingRelay) Forward(req *RelayRequest) (*RelayResult, error) {
	target := r.resolveTarget(req)
	if target == "" {
		return nil, errors.New("no relay target configured", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest)
	}

	endpoint, err := joinTarget(target, req.Path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "invalid relay target").
			WithCode(errors.CodeBadRequest)
	}

	httpReq, err := http.NewRequest(req.Method, endpoint, bytes.NewReader(req.Body))
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to build relay request")
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if req.Authorization != "" {
		httpReq.Header.Set("Authorization", req.Authorization)
	}

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		r.logger.Error("relay to %s failed: %v", endpoint, err)
		return nil, upstreamFailure(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		r.logger.Error("relay to %s returned unreadable body: %v", endpoint, err)
		return nil, upstreamFailure(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		r.logger.Error("relay to %s returned status %d", endpoint, resp.StatusCode)
		return &RelayResult{StatusCode: resp.StatusCode, Body: body}, sentinelError(ErrUpstreamFailure).
			WithMetadata(map[string]any{"status": resp.StatusCode})
	}

	return &RelayResult{StatusCode: resp.StatusCode, Body: body}, nil
}

func upstreamFailure(cause error) error {
	return sentinelError(ErrUpstreamFailure).WithMetadata(map[string]any{
		"cause": cause.Error(),
	})
}

func (r *ForwardingRelay) resolveTarget(req *RelayRequest) string {
	if req != nil && req.Target != "" {
		return req.Target
	}
	return r.defaultTarget
}

func joinTarget(target, path string) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", errors.New("relay target must be an absolute URL", errors.CategoryBadInput)
	}
	u.Path = strings.TrimRight(u.Path, "/") + path
	return u.String(), nil
}
