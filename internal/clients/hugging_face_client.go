package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/spacesedan/complaintflow/config"
	"github.com/spacesedan/complaintflow/internal/models"
	"golang.org/x/oauth2"
)

// Oracle is a best-effort remote model. ok is false when the model produced no
// usable result; err is only set for timeout, connectivity or service failures.
type Oracle interface {
	Invoke(ctx context.Context, model string, payload any) (body json.RawMessage, ok bool, err error)
}

// OracleObserver receives one outcome per Invoke call.
type OracleObserver interface {
	ObserveOracle(model, outcome string, elapsed time.Duration)
}

const (
	OutcomeSuccess      = "success"
	OutcomeNoResult     = "no_result"
	OutcomeTimeout      = "timeout"
	OutcomeConnectivity = "connectivity"
	OutcomeError        = "error"
)

type HuggingFaceClient struct {
	Client         *http.Client
	BaseURL        string
	MaxRetries     int
	InitialBackoff time.Duration
	Observer       OracleObserver
}

func NewHuggingFaceClient(cfg config.HuggingFaceConfig) *HuggingFaceClient {
	var transport http.RoundTripper = http.DefaultTransport
	if cfg.APIToken != "" {
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.APIToken}),
			Base:   http.DefaultTransport,
		}
	} else {
		slog.Warn("[HuggingFaceClient] No API token configured, requests will be anonymous")
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = MAX_RETRIES
	}
	backoff := cfg.InitialBackoff
	if backoff <= 0 {
		backoff = INITIAL_BACKOFF
	}

	slog.Info("[HuggingFaceClient] Initializing Client",
		slog.String("base_url", cfg.BaseURL),
		slog.Duration("timeout", cfg.Timeout),
		slog.Int("max_retries", maxRetries))

	return &HuggingFaceClient{
		Client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		BaseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		MaxRetries:     maxRetries,
		InitialBackoff: backoff,
	}
}

func (h *HuggingFaceClient) Invoke(ctx context.Context, model string, payload any) (json.RawMessage, bool, error) {
	start := time.Now()
	body, ok, err := h.invoke(ctx, model, payload)
	if h.Observer != nil {
		h.Observer.ObserveOracle(model, outcomeOf(ok, err), time.Since(start))
	}
	return body, ok, err
}

func (h *HuggingFaceClient) invoke(ctx context.Context, model string, payload any) (json.RawMessage, bool, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		slog.Error("[HuggingFaceClient] Failed to marshal payload",
			slog.String("model", model),
			slog.String("error", err.Error()))
		return nil, false, models.NewError(models.KindService, serviceMessage, fmt.Errorf("failed to marshal payload: %w", err))
	}

	endpoint := h.endpoint(model)
	var lastTimeout error

	for attempt := 0; attempt < h.MaxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, false, models.NewError(models.KindService, serviceMessage, fmt.Errorf("failed to build request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", USER_AGENT)

		resp, err := h.Client.Do(req)
		if err != nil {
			switch {
			case ctx.Err() != nil:
				return nil, false, models.NewError(models.KindService, serviceMessage, ctx.Err())
			case isTimeout(err):
				lastTimeout = err
				slog.Warn("[HuggingFaceClient] Request timed out, will retry",
					slog.String("model", model),
					slog.Int("attempt", attempt+1))
				if err := h.wait(ctx, attempt); err != nil {
					return nil, false, models.NewError(models.KindService, serviceMessage, err)
				}
				continue
			case isConnectionError(err):
				slog.Error("[HuggingFaceClient] Connection failed",
					slog.String("model", model),
					slog.String("error", err.Error()))
				return nil, false, models.NewError(models.KindConnectivity, connectivityMessage, err)
			default:
				return nil, false, models.NewError(models.KindService, serviceMessage, err)
			}
		}

		switch resp.StatusCode {
		case http.StatusOK:
			respBody, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				return nil, false, models.NewError(models.KindService, serviceMessage, fmt.Errorf("failed to read response: %w", err))
			}
			slog.Debug("[HuggingFaceClient] Request successful",
				slog.String("model", model),
				getPreview(respBody))
			return json.RawMessage(respBody), true, nil
		case http.StatusServiceUnavailable:
			resp.Body.Close()
			lastTimeout = nil
			slog.Warn("[HuggingFaceClient] Model loading, will retry",
				slog.String("model", model),
				slog.Int("attempt", attempt+1),
				slog.String("error", errMsg(nil, resp)))
			if err := h.wait(ctx, attempt); err != nil {
				return nil, false, models.NewError(models.KindService, serviceMessage, err)
			}
		default:
			resp.Body.Close()
			slog.Warn("[HuggingFaceClient] Request returned no result",
				slog.String("model", model),
				slog.String("error", errMsg(nil, resp)))
			return nil, false, nil
		}
	}

	if lastTimeout != nil {
		slog.Error("[HuggingFaceClient] Request timed out after retries",
			slog.String("model", model),
			slog.Int("attempts", h.MaxRetries))
		return nil, false, models.NewError(models.KindTimeout, timeoutMessage, lastTimeout)
	}

	slog.Warn("[HuggingFaceClient] Retries exhausted without a result",
		slog.String("model", model))
	return nil, false, nil
}

// HealthCheck reports whether the model endpoint answers below 500.
func (h *HuggingFaceClient) HealthCheck(ctx context.Context, model string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.endpoint(model), nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", USER_AGENT)

	resp, err := h.Client.Do(req)
	if err != nil {
		slog.Warn("[HuggingFaceClient] Health check failed",
			slog.String("model", model),
			slog.String("error", err.Error()))
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}

func (h *HuggingFaceClient) endpoint(model string) string {
	return h.BaseURL + "/" + model
}

// wait sleeps for the backoff of the given attempt. The final attempt does
// not sleep.
func (h *HuggingFaceClient) wait(ctx context.Context, attempt int) error {
	if attempt >= h.MaxRetries-1 {
		return nil
	}
	timer := time.NewTimer(h.InitialBackoff << attempt)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func outcomeOf(ok bool, err error) string {
	switch {
	case ok:
		return OutcomeSuccess
	case err == nil:
		return OutcomeNoResult
	}
	switch models.KindOf(err) {
	case models.KindTimeout:
		return OutcomeTimeout
	case models.KindConnectivity:
		return OutcomeConnectivity
	default:
		return OutcomeError
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "EOF")
}

func getPreview(respBody []byte) slog.Attr {
	raw := string(respBody)
	if len(raw) > 50 {
		raw = raw[:50]
	}
	return slog.String("raw_response", raw)
}

func errMsg(err error, resp *http.Response) string {
	if err != nil {
		return err.Error()
	}
	if resp != nil {
		return fmt.Sprintf("status code %d", resp.StatusCode)
	}
	return "unknown error"
}
