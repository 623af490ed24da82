package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// HTTPSigner asks an external signing service for a time-limited URL. Every
// call is bounded by the client timeout and the request context; failures
// come back as ErrUnavailable so callers know a retry may succeed.
type HTTPSigner struct {
	signURL string
	client  *http.Client
	limiter *rate.Limiter
}

func NewHTTPSigner(signURL string, timeout time.Duration) *HTTPSigner {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSigner{
		signURL: signURL,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 20),
	}
}

type signRequest struct {
	VideoID string `json:"video_id"`
	Locator string `json:"locator"`
}

type signResponse struct {
	URL string `json:"url"`
}

func (h *HTTPSigner) Resolve(ctx context.Context, videoID, locator string) (string, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	payload, err := json.Marshal(signRequest{VideoID: videoID, Locator: locator})
	if err != nil {
		return "", fmt.Errorf("marshal sign request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.signURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create sign request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: signer returned status %d", ErrUnavailable, resp.StatusCode)
	}

	var out signResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode sign response: %w", err)
	}
	if out.URL == "" {
		return "", fmt.Errorf("%w: signer returned empty url", ErrUnavailable)
	}
	return out.URL, nil
}
