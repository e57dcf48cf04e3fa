// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ops

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/patent-chooser/internal/httputil"
	"github.com/pdiddy/patent-chooser/internal/metrics"
	"github.com/pdiddy/patent-chooser/pkg/types"
)

// Normalizer rewrites publication numbers into the provider's canonical
// form through the normalization service.
type Normalizer struct {
	HTTP      *http.Client
	BaseURL   string
	UserAgent string
	Metrics   *metrics.Metrics
}

// NewNormalizer builds a normalizer client.
func NewNormalizer(cfg types.NormalizerConfig, hc types.HTTPConfig, m *metrics.Metrics) *Normalizer {
	timeout := hc.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Normalizer{
		HTTP:      &http.Client{Timeout: timeout},
		BaseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		UserAgent: hc.UserAgent,
		Metrics:   m,
	}
}

// Normalize sends the numbers comma-joined and returns the normalized list
// in the same order.
func (n *Normalizer) Normalize(ctx context.Context, numbers []string) ([]string, error) {
	if len(numbers) == 0 {
		return nil, nil
	}
	body := []byte(strings.Join(numbers, ","))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.BaseURL+"/api/util/numbers/normalize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Accept", "application/json")
	if n.UserAgent != "" {
		req.Header.Set("User-Agent", n.UserAgent)
	}

	began := time.Now()
	resp, err := httputil.DoWithRetry(ctx, n.HTTP, req, 0)
	if err != nil {
		n.Metrics.ObserveProvider("normalizer", "error", time.Since(began).Seconds())
		return nil, fmt.Errorf("normalization request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		n.Metrics.ObserveProvider("normalizer", "error", time.Since(began).Seconds())
		return nil, fmt.Errorf("normalization service returned HTTP %d", resp.StatusCode)
	}

	var out normalizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		n.Metrics.ObserveProvider("normalizer", "error", time.Since(began).Seconds())
		return nil, fmt.Errorf("parsing normalization response: %w", err)
	}
	n.Metrics.ObserveProvider("normalizer", "ok", time.Since(began).Seconds())
	return out.Normalized.All, nil
}

type normalizeResponse struct {
	Normalized struct {
		All []string `json:"all"`
	} `json:"numbers-normalized"`
}
