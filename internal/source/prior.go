package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"incentiveScope/internal/ledger"
	"incentiveScope/internal/storage"
)

// ArtifactConfig locates previously published reward artifacts over HTTP.
type ArtifactConfig struct {
	BaseURL      string
	Network      string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// ArtifactFetcher downloads the reward artifact of a past week.
type ArtifactFetcher struct {
	cfg    ArtifactConfig
	client *http.Client
	logger *zap.Logger
}

// NewArtifactFetcher builds a fetcher. Retries are always bounded.
func NewArtifactFetcher(cfg ArtifactConfig, logger *zap.Logger) (*ArtifactFetcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("artifact base url is required")
	}
	if strings.TrimSpace(cfg.Network) == "" {
		return nil, fmt.Errorf("artifact network is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}
	return &ArtifactFetcher{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

// URL returns where the artifact of week is published.
func (f *ArtifactFetcher) URL(week uint64) string {
	return strings.TrimRight(f.cfg.BaseURL, "/") + "/" + storage.ArtifactName(f.cfg.Network, week)
}

// Fetch downloads and decodes the artifact of week. A missing or empty
// artifact is retried until the retry budget runs out.
func (f *ArtifactFetcher) Fetch(ctx context.Context, week uint64) (ledger.Ledger, error) {
	url := f.URL(week)
	var out ledger.Ledger
	err := withRetry(ctx, f.cfg.MaxRetries, f.cfg.RetryBackoff, func(ctx context.Context) error {
		data, err := f.get(ctx, url)
		if err == nil {
			out, err = ledger.Decode(data)
		}
		if err == nil && len(out) == 0 {
			err = fmt.Errorf("artifact is empty")
		}
		if err != nil {
			f.logger.Warn("prior artifact fetch failed", zap.String("url", url), zap.Error(err))
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch artifact week %d: %w", week, err)
	}
	f.logger.Info("prior artifact loaded", zap.String("url", url), zap.Int("holders", len(out)))
	return out, nil
}

func (f *ArtifactFetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("artifact status %d", resp.StatusCode)
		// Not published yet shows up as 404 and is worth waiting for.
		if resp.StatusCode != http.StatusNotFound && !retryableStatus(resp.StatusCode) {
			return nil, permanent(err)
		}
		return nil, err
	}
	return data, nil
}
