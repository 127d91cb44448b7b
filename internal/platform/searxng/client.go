package searxng

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/openscout/scout-backend/internal/observability"
	"github.com/openscout/scout-backend/internal/platform/ctxutil"
	"github.com/openscout/scout-backend/internal/platform/envutil"
	"github.com/openscout/scout-backend/internal/platform/logger"
)

// Result is one organic hit from the search backend.
type Result struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Engine  string `json:"engine,omitempty"`
	Score   float64
}

// Client queries a SearXNG instance over its JSON API.
type Client interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	categories string
	language   string
	httpClient *http.Client
}

func NewClient(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	baseURL := envutil.String("SEARXNG_URL", "")
	if baseURL == "" {
		return nil, fmt.Errorf("missing SEARXNG_URL")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid SEARXNG_URL=%q; expected absolute URL like http://searxng:8080", baseURL)
	}

	timeout := envutil.DurationSeconds("SEARXNG_TIMEOUT_SECONDS", 20*time.Second)

	return &client{
		log:        log.With("service", "SearxngClient"),
		baseURL:    strings.TrimRight(baseURL, "/"),
		categories: envutil.String("SEARXNG_CATEGORIES", "general"),
		language:   envutil.String("SEARXNG_LANGUAGE", ""),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type searchResponse struct {
	Query   string `json:"query"`
	Results []struct {
		URL     string  `json:"url"`
		Title   string  `json:"title"`
		Content string  `json:"content"`
		Engine  string  `json:"engine"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

func (c *client) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query required")
	}
	if maxResults <= 0 {
		maxResults = 10
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	if c.categories != "" {
		params.Set("categories", c.categories)
	}
	if c.language != "" {
		params.Set("language", c.language)
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if metrics := observability.Current(); metrics != nil {
			metrics.ObserveSearchRequest("searxng", "0", time.Since(start))
		}
		return nil, fmt.Errorf("searxng request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if metrics := observability.Current(); metrics != nil {
		metrics.ObserveSearchRequest("searxng", strconv.Itoa(resp.StatusCode), time.Since(start))
	}
	if err != nil {
		return nil, fmt.Errorf("searxng read failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("searxng http status=%d body=%q", resp.StatusCode, truncate(raw, 512))
	}

	var parsed searchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("searxng decode failed: %w", err)
	}

	out := make([]Result, 0, maxResults)
	for _, r := range parsed.Results {
		link := strings.TrimSpace(r.URL)
		if link == "" {
			continue
		}
		out = append(out, Result{
			URL:     link,
			Title:   strings.TrimSpace(r.Title),
			Content: strings.TrimSpace(r.Content),
			Engine:  r.Engine,
			Score:   r.Score,
		})
		if len(out) >= maxResults {
			break
		}
	}

	c.log.Debug("searxng search completed",
		"query", query,
		"results", len(out),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func truncate(raw []byte, n int) string {
	if len(raw) <= n {
		return string(raw)
	}
	return string(raw[:n]) + "..."
}
