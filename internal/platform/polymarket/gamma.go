// Package polymarket holds the REST clients for the exchange's public APIs.
package polymarket

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

	"golang.org/x/time/rate"

	"github.com/parityarb/paritybot/internal/domain"
)

// shortTermTag is the Gamma tag ID for 15-minute crypto up/down events.
const shortTermTag = "102467"

// eventSlugPrefixes maps a coin symbol to the slug prefix of its short-horizon
// up/down event series.
var eventSlugPrefixes = map[string]string{
	"BTC": "btc-updown-15m-",
	"ETH": "eth-updown-15m-",
	"SOL": "sol-updown-15m-",
	"XRP": "xrp-updown-15m-",
}

// GammaClient is the REST client for the Gamma API, which provides market
// discovery and metadata. Requests share a client-side rate limiter so market
// refresh loops cannot hammer the endpoint.
type GammaClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

var _ domain.MarketCatalog = (*GammaClient)(nil)

// NewGammaClient creates a Gamma API client.
//
// baseURL is the Gamma API root, e.g. "https://gamma-api.polymarket.com".
func NewGammaClient(baseURL string) *GammaClient {
	return &GammaClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(5), 10),
	}
}

// GetMarket returns a single market by its catalog ID.
func (g *GammaClient) GetMarket(ctx context.Context, id string) (domain.Market, error) {
	body, err := g.doGet(ctx, "/markets/"+url.PathEscape(id))
	if err != nil {
		return domain.Market{}, fmt.Errorf("polymarket/gamma: get market %s: %w", id, err)
	}

	var apiMarket APIMarket
	if err := json.Unmarshal(body, &apiMarket); err != nil {
		return domain.Market{}, fmt.Errorf("polymarket/gamma: decode market: %w", err)
	}
	return apiMarket.ToDomainMarket(), nil
}

// GetMarketBySlug returns a single market looked up by its URL slug.
func (g *GammaClient) GetMarketBySlug(ctx context.Context, slug string) (domain.Market, error) {
	params := url.Values{}
	params.Set("slug", slug)

	body, err := g.doGet(ctx, "/markets?"+params.Encode())
	if err != nil {
		return domain.Market{}, fmt.Errorf("polymarket/gamma: get market by slug %s: %w", slug, err)
	}

	var apiMarkets []APIMarket
	if err := json.Unmarshal(body, &apiMarkets); err != nil {
		return domain.Market{}, fmt.Errorf("polymarket/gamma: decode markets: %w", err)
	}
	if len(apiMarkets) == 0 {
		return domain.Market{}, fmt.Errorf("polymarket/gamma: slug=%s: %w", slug, domain.ErrNotFound)
	}
	return apiMarkets[0].ToDomainMarket(), nil
}

// CurrentShortTermMarket returns the live short-horizon up/down market for
// coin. Events on the short-term tag arrive newest first; the first
// unexpired event whose slug matches the coin's series prefix carries the
// current market embedded as markets[0].
func (g *GammaClient) CurrentShortTermMarket(ctx context.Context, coin string) (domain.Market, error) {
	prefix, ok := eventSlugPrefixes[strings.ToUpper(coin)]
	if !ok {
		return domain.Market{}, fmt.Errorf("polymarket/gamma: unknown coin %q: %w", coin, domain.ErrNotFound)
	}

	events, err := g.ListEvents(ctx, shortTermTag, 20, 0)
	if err != nil {
		return domain.Market{}, err
	}

	now := time.Now().UTC()
	for i := range events {
		ev := &events[i]
		if !strings.HasPrefix(ev.Slug, prefix) {
			continue
		}
		if end, err := time.Parse(time.RFC3339, ev.EndDate); err == nil && end.Before(now) {
			continue
		}
		if len(ev.Markets) == 0 {
			continue
		}
		m := ev.Markets[0].ToDomainMarket()
		if m.Slug == "" {
			m.Slug = ev.Slug
		}
		return m, nil
	}

	return domain.Market{}, fmt.Errorf("polymarket/gamma: no live %s market: %w", coin, domain.ErrNotFound)
}

// ListEvents returns a page of open events, newest first, optionally filtered
// by Gamma tag ID.
func (g *GammaClient) ListEvents(ctx context.Context, tagID string, limit, offset int) ([]APIEvent, error) {
	params := url.Values{}
	params.Set("order", "id")
	params.Set("ascending", "false")
	params.Set("closed", "false")
	if tagID != "" {
		params.Set("tag_id", tagID)
	}
	params.Set("limit", strconv.Itoa(limit))
	if offset > 0 {
		params.Set("offset", strconv.Itoa(offset))
	}

	body, err := g.doGet(ctx, "/events?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: list events: %w", err)
	}

	var events []APIEvent
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("polymarket/gamma: decode events: %w", err)
	}
	return events, nil
}

// doGet sends an unauthenticated GET request to the Gamma API, honoring the
// client-side rate limiter.
func (g *GammaClient) doGet(ctx context.Context, path string) ([]byte, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
