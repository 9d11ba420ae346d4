package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/eko/gocache/lib/v4/cache"
	ristretto_store "github.com/eko/gocache/store/ristretto/v4"
	"github.com/getsentry/sentry-go"

	"stylistapi/models"
)

const (
	SearchNumResults  = 10
	ResultsPerKeyword = 3
)

// SearchProvider is the web-search collaborator contract.
type SearchProvider interface {
	Search(ctx context.Context, query string, maxResults int, includeImages bool) (*ProviderResponse, error)
}

type ProviderResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

type ProviderResponse struct {
	Results []ProviderResult `json:"results"`
	Images  []string         `json:"images"`
}

// TavilyClient talks to the Tavily search REST API.
type TavilyClient struct {
	APIKey  string
	BaseURL string
	client  *http.Client
}

func NewTavilyClient() *TavilyClient {
	return &TavilyClient{
		APIKey:  GetEnv("TAVILY_API_KEY", ""),
		BaseURL: "https://api.tavily.com",
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (t *TavilyClient) Search(ctx context.Context, query string, maxResults int, includeImages bool) (*ProviderResponse, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"api_key":        t.APIKey,
		"query":          query,
		"search_depth":   "basic",
		"max_results":    maxResults,
		"include_images": includeImages,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", t.BaseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily returned status %d: %s", resp.StatusCode, string(body))
	}
	var response ProviderResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("error parsing tavily response: %v", err)
	}
	return &response, nil
}

// SearchService merges, dedups and caches garment search results. The cache
// key is the exact (keyword, requested-count) pair; entries live for the
// process lifetime unless ClearCache is called.
type SearchService struct {
	provider SearchProvider
	// Fetch downloads one image url; swapped out in tests
	Fetch     func(url string) *models.ImageData
	cache     *cache.Cache[[]models.SearchResult]
	ristretto *ristretto.Cache
}

func NewSearchService(provider SearchProvider) (*SearchService, error) {
	ristrettoCache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e6,
		MaxCost:     1 << 26,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ristretto cache: %w", err)
	}
	ristrettoStore := ristretto_store.NewRistretto(ristrettoCache)
	return &SearchService{
		provider:  provider,
		Fetch:     FetchImage,
		cache:     cache.New[[]models.SearchResult](ristrettoStore),
		ristretto: ristrettoCache,
	}, nil
}

func searchCacheKey(keyword string, numResults int) string {
	return fmt.Sprintf("%s:%d", keyword, numResults)
}

// Search returns garment results for one keyword, served from cache when the
// same (keyword, count) pair was queried before. A non-positive count falls
// back to SearchNumResults. Provider failures degrade to an empty, uncached
// result list.
func (s *SearchService) Search(ctx context.Context, keyword string, numResults int) []models.SearchResult {
	if numResults <= 0 {
		numResults = SearchNumResults
	}
	cacheKey := searchCacheKey(keyword, numResults)
	if cached, err := s.cache.Get(ctx, cacheKey); err == nil {
		fmt.Printf("[Search] Returning cached results for: %s\n", keyword)
		return cached
	}

	// shopping-related terms improve result quality a lot
	searchQuery := keyword + " buy online shop"
	response, err := s.provider.Search(ctx, searchQuery, numResults, true)
	if err != nil {
		fmt.Printf("[Search] Error searching for garments %q: %v\n", keyword, err)
		sentry.CaptureException(fmt.Errorf("[Search] error searching for garments %q: %v", keyword, err))
		return []models.SearchResult{}
	}

	results := make([]models.SearchResult, 0, len(response.Results))
	for _, r := range response.Results {
		results = append(results, models.SearchResult{
			Title:     r.Title,
			SourceURL: r.URL,
			Snippet:   r.Content,
			Price:     ExtractPrice(r.Content),
		})
	}
	// attach provider image results positionally; extra images become
	// standalone results with no source url
	for i, imageURL := range response.Images {
		if i < len(results) {
			results[i].ImageURL = imageURL
		} else {
			results = append(results, models.SearchResult{
				Title:    fmt.Sprintf("Fashion Item %d", i+1),
				ImageURL: imageURL,
			})
		}
	}

	if err := s.cache.Set(ctx, cacheKey, results); err != nil {
		fmt.Printf("[Search] Failed to cache results for %q: %v\n", keyword, err)
	}
	// ristretto admits writes asynchronously; flush so the next identical
	// query is served from cache
	s.ristretto.Wait()
	fmt.Printf("[Search] Found %d results for: %s\n", len(results), keyword)
	return results
}

// SearchMany issues one query per keyword, in order, and merges the results
// preserving first-seen order. Results sharing a non-empty source URL are
// deduplicated; results without a source URL are always kept.
func (s *SearchService) SearchMany(ctx context.Context, keywords []string, perKeyword int) []models.SearchResult {
	var all []models.SearchResult
	seenURLs := make(map[string]bool)

	for _, keyword := range keywords {
		for _, result := range s.Search(ctx, keyword, perKeyword) {
			if result.SourceURL != "" {
				if seenURLs[result.SourceURL] {
					continue
				}
				seenURLs[result.SourceURL] = true
			}
			all = append(all, result)
		}
	}
	return all
}

// ResolveImages walks results in order and downloads each image until target
// candidates are collected or the input is exhausted. Failed downloads are
// skipped, not retried.
func (s *SearchService) ResolveImages(ctx context.Context, results []models.SearchResult, target int) []models.Candidate {
	candidates := make([]models.Candidate, 0, target)
	for _, result := range results {
		if len(candidates) >= target {
			break
		}
		if result.ImageURL == "" {
			continue
		}
		img := s.Fetch(result.ImageURL)
		if img == nil {
			continue
		}
		candidates = append(candidates, models.Candidate{SearchResult: result, Image: img})
	}
	return candidates
}

func (s *SearchService) ClearCache(ctx context.Context) {
	if err := s.cache.Clear(ctx); err != nil {
		fmt.Printf("[Search] Failed to clear cache: %v\n", err)
		return
	}
	fmt.Println("[Search] Search cache cleared")
}

// price extraction is best-effort enrichment; first matching pattern wins
var pricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$\d+(?:\.\d{2})?`),
	regexp.MustCompile(`(?i)USD\s*\d+(?:\.\d{2})?`),
	regexp.MustCompile(`(?i)\d+(?:\.\d{2})?\s*(?:USD|dollars?)`),
}

func ExtractPrice(text string) string {
	for _, pattern := range pricePatterns {
		if match := pattern.FindString(text); match != "" {
			return match
		}
	}
	return ""
}
