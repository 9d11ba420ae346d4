package services_test

import (
	"context"
	"fmt"
	"testing"

	"stylistapi/models"
	"stylistapi/services"
	"stylistapi/test"

	"github.com/stretchr/testify/assert"
)

func newSearchService(t *testing.T, provider services.SearchProvider) *services.SearchService {
	t.Helper()
	service, err := services.NewSearchService(provider)
	if err != nil {
		t.Fatalf("Failed to create search service: %v", err)
	}
	return service
}

func TestSearchCachesResults(t *testing.T) {
	provider := test.NewSearchProviderStub()
	provider.Responses["blue shirt buy online shop"] = &services.ProviderResponse{
		Results: []services.ProviderResult{
			{Title: "Blue Shirt", URL: "https://shop.example/blue", Content: "Classic blue shirt $29.99"},
		},
		Images: []string{"https://img.example/blue.png"},
	}
	service := newSearchService(t, provider)

	first := service.Search(context.Background(), "blue shirt", 5)
	second := service.Search(context.Background(), "blue shirt", 5)

	assert.Equal(t, 1, provider.Calls["blue shirt buy online shop"])
	assert.Equal(t, first, second)
	assert.Len(t, first, 1)
	assert.Equal(t, "https://img.example/blue.png", first[0].ImageURL)
	assert.Equal(t, "$29.99", first[0].Price)
}

func TestSearchDistinctCountsAreSeparateEntries(t *testing.T) {
	provider := test.NewSearchProviderStub()
	service := newSearchService(t, provider)

	service.Search(context.Background(), "blue shirt", 3)
	service.Search(context.Background(), "blue shirt", 5)

	assert.Equal(t, 2, provider.Calls["blue shirt buy online shop"])
}

func TestSearchDefaultsResultCount(t *testing.T) {
	provider := test.NewSearchProviderStub()
	service := newSearchService(t, provider)

	service.Search(context.Background(), "blue shirt", 0)

	assert.Equal(t, services.SearchNumResults, provider.MaxResults["blue shirt buy online shop"])

	// the defaulted call shares a cache entry with the explicit one
	service.Search(context.Background(), "blue shirt", services.SearchNumResults)
	assert.Equal(t, 1, provider.Calls["blue shirt buy online shop"])
}

func TestSearchProviderFailureNotCached(t *testing.T) {
	provider := test.NewSearchProviderStub()
	provider.Err = fmt.Errorf("rate limited")
	service := newSearchService(t, provider)

	results := service.Search(context.Background(), "red dress", 5)
	assert.Empty(t, results)

	service.Search(context.Background(), "red dress", 5)
	assert.Equal(t, 2, provider.Calls["red dress buy online shop"])
}

func TestSearchExtraImagesBecomeStandaloneResults(t *testing.T) {
	provider := test.NewSearchProviderStub()
	provider.Responses["linen top buy online shop"] = &services.ProviderResponse{
		Results: []services.ProviderResult{
			{Title: "Linen Top", URL: "https://shop.example/linen", Content: "Soft linen"},
		},
		Images: []string{"https://img.example/1.png", "https://img.example/2.png", "https://img.example/3.png"},
	}
	service := newSearchService(t, provider)

	results := service.Search(context.Background(), "linen top", 5)
	assert.Len(t, results, 3)
	assert.Equal(t, "Linen Top", results[0].Title)
	assert.Equal(t, "Fashion Item 2", results[1].Title)
	assert.Empty(t, results[1].SourceURL)
	assert.Equal(t, "Fashion Item 3", results[2].Title)
}

func TestSearchManyDeduplicatesByURL(t *testing.T) {
	provider := test.NewSearchProviderStub()
	provider.Responses["white tee buy online shop"] = &services.ProviderResponse{
		Results: []services.ProviderResult{
			{Title: "White Tee", URL: "https://shop.example/tee"},
			{Title: "No Link A", URL: ""},
		},
	}
	provider.Responses["plain t-shirt buy online shop"] = &services.ProviderResponse{
		Results: []services.ProviderResult{
			{Title: "Same Tee Again", URL: "https://shop.example/tee"},
			{Title: "No Link B", URL: ""},
			{Title: "Other Tee", URL: "https://shop.example/other"},
		},
	}
	service := newSearchService(t, provider)

	results := service.SearchMany(context.Background(), []string{"white tee", "plain t-shirt"}, 5)

	// duplicate url dropped, empty urls always kept, first-seen order
	assert.Len(t, results, 4)
	assert.Equal(t, "White Tee", results[0].Title)
	assert.Equal(t, "No Link A", results[1].Title)
	assert.Equal(t, "No Link B", results[2].Title)
	assert.Equal(t, "Other Tee", results[3].Title)
}

func TestResolveImagesSkipsFailuresAndStopsAtTarget(t *testing.T) {
	service := newSearchService(t, test.NewSearchProviderStub())
	img := test.TestImage(64, 64)
	service.Fetch = func(url string) *models.ImageData {
		if url == "https://img.example/broken.png" {
			return nil
		}
		return img
	}

	results := []models.SearchResult{
		{Title: "A", ImageURL: "https://img.example/a.png"},
		{Title: "No Image"},
		{Title: "Broken", ImageURL: "https://img.example/broken.png"},
		{Title: "B", ImageURL: "https://img.example/b.png"},
		{Title: "C", ImageURL: "https://img.example/c.png"},
		{Title: "D", ImageURL: "https://img.example/d.png"},
	}

	candidates := service.ResolveImages(context.Background(), results, 3)
	assert.Len(t, candidates, 3)
	assert.Equal(t, "A", candidates[0].Title)
	assert.Equal(t, "B", candidates[1].Title)
	assert.Equal(t, "C", candidates[2].Title)
}

func TestResolveImagesExhaustsInput(t *testing.T) {
	service := newSearchService(t, test.NewSearchProviderStub())
	img := test.TestImage(64, 64)
	calls := 0
	service.Fetch = func(url string) *models.ImageData {
		calls++
		if calls == 2 {
			return nil
		}
		return img
	}

	// 5 results, url 1 repeated upstream would be deduped already; one
	// download fails so only 3 candidates come back
	results := []models.SearchResult{
		{Title: "A", ImageURL: "https://img.example/1.png"},
		{Title: "B", ImageURL: "https://img.example/2.png"},
		{Title: "C", ImageURL: "https://img.example/3.png"},
		{Title: "D", ImageURL: "https://img.example/4.png"},
	}
	candidates := service.ResolveImages(context.Background(), results, 10)
	assert.Len(t, candidates, 3)
}

func TestClearCacheForcesRefetch(t *testing.T) {
	provider := test.NewSearchProviderStub()
	service := newSearchService(t, provider)

	service.Search(context.Background(), "black jeans", 5)
	service.ClearCache(context.Background())
	service.Search(context.Background(), "black jeans", 5)

	assert.Equal(t, 2, provider.Calls["black jeans buy online shop"])
}

func TestExtractPrice(t *testing.T) {
	assert.Equal(t, "$49.99", services.ExtractPrice("On sale now for $49.99 only"))
	assert.Equal(t, "$30", services.ExtractPrice("Just $30 while stock lasts"))
	assert.Equal(t, "USD 25.00", services.ExtractPrice("Price: USD 25.00"))
	assert.Equal(t, "35 dollars", services.ExtractPrice("costs about 35 dollars shipped"))
	assert.Empty(t, services.ExtractPrice("no price mentioned here"))
}
