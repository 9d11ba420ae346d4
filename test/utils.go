package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"stylistapi/models"
	"stylistapi/services"
)

func JsonString(model interface{}) string {
	bytes, _ := json.Marshal(model)
	return string(bytes)
}

func NewJSONRequest(method string, target string, param interface{}) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(JsonString(param)))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	return req
}

// PNGBytes renders a solid-color PNG of the given size.
func PNGBytes(width, height int, c color.Color) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// TestImage returns a decoded, normalized image for pipeline tests.
func TestImage(width, height int) *models.ImageData {
	img, err := services.ImageFromBytes(PNGBytes(width, height, color.White))
	if err != nil {
		panic(err)
	}
	return img
}

type AWSProviderMock struct {
	MockUrl string
}

func (m *AWSProviderMock) InitPresignClient(ctx context.Context) error {
	return nil
}

func (m *AWSProviderMock) PresignLink(ctx context.Context, bucketName string, fileName string) (string, error) {
	return m.MockUrl, nil
}

func (m *AWSProviderMock) UploadToPresignedURL(ctx context.Context, bucketName, url string, fileContent []byte) (string, int, error) {
	return "", http.StatusOK, nil
}

func (m *AWSProviderMock) GetPresignedR2FileReadURL(ctx context.Context, bucketName, fileKey string) (string, error) {
	return m.MockUrl, nil
}

type URLCacheMock struct {
	MockUrl string
}

func (m *URLCacheMock) GetReadURL(ctx context.Context, objectKey string) (string, error) {
	if objectKey == "" {
		return "", nil
	}
	return m.MockUrl, nil
}

// AnalyzerStub returns canned analysis results and counts classify calls.
type AnalyzerStub struct {
	Profile       models.UserProfile
	Requirements  models.QueryRequirements
	Plan          models.KeywordPlan
	Selection     models.OutfitSelection
	OutfitPlan    models.OutfitPlan
	Class         models.GarmentClass
	ClassifyCalls int
}

func NewAnalyzerStub() *AnalyzerStub {
	return &AnalyzerStub{
		Profile:      models.UserProfile{BodyShape: "average", SkinTone: "medium", Gender: "neutral", CurrentStyle: "casual"},
		Requirements: models.QueryRequirements{Style: "casual", Occasion: "daily", Weather: "not specified", Budget: "not specified"},
		Plan:         models.KeywordPlan{TopsKeywords: []string{"casual shirt"}, BottomsKeywords: []string{"casual pants"}},
		Selection:    models.OutfitSelection{SelectedIndex: 0, Explanation: "stub", StylingTips: "stub"},
		Class:        models.GarmentClass{Category: models.CategoryTops, PhotoType: models.PhotoTypeModel},
	}
}

func (a *AnalyzerStub) AnalyzeProfile(ctx context.Context, person *models.ImageData) models.UserProfile {
	return a.Profile
}

func (a *AnalyzerStub) AnalyzeQuery(ctx context.Context, query string) models.QueryRequirements {
	return a.Requirements
}

func (a *AnalyzerStub) GenerateKeywords(ctx context.Context, profile models.UserProfile, req models.QueryRequirements) models.KeywordPlan {
	return a.Plan
}

func (a *AnalyzerStub) SelectOutfit(ctx context.Context, candidates []models.Candidate, profile models.UserProfile, req models.QueryRequirements) models.OutfitSelection {
	return a.Selection
}

func (a *AnalyzerStub) RecommendOutfitSets(ctx context.Context, tops, bottoms []models.Candidate, profile models.UserProfile, req models.QueryRequirements, numSets int) models.OutfitPlan {
	return a.OutfitPlan
}

func (a *AnalyzerStub) ClassifyGarment(ctx context.Context, garment *models.ImageData) models.GarmentClass {
	a.ClassifyCalls++
	return a.Class
}

// SearchProviderStub serves canned responses per query and counts how many
// times each query reached the provider.
type SearchProviderStub struct {
	Responses  map[string]*services.ProviderResponse
	Calls      map[string]int
	MaxResults map[string]int
	Err        error
}

func NewSearchProviderStub() *SearchProviderStub {
	return &SearchProviderStub{
		Responses:  make(map[string]*services.ProviderResponse),
		Calls:      make(map[string]int),
		MaxResults: make(map[string]int),
	}
}

func (s *SearchProviderStub) Search(ctx context.Context, query string, maxResults int, includeImages bool) (*services.ProviderResponse, error) {
	s.Calls[query]++
	s.MaxResults[query] = maxResults
	if s.Err != nil {
		return nil, s.Err
	}
	if response, ok := s.Responses[query]; ok {
		return response, nil
	}
	return &services.ProviderResponse{}, nil
}

type ComposeCall struct {
	Person    *models.ImageData
	Garment   *models.ImageData
	Category  string
	PhotoType string
}

// RecordingEngine records every composition call and returns a fresh image
// whose bytes name the composed category, so tests can follow the layering.
// Usage is reported unchanged on every call.
type RecordingEngine struct {
	mu           sync.Mutex
	Calls        []ComposeCall
	FailCategory string
	Usage        models.TokenUsage
}

func (e *RecordingEngine) Compose(ctx context.Context, person, garment *models.ImageData, category, photoType string, params models.SamplingParams) ([]*models.ImageData, models.TokenUsage, error) {
	e.mu.Lock()
	e.Calls = append(e.Calls, ComposeCall{Person: person, Garment: garment, Category: category, PhotoType: photoType})
	e.mu.Unlock()
	if e.FailCategory != "" && category == e.FailCategory {
		return nil, e.Usage, fmt.Errorf("composition backend unavailable")
	}
	return []*models.ImageData{{
		Data:     []byte("composed-" + category),
		MIMEType: "image/png",
	}}, e.Usage, nil
}
