package services_test

import (
	"context"
	"testing"

	"stylistapi/models"
	"stylistapi/services"
	"stylistapi/test"

	"github.com/stretchr/testify/assert"
)

func newStylist(t *testing.T, analyzer *test.AnalyzerStub, provider *test.SearchProviderStub, engine *test.RecordingEngine) *services.StylistService {
	t.Helper()
	search, err := services.NewSearchService(provider)
	if err != nil {
		t.Fatalf("Failed to create search service: %v", err)
	}
	img := test.TestImage(48, 48)
	search.Fetch = func(url string) *models.ImageData { return img }
	vto := services.NewVTOServiceWithEngine(analyzer, func() services.ComposeEngine { return engine })
	return services.NewStylistService(analyzer, search, vto)
}

func discoveryStubs() (*test.AnalyzerStub, *test.SearchProviderStub) {
	analyzer := test.NewAnalyzerStub()
	analyzer.Plan = models.KeywordPlan{
		TopsKeywords:    []string{"linen shirt"},
		BottomsKeywords: []string{"linen pants"},
	}
	analyzer.OutfitPlan = models.OutfitPlan{
		OutfitSets:         []models.OutfitSet{{TopIndex: 0, BottomIndex: 0, Reasoning: "matching linen"}},
		OverallStylingTips: "roll up the sleeves",
	}

	provider := test.NewSearchProviderStub()
	provider.Responses["linen shirt buy online shop"] = &services.ProviderResponse{
		Results: []services.ProviderResult{
			{Title: "Linen Shirt", URL: "https://shop.example/shirt", Content: "Breezy shirt $40"},
		},
		Images: []string{"https://img.example/shirt.png"},
	}
	provider.Responses["linen pants buy online shop"] = &services.ProviderResponse{
		Results: []services.ProviderResult{
			{Title: "Linen Pants", URL: "https://shop.example/pants", Content: "Relaxed pants $55"},
		},
		Images: []string{"https://img.example/pants.png"},
	}
	return analyzer, provider
}

func TestFindOutfitsPipeline(t *testing.T) {
	analyzer, provider := discoveryStubs()
	stylist := newStylist(t, analyzer, provider, &test.RecordingEngine{})

	session := stylist.Sessions.Create()
	session.SetPersonImage(test.TestImage(64, 64))

	result, err := stylist.FindOutfits(context.Background(), session, "linen summer outfit", nil)

	assert.NoError(t, err)
	assert.Len(t, result.Tops, 1)
	assert.Len(t, result.Bottoms, 1)
	assert.Equal(t, "Linen Shirt", result.Tops[0].Title)
	assert.Equal(t, "$40", result.Tops[0].Price)
	assert.NotNil(t, result.Tops[0].Image)
	assert.NotNil(t, result.TopSelection)
	assert.NotNil(t, result.BottomSelection)
	assert.Len(t, result.OutfitSets, 1)
	assert.Equal(t, "roll up the sleeves", result.OverallStyleTips)

	// discovery results are retrievable from the session afterwards
	candidate, err := session.Candidate(models.CategoryTops, 0)
	assert.NoError(t, err)
	assert.Equal(t, "Linen Shirt", candidate.Title)
}

func TestFindOutfitsExplicitProfileSkipsAnalysis(t *testing.T) {
	analyzer, provider := discoveryStubs()
	analyzer.Profile = models.UserProfile{BodyShape: "slim", SkinTone: "fair", Gender: "male", CurrentStyle: "formal"}
	stylist := newStylist(t, analyzer, provider, &test.RecordingEngine{})

	session := stylist.Sessions.Create()
	session.SetPersonImage(test.TestImage(64, 64))

	explicit := &models.UserProfile{BodyShape: "curvy", SkinTone: "olive", Gender: "female"}
	result, err := stylist.FindOutfits(context.Background(), session, "office outfit", explicit)

	assert.NoError(t, err)
	assert.Equal(t, "curvy", result.Profile.BodyShape)
	assert.Equal(t, "olive", result.Profile.SkinTone)
	assert.Equal(t, "female", result.Profile.Gender)
}

func TestFindOutfitsRequiresPhotoAndQuery(t *testing.T) {
	analyzer, provider := discoveryStubs()
	stylist := newStylist(t, analyzer, provider, &test.RecordingEngine{})

	session := stylist.Sessions.Create()
	_, err := stylist.FindOutfits(context.Background(), session, "anything", nil)
	assert.ErrorIs(t, err, services.ErrNoPersonImage)

	session.SetPersonImage(test.TestImage(64, 64))
	_, err = stylist.FindOutfits(context.Background(), session, "", nil)
	assert.ErrorIs(t, err, services.ErrEmptyQuery)
}

func TestFindOutfitsNoCandidates(t *testing.T) {
	analyzer := test.NewAnalyzerStub()
	analyzer.Plan = models.KeywordPlan{TopsKeywords: []string{"nothing"}, BottomsKeywords: []string{"nada"}}
	stylist := newStylist(t, analyzer, test.NewSearchProviderStub(), &test.RecordingEngine{})

	session := stylist.Sessions.Create()
	session.SetPersonImage(test.TestImage(64, 64))

	_, err := stylist.FindOutfits(context.Background(), session, "ghost outfit", nil)
	assert.ErrorIs(t, err, services.ErrNoCandidates)
}

func TestTryOnGarmentFromSession(t *testing.T) {
	analyzer, provider := discoveryStubs()
	engine := &test.RecordingEngine{}
	stylist := newStylist(t, analyzer, provider, engine)

	session := stylist.Sessions.Create()
	session.SetPersonImage(test.TestImage(64, 64))
	_, err := stylist.FindOutfits(context.Background(), session, "linen summer outfit", nil)
	assert.NoError(t, err)

	result, _, err := stylist.TryOnGarment(context.Background(), session, models.CategoryTops, 0, services.DefaultSamplingParams())
	assert.NoError(t, err)
	assert.Equal(t, []byte("composed-tops"), result.Data)

	_, _, err = stylist.TryOnGarment(context.Background(), session, models.CategoryTops, 99, services.DefaultSamplingParams())
	assert.ErrorIs(t, err, services.ErrInvalidSelection)

	_, _, err = stylist.TryOnGarment(context.Background(), session, "hat", 0, services.DefaultSamplingParams())
	assert.ErrorIs(t, err, services.ErrInvalidSelection)
}

func TestTryOnSetFromSession(t *testing.T) {
	analyzer, provider := discoveryStubs()
	engine := &test.RecordingEngine{}
	stylist := newStylist(t, analyzer, provider, engine)

	session := stylist.Sessions.Create()
	session.SetPersonImage(test.TestImage(64, 64))
	_, err := stylist.FindOutfits(context.Background(), session, "linen summer outfit", nil)
	assert.NoError(t, err)

	result, _, err := stylist.TryOnSet(context.Background(), session, 0, services.DefaultSamplingParams())
	assert.NoError(t, err)
	assert.Equal(t, []byte("composed-bottoms"), result.Data)
	assert.Len(t, engine.Calls, 2)

	_, _, err = stylist.TryOnSet(context.Background(), session, 5, services.DefaultSamplingParams())
	assert.ErrorIs(t, err, services.ErrInvalidSelection)
}

func TestSessionStoreLifecycle(t *testing.T) {
	store := services.NewSessionStore()

	session := store.Create()
	assert.NotEmpty(t, session.Key)

	found, err := store.Get(session.Key)
	assert.NoError(t, err)
	assert.Same(t, session, found)

	_, err = store.Get("missing-key")
	assert.ErrorIs(t, err, services.ErrSessionNotFound)

	store.Delete(session.Key)
	_, err = store.Get(session.Key)
	assert.ErrorIs(t, err, services.ErrSessionNotFound)
}
