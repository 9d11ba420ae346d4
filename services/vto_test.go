package services_test

import (
	"context"
	"image/color"
	"sync"
	"testing"

	"stylistapi/models"
	"stylistapi/services"
	"stylistapi/test"

	"github.com/stretchr/testify/assert"
)

func newVTO(analyzer services.StylistAnalyzer, engine services.ComposeEngine) *services.VTOService {
	return services.NewVTOServiceWithEngine(analyzer, func() services.ComposeEngine { return engine })
}

func TestTryOnReturnsSingleImage(t *testing.T) {
	engine := &test.RecordingEngine{}
	vto := newVTO(test.NewAnalyzerStub(), engine)
	person := test.TestImage(64, 64)
	garment := test.TestImage(32, 32)

	result, _, err := vto.TryOn(context.Background(), person, garment, models.CategoryTops, models.PhotoTypeModel, services.DefaultSamplingParams())

	assert.NoError(t, err)
	assert.Equal(t, []byte("composed-tops"), result.Data)
	assert.Len(t, engine.Calls, 1)
	assert.Same(t, person, engine.Calls[0].Person)
}

func TestTryOnAutoClassifiesWhenUnspecified(t *testing.T) {
	engine := &test.RecordingEngine{}
	analyzer := test.NewAnalyzerStub()
	analyzer.Class = models.GarmentClass{Category: models.CategoryBottoms, PhotoType: models.PhotoTypeModel}
	vto := newVTO(analyzer, engine)

	_, _, err := vto.TryOn(context.Background(), test.TestImage(64, 64), test.TestImage(32, 32), "", "", services.DefaultSamplingParams())

	assert.NoError(t, err)
	assert.Equal(t, 1, analyzer.ClassifyCalls)
	assert.Equal(t, models.CategoryBottoms, engine.Calls[0].Category)
	assert.Equal(t, models.PhotoTypeModel, engine.Calls[0].PhotoType)
}

func TestTryOnMissingInputs(t *testing.T) {
	vto := newVTO(test.NewAnalyzerStub(), &test.RecordingEngine{})
	params := services.DefaultSamplingParams()

	_, _, err := vto.TryOn(context.Background(), nil, test.TestImage(32, 32), models.CategoryTops, models.PhotoTypeModel, params)
	assert.ErrorIs(t, err, services.ErrNoPersonImage)

	_, _, err = vto.TryOn(context.Background(), test.TestImage(64, 64), nil, models.CategoryTops, models.PhotoTypeModel, params)
	assert.ErrorIs(t, err, services.ErrNoGarmentImage)
}

func TestTryOnFullSetComposesTopThenBottom(t *testing.T) {
	engine := &test.RecordingEngine{}
	vto := newVTO(test.NewAnalyzerStub(), engine)
	person := test.TestImage(64, 64)
	top := test.TestImage(32, 32)
	bottom := test.TestImage(32, 32)

	result, _, err := vto.TryOnFullSet(context.Background(), person, top, bottom, services.DefaultSamplingParams())

	assert.NoError(t, err)
	assert.Len(t, engine.Calls, 2)
	assert.Equal(t, models.CategoryTops, engine.Calls[0].Category)
	assert.Same(t, person, engine.Calls[0].Person)
	assert.Equal(t, models.CategoryBottoms, engine.Calls[1].Category)
	// the top result is the person input of the bottom step
	assert.Equal(t, []byte("composed-tops"), engine.Calls[1].Person.Data)
	assert.Equal(t, []byte("composed-bottoms"), result.Data)
}

func TestTryOnWhitensFlatLayGarment(t *testing.T) {
	engine := &test.RecordingEngine{}
	analyzer := test.NewAnalyzerStub()
	analyzer.Class = models.GarmentClass{Category: models.CategoryTops, PhotoType: models.PhotoTypeFlatLay}
	vto := newVTO(analyzer, engine)

	// mid-gray sits inside the feathering band, so the backdrop blends
	// towards white while the protected center keeps its color
	garment, err := services.ImageFromBytes(test.PNGBytes(40, 40, color.RGBA{R: 230, G: 230, B: 230, A: 255}))
	assert.NoError(t, err)

	_, _, err = vto.TryOn(context.Background(), test.TestImage(64, 64), garment, "", "", services.DefaultSamplingParams())

	assert.NoError(t, err)
	assert.Equal(t, models.PhotoTypeFlatLay, engine.Calls[0].PhotoType)
	assert.NotSame(t, garment, engine.Calls[0].Garment)

	img, err := services.DecodeImage(engine.Calls[0].Garment.Data)
	assert.NoError(t, err)
	corner, _, _, _ := img.At(1, 1).RGBA()
	assert.Greater(t, uint8(corner>>8), uint8(240))
	center, _, _, _ := img.At(20, 20).RGBA()
	assert.Equal(t, uint8(230), uint8(center>>8))
}

func TestTryOnFullSetAggregatesTokenUsage(t *testing.T) {
	engine := &test.RecordingEngine{Usage: models.TokenUsage{InputTokens: 10, OutputTokens: 20, ThoughtsTokens: 5, TotalTokens: 35}}
	vto := newVTO(test.NewAnalyzerStub(), engine)

	_, usage, err := vto.TryOnFullSet(context.Background(), test.TestImage(64, 64), test.TestImage(32, 32), test.TestImage(32, 32), services.DefaultSamplingParams())

	assert.NoError(t, err)
	// both steps contribute
	assert.Equal(t, models.TokenUsage{InputTokens: 20, OutputTokens: 40, ThoughtsTokens: 10, TotalTokens: 70}, usage)

	_, usage, err = vto.TryOn(context.Background(), test.TestImage(64, 64), test.TestImage(32, 32), models.CategoryTops, models.PhotoTypeModel, services.DefaultSamplingParams())
	assert.NoError(t, err)
	assert.Equal(t, engine.Usage, usage)
}

func TestTryOnFullSetAbortsWhenTopFails(t *testing.T) {
	engine := &test.RecordingEngine{FailCategory: models.CategoryTops}
	vto := newVTO(test.NewAnalyzerStub(), engine)

	_, _, err := vto.TryOnFullSet(context.Background(), test.TestImage(64, 64), test.TestImage(32, 32), test.TestImage(32, 32), services.DefaultSamplingParams())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "top composition failed")
	// the bottom step never runs on the original photo
	assert.Len(t, engine.Calls, 1)
}

func TestEngineLifecycle(t *testing.T) {
	constructed := 0
	var mu sync.Mutex
	vto := services.NewVTOServiceWithEngine(test.NewAnalyzerStub(), func() services.ComposeEngine {
		mu.Lock()
		defer mu.Unlock()
		constructed++
		return &test.RecordingEngine{}
	})

	assert.False(t, vto.IsLoaded())

	var wg sync.WaitGroup
	person := test.TestImage(64, 64)
	garment := test.TestImage(32, 32)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := vto.TryOn(context.Background(), person, garment, models.CategoryTops, models.PhotoTypeModel, services.DefaultSamplingParams())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, constructed)
	assert.True(t, vto.IsLoaded())

	vto.Unload()
	assert.False(t, vto.IsLoaded())

	vto.Preload()
	assert.True(t, vto.IsLoaded())
	assert.Equal(t, 2, constructed)
}
