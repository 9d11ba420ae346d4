package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/getsentry/sentry-go"
	"google.golang.org/genai"

	"stylistapi/models"
)

// DefaultSamplingParams mirrors the tuned diffusion settings of the
// composition backend; the seed is fixed so identical inputs reproduce
// identical compositions.
func DefaultSamplingParams() models.SamplingParams {
	return models.SamplingParams{
		NumTimesteps:  20,
		GuidanceScale: 1.5,
		NumSamples:    1,
		Seed:          42,
	}
}

// ComposeEngine renders a person wearing a garment. Implementations return
// one image per requested sample along with the token usage of the call.
type ComposeEngine interface {
	Compose(ctx context.Context, person, garment *models.ImageData, category, photoType string, params models.SamplingParams) ([]*models.ImageData, models.TokenUsage, error)
}

// GoogleComposeEngine drives the Gemini image model for a single try-on step.
type GoogleComposeEngine struct {
	APIKey string
	Model  LLMModelName

	mu     sync.Mutex
	client *genai.Client
}

func NewGoogleComposeEngine() *GoogleComposeEngine {
	return &GoogleComposeEngine{
		APIKey: GetEnv("GOOGLE_API_KEY", ""),
		Model:  Flash25Image,
	}
}

func (e *GoogleComposeEngine) getClient(ctx context.Context) (*genai.Client, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil {
		return e.client, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  e.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating genai client: %v", err)
	}
	e.client = client
	return client, nil
}

func (e *GoogleComposeEngine) Compose(ctx context.Context, person, garment *models.ImageData, category, photoType string, params models.SamplingParams) ([]*models.ImageData, models.TokenUsage, error) {
	var usage models.TokenUsage
	client, err := e.getClient(ctx)
	if err != nil {
		return nil, usage, err
	}

	// [person, garment, instruction]
	parts := []*genai.Part{
		imagePart(person),
		imagePart(garment),
		{Text: fmt.Sprintf(TryOnSystemPrompt, category, photoType, category)},
	}

	numSamples := params.NumSamples
	if numSamples < 1 {
		numSamples = 1
	}
	result, err := client.Models.GenerateContent(ctx, e.Model.String(), []*genai.Content{{Parts: parts}}, &genai.GenerateContentConfig{
		MaxOutputTokens: 50000,
		Temperature:     floatPointer(1),
		CandidateCount:  int32(numSamples),
		Seed:            Int32Pointer(int32(params.Seed)),
	})
	if err != nil {
		fmt.Println("[TryOn] Error in GenerateContent:", err)
		return nil, usage, fmt.Errorf("%v", err)
	}

	if result.UsageMetadata != nil {
		usage = models.TokenUsage{
			InputTokens:    result.UsageMetadata.PromptTokenCount,
			OutputTokens:   result.UsageMetadata.CandidatesTokenCount,
			ThoughtsTokens: result.UsageMetadata.ThoughtsTokenCount,
			TotalTokens:    result.UsageMetadata.TotalTokenCount,
		}
		fmt.Printf("[TryOn] %s IT: %d, OT: %d, THT: %d, TOT: %d\n", e.Model.String(),
			usage.InputTokens, usage.OutputTokens, usage.ThoughtsTokens, usage.TotalTokens)
	}
	if result.PromptFeedback != nil {
		fmt.Println(result.PromptFeedback.BlockReason)
		fmt.Println(result.PromptFeedback.BlockReasonMessage)
		return nil, usage, fmt.Errorf("content violation: %s", result.PromptFeedback.BlockReasonMessage)
	}

	imagesBytes, err := collectInlineImages(result)
	if err != nil {
		fmt.Println("[TryOn] Error getting composed image:", err)
		return nil, usage, fmt.Errorf("error getting composed image: %v", err)
	}
	images := make([]*models.ImageData, 0, len(imagesBytes))
	for _, raw := range imagesBytes {
		img, err := ImageFromBytes(raw)
		if err != nil {
			fmt.Println("[TryOn] Skipping undecodable candidate image:", err)
			continue
		}
		images = append(images, img)
	}
	if len(images) == 0 {
		return nil, usage, fmt.Errorf("composition produced no image")
	}
	return images, usage, nil
}

func collectInlineImages(result *genai.GenerateContentResponse) ([][]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("nil response")
	}
	var allImageData [][]byte
	for _, cand := range result.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			inlineData := part.InlineData
			if inlineData == nil {
				continue
			}
			if strings.HasPrefix(inlineData.MIMEType, "image/") && len(inlineData.Data) > 0 {
				allImageData = append(allImageData, inlineData.Data)
			}
		}
	}
	if len(allImageData) == 0 {
		return nil, fmt.Errorf("no inline image data found in any candidate")
	}
	return allImageData, nil
}

// VTOService orchestrates try-on composition. The engine is constructed
// lazily on first use and can be dropped with Unload; both transitions are
// serialized by the mutex so concurrent callers construct the engine at most
// once.
type VTOService struct {
	mu        sync.Mutex
	engine    ComposeEngine
	newEngine func() ComposeEngine
	analyzer  StylistAnalyzer
}

func NewVTOService(analyzer StylistAnalyzer) *VTOService {
	return NewVTOServiceWithEngine(analyzer, func() ComposeEngine { return NewGoogleComposeEngine() })
}

func NewVTOServiceWithEngine(analyzer StylistAnalyzer, newEngine func() ComposeEngine) *VTOService {
	return &VTOService{
		newEngine: newEngine,
		analyzer:  analyzer,
	}
}

func (v *VTOService) getEngine() ComposeEngine {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.engine == nil {
		fmt.Println("[TryOn] Initializing composition engine")
		v.engine = v.newEngine()
	}
	return v.engine
}

func (v *VTOService) IsLoaded() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.engine != nil
}

// Preload constructs the engine ahead of the first request.
func (v *VTOService) Preload() {
	v.getEngine()
}

// Unload drops the engine; the next try-on call reinitializes it.
func (v *VTOService) Unload() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.engine != nil {
		fmt.Println("[TryOn] Unloading composition engine")
		v.engine = nil
	}
}

// Classify determines garment category and photo type from the image.
func (v *VTOService) Classify(ctx context.Context, garment *models.ImageData) models.GarmentClass {
	return v.analyzer.ClassifyGarment(ctx, garment)
}

// TryOn composes a single garment onto the person and returns exactly one
// image. Empty category or photo type triggers automatic classification.
func (v *VTOService) TryOn(ctx context.Context, person, garment *models.ImageData, category, photoType string, params models.SamplingParams) (*models.ImageData, models.TokenUsage, error) {
	var usage models.TokenUsage
	if person == nil {
		return nil, usage, ErrNoPersonImage
	}
	if garment == nil {
		return nil, usage, ErrNoGarmentImage
	}

	if category == "" || photoType == "" {
		class := v.Classify(ctx, garment)
		if category == "" {
			category = class.Category
		}
		if photoType == "" {
			photoType = class.PhotoType
		}
		fmt.Printf("[TryOn: auto-classified] category=%s photo_type=%s\n", category, photoType)
	}

	// flat-lay shots often carry noisy backdrops that bleed into the
	// composited garment
	if photoType == models.PhotoTypeFlatLay {
		if whitened, err := WhitenBackgroundFeathered(garment.Data, 200, 245, 0.5); err == nil {
			if img, err := ImageFromBytes(whitened); err == nil {
				garment = img
			}
		}
	}

	images, usage, err := v.getEngine().Compose(ctx, person, garment, category, photoType, params)
	if err != nil {
		sentry.CaptureException(fmt.Errorf("[TryOn] composition failed: %v", err))
		return nil, usage, err
	}
	return images[0], usage, nil
}

// TryOnFullSet composes top then bottom as ordered layers: the top result
// becomes the person input of the bottom step. A failed first step aborts the
// set, it never falls through to compositing the bottom onto the original
// photo.
func (v *VTOService) TryOnFullSet(ctx context.Context, person, top, bottom *models.ImageData, params models.SamplingParams) (*models.ImageData, models.TokenUsage, error) {
	var usage models.TokenUsage
	if person == nil {
		return nil, usage, ErrNoPersonImage
	}
	if top == nil || bottom == nil {
		return nil, usage, ErrNoGarmentImage
	}

	fmt.Println("[TryOn] Full set step 1: top")
	withTop, topUsage, err := v.TryOn(ctx, person, top, models.CategoryTops, "", params)
	usage.Add(topUsage)
	if err != nil {
		return nil, usage, fmt.Errorf("top composition failed: %w", err)
	}

	fmt.Println("[TryOn] Full set step 2: bottom")
	full, bottomUsage, err := v.TryOn(ctx, withTop, bottom, models.CategoryBottoms, "", params)
	usage.Add(bottomUsage)
	if err != nil {
		return nil, usage, fmt.Errorf("bottom composition failed: %w", err)
	}
	return full, usage, nil
}
