package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/getsentry/sentry-go"
	"google.golang.org/genai"

	"stylistapi/models"
)

// LLMModelName is the Gemini model to use for a call.
type LLMModelName int32

const (
	Pro25 LLMModelName = iota
	Flash25
	FlashLite25
	Flash20
	Flash25Image
)

func (t LLMModelName) String() string {
	switch t {
	case Pro25:
		return "gemini-2.5-pro"
	case Flash25:
		return "gemini-2.5-flash"
	case FlashLite25:
		return "gemini-2.5-flash-lite-preview-06-17"
	case Flash25Image:
		return "gemini-2.5-flash-image-preview"
	case Flash20:
		return "gemini-2.0-flash"
	default:
		return "gemini-2.0-flash"
	}
}

const analyzerMaxOutputTokens = 1024

// StylistAnalyzer is the vision-language collaborator of the pipeline. Every
// method is total: collaborator failures are logged and replaced with the
// documented defaults, so callers never see an error from this boundary.
type StylistAnalyzer interface {
	AnalyzeProfile(ctx context.Context, person *models.ImageData) models.UserProfile
	AnalyzeQuery(ctx context.Context, query string) models.QueryRequirements
	GenerateKeywords(ctx context.Context, profile models.UserProfile, req models.QueryRequirements) models.KeywordPlan
	SelectOutfit(ctx context.Context, candidates []models.Candidate, profile models.UserProfile, req models.QueryRequirements) models.OutfitSelection
	RecommendOutfitSets(ctx context.Context, tops, bottoms []models.Candidate, profile models.UserProfile, req models.QueryRequirements, numSets int) models.OutfitPlan
	ClassifyGarment(ctx context.Context, garment *models.ImageData) models.GarmentClass
}

type GoogleStylistAnalyzer struct {
	APIKey string
	Model  LLMModelName

	mu     sync.Mutex
	client *genai.Client
}

func NewGoogleStylistAnalyzer() *GoogleStylistAnalyzer {
	return &GoogleStylistAnalyzer{
		APIKey: GetEnv("GOOGLE_API_KEY", ""),
		Model:  Flash20,
	}
}

func (a *GoogleStylistAnalyzer) getClient(ctx context.Context) (*genai.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client != nil {
		return a.client, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  a.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating genai client: %v", err)
	}
	a.client = client
	return client, nil
}

func cleanAIResponseText(text string) string {
	cleanContent := strings.ReplaceAll(text, "```json", "")
	cleanContent = strings.ReplaceAll(cleanContent, "```", "")
	return strings.TrimSpace(cleanContent)
}

func imagePart(img *models.ImageData) *genai.Part {
	return &genai.Part{
		InlineData: &genai.Blob{
			MIMEType: img.MIMEType,
			Data:     img.Data,
		},
	}
}

// generateJSON runs one schema-constrained GenerateContent call and
// unmarshals the response into out. The caller substitutes its stage default
// on any returned error.
func (a *GoogleStylistAnalyzer) generateJSON(ctx context.Context, parts []*genai.Part, system string, schema *genai.Schema, out interface{}) error {
	client, err := a.getClient(ctx)
	if err != nil {
		return err
	}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
		CandidateCount:   1,
		MaxOutputTokens:  analyzerMaxOutputTokens,
		Temperature:      floatPointer(0.7),
	}
	if system != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}
	result, err := client.Models.GenerateContent(ctx, a.Model.String(), []*genai.Content{{Parts: parts}}, config)
	if err != nil {
		return fmt.Errorf("error in GenerateContent: %v", err)
	}
	if result.PromptFeedback != nil {
		return fmt.Errorf("content blocked: %s", result.PromptFeedback.BlockReasonMessage)
	}
	if result.UsageMetadata != nil {
		fmt.Printf("[Analyzer] %s IT: %d, OT: %d, TOT: %d\n", a.Model.String(),
			result.UsageMetadata.PromptTokenCount, result.UsageMetadata.CandidatesTokenCount, result.UsageMetadata.TotalTokenCount)
	}
	text := cleanAIResponseText(result.Text())
	if text == "" {
		return fmt.Errorf("empty analyzer response")
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("error parsing analyzer json %q: %v", text, err)
	}
	return nil
}

func (a *GoogleStylistAnalyzer) AnalyzeProfile(ctx context.Context, person *models.ImageData) models.UserProfile {
	if person == nil {
		return DefaultProfile()
	}
	var profile models.UserProfile
	parts := []*genai.Part{imagePart(person), {Text: UserAnalysisPrompt}}
	schema := &genai.Schema{
		Type: "object",
		Properties: map[string]*genai.Schema{
			"body_shape":    {Type: "string"},
			"skin_tone":     {Type: "string"},
			"gender":        {Type: "string"},
			"current_style": {Type: "string"},
		},
		Required: []string{"body_shape", "skin_tone", "gender", "current_style"},
	}
	if err := a.generateJSON(ctx, parts, "", schema, &profile); err != nil {
		fmt.Printf("[Analyzer] Error analyzing user image: %v\n", err)
		sentry.CaptureException(fmt.Errorf("[Analyzer] error analyzing user image: %v", err))
		return DefaultProfile()
	}
	return normalizeProfile(profile)
}

func (a *GoogleStylistAnalyzer) AnalyzeQuery(ctx context.Context, query string) models.QueryRequirements {
	var req models.QueryRequirements
	parts := []*genai.Part{{Text: fmt.Sprintf(QueryAnalysisPrompt, query)}}
	schema := &genai.Schema{
		Type: "object",
		Properties: map[string]*genai.Schema{
			"style":    {Type: "string"},
			"occasion": {Type: "string"},
			"weather":  {Type: "string"},
			"items":    {Type: "array", Items: &genai.Schema{Type: "string"}},
			"colors":   {Type: "array", Items: &genai.Schema{Type: "string"}},
			"budget":   {Type: "string"},
		},
		Required: []string{"style", "occasion", "weather", "items", "colors", "budget"},
	}
	if err := a.generateJSON(ctx, parts, "", schema, &req); err != nil {
		fmt.Printf("[Analyzer] Error analyzing query: %v\n", err)
		sentry.CaptureException(fmt.Errorf("[Analyzer] error analyzing query: %v", err))
		return DefaultRequirements()
	}
	return normalizeRequirements(req)
}

func (a *GoogleStylistAnalyzer) GenerateKeywords(ctx context.Context, profile models.UserProfile, req models.QueryRequirements) models.KeywordPlan {
	var plan models.KeywordPlan
	prompt := fmt.Sprintf(SearchKeywordsPrompt,
		profile.BodyShape, profile.SkinTone, profile.Gender,
		req.Style, req.Occasion, req.Weather,
		joinOrAny(req.Items), joinOrAny(req.Colors),
	)
	schema := &genai.Schema{
		Type: "object",
		Properties: map[string]*genai.Schema{
			"tops_keywords":      {Type: "array", Items: &genai.Schema{Type: "string"}},
			"bottoms_keywords":   {Type: "array", Items: &genai.Schema{Type: "string"}},
			"recommended_colors": {Type: "array", Items: &genai.Schema{Type: "string"}},
			"reasoning":          {Type: "string"},
		},
		Required: []string{"tops_keywords", "bottoms_keywords"},
	}
	err := a.generateJSON(ctx, []*genai.Part{{Text: prompt}}, "", schema, &plan)
	if err != nil {
		fmt.Printf("[Analyzer] Error generating search keywords: %v\n", err)
		sentry.CaptureException(fmt.Errorf("[Analyzer] error generating search keywords: %v", err))
		return FallbackKeywordPlan(profile, req)
	}
	// fill per-category gaps from the deterministic fallback
	if len(plan.TopsKeywords) == 0 {
		plan.TopsKeywords = fallbackCategoryKeywords(profile, req, models.CategoryTops)
	}
	if len(plan.BottomsKeywords) == 0 {
		plan.BottomsKeywords = fallbackCategoryKeywords(profile, req, models.CategoryBottoms)
	}
	return plan
}

func (a *GoogleStylistAnalyzer) SelectOutfit(ctx context.Context, candidates []models.Candidate, profile models.UserProfile, req models.QueryRequirements) models.OutfitSelection {
	var sel models.OutfitSelection
	prompt := fmt.Sprintf(OutfitSelectionPrompt,
		profile.BodyShape, profile.SkinTone, profile.Gender, profile.CurrentStyle,
		req.Style, req.Occasion, req.Weather,
		joinOrAny(req.Colors), joinOrAny(req.Items),
		CandidateDigest(candidates),
	)
	schema := &genai.Schema{
		Type: "object",
		Properties: map[string]*genai.Schema{
			"selected_index":     {Type: "integer"},
			"explanation":        {Type: "string"},
			"styling_tips":       {Type: "string"},
			"alternative_index":  {Type: "integer", Nullable: genai.Ptr(true)},
			"alternative_reason": {Type: "string"},
		},
		Required: []string{"selected_index", "explanation", "styling_tips"},
	}
	err := a.generateJSON(ctx, []*genai.Part{{Text: prompt}}, StylistSystemPrompt, schema, &sel)
	if err != nil {
		fmt.Printf("[Analyzer] Error selecting outfit: %v\n", err)
		sentry.CaptureException(fmt.Errorf("[Analyzer] error selecting outfit: %v", err))
		return models.OutfitSelection{
			SelectedIndex: 0,
			Explanation:   "Unable to analyze options. Showing first result.",
			StylingTips:   "Try pairing with classic accessories.",
		}
	}
	return normalizeSelection(sel, len(candidates))
}

func (a *GoogleStylistAnalyzer) RecommendOutfitSets(ctx context.Context, tops, bottoms []models.Candidate, profile models.UserProfile, req models.QueryRequirements, numSets int) models.OutfitPlan {
	var plan models.OutfitPlan
	prompt := fmt.Sprintf(OutfitPairingPrompt,
		profile.BodyShape, profile.SkinTone, profile.Gender,
		req.Style, req.Occasion,
		CandidateDigest(tops), CandidateDigest(bottoms),
		numSets,
	)
	schema := &genai.Schema{
		Type: "object",
		Properties: map[string]*genai.Schema{
			"outfit_sets": {
				Type: "array",
				Items: &genai.Schema{
					Type: "object",
					Properties: map[string]*genai.Schema{
						"top_index":    {Type: "integer"},
						"bottom_index": {Type: "integer"},
						"reasoning":    {Type: "string"},
					},
					Required: []string{"top_index", "bottom_index"},
				},
			},
			"overall_styling_tips": {Type: "string"},
		},
		Required: []string{"outfit_sets"},
	}
	err := a.generateJSON(ctx, []*genai.Part{{Text: prompt}}, StylistSystemPrompt, schema, &plan)
	if err != nil {
		fmt.Printf("[Analyzer] Error recommending outfit sets: %v\n", err)
		sentry.CaptureException(fmt.Errorf("[Analyzer] error recommending outfit sets: %v", err))
		plan = models.OutfitPlan{}
	}
	plan.OutfitSets = validOutfitSets(plan.OutfitSets, len(tops), len(bottoms), numSets)
	if len(plan.OutfitSets) == 0 {
		plan.OutfitSets = positionalFallbackSets(len(tops), len(bottoms), numSets)
	}
	return plan
}

func (a *GoogleStylistAnalyzer) ClassifyGarment(ctx context.Context, garment *models.ImageData) models.GarmentClass {
	var class models.GarmentClass
	if garment == nil {
		return normalizeGarmentClass(class)
	}
	parts := []*genai.Part{imagePart(garment), {Text: GarmentClassificationPrompt}}
	schema := &genai.Schema{
		Type: "object",
		Properties: map[string]*genai.Schema{
			"category":    {Type: "string"},
			"photo_type":  {Type: "string"},
			"description": {Type: "string"},
		},
		Required: []string{"category", "photo_type"},
	}
	if err := a.generateJSON(ctx, parts, "", schema, &class); err != nil {
		fmt.Printf("[Analyzer] Error classifying garment: %v\n", err)
		sentry.CaptureException(fmt.Errorf("[Analyzer] error classifying garment: %v", err))
	}
	return normalizeGarmentClass(class)
}

// CandidateDigest renders the candidate pool as the numbered option list the
// selection and pairing prompts expect.
func CandidateDigest(candidates []models.Candidate) string {
	var sb strings.Builder
	for i, candidate := range candidates {
		sb.WriteString(fmt.Sprintf("\nOption %d: %s", i, nonEmpty(candidate.Title, "Unknown")))
		if candidate.Snippet != "" {
			sb.WriteString(" - " + candidate.Snippet)
		}
		if candidate.Price != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", candidate.Price))
		}
	}
	return sb.String()
}

func joinOrAny(values []string) string {
	if len(values) == 0 {
		return "any"
	}
	return strings.Join(values, ", ")
}
