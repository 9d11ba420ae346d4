package models

// Pipeline value types shared between services, controllers and tasks.
// None of these are persisted directly; see stylist.go for the gorm models.

const (
	CategoryTops      = "tops"
	CategoryBottoms   = "bottoms"
	CategoryOnePieces = "one-pieces"

	PhotoTypeModel   = "model"
	PhotoTypeFlatLay = "flat-lay"
)

type UserProfile struct {
	BodyShape    string `json:"body_shape"`
	SkinTone     string `json:"skin_tone"`
	Gender       string `json:"gender"`
	CurrentStyle string `json:"current_style"`
}

type QueryRequirements struct {
	Style    string   `json:"style"`
	Occasion string   `json:"occasion"`
	Weather  string   `json:"weather"`
	Items    []string `json:"items"`
	Colors   []string `json:"colors"`
	Budget   string   `json:"budget"`
}

// ImageData is a decoded, RGB-normalized image re-encoded as PNG.
type ImageData struct {
	Data     []byte `json:"-"`
	MIMEType string `json:"mime_type"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

type SearchResult struct {
	Title     string `json:"title"`
	SourceURL string `json:"url"`
	Snippet   string `json:"snippet"`
	ImageURL  string `json:"image_url,omitempty"`
	Price     string `json:"price,omitempty"`
}

// Candidate is a search result that resolved to a downloadable image.
type Candidate struct {
	SearchResult
	Image *ImageData `json:"-"`
}

type KeywordPlan struct {
	TopsKeywords      []string `json:"tops_keywords"`
	BottomsKeywords   []string `json:"bottoms_keywords"`
	RecommendedColors []string `json:"recommended_colors"`
	Reasoning         string   `json:"reasoning"`
}

// OutfitSet indices point into the owning session's current candidate lists.
// They are invalidated by the next discovery call, never stable identifiers.
type OutfitSet struct {
	TopIndex    int    `json:"top_index"`
	BottomIndex int    `json:"bottom_index"`
	Reasoning   string `json:"reasoning"`
}

type OutfitPlan struct {
	OutfitSets         []OutfitSet `json:"outfit_sets"`
	OverallStylingTips string      `json:"overall_styling_tips"`
}

type OutfitSelection struct {
	SelectedIndex     int    `json:"selected_index"`
	Explanation       string `json:"explanation"`
	StylingTips       string `json:"styling_tips"`
	AlternativeIndex  *int   `json:"alternative_index,omitempty"`
	AlternativeReason string `json:"alternative_reason,omitempty"`
}

type GarmentClass struct {
	Category    string `json:"category"`
	PhotoType   string `json:"photo_type"`
	Description string `json:"description,omitempty"`
}

type SamplingParams struct {
	NumTimesteps  int     `json:"num_timesteps"`
	GuidanceScale float64 `json:"guidance_scale"`
	NumSamples    int     `json:"num_samples"`
	Seed          int64   `json:"seed"`
}

// TokenUsage accumulates model token counts across composition steps.
type TokenUsage struct {
	InputTokens    int32 `json:"input_tokens"`
	OutputTokens   int32 `json:"output_tokens"`
	ThoughtsTokens int32 `json:"thoughts_tokens"`
	TotalTokens    int32 `json:"total_tokens"`
}

func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.ThoughtsTokens += other.ThoughtsTokens
	u.TotalTokens += other.TotalTokens
}
