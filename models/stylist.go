package models

type StylingSession struct {
	JsonModel
	// uuid handed to the client; the in-memory candidate lists live under it
	SessionKey string `gorm:"uniqueIndex" json:"session_key"`
	Gender     string `json:"gender"`
	BodyShape  string `json:"body_shape"`
	SkinTone   string `json:"skin_tone"`
	Query      string `gorm:"type:text" json:"query"`
	// snapshots of what the analyzer produced, for debugging and history
	RequirementsJSON *string `gorm:"type:text" json:"-"`
	KeywordPlanJSON  *string `gorm:"type:text" json:"-"`
	TopsCount        int     `json:"tops_count"`
	BottomsCount     int     `json:"bottoms_count"`
	SetCount         int     `json:"set_count"`
	// this is file **key** in storage.
	PersonImageKey *string `json:"-"`
	Status         string  `json:"status"`
}

type TryOnGeneration struct {
	JsonModel
	SessionID uint           `json:"-"`
	Session   StylingSession `json:"-"`
	Kind      string         `json:"kind"` // single, full_set
	Category  *string        `json:"category"`
	SetIndex  *int           `json:"set_index"`

	PersonImageKey  string  `json:"-"`
	GarmentImageKey *string `json:"-"`
	TopImageKey     *string `json:"-"`
	BottomImageKey  *string `json:"-"`
	ResultImageKey  *string `json:"-"`

	Status                 string   `json:"status"` // pending, completed, failed
	Duration               *float64 `json:"duration"` // in seconds
	GenerationRetryTimes   int      `json:"-"`
	GenerationErrorMessage *string  `json:"generation_error_message"`

	LLMModel              *string `json:"llm_model"`
	LLMInputTokenCount    *int32  `json:"llm_input_token_count"`
	LLMOutputTokenCount   *int32  `json:"llm_output_token_count"`
	LLMTotalTokenCount    *int32  `json:"llm_total_token_count"`
	LLMThoughtsTokenCount *int32  `json:"llm_thoughts_token_count"`
}
