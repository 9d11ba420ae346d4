package controllers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"stylistapi/models"
	"stylistapi/services"
	"stylistapi/tasks"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// Request structs for validation
type CreateSessionIn struct {
	Query       string  `json:"query" validate:"required,max=500"`
	PhotoBase64 string  `json:"photo_base64" validate:"required"`
	Gender      *string `json:"gender" validate:"omitempty,oneof=male female neutral"`
	BodyShape   *string `json:"body_shape" validate:"omitempty,max=50"`
	SkinTone    *string `json:"skin_tone" validate:"omitempty,max=50"`
}

type TryOnIn struct {
	GarmentType string `json:"garment_type" validate:"required,oneof=top bottom"`
	Index       *int   `json:"index" validate:"required,min=0"`
}

type TryOnSetIn struct {
	SetIndex *int `json:"set_index" validate:"required,min=0"`
}

// Response structs
type CandidateResponse struct {
	Title       string `json:"title"`
	SourceURL   string `json:"source_url,omitempty"`
	Price       string `json:"price,omitempty"`
	ImageBase64 string `json:"image_base64"`
}

type SelectionResponse struct {
	SelectedIndex     int    `json:"selected_index"`
	Explanation       string `json:"explanation"`
	StylingTips       string `json:"styling_tips"`
	AlternativeIndex  *int   `json:"alternative_index,omitempty"`
	AlternativeReason string `json:"alternative_reason,omitempty"`
}

type SessionCreatedResponse struct {
	SessionKey       string                   `json:"session_key"`
	Profile          models.UserProfile       `json:"profile"`
	Requirements     models.QueryRequirements `json:"requirements"`
	Tops             []CandidateResponse      `json:"tops"`
	Bottoms          []CandidateResponse      `json:"bottoms"`
	TopSelection     *SelectionResponse       `json:"top_selection,omitempty"`
	BottomSelection  *SelectionResponse       `json:"bottom_selection,omitempty"`
	OutfitSets       []models.OutfitSet       `json:"outfit_sets"`
	RecommendedColor []string                 `json:"recommended_colors"`
	Reasoning        string                   `json:"reasoning"`
	OverallStyleTips string                   `json:"overall_styling_tips"`
	Status           string                   `json:"status"`
}

type TryOnResponse struct {
	TryOnID     uint   `json:"try_on_id"`
	Status      string `json:"status"`
	ImageBase64 string `json:"image_base64,omitempty"`
}

type GenerationStatusResponse struct {
	TryOnID        uint    `json:"try_on_id"`
	Status         string  `json:"status"`
	ResultImageURL *string `json:"result_image_url,omitempty"`
	ErrorMessage   *string `json:"generation_error_message,omitempty"`
}

type StylistController struct {
	AWSService services.AWSServiceProvider
	URLCache   services.URLCacheServiceProvider
	Stylist    *services.StylistService
}

func (controller *StylistController) StylistRoutes(g *echo.Group) {
	g.POST("/sessions", controller.CreateSession)
	g.POST("/sessions/:id/tryon", controller.TryOnGarment)
	g.POST("/sessions/:id/tryon-set", controller.TryOnSet)
	g.POST("/sessions/:id/generations", controller.CreateGeneration)
	g.GET("/generations/:id", controller.GetGeneration)
	g.POST("/cache/clear", controller.ClearSearchCache)
}

func (controller *StylistController) CreateSession(c echo.Context) error {
	var req CreateSessionIn
	if err := c.Bind(&req); err != nil {
		fmt.Println(err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	db, ok := c.Get("__db").(*gorm.DB)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Database connection error"})
	}

	photoBytes, err := base64.StdEncoding.DecodeString(req.PhotoBase64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Photo is not valid base64"})
	}
	person, err := services.ImageFromBytes(photoBytes)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Could not read the uploaded photo, please use PNG, JPEG or WEBP"})
	}

	session := controller.Stylist.Sessions.Create()
	session.SetPersonImage(person)

	var profile *models.UserProfile
	if req.Gender != nil || req.BodyShape != nil || req.SkinTone != nil {
		profile = &models.UserProfile{
			Gender:    strDeref(req.Gender),
			BodyShape: strDeref(req.BodyShape),
			SkinTone:  strDeref(req.SkinTone),
		}
	}

	result, err := controller.Stylist.FindOutfits(c.Request().Context(), session, req.Query, profile)
	if err != nil {
		controller.Stylist.Sessions.Delete(session.Key)
		return c.JSON(errorStatus(err), map[string]string{"error": err.Error()})
	}

	// person photo goes to storage so async generations can re-read it
	var personKey *string
	key := fmt.Sprintf("stylist/%s/person.png", session.Key)
	if uploadErr := controller.uploadObject(c.Request().Context(), key, person.Data); uploadErr != nil {
		fmt.Printf("[Session: %v] Failed to store person photo: %v\n", session.Key, uploadErr)
		sentry.CaptureException(uploadErr)
	} else {
		personKey = &key
	}

	record := models.StylingSession{
		SessionKey:     session.Key,
		Gender:         result.Profile.Gender,
		BodyShape:      result.Profile.BodyShape,
		SkinTone:       result.Profile.SkinTone,
		Query:          req.Query,
		TopsCount:      len(result.Tops),
		BottomsCount:   len(result.Bottoms),
		SetCount:       len(result.OutfitSets),
		PersonImageKey: personKey,
		Status:         "ready",
	}
	if raw, err := json.Marshal(result.Requirements); err == nil {
		record.RequirementsJSON = services.StrPointer(string(raw))
	}
	if raw, err := json.Marshal(result.Plan); err == nil {
		record.KeywordPlanJSON = services.StrPointer(string(raw))
	}
	if err := db.Create(&record).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save session"})
	}
	session.RecordID = record.ID

	return c.JSON(http.StatusCreated, SessionCreatedResponse{
		SessionKey:       session.Key,
		Profile:          result.Profile,
		Requirements:     result.Requirements,
		Tops:             candidateResponses(result.Tops),
		Bottoms:          candidateResponses(result.Bottoms),
		TopSelection:     selectionResponse(result.TopSelection),
		BottomSelection:  selectionResponse(result.BottomSelection),
		OutfitSets:       result.OutfitSets,
		RecommendedColor: result.Plan.RecommendedColors,
		Reasoning:        result.Plan.Reasoning,
		OverallStyleTips: result.OverallStyleTips,
		Status:           record.Status,
	})
}

func (controller *StylistController) TryOnGarment(c echo.Context) error {
	var req TryOnIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	db, ok := c.Get("__db").(*gorm.DB)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Database connection error"})
	}
	session, err := controller.Stylist.Sessions.Get(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}

	category := models.CategoryTops
	if req.GarmentType == "bottom" {
		category = models.CategoryBottoms
	}

	generation := models.TryOnGeneration{
		SessionID: session.RecordID,
		Kind:      "single",
		Category:  services.StrPointer(category),
		Status:    "pending",
	}
	if err := db.Create(&generation).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create generation"})
	}

	started := time.Now()
	result, usage, tryOnErr := controller.Stylist.TryOnGarment(c.Request().Context(), session, category, *req.Index, services.DefaultSamplingParams())
	duration := time.Since(started).Seconds()
	if tryOnErr != nil {
		saveGenerationFailure(db, &generation, tryOnErr)
		return c.JSON(errorStatus(tryOnErr), map[string]string{"error": tryOnErr.Error()})
	}

	if candidate, candErr := session.Candidate(category, *req.Index); candErr == nil && candidate.Image != nil {
		garmentKey := fmt.Sprintf("stylist/%s/garments/%s-%d.png", session.Key, category, *req.Index)
		if uploadErr := controller.uploadObject(c.Request().Context(), garmentKey, candidate.Image.Data); uploadErr != nil {
			fmt.Printf("[TryOn: %v] Failed to store garment image: %v\n", generation.ID, uploadErr)
			sentry.CaptureException(uploadErr)
		} else {
			generation.GarmentImageKey = &garmentKey
		}
	}

	controller.finishGeneration(c.Request().Context(), db, &generation, session.Key, result, usage, duration)
	return c.JSON(http.StatusOK, TryOnResponse{
		TryOnID:     generation.ID,
		Status:      generation.Status,
		ImageBase64: base64.StdEncoding.EncodeToString(result.Data),
	})
}

func (controller *StylistController) TryOnSet(c echo.Context) error {
	var req TryOnSetIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	db, ok := c.Get("__db").(*gorm.DB)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Database connection error"})
	}
	session, err := controller.Stylist.Sessions.Get(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}

	generation := models.TryOnGeneration{
		SessionID: session.RecordID,
		Kind:      "full_set",
		SetIndex:  req.SetIndex,
		Status:    "pending",
	}
	if err := db.Create(&generation).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create generation"})
	}

	started := time.Now()
	result, usage, tryOnErr := controller.Stylist.TryOnSet(c.Request().Context(), session, *req.SetIndex, services.DefaultSamplingParams())
	duration := time.Since(started).Seconds()
	if tryOnErr != nil {
		saveGenerationFailure(db, &generation, tryOnErr)
		return c.JSON(errorStatus(tryOnErr), map[string]string{"error": tryOnErr.Error()})
	}

	controller.finishGeneration(c.Request().Context(), db, &generation, session.Key, result, usage, duration)
	return c.JSON(http.StatusOK, TryOnResponse{
		TryOnID:     generation.ID,
		Status:      generation.Status,
		ImageBase64: base64.StdEncoding.EncodeToString(result.Data),
	})
}

// CreateGeneration runs a full-set composition on the worker instead of
// in-request: garment and person images go to storage first so the worker can
// pick them up by key.
func (controller *StylistController) CreateGeneration(c echo.Context) error {
	var req TryOnSetIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	db, ok := c.Get("__db").(*gorm.DB)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Database connection error"})
	}
	asynqClient, ok := c.Get("__asynqclient").(*asynq.Client)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Service is not available, please try again a bit later"})
	}
	session, err := controller.Stylist.Sessions.Get(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	if session.Person() == nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": services.ErrNoPersonImage.Error()})
	}

	_, top, bottom, err := session.OutfitSet(*req.SetIndex)
	if err != nil {
		return c.JSON(errorStatus(err), map[string]string{"error": err.Error()})
	}
	if top.Image == nil || bottom.Image == nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": services.ErrNoGarmentImage.Error()})
	}

	ctx := c.Request().Context()
	personKey := fmt.Sprintf("stylist/%s/person.png", session.Key)
	topKey := fmt.Sprintf("stylist/%s/set%d/top.png", session.Key, *req.SetIndex)
	bottomKey := fmt.Sprintf("stylist/%s/set%d/bottom.png", session.Key, *req.SetIndex)
	for key, data := range map[string][]byte{
		personKey: session.Person().Data,
		topKey:    top.Image.Data,
		bottomKey: bottom.Image.Data,
	} {
		if err := controller.uploadObject(ctx, key, data); err != nil {
			sentry.CaptureException(err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to store images for generation"})
		}
	}

	generation := models.TryOnGeneration{
		SessionID:      session.RecordID,
		Kind:           "full_set",
		SetIndex:       req.SetIndex,
		PersonImageKey: personKey,
		TopImageKey:    &topKey,
		BottomImageKey: &bottomKey,
		Status:         "pending",
	}
	if err := db.Create(&generation).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create generation"})
	}

	task, err := tasks.NewTryOnGenerationTask(generation.ID)
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Sorry, could not schedule generation, please try again"})
	}
	info, err := asynqClient.Enqueue(task, asynq.MaxRetry(3), asynq.Queue("generate"))
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Sorry, could not schedule generation, please try again"})
	}
	fmt.Println("[Queue] Try-on generation task submitted, Generation ID:", generation.ID, "Task ID:", info.ID)

	return c.JSON(http.StatusAccepted, TryOnResponse{TryOnID: generation.ID, Status: generation.Status})
}

func (controller *StylistController) GetGeneration(c echo.Context) error {
	db, ok := c.Get("__db").(*gorm.DB)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Database connection error"})
	}
	generationID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid generation id"})
	}
	var generation models.TryOnGeneration
	if err := db.First(&generation, uint(generationID)).Error; err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Generation not found"})
	}

	response := GenerationStatusResponse{
		TryOnID:      generation.ID,
		Status:       generation.Status,
		ErrorMessage: generation.GenerationErrorMessage,
	}
	if generation.ResultImageKey != nil {
		url, err := controller.URLCache.GetReadURL(c.Request().Context(), *generation.ResultImageKey)
		if err != nil {
			sentry.CaptureException(err)
		} else if url != "" {
			response.ResultImageURL = &url
		}
	}
	return c.JSON(http.StatusOK, response)
}

func (controller *StylistController) ClearSearchCache(c echo.Context) error {
	controller.Stylist.Search.ClearCache(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]string{"message": "Search cache cleared"})
}

func (controller *StylistController) uploadObject(ctx context.Context, key string, data []byte) error {
	bucketName := services.GetEnv("R2_BUCKET_NAME", "")
	uploadUrl, err := controller.AWSService.PresignLink(ctx, bucketName, key)
	if err != nil {
		return fmt.Errorf("unable to presign %s: %v", key, err)
	}
	_, status, err := controller.AWSService.UploadToPresignedURL(ctx, bucketName, uploadUrl, data)
	if err != nil {
		return fmt.Errorf("upload failed for %s: %v", key, err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("upload for %s returned status %d", key, status)
	}
	return nil
}

// finishGeneration stores the composed image and marks the row completed. A
// storage failure does not fail the request, the client already gets the
// image inline.
func (controller *StylistController) finishGeneration(ctx context.Context, db *gorm.DB, generation *models.TryOnGeneration, sessionKey string, result *models.ImageData, usage models.TokenUsage, duration float64) {
	resultKey := fmt.Sprintf("stylist/%s/results/%d.png", sessionKey, generation.ID)
	if err := controller.uploadObject(ctx, resultKey, result.Data); err != nil {
		fmt.Printf("[TryOn: %v] Failed to store result image: %v\n", generation.ID, err)
		sentry.CaptureException(err)
	} else {
		generation.ResultImageKey = &resultKey
	}
	generation.Status = "completed"
	generation.Duration = &duration
	generation.LLMModel = services.StrPointer(services.Flash25Image.String())
	generation.LLMInputTokenCount = services.Int32Pointer(usage.InputTokens)
	generation.LLMOutputTokenCount = services.Int32Pointer(usage.OutputTokens)
	generation.LLMThoughtsTokenCount = services.Int32Pointer(usage.ThoughtsTokens)
	generation.LLMTotalTokenCount = services.Int32Pointer(usage.TotalTokens)
	if err := db.Save(generation).Error; err != nil {
		sentry.CaptureException(err)
	}
}
