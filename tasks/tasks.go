package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"stylistapi/models"
	"stylistapi/services"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

type TryOnGenerationPayload struct {
	TryOnID uint `json:"try_on_id"`
}

// Client initializes an asynq client for enqueuing tasks
func NewClient() (*asynq.Client, error) {
	return asynq.NewClient(asynq.RedisClientOpt{Addr: services.GetEnv("ASYNC_BROKER_ADDRESS", "localhost:6379")}), nil
}

func NewTryOnGenerationTask(tryOnID uint) (*asynq.Task, error) {
	payload, err := json.Marshal(TryOnGenerationPayload{TryOnID: tryOnID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask("generate:tryon", payload), nil
}

func getImageForGeneration(awsService services.AWSServiceProvider, generationID uint, key string) (*models.ImageData, error) {
	bucketName := os.Getenv("R2_BUCKET_NAME")
	fmt.Printf("[TryOn: %v] Request presigned download url for %s\n", generationID, key)
	fileUrl, err := awsService.GetPresignedR2FileReadURL(context.TODO(), bucketName, key)
	if err != nil {
		sentry.CaptureException(fmt.Errorf("[TryOn: %v] Error on getting presigned URL for file %s", generationID, key))
		return nil, err
	}
	fileBytes, err := services.ReadFileFromUrl(fileUrl)
	if err != nil {
		sentry.CaptureException(fmt.Errorf("[TryOn: %v] Error on downloading file %s: %v", generationID, key, err))
		return nil, err
	}
	img, err := services.ImageFromBytes(fileBytes)
	if err != nil {
		sentry.CaptureException(fmt.Errorf("[TryOn: %v] Error decoding image %s: %v", generationID, key, err))
		return nil, err
	}
	return img, nil
}

func uploadGenerationResult(awsService services.AWSServiceProvider, generationID uint, key string, data []byte) error {
	bucketName := os.Getenv("R2_BUCKET_NAME")
	uploadUrl, err := awsService.PresignLink(context.TODO(), bucketName, key)
	if err != nil {
		return fmt.Errorf("[TryOn: %v] unable to presign %s: %v", generationID, key, err)
	}
	_, status, err := awsService.UploadToPresignedURL(context.TODO(), bucketName, uploadUrl, data)
	if err != nil {
		return fmt.Errorf("[TryOn: %v] upload failed for %s: %v", generationID, key, err)
	}
	if status != 200 {
		return fmt.Errorf("[TryOn: %v] upload for %s returned status %d", generationID, key, status)
	}
	return nil
}

func saveGenerationFail(db *gorm.DB, generation models.TryOnGeneration, message string, countRetry bool) {
	generation.Status = "failed"
	generation.GenerationErrorMessage = services.StrPointer(message)
	if countRetry {
		generation.GenerationRetryTimes = generation.GenerationRetryTimes + 1
	}
	if err := db.Save(&generation).Error; err != nil {
		sentry.CaptureException(err)
	}
}

// HandleTryOnGenerationTask composes a queued full-set try-on: it re-reads
// the person and garment images from storage by key, runs the ordered
// composition and uploads the result.
func HandleTryOnGenerationTask(ctx context.Context, t *asynq.Task, db *gorm.DB, vto *services.VTOService, awsService services.AWSServiceProvider) error {
	googleKey := os.Getenv("GOOGLE_API_KEY")
	if googleKey == "" {
		sentry.CaptureException(fmt.Errorf("[QUEUE] %s Google API key is not set", string(t.Payload())))
		return fmt.Errorf("[QUEUE] %s Google API key is not set", string(t.Payload()))
	}
	var payload TryOnGenerationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return err
	}
	fmt.Printf("[TryOn: %v] Start Processing\n", payload.TryOnID)
	var generation models.TryOnGeneration
	res := db.Joins("Session").First(&generation, payload.TryOnID)
	if res.Error != nil {
		sentry.CaptureException(fmt.Errorf("[QUEUE] Error on retrieving generation for processing %v", payload.TryOnID))
		return res.Error
	}
	if generation.Status == "completed" {
		fmt.Printf("[TryOn: %v] Already completed, skipping\n", payload.TryOnID)
		return nil
	}
	if generation.TopImageKey == nil || generation.BottomImageKey == nil || generation.PersonImageKey == "" {
		saveGenerationFail(db, generation, "Generation is missing input images, please start a new try-on", false)
		sentry.CaptureException(fmt.Errorf("[TryOn: %v] Missing input image keys", payload.TryOnID))
		return fmt.Errorf("[TryOn: %v] Missing input image keys", payload.TryOnID)
	}

	person, err := getImageForGeneration(awsService, generation.ID, generation.PersonImageKey)
	if err != nil {
		saveGenerationFail(db, generation, "Failed to read your photo, please start a new try-on", true)
		return err
	}
	top, err := getImageForGeneration(awsService, generation.ID, *generation.TopImageKey)
	if err != nil {
		saveGenerationFail(db, generation, "Failed to read the top garment image, please start a new try-on", true)
		return err
	}
	bottom, err := getImageForGeneration(awsService, generation.ID, *generation.BottomImageKey)
	if err != nil {
		saveGenerationFail(db, generation, "Failed to read the bottom garment image, please start a new try-on", true)
		return err
	}

	fmt.Printf("[TryOn: %v] Composing full set\n", payload.TryOnID)
	started := time.Now()
	result, usage, err := vto.TryOnFullSet(ctx, person, top, bottom, services.DefaultSamplingParams())
	duration := time.Since(started).Seconds()
	if err != nil {
		saveGenerationFail(db, generation, "Sorry, we failed to compose this outfit, please try again", true)
		sentry.CaptureException(fmt.Errorf("[TryOn: %v] Error on composing full set: %v", payload.TryOnID, err))
		return err
	}

	resultKey := fmt.Sprintf("stylist/%s/results/%d.png", generation.Session.SessionKey, generation.ID)
	if err := uploadGenerationResult(awsService, generation.ID, resultKey, result.Data); err != nil {
		saveGenerationFail(db, generation, "Sorry, we failed to store the composed outfit, please try again", true)
		sentry.CaptureException(err)
		return err
	}

	generation.ResultImageKey = &resultKey
	generation.Status = "completed"
	generation.Duration = &duration
	generation.LLMModel = services.StrPointer(services.Flash25Image.String())
	generation.LLMInputTokenCount = services.Int32Pointer(usage.InputTokens)
	generation.LLMOutputTokenCount = services.Int32Pointer(usage.OutputTokens)
	generation.LLMThoughtsTokenCount = services.Int32Pointer(usage.ThoughtsTokens)
	generation.LLMTotalTokenCount = services.Int32Pointer(usage.TotalTokens)
	if err := db.Save(&generation).Error; err != nil {
		sentry.CaptureException(err)
		return err
	}
	fmt.Printf("[TryOn: %v] Completed in %.1fs\n", payload.TryOnID, duration)
	return nil
}
