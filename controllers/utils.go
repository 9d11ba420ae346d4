package controllers

import (
	"encoding/base64"
	"errors"
	"net/http"

	"stylistapi/models"
	"stylistapi/services"

	"github.com/getsentry/sentry-go"
	"gorm.io/gorm"
)

func strDeref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// errorStatus maps known pipeline failures to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrNoCandidates):
		return http.StatusNotFound
	case errors.Is(err, services.ErrNoPersonImage),
		errors.Is(err, services.ErrNoGarmentImage),
		errors.Is(err, services.ErrEmptyQuery),
		errors.Is(err, services.ErrInvalidSelection):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func candidateResponses(candidates []models.Candidate) []CandidateResponse {
	responses := make([]CandidateResponse, 0, len(candidates))
	for _, candidate := range candidates {
		response := CandidateResponse{
			Title:     candidate.Title,
			SourceURL: candidate.SourceURL,
			Price:     candidate.Price,
		}
		if candidate.Image != nil {
			response.ImageBase64 = base64.StdEncoding.EncodeToString(candidate.Image.Data)
		}
		responses = append(responses, response)
	}
	return responses
}

func selectionResponse(selection *models.OutfitSelection) *SelectionResponse {
	if selection == nil {
		return nil
	}
	return &SelectionResponse{
		SelectedIndex:     selection.SelectedIndex,
		Explanation:       selection.Explanation,
		StylingTips:       selection.StylingTips,
		AlternativeIndex:  selection.AlternativeIndex,
		AlternativeReason: selection.AlternativeReason,
	}
}

func saveGenerationFailure(db *gorm.DB, generation *models.TryOnGeneration, cause error) {
	generation.Status = "failed"
	generation.GenerationErrorMessage = services.StrPointer(cause.Error())
	if err := db.Save(generation).Error; err != nil {
		sentry.CaptureException(err)
	}
}
