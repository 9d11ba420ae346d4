package controllers

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"testing"

	"stylistapi/models"
	"stylistapi/services"

	"github.com/stretchr/testify/assert"
)

func TestErrorStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, errorStatus(services.ErrSessionNotFound))
	assert.Equal(t, http.StatusNotFound, errorStatus(services.ErrNoCandidates))
	assert.Equal(t, http.StatusBadRequest, errorStatus(services.ErrNoPersonImage))
	assert.Equal(t, http.StatusBadRequest, errorStatus(services.ErrEmptyQuery))
	assert.Equal(t, http.StatusBadRequest, errorStatus(fmt.Errorf("%w: index 7 of 3 tops", services.ErrInvalidSelection)))
	assert.Equal(t, http.StatusInternalServerError, errorStatus(fmt.Errorf("backend exploded")))
}

func TestCandidateResponses(t *testing.T) {
	responses := candidateResponses([]models.Candidate{
		{
			SearchResult: models.SearchResult{Title: "Shirt", SourceURL: "https://shop.example/s", Price: "$20"},
			Image:        &models.ImageData{Data: []byte{1, 2, 3}, MIMEType: "image/png"},
		},
		{
			SearchResult: models.SearchResult{Title: "No Image"},
		},
	})

	assert.Len(t, responses, 2)
	assert.Equal(t, "Shirt", responses[0].Title)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte{1, 2, 3}), responses[0].ImageBase64)
	assert.Empty(t, responses[1].ImageBase64)
}

func TestSelectionResponse(t *testing.T) {
	assert.Nil(t, selectionResponse(nil))

	alt := 1
	response := selectionResponse(&models.OutfitSelection{
		SelectedIndex:    2,
		Explanation:      "best fit",
		StylingTips:      "cuff the sleeves",
		AlternativeIndex: &alt,
	})
	assert.Equal(t, 2, response.SelectedIndex)
	assert.Equal(t, 1, *response.AlternativeIndex)
}
