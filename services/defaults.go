package services

import (
	"fmt"
	"slices"

	"stylistapi/models"
)

// Every analyzer call runs through one of these normalizers afterwards, so a
// malformed or partial model response can never leak out of the stage.

var (
	allowedBodyShapes = []string{"slim", "average", "athletic", "curvy", "plus-size"}
	allowedSkinTones  = []string{"fair", "light", "medium", "olive", "tan", "dark"}
	allowedGenders    = []string{"male", "female", "neutral"}
	allowedCategories = []string{models.CategoryTops, models.CategoryBottoms, models.CategoryOnePieces}
	allowedPhotoTypes = []string{models.PhotoTypeModel, models.PhotoTypeFlatLay}
)

const (
	DefaultBodyShape    = "average"
	DefaultSkinTone     = "medium"
	DefaultGender       = "neutral"
	DefaultStyle        = "casual"
	DefaultOccasion     = "daily"
	NotSpecified        = "not specified"
	DefaultExplanation  = "This option best matches your style preferences."
	DefaultStylingTips  = "Complete the look with neutral accessories."
	DefaultSetReasoning = "Great combination that works well together!"
)

func orDefault(value string, allowed []string, def string) string {
	if slices.Contains(allowed, value) {
		return value
	}
	return def
}

func nonEmpty(value, def string) string {
	if value == "" {
		return def
	}
	return value
}

func DefaultProfile() models.UserProfile {
	return models.UserProfile{
		BodyShape:    DefaultBodyShape,
		SkinTone:     DefaultSkinTone,
		Gender:       DefaultGender,
		CurrentStyle: DefaultStyle,
	}
}

func DefaultRequirements() models.QueryRequirements {
	return models.QueryRequirements{
		Style:    DefaultStyle,
		Occasion: DefaultOccasion,
		Weather:  NotSpecified,
		Items:    []string{},
		Colors:   []string{},
		Budget:   NotSpecified,
	}
}

func normalizeProfile(p models.UserProfile) models.UserProfile {
	return models.UserProfile{
		BodyShape:    orDefault(p.BodyShape, allowedBodyShapes, DefaultBodyShape),
		SkinTone:     orDefault(p.SkinTone, allowedSkinTones, DefaultSkinTone),
		Gender:       orDefault(p.Gender, allowedGenders, DefaultGender),
		CurrentStyle: nonEmpty(p.CurrentStyle, DefaultStyle),
	}
}

func normalizeRequirements(r models.QueryRequirements) models.QueryRequirements {
	out := models.QueryRequirements{
		Style:    nonEmpty(r.Style, DefaultStyle),
		Occasion: nonEmpty(r.Occasion, DefaultOccasion),
		Weather:  nonEmpty(r.Weather, NotSpecified),
		Items:    r.Items,
		Colors:   r.Colors,
		Budget:   nonEmpty(r.Budget, NotSpecified),
	}
	if out.Items == nil {
		out.Items = []string{}
	}
	if out.Colors == nil {
		out.Colors = []string{}
	}
	return out
}

func normalizeGarmentClass(c models.GarmentClass) models.GarmentClass {
	return models.GarmentClass{
		Category:    orDefault(c.Category, allowedCategories, models.CategoryTops),
		PhotoType:   orDefault(c.PhotoType, allowedPhotoTypes, models.PhotoTypeModel),
		Description: c.Description,
	}
}

// normalizeSelection remaps any out-of-range or negative index to 0 and fills
// the encouraging defaults, so the caller always gets a usable answer.
func normalizeSelection(sel models.OutfitSelection, numCandidates int) models.OutfitSelection {
	if sel.SelectedIndex < 0 || sel.SelectedIndex >= numCandidates {
		sel.SelectedIndex = 0
	}
	if sel.AlternativeIndex != nil && (*sel.AlternativeIndex < 0 || *sel.AlternativeIndex >= numCandidates) {
		sel.AlternativeIndex = nil
		sel.AlternativeReason = ""
	}
	sel.Explanation = nonEmpty(sel.Explanation, DefaultExplanation)
	sel.StylingTips = nonEmpty(sel.StylingTips, DefaultStylingTips)
	return sel
}

// validOutfitSets drops every set whose indices fall outside the current
// candidate lists. Sets are dropped, never clamped, and the output is
// truncated to numSets.
func validOutfitSets(sets []models.OutfitSet, numTops, numBottoms, numSets int) []models.OutfitSet {
	valid := make([]models.OutfitSet, 0, len(sets))
	for _, set := range sets {
		if set.TopIndex < 0 || set.TopIndex >= numTops {
			continue
		}
		if set.BottomIndex < 0 || set.BottomIndex >= numBottoms {
			continue
		}
		set.Reasoning = nonEmpty(set.Reasoning, DefaultSetReasoning)
		valid = append(valid, set)
	}
	if len(valid) > numSets {
		valid = valid[:numSets]
	}
	return valid
}

// positionalFallbackSets pairs position i of tops with position i of bottoms.
func positionalFallbackSets(numTops, numBottoms, numSets int) []models.OutfitSet {
	n := min(numSets, numTops, numBottoms)
	sets := make([]models.OutfitSet, 0, n)
	for i := 0; i < n; i++ {
		sets = append(sets, models.OutfitSet{
			TopIndex:    i,
			BottomIndex: i,
			Reasoning:   fmt.Sprintf("Pairing top %d with bottom %d for a coordinated look.", i+1, i+1),
		})
	}
	return sets
}
