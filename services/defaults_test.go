package services

import (
	"testing"

	"stylistapi/models"

	"github.com/stretchr/testify/assert"
)

func intPtr(i int) *int {
	return &i
}

func TestNormalizeSelectionOutOfRange(t *testing.T) {
	sel := normalizeSelection(models.OutfitSelection{SelectedIndex: 99}, 3)
	assert.Equal(t, 0, sel.SelectedIndex)
	assert.Equal(t, DefaultExplanation, sel.Explanation)
	assert.Equal(t, DefaultStylingTips, sel.StylingTips)

	sel = normalizeSelection(models.OutfitSelection{SelectedIndex: -1}, 3)
	assert.Equal(t, 0, sel.SelectedIndex)
}

func TestNormalizeSelectionKeepsValid(t *testing.T) {
	sel := normalizeSelection(models.OutfitSelection{
		SelectedIndex:     2,
		Explanation:       "fits the occasion",
		StylingTips:       "add a belt",
		AlternativeIndex:  intPtr(1),
		AlternativeReason: "more formal",
	}, 3)
	assert.Equal(t, 2, sel.SelectedIndex)
	assert.Equal(t, "fits the occasion", sel.Explanation)
	assert.Equal(t, 1, *sel.AlternativeIndex)
	assert.Equal(t, "more formal", sel.AlternativeReason)
}

func TestNormalizeSelectionInvalidAlternative(t *testing.T) {
	sel := normalizeSelection(models.OutfitSelection{
		SelectedIndex:     0,
		AlternativeIndex:  intPtr(7),
		AlternativeReason: "stale",
	}, 3)
	assert.Nil(t, sel.AlternativeIndex)
	assert.Empty(t, sel.AlternativeReason)
}

func TestValidOutfitSetsDropsOutOfRange(t *testing.T) {
	sets := validOutfitSets([]models.OutfitSet{
		{TopIndex: 0, BottomIndex: 1, Reasoning: "keep"},
		{TopIndex: 5, BottomIndex: 0},
		{TopIndex: 1, BottomIndex: -1},
		{TopIndex: 2, BottomIndex: 0},
	}, 3, 2, 3)

	assert.Len(t, sets, 2)
	assert.Equal(t, 0, sets[0].TopIndex)
	assert.Equal(t, 1, sets[0].BottomIndex)
	assert.Equal(t, "keep", sets[0].Reasoning)
	assert.Equal(t, 2, sets[1].TopIndex)
	assert.Equal(t, DefaultSetReasoning, sets[1].Reasoning)
}

func TestValidOutfitSetsTruncates(t *testing.T) {
	sets := validOutfitSets([]models.OutfitSet{
		{TopIndex: 0, BottomIndex: 0},
		{TopIndex: 1, BottomIndex: 1},
		{TopIndex: 2, BottomIndex: 1},
	}, 3, 2, 2)
	assert.Len(t, sets, 2)
}

func TestPositionalFallbackSets(t *testing.T) {
	sets := positionalFallbackSets(4, 2, 3)
	assert.Len(t, sets, 2)
	for i, set := range sets {
		assert.Equal(t, i, set.TopIndex)
		assert.Equal(t, i, set.BottomIndex)
		assert.NotEmpty(t, set.Reasoning)
	}
}

func TestPositionalFallbackSetsEmptyPool(t *testing.T) {
	assert.Empty(t, positionalFallbackSets(0, 3, 3))
	assert.Empty(t, positionalFallbackSets(3, 0, 3))
}

func TestNormalizeProfileDefaults(t *testing.T) {
	profile := normalizeProfile(models.UserProfile{BodyShape: "banana", SkinTone: "", Gender: "robot"})
	assert.Equal(t, DefaultBodyShape, profile.BodyShape)
	assert.Equal(t, DefaultSkinTone, profile.SkinTone)
	assert.Equal(t, DefaultGender, profile.Gender)
	assert.Equal(t, DefaultStyle, profile.CurrentStyle)

	profile = normalizeProfile(models.UserProfile{BodyShape: "athletic", SkinTone: "olive", Gender: "female", CurrentStyle: "streetwear"})
	assert.Equal(t, "athletic", profile.BodyShape)
	assert.Equal(t, "olive", profile.SkinTone)
	assert.Equal(t, "female", profile.Gender)
	assert.Equal(t, "streetwear", profile.CurrentStyle)
}

func TestNormalizeGarmentClass(t *testing.T) {
	class := normalizeGarmentClass(models.GarmentClass{Category: "hat", PhotoType: "hologram"})
	assert.Equal(t, models.CategoryTops, class.Category)
	assert.Equal(t, models.PhotoTypeModel, class.PhotoType)

	class = normalizeGarmentClass(models.GarmentClass{Category: models.CategoryBottoms, PhotoType: models.PhotoTypeFlatLay, Description: "denim"})
	assert.Equal(t, models.CategoryBottoms, class.Category)
	assert.Equal(t, models.PhotoTypeFlatLay, class.PhotoType)
	assert.Equal(t, "denim", class.Description)
}

func TestNormalizeRequirementsFillsEmpty(t *testing.T) {
	req := normalizeRequirements(models.QueryRequirements{})
	assert.Equal(t, DefaultStyle, req.Style)
	assert.Equal(t, DefaultOccasion, req.Occasion)
	assert.Equal(t, NotSpecified, req.Weather)
	assert.Equal(t, NotSpecified, req.Budget)
	assert.NotNil(t, req.Items)
	assert.NotNil(t, req.Colors)
}
