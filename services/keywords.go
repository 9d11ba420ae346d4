package services

import (
	"fmt"

	"stylistapi/models"
)

// FallbackKeywordPlan synthesizes search keywords from template slots when the
// analyzer returns nothing usable for a category. It is a pure function of the
// profile and requirements, so identical inputs always produce identical
// keyword lists.
func FallbackKeywordPlan(profile models.UserProfile, req models.QueryRequirements) models.KeywordPlan {
	return models.KeywordPlan{
		TopsKeywords:    fallbackCategoryKeywords(profile, req, models.CategoryTops),
		BottomsKeywords: fallbackCategoryKeywords(profile, req, models.CategoryBottoms),
		Reasoning:       "Default keywords based on your profile and request.",
	}
}

func fallbackCategoryKeywords(profile models.UserProfile, req models.QueryRequirements, category string) []string {
	prefix := genderPrefix(profile.Gender)
	style := nonEmpty(req.Style, DefaultStyle)
	occasion := nonEmpty(req.Occasion, DefaultOccasion)

	if category == models.CategoryBottoms {
		return []string{
			fmt.Sprintf("%s %s pants", prefix, style),
			fmt.Sprintf("%s %s jeans", prefix, occasion),
			fmt.Sprintf("%s casual trousers", prefix),
		}
	}
	return []string{
		fmt.Sprintf("%s %s shirt", prefix, style),
		fmt.Sprintf("%s %s t-shirt", prefix, occasion),
		fmt.Sprintf("%s casual top", prefix),
	}
}

func genderPrefix(gender string) string {
	switch gender {
	case "male":
		return "men"
	case "female":
		return "women"
	default:
		return "unisex"
	}
}
