package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"souschef/internal/session"
)

func TestIngredientLines(t *testing.T) {
	got := IngredientLines([]session.Ingredient{
		{Name: "Milk", Quantity: "1L", Freshness: "Fresh"},
		{Name: "Spinach", Quantity: "1 bag", Freshness: "Use Soon"},
	})
	assert.Equal(t, "- Milk (1L) [Fresh]\n- Spinach (1 bag) [Use Soon]", got)
}

func TestRecipes_IncludesPreferences(t *testing.T) {
	prefs := session.Preferences{Diet: "Vegan", Skill: "Beginner", Time: "Under 30 Min", Cuisine: "Thai", PrioritizeExpiring: true}
	p := Recipes([]session.Ingredient{{Name: "Tofu", Quantity: "200g", Freshness: "Fresh"}}, prefs, "")

	assert.Contains(t, p, "- Tofu (200g) [Fresh]")
	assert.Contains(t, p, "Dietary Restriction: Vegan")
	assert.Contains(t, p, "Skill Level: Beginner")
	assert.Contains(t, p, "Max Cooking Time: Under 30 Min")
	assert.Contains(t, p, "Preferred Cuisine: Thai")
	assert.Contains(t, p, "Prioritize expiring items: true")
	assert.NotContains(t, p, "User Location")
}

func TestRecipes_OptionalLocation(t *testing.T) {
	p := Recipes(nil, session.DefaultPreferences(), "Lat: 48.1, Long: 11.5")
	assert.Contains(t, p, "- User Location: Lat: 48.1, Long: 11.5")
}

func TestFeedback_EmbedsRecipeAndStep(t *testing.T) {
	p := Feedback("Shakshuka", "Crack the eggs into the sauce")
	assert.Contains(t, p, "Recipe: Shakshuka")
	assert.Contains(t, p, "Current Step: Crack the eggs into the sauce")
}

func TestSubstitution_JoinsAvailableNames(t *testing.T) {
	p := Substitution("Carbonara", "Pancetta", []session.Ingredient{
		{Name: "Bacon"}, {Name: "Eggs"}, {Name: "Parmesan"},
	})
	assert.Contains(t, p, "Missing Ingredient: Pancetta")
	assert.Contains(t, p, "Available Ingredients: Bacon, Eggs, Parmesan")
}

func TestScanPromptDemandsJSONSchema(t *testing.T) {
	assert.True(t, strings.Contains(Scan, `"ingredients"`))
	assert.True(t, strings.Contains(Scan, `"expiring_soon"`))
	assert.True(t, strings.Contains(Scan, `"total_items_found"`))
}
