// Package prompt holds the instruction templates sent to the AI gateway. The
// response "schema" is enforced only by these instructions, which is why
// every reply is validated on the way back in.
package prompt

import (
	"fmt"
	"strings"

	"souschef/internal/session"
)

// Scan asks the model to identify, quantify and freshness-check everything
// visible in the submitted image or video.
const Scan = `You are an expert chef and food identification AI. Analyze this image or video carefully.

1. Identify ALL visible ingredients/food items
2. Estimate approximate quantity of each
3. Check freshness (brown spots, wilting, mold)
4. Categorize as: Vegetables, Fruits, Dairy, Protein, Grains, Spices, Other

Return ONLY valid JSON with this schema:
{
  "ingredients": [
    {
      "name": "ingredient name",
      "quantity": "estimated amount",
      "category": "Vegetables|Fruits|Dairy|Protein|Grains|Spices|Other",
      "freshness": "Fresh|Use Soon|Expired",
      "freshness_note": "short note"
    }
  ],
  "expiring_soon": ["items to use first"],
  "total_items_found": 0
}`

// IngredientLines renders the available ingredients as the bullet list the
// recipe template expects.
func IngredientLines(ingredients []session.Ingredient) string {
	lines := make([]string, 0, len(ingredients))
	for _, ing := range ingredients {
		lines = append(lines, fmt.Sprintf("- %s (%s) [%s]", ing.Name, ing.Quantity, ing.Freshness))
	}
	return strings.Join(lines, "\n")
}

// Recipes builds the text-only generation prompt from the session's
// ingredients and preferences. location is optional and omitted when empty.
func Recipes(ingredients []session.Ingredient, prefs session.Preferences, location string) string {
	locationLine := ""
	if location != "" {
		locationLine = fmt.Sprintf("- User Location: %s\n", location)
	}

	return fmt.Sprintf(`You are a world-class chef. Based on these ingredients, suggest 3 recipes.

Ingredients available:
%s

Preferences:
- Dietary Restriction: %s
- Skill Level: %s
- Max Cooking Time: %s
- Preferred Cuisine: %s
- Prioritize expiring items: %t
%s
Rules:
- Use ONLY the available ingredients (and common pantry staples like oil, salt, pepper).
- If prioritizing expiring items, at least 1 recipe must use them.
- If a specific cuisine is requested, prioritize that style.
- If "Any" cuisine is selected and location is available, you may suggest local regional variations if appropriate.
- Sort by match score.

Return ONLY valid JSON with this schema:
{
  "recipes": [
    {
      "name": "Recipe Name",
      "emoji": "single relevant emoji",
      "match_score": "X/Y",
      "time": "X min",
      "difficulty": "Easy|Medium|Hard",
      "uses_expiring": true,
      "ingredients_used": ["list"],
      "missing_ingredients": ["list"],
      "steps": ["Step 1", "Step 2"],
      "tips": "one tip"
    }
  ]
}`,
		IngredientLines(ingredients),
		prefs.Diet, prefs.Skill, prefs.Time, prefs.Cuisine, prefs.PrioritizeExpiring,
		locationLine)
}

// Feedback builds the cooking-mode prompt comparing a progress photo against
// the current recipe step.
func Feedback(recipeName, currentStep string) string {
	return fmt.Sprintf(`You are a professional chef watching someone cook. Analyze this photo.

Recipe: %s
Current Step: %s

1. Analyze what you see
2. Compare to what SHOULD be happening
3. Give specific, actionable feedback

Return ONLY valid JSON with this schema:
{
  "status": "Perfect|Good|Needs Adjustment|Wrong Step",
  "what_i_see": "brief description",
  "feedback": "actionable feedback",
  "warning": "safety concern or null",
  "next_action": "what to do next",
  "encouragement": "short motivational message"
}`, recipeName, currentStep)
}

// Substitution builds the prompt asking for a replacement for one missing
// ingredient given what is on hand.
func Substitution(recipeName, missing string, available []session.Ingredient) string {
	names := make([]string, 0, len(available))
	for _, ing := range available {
		names = append(names, ing.Name)
	}

	return fmt.Sprintf(`You are a creative chef. The user is missing an ingredient.

Recipe: %s
Missing Ingredient: %s
Available Ingredients: %s

Suggest the best substitution.

Return ONLY valid JSON with this schema:
{
  "original_ingredient": "what was needed",
  "substitute": "what to use instead",
  "amount_adjustment": "how to adjust",
  "taste_impact": "how taste changes",
  "texture_impact": "how texture changes",
  "step_adjustment": "any step changes needed",
  "confidence": "High|Medium|Low"
}`, recipeName, missing, strings.Join(names, ", "))
}
