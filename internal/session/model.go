package session

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Ingredient is a single item detected in a fridge scan. Ingredients are
// produced only by the gateway's scan response and are immutable once
// attached to a session.
type Ingredient struct {
	Name          string `json:"name" validate:"required"`
	Quantity      string `json:"quantity"`
	Category      string `json:"category" validate:"required,oneof=Vegetables Fruits Dairy Protein Grains Spices Other"`
	Freshness     string `json:"freshness" validate:"required,oneof=Fresh 'Use Soon' Expired"`
	FreshnessNote string `json:"freshness_note,omitempty"`
}

// ScanResult is the gateway's scan response.
type ScanResult struct {
	Ingredients     []Ingredient `json:"ingredients" validate:"dive"`
	ExpiringSoon    []string     `json:"expiring_soon"`
	TotalItemsFound int          `json:"total_items_found"`
}

// Recipe is one suggestion from the gateway's generate response.
type Recipe struct {
	Name               string   `json:"name" validate:"required"`
	Emoji              string   `json:"emoji"`
	MatchScore         string   `json:"match_score"`
	Time               string   `json:"time"`
	Difficulty         string   `json:"difficulty" validate:"omitempty,oneof=Easy Medium Hard"`
	UsesExpiring       bool     `json:"uses_expiring"`
	IngredientsUsed    []string `json:"ingredients_used"`
	MissingIngredients []string `json:"missing_ingredients"`
	Steps              []string `json:"steps" validate:"required,min=1"`
	Tips               string   `json:"tips"`
}

// RecipeResult is the gateway's generate response.
type RecipeResult struct {
	Recipes []Recipe `json:"recipes" validate:"dive"`
}

// Preferences are the user's recipe-generation preferences. One value per
// session, mutable until generation.
type Preferences struct {
	Diet               string `json:"diet"`
	Skill              string `json:"skill"`
	Time               string `json:"time"`
	Cuisine            string `json:"cuisine"`
	PrioritizeExpiring bool   `json:"prioritizeExpiring"`
}

// DefaultPreferences returns the preferences a new session starts with.
func DefaultPreferences() Preferences {
	return Preferences{
		Diet:               "None",
		Skill:              "Beginner",
		Time:               "Under 30 Min",
		Cuisine:            "Any",
		PrioritizeExpiring: true,
	}
}

// FridgeSession bundles one fridge scan: the captured image, the detected
// ingredients, the user's preferences and any generated recipes.
type FridgeSession struct {
	ID             string       `json:"id"`
	Timestamp      int64        `json:"timestamp"`
	ImageThumbnail string       `json:"imageThumbnail"`
	Ingredients    []Ingredient `json:"ingredients"`
	Recipes        []Recipe     `json:"recipes"`
	Preferences    Preferences  `json:"preferences"`
}

// Feedback is the gateway's cooking-step assessment. Ephemeral: it belongs to
// the cooking view only and is never persisted into a session.
type Feedback struct {
	Status        string `json:"status" validate:"required,oneof=Perfect Good 'Needs Adjustment' 'Wrong Step' Error"`
	WhatISee      string `json:"what_i_see,omitempty"`
	Feedback      string `json:"feedback"`
	Warning       string `json:"warning,omitempty"`
	NextAction    string `json:"next_action,omitempty"`
	Encouragement string `json:"encouragement,omitempty"`
}

// Substitution is the gateway's replacement suggestion for a missing
// ingredient. Ephemeral, like Feedback.
type Substitution struct {
	OriginalIngredient string `json:"original_ingredient"`
	Substitute         string `json:"substitute"`
	AmountAdjustment   string `json:"amount_adjustment"`
	TasteImpact        string `json:"taste_impact"`
	TextureImpact      string `json:"texture_impact"`
	StepAdjustment     string `json:"step_adjustment,omitempty"`
	Confidence         string `json:"confidence" validate:"omitempty,oneof=High Medium Low"`
	Error              string `json:"error,omitempty"`
}

var validate = validator.New()

// Validate checks an entity built from gateway output against the model's
// required fields and enumerations. The gateway's schema is only enforced by
// prompting, so everything it returns is treated as untrusted input and
// rejected here rather than propagated partially shaped.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("response failed validation: %w", err)
	}
	return nil
}
