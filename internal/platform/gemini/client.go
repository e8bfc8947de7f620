package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"souschef/internal/aijson"
	"souschef/internal/platform/prompt"
	"souschef/internal/session"
)

const modelName = "gemini-1.5-flash"

// Client is a client for the Gemini API. Each operation is a single
// stateless round trip with no retry.
type Client struct {
	model *genai.GenerativeModel
}

// NewClient creates a new Gemini client constrained to JSON replies.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	model := client.GenerativeModel(modelName)
	model.ResponseMIMEType = "application/json"
	return &Client{model: model}, nil
}

// generate runs one round trip and returns the reply text.
func (c *Client) generate(ctx context.Context, parts ...genai.Part) (string, error) {
	resp, err := c.model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from Gemini")
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", fmt.Errorf("unexpected response format from Gemini")
	}
	return string(text), nil
}

// ScanIngredients identifies and freshness-checks everything visible in the
// submitted media.
func (c *Client) ScanIngredients(ctx context.Context, payload []byte, mimeType string) (*session.ScanResult, error) {
	text, err := c.generate(ctx,
		genai.Blob{MIMEType: mimeType, Data: payload},
		genai.Text(prompt.Scan),
	)
	if err != nil {
		return nil, err
	}

	var result session.ScanResult
	if err := aijson.Unmarshal(text, &result); err != nil {
		return nil, err
	}
	if result.Ingredients == nil {
		return nil, fmt.Errorf("scan response missing ingredients field")
	}
	if err := session.Validate(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GenerateRecipes asks for recipe suggestions from the session's ingredients
// and preferences. location is optional.
func (c *Client) GenerateRecipes(ctx context.Context, ingredients []session.Ingredient, prefs session.Preferences, location string) ([]session.Recipe, error) {
	text, err := c.generate(ctx, genai.Text(prompt.Recipes(ingredients, prefs, location)))
	if err != nil {
		return nil, err
	}

	var result session.RecipeResult
	if err := aijson.Unmarshal(text, &result); err != nil {
		return nil, err
	}
	if result.Recipes == nil {
		return nil, fmt.Errorf("generation response missing recipes field")
	}
	if err := session.Validate(&result); err != nil {
		return nil, err
	}
	return result.Recipes, nil
}

// GetFeedback compares a cooking progress photo against the current step.
func (c *Client) GetFeedback(ctx context.Context, image []byte, recipeName, currentStep string) (*session.Feedback, error) {
	text, err := c.generate(ctx,
		genai.Blob{MIMEType: "image/jpeg", Data: image},
		genai.Text(prompt.Feedback(recipeName, currentStep)),
	)
	if err != nil {
		return nil, err
	}

	var fb session.Feedback
	if err := aijson.Unmarshal(text, &fb); err != nil {
		return nil, err
	}
	if err := session.Validate(&fb); err != nil {
		return nil, err
	}
	return &fb, nil
}

// GetSubstitution suggests a replacement for one missing ingredient.
func (c *Client) GetSubstitution(ctx context.Context, recipeName, missing string, available []session.Ingredient) (*session.Substitution, error) {
	text, err := c.generate(ctx, genai.Text(prompt.Substitution(recipeName, missing, available)))
	if err != nil {
		return nil, err
	}

	var sub session.Substitution
	if err := aijson.Unmarshal(text, &sub); err != nil {
		return nil, err
	}
	if err := session.Validate(&sub); err != nil {
		return nil, err
	}
	return &sub, nil
}
