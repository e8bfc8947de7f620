package localllm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"souschef/internal/aijson"
	"souschef/internal/platform/prompt"
	"souschef/internal/session"
)

// DefaultURL is where an OpenAI-compatible server usually listens locally.
const DefaultURL = "http://localhost:1234/v1/chat/completions"

// Client talks to a local OpenAI-compatible model server. It implements the
// same gateway contract as the Gemini client and is selected by config when
// running without cloud access.
type Client struct {
	httpClient *http.Client
	apiURL     string
}

// NewClient creates a new client for the local LLM.
func NewClient(apiURL string) *Client {
	if apiURL == "" {
		apiURL = DefaultURL
	}
	return &Client{
		httpClient: &http.Client{},
		apiURL:     apiURL,
	}
}

// Request represents the request body for the local LLM.
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

// Message represents a message in the request.
type Message struct {
	Role    string    `json:"role"`
	Content []Content `json:"content"`
}

// Content represents the content of a message.
type Content struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL represents the image URL in the content.
type ImageURL struct {
	URL string `json:"url"`
}

// Response represents the response from the local LLM.
type Response struct {
	Choices []Choice `json:"choices"`
}

// Choice represents a choice in the response.
type Choice struct {
	Message ResponseMessage `json:"message"`
}

// ResponseMessage represents a message in the response.
type ResponseMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// generateContent sends one request to the local LLM and returns the reply
// text. media is optional; when present it rides along as an inline data URL.
func (c *Client) generateContent(ctx context.Context, text string, media []byte, mimeType string) (string, error) {
	content := []Content{{Type: "text", Text: text}}
	if len(media) > 0 {
		content = append(content, Content{
			Type: "image_url",
			ImageURL: &ImageURL{
				URL: fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(media)),
			},
		})
	}

	reqBody := Request{
		Model:       "gemma-3-12b-it:2",
		Messages:    []Message{{Role: "user", Content: content}},
		Temperature: 1,
		MaxTokens:   2048,
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewBuffer(reqBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("received non-OK status code: %d", resp.StatusCode)
	}

	var llmResp Response
	if err := json.NewDecoder(resp.Body).Decode(&llmResp); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}

	if len(llmResp.Choices) == 0 {
		return "", fmt.Errorf("no content found in response")
	}
	return llmResp.Choices[0].Message.Content, nil
}

// ScanIngredients identifies ingredients in the submitted media.
func (c *Client) ScanIngredients(ctx context.Context, payload []byte, mimeType string) (*session.ScanResult, error) {
	text, err := c.generateContent(ctx, prompt.Scan, payload, mimeType)
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

// GenerateRecipes asks for recipe suggestions.
func (c *Client) GenerateRecipes(ctx context.Context, ingredients []session.Ingredient, prefs session.Preferences, location string) ([]session.Recipe, error) {
	text, err := c.generateContent(ctx, prompt.Recipes(ingredients, prefs, location), nil, "")
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
	text, err := c.generateContent(ctx, prompt.Feedback(recipeName, currentStep), image, "image/jpeg")
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
	text, err := c.generateContent(ctx, prompt.Substitution(recipeName, missing, available), nil, "")
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
