package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"souschef/internal/flow"
	"souschef/internal/media"
	"souschef/internal/session"
)

// gatewayTimeout bounds every model round trip at the handler boundary.
const gatewayTimeout = 45 * time.Second

// Gateway defines the interface for the AI model backend. Both the Gemini
// and the local LLM clients satisfy it.
type Gateway interface {
	ScanIngredients(ctx context.Context, payload []byte, mimeType string) (*session.ScanResult, error)
	GenerateRecipes(ctx context.Context, ingredients []session.Ingredient, prefs session.Preferences, location string) ([]session.Recipe, error)
	GetFeedback(ctx context.Context, image []byte, recipeName, currentStep string) (*session.Feedback, error)
	GetSubstitution(ctx context.Context, recipeName, missing string, available []session.Ingredient) (*session.Substitution, error)
}

// Handler handles HTTP requests.
type Handler struct {
	Gateway Gateway
	Store   *session.Store
	Flow    *flow.Controller
	Logger  *zap.SugaredLogger

	mu       sync.Mutex
	location string
}

// NewHandler creates a new Handler.
func NewHandler(gateway Gateway, store *session.Store, fc *flow.Controller, logger *zap.SugaredLogger) *Handler {
	return &Handler{Gateway: gateway, Store: store, Flow: fc, Logger: logger}
}

// Register wires all routes onto the router.
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/scan", h.Scan)
	r.GET("/sessions", h.ListSessions)
	r.GET("/sessions/:id", h.GetSession)
	r.DELETE("/sessions/:id", h.DeleteSession)
	r.PUT("/sessions/:id/preferences", h.UpdatePreferences)
	r.POST("/sessions/:id/open", h.OpenSession)
	r.POST("/sessions/:id/recipes", h.GenerateRecipes)
	r.POST("/cooking/feedback", h.CookingFeedback)
	r.POST("/cooking/substitution", h.Substitution)
	r.GET("/flow", h.FlowState)
	r.POST("/flow/:event", h.FlowEvent)
	r.POST("/location", h.SetLocation)
}

func readFormFile(c *gin.Context, field string) ([]byte, error) {
	file, err := c.FormFile(field)
	if err != nil {
		return nil, err
	}
	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open file err: %w", err)
	}
	defer src.Close()
	return io.ReadAll(src)
}

// Scan handles a captured fridge photo or video: normalize, ask the gateway
// for ingredients, create a new session from the result.
func (h *Handler) Scan(c *gin.Context) {
	data, err := readFormFile(c, "file")
	if err != nil {
		h.Logger.Errorw("failed to read scan upload", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("get form err: %s", err.Error())})
		return
	}

	// The poster frame is an optional still the capture layer pulls out of a
	// video; absent for image uploads.
	poster, _ := readFormFile(c, "poster")

	if _, err := h.Flow.Apply(flow.EventSubmitMedia); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "step": h.Flow.Step()})
		return
	}

	normalized, err := media.Normalize(data, poster)
	if err != nil {
		step := h.Flow.ScanResolved(err)
		status := http.StatusBadGateway
		if errors.Is(err, media.ErrUnsupportedMedia) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error(), "step": step})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), gatewayTimeout)
	defer cancel()

	result, err := h.Gateway.ScanIngredients(ctx, normalized.Payload, normalized.MIMEType)
	observeGateway("scan", err)
	if err != nil {
		h.Logger.Errorw("scan failed", "error", err)
		step := h.Flow.ScanResolved(err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "step": step})
		return
	}

	sess := h.Store.Create(ctx, normalized.Thumbnail, result.Ingredients)
	sessionsCreated.Inc()
	step := h.Flow.ScanResolved(nil)
	h.Logger.Infow("scan succeeded", "session", sess.ID, "items", result.TotalItemsFound)

	c.JSON(http.StatusOK, gin.H{
		"session":       sess,
		"expiring_soon": result.ExpiringSoon,
		"step":          step,
	})
}

// GenerateRecipes asks the gateway for suggestions from the session's
// ingredients and preferences and stores them on the session.
func (h *Handler) GenerateRecipes(c *gin.Context) {
	id := c.Param("id")
	sess, ok := h.Store.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	if err := h.Flow.BeginGenerate(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "step": h.Flow.Step()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), gatewayTimeout)
	defer cancel()

	recipes, err := h.Gateway.GenerateRecipes(ctx, sess.Ingredients, sess.Preferences, h.Location())
	observeGateway("generate", err)
	if err != nil {
		h.Logger.Errorw("recipe generation failed", "session", id, "error", err)
		step := h.Flow.GenerateResolved(err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "step": step})
		return
	}

	// The session may outlive the view that requested this; if it still
	// exists the result is applied regardless (last response wins).
	h.Store.UpdateSession(ctx, id, session.Update{Recipes: recipes})
	step := h.Flow.GenerateResolved(nil)
	h.Logger.Infow("recipes generated", "session", id, "count", len(recipes))

	c.JSON(http.StatusOK, gin.H{"recipes": recipes, "step": step})
}

// ListSessions returns the session history, newest first.
func (h *Handler) ListSessions(c *gin.Context) {
	c.JSON(http.StatusOK, h.Store.List())
}

// GetSession returns a single session by id.
func (h *Handler) GetSession(c *gin.Context) {
	sess, ok := h.Store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, sess)
}

// DeleteSession removes a session. Removing the active one sends the flow
// back to history.
func (h *Handler) DeleteSession(c *gin.Context) {
	id := c.Param("id")
	wasActive := h.Store.ActiveID() == id
	h.Store.Delete(c.Request.Context(), id)

	step := h.Flow.Step()
	if wasActive {
		step = h.Flow.ActiveDeleted()
	}
	c.JSON(http.StatusOK, gin.H{"step": step})
}

// UpdatePreferences merges new preferences into the session.
func (h *Handler) UpdatePreferences(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.Store.Get(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	var prefs session.Preferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.Store.UpdateSession(c.Request.Context(), id, session.Update{Preferences: &prefs})
	c.JSON(http.StatusOK, gin.H{"preferences": prefs})
}

// OpenSession loads a session from history and moves the flow to recipes or
// ingredients depending on whether recipes were generated already.
func (h *Handler) OpenSession(c *gin.Context) {
	id := c.Param("id")
	sess, ok := h.Store.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	if err := h.Store.SetActive(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	step, err := h.Flow.LoadSession(len(sess.Recipes) > 0)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "step": h.Flow.Step()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess, "step": step})
}

// CookingFeedback checks a progress photo against the current recipe step.
// Failures come back as a failed-state Feedback object, not an error status:
// the cooking view renders them inline.
func (h *Handler) CookingFeedback(c *gin.Context) {
	recipeName := c.PostForm("recipe")
	currentStep := c.PostForm("step")

	image, err := readFormFile(c, "file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("get form err: %s", err.Error())})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), gatewayTimeout)
	defer cancel()

	fb, err := h.Gateway.GetFeedback(ctx, image, recipeName, currentStep)
	observeGateway("feedback", err)
	if err != nil {
		h.Logger.Errorw("cooking feedback failed", "recipe", recipeName, "error", err)
		fb = &session.Feedback{
			Status:   "Error",
			Feedback: "Failed to get feedback. Try again.",
		}
	}
	c.JSON(http.StatusOK, fb)
}

type substitutionRequest struct {
	Recipe            string `json:"recipe" binding:"required"`
	MissingIngredient string `json:"missing_ingredient" binding:"required"`
}

// Substitution suggests a replacement for a missing ingredient using the
// active session's items as the available set. Like feedback, failures are
// returned as a failed-state object.
func (h *Handler) Substitution(c *gin.Context) {
	var req substitutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, ok := h.Store.Active()
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "no active session"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), gatewayTimeout)
	defer cancel()

	sub, err := h.Gateway.GetSubstitution(ctx, req.Recipe, req.MissingIngredient, sess.Ingredients)
	observeGateway("substitution", err)
	if err != nil {
		h.Logger.Errorw("substitution failed", "ingredient", req.MissingIngredient, "error", err)
		sub = &session.Substitution{
			OriginalIngredient: req.MissingIngredient,
			Confidence:         "Low",
			Error:              "Failed to find substitution.",
		}
	}
	c.JSON(http.StatusOK, sub)
}

// FlowState reports where the journey currently stands.
func (h *Handler) FlowState(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"step":              h.Flow.Step(),
		"active_session_id": h.Store.ActiveID(),
		"error":             h.Flow.LastError(),
	})
}

// FlowEvent applies a navigation event by name.
func (h *Handler) FlowEvent(c *gin.Context) {
	event := flow.Event(c.Param("event"))
	step, err := h.Flow.Apply(event)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "step": step})
		return
	}
	c.JSON(http.StatusOK, gin.H{"step": step})
}

type locationRequest struct {
	Lat  float64 `json:"lat" binding:"required"`
	Long float64 `json:"long" binding:"required"`
}

// SetLocation records the client's best-effort geolocation; it rides along on
// later generation prompts. Denial is silent: the client simply never posts.
func (h *Handler) SetLocation(c *gin.Context) {
	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.mu.Lock()
	h.location = fmt.Sprintf("Lat: %v, Long: %v", req.Lat, req.Long)
	h.mu.Unlock()
	c.Status(http.StatusNoContent)
}

// Location returns the recorded geolocation string, "" when unknown.
func (h *Handler) Location() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.location
}
