package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"souschef/internal/api"
	"souschef/internal/flow"
	"souschef/internal/platform/gemini"
	"souschef/internal/platform/localllm"
	"souschef/internal/session"
)

// Config represents the application configuration. config.json values can be
// overridden from the environment.
type Config struct {
	GeminiAPIKey string `json:"gemini_api_key"`
	DatabaseURL  string `json:"DATABASE_URL"`
	Port         string `json:"port"`
	UseLocalLLM  bool   `json:"use_local_llm"`
	LocalLLMURL  string `json:"local_llm_url"`
}

func loadConfig() (Config, error) {
	// Missing .env is fine, the environment may be set directly.
	_ = godotenv.Load()

	var config Config
	if data, err := os.ReadFile("config.json"); err == nil {
		if err := json.Unmarshal(data, &config); err != nil {
			return config, fmt.Errorf("failed to unmarshal config.json: %w", err)
		}
	}

	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		config.GeminiAPIKey = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		config.DatabaseURL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		config.Port = v
	}
	if v := os.Getenv("LOCAL_LLM_URL"); v != "" {
		config.LocalLLMURL = v
		config.UseLocalLLM = true
	}
	if config.Port == "" {
		config.Port = "8080"
	}
	return config, nil
}

func main() {
	ctx := context.Background()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Errorf("error creating logger: %w", err))
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	config, err := loadConfig()
	if err != nil {
		sugar.Fatalw("failed to load configuration", "error", err)
	}

	var gateway api.Gateway
	if config.UseLocalLLM {
		gateway = localllm.NewClient(config.LocalLLMURL)
		sugar.Infow("using local LLM gateway", "url", config.LocalLLMURL)
	} else {
		geminiClient, err := gemini.NewClient(ctx, config.GeminiAPIKey)
		if err != nil {
			sugar.Fatalw("error creating gemini client", "error", err)
		}
		gateway = geminiClient
	}

	persist, err := session.NewPostgresStore(config.DatabaseURL)
	if err != nil {
		sugar.Fatalw("error creating postgres store", "error", err)
	}

	store := session.NewStore(ctx, persist, sugar)
	controller := flow.NewController(store)
	handler := api.NewHandler(gateway, store, controller, sugar)

	r := gin.Default()

	// Configure CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:8081"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	handler.Register(r)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	sugar.Infow("listening", "port", config.Port)
	if err := r.Run(":" + config.Port); err != nil {
		sugar.Fatalw("server exited", "error", err)
	}
}
