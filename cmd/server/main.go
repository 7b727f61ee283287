package main

import (
	"fmt"
	"log"
	"os"

	"github.com/pricematch/backend/config"
	httpDelivery "github.com/pricematch/backend/internal/delivery/http"
	"github.com/pricematch/backend/internal/domain"
	"github.com/pricematch/backend/internal/infrastructure/cache"
	"github.com/pricematch/backend/internal/infrastructure/rerank"
	"github.com/pricematch/backend/internal/infrastructure/vision"
	"github.com/pricematch/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting PriceMatch Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)

	// Weight table; empty config uses the built-in defaults
	weights := usecase.DefaultWeights()
	if len(cfg.Matching.Weights) > 0 {
		weights = usecase.WeightTable(cfg.Matching.Weights)
	}
	if err := weights.Validate(); err != nil {
		log.Fatalf("Invalid weight table: %v", err)
	}

	// Visual similarity provider, wrapped in a score cache when enabled
	var visionClient domain.VisionClient
	if cfg.Vision.Enabled {
		scoreCache := cache.NewMemoryCache()
		inner := vision.NewClient(cfg.Vision.APIKey, cfg.Vision.BaseURL, cfg.RateLimit.Vision)
		visionClient = vision.NewCachedClient(inner, scoreCache, cfg.Cache.TTL)
		log.Printf("Vision provider configured: %s (cache TTL %s)", cfg.Vision.BaseURL, cfg.Cache.TTL)
	} else {
		log.Printf("Vision provider disabled; image similarity will not be scored")
	}

	// Re-ranking provider
	var reRanker domain.ReRankClient
	if cfg.ReRank.Enabled {
		reRanker = rerank.NewClient(cfg.ReRank.APIKey, cfg.ReRank.BaseURL, cfg.RateLimit.ReRank)
		log.Printf("Re-rank provider configured: %s", cfg.ReRank.BaseURL)
	} else {
		log.Printf("Re-rank provider disabled; weighted ranking is final")
	}

	// Initialize usecase layer
	normalizer := usecase.NewNormalizer(usecase.NormalizerConfig{})
	scorer := usecase.NewAttributeScorer(usecase.ScorerConfig{
		DimensionTolerance: cfg.Matching.DimensionTolerance,
		Vision:             visionClient,
		EnableDebugLogging: cfg.Matching.EnableDebugLogging,
	})
	aggregator := usecase.NewWeightedAggregator(weights)
	conflicts := usecase.NewConflictDetector()
	candidates := usecase.NewCandidateGenerator(usecase.CandidateConfig{
		K:        cfg.Matching.CandidateLimit,
		MinScore: cfg.Matching.CandidateMinScore,
	})
	houseBrand := usecase.NewHouseBrandMatcher(usecase.HouseBrandConfig{
		PriceTolerance: cfg.HouseBrand.PriceTolerance,
		SizeTolerance:  cfg.HouseBrand.SizeTolerance,
	})

	matchService := usecase.NewMatchService(
		usecase.MatchServiceConfig{
			AcceptanceThreshold: cfg.Matching.AcceptanceThreshold,
			ReRankConfidence:    cfg.Matching.ReRankConfidence,
			EnforceOneToOne:     cfg.Matching.EnforceOneToOne,
			EnableDebugLogging:  cfg.Matching.EnableDebugLogging,
		},
		normalizer,
		scorer,
		aggregator,
		conflicts,
		candidates,
		houseBrand,
		reRanker,
	)

	log.Printf("Matching: threshold=%.0f, candidates=%d, one-to-one=%v, debug=%v",
		cfg.Matching.AcceptanceThreshold,
		cfg.Matching.CandidateLimit,
		cfg.Matching.EnforceOneToOne,
		cfg.Matching.EnableDebugLogging)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(matchService)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
