package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pricematch/backend/config"
	"github.com/pricematch/backend/internal/domain"
	"github.com/pricematch/backend/internal/usecase"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	// Set Gin to test mode once for all tests
	gin.SetMode(gin.TestMode)

	exitCode := m.Run()

	os.Exit(exitCode)
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"https://dashboard.pricematch.io", "http://localhost:3000"},
		},
	}
}

// setupTestRouter creates a test router without a matching service; the
// match endpoints then answer 501.
func setupTestRouter() *gin.Engine {
	handler := NewHandler(nil)
	if handler == nil {
		panic("setupTestRouter: NewHandler returned nil")
	}

	router := SetupRouter(testConfig(), handler)
	if router == nil {
		panic("setupTestRouter: SetupRouter returned nil *gin.Engine")
	}

	return router
}

// setupTestRouterWithService creates a test router with a fully wired
// matching pipeline (no external providers).
func setupTestRouterWithService() *gin.Engine {
	normalizer := usecase.NewNormalizer(usecase.NormalizerConfig{})
	scorer := usecase.NewAttributeScorer(usecase.ScorerConfig{})
	aggregator := usecase.NewWeightedAggregator(usecase.DefaultWeights())
	conflicts := usecase.NewConflictDetector()
	candidates := usecase.NewCandidateGenerator(usecase.CandidateConfig{})
	houseBrand := usecase.NewHouseBrandMatcher(usecase.HouseBrandConfig{})

	service := usecase.NewMatchService(
		usecase.MatchServiceConfig{},
		normalizer,
		scorer,
		aggregator,
		conflicts,
		candidates,
		houseBrand,
		nil,
	)

	handler := NewHandler(service)
	return SetupRouter(testConfig(), handler)
}

// TestHealthCheckEndpoint tests the health check endpoint
func TestHealthCheckEndpoint(t *testing.T) {
	t.Run("returns healthy status", func(t *testing.T) {
		router := setupTestRouter()

		req, _ := http.NewRequest("GET", "/health", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		var response map[string]interface{}
		err := json.Unmarshal(w.Body.Bytes(), &response)
		if err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}

		if response["status"] != "healthy" {
			t.Errorf("status = %v, want healthy", response["status"])
		}
		if response["service"] != "pricematch-backend" {
			t.Errorf("service = %v, want pricematch-backend", response["service"])
		}
		version, ok := response["version"].(string)
		if !ok || strings.TrimSpace(version) == "" {
			t.Errorf("version = %v, want non-empty string", response["version"])
		}
	})

	t.Run("accepts GET requests only", func(t *testing.T) {
		router := setupTestRouter()

		methods := []string{"POST", "PUT", "DELETE", "PATCH"}

		for _, method := range methods {
			req, _ := http.NewRequest(method, "/health", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != http.StatusNotFound {
				t.Errorf("Method %s: Status = %d, want %d", method, w.Code, http.StatusNotFound)
			}
		}
	})
}

// TestMatchEndpoint_NoService tests the match endpoint without a service
func TestMatchEndpoint_NoService(t *testing.T) {
	t.Run("returns not implemented status", func(t *testing.T) {
		router := setupTestRouter()

		payload := `{"source":[],"target":[]}`
		req, _ := http.NewRequest("POST", "/api/v1/match", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusNotImplemented {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusNotImplemented)
		}

		var response map[string]interface{}
		err := json.Unmarshal(w.Body.Bytes(), &response)
		if err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}

		errorMsg, ok := response["error"].(string)
		if !ok {
			t.Errorf("error field is not a string: %v", response["error"])
		} else if !strings.Contains(errorMsg, "not configured") {
			t.Errorf("error = %q, want to contain 'not configured'", errorMsg)
		}
	})

	t.Run("validates HTTP method", func(t *testing.T) {
		router := setupTestRouter()

		methods := []string{"GET", "PUT", "DELETE", "PATCH"}

		for _, method := range methods {
			req, _ := http.NewRequest(method, "/api/v1/match", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != http.StatusNotFound {
				t.Errorf("Method %s: Status = %d, want %d", method, w.Code, http.StatusNotFound)
			}
		}
	})

	t.Run("requires correct path", func(t *testing.T) {
		router := setupTestRouter()

		incorrectPaths := []string{
			"/api/v1/matching",
			"/api/match",
			"/match",
		}

		for _, path := range incorrectPaths {
			req, _ := http.NewRequest("POST", path, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != http.StatusNotFound {
				t.Errorf("Path %s: Status = %d, want %d", path, w.Code, http.StatusNotFound)
			}
		}
	})
}

// TestCORSIntegration tests CORS headers work end-to-end with full router
func TestCORSIntegration(t *testing.T) {
	t.Run("health endpoint has CORS for dashboard", func(t *testing.T) {
		router := setupTestRouter()

		req, _ := http.NewRequest("GET", "/health", nil)
		req.Header.Set("Origin", "https://dashboard.pricematch.io")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		gotOrigin := w.Header().Get("Access-Control-Allow-Origin")
		if gotOrigin != "https://dashboard.pricematch.io" {
			t.Errorf("Access-Control-Allow-Origin = %q, want %q", gotOrigin, "https://dashboard.pricematch.io")
		}

		gotCreds := w.Header().Get("Access-Control-Allow-Credentials")
		if gotCreds != "true" {
			t.Errorf("Access-Control-Allow-Credentials = %q, want %q", gotCreds, "true")
		}
	})

	t.Run("match endpoint has CORS for localhost", func(t *testing.T) {
		router := setupTestRouter()

		req, _ := http.NewRequest("POST", "/api/v1/match", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		gotOrigin := w.Header().Get("Access-Control-Allow-Origin")
		if gotOrigin != "http://localhost:3000" {
			t.Errorf("Access-Control-Allow-Origin = %q, want %q", gotOrigin, "http://localhost:3000")
		}
	})
}

// TestRecoveryMiddleware tests panic recovery
func TestRecoveryMiddleware(t *testing.T) {
	t.Run("recovers from panic without crashing server", func(t *testing.T) {
		router := setupTestRouter()

		router.GET("/panic", func(c *gin.Context) {
			panic("test panic")
		})

		req, _ := http.NewRequest("GET", "/panic", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		// Gin's default recovery returns 500
		if w.Code != http.StatusInternalServerError {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusInternalServerError)
		}
	})
}

// TestMatchWithService tests the match endpoint with a real pipeline
func TestMatchWithService(t *testing.T) {
	t.Run("returns matches for valid catalogs", func(t *testing.T) {
		router := setupTestRouterWithService()

		payload := `{
			"source": [
				{"id": "tw-1", "name": "TOA JOTASHIELD SEMI-GLOSS 9 L", "retailer": "thaiwatsadu", "price": 1500, "brand": "TOA"}
			],
			"target": [
				{"id": "hp-1", "name": "TOA JOTASHIELD SEMI-GLOSS 9 L", "retailer": "homepro", "price": 1390, "brand": "TOA"},
				{"id": "hp-2", "name": "POWER DRILL 600 W", "retailer": "homepro", "price": 2200}
			]
		}`
		req, _ := http.NewRequest("POST", "/api/v1/match", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d, body: %s", w.Code, http.StatusOK, w.Body.String())
		}

		var report domain.MatchReport
		if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}

		if report.MatchedCount != 1 {
			t.Fatalf("MatchedCount = %d, want 1", report.MatchedCount)
		}
		if report.Results[0].SourceID != "tw-1" || report.Results[0].TargetID != "hp-1" {
			t.Errorf("Result = %s -> %s, want tw-1 -> hp-1",
				report.Results[0].SourceID, report.Results[0].TargetID)
		}
		if report.Results[0].PriceDelta != -110 {
			t.Errorf("PriceDelta = %v, want -110", report.Results[0].PriceDelta)
		}
	})

	t.Run("reports skipped records for malformed entries", func(t *testing.T) {
		router := setupTestRouterWithService()

		payload := `{
			"source": [
				{"id": "tw-1", "name": "TOA JOTASHIELD 9 L", "retailer": "thaiwatsadu", "price": 1500},
				{"id": "tw-2", "name": "", "retailer": "thaiwatsadu", "price": 100}
			],
			"target": [
				{"id": "hp-1", "name": "TOA JOTASHIELD 9 L", "retailer": "homepro", "price": 1390}
			]
		}`
		req, _ := http.NewRequest("POST", "/api/v1/match", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d, body: %s", w.Code, http.StatusOK, w.Body.String())
		}

		var report domain.MatchReport
		if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}

		if len(report.SkippedSource) != 1 {
			t.Fatalf("SkippedSource = %d entries, want 1", len(report.SkippedSource))
		}
		if report.SkippedSource[0].Reason != "missing name" {
			t.Errorf("Reason = %q, want %q", report.SkippedSource[0].Reason, "missing name")
		}
	})

	t.Run("returns 400 for empty catalogs", func(t *testing.T) {
		router := setupTestRouterWithService()

		payload := `{"source":[],"target":[]}`
		req, _ := http.NewRequest("POST", "/api/v1/match", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}

		var response map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if response["error"] == nil {
			t.Error("expected error field in response")
		}
	})

	t.Run("returns 400 for invalid JSON", func(t *testing.T) {
		router := setupTestRouterWithService()

		payload := `{invalid json}`
		req, _ := http.NewRequest("POST", "/api/v1/match", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

// TestHouseBrandEndpoint tests the house-brand match endpoint
func TestHouseBrandEndpoint(t *testing.T) {
	t.Run("returns cross-brand equivalents", func(t *testing.T) {
		router := setupTestRouterWithService()

		payload := `{
			"source": [
				{"id": "tw-1", "name": "ชั้นวาง 5 ชั้น 60X30X150CM", "retailer": "thaiwatsadu", "price": 900, "brand": "KASSA", "category": "SHELF"}
			],
			"target": [
				{"id": "hp-1", "name": "SHELF 5 TIER 60X30X150CM", "retailer": "homepro", "price": 950, "brand": "FONTE", "category": "SHELF"}
			]
		}`
		req, _ := http.NewRequest("POST", "/api/v1/match/house-brand", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d, body: %s", w.Code, http.StatusOK, w.Body.String())
		}

		var report domain.MatchReport
		if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}

		if report.MatchedCount != 1 {
			t.Fatalf("MatchedCount = %d, want 1, body: %s", report.MatchedCount, w.Body.String())
		}
		if report.Results[0].Method != domain.MethodHouseBrand {
			t.Errorf("Method = %s, want %s", report.Results[0].Method, domain.MethodHouseBrand)
		}
	})

	t.Run("same brand on both sides yields no match", func(t *testing.T) {
		router := setupTestRouterWithService()

		payload := `{
			"source": [
				{"id": "tw-1", "name": "SHELF 5 TIER", "retailer": "thaiwatsadu", "price": 900, "brand": "KASSA", "category": "SHELF"}
			],
			"target": [
				{"id": "hp-1", "name": "SHELF 5 TIER", "retailer": "homepro", "price": 950, "brand": "KASSA", "category": "SHELF"}
			]
		}`
		req, _ := http.NewRequest("POST", "/api/v1/match/house-brand", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		var report domain.MatchReport
		if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}

		if report.MatchedCount != 0 {
			t.Errorf("MatchedCount = %d, want 0 for same-brand pair", report.MatchedCount)
		}
	})
}

// TestJSONResponses tests that all responses are valid JSON
func TestJSONResponses(t *testing.T) {
	endpoints := []struct {
		method string
		path   string
	}{
		{"GET", "/health"},
		{"POST", "/api/v1/match"},
		{"POST", "/api/v1/match/house-brand"},
	}

	for _, endpoint := range endpoints {
		t.Run(endpoint.method+" "+endpoint.path, func(t *testing.T) {
			router := setupTestRouter()

			req, _ := http.NewRequest(endpoint.method, endpoint.path, nil)
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			gotContentType := w.Header().Get("Content-Type")
			wantContentType := "application/json; charset=utf-8"
			if gotContentType != wantContentType {
				t.Errorf("Content-Type = %q, want %q", gotContentType, wantContentType)
			}

			var response map[string]interface{}
			err := json.Unmarshal(w.Body.Bytes(), &response)
			if err != nil {
				t.Errorf("Response should be valid JSON, got error: %v", err)
			}
		})
	}
}
