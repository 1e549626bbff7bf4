package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/alvintehg/fhri/internal/api"
	"github.com/alvintehg/fhri/internal/calib"
	"github.com/alvintehg/fhri/internal/embed"
	"github.com/alvintehg/fhri/internal/evidence"
	"github.com/alvintehg/fhri/internal/fhri"
	"github.com/alvintehg/fhri/internal/gate"
	"github.com/alvintehg/fhri/internal/metrics"
	"github.com/alvintehg/fhri/internal/nli"
	"github.com/alvintehg/fhri/internal/pairstore"
	"github.com/alvintehg/fhri/internal/pipeline"
	"github.com/alvintehg/fhri/pkg/otel"
)

type Server struct {
	evaluator   *pipeline.Evaluator
	store       pairstore.Store
	metrics     *metrics.Metrics
	limiter     *rate.Limiter
	metricsAuth struct {
		enabled  bool
		user     string
		password string
	}
}

func main() {
	params := api.DefaultEngineParams()
	params.SimilarityThreshold = getEnvFloat("GATE_SIMILARITY_THRESHOLD", params.SimilarityThreshold)
	params.VetoThreshold = getEnvFloat("VETO_THRESHOLD", params.VetoThreshold)
	params.ModerateThreshold = getEnvFloat("MODERATE_THRESHOLD", params.ModerateThreshold)
	params.DefaultThreshold = getEnvFloat("DEFAULT_THRESHOLD", params.DefaultThreshold)
	if err := params.Validate(); err != nil {
		log.Fatalf("Invalid engine params: %v", err)
	}

	// Pairstore backend
	storeBackend := getEnv("PAIRSTORE_BACKEND", "memory")
	var store pairstore.Store
	var memStore *pairstore.MemoryStore
	var snapshotPath string
	var err error

	switch storeBackend {
	case "memory":
		snapshotPath = getEnv("PAIRSTORE_SNAPSHOT", "data/pairs.json")
		memStore = pairstore.NewMemoryStore()
		if err := memStore.LoadSnapshot(snapshotPath); err != nil {
			log.Fatalf("Failed to load pairstore snapshot: %v", err)
		}
		store = memStore
	case "redis":
		redisAddr := getEnv("REDIS_ADDR", "localhost:6379")
		redisPass := getEnv("REDIS_PASSWORD", "")
		redisDB := getEnvInt("REDIS_DB", 0)
		ttl := time.Duration(getEnvInt("PAIRSTORE_TTL_HOURS", 24)) * time.Hour
		store, err = pairstore.NewRedisStore(redisAddr, redisPass, redisDB, ttl)
		if err != nil {
			log.Fatalf("Failed to create Redis pairstore: %v", err)
		}
	case "postgres":
		connStr := getEnv("POSTGRES_CONN", "")
		store, err = pairstore.NewPostgresStore(connStr)
		if err != nil {
			log.Fatalf("Failed to create Postgres pairstore: %v", err)
		}
	default:
		log.Fatalf("Unknown PAIRSTORE_BACKEND: %s", storeBackend)
	}

	// NLI classifier: HTTP endpoint when configured, lexical fallback otherwise
	var classifier nli.Classifier
	if endpoint := getEnv("NLI_ENDPOINT", ""); endpoint != "" {
		qps := getEnvInt("NLI_QPS", 10)
		classifier = nli.NewHTTPClassifier(endpoint, params.NLITimeout, qps)
	} else {
		log.Println("NLI_ENDPOINT not set, using lexical fallback classifier")
		classifier = nli.NewLexicalClassifier()
	}
	cacheSize := getEnvInt("NLI_CACHE_SIZE", 4096)
	cacheTTL := time.Duration(getEnvInt("NLI_CACHE_TTL_MINUTES", 60)) * time.Minute
	cached, err := nli.NewCachedClassifier(classifier, cacheSize, cacheTTL)
	if err != nil {
		log.Fatalf("Failed to create NLI cache: %v", err)
	}

	// Similarity provider
	var sim embed.Provider
	if endpoint := getEnv("EMBED_ENDPOINT", ""); endpoint != "" {
		sim = embed.NewHTTPProvider(endpoint, 5*time.Second)
	} else {
		log.Println("EMBED_ENDPOINT not set, using lexical similarity")
		sim = embed.NewLexicalProvider()
	}

	// Calibration artifact: when present, its threshold drives labeling
	thresholds := fhri.ThresholdTable{Default: params.DefaultThreshold}
	if path := getEnv("CALIBRATION_MODEL", ""); path != "" {
		model, err := calib.LoadModel(path)
		if err != nil {
			log.Fatalf("Failed to load calibration model: %v", err)
		}
		thresholds.Default = model.TrustThreshold()
		log.Printf("Loaded calibration model %s (threshold %.3f)", model.Version, thresholds.Default)
	}

	engine, err := fhri.New(params, fhri.DefaultFusionWeights(), thresholds)
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}

	// Tracing
	var tp interface {
		Shutdown(context.Context) error
	}
	if getEnv("OTEL_ENABLED", "") == "true" {
		cfg := otel.DefaultConfig("fhri")
		cfg.CollectorEndpoint = getEnv("OTEL_COLLECTOR", cfg.CollectorEndpoint)
		tracerProvider, err := otel.InitTracer(context.Background(), cfg)
		if err != nil {
			log.Fatalf("Failed to init tracer: %v", err)
		}
		tp = tracerProvider
	}

	m := metrics.New()
	kpis := metrics.NewKPITracker()

	evaluator := pipeline.NewEvaluator(pipeline.Config{
		Gate:       gate.New(sim, params.SimilarityThreshold),
		Evidence:   evidence.NewScorer(cached, params.TopKPassages, params.NLITimeout),
		NLI:        cached,
		Similarity: sim,
		Engine:     engine,
		Store:      store,
		Metrics:    m,
		KPIs:       kpis,
		Params:     params,
	})

	tokenRate := getEnvInt("TOKEN_RATE", 100)
	limiter := rate.NewLimiter(rate.Limit(tokenRate), tokenRate*2)

	srv := &Server{
		evaluator: evaluator,
		store:     store,
		metrics:   m,
		limiter:   limiter,
	}
	srv.metricsAuth.enabled = getEnv("METRICS_USER", "") != ""
	srv.metricsAuth.user = getEnv("METRICS_USER", "")
	srv.metricsAuth.password = getEnv("METRICS_PASS", "")

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/assess", srv.handleAssess)
	mux.HandleFunc("/v1/assess/batch", srv.handleAssessBatch)
	mux.Handle("/metrics", srv.metricsHandler())
	mux.HandleFunc("/health", handleHealth)

	port := getEnv("PORT", "8080")
	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-shutdown
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	if memStore != nil {
		if err := memStore.SaveSnapshot(snapshotPath); err != nil {
			log.Printf("Error saving pairstore snapshot: %v", err)
		}
	}
	if err := store.Close(); err != nil {
		log.Printf("Error closing pairstore: %v", err)
	}
	if tp != nil {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}

	log.Println("Server stopped")
}

func (s *Server) handleAssess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.limiter.Allow() {
		w.Header().Set("Retry-After", "10")
		http.Error(w, "Too many requests", http.StatusTooManyRequests)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1MB limit
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	var req pipeline.Request
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Sample.ID == "" {
		http.Error(w, "sample.id is required", http.StatusBadRequest)
		return
	}

	assessment := s.evaluator.Evaluate(r.Context(), req)
	respondJSON(w, http.StatusOK, assessment)
}

func (s *Server) handleAssessBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.limiter.Allow() {
		w.Header().Set("Retry-After", "10")
		http.Error(w, "Too many requests", http.StatusTooManyRequests)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 16<<20)) // 16MB limit
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	var reqs []pipeline.Request
	if err := json.Unmarshal(body, &reqs); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if len(reqs) == 0 {
		http.Error(w, "Empty batch", http.StatusBadRequest)
		return
	}

	workers := getEnvInt("BATCH_WORKERS", 4)
	assessments := s.evaluator.EvaluateBatch(r.Context(), reqs, workers)
	respondJSON(w, http.StatusOK, assessments)
}

func (s *Server) metricsHandler() http.Handler {
	handler := promhttp.Handler()

	if !s.metricsAuth.enabled {
		return handler
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.metricsAuth.user || pass != s.metricsAuth.password {
			w.Header().Set("WWW-Authenticate", `Basic realm="Metrics"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
