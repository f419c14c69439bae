// Package server exposes the HTTP API the dashboard and overlays talk to:
// shared state reads, trigger endpoints, the SSE event stream, and metrics.
// It includes permissive CORS for development and injects correlation IDs
// into request contexts for consistent logging.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/onnwee/overlayd/telemetry"
)

// triggerEndpoints are the POST routes a chat-adjacent dashboard can spam;
// they get the in-memory per-IP rate limiter.
var triggerEndpoints = map[string]bool{
	"/api/soundboard/play": true,
	"/api/chaos/trigger":   true,
	"/api/clip":            true,
	"/api/test-alert":      true,
	"/api/test-chat":       true,
}

// NewMux returns the HTTP handler with all routes.
// The provided context is used for rate limiter cleanup goroutine lifecycle.
func NewMux(ctx context.Context, deps Deps) http.Handler {
	rateLimiterCfg := loadRateLimiterConfig()
	corsCfg := loadCORSConfig()
	rateLimiter := newIPRateLimiter(ctx, rateLimiterCfg)

	handlers := NewHandlers(ctx, deps)

	mux := http.NewServeMux()

	// Metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Health and readiness endpoints
	mux.HandleFunc("/healthz", handlers.HandleHealthz)
	mux.HandleFunc("/readyz", handlers.HandleReadyz)

	// Live event stream
	mux.HandleFunc("/events", handlers.handleEvents)

	// Stream state
	mux.HandleFunc("/api/stats", handlers.handleStats)
	mux.HandleFunc("/api/start-stream", handlers.handleStartStream)
	mux.HandleFunc("/api/test-alert", handlers.handleTestAlert)
	mux.HandleFunc("/api/test-chat", handlers.handleTestChat)
	mux.HandleFunc("/api/chat/recent", handlers.handleChatRecent)

	// Mixer
	mux.HandleFunc("/api/scene", handlers.handleScene)
	mux.HandleFunc("/api/scenes", handlers.handleScenes)
	mux.HandleFunc("/api/obs-status", handlers.handleOBSStatus)

	// Subtitles
	mux.HandleFunc("/api/subtitles/state", handlers.handleSubtitleState)
	mux.HandleFunc("/api/subtitles/settings", handlers.handleSubtitleSettings)
	mux.HandleFunc("/api/subtitles/push", handlers.handleSubtitlePush)
	mux.HandleFunc("/api/subtitles/clear", handlers.handleSubtitleClear)

	// Avatar
	mux.HandleFunc("/api/avatar/settings", handlers.handleAvatarSettings)
	mux.HandleFunc("/api/avatar/expression", handlers.handleAvatarExpression)
	mux.HandleFunc("/api/avatar/motion", handlers.handleAvatarMotion)
	mux.HandleFunc("/api/avatar/tracking", handlers.handleAvatarTracking)
	mux.HandleFunc("/api/avatar/rig", handlers.handleAvatarRig)

	// Soundboard and chaos
	mux.HandleFunc("/api/soundboard/sounds", handlers.handleSoundboardSounds)
	mux.HandleFunc("/api/soundboard/play", handlers.handleSoundboardPlay)
	mux.HandleFunc("/api/soundboard/reload", handlers.handleSoundboardReload)
	mux.HandleFunc("/api/chaos/presets", handlers.handleChaosPresets)
	mux.HandleFunc("/api/chaos/trigger", handlers.handleChaosTrigger)

	// Goals
	mux.HandleFunc("/api/goals", handlers.handleGoals)
	mux.HandleFunc("/api/goals/update", handlers.handleGoalsUpdate)
	mux.HandleFunc("/api/goals/increment", handlers.handleGoalsIncrement)
	mux.HandleFunc("/api/goals/reset", handlers.handleGoalsReset)

	// Clips and reporting
	mux.HandleFunc("/api/clip", handlers.handleClip)
	mux.HandleFunc("/api/report", handlers.handleReport)

	// Keyboard
	mux.HandleFunc("/api/keyboard/status", handlers.handleKeyboardStatus)
	mux.HandleFunc("/api/keyboard/test", handlers.handleKeyboardTest)

	// Rate limit only the trigger endpoints; state reads and the SSE stream
	// stay unthrottled.
	selectiveHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if triggerEndpoints[strings.TrimSuffix(r.URL.Path, "/")] {
			rateLimitMiddleware(mux, rateLimiter).ServeHTTP(w, r)
			return
		}
		mux.ServeHTTP(w, r)
	})

	// Wrap with correlation ID injector and tracing middleware
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Reuse corr header if provided else generate
		corr := r.Header.Get("X-Correlation-ID")
		if corr == "" {
			corr = uuid.New().String()
		}
		ctx := telemetry.WithCorrelation(r.Context(), corr)
		w.Header().Set("X-Correlation-ID", corr)

		ctx, span := telemetry.StartSpan(ctx, "http-server", r.Method+" "+r.URL.Path,
			telemetry.HTTPMethodAttr(r.Method),
			telemetry.HTTPRouteAttr(r.URL.Path),
			telemetry.HTTPURLAttr(r.URL.String()),
		)
		defer span.End()

		telemetry.LoggerWithCorr(ctx).Debug("request start", slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.String("component", "http"))

		// Capture status code via custom ResponseWriter
		wrappedWriter := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		selectiveHandler.ServeHTTP(wrappedWriter, r.WithContext(ctx))

		telemetry.SetSpanHTTPStatus(span, wrappedWriter.statusCode)
		if wrappedWriter.statusCode >= 400 {
			code, msg := telemetry.ErrorStatus(fmt.Sprintf("HTTP %d", wrappedWriter.statusCode))
			span.SetStatus(code, msg)
		}
	})
	return withCORSConfig(handler, corsCfg)
}

// statusRecorder wraps ResponseWriter to capture status code
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

// Flush implements http.Flusher if the underlying ResponseWriter supports it
func (r *statusRecorder) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Start runs the HTTP server and shuts down gracefully on context cancellation.
func Start(ctx context.Context, deps Deps, addr string) error {
	srv := &http.Server{
		Addr:        addr,
		Handler:     NewMux(ctx, deps),
		ReadTimeout: 5 * time.Second,
		// No write timeout: /events holds its connection open for the whole
		// session.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// Shutdown goroutine
	go func() {
		<-ctx.Done()
		// Use WithoutCancel to inherit context values but allow shutdown to complete
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown error", slog.Any("err", err))
		}
	}()

	slog.Info("http server listening", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("http server error", slog.Any("err", err))
		return err
	}
	return nil
}
