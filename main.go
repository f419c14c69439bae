// Command overlayd is the control-room daemon behind a set of OBS browser
// overlays. It:
//   - Loads configuration and initializes structured logging.
//   - Opens the local SQLite event log.
//   - Connects to OBS over websocket (with the companion-API fallback).
//   - Starts background workers: Twitch chat listener, Helix event poller,
//     and global keyboard capture.
//   - Exposes the HTTP API plus the /events SSE stream the overlays consume.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joho/godotenv"
	"github.com/onnwee/overlayd/autoclip"
	"github.com/onnwee/overlayd/bus"
	"github.com/onnwee/overlayd/chat"
	"github.com/onnwee/overlayd/config"
	"github.com/onnwee/overlayd/eventlog"
	"github.com/onnwee/overlayd/keyboard"
	"github.com/onnwee/overlayd/mixer"
	"github.com/onnwee/overlayd/poller"
	"github.com/onnwee/overlayd/server"
	"github.com/onnwee/overlayd/state"
	"github.com/onnwee/overlayd/telemetry"
	"github.com/onnwee/overlayd/trigger"
	"github.com/onnwee/overlayd/twitchapi"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		// unknown level -> keep info but note once using temporary logger
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", map[bool]string{true: "json", false: "text"}[format == "json"]))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("overlayd", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Event log (SQLite). Failure disables persistence, not the stream.
	var log *eventlog.Log
	if cfg.DBPath != "" {
		log, err = eventlog.Open(ctx, cfg.DBPath)
		if err != nil {
			slog.Warn("event log unavailable, running without persistence", slog.Any("err", err))
			log = nil
		} else {
			defer func() {
				if err := log.Close(); err != nil {
					slog.Error("failed to close event log", slog.Any("err", err))
				}
			}()
		}
	}

	// Broadcast bus and shared state
	b := bus.New()
	defer b.Close()
	store := state.New(b, state.SubtitleSettings{
		FontFamily:        cfg.SubtitleFontFamily,
		FontSizePx:        cfg.SubtitleFontSize,
		TextColor:         cfg.SubtitleTextColor,
		BackgroundColor:   cfg.SubtitleBGColor,
		BackgroundOpacity: cfg.SubtitleBGOpacity,
	})

	var rec trigger.Recorder
	if log != nil {
		rec = log
	}

	// Triggers
	soundboard := trigger.NewSoundboard(cfg.SoundboardDir, cfg.SoundboardCooldown, b, rec)
	slog.Info("soundboard loaded", slog.Int("sounds", len(soundboard.Sounds())))
	chaos := trigger.NewChaos(cfg.ChaosCooldown, b, rec)

	// Twitch Helix client. The app token covers polling; clip creation also
	// needs a user token with clips:edit.
	var helix *twitchapi.HelixClient
	if cfg.TwitchClientID != "" && cfg.TwitchClientSecret != "" {
		helix = &twitchapi.HelixClient{
			AppTokenSource: &twitchapi.TokenSource{ClientID: cfg.TwitchClientID, ClientSecret: cfg.TwitchClientSecret},
			ClientID:       cfg.TwitchClientID,
		}
		if cfg.TwitchRefreshToken != "" {
			uts, err := twitchapi.NewUserTokenSource(ctx, cfg.TwitchClientID, cfg.TwitchClientSecret, cfg.TwitchRefreshToken)
			if err != nil {
				slog.Warn("user token source unavailable, clip creation disabled", slog.Any("err", err))
			} else {
				helix.UserTokenSource = uts
			}
		}
	}

	// Clip runner. The clipper stays nil without Helix creds, a user token,
	// or a resolvable broadcaster id; detection still runs.
	var clipper autoclip.Clipper
	if helix != nil && helix.UserTokenSource != nil && cfg.TwitchChannel != "" {
		resolveCtx, cancel := context.WithTimeout(ctx, 8*time.Second)
		if id, err := helix.GetUserID(resolveCtx, cfg.TwitchChannel); err != nil {
			slog.Warn("broadcaster id lookup failed, clip creation disabled", slog.Any("err", err))
		} else {
			clipper = &twitchapi.ChannelClipper{Client: helix, BroadcasterID: id}
		}
		cancel()
	}
	var clipRec autoclip.Recorder
	if log != nil {
		clipRec = log
	}
	detector := autoclip.NewDetector(cfg.ClipWindow, cfg.ClipQuietPeriod, cfg.ClipThreshold, cfg.ClipTriggerWords)
	runner := autoclip.NewRunner(detector, clipper, b, clipRec)

	// Mixer: OBS websocket primary, companion-API fallback
	var fallback *mixer.FallbackClient
	if cfg.FallbackEnabled {
		fallback = mixer.NewFallbackClient(cfg.FallbackBaseURL)
	}
	mix := mixer.New(mixer.GoobsDialer(cfg.OBSAddr(), cfg.OBSPassword), fallback, slog.Default())
	status := mix.Connect(ctx)
	slog.Info("mixer initialized", slog.String("mode", status.Mode))
	defer func() {
		if err := mix.Close(); err != nil {
			slog.Error("mixer close error", slog.Any("err", err))
		}
	}()

	// Background workers
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var chatRec chat.Recorder
		if log != nil {
			chatRec = log
		}
		h := &chat.Handler{
			Store:      store,
			Runner:     runner,
			Soundboard: soundboard,
			Chaos:      chaos,
			Mixer:      mix,
			Rec:        chatRec,
		}
		return chat.Listen(gctx, cfg.TwitchChannel, cfg.TwitchBotUsername, cfg.TwitchOAuthToken, h)
	})
	g.Go(func() error {
		if helix == nil || !cfg.PollingReady() {
			slog.Info("helix polling disabled (missing twitch api creds)")
			return nil
		}
		var pollRec poller.Recorder
		if log != nil {
			pollRec = log
		}
		p := &poller.Poller{
			Helix:    helix,
			Channel:  cfg.TwitchChannel,
			Store:    store,
			Pub:      b,
			Rec:      pollRec,
			Interval: cfg.PollInterval,
		}
		return p.Run(gctx)
	})
	g.Go(func() error {
		return keyboard.Run(gctx, cfg.KeyboardCaptureEnabled, store.Keyboard)
	})

	// Enable pprof profiling endpoints in debug mode (ENABLE_PPROF=1)
	if os.Getenv("ENABLE_PPROF") == "1" {
		pprofAddr := os.Getenv("PPROF_ADDR")
		if pprofAddr == "" {
			pprofAddr = "localhost:6060"
		}
		go func() {
			slog.Info("pprof profiling enabled", slog.String("addr", pprofAddr))
			// Use an http.Server with timeouts to satisfy G114 and avoid DoS risks
			srv := &http.Server{
				Addr:              pprofAddr,
				Handler:           nil, // default mux exposes /debug/pprof
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      10 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil {
				slog.Error("pprof server error", slog.Any("err", err))
			}
		}()
	}

	// HTTP server (API, SSE stream, health, metrics)
	deps := server.Deps{
		Bus:             b,
		Store:           store,
		Soundboard:      soundboard,
		Chaos:           chaos,
		Runner:          runner,
		Mixer:           mix,
		EventLog:        log,
		FallbackEnabled: cfg.FallbackEnabled,
		FallbackBaseURL: cfg.FallbackBaseURL,
	}
	go func() {
		if err := server.Start(ctx, deps, cfg.HTTPAddr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	// Block until shutdown signal, then drain workers
	<-ctx.Done()
	slog.Info("shutting down")
	if err := g.Wait(); err != nil && err != context.Canceled {
		slog.Error("worker exited with error", slog.Any("err", err))
	}
}
