// Package mixer fronts the video mixer (OBS) behind a small facade: a
// primary websocket session when one can be established, and an optional
// HTTP fallback endpoint for the scene operations the fallback can serve.
package mixer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/onnwee/overlayd/telemetry"
)

// Modes the facade reports. The facade never retries the primary on its
// own; once it drops to fallback it stays there until Reconnect.
const (
	ModeDisabled     = "disabled"
	ModeDisconnected = "disconnected"
	ModeDirect       = "direct"
	ModeFallback     = "fallback"
)

// ErrUnavailable is returned when no path can serve an operation.
var ErrUnavailable = errors.New("mixer unavailable")

// Session is a live primary connection to the mixer.
type Session interface {
	CurrentScene(ctx context.Context) (string, error)
	Scenes(ctx context.Context) ([]string, error)
	SetScene(ctx context.Context, name string) error
	SetSourceVisible(ctx context.Context, scene, source string, visible bool) error
	Close() error
}

// Dialer establishes a primary session.
type Dialer func(ctx context.Context) (Session, error)

// Status is the mixer portion of /api/status.
type Status struct {
	ConnectedDirect bool   `json:"connected_direct"`
	Mode            string `json:"mode"`
	LastError       string `json:"last_error,omitempty"`
}

// Facade routes mixer calls to the primary session or the fallback.
type Facade struct {
	dial     Dialer
	fallback *FallbackClient
	log      *slog.Logger

	mu      sync.Mutex
	session Session
	mode    string
	lastErr string
}

// New builds a facade. Either dial or fallback may be nil; with both nil
// every call fails with ErrUnavailable and the mode is disabled.
func New(dial Dialer, fallback *FallbackClient, log *slog.Logger) *Facade {
	if log == nil {
		log = slog.Default()
	}
	mode := ModeDisconnected
	if dial == nil && fallback == nil {
		mode = ModeDisabled
	}
	return &Facade{dial: dial, fallback: fallback, log: log, mode: mode}
}

// Connect attempts the primary session. On failure the facade settles on
// fallback when one is configured, otherwise disconnected. Connect never
// returns an error; the outcome is readable from Status.
func (f *Facade) Connect(ctx context.Context) Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dial == nil {
		if f.fallback != nil {
			f.mode = ModeFallback
		}
		return f.statusLocked()
	}
	sess, err := f.dial(ctx)
	if err != nil {
		f.lastErr = err.Error()
		if f.fallback != nil {
			f.mode = ModeFallback
		} else {
			f.mode = ModeDisconnected
		}
		f.log.Warn("mixer primary connection failed", "error", err, "mode", f.mode)
		return f.statusLocked()
	}
	f.session = sess
	f.mode = ModeDirect
	f.lastErr = ""
	f.log.Info("mixer connected", "mode", ModeDirect)
	return f.statusLocked()
}

// Reconnect drops any live session and dials again.
func (f *Facade) Reconnect(ctx context.Context) Status {
	f.mu.Lock()
	if f.session != nil {
		f.session.Close()
		f.session = nil
	}
	f.mu.Unlock()
	return f.Connect(ctx)
}

// Close releases the primary session.
func (f *Facade) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.session == nil {
		return nil
	}
	err := f.session.Close()
	f.session = nil
	if f.mode == ModeDirect {
		f.mode = ModeDisconnected
	}
	return err
}

// Status reports the current routing state.
func (f *Facade) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusLocked()
}

func (f *Facade) statusLocked() Status {
	return Status{ConnectedDirect: f.session != nil, Mode: f.mode, LastError: f.lastErr}
}

// SetScene switches the program scene, dropping to the fallback endpoint
// when the primary call fails. A failed fallback call records the error but
// does not change the mode.
func (f *Facade) SetScene(ctx context.Context, name string) error {
	return f.call(ctx, "set_scene", true,
		func(s Session) error { return s.SetScene(ctx, name) },
		func(fb *FallbackClient) error { return fb.SetScene(ctx, name) },
	)
}

// CurrentScene returns the program scene name.
func (f *Facade) CurrentScene(ctx context.Context) (string, error) {
	var out string
	err := f.call(ctx, "current_scene", true,
		func(s Session) error {
			v, err := s.CurrentScene(ctx)
			out = v
			return err
		},
		func(fb *FallbackClient) error {
			v, _, err := fb.Scenes(ctx)
			out = v
			return err
		},
	)
	return out, err
}

// Scenes lists the scene names known to the mixer.
func (f *Facade) Scenes(ctx context.Context) ([]string, error) {
	var out []string
	err := f.call(ctx, "list_scenes", true,
		func(s Session) error {
			v, err := s.Scenes(ctx)
			out = v
			return err
		},
		func(fb *FallbackClient) error {
			_, v, err := fb.Scenes(ctx)
			out = v
			return err
		},
	)
	return out, err
}

// SetSourceVisible toggles a scene item. Only the primary session can serve
// it; there is no fallback route for item-level control.
func (f *Facade) SetSourceVisible(ctx context.Context, scene, source string, visible bool) error {
	return f.call(ctx, "set_source_visible", false,
		func(s Session) error { return s.SetSourceVisible(ctx, scene, source, visible) },
		nil,
	)
}

// call runs op against the primary when one is live, then against the
// fallback when allowed. A primary failure tears the session down so later
// calls go straight to the fallback.
func (f *Facade) call(ctx context.Context, op string, fallbackOK bool, primary func(Session) error, viaFallback func(*FallbackClient) error) error {
	f.mu.Lock()
	sess := f.session
	fb := f.fallback
	f.mu.Unlock()

	var err error
	telemetry.TimeFunc(telemetry.MixerCallDuration, func() {
		if sess != nil {
			err = primary(sess)
			if err == nil {
				return
			}
			f.dropSession(err)
			f.log.Warn("mixer primary call failed", "op", op, "error", err)
		} else if fb == nil || !fallbackOK || viaFallback == nil {
			err = fmt.Errorf("%s: %w", op, ErrUnavailable)
			return
		}

		if fallbackOK && viaFallback != nil && fb != nil {
			fbErr := viaFallback(fb)
			if fbErr == nil {
				err = nil
				return
			}
			f.recordError(fbErr)
			f.log.Warn("mixer fallback call failed", "op", op, "error", fbErr)
			if err == nil {
				err = fbErr
			}
		}
	})
	return err
}

func (f *Facade) dropSession(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.session != nil {
		f.session.Close()
		f.session = nil
	}
	f.lastErr = err.Error()
	if f.fallback != nil {
		f.mode = ModeFallback
	} else {
		f.mode = ModeDisconnected
	}
}

func (f *Facade) recordError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastErr = err.Error()
}
