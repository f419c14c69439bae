// Package keyboard captures global key presses through an OS-level hook and
// feeds them into the keyboard state entity for the key-overlay. Capture is
// strictly best-effort: a missing display server or permission problem
// updates the status entity and never takes the process down.
package keyboard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	hook "github.com/robotn/gohook"

	"github.com/onnwee/overlayd/state"
)

// keyNames maps hook key names to the display names the overlay expects.
var keyNames = map[string]string{
	"space":     "Space",
	"esc":       "Escape",
	"escape":    "Escape",
	"enter":     "Enter",
	"return":    "Enter",
	"tab":       "Tab",
	"backspace": "Backspace",
	"caps_lock": "CapsLock",
	"capslock":  "CapsLock",
	"shift":     "Shift",
	"lshift":    "Shift",
	"rshift":    "Shift",
	"ctrl":      "Ctrl",
	"lctrl":     "Ctrl",
	"rctrl":     "Ctrl",
	"control":   "Ctrl",
	"alt":       "Alt",
	"lalt":      "Alt",
	"ralt":      "Alt",
	"cmd":       "Meta",
	"lcmd":      "Meta",
	"rcmd":      "Meta",
	"super":     "Meta",
	"menu":      "Menu",
	"left":      "ArrowLeft",
	"right":     "ArrowRight",
	"up":        "ArrowUp",
	"down":      "ArrowDown",
	"insert":    "Insert",
	"delete":    "Delete",
	"home":      "Home",
	"end":       "End",
	"page_up":   "PageUp",
	"pageup":    "PageUp",
	"page_down": "PageDown",
	"pagedown":  "PageDown",
}

// NormalizeKey turns a raw hook event into the overlay's display name. A
// printable character wins; otherwise the rawcode's key name is mapped, with
// function keys upper-cased and anything unknown title-cased.
func NormalizeKey(char rune, rawcode uint16) string {
	if char == ' ' {
		return "Space"
	}
	if char != 0 && char != unicode.ReplacementChar && unicode.IsGraphic(char) {
		return strings.ToUpper(string(char))
	}

	return mapKeyName(hook.RawcodetoKeychar(rawcode))
}

func mapKeyName(raw string) string {
	name := strings.ToLower(raw)
	if name == "" {
		return ""
	}
	if mapped, ok := keyNames[name]; ok {
		return mapped
	}
	if len(name) >= 2 && name[0] == 'f' && isDigits(name[1:]) {
		return strings.ToUpper(name)
	}
	return titleCase(strings.ReplaceAll(name, "_", " "))
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Run attaches the global hook and pumps events until ctx is cancelled.
func Run(ctx context.Context, enabled bool, keys *state.Keyboard) error {
	if !enabled {
		keys.SetStatus(false, false, false, "disabled by config")
		slog.Info("global keyboard capture disabled via config")
		return nil
	}

	events, err := startHook()
	if err != nil {
		keys.SetStatus(true, false, false, err.Error())
		slog.Warn("global keyboard capture unavailable", slog.Any("err", err))
		return nil
	}
	defer hook.End()
	keys.SetStatus(true, true, true, "")
	slog.Info("global keyboard capture started")

	for {
		select {
		case <-ctx.Done():
			keys.SetStatus(true, true, false, "")
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				keys.SetStatus(true, false, false, "hook event channel closed")
				return nil
			}
			name := NormalizeKey(ev.Keychar, ev.Rawcode)
			if name == "" {
				continue
			}
			switch ev.Kind {
			case hook.KeyDown, hook.KeyHold:
				keys.Press(name)
			case hook.KeyUp:
				keys.Release(name)
			}
		}
	}
}

// startHook isolates the hook attach, which can panic on hosts without an
// input subsystem the hook understands.
func startHook() (ch chan hook.Event, err error) {
	defer func() {
		if r := recover(); r != nil {
			ch = nil
			err = fmt.Errorf("hook attach failed: %v", r)
		}
	}()
	return hook.Start(), nil
}
