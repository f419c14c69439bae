package state

import (
	"sync"
	"time"
)

// Vec3 is a three-axis tuning value for the avatar overlay.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// AvatarSettings is the avatar_settings payload.
type AvatarSettings struct {
	Position        Vec3      `json:"position"`
	Rotation        Vec3      `json:"rotation"`
	Scale           float64   `json:"scale"`
	Smoothing       float64   `json:"smoothing"`
	TrackingEnabled bool      `json:"tracking_enabled"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Avatar owns the avatar overlay tuning.
type Avatar struct {
	pub Publisher

	mu sync.Mutex
	s  AvatarSettings
}

// NewAvatar starts with neutral placement and tracking on.
func NewAvatar(pub Publisher) *Avatar {
	return &Avatar{pub: pub, s: AvatarSettings{
		Scale:           1,
		Smoothing:       0.5,
		TrackingEnabled: true,
		UpdatedAt:       nowUTC(),
	}}
}

// Snapshot returns the current tuning.
func (a *Avatar) Snapshot() AvatarSettings {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.s
}

// Update merges recognized numeric fields from a partial update. Axis fields
// arrive as nested objects ({"position": {"x": ..}}); missing axes keep
// their previous value. Invalid values are dropped. Publishes avatar_settings.
func (a *Avatar) Update(partial map[string]any) AvatarSettings {
	a.mu.Lock()
	if v, ok := partial["position"]; ok {
		a.s.Position = mergeVec3(a.s.Position, v)
	}
	if v, ok := partial["rotation"]; ok {
		a.s.Rotation = mergeVec3(a.s.Rotation, v)
	}
	if v, ok := partial["scale"]; ok {
		if f, ok := asFloat(v); ok && f > 0 {
			if f > 10 {
				f = 10
			}
			a.s.Scale = f
		}
	}
	if v, ok := partial["smoothing"]; ok {
		if f, ok := asFloat(v); ok {
			a.s.Smoothing = clampOpacity(f)
		}
	}
	a.s.UpdatedAt = nowUTC()
	snap := a.s
	a.mu.Unlock()

	a.pub.Publish("avatar_settings", snap)
	return snap
}

// SetTracking toggles face tracking and publishes avatar_tracking.
func (a *Avatar) SetTracking(enabled bool) AvatarSettings {
	a.mu.Lock()
	a.s.TrackingEnabled = enabled
	a.s.UpdatedAt = nowUTC()
	snap := a.s
	a.mu.Unlock()

	a.pub.Publish("avatar_tracking", map[string]any{"enabled": enabled})
	return snap
}

func mergeVec3(prev Vec3, raw any) Vec3 {
	obj, ok := raw.(map[string]any)
	if !ok {
		return prev
	}
	out := prev
	if v, ok := obj["x"]; ok {
		if f, ok := asFloat(v); ok {
			out.X = f
		}
	}
	if v, ok := obj["y"]; ok {
		if f, ok := asFloat(v); ok {
			out.Y = f
		}
	}
	if v, ok := obj["z"]; ok {
		if f, ok := asFloat(v); ok {
			out.Z = f
		}
	}
	return out
}
