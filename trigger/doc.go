// Package trigger mediates contested, rate-limited stream effects: soundboard
// sounds and chaos overlay presets.
//
// Both effect catalogs admit requests through a cooldown Gate before
// publishing anything. Soundboard sounds each hold an independent per-slug
// cooldown window; chaos presets all share one global cooldown key so that
// no two visual effects can overlap regardless of which preset is requested.
// A rejected request is a normal control-flow outcome, not a failure.
package trigger
