package gateway

import (
	"regexp"
	"strings"
)

// ColourPresets maps preset names to the hex values the gateway accepts.
// Names are matched case-insensitively.
var ColourPresets = map[string]string{
	// White spectrum
	"focus":    "f5faf6",
	"cool":     "f5faf6",
	"everyday": "f1e0b5",
	"normal":   "f1e0b5",
	"relax":    "efd275",
	"warm":     "efd275",

	// Extended palette
	"blue":             "4a418a",
	"light blue":       "6c83ba",
	"saturated purple": "8f2686",
	"lime":             "a9d62b",
	"light purple":     "c984bb",
	"yellow":           "d6e44b",
	"saturated pink":   "d9337c",
	"dark peach":       "da5d41",
	"saturated red":    "dc4b31",
	"cold sky":         "dcf0f8",
	"pink":             "e491af",
	"peach":            "e57345",
	"warm amber":       "e78834",
	"light pink":       "e8bedd",
	"cool daylight":    "eaf6fb",
	"candlelight":      "ebb63e",
	"warm glow":        "efd275",
	"warm white":       "f1e0b5",
	"sunrise":          "f2eccf",
	"cool white":       "f5faf6",
}

var hexColour = regexp.MustCompile(`^[0-9a-f]{6}$`)

// ResolveColour turns a preset name or a literal 6-digit hex string into the
// value written to resource 5706. It reports false when the input is neither.
func ResolveColour(s string) (string, bool) {
	key := strings.ToLower(s)
	if hex, ok := ColourPresets[key]; ok {
		return hex, true
	}
	if hexColour.MatchString(key) {
		return key, true
	}
	return "", false
}
