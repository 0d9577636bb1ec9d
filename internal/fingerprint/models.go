// Package fingerprint stores captured device fingerprints and correlates
// them against history to flag respondents likely sharing a device or
// network with an earlier one.
package fingerprint

import (
	"encoding/json"
	"time"

	"intake/pkg/domain"
)

// Signals are the normalized fields extracted from a capture payload. The
// JSON tags match the capture page's POST body.
type Signals struct {
	NetworkAddress   string `json:"ip_address"`
	UserAgent        string `json:"user_agent"`
	ScreenResolution string `json:"screen_resolution"`
	Timezone         string `json:"timezone"`
	Locale           string `json:"language"`
	Platform         string `json:"platform"`
	CanvasHash       string `json:"canvas_hash"`
	WebGLHash        string `json:"webgl_hash"`
	FontsHash        string `json:"fonts_hash"`
	Premium          bool   `json:"is_premium"`
}

// Fingerprint is one stored capture. Raw keeps the full payload for
// after-the-fact analysis of fields the normalized signals do not cover.
type Fingerprint struct {
	ID           domain.FingerprintID
	RespondentID domain.RespondentID
	SessionID    domain.SessionID
	Signals      Signals
	Raw          json.RawMessage
	CreatedAt    time.Time
}

// DeviceCombo reports whether screen resolution, timezone, and platform are
// all present. Partial combos are never matched on.
func (s Signals) DeviceCombo() bool {
	return s.ScreenResolution != "" && s.Timezone != "" && s.Platform != ""
}
