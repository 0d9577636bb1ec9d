package fingerprint

import (
	"time"

	"intake/pkg/domain"
)

// maxSamplesPerGroup bounds the operator-facing report; the full match list
// stays available to callers that want it.
const maxSamplesPerGroup = 3

// Report is the operator-facing summary of a correlation run, grouped by
// rule with a bounded number of samples per group.
type Report struct {
	Groups []Group `json:"groups"`
}

// Group is all matches one rule produced.
type Group struct {
	Type     MatchType `json:"type"`
	Total    int       `json:"total"`
	Samples  []Sample  `json:"samples"`
	Overflow int       `json:"overflow,omitempty"`
}

// Sample is one matched historical capture.
type Sample struct {
	RespondentID     domain.RespondentID `json:"respondent_id"`
	RespondentHandle string              `json:"respondent_handle,omitempty"`
	RespondentName   string              `json:"respondent_name,omitempty"`
	CapturedAt       time.Time           `json:"captured_at"`
}

// Suspicious reports whether the run produced any matches.
func (r *Report) Suspicious() bool {
	return r != nil && len(r.Groups) > 0
}

// BuildReport groups matches by rule, keeping at most three samples per
// group and counting the rest as overflow. Returns nil when there are no
// matches.
func BuildReport(matches []Match) *Report {
	if len(matches) == 0 {
		return nil
	}

	order := []MatchType{MatchNetworkAddress, MatchCanvasHash, MatchDeviceCombo}
	byType := make(map[MatchType][]Match, len(order))
	for _, m := range matches {
		byType[m.Type] = append(byType[m.Type], m)
	}

	report := &Report{}
	for _, typ := range order {
		group := byType[typ]
		if len(group) == 0 {
			continue
		}
		g := Group{Type: typ, Total: len(group)}
		for _, m := range group {
			if len(g.Samples) == maxSamplesPerGroup {
				g.Overflow = g.Total - maxSamplesPerGroup
				break
			}
			sample := Sample{
				RespondentID: m.Fingerprint.RespondentID,
				CapturedAt:   m.Fingerprint.CreatedAt,
			}
			if m.Session != nil {
				sample.RespondentHandle = m.Session.RespondentHandle
				sample.RespondentName = m.Session.RespondentName
			}
			g.Samples = append(g.Samples, sample)
		}
		report.Groups = append(report.Groups, g)
	}
	return report
}
