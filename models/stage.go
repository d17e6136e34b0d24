// ABOUTME: Deal pipeline stages and their display order
// ABOUTME: Parses user-supplied stage names into canonical stage ids
package models

import (
	"strings"
	"unicode"
)

type Stage string

const (
	StageProspecting   Stage = "prospecting"
	StageQualification Stage = "qualification"
	StageNeedsAnalysis Stage = "needs_analysis"
	StageProposal      Stage = "proposal"
	StageNegotiation   Stage = "negotiation"
	StageClosedWon     Stage = "closed_won"
	StageClosedLost    Stage = "closed_lost"
	StageOnHold        Stage = "on_hold"
)

// Stages is the fixed pipeline order used for boards and summaries.
var Stages = []Stage{
	StageProspecting,
	StageQualification,
	StageNeedsAnalysis,
	StageProposal,
	StageNegotiation,
	StageClosedWon,
	StageClosedLost,
	StageOnHold,
}

var stageLabels = map[Stage]string{
	StageProspecting:   "Prospecting",
	StageQualification: "Qualification",
	StageNeedsAnalysis: "Needs Analysis",
	StageProposal:      "Proposal",
	StageNegotiation:   "Negotiation",
	StageClosedWon:     "Closed - Won",
	StageClosedLost:    "Closed - Lost",
	StageOnHold:        "On Hold",
}

// Label returns the display name, e.g. "Closed - Won".
func (s Stage) Label() string {
	if label, ok := stageLabels[s]; ok {
		return label
	}
	return string(s)
}

func (s Stage) Valid() bool {
	_, ok := stageLabels[s]
	return ok
}

// Closed reports whether the deal has been decided either way.
func (s Stage) Closed() bool {
	return s == StageClosedWon || s == StageClosedLost
}

// ParseStage accepts a canonical id, a display label or a hyphenated form
// ("Closed-Won", "needs analysis") and returns the canonical stage.
func ParseStage(name string) (Stage, error) {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.TrimSpace(name) {
		if unicode.IsLetter(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		if r == ' ' || r == '-' || r == '_' {
			pendingSep = true
			continue
		}
		return "", Invalid("stage", "unknown stage %q", name)
	}

	stage := Stage(b.String())
	if !stage.Valid() {
		return "", Invalid("stage", "unknown stage %q", name)
	}
	return stage, nil
}

// StageIndex returns the position of s in the pipeline order, or -1.
func StageIndex(s Stage) int {
	for i, stage := range Stages {
		if stage == s {
			return i
		}
	}
	return -1
}
