// Package script turns a set of source URLs into a finished podcast script:
// it fans out page fetches, assembles the cleaned text into a labeled context
// document, and asks the completion backend for the script.
package script

import (
	"errors"
	"strings"
)

// Mode selects the synthesis variant. All modes share the same fetch,
// aggregate, complete, and wrap pipeline; they differ in prompt body and
// output metadata.
type Mode string

const (
	// ModeEpisode produces a complete informational podcast script.
	ModeEpisode Mode = "episode"
	// ModeStorytelling produces a narrative script with arc and pacing cues.
	ModeStorytelling Mode = "storytelling"
	// ModeAnalysis produces strategic recommendations, not a full script.
	ModeAnalysis Mode = "analysis"
	// ModeComparison produces a multi-perspective synthesis.
	ModeComparison Mode = "comparison"
)

// Style is the podcast presentation style.
type Style string

const (
	StyleSoloNarrative       Style = "solo_narrative"
	StyleEducationalDeepDive Style = "educational_deep_dive"
	StyleNewsCommentary      Style = "news_commentary"
	StyleStorytelling        Style = "storytelling"
)

// Length is the target episode length bracket.
type Length string

const (
	LengthShort    Length = "short_5_10_min"
	LengthMedium   Length = "medium_15_25_min"
	LengthLong     Length = "long_30_45_min"
	LengthExtended Length = "extended_60_min"
)

// Tone is the overall delivery tone.
type Tone string

const (
	ToneCasual        Tone = "casual"
	ToneProfessional  Tone = "professional"
	ToneHumorous      Tone = "humorous"
	ToneDramatic      Tone = "dramatic"
	ToneEducational   Tone = "educational"
	ToneInvestigative Tone = "investigative"
)

// Request configures one synthesis call.
type Request struct {
	// URLs are the source pages, in citation order. Must be non-empty.
	URLs []string

	Mode     Mode
	Style    Style
	Length   Length
	Tone     Tone
	Audience string

	// Storytelling extras
	NarrativeStyle string // investigative_journalism, historical_narrative, personal_story, documentary
	NarratorVoice  string // first_person, third_person_omniscient, third_person_limited

	// Analysis extra
	PodcastType string

	// Comparison extra
	ComparisonAngle string
}

func (r *Request) applyDefaults() {
	if r.Mode == "" {
		r.Mode = ModeEpisode
	}
	if r.Style == "" {
		r.Style = StyleSoloNarrative
	}
	if r.Length == "" {
		r.Length = LengthMedium
	}
	if r.Tone == "" {
		r.Tone = ToneCasual
	}
	if r.Audience == "" {
		r.Audience = "general audience"
	}
	if r.NarrativeStyle == "" {
		r.NarrativeStyle = "documentary"
	}
	if r.NarratorVoice == "" {
		r.NarratorVoice = "third_person_omniscient"
	}
	if r.PodcastType == "" {
		r.PodcastType = "general"
	}
	if r.ComparisonAngle == "" {
		r.ComparisonAngle = "different perspectives on the same topic"
	}
}

func (r *Request) validate() error {
	if len(r.URLs) == 0 {
		return errors.New("no source urls provided")
	}
	switch r.Mode {
	case ModeEpisode, ModeStorytelling, ModeAnalysis, ModeComparison:
		return nil
	default:
		return errors.New("unknown synthesis mode: " + string(r.Mode))
	}
}

// titleWords turns an enum-ish value like "medium_15_25_min" into
// "Medium 15 25 Min" for display in output metadata.
func titleWords(s string) string {
	words := strings.Split(strings.ReplaceAll(s, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// spaceWords only swaps underscores for spaces, keeping the original casing.
func spaceWords(s string) string {
	return strings.ReplaceAll(s, "_", " ")
}
