// internal/models/packet.go
package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultTossupValue is the non-power value of a correct buzz.
const DefaultTossupValue = 10

// EndOfQuestionText is the synthetic final word appended to every tossup so
// that "buzz after the last word" has an addressable position.
const EndOfQuestionText = "(end)"

// Word is one buzz-point-granularity token of a tossup question. A word is
// either buzzable (BuzzIndex >= 0) or not (power markers and pronunciation
// guide spans, tracked by NonWordIndex). The two index spaces are disjoint.
type Word struct {
	Text            string
	BuzzIndex       int
	NonWordIndex    int
	PowerMarker     string
	InGuide         bool
	IsEndOfQuestion bool
}

// Tossup holds raw question and answer text. Word positions are derived on
// demand from the active format, never stored.
type Tossup struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Number   int    `json:"number"`
}

// BonusPart is one part of a bonus with its own value and difficulty tag.
type BonusPart struct {
	Question           string `json:"question"`
	Answer             string `json:"answer"`
	Value              int    `json:"value"`
	DifficultyModifier string `json:"difficultyModifier,omitempty"`
}

// Bonus is a leadin plus an ordered list of parts.
type Bonus struct {
	Leadin string      `json:"leadin"`
	Parts  []BonusPart `json:"parts"`
	Number int         `json:"number"`
}

// TotalValue sums the part values.
func (b *Bonus) TotalValue() int {
	total := 0
	for _, part := range b.Parts {
		total += part.Value
	}
	return total
}

// Packet is the ordered set of questions for one match.
type Packet struct {
	Name    string   `json:"name,omitempty"`
	Tossups []Tossup `json:"tossups"`
	Bonuses []Bonus  `json:"bonuses,omitempty"`
}

// GetWords tokenizes the question under the given format. Buzzable words get
// monotonically increasing BuzzIndex values starting at zero; power-marker
// tokens and words inside a pronunciation guide are excluded from the buzz
// index space but retained (with NonWordIndex) for power-boundary detection.
// The final element is always the synthetic end-of-question word, buzzable.
func (t *Tossup) GetWords(format *GameFormat) []Word {
	tokens := strings.Fields(t.Question)
	words := make([]Word, 0, len(tokens)+1)

	var guideStart, guideEnd string
	if len(format.PronunciationGuideMarkers) == 2 {
		guideStart = format.PronunciationGuideMarkers[0]
		guideEnd = format.PronunciationGuideMarkers[1]
	}

	buzzIndex := 0
	nonWordIndex := 0
	inGuide := false
	for _, token := range tokens {
		if marker, ok := matchPowerMarker(format, token); ok {
			words = append(words, Word{
				Text:         token,
				BuzzIndex:    -1,
				NonWordIndex: nonWordIndex,
				PowerMarker:  marker,
			})
			nonWordIndex++
			continue
		}

		entering := false
		if !inGuide && guideStart != "" && strings.HasPrefix(token, guideStart) {
			inGuide = true
			entering = true
		}
		if inGuide {
			words = append(words, Word{
				Text:         token,
				BuzzIndex:    -1,
				NonWordIndex: nonWordIndex,
				InGuide:      true,
			})
			nonWordIndex++
			// A guide may open and close within a single token, e.g. "(KAR-pat)".
			closeAt := strings.LastIndex(token, guideEnd)
			if guideEnd != "" && (closeAt >= len(guideStart) || (!entering && closeAt >= 0)) {
				inGuide = false
			}
			continue
		}

		words = append(words, Word{
			Text:         token,
			BuzzIndex:    buzzIndex,
			NonWordIndex: -1,
		})
		buzzIndex++
	}

	words = append(words, Word{
		Text:            EndOfQuestionText,
		BuzzIndex:       buzzIndex,
		NonWordIndex:    -1,
		IsEndOfQuestion: true,
	})
	return words
}

// LastWordIndex is the buzz index of the synthetic end-of-question word.
func (t *Tossup) LastWordIndex(format *GameFormat) int {
	words := t.GetWords(format)
	return words[len(words)-1].BuzzIndex
}

// GetPointsAtPosition derives the point value of a buzz at the given buzzable
// word index. Wrong buzzes at or past the end of the question score zero (no
// penalty for a late or phantom buzz); otherwise they score the format's neg
// value. Correct buzzes earn the highest power whose marker lies strictly
// after the buzz position, falling back to the standard tossup value. An
// out-of-range position on a correct buzz scores the standard value rather
// than failing.
func (t *Tossup) GetPointsAtPosition(format *GameFormat, wordIndex int, isCorrect bool) int {
	words := t.GetWords(format)
	endIndex := words[len(words)-1].BuzzIndex

	if !isCorrect {
		if wordIndex >= endIndex {
			return 0
		}
		return format.NegValue
	}

	if wordIndex >= 0 {
		for _, power := range format.Powers {
			position := powerMarkerPosition(words, power.Marker)
			if position < 0 || position >= endIndex {
				continue
			}
			if wordIndex < position {
				return power.Points
			}
		}
	}
	return DefaultTossupValue
}

// powerMarkerPosition finds the buzz index of the first buzzable word after
// the given marker, or -1 if the marker does not appear.
func powerMarkerPosition(words []Word, marker string) int {
	seen := 0
	for _, w := range words {
		if w.PowerMarker == marker {
			return seen
		}
		if w.BuzzIndex >= 0 {
			seen++
		}
	}
	return -1
}

func matchPowerMarker(format *GameFormat, token string) (string, bool) {
	trimmed := strings.TrimRight(token, ".,;:")
	for _, power := range format.Powers {
		if token == power.Marker || trimmed == power.Marker {
			return power.Marker, true
		}
	}
	return "", false
}

// rawPacket is the packet input wire format: bonus parts arrive as parallel
// arrays that must agree in length.
type rawPacket struct {
	Name    string     `json:"name"`
	Tossups []Tossup   `json:"tossups"`
	Bonuses []rawBonus `json:"bonuses"`
}

type rawBonus struct {
	Leadin              string   `json:"leadin"`
	Parts               []string `json:"parts"`
	Answers             []string `json:"answers"`
	Values              []int    `json:"values"`
	DifficultyModifiers []string `json:"difficultyModifiers"`
	Number              int      `json:"number"`
}

// ParsePacket deserializes the packet input format. A bonus whose parallel
// arrays disagree in length is a fatal load error; nothing is truncated.
func ParsePacket(data []byte) (*Packet, error) {
	var raw rawPacket
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse packet: %w", err)
	}
	if len(raw.Tossups) == 0 {
		return nil, fmt.Errorf("parse packet: no tossups")
	}

	packet := &Packet{Name: raw.Name, Tossups: raw.Tossups}
	for i, rb := range raw.Bonuses {
		if len(rb.Parts) != len(rb.Answers) || len(rb.Parts) != len(rb.Values) {
			return nil, fmt.Errorf(
				"parse packet: bonus %d has mismatched arrays (%d parts, %d answers, %d values)",
				i+1, len(rb.Parts), len(rb.Answers), len(rb.Values))
		}
		if len(rb.DifficultyModifiers) > 0 && len(rb.DifficultyModifiers) != len(rb.Parts) {
			return nil, fmt.Errorf(
				"parse packet: bonus %d has %d difficulty modifiers for %d parts",
				i+1, len(rb.DifficultyModifiers), len(rb.Parts))
		}

		bonus := Bonus{Leadin: rb.Leadin, Number: rb.Number}
		for j := range rb.Parts {
			part := BonusPart{
				Question: rb.Parts[j],
				Answer:   rb.Answers[j],
				Value:    rb.Values[j],
			}
			if len(rb.DifficultyModifiers) > 0 {
				part.DifficultyModifier = rb.DifficultyModifiers[j]
			}
			bonus.Parts = append(bonus.Parts, part)
		}
		packet.Bonuses = append(packet.Bonuses, bonus)
	}
	return packet, nil
}
