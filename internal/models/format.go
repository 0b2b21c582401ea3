// internal/models/format.go
package models

import "fmt"

// Power pairs a power marker token (as it appears in question text, e.g. "(*)")
// with the point value awarded for a correct buzz before that marker.
type Power struct {
	Marker string `json:"marker" yaml:"marker"`
	Points int    `json:"points" yaml:"points"`
}

// GameFormat is the rule configuration for a match. It is a plain value
// object: buzz values are always derived from (event, format), never stored,
// so replacing the format mid-game rescores every recorded buzz.
type GameFormat struct {
	DisplayName                  string   `json:"displayName" yaml:"displayName"`
	RegulationTossupCount        int      `json:"regulationTossupCount" yaml:"regulationTossupCount"`
	MinimumOvertimeQuestionCount int      `json:"minimumOvertimeQuestionCount" yaml:"minimumOvertimeQuestionCount"`
	OvertimeIncludesBonuses      bool     `json:"overtimeIncludesBonuses" yaml:"overtimeIncludesBonuses"`
	BonusesBounceBack            bool     `json:"bonusesBounceBack" yaml:"bonusesBounceBack"`
	NegValue                     int      `json:"negValue" yaml:"negValue"`
	PairTossupsBonuses           bool     `json:"pairTossupsBonuses" yaml:"pairTossupsBonuses"`
	Powers                       []Power  `json:"powers" yaml:"powers"`
	TimeoutsAllowed              int      `json:"timeoutsAllowed" yaml:"timeoutsAllowed"`
	PronunciationGuideMarkers    []string `json:"pronunciationGuideMarkers,omitempty" yaml:"pronunciationGuideMarkers,omitempty"`
	Version                      string   `json:"version" yaml:"version"`
}

// CurrentFormatVersion tags formats produced by this build.
const CurrentFormatVersion = "1"

// Validate checks structural invariants. Powers must be sorted strictly
// descending by points (an empty list means no power scoring), and the
// pronunciation guide markers come as a start/end pair or not at all.
func (f *GameFormat) Validate() error {
	if f.RegulationTossupCount <= 0 {
		return fmt.Errorf("regulation tossup count must be positive, got %d", f.RegulationTossupCount)
	}
	if f.MinimumOvertimeQuestionCount <= 0 {
		return fmt.Errorf("minimum overtime question count must be positive, got %d", f.MinimumOvertimeQuestionCount)
	}
	for i := 1; i < len(f.Powers); i++ {
		if f.Powers[i].Points >= f.Powers[i-1].Points {
			return fmt.Errorf("powers must be sorted strictly descending by points (%d then %d)",
				f.Powers[i-1].Points, f.Powers[i].Points)
		}
	}
	for _, p := range f.Powers {
		if p.Marker == "" {
			return fmt.Errorf("power marker must not be empty")
		}
	}
	if n := len(f.PronunciationGuideMarkers); n != 0 && n != 2 {
		return fmt.Errorf("pronunciation guide markers must be a start/end pair, got %d markers", n)
	}
	return nil
}

// HasPowers reports whether the format awards power points.
func (f GameFormat) HasPowers() bool {
	return len(f.Powers) > 0
}

// ACFGameFormat is the standard ACF ruleset: 20 tossups, no powers, -5 negs,
// bonuses do not bounce back.
func ACFGameFormat() GameFormat {
	return GameFormat{
		DisplayName:                  "ACF",
		RegulationTossupCount:        20,
		MinimumOvertimeQuestionCount: 1,
		OvertimeIncludesBonuses:      false,
		BonusesBounceBack:            false,
		NegValue:                     -5,
		PairTossupsBonuses:           true,
		Powers:                       nil,
		TimeoutsAllowed:              1,
		PronunciationGuideMarkers:    []string{"(", ")"},
		Version:                      CurrentFormatVersion,
	}
}

// PowersGameFormat is the common mACF powers ruleset: 15-point power at (*).
func PowersGameFormat() GameFormat {
	f := ACFGameFormat()
	f.DisplayName = "Powers (mACF)"
	f.Powers = []Power{{Marker: "(*)", Points: 15}}
	return f
}

// PACEGameFormat uses a 20-point power and bouncing-back bonuses with no negs.
func PACEGameFormat() GameFormat {
	return GameFormat{
		DisplayName:                  "PACE NSC",
		RegulationTossupCount:        20,
		MinimumOvertimeQuestionCount: 1,
		OvertimeIncludesBonuses:      false,
		BonusesBounceBack:            true,
		NegValue:                     0,
		PairTossupsBonuses:           true,
		Powers:                       []Power{{Marker: "(*)", Points: 20}},
		TimeoutsAllowed:              1,
		PronunciationGuideMarkers:    []string{"(", ")"},
		Version:                      CurrentFormatVersion,
	}
}

// UndefinedGameFormat is permissive enough to accept any imported match.
func UndefinedGameFormat() GameFormat {
	f := PowersGameFormat()
	f.DisplayName = "Freeform"
	f.RegulationTossupCount = 999
	f.TimeoutsAllowed = 999
	return f
}
