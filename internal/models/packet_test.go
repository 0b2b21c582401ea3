// internal/models/packet_test.go
package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGetWordsBasic verifies plain tokenization: every token is buzzable and
// the synthetic end-of-question word closes the list.
func TestGetWordsBasic(t *testing.T) {
	format := ACFGameFormat()
	tossup := Tossup{Question: "Name this Danish physicist."}

	words := tossup.GetWords(&format)
	require.Len(t, words, 4)
	for i := 0; i < 3; i++ {
		assert.Equal(t, i, words[i].BuzzIndex)
		assert.Equal(t, -1, words[i].NonWordIndex)
		assert.False(t, words[i].IsEndOfQuestion)
	}
	last := words[3]
	assert.Equal(t, EndOfQuestionText, last.Text)
	assert.Equal(t, 3, last.BuzzIndex)
	assert.True(t, last.IsEndOfQuestion)
	assert.Equal(t, 3, tossup.LastWordIndex(&format))
}

// TestGetWordsPowerMarkerAndGuide checks that power-marker tokens and
// pronunciation guide spans are excluded from the buzz index space but kept
// with their own non-word indexes.
func TestGetWordsPowerMarkerAndGuide(t *testing.T) {
	format := PowersGameFormat()
	tossup := Tossup{Question: "The (*) composer (KAR-pat) wrote nocturnes"}

	words := tossup.GetWords(&format)
	require.Len(t, words, 7)

	assert.Equal(t, 0, words[0].BuzzIndex) // The
	assert.Equal(t, "(*)", words[1].PowerMarker)
	assert.Equal(t, -1, words[1].BuzzIndex)
	assert.Equal(t, 0, words[1].NonWordIndex)
	assert.Equal(t, 1, words[2].BuzzIndex) // composer
	assert.True(t, words[3].InGuide)       // (KAR-pat)
	assert.Equal(t, -1, words[3].BuzzIndex)
	assert.Equal(t, 1, words[3].NonWordIndex)
	assert.Equal(t, 2, words[4].BuzzIndex) // wrote
	assert.Equal(t, 3, words[5].BuzzIndex) // nocturnes
	assert.True(t, words[6].IsEndOfQuestion)
	assert.Equal(t, 4, words[6].BuzzIndex)
}

// TestGetWordsMultiTokenGuide covers a guide that spans several tokens and a
// power marker with trailing punctuation.
func TestGetWordsMultiTokenGuide(t *testing.T) {
	format := PowersGameFormat()
	tossup := Tossup{Question: "Carpathians (kar PAY thee unz) rise (*), in Europe"}

	words := tossup.GetWords(&format)

	guideCount := 0
	for _, w := range words {
		if w.InGuide {
			guideCount++
		}
	}
	assert.Equal(t, 4, guideCount, "all four guide tokens should be non-buzzable")

	markerSeen := false
	buzzable := []string{}
	for _, w := range words {
		if w.PowerMarker != "" {
			markerSeen = true
			assert.Equal(t, "(*)", w.PowerMarker, "trailing comma should be stripped when matching")
		}
		if w.BuzzIndex >= 0 && !w.IsEndOfQuestion {
			buzzable = append(buzzable, w.Text)
		}
	}
	assert.True(t, markerSeen)
	assert.Equal(t, []string{"Carpathians", "rise", "in", "Europe"}, buzzable)
}

// TestGetPointsAtPosition exercises the power/neg derivation rules on a
// tossup with a single power boundary after two buzzable words.
func TestGetPointsAtPosition(t *testing.T) {
	format := PowersGameFormat() // 15-point power, -5 neg
	tossup := Tossup{Question: "alpha beta (*) gamma delta"}
	// Buzzable: alpha=0 beta=1 gamma=2 delta=3 (end)=4; power boundary at 2.

	assert.Equal(t, 15, tossup.GetPointsAtPosition(&format, 0, true))
	assert.Equal(t, 15, tossup.GetPointsAtPosition(&format, 1, true))
	assert.Equal(t, 10, tossup.GetPointsAtPosition(&format, 2, true))
	assert.Equal(t, 10, tossup.GetPointsAtPosition(&format, 4, true))

	for i := 0; i < 4; i++ {
		assert.Equal(t, -5, tossup.GetPointsAtPosition(&format, i, false), "wrong buzz before the end negs")
	}
	assert.Equal(t, 0, tossup.GetPointsAtPosition(&format, 4, false), "wrong buzz at the end is free")
	assert.Equal(t, 0, tossup.GetPointsAtPosition(&format, 99, false), "wrong buzz past the end is free")
}

// TestGetPointsAtPositionEdges: out-of-range correct buzzes never fail, and a
// marker sitting at the very end of the question awards no power.
func TestGetPointsAtPositionEdges(t *testing.T) {
	format := PowersGameFormat()

	tossup := Tossup{Question: "alpha beta (*) gamma"}
	assert.Equal(t, 10, tossup.GetPointsAtPosition(&format, -1, true), "negative index defaults to the standard value")

	terminal := Tossup{Question: "alpha beta (*)"}
	assert.Equal(t, 10, terminal.GetPointsAtPosition(&format, 0, true), "terminal marker awards no power")

	noPowers := ACFGameFormat()
	assert.Equal(t, 10, tossup.GetPointsAtPosition(&noPowers, 0, true))
}

func TestBonusTotalValue(t *testing.T) {
	b := Bonus{Parts: []BonusPart{{Value: 10}, {Value: 10}, {Value: 10}}}
	assert.Equal(t, 30, b.TotalValue())
}

// TestParsePacket covers the packet input wire format, including the fatal
// parallel-array mismatch rule.
func TestParsePacket(t *testing.T) {
	data := []byte(`{
		"name": "Packet 1",
		"tossups": [
			{"question": "First tossup text", "answer": "alpha", "number": 1},
			{"question": "Second tossup text", "answer": "beta", "number": 2}
		],
		"bonuses": [{
			"leadin": "Answer the following.",
			"parts": ["part one", "part two"],
			"answers": ["a", "b"],
			"values": [10, 10],
			"difficultyModifiers": ["e", "h"],
			"number": 1
		}]
	}`)

	packet, err := ParsePacket(data)
	require.NoError(t, err)
	assert.Equal(t, "Packet 1", packet.Name)
	require.Len(t, packet.Tossups, 2)
	require.Len(t, packet.Bonuses, 1)
	require.Len(t, packet.Bonuses[0].Parts, 2)
	assert.Equal(t, "part one", packet.Bonuses[0].Parts[0].Question)
	assert.Equal(t, "a", packet.Bonuses[0].Parts[0].Answer)
	assert.Equal(t, 10, packet.Bonuses[0].Parts[0].Value)
	assert.Equal(t, "h", packet.Bonuses[0].Parts[1].DifficultyModifier)
}

func TestParsePacketRejectsMismatchedArrays(t *testing.T) {
	data := []byte(`{
		"tossups": [{"question": "Only tossup", "answer": "x", "number": 1}],
		"bonuses": [{
			"leadin": "l",
			"parts": ["one", "two"],
			"answers": ["a"],
			"values": [10, 10],
			"number": 1
		}]
	}`)
	_, err := ParsePacket(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mismatched arrays")
}

func TestParsePacketRejectsEmpty(t *testing.T) {
	_, err := ParsePacket([]byte(`{"tossups": []}`))
	require.Error(t, err)

	_, err = ParsePacket([]byte(`not json`))
	require.Error(t, err)
}
