// internal/game/cycle.go
package game

import (
	"sort"

	"github.com/google/uuid"

	"github.com/quizbowl/qbscore/internal/models"
)

// TossupAnswerEvent records a buzz: who buzzed, on which packet tossup, and
// at which buzzable word position. The point value is never stored; it is
// derived from (position, format) so a mid-game format change rescores
// history. Seq is a cycle-local monotonic sequence number that makes the
// temporal order of buzzes explicit instead of relying on slice position.
type TossupAnswerEvent struct {
	TossupIndex int       `json:"tossupIndex"`
	PlayerID    uuid.UUID `json:"playerId"`
	PlayerName  string    `json:"playerName"`
	TeamName    string    `json:"teamName"`
	Position    int       `json:"position"`
	Seq         int       `json:"seq"`
}

// BuzzValuer reports the derived point value of a buzz event. GameState
// supplies one closed over its packet and format.
type BuzzValuer func(ev TossupAnswerEvent, isCorrect bool) int

// ThrownOutQuestion marks a packet question skipped at this cycle.
type ThrownOutQuestion struct {
	QuestionIndex int `json:"questionIndex"`
}

// BonusPartAnswer is the scoring outcome of one bonus part. An empty team
// name means nobody scored the part.
type BonusPartAnswer struct {
	TeamName string `json:"teamName"`
	Points   int    `json:"points"`
}

// BonusAnswer is the bonus outcome attached to a correct buzz. Parts may be
// attributed to a team other than the receiving team only under bounceback
// rules, in which case that entry's TeamName differs from ReceivingTeamName.
type BonusAnswer struct {
	BonusIndex        int               `json:"bonusIndex"`
	ReceivingTeamName string            `json:"receivingTeamName"`
	Parts             []BonusPartAnswer `json:"parts"`
}

// Substitution is a simultaneous in/out pair on one team.
type Substitution struct {
	In  models.Player `json:"in"`
	Out models.Player `json:"out"`
}

// TossupProtest is an advisory record; it never mutates the score directly.
type TossupProtest struct {
	TeamName      string `json:"teamName"`
	QuestionIndex int    `json:"questionIndex"`
	Position      int    `json:"position"`
	GivenAnswer   string `json:"givenAnswer"`
	Reason        string `json:"reason"`
}

// BonusProtest disputes the ruling on a single bonus part.
type BonusProtest struct {
	TeamName      string `json:"teamName"`
	QuestionIndex int    `json:"questionIndex"`
	PartIndex     int    `json:"partIndex"`
	GivenAnswer   string `json:"givenAnswer"`
	Reason        string `json:"reason"`
}

// Cycle is the event log for one tossup-reading slot: the buzzes on that
// slot's tossup, the bonus outcome if the tossup was converted, and any
// administrative events (substitutions, protests, thrown-out questions)
// recorded while the slot was live. Mutators only append or replace; every
// derived quantity is recomputed from the log on read.
type Cycle struct {
	ThrownOutTossups []ThrownOutQuestion `json:"thrownOutTossups,omitempty"`
	ThrownOutBonuses []ThrownOutQuestion `json:"thrownOutBonuses,omitempty"`
	WrongBuzzes      []TossupAnswerEvent `json:"wrongBuzzes,omitempty"`
	CorrectBuzz      *TossupAnswerEvent  `json:"correctBuzz,omitempty"`
	BonusAnswer      *BonusAnswer        `json:"bonusAnswer,omitempty"`
	PlayerJoins      []models.Player     `json:"playerJoins,omitempty"`
	PlayerLeaves     []models.Player     `json:"playerLeaves,omitempty"`
	Subs             []Substitution      `json:"subs,omitempty"`
	TossupProtests   []TossupProtest     `json:"tossupProtests,omitempty"`
	BonusProtests    []BonusProtest      `json:"bonusProtests,omitempty"`

	nextSeq int
}

func (c *Cycle) nextSequence() int {
	// Recover the counter after deserialization, where nextSeq is zero but
	// events already carry sequence numbers.
	for _, b := range c.WrongBuzzes {
		if b.Seq >= c.nextSeq {
			c.nextSeq = b.Seq + 1
		}
	}
	if c.CorrectBuzz != nil && c.CorrectBuzz.Seq >= c.nextSeq {
		c.nextSeq = c.CorrectBuzz.Seq + 1
	}
	seq := c.nextSeq
	c.nextSeq++
	return seq
}

// AddWrongBuzz records an incorrect buzz. It is a no-op once a correct buzz
// exists; the tossup is already resolved and a late event is a UI race, not
// a user error.
func (c *Cycle) AddWrongBuzz(ev TossupAnswerEvent) bool {
	if c.CorrectBuzz != nil {
		return false
	}
	for _, b := range c.WrongBuzzes {
		if b.PlayerID == ev.PlayerID {
			return false
		}
	}
	ev.Seq = c.nextSequence()
	c.WrongBuzzes = append(c.WrongBuzzes, ev)
	return true
}

// AddCorrectBuzz resolves the tossup and, when a bonus is available,
// initializes an unscored bonus shell received by the buzzing player's team.
// A second correct buzz is a no-op.
func (c *Cycle) AddCorrectBuzz(ev TossupAnswerEvent, bonusIndex, bonusPartCount int) bool {
	if c.CorrectBuzz != nil {
		return false
	}
	ev.Seq = c.nextSequence()
	c.CorrectBuzz = &ev
	if bonusIndex >= 0 && bonusPartCount > 0 {
		c.BonusAnswer = &BonusAnswer{
			BonusIndex:        bonusIndex,
			ReceivingTeamName: ev.TeamName,
			Parts:             make([]BonusPartAnswer, bonusPartCount),
		}
	}
	return true
}

// RemoveCorrectBuzz undoes the correct buzz ruling, discarding the dependent
// bonus outcome and any protests against it.
func (c *Cycle) RemoveCorrectBuzz() {
	c.CorrectBuzz = nil
	c.BonusAnswer = nil
	c.BonusProtests = nil
}

// RemoveWrongBuzz removes the given player's wrong buzz, if any.
func (c *Cycle) RemoveWrongBuzz(playerID uuid.UUID) {
	kept := c.WrongBuzzes[:0]
	for _, b := range c.WrongBuzzes {
		if b.PlayerID != playerID {
			kept = append(kept, b)
		}
	}
	c.WrongBuzzes = kept
}

// SetBonusPartAnswer records the ruling on one bonus part. It requires the
// bonus shell created by the correct buzz.
func (c *Cycle) SetBonusPartAnswer(partIndex int, teamName string, points int) bool {
	if c.BonusAnswer == nil || partIndex < 0 || partIndex >= len(c.BonusAnswer.Parts) {
		return false
	}
	c.BonusAnswer.Parts[partIndex] = BonusPartAnswer{TeamName: teamName, Points: points}
	return true
}

// AddThrownOutTossup records that the given packet tossup was discarded at
// this slot. Selecting the replacement is the caller's concern.
func (c *Cycle) AddThrownOutTossup(questionIndex int) {
	c.ThrownOutTossups = append(c.ThrownOutTossups, ThrownOutQuestion{QuestionIndex: questionIndex})
}

// AddThrownOutBonus records a discarded bonus. The replacement bonus is
// deliberately never populated; only the skip itself is tracked.
func (c *Cycle) AddThrownOutBonus(questionIndex int) {
	c.ThrownOutBonuses = append(c.ThrownOutBonuses, ThrownOutQuestion{QuestionIndex: questionIndex})
}

// AddPlayerJoins records a mid-game roster addition. Legality (the player
// must not already be active) is enforced by the caller.
func (c *Cycle) AddPlayerJoins(player models.Player) {
	c.PlayerJoins = append(c.PlayerJoins, player)
}

// AddPlayerLeaves records a player leaving the lineup.
func (c *Cycle) AddPlayerLeaves(player models.Player) {
	c.PlayerLeaves = append(c.PlayerLeaves, player)
}

// AddSwapSubstitution records a simultaneous swap of two players.
func (c *Cycle) AddSwapSubstitution(in, out models.Player) {
	c.Subs = append(c.Subs, Substitution{In: in, Out: out})
}

// AddTossupProtest records a protest of a tossup ruling. At most one protest
// per team per cycle; a repeat replaces the earlier record.
func (c *Cycle) AddTossupProtest(teamName string, questionIndex, position int, givenAnswer, reason string) {
	c.RemoveTossupProtest(teamName)
	c.TossupProtests = append(c.TossupProtests, TossupProtest{
		TeamName:      teamName,
		QuestionIndex: questionIndex,
		Position:      position,
		GivenAnswer:   givenAnswer,
		Reason:        reason,
	})
}

// RemoveTossupProtest drops the given team's tossup protest, if any.
func (c *Cycle) RemoveTossupProtest(teamName string) {
	kept := c.TossupProtests[:0]
	for _, p := range c.TossupProtests {
		if p.TeamName != teamName {
			kept = append(kept, p)
		}
	}
	c.TossupProtests = kept
}

// AddBonusProtest records a protest of one bonus part's ruling.
func (c *Cycle) AddBonusProtest(teamName string, questionIndex, partIndex int, givenAnswer, reason string) {
	c.RemoveBonusProtest(partIndex)
	c.BonusProtests = append(c.BonusProtests, BonusProtest{
		TeamName:      teamName,
		QuestionIndex: questionIndex,
		PartIndex:     partIndex,
		GivenAnswer:   givenAnswer,
		Reason:        reason,
	})
}

// RemoveBonusProtest drops the protest on the given bonus part, if any.
func (c *Cycle) RemoveBonusProtest(partIndex int) {
	kept := c.BonusProtests[:0]
	for _, p := range c.BonusProtests {
		if p.PartIndex != partIndex {
			kept = append(kept, p)
		}
	}
	c.BonusProtests = kept
}

// RemoveNewPlayerEvents purges every event in this cycle referencing the
// given player. Used when a speculatively-added player is deleted before
// being committed to the roster.
func (c *Cycle) RemoveNewPlayerEvents(teamName, name string) {
	joins := c.PlayerJoins[:0]
	for _, p := range c.PlayerJoins {
		if !p.Matches(teamName, name) {
			joins = append(joins, p)
		}
	}
	c.PlayerJoins = joins

	leaves := c.PlayerLeaves[:0]
	for _, p := range c.PlayerLeaves {
		if !p.Matches(teamName, name) {
			leaves = append(leaves, p)
		}
	}
	c.PlayerLeaves = leaves

	subs := c.Subs[:0]
	for _, s := range c.Subs {
		if !s.In.Matches(teamName, name) && !s.Out.Matches(teamName, name) {
			subs = append(subs, s)
		}
	}
	c.Subs = subs

	buzzes := c.WrongBuzzes[:0]
	for _, b := range c.WrongBuzzes {
		if !(b.TeamName == teamName && b.PlayerName == name) {
			buzzes = append(buzzes, b)
		}
	}
	c.WrongBuzzes = buzzes

	if c.CorrectBuzz != nil && c.CorrectBuzz.TeamName == teamName && c.CorrectBuzz.PlayerName == name {
		c.RemoveCorrectBuzz()
	}
}

// FirstWrongBuzz returns the temporally earliest wrong buzz with a strictly
// negative derived value, or nil. Only this buzz can score as a neg; any
// later wrong buzz in the same cycle scores zero.
func (c *Cycle) FirstWrongBuzz(value BuzzValuer) *TossupAnswerEvent {
	var first *TossupAnswerEvent
	for i := range c.WrongBuzzes {
		b := &c.WrongBuzzes[i]
		if value(*b, false) >= 0 {
			continue
		}
		if first == nil || b.Seq < first.Seq {
			first = b
		}
	}
	return first
}

// OrderedBuzzes returns every buzz in temporal order, wrong buzzes first by
// sequence number and the correct buzz last.
func (c *Cycle) OrderedBuzzes() []TossupAnswerEvent {
	buzzes := make([]TossupAnswerEvent, len(c.WrongBuzzes))
	copy(buzzes, c.WrongBuzzes)
	sort.SliceStable(buzzes, func(i, j int) bool { return buzzes[i].Seq < buzzes[j].Seq })
	if c.CorrectBuzz != nil {
		buzzes = append(buzzes, *c.CorrectBuzz)
	}
	return buzzes
}
