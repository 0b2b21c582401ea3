// internal/qbj/schema.go

// Package qbj converts a game to and from the QB Schema match interchange
// format (the "QBJ" JSON representation used by tournament software).
// Conversion is lossy-aware: protests survive only as human-readable notes,
// and lineup snapshots carry set-level rather than event-level history.
package qbj

// Match is the root interchange document.
type Match struct {
	TossupsRead    int             `json:"tossups_read"`
	MatchTeams     []MatchTeam     `json:"match_teams"`
	MatchQuestions []MatchQuestion `json:"match_questions"`
	Notes          string          `json:"notes,omitempty"`
	Packets        string          `json:"packets,omitempty"`
	Round          string          `json:"_round,omitempty"`
}

// Team identifies a team and its full roster.
type Team struct {
	Name    string   `json:"name"`
	Players []Player `json:"players"`
}

// Player is a name reference within the document.
type Player struct {
	Name string `json:"name"`
}

// MatchTeam is one team's side of the match: roster, per-player counters,
// lineup history, and bonus totals.
type MatchTeam struct {
	Team                  Team          `json:"team"`
	BonusPoints           int           `json:"bonus_points"`
	BonusBouncebackPoints *int          `json:"bonus_bounceback_points,omitempty"`
	MatchPlayers          []MatchPlayer `json:"match_players"`
	Lineups               []Lineup      `json:"lineups"`
}

// Lineup is a snapshot of the active players, tagged with the first
// question number (1-based) it applies to.
type Lineup struct {
	FirstQuestion int      `json:"first_question"`
	Players       []Player `json:"players"`
}

// MatchPlayer carries one player's accumulated counters.
type MatchPlayer struct {
	Player       Player        `json:"player"`
	TossupsHeard int           `json:"tossups_heard"`
	AnswerCounts []AnswerCount `json:"answer_counts"`
}

// AnswerCount is a histogram bucket: how many buzzes were scored at a value.
type AnswerCount struct {
	Number int        `json:"number"`
	Answer AnswerType `json:"answer"`
}

// AnswerType wraps the point value of a histogram bucket.
type AnswerType struct {
	Value int `json:"value"`
}

// Question references a packet question by 1-based number.
type Question struct {
	QuestionNumber int    `json:"question_number"`
	Type           string `json:"type"`
	Parts          int    `json:"parts"`
}

// MatchQuestion is one cycle of the match: which tossup was read (and which
// replaced a thrown-out one), the temporally ordered buzzes, and the bonus.
type MatchQuestion struct {
	QuestionNumber            int        `json:"question_number"`
	TossupQuestion            Question   `json:"tossup_question"`
	ReplacementTossupQuestion *Question  `json:"replacement_tossup_question,omitempty"`
	Buzzes                    []Buzz     `json:"buzzes"`
	Bonus                     *MatchBonus `json:"bonus,omitempty"`
	ReplacementBonus          *MatchBonus `json:"replacement_bonus,omitempty"`
}

// Buzz is one buzz with its derived point value.
type Buzz struct {
	Team         Team         `json:"team"`
	Player       Player       `json:"player"`
	BuzzPosition BuzzPosition `json:"buzz_position"`
	Result       AnswerType   `json:"result"`
}

// BuzzPosition addresses a buzzable word in the tossup.
type BuzzPosition struct {
	WordIndex int `json:"word_index"`
}

// MatchBonus is the bonus outcome, split per part into controlled and
// bounced-back points.
type MatchBonus struct {
	Question *Question        `json:"question,omitempty"`
	Parts    []MatchBonusPart `json:"parts"`
}

// MatchBonusPart is the point split for one bonus part.
type MatchBonusPart struct {
	ControlledPoints int  `json:"controlled_points"`
	BouncebackPoints *int `json:"bounceback_points,omitempty"`
}

const (
	questionTypeTossup = "tossup"
	questionTypeBonus  = "bonus"
)
