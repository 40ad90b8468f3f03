package game

// Result is a host verdict on the answer currently being given.
type Result string

const (
	ResultAll       Result = "all"
	ResultArtist    Result = "artist"
	ResultTitle     Result = "title"
	ResultIncorrect Result = "incorrect"
)

// ValidResult reports whether r is one of the four accepted verdicts.
func ValidResult(r Result) bool {
	switch r {
	case ResultAll, ResultArtist, ResultTitle, ResultIncorrect:
		return true
	}
	return false
}

// Team is one buzzer team. Timestamps are unix milliseconds; LockoutUntil
// and LastBuzzAt use 0 for "never".
type Team struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Score          int    `json:"score"`
	ArtistPoints   int    `json:"artistPoints"`
	TitlePoints    int    `json:"titlePoints"`
	FullCount      int    `json:"fullCount"`
	CorrectCount   int    `json:"correctCount"`
	MinCorrectMs   *int64 `json:"minCorrectMs"`
	TotalCorrectMs int64  `json:"totalCorrectMs"`
	Misses         int    `json:"misses"`
	LockoutUntil   int64  `json:"lockoutUntil"`
	Connected      bool   `json:"connected"`
	LastBuzzAt     int64  `json:"lastBuzzAt"`

	// transport-level, never serialized
	connID string
	seq    int
}

// Settings are the host-tunable timing knobs, in seconds.
type Settings struct {
	AnswerTimeSec  float64 `json:"answerTimeSec"`
	LockoutTimeSec float64 `json:"lockoutTimeSec"`
}

// DefaultSettings mirrors the values the game starts (and resets) with.
var DefaultSettings = Settings{AnswerTimeSec: 5, LockoutTimeSec: 10}

// BuzzEntry is one line of the per-round buzz log. The team name is a
// snapshot taken at buzz time so the log survives renames and deletions.
type BuzzEntry struct {
	TeamID string `json:"teamId"`
	Name   string `json:"name"`
	At     int64  `json:"at"`
}

// LastResult records the most recent scoring decision. Clients compare At
// against the previous value they saw to detect a fresh result.
type LastResult struct {
	TeamID string `json:"teamId"`
	Result Result `json:"result"`
	Points int    `json:"points"`
	At     int64  `json:"at"`
}

// RoundAnswers is the wire projection of the per-round crediting record.
type RoundAnswers struct {
	ArtistTeamID *string `json:"artistTeamId"`
	TitleTeamID  *string `json:"titleTeamId"`
	ArtistAt     *int64  `json:"artistAt"`
	TitleAt      *int64  `json:"titleAt"`
	FullAwarded  bool    `json:"fullAwarded"`
}

// Snapshot is the full authoritative state pushed to every observer after
// each mutation. ServerTime lets clients correct for clock offset.
type Snapshot struct {
	ServerTime             int64        `json:"serverTime"`
	PlayerURL              string       `json:"playerUrl"`
	RoundActive            bool         `json:"roundActive"`
	RoundNumber            int          `json:"roundNumber"`
	CurrentAnsweringTeamID *string      `json:"currentAnsweringTeamId"`
	AnswerEndsAt           *int64       `json:"answerEndsAt"`
	RoundStartAt           *int64       `json:"roundStartAt"`
	LastWinnerTeamID       *string      `json:"lastWinnerTeamId"`
	LastResult             *LastResult  `json:"lastResult"`
	RoundAnswers           RoundAnswers `json:"roundAnswers"`
	Settings               Settings     `json:"settings"`
	BuzzLog                []BuzzEntry  `json:"buzzLog"`
	Teams                  []Team       `json:"teams"`
}
