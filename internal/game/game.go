package game

import (
	"errors"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

var (
	ErrNameRequired     = errors.New("name required")
	ErrNameTaken        = errors.New("name taken")
	ErrUnknownTeam      = errors.New("unknown team")
	ErrRoundInactive    = errors.New("round inactive")
	ErrAnswerInProgress = errors.New("answer in progress")
	ErrLocked           = errors.New("team locked out")
)

const (
	maxNameLen     = 24
	maxBuzzLogSize = 40
)

// roundAnswers tracks which team has been credited for each component of
// the current round. Empty team id / zero timestamp means uncredited.
type roundAnswers struct {
	artistTeamID string
	titleTeamID  string
	artistAt     int64
	titleAt      int64
	fullAwarded  bool
}

// Game holds the entire authoritative state of one buzzer game. Every
// exported method takes the mutex for the whole action, so no two actions
// ever interleave mid-evaluation; the buzz check-then-set in particular is
// a single critical section.
type Game struct {
	mu    sync.Mutex
	clock clockwork.Clock

	defaults  Settings
	settings  Settings
	playerURL string

	teams   map[string]*Team
	nextSeq int

	roundActive      bool
	roundNumber      int
	currentTeamID    string
	answerEndsAt     int64
	roundStartAt     int64
	lastWinnerTeamID string
	buzzLog          []BuzzEntry
	lastResult       *LastResult
	answers          roundAnswers
}

// New creates an empty game. Out-of-range settings fields fall back to
// DefaultSettings field-by-field.
func New(clock clockwork.Clock, settings Settings) *Game {
	defaults := DefaultSettings
	if validAnswerTime(settings.AnswerTimeSec) {
		defaults.AnswerTimeSec = roundTenth(settings.AnswerTimeSec)
	}
	if validLockoutTime(settings.LockoutTimeSec) {
		defaults.LockoutTimeSec = roundTenth(settings.LockoutTimeSec)
	}
	return &Game{
		clock:    clock,
		defaults: defaults,
		settings: defaults,
		teams:    make(map[string]*Team),
	}
}

// SetPlayerURL sets the shareable join URL embedded in every snapshot.
func (g *Game) SetPlayerURL(url string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.playerURL = url
}

func (g *Game) now() int64 {
	return g.clock.Now().UnixMilli()
}

// NormalizeName trims, collapses internal whitespace runs and truncates to
// the maximum team name length.
func NormalizeName(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	if r := []rune(name); len(r) > maxNameLen {
		name = string(r[:maxNameLen])
	}
	return name
}

func (g *Game) nameTaken(name, excludeID string) bool {
	target := strings.ToLower(name)
	for _, t := range g.teams {
		if t.ID == excludeID {
			continue
		}
		if strings.ToLower(t.Name) == target {
			return true
		}
	}
	return false
}

// Join registers a new team or, when existingID resolves, reconnects it.
// On reconnect a non-empty name differing from the current one renames the
// team, subject to the uniqueness check excluding itself. The returned Team
// is a copy; connID becomes the sole authoritative connection for the team.
func (g *Game) Join(name, existingID, connID string) (Team, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	name = NormalizeName(name)
	if name == "" && existingID == "" {
		return Team{}, ErrNameRequired
	}

	var team *Team
	if existingID != "" {
		team = g.teams[existingID]
	}
	if team != nil {
		if name != "" && name != team.Name {
			if g.nameTaken(name, team.ID) {
				return Team{}, ErrNameTaken
			}
			team.Name = name
		}
	} else {
		if name == "" {
			return Team{}, ErrNameRequired
		}
		if g.nameTaken(name, "") {
			return Team{}, ErrNameTaken
		}
		team = &Team{
			ID:   uuid.NewString(),
			Name: name,
			seq:  g.nextSeq,
		}
		g.nextSeq++
		g.teams[team.ID] = team
	}

	team.Connected = true
	team.connID = connID
	return *team, nil
}

// MarkDisconnected flags the team owned by connID as disconnected. The team
// row and all its scores persist so the client can rejoin by id. Reports
// whether anything changed. A stale connection that no longer owns its team
// (the team reconnected elsewhere) changes nothing.
func (g *Game) MarkDisconnected(connID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, t := range g.teams {
		if t.connID == connID && t.Connected {
			t.Connected = false
			return true
		}
	}
	return false
}

// OwnsTeam reports whether connID is the authoritative connection for teamID.
func (g *Game) OwnsTeam(connID, teamID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	t := g.teams[teamID]
	return t != nil && t.connID == connID
}

// StartRound begins the next round: bumps the round number, clears the buzz
// log, last result, per-round credits and every team's lockout and buzz
// marker. Allowed from any state.
func (g *Game) StartRound() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.roundActive = true
	g.roundNumber++
	g.currentTeamID = ""
	g.answerEndsAt = 0
	g.roundStartAt = g.now()
	g.lastWinnerTeamID = ""
	g.buzzLog = nil
	g.lastResult = nil
	g.answers = roundAnswers{}
	for _, t := range g.teams {
		t.LockoutUntil = 0
		t.LastBuzzAt = 0
	}
}

// EndRound deactivates the current round, releasing any floor-holder.
// Reports false when no round was active (idempotent no-op).
func (g *Game) EndRound() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.roundActive {
		return false
	}
	g.roundActive = false
	g.currentTeamID = ""
	g.answerEndsAt = 0
	return true
}

// Reset wipes all teams and round state and restores default settings.
func (g *Game) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.teams = make(map[string]*Team)
	g.roundActive = false
	g.roundNumber = 0
	g.currentTeamID = ""
	g.answerEndsAt = 0
	g.roundStartAt = 0
	g.lastWinnerTeamID = ""
	g.buzzLog = nil
	g.lastResult = nil
	g.answers = roundAnswers{}
	g.settings = g.defaults
}

func validAnswerTime(v float64) bool  { return v > 0 && v < 60 }
func validLockoutTime(v float64) bool { return v >= 0 && v < 120 }

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

func secToMs(sec float64) int64 {
	return int64(math.Round(sec * 1000))
}

// SetSettings applies new timing values field-by-field; out-of-range fields
// are ignored. New values affect subsequent buzzes only, never running
// windows or existing lockouts.
func (g *Game) SetSettings(answerTimeSec, lockoutTimeSec float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if validAnswerTime(answerTimeSec) {
		g.settings.AnswerTimeSec = roundTenth(answerTimeSec)
	}
	if validLockoutTime(lockoutTimeSec) {
		g.settings.LockoutTimeSec = roundTenth(lockoutTimeSec)
	}
}

// Buzz attempts to claim the floor for teamID. Exactly one buzz can win per
// answering opportunity: the first one to run sets the floor-holder, and
// every later one fails with ErrAnswerInProgress until the floor is
// released. Lockout expiry is evaluated lazily against the current time.
func (g *Game) Buzz(teamID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	team := g.teams[teamID]
	if team == nil {
		return ErrUnknownTeam
	}
	now := g.now()
	if !g.roundActive {
		return ErrRoundInactive
	}
	if g.currentTeamID != "" {
		return ErrAnswerInProgress
	}
	if team.LockoutUntil > now {
		return ErrLocked
	}

	g.currentTeamID = teamID
	g.answerEndsAt = now + secToMs(g.settings.AnswerTimeSec)
	team.LastBuzzAt = now
	g.buzzLog = append(g.buzzLog, BuzzEntry{TeamID: teamID, Name: team.Name, At: now})
	if len(g.buzzLog) > maxBuzzLogSize {
		g.buzzLog = g.buzzLog[1:]
	}
	return nil
}

func (g *Game) canAward(result Result) bool {
	artistDone := g.answers.artistTeamID != ""
	titleDone := g.answers.titleTeamID != ""
	switch result {
	case ResultAll:
		return !artistDone && !titleDone
	case ResultArtist:
		return !artistDone
	case ResultTitle:
		return !titleDone
	}
	return true
}

func (g *Game) endRoundLocked(winnerID string) {
	g.roundActive = false
	g.currentTeamID = ""
	g.answerEndsAt = 0
	g.lastWinnerTeamID = winnerID
}

// MarkResult applies the host's verdict to the current floor-holder.
// Reports false (no state change) when no team holds the floor or the
// targeted component was already credited this round.
//
// "all" credits both components and always ends the round. A single
// component mark ends the round only when it completes both components;
// otherwise the team is locked out and the floor reopens. The full-song
// bonus is granted once, exactly when both components end up credited to
// the same team. Incorrect answers only count a miss and lock the team out.
func (g *Game) MarkResult(result Result) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	teamID := g.currentTeamID
	team := g.teams[teamID]
	if team == nil {
		return false
	}
	if !g.canAward(result) {
		return false
	}

	now := g.now()
	points := 0
	correct := false

	switch result {
	case ResultAll:
		points = 2
		team.ArtistPoints++
		team.TitlePoints++
		correct = true
	case ResultArtist:
		points = 1
		team.ArtistPoints++
		correct = true
	case ResultTitle:
		points = 1
		team.TitlePoints++
		correct = true
	case ResultIncorrect:
		team.Misses++
	}
	team.Score += points

	if correct && g.roundStartAt != 0 {
		solveMs := now - g.roundStartAt
		if solveMs < 0 {
			solveMs = 0
		}
		team.CorrectCount++
		team.TotalCorrectMs += solveMs
		if team.MinCorrectMs == nil || solveMs < *team.MinCorrectMs {
			ms := solveMs
			team.MinCorrectMs = &ms
		}
	}

	g.lastResult = &LastResult{TeamID: teamID, Result: result, Points: points, At: now}

	switch result {
	case ResultAll:
		g.answers.artistTeamID = teamID
		g.answers.titleTeamID = teamID
		g.answers.artistAt = now
		g.answers.titleAt = now
	case ResultArtist:
		g.answers.artistTeamID = teamID
		g.answers.artistAt = now
	case ResultTitle:
		g.answers.titleTeamID = teamID
		g.answers.titleAt = now
	}

	roundComplete := g.answers.artistTeamID != "" && g.answers.titleTeamID != ""
	if roundComplete && !g.answers.fullAwarded && g.answers.artistTeamID == g.answers.titleTeamID {
		if full := g.teams[g.answers.artistTeamID]; full != nil {
			full.FullCount++
		}
		g.answers.fullAwarded = true
	}

	if result == ResultAll || roundComplete {
		g.endRoundLocked(teamID)
	} else {
		team.LockoutUntil = now + secToMs(g.settings.LockoutTimeSec)
		g.currentTeamID = ""
		g.answerEndsAt = 0
	}
	return true
}

// DeleteTeam removes the team and scrubs every reference to it: buzz log
// entries, floor-holder, last winner, last result and per-round credits.
// Clearing a credited component un-completes the round, so the full-bonus
// flag is reset for the completion judgment to be recomputed. Reports false
// when the id is unknown.
func (g *Game) DeleteTeam(teamID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.teams[teamID] == nil {
		return false
	}
	delete(g.teams, teamID)

	kept := g.buzzLog[:0]
	for _, e := range g.buzzLog {
		if e.TeamID != teamID {
			kept = append(kept, e)
		}
	}
	g.buzzLog = kept

	if g.currentTeamID == teamID {
		g.currentTeamID = ""
		g.answerEndsAt = 0
	}
	if g.lastWinnerTeamID == teamID {
		g.lastWinnerTeamID = ""
	}
	if g.lastResult != nil && g.lastResult.TeamID == teamID {
		g.lastResult = nil
	}
	if g.answers.artistTeamID == teamID {
		g.answers.artistTeamID = ""
		g.answers.artistAt = 0
	}
	if g.answers.titleTeamID == teamID {
		g.answers.titleTeamID = ""
		g.answers.titleAt = 0
	}
	if g.answers.artistTeamID == "" || g.answers.titleTeamID == "" {
		g.answers.fullAwarded = false
	}
	return true
}

// Snapshot builds the full immutable projection of the current state. The
// team list is ordered by join sequence; transport identifiers stay hidden.
func (g *Game) Snapshot() *Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	teams := make([]Team, 0, len(g.teams))
	for _, t := range g.teams {
		tc := *t
		if t.MinCorrectMs != nil {
			ms := *t.MinCorrectMs
			tc.MinCorrectMs = &ms
		}
		teams = append(teams, tc)
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].seq < teams[j].seq })

	var lastResult *LastResult
	if g.lastResult != nil {
		lr := *g.lastResult
		lastResult = &lr
	}

	return &Snapshot{
		ServerTime:             g.now(),
		PlayerURL:              g.playerURL,
		RoundActive:            g.roundActive,
		RoundNumber:            g.roundNumber,
		CurrentAnsweringTeamID: strPtr(g.currentTeamID),
		AnswerEndsAt:           msPtr(g.answerEndsAt),
		RoundStartAt:           msPtr(g.roundStartAt),
		LastWinnerTeamID:       strPtr(g.lastWinnerTeamID),
		LastResult:             lastResult,
		RoundAnswers: RoundAnswers{
			ArtistTeamID: strPtr(g.answers.artistTeamID),
			TitleTeamID:  strPtr(g.answers.titleTeamID),
			ArtistAt:     msPtr(g.answers.artistAt),
			TitleAt:      msPtr(g.answers.titleAt),
			FullAwarded:  g.answers.fullAwarded,
		},
		Settings: g.settings,
		BuzzLog:  append(make([]BuzzEntry, 0, len(g.buzzLog)), g.buzzLog...),
		Teams:    teams,
	}
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func msPtr(ms int64) *int64 {
	if ms == 0 {
		return nil
	}
	return &ms
}
