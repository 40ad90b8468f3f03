package ws

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/rs/zerolog/log"
	"github.com/siot-alex/guess-the-melody/internal/game"
)

// ConnCtx is the per-connection role binding. A connection starts unbound
// and acquires a role through join_host or join_team; team connections also
// carry the team identity they act for.
type ConnCtx struct {
	Role   string // "" | "host" | "team"
	TeamID string
}

// Server owns the socket.io surface: it validates role bindings, forwards
// actions to the game and broadcasts a fresh snapshot after every mutation.
type Server struct {
	game *game.Game

	mu      sync.RWMutex
	members map[string]socketio.Conn // socketID -> Conn
}

func New(g *game.Game) *Server {
	return &Server{game: g, members: make(map[string]socketio.Conn)}
}

// Mount attaches the Socket.IO server with all game event handlers to the
// given Gin engine.
func (srv *Server) Mount(r *gin.Engine) *socketio.Server {
	io := socketio.NewServer(nil)

	io.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext(&ConnCtx{})
		srv.addMember(s)
		log.Info().Str("sid", s.ID()).Msg("socket connected")
		return nil
	})

	io.OnEvent("/", "join_host", func(s socketio.Conn) map[string]any {
		s.SetContext(&ConnCtx{Role: "host"})
		log.Info().Str("sid", s.ID()).Msg("join_host")
		defer srv.broadcast()
		return map[string]any{"ok": true, "state": srv.game.Snapshot()}
	})

	io.OnEvent("/", "join_team", func(s socketio.Conn, payload struct {
		Name   string `json:"name"`
		TeamID string `json:"teamId"`
	}) map[string]any {
		team, err := srv.game.Join(payload.Name, payload.TeamID, s.ID())
		if err != nil {
			return map[string]any{"ok": false, "error": errCode(err)}
		}
		s.SetContext(&ConnCtx{Role: "team", TeamID: team.ID})
		log.Info().Str("sid", s.ID()).Str("teamId", team.ID).Str("name", team.Name).Msg("join_team")
		defer srv.broadcast()
		return map[string]any{"ok": true, "teamId": team.ID, "name": team.Name, "state": srv.game.Snapshot()}
	})

	io.OnEvent("/", "set_settings", func(s socketio.Conn, payload struct {
		AnswerTimeSec  float64 `json:"answerTimeSec"`
		LockoutTimeSec float64 `json:"lockoutTimeSec"`
	}) {
		if !isHost(s) {
			return
		}
		srv.game.SetSettings(payload.AnswerTimeSec, payload.LockoutTimeSec)
		log.Info().Float64("answerTimeSec", payload.AnswerTimeSec).Float64("lockoutTimeSec", payload.LockoutTimeSec).Msg("set_settings")
		srv.broadcast()
	})

	io.OnEvent("/", "start_round", func(s socketio.Conn) {
		if !isHost(s) {
			return
		}
		srv.game.StartRound()
		log.Info().Msg("start_round")
		srv.broadcast()
	})

	io.OnEvent("/", "end_round", func(s socketio.Conn) {
		if !isHost(s) {
			return
		}
		if !srv.game.EndRound() {
			return
		}
		log.Info().Msg("end_round")
		srv.broadcast()
	})

	io.OnEvent("/", "reset_game", func(s socketio.Conn) {
		if !isHost(s) {
			return
		}
		srv.game.Reset()
		log.Info().Msg("reset_game")
		srv.broadcast()
	})

	io.OnEvent("/", "delete_team", func(s socketio.Conn, payload struct {
		TeamID string `json:"teamId"`
	}) {
		if !isHost(s) {
			return
		}
		if !srv.game.DeleteTeam(payload.TeamID) {
			return
		}
		log.Info().Str("teamId", payload.TeamID).Msg("delete_team")
		srv.broadcast()
	})

	io.OnEvent("/", "mark_result", func(s socketio.Conn, payload struct {
		Result string `json:"result"`
	}) {
		srv.markResult(s, game.Result(payload.Result))
	})

	// legacy host console events
	io.OnEvent("/", "mark_correct", func(s socketio.Conn) {
		srv.markResult(s, game.ResultAll)
	})
	io.OnEvent("/", "mark_incorrect", func(s socketio.Conn) {
		srv.markResult(s, game.ResultIncorrect)
	})

	io.OnEvent("/", "buzz", func(s socketio.Conn) map[string]any {
		ctx, _ := s.Context().(*ConnCtx)
		if ctx == nil || ctx.Role != "team" || ctx.TeamID == "" {
			return nil
		}
		if err := srv.game.Buzz(ctx.TeamID); err != nil {
			reason := errCode(err)
			if reason == "" {
				return nil
			}
			return map[string]any{"ok": false, "reason": reason, "state": srv.game.Snapshot()}
		}
		log.Info().Str("teamId", ctx.TeamID).Msg("buzz")
		defer srv.broadcast()
		return map[string]any{"ok": true, "state": srv.game.Snapshot()}
	})

	io.OnError("/", func(s socketio.Conn, e error) {
		log.Error().Err(e).Msg("socket error")
	})

	io.OnDisconnect("/", func(s socketio.Conn, reason string) {
		srv.removeMember(s)
		changed := false
		if ctx, ok := s.Context().(*ConnCtx); ok && ctx.Role == "team" {
			changed = srv.game.MarkDisconnected(s.ID())
		}
		log.Info().Str("sid", s.ID()).Str("reason", reason).Msg("socket disconnected")
		if changed {
			srv.broadcast()
		}
	})

	go io.Serve()

	r.GET("/socket.io/*any", gin.WrapH(io))
	r.POST("/socket.io/*any", gin.WrapH(io))
	r.OPTIONS("/socket.io/*any", func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Status(http.StatusNoContent)
	})

	return io
}

func (srv *Server) markResult(s socketio.Conn, result game.Result) {
	if !isHost(s) {
		return
	}
	if !game.ValidResult(result) {
		return
	}
	if !srv.game.MarkResult(result) {
		return
	}
	log.Info().Str("result", string(result)).Msg("mark_result")
	srv.broadcast()
}

func isHost(s socketio.Conn) bool {
	ctx, ok := s.Context().(*ConnCtx)
	return ok && ctx.Role == "host"
}

func errCode(err error) string {
	switch err {
	case game.ErrNameRequired:
		return "name_required"
	case game.ErrNameTaken:
		return "name_taken"
	case game.ErrRoundInactive:
		return "round_inactive"
	case game.ErrAnswerInProgress:
		return "answer_in_progress"
	case game.ErrLocked:
		return "locked"
	}
	return ""
}

func (srv *Server) addMember(c socketio.Conn) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	srv.members[c.ID()] = c
}

func (srv *Server) removeMember(c socketio.Conn) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	delete(srv.members, c.ID())
}

// broadcast pushes a fresh snapshot to every connected observer, host and
// team alike. This is the only channel through which clients learn of state
// changes besides the ack on their own request.
func (srv *Server) broadcast() {
	snap := srv.game.Snapshot()
	srv.mu.RLock()
	defer srv.mu.RUnlock()
	for _, c := range srv.members {
		c.Emit("state_update", snap)
	}
}
