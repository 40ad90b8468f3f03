package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/browser"
	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"
	"github.com/siot-alex/guess-the-melody/internal/config"
	"github.com/siot-alex/guess-the-melody/internal/game"
	"github.com/siot-alex/guess-the-melody/internal/netutil"
	"github.com/siot-alex/guess-the-melody/internal/qr"
	"github.com/siot-alex/guess-the-melody/internal/ws"
	staticserver "github.com/siot-alex/guess-the-melody/static"
)

const version = "v1.0.0"

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
		portFlag    = flag.String("port", "", "Port to listen on (overrides PORT env var)")
	)
	flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showHelp {
		fmt.Printf(`Guess the Melody - buzzer game coordinator

Usage: %s [options]

Options:
  -h, --help      Show this help message
  -v, --version   Show version information
  --port PORT     Port to listen on (default: 3000 or PORT env var)

Environment Variables:
  PORT               Port to listen on (default: 3000)
  ANSWER_TIME_SEC    Answer window in seconds (default: 5)
  LOCKOUT_TIME_SEC   Post-answer lockout in seconds (default: 10)
  PUBLIC_URL         Base URL to advertise instead of the LAN address
  OPEN_BROWSER       Open the host console on startup (default: true)

Teams join by scanning the QR code shown on the host console.
`, os.Args[0])
		return
	}

	if *showVersion {
		fmt.Printf("guess-the-melody %s\n", version)
		return
	}

	cfg := config.FromEnv()
	port := *portFlag
	if port == "" {
		port = cfg.Port
	}

	// zerolog setup (human-friendly console)
	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	zerologlog.Logger = zerologlog.Output(cw)

	// Gin setup with custom logger (skip /socket.io noise)
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/socket.io") {
			return
		}
		status := c.Writer.Status()
		dur := time.Since(start)
		zerologlog.Info().Str("path", path).Int("status", status).Dur("dur", dur).Msg("http")
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	baseURL := cfg.PublicURL
	if baseURL == "" {
		baseURL = netutil.BaseURL(port)
	}
	playerURL := baseURL + "/"
	hostURL := baseURL + "/host.html"

	g := game.New(clockwork.NewRealClock(), game.Settings{
		AnswerTimeSec:  cfg.AnswerTimeSec,
		LockoutTimeSec: cfg.LockoutTimeSec,
	})
	g.SetPlayerURL(playerURL)

	sock := ws.New(g)
	io := sock.Mount(r)
	defer io.Close()

	// QR for the join link; failures stay isolated from game state
	qrCache := &qr.Cache{}
	r.GET("/player-qr.png", func(c *gin.Context) {
		png, err := qrCache.PNG(playerURL)
		if err != nil {
			zerologlog.Error().Err(err).Msg("qr generation failed")
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Data(http.StatusOK, "image/png", png)
	})

	// gin redirects "/host/" here via its trailing-slash handling
	r.GET("/host", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/host.html")
	})

	r.NoRoute(func(c *gin.Context) {
		staticserver.Handler().ServeHTTP(c.Writer, c.Request)
	})

	zerologlog.Info().Str("playerUrl", playerURL).Str("hostUrl", hostURL).Msg("server ready")
	if cfg.OpenBrowser {
		if err := browser.OpenURL(hostURL); err != nil {
			zerologlog.Warn().Err(err).Msg("failed to open browser")
		}
	}

	if err := r.Run(":" + port); err != nil {
		zerologlog.Fatal().Err(err).Msg("server exited")
	}
}
