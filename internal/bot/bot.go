package bot

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/averdin/gamebots/internal/config"
	"github.com/averdin/gamebots/internal/game"
	"github.com/averdin/gamebots/internal/items"
	"github.com/averdin/gamebots/internal/platform"
	"github.com/averdin/gamebots/internal/results"
	"github.com/averdin/gamebots/internal/token"
)

// Run wires one bot process together: config, item data, results store,
// platform connection, orchestrator and the health endpoint. It blocks until
// SIGINT/SIGTERM. defaultMode applies when GAME_MODE is unset, so each
// binary gets its natural game.
func Run(name string, defaultMode game.Mode) error {
	_ = godotenv.Load()

	zerolog.TimeFieldFormat = time.RFC3339
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("bot", name).Logger()

	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	mode := defaultMode
	if cfg.Mode != "" {
		mode = game.Mode(cfg.Mode)
	}
	switch mode {
	case game.ModeGrid, game.ModeWordFeedback, game.ModeWordGuessOnly:
	default:
		return fmt.Errorf("unknown game mode %q", mode)
	}

	source, err := items.LoadFile(cfg.InstancesFile)
	if err != nil {
		return err
	}
	store, err := results.Open(cfg.ResultsDB)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := platform.NewClient(platform.NewRest(cfg.PlatformURL, cfg.PlatformToken, cfg.BotUserID))
	orch := game.NewOrchestrator(game.Config{
		Mode:          mode,
		TaskID:        cfg.TaskID,
		WaitingRoomID: cfg.WaitingRoomID,
		RoundCount:    cfg.RoundCount,
		RoundTimeout:  cfg.RoundTimeout,
		LeaveGrace:    cfg.LeaveGrace,
		MaxGuesses:    cfg.MaxGuesses,
		WordLength:    cfg.WordLength,
		PointSystem:   cfg.PointSystem,
		ClueEnabled:   cfg.ClueEnabled,
	}, client, source, log)
	orch.SetTokenIssuer(token.NewIssuer(cfg.TokenSecret, 0))
	orch.SetResultSink(store)

	disp := platform.NewDispatcher(orch, cfg.BotUserID, log)
	sock, err := platform.DialSocket(ctx, cfg.PlatformURL, cfg.PlatformToken, cfg.BotUserID, disp, log)
	if err != nil {
		return err
	}
	client.AttachSocket(sock)
	go sock.Run(ctx)

	go serveHealth(cfg.HealthPort, name, mode, orch, log)

	log.Info().Str("mode", string(mode)).Str("platform", cfg.PlatformURL).Msg("bot running")
	<-ctx.Done()

	log.Info().Msg("shutting down")
	orch.Shutdown()
	sock.Close()
	return nil
}

func serveHealth(port, name string, mode game.Mode, orch *game.Orchestrator, log zerolog.Logger) {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ok":       true,
			"bot":      name,
			"mode":     string(mode),
			"sessions": orch.Sessions().Len(),
			"time":     time.Now().UTC(),
		})
	})
	if err := r.Run(":" + port); err != nil {
		log.Error().Err(err).Msg("health endpoint failed")
	}
}
