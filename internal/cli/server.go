package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"automatization-bot/internal/app"
	"automatization-bot/internal/config"
	"automatization-bot/internal/domain"
	"automatization-bot/internal/infra/memory"
	pgstore "automatization-bot/internal/infra/postgres"
	redisstore "automatization-bot/internal/infra/redis"
	"automatization-bot/internal/transport/telegram"
	transport "automatization-bot/internal/transport/http"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewStartCmd builds the CLI subcommand that runs the bot.
func NewStartCmd(configPath, port *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the quiz bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
	cmd.Flags().StringVar(port, "port", "", "web chat port (overrides server.port and PORT; empty disables the web chat)")
	return cmd
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	slog.SetDefault(logger)
	_ = tgbotapi.SetLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, false); err != nil {
			return err
		}
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
	}

	bank, err := loadBank(ctx, cfg, pool)
	if err != nil {
		return err
	}
	gaps, err := config.VerifyBank(bank, cfg.Quiz.StrictRanges)
	if err != nil {
		return err
	}
	if len(gaps) > 0 {
		logger.Warn("some reachable scores match no result range", "bank_id", bank.ID, "scores", gaps)
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,

			// per-call deadlines on snapshot and lock writes
			ContextTimeoutEnabled: true,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
	}

	var (
		store  app.SessionRepository
		locker app.UserLocker
	)
	if redisClient != nil {
		store = redisstore.NewSessionStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 24*time.Hour), logger)
		locker = redisstore.NewUserLocker(redisClient, config.TTLDuration(cfg.Redis.LockTTL, 30*time.Second), logger)
	} else {
		store = memory.NewSessionStore()
		locker = memory.NewUserLocks()
	}
	locker = app.WithLockTimeout(locker, config.TTLDuration(cfg.Quiz.LockTimeout, 30*time.Second))

	bot, err := telegram.NewBot(cfg.Bot.Token, telegram.Options{
		Debug:       cfg.Bot.Debug,
		PollTimeout: cfg.LongPollTimeout(),
		SkipPending: cfg.SkipPendingUpdates(),
	}, logger)
	if err != nil {
		return err
	}

	router := app.NewRouter(bot)
	engine := app.NewEngine(bank, cfg.BotTexts())
	notifier := app.NewNotifier(router, cfg.Bot.AdminChatID, engine, logger)
	service := app.NewQuizService(store, locker, engine, notifier, router, logger)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	var server *http.Server
	if finalPort != "" {
		wsHandler := transport.NewWSHandler(service, logger)
		router.Route(transport.ChatPrefix, wsHandler)
		server = transport.NewServer(":"+finalPort, wsHandler)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bot.Run(gctx, service)
	})
	if server != nil {
		g.Go(func() error {
			logger.Info("web chat listening", "addr", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("web chat server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	logger.Info("bot started",
		"bot", bot.Username(),
		"admin_chat_id", cfg.Bot.AdminChatID,
		"log_level", parseLevel(cfg.Log.Level).String(),
		"bank_id", bank.ID,
		"questions", len(bank.Questions),
	)
	err = g.Wait()
	logger.Info("bot stopped", "active_sessions", service.ActiveSessions())
	return err
}

// loadBank reads the question bank from the configured source.
func loadBank(ctx context.Context, cfg config.Config, pool *pgxpool.Pool) (domain.QuestionBank, error) {
	var loader app.BankLoader
	switch cfg.QuizSource() {
	case "postgres":
		if pool == nil {
			return domain.QuestionBank{}, fmt.Errorf("%w: postgres.url (POSTGRES_URL)", domain.ErrMissingSetting)
		}
		loader = pgstore.NewBankLoader(pool)
	default:
		loader = memory.NewStaticBankLoader(cfg.Bank())
	}
	return loader.LoadBank(ctx, cfg.QuizBankID())
}
