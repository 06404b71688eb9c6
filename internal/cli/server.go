package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"livequiz-service/internal/app"
	"livequiz-service/internal/config"
	"livequiz-service/internal/domain"
	"livequiz-service/internal/infra/memory"
	pgloader "livequiz-service/internal/infra/postgres"
	redisinfra "livequiz-service/internal/infra/redis"
	transport "livequiz-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.QuestionLoader = memory.NewStaticQuestionLoader(sampleQuestions())
	if pool != nil {
		loader = pgloader.NewQuestionLoader(pool)
	}

	// The bank is loaded exactly once before the controller accepts any
	// command; the caches keep reloads cheap for sibling consumers.
	bankTTL := config.TTLDuration(cfg.Quiz.BankTTL, 10*time.Minute)
	var bank []domain.Question
	if redisClient != nil {
		bank, err = redisinfra.NewBankCache(redisClient, loader, bankTTL).GetBank(ctx)
	} else {
		bank, err = memory.NewBankCache(loader, bankTTL).GetBank(ctx)
	}
	if err != nil {
		return err
	}

	timerDur := config.TTLDuration(cfg.Quiz.Timer, app.DefaultQuestionTimer)
	controller := app.NewController(bank, cfg.Roster(), timerDur)

	if redisClient != nil {
		store := redisinfra.NewSnapshotStore(redisClient, redisTTL)
		events, cancel := controller.Subscribe()
		defer cancel()
		go persistSnapshots(ctx, store, events)
	}

	wsHandler := transport.NewWSHandler(controller)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz service on :%s (%d questions, %s per question)", finalPort, len(bank), timerDur)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// persistSnapshots mirrors every broadcast snapshot into Redis. Failures are
// logged and never reach the mutation path.
func persistSnapshots(ctx context.Context, store *redisinfra.SnapshotStore, events <-chan domain.Event) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Type != domain.EventStateUpdate || ev.Snapshot == nil {
				continue
			}
			if err := store.Save(ctx, *ev.Snapshot); err != nil {
				log.Printf("snapshot persist failed: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// sampleQuestions provides a demo bank; swap in the Postgres loader for
// production content.
func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			Ordinal: 1,
			Text:    "Q1. Which HTTP status code indicates a permanent redirect that preserves the request method?",
			Kind:    domain.KindMultipleChoice,
			Options: []string{
				"301",
				"302",
				"307",
				"308",
			},
			CorrectAnswer: "308",
			Justification: "308 is the permanent counterpart of 307: the resource moved for good and clients must not change the request method when following it.",
		},
		{
			Ordinal: 2,
			Text:    "Q2. What happens if you send a POST request with a JSON body but no content type?",
			Kind:    domain.KindMultipleChoice,
			Options: []string{
				"The request always fails",
				"The server assumes XML",
				"The server may not correctly interpret the request body",
				"The client library refuses to send it",
			},
			CorrectAnswer: "The server may not correctly interpret the request body",
			Justification: "Without a content type the server has no way to know the format of the body and may misinterpret the JSON data.",
		},
		{
			Ordinal:       3,
			Text:          "Q3. Which builder method finalizes a reusable request specification?",
			Kind:          domain.KindFreeText,
			CorrectAnswer: "build()",
			Justification: "The builder collects base URI, headers and parameters; build() seals them into an immutable specification shared across tests.",
		},
		{
			Ordinal: 4,
			Text:    "Q4. Two validations are chained on the same response. What is true?",
			Kind:    domain.KindMultipleChoice,
			Options: []string{
				"The second validation overwrites the first",
				"Only the first validation runs",
				"Both validations are executed independently",
				"It raises an illegal state error",
			},
			CorrectAnswer: "Both validations are executed independently",
			Justification: "Chained validations are independent assertions; each one is checked against the response.",
		},
	}
}
