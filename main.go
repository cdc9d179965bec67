package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/korjavin/examquizbot/ai"
	"github.com/korjavin/examquizbot/bot"
	"github.com/korjavin/examquizbot/config"
	"github.com/korjavin/examquizbot/database"
	"github.com/korjavin/examquizbot/httpapi"
	"github.com/korjavin/examquizbot/questions"
	"github.com/korjavin/examquizbot/quiz"
	"github.com/korjavin/examquizbot/redisstore"
)

// progressStore is what every storage backend provides
type progressStore interface {
	quiz.ProgressStore
	bot.Leaderboard
	bot.ExplanationCache
	httpapi.Pinger
	Close() error
}

func main() {
	// Configure logging
	log.SetOutput(os.Stdout)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("Starting ExamQuizBot...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, history, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	bank := questions.Default()
	var recorder quiz.AnswerRecorder
	opts := bot.Options{
		Leaderboard:       store,
		Cache:             store,
		NextQuestionDelay: cfg.NextQuestionDelay,
	}
	if history != nil {
		recorder = history
		opts.History = history
	}
	if cfg.DeepseekAPIKey != "" {
		opts.Explainer = ai.NewDeepseekClient(cfg.DeepseekAPIKey)
	} else {
		log.Println("DEEPSEEK_API_KEY not set, /explain is disabled")
	}
	engine := quiz.NewEngine(bank, store, recorder)

	if cfg.HTTPAddr != "" {
		srv := &http.Server{
			Addr: cfg.HTTPAddr,
			Handler: httpapi.NewRouter(httpapi.Deps{
				Users:          engine,
				Leaderboard:    store,
				Store:          store,
				AllowedOrigins: cfg.CORSOrigins,
			}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Printf("HTTP API listening on %s", cfg.HTTPAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("HTTP server failed: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatalf("Failed to create bot API: %v", err)
	}
	api.Debug = cfg.Debug
	log.Printf("Authorized on account %s", api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)
	go func() {
		<-ctx.Done()
		api.StopReceivingUpdates()
	}()

	log.Println("Bot initialized successfully")
	bot.New(api, engine, bank, opts).Run(ctx, updates)
	log.Println("Bot stopped")
}

// openStore connects the configured backend. The answer history is only
// kept by the SQL backend, so history is nil for Redis.
func openStore(ctx context.Context, cfg *config.Config) (progressStore, *database.DB, error) {
	if cfg.StoreBackend == config.BackendRedis {
		s, err := redisstore.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("Using Redis progress store at %s", cfg.RedisAddr)
		return s, nil, nil
	}

	db, err := database.New(ctx, cfg.DBDriver, cfg.DataSource())
	if err != nil {
		return nil, nil, err
	}
	log.Printf("Using %s progress store", cfg.DBDriver)
	return db, db, nil
}
