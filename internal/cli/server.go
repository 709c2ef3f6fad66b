package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"cipherquest-service/internal/app"
	"cipherquest-service/internal/config"
	"cipherquest-service/internal/domain"
	"cipherquest-service/internal/infra/memory"
	pg "cipherquest-service/internal/infra/postgres"
	rediscache "cipherquest-service/internal/infra/redis"
	"cipherquest-service/internal/notify"
	transport "cipherquest-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the cipher quest server",
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

	jwtSecret := cfg.Auth.JWTSecret
	if jwtSecret == "" {
		jwtSecret = "dev-only-secret"
		log.Printf("auth.jwt_secret not configured, using a development secret")
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	notifier := notify.Notifier(notify.LogNotifier{})
	if cfg.Email.Host != "" {
		notifier = notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:        cfg.Email.Host,
			Port:        cfg.Email.Port,
			Username:    cfg.Email.Username,
			Password:    cfg.Email.Password,
			From:        cfg.Email.From,
			FrontendURL: cfg.Email.FrontendURL,
		}, nil)
	}

	var repos *app.Repositories
	var questionSource app.QuestionRepository
	if cfg.Postgres.URL != "" {
		db := pg.NewDB(cfg.Postgres.URL)
		defer db.Close()
		repos = pg.NewRepositories(db)

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		questionSource = pg.NewQuestionLoader(pool)
	} else {
		store := memory.NewStore()
		store.SeedQuestions(sampleQuestions())
		store.SeedProblems(sampleProblems())
		repos = store.Repositories()
		questionSource = repos.Questions
		log.Printf("postgres url not configured, using the in-memory store with sample data")
	}

	questOpts := []app.QuestOption{}
	if redisClient != nil {
		questionTTL := config.TTLDuration(cfg.Quest.QuestionTTL, 10*time.Minute)
		repos.Questions = rediscache.NewQuestionCache(redisClient, questionSource, questionTTL)

		leaderboardTTL := config.TTLDuration(cfg.Quest.LeaderboardTTL, 30*time.Second)
		questOpts = append(questOpts, app.WithLeaderboardCache(rediscache.NewLeaderboardCache(redisClient, leaderboardTTL)))
	} else {
		repos.Questions = questionSource
	}

	authService := app.NewAuthService(repos, app.BcryptHasher{}, notifier, jwtSecret)
	questService := app.NewQuestService(repos, notifier, questOpts...)
	submissionService := app.NewSubmissionService(repos, notifier)
	judgingService := app.NewJudgingService(repos)
	teamService := app.NewTeamService(repos)

	handler := transport.NewHandler(authService, questService, submissionService, judgingService, teamService, jwtSecret)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting cipher quest service on :%s", finalPort)
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

// sampleQuestions provides a small bank for running without Postgres.
func sampleQuestions() []domain.CipherQuestion {
	return []domain.CipherQuestion{
		{ID: "cq-1", Hint: "Caesar shift 3: VHFXUH", Category: "classical", ProblemDomain: "cybersecurity", CipherType: "caesar", Difficulty: 1, CorrectAnswer: "secure", MaxAttempts: 10, IsActive: true},
		{ID: "cq-2", Hint: "Atbash: SVZOGS", Category: "classical", ProblemDomain: "healthcare", CipherType: "atbash", Difficulty: 2, CorrectAnswer: "health", MaxAttempts: 10, IsActive: true},
		{ID: "cq-3", Hint: "Reverse: TELLAW", Category: "classical", ProblemDomain: "fintech", CipherType: "reverse", Difficulty: 1, CorrectAnswer: "wallet", MaxAttempts: 10, IsActive: true},
		{ID: "cq-4", Hint: "ROT13: YRNEA", Category: "classical", ProblemDomain: "education", CipherType: "rot13", Difficulty: 2, CorrectAnswer: "learn", MaxAttempts: 10, IsActive: true},
		{ID: "cq-5", Hint: "Morse: ..-. .- .-. --", Category: "encoding", ProblemDomain: "agritech", CipherType: "morse", Difficulty: 3, CorrectAnswer: "farm", MaxAttempts: 10, IsActive: true},
		{ID: "cq-6", Hint: "Base64: Y2xvdWQ=", Category: "encoding", ProblemDomain: "cybersecurity", CipherType: "base64", Difficulty: 2, CorrectAnswer: "cloud", MaxAttempts: 10, IsActive: true},
		{ID: "cq-7", Hint: "Vigenere key KEY: DSPGI", Category: "classical", ProblemDomain: "fintech", CipherType: "vigenere", Difficulty: 3, CorrectAnswer: "trade", MaxAttempts: 10, IsActive: true},
	}
}

// sampleProblems provides assignment targets for qualified teams in demo mode.
func sampleProblems() []domain.ProblemStatement {
	deadline := time.Now().UTC().Add(48 * time.Hour)
	return []domain.ProblemStatement{
		{ID: "ps-1", Domain: "cybersecurity", Title: "Phishing Triage Assistant", Description: "Build a tool that clusters and prioritizes reported phishing emails.", SubmissionDeadline: deadline, IsActive: true, CreatedAt: time.Now().UTC()},
		{ID: "ps-2", Domain: "healthcare", Title: "Clinic Queue Optimizer", Description: "Build a scheduling assistant that reduces patient wait times.", SubmissionDeadline: deadline, IsActive: true, CreatedAt: time.Now().UTC()},
		{ID: "ps-3", Domain: "fintech", Title: "Micro-savings Nudger", Description: "Build a service that rounds up transactions into savings goals.", SubmissionDeadline: deadline, IsActive: true, CreatedAt: time.Now().UTC()},
	}
}
