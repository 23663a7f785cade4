package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Niobium-41-nb/HZAUACMOJ/internal/config"
	"github.com/Niobium-41-nb/HZAUACMOJ/internal/database"
	"github.com/Niobium-41-nb/HZAUACMOJ/internal/judge"
	"github.com/Niobium-41-nb/HZAUACMOJ/internal/models"
	"github.com/Niobium-41-nb/HZAUACMOJ/internal/notify"
	"github.com/Niobium-41-nb/HZAUACMOJ/internal/ranking"
	"github.com/Niobium-41-nb/HZAUACMOJ/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	db, err := database.NewGormConnection(database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		zlog.Fatal("failed to run auto-migration", zap.Error(err))
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if _, err := redisClient.Ping(pingCtx).Result(); err != nil {
		cancelPing()
		zlog.Fatal("failed to connect to redis", zap.Error(err))
	}
	cancelPing()

	submissionRepo := database.NewSubmissionRepository(db)
	problemRepo := database.NewProblemRepository(db)
	testcaseRepo := database.NewTestcaseRepository(db)
	contestRepo := database.NewContestRepository(db)
	participantRepo := database.NewParticipantRepository(db)

	sandbox := judge.NewSandbox(
		cfg.Judge.BaseDir,
		time.Duration(cfg.Judge.CompileTimeoutSeconds)*time.Second,
		judge.NewRegistry(),
		zlog.Named("sandbox"),
	)

	pipeline := judge.NewPipeline(submissionRepo, problemRepo, testcaseRepo, sandbox, zlog.Named("pipeline"))

	publisher := notify.NewPublisher(redisClient)
	engine := ranking.NewEngine(contestRepo, participantRepo, submissionRepo, zlog.Named("ranking"))

	hook := func(submissionID uuid.UUID, verdict judge.Verdict) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		submission, err := submissionRepo.GetSubmission(ctx, submissionID)
		if err != nil || submission == nil {
			zlog.Error("failed to load judged submission",
				zap.String("submission_id", submissionID.String()), zap.Error(err))
			return
		}

		if err := publisher.PublishVerdict(ctx, submission); err != nil {
			zlog.Error("failed to publish verdict", zap.Error(err))
		}

		if verdict.Status != models.SubmissionStatusAccepted {
			return
		}

		contestIDs, err := contestRepo.ContestsWithProblem(ctx, submission.ProblemID)
		if err != nil {
			zlog.Error("failed to resolve contests for problem", zap.Error(err))
			return
		}
		for _, contestID := range contestIDs {
			standings, err := engine.Recompute(ctx, contestID)
			if err != nil {
				zlog.Error("failed to recompute standings",
					zap.String("contest_id", contestID.String()), zap.Error(err))
				continue
			}
			if err := publisher.PublishLeaderboard(ctx, contestID, standings); err != nil {
				zlog.Error("failed to publish leaderboard", zap.Error(err))
			}
		}
	}

	dispatcher := judge.NewDispatcher(
		pipeline,
		submissionRepo,
		cfg.Judge.Workers,
		cfg.Judge.QueueSize,
		cfg.Judge.MaxRetries,
		hook,
		zlog.Named("dispatcher"),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dispatcher.Start(ctx)
	zlog.Info("judge dispatcher started",
		zap.Int("workers", cfg.Judge.Workers),
		zap.Int("queue_size", cfg.Judge.QueueSize))

	// Intake loop: the surrounding system creates PENDING submissions; the
	// judge service picks them up in arrival order.
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				pending, err := submissionRepo.PendingSubmissions(ctx, 100)
				if err != nil {
					zlog.Error("failed to fetch pending submissions", zap.Error(err))
					continue
				}
				for _, sub := range pending {
					if err := dispatcher.Submit(ctx, sub.ID); err != nil && err != judge.ErrAlreadyJudging {
						zlog.Warn("failed to enqueue submission",
							zap.String("submission_id", sub.ID.String()), zap.Error(err))
					}
				}
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	zlog.Info("received shutdown signal, stopping workers")

	cancel()
	dispatcher.Wait()

	zlog.Info("judge service stopped")
}
