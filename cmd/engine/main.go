// Package main - точка входа движка мотивации Bilim.
//
// Движок отвечает за поощрение учеников платформы:
// - Сбор сигналов активности (уроки, тесты, серии, перцентиль)
// - Оценка каталога правил и исполнение их действий
// - Начисление коинов, карточки, mystery box, стипендии, nudge-сообщения
//
// Процесс прогоняет миграции, сеет стандартный каталог правил и выполняет
// разовый прогон для указанного ученика. Платформа вызывает тот же
// application-слой из своего API; этот бинарник - операционный инструмент.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/bilimhub/bilim-motivation-engine/config"
	"github.com/bilimhub/bilim-motivation-engine/internal/application/command"
	"github.com/bilimhub/bilim-motivation-engine/internal/application/dispatch"
	"github.com/bilimhub/bilim-motivation-engine/internal/application/eventhandler"
	"github.com/bilimhub/bilim-motivation-engine/internal/application/nudge"
	"github.com/bilimhub/bilim-motivation-engine/internal/application/query"
	"github.com/bilimhub/bilim-motivation-engine/internal/domain/shared"
	"github.com/bilimhub/bilim-motivation-engine/internal/domain/signals"
	"github.com/bilimhub/bilim-motivation-engine/internal/infrastructure/messaging"
	"github.com/bilimhub/bilim-motivation-engine/internal/infrastructure/persistence/postgres"
	"github.com/bilimhub/bilim-motivation-engine/internal/infrastructure/persistence/redis"
	"github.com/bilimhub/bilim-motivation-engine/internal/infrastructure/service"
	"github.com/bilimhub/bilim-motivation-engine/pkg/logger"
	"github.com/bilimhub/bilim-motivation-engine/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// FLAGS
// ══════════════════════════════════════════════════════════════════════════════

type flags struct {
	userID         string
	courseID       string
	recordActivity bool
	signalsOnly    bool
	openBoxID      string
	migrateOnly    bool
}

func parseFlags() flags {
	var f flags
	flag.StringVar(&f.userID, "user", "", "user ID to evaluate rules for")
	flag.StringVar(&f.courseID, "course", "", "optional course ID scope")
	flag.BoolVar(&f.recordActivity, "record-activity", false, "record a streak activity day before evaluating")
	flag.BoolVar(&f.signalsOnly, "signals", false, "print the collected signal snapshot and exit")
	flag.StringVar(&f.openBoxID, "open-box", "", "open a mystery box by ID instead of evaluating")
	flag.BoolVar(&f.migrateOnly, "migrate-only", false, "run migrations and seeding, then exit")
	flag.Parse()
	return f
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx, parseFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, f flags) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting Bilim motivation engine",
		logger.String("env", string(cfg.App.Environment)),
		logger.Bool("debug", cfg.App.Debug),
		logger.String("timezone", cfg.App.Timezone),
		logger.String("version", cfg.App.Version),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ПОДКЛЮЧЕНИЕ К БАЗЕ ДАННЫХ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	var dbConn *postgres.Connection
	err = retry.Do(ctx, retry.ConnectDefaults(), func(ctx context.Context) error {
		var connErr error
		dbConn, connErr = postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
		return connErr
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. МИГРАЦИИ И КАТАЛОГ ПРАВИЛ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("checking database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database schema is up to date")

	ruleRepo := postgres.NewRuleRepository(dbConn, log)
	if cfg.Engine.SeedDefaultRules {
		seeder := command.NewSeedRulesHandler(ruleRepo, log)
		seeded, err := seeder.Handle(ctx)
		if err != nil {
			return fmt.Errorf("failed to seed rule catalog: %w", err)
		}
		if seeded.Seeded {
			log.Info("seeded default rule catalog", logger.Int("rules", seeded.RulesCreated))
		}
	}

	if f.migrateOnly {
		log.Info("migrate-only mode, exiting")
		return nil
	}

	if f.userID == "" {
		return errors.New("-user is required (see -h)")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REDIS (опционально - перцентиль деградирует без него)
	// ─────────────────────────────────────────────────────────────────────────
	var rankCache *redis.RankCache
	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		rankCache, err = redis.NewRankCache(redis.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   3,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			log.Warn("failed to connect to Redis, percentile ranks degrade to default", logger.Err(err))
			rankCache = nil
		} else {
			defer rankCache.Close()
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. РЕПОЗИТОРИИ
	// ─────────────────────────────────────────────────────────────────────────
	activityRepo := postgres.NewActivityRepository(dbConn)
	streakRepo := postgres.NewStreakRepository(dbConn)
	triggerRepo := postgres.NewTriggerLogRepository(dbConn)
	walletRepo := postgres.NewWalletRepository(dbConn)
	cardRepo := postgres.NewCardRepository(dbConn)
	boxRepo := postgres.NewMysteryBoxRepository(dbConn)
	scholarshipRepo := postgres.NewScholarshipRepository(dbConn)
	nudgeLogRepo := postgres.NewNudgeLogRepository(dbConn)
	notificationRepo := postgres.NewNotificationRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. EVENT BUS И ПОДПИСЧИКИ
	// ─────────────────────────────────────────────────────────────────────────
	eventBus := messaging.NewInMemoryEventBus(log)
	defer eventBus.Close()

	if err := eventhandler.NewRuleTriggeredLogger(log).Register(eventBus); err != nil {
		return fmt.Errorf("failed to register event handler: %w", err)
	}
	if rankCache != nil {
		if err := eventhandler.NewCoinsGrantedScorer(rankCache, log).Register(eventBus); err != nil {
			return fmt.Errorf("failed to register event handler: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. APPLICATION-СЛОЙ
	// ─────────────────────────────────────────────────────────────────────────
	var rankReader signals.RankReader
	if rankCache != nil {
		rankReader = service.NewRankService(rankCache, log)
	}

	collector := query.NewCollectSignalsHandler(activityRepo, streakRepo, rankReader, log)

	rnd := shared.NewRand()
	dispatcher := dispatch.NewDispatcher(dispatch.Deps{
		Wallets:       walletRepo,
		Cards:         cardRepo,
		Boxes:         boxRepo,
		Scholarships:  scholarshipRepo,
		Grants:        scholarshipRepo,
		NudgeLogs:     nudgeLogRepo,
		Notifications: notificationRepo,
		Generator:     nudge.NewGenerator(rnd),
		Rand:          rnd,
		Events:        eventBus,
		Logger:        log,
	})

	evaluator := command.NewEvaluateRulesHandler(ruleRepo, triggerRepo, collector, dispatcher, eventBus, log)
	streakUpdater := command.NewUpdateStreakHandler(streakRepo, eventBus, log)
	boxOpener := command.NewOpenBoxHandler(boxRepo, walletRepo, eventBus, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. ВЫПОЛНЕНИЕ
	// ─────────────────────────────────────────────────────────────────────────
	runCtx, cancel := context.WithTimeout(ctx, cfg.Engine.EvaluationTimeout)
	defer cancel()

	switch {
	case f.openBoxID != "":
		result, err := boxOpener.Handle(runCtx, command.OpenBoxCommand{UserID: f.userID, BoxID: f.openBoxID})
		if err != nil {
			return fmt.Errorf("failed to open mystery box: %w", err)
		}
		return printJSON(result)

	case f.signalsOnly:
		snap, err := collector.Handle(runCtx, query.CollectSignalsQuery{UserID: f.userID, CourseID: f.courseID})
		if err != nil {
			return fmt.Errorf("failed to collect signals: %w", err)
		}
		return printJSON(snap)

	default:
		if f.recordActivity {
			streakResult, err := streakUpdater.Handle(runCtx, command.UpdateStreakCommand{UserID: f.userID})
			if err != nil {
				return fmt.Errorf("failed to record activity: %w", err)
			}
			log.Info("activity recorded",
				logger.UserID(f.userID),
				logger.Int("current_streak", streakResult.CurrentStreak),
				logger.Bool("updated", streakResult.Updated),
			)
		}

		result, err := evaluator.Handle(runCtx, command.EvaluateRulesCommand{UserID: f.userID, CourseID: f.courseID})
		if err != nil {
			return fmt.Errorf("failed to evaluate rules: %w", err)
		}
		log.Info("evaluation finished",
			logger.UserID(f.userID),
			logger.Int("rules_evaluated", len(result.Outcomes)),
			logger.Int("rules_triggered", result.TriggeredCount),
		)
		return printJSON(result)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	if cfg.App.Debug {
		opts.Level = logger.LevelDebug
	}
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		opts.Level = logger.ParseLevel(lvl)
	}
	return logger.New(opts)
}

// printJSON печатает результат в stdout для операторов и скриптов.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
