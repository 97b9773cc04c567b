// Package main - точка входа фонового процесса (Worker) TilHub Core.
//
// Worker отвечает за задачи по расписанию и асинхронную обработку событий:
// - Еженедельная ротация лиг (повышения, понижения, новые сессии)
// - Зачистка просроченных ежедневных квестов
// - Обнуление дневного прогресса на границе суток UTC
// - Прогресс квестов и уведомления по событиям доменного слоя
//
// API-процессы, встраивающие ядро как библиотеку, публикуют события в общую
// Redis-шину; Worker подхватывает их и выполняет побочные эффекты вне
// критического пути пользовательского запроса.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tilhub/tilhub-core/config"
	"github.com/tilhub/tilhub-core/internal/application/command"
	"github.com/tilhub/tilhub-core/internal/application/eventhandler"
	"github.com/tilhub/tilhub-core/internal/domain/shared"
	"github.com/tilhub/tilhub-core/internal/infrastructure/messaging"
	"github.com/tilhub/tilhub-core/internal/infrastructure/persistence/postgres"
	"github.com/tilhub/tilhub-core/internal/infrastructure/persistence/redis"
	"github.com/tilhub/tilhub-core/internal/infrastructure/scheduler"
	"github.com/tilhub/tilhub-core/internal/infrastructure/scheduler/jobs"
	"github.com/tilhub/tilhub-core/internal/infrastructure/service"
	"github.com/tilhub/tilhub-core/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
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
	log := logger.Setup(logger.Options{
		Output: os.Stdout,
		Level:  cfg.Observability.LogLevel,
		Format: cfg.Observability.LogFormat,
	})
	log.Info("starting TilHub Core Worker",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"debug", cfg.App.Debug,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ПОДКЛЮЧЕНИЕ К БАЗЕ ДАННЫХ (PostgreSQL/Supabase)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ЗАПУСК МИГРАЦИЙ (Worker тоже должен видеть актуальную схему)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("checking database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database schema is up to date")

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ИНИЦИАЛИЗАЦИЯ REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache
	var standingsCache *redis.StandingsCache

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		if cfg.Redis.PoolSize > 0 {
			redisCfg.PoolSize = cfg.Redis.PoolSize
		}
		if cfg.Redis.MinIdleConns > 0 {
			redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		}

		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			// Redis ускоряет, но не несёт истину: без него работаем от Postgres.
			log.Warn("failed to connect to Redis, standings cache disabled", "error", err)
			redisCache = nil
		} else {
			defer func() { _ = redisCache.Close() }()
			standingsCache = redis.NewStandingsCache(redisCache)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ИНИЦИАЛИЗАЦИЯ EVENT BUS
	//
	// С Redis события ходят между инстансами (API публикует, Worker
	// обрабатывает). Без Redis шина локальная: Worker видит только события
	// собственной ротации лиг.
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")
	localBusCfg := messaging.DefaultInMemoryEventBusConfig()
	localBusCfg.Logger = log

	var eventBus shared.EventBus
	var closeBus func() error

	if redisCache != nil {
		redisBus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:         redis.NewEventBusClient(redisCache),
			InstanceID:     cfg.App.InstanceID,
			LocalBusConfig: localBusCfg,
			Logger:         log,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize redis event bus: %w", err)
		}
		eventBus = redisBus
		closeBus = redisBus.Close
		log.Info("event bus initialized", "mode", "redis")
	} else {
		localBus := messaging.NewInMemoryEventBus(localBusCfg)
		eventBus = localBus
		closeBus = localBus.Close
		log.Info("event bus initialized", "mode", "in-memory")
	}
	defer func() {
		log.Info("closing event bus...")
		_ = closeBus()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ИНИЦИАЛИЗАЦИЯ РЕПОЗИТОРИЕВ И ДВИЖКОВ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")
	statsRepo := postgres.NewStatsRepository(dbConn)
	leagueRepo := postgres.NewLeagueRepository(dbConn)
	questRepo := postgres.NewQuestRepository(dbConn)
	notificationRepo := postgres.NewNotificationRepository(dbConn)

	// Уведомления пишутся в outbox за circuit breaker'ом: сбой доставки
	// никогда не валит доменную операцию.
	notifier := service.NewNotificationOutbox(notificationRepo, log)

	questProgress := command.NewUpdateQuestProgressHandler(questRepo, eventBus, notifier)

	var rotationCache command.StandingsCache
	if standingsCache != nil {
		rotationCache = standingsCache
	}
	rotateLeagues := command.NewRotateLeaguesHandler(leagueRepo, statsRepo, rotationCache, eventBus, notifier)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. ПОДПИСКА ОБРАБОТЧИКОВ СОБЫТИЙ
	//
	// Через Dispatcher: retry с backoff, recovery от паник и dead letter
	// queue для событий, которые так и не удалось обработать.
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("registering event handlers...")
	dispatcher := messaging.NewDispatcher(messaging.DefaultDispatcherConfig(eventBus))
	dispatcher.Use(messaging.RecoveryMiddleware(log))
	dispatcher.Use(messaging.LoggingMiddleware(log))
	dispatcher.Use(messaging.MetricsMiddleware(dispatcher.Metrics()))

	onXPGained := eventhandler.NewOnXPGainedHandler(questProgress, log)
	onLessonCompleted := eventhandler.NewOnLessonCompletedHandler(questProgress, log)
	onStreakChanged := eventhandler.NewOnStreakChangedHandler(notifier, log)

	if err := dispatcher.Register(shared.EventXPGained, "on_xp_gained", onXPGained.Handle); err != nil {
		return fmt.Errorf("failed to register on_xp_gained: %w", err)
	}
	if err := dispatcher.Register(shared.EventLessonCompleted, "on_lesson_completed", onLessonCompleted.Handle); err != nil {
		return fmt.Errorf("failed to register on_lesson_completed: %w", err)
	}
	if err := dispatcher.Register(shared.EventStreakMaintained, "on_streak_changed", onStreakChanged.Handle); err != nil {
		return fmt.Errorf("failed to register on_streak_changed: %w", err)
	}

	if err := dispatcher.Start(); err != nil {
		return fmt.Errorf("failed to start dispatcher: %w", err)
	}
	defer func() {
		log.Info("stopping dispatcher...")
		_ = dispatcher.Stop()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 9. ПЛАНИРОВЩИК ЗАДАЧ
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.Scheduler.Enabled {
		log.Info("initializing scheduler...")
		sched := scheduler.NewScheduler(scheduler.SchedulerConfig{
			Logger: log,
		})

		rotationCron, err := scheduler.ParseCronExpression(cfg.Scheduler.LeagueRotationCron)
		if err != nil {
			return fmt.Errorf("invalid league rotation cron %q: %w", cfg.Scheduler.LeagueRotationCron, err)
		}
		resetCron, err := scheduler.ParseCronExpression(cfg.Scheduler.DailyResetCron)
		if err != nil {
			return fmt.Errorf("invalid daily reset cron %q: %w", cfg.Scheduler.DailyResetCron, err)
		}

		rotateCfg := jobs.DefaultRotateLeaguesConfig()
		if cfg.Scheduler.JobTimeout > 0 {
			rotateCfg.Timeout = cfg.Scheduler.JobTimeout
		}

		rotateJob := jobs.NewRotateLeaguesJob(rotateLeagues, log, rotateCfg)
		expireJob := jobs.NewExpireQuestsJob(questRepo, log)
		resetJob := jobs.NewResetDailyGoalsJob(statsRepo, log)

		if err := sched.Register(rotateJob, rotationCron); err != nil {
			return fmt.Errorf("failed to register rotate_leagues: %w", err)
		}
		if err := sched.Register(expireJob, scheduler.NewIntervalSchedule(cfg.Scheduler.QuestExpiryInterval)); err != nil {
			return fmt.Errorf("failed to register expire_quests: %w", err)
		}
		if err := sched.Register(resetJob, resetCron); err != nil {
			return fmt.Errorf("failed to register reset_daily_goals: %w", err)
		}

		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer func() {
			log.Info("stopping scheduler...")
			_ = sched.Stop()
		}()

		log.Info("scheduler started",
			"league_rotation", cfg.Scheduler.LeagueRotationCron,
			"quest_expiry", cfg.Scheduler.QuestExpiryInterval.String(),
			"daily_reset", cfg.Scheduler.DailyResetCron,
		)
	} else {
		log.Warn("scheduler disabled, periodic jobs will not run")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 10. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("TilHub Core Worker is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		log.Info("context cancelled")
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())
	// Остановка в обратном порядке происходит в defer'ах:
	// scheduler -> dispatcher -> event bus -> redis -> postgres.
	return nil
}
