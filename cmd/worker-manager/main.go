// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"carematch/internal/common/aws"
	"carematch/internal/common/camunda"
	"carematch/internal/common/config"
	"carematch/internal/common/database"
	"carematch/internal/common/logger"
	"carematch/internal/common/observability"
	"carematch/internal/matching"
	"carematch/internal/matching/history"
	"carematch/internal/store"
	poolcache "carematch/internal/store/cache"
	"carematch/pkg/registry"

	// Matching Workers (2)
	mc "carematch/internal/workers/matching/match-candidates"
	sm "carematch/internal/workers/matching/simulate-matching"

	// History Workers (2)
	re "carematch/internal/workers/history/record-engagement"
	ro "carematch/internal/workers/history/record-outcome"

	// Analytics Workers (1)
	mr "carematch/internal/workers/analytics/matching-report"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	if cfg.Matching.WeightsRegistry != "" {
		reg, err := registry.LoadRegistry(cfg.Matching.WeightsRegistry)
		if err != nil {
			zapLog.Fatal("weights registry load failed", zap.Error(err))
		}
		if profile, ok := reg.Find("default"); ok {
			profile.Apply(&cfg.Matching)
			zapLog.Info("weight profile applied", zap.String("profile", profile.Name))
		}
	}

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      10 * time.Second,
			RequestTimeout:         time.Duration(cfg.Camunda.RequestTimeout) * time.Millisecond,
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	zeebeClient := zeebe.GetClient()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL initialization")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	zapLog.Info("PostgreSQL connected successfully")

	pgStore := store.NewPostgresStore(pg.GetDB(), log)

	// --- Init Elasticsearch with retry (optional candidate index) ---
	var candidates matching.CandidateStore = pgStore
	if cfg.Database.Elasticsearch.GetURL() != "" {
		var es *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch initialization")

		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully")

		candidates = store.NewElasticCandidateStore(es.Client, cfg.Database.Elasticsearch.Index, log)
	} else {
		zapLog.Info("Elasticsearch not configured, serving candidates from PostgreSQL")
	}

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis initialization")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	zapLog.Info("Redis connected successfully")

	cacheTTL := time.Duration(cfg.Matching.PoolCacheTTL) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	cache := poolcache.NewPoolCache(redis.GetClient(), cacheTTL, log)

	// --- Matching core ---
	recorder := history.NewRecorder(pgStore, log)
	engine := matching.NewEngine(cfg.Matching, pgStore, candidates, log,
		matching.WithPoolCache(cache),
		matching.WithRecorder(recorder),
		matching.WithObserver(obs),
	)
	simulator := matching.NewSimulator(engine)
	analytics := history.NewAnalytics(pgStore, cfg.Matching.TopKAccuracy)

	// --- Notification clients (optional) ---
	var emailSender ro.EmailSender
	if cfg.Notifications.Email.Enabled {
		sesClient, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client failed", zap.Error(err))
		}
		emailSender = sesClient
		zapLog.Info("SES client initialized")
	}

	var smsSender ro.SMSSender
	if cfg.Notifications.SMS.Enabled {
		snsClient, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
		smsSender = snsClient
		zapLog.Info("SNS client initialized")
	}

	var jobWorkers []worker.JobWorker

	// --- Register Matching Workers ---
	if cfg.Workers[mc.TaskType].Enabled {
		handler := mc.NewHandler(mc.LoadConfig(), engine, log)
		jobWorkers = append(jobWorkers, startWorker(zeebeClient, mc.TaskType, cfg.Workers[mc.TaskType], handler.Handle, zapLog))
	}

	if cfg.Workers[sm.TaskType].Enabled {
		handler := sm.NewHandler(sm.LoadConfig(), simulator, log)
		jobWorkers = append(jobWorkers, startWorker(zeebeClient, sm.TaskType, cfg.Workers[sm.TaskType], handler.Handle, zapLog))
	}

	// --- Register History Workers ---
	if cfg.Workers[re.TaskType].Enabled {
		handler := re.NewHandler(re.LoadConfig(), recorder, log)
		jobWorkers = append(jobWorkers, startWorker(zeebeClient, re.TaskType, cfg.Workers[re.TaskType], handler.Handle, zapLog))
	}

	if cfg.Workers[ro.TaskType].Enabled {
		roCfg := ro.LoadConfig()
		if cfg.Notifications.Email.FromEmail != "" {
			roCfg.FromEmail = cfg.Notifications.Email.FromEmail
		}
		handler := ro.NewHandler(roCfg, recorder, cache, emailSender, smsSender, log)
		jobWorkers = append(jobWorkers, startWorker(zeebeClient, ro.TaskType, cfg.Workers[ro.TaskType], handler.Handle, zapLog))
	}

	// --- Register Analytics Workers ---
	if cfg.Workers[mr.TaskType].Enabled {
		handler := mr.NewHandler(mr.LoadConfig(), analytics, log)
		jobWorkers = append(jobWorkers, startWorker(zeebeClient, mr.TaskType, cfg.Workers[mr.TaskType], handler.Handle, zapLog))
	}

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := zeebe.HealthCheck(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{
					"status": "not ready",
					"error":  err.Error(),
				})
				return
			}
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")

	// Stop pulling jobs before draining history writes so no match lands on
	// a closed recorder.
	for _, w := range jobWorkers {
		w.Close()
		w.AwaitClose()
	}

	// Drain the queued history writes before closing the database.
	recorder.Close()

	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}
	if err := redis.Close(); err != nil {
		zapLog.Error("Error closing Redis client", zap.Error(err))
	}
	if err := pg.Close(); err != nil {
		zapLog.Error("Error closing PostgreSQL client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func startWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handlerFunc func(worker.JobClient, entities.Job), log *zap.Logger) worker.JobWorker {
	w := client.NewJobWorker().
		JobType(taskType).
		Handler(handlerFunc).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Open()

	log.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", wcfg.MaxJobsActive),
		zap.Int("timeout_ms", wcfg.Timeout),
	)
	return w
}
