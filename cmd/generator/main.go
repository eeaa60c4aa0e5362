// cmd/generator/main.go
package main

import (
	"bufio"
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"loanstream/internal/common/config"
	"loanstream/internal/common/database"
	"loanstream/internal/common/logger"
	"loanstream/internal/common/observability"
	"loanstream/internal/generator"
	"loanstream/internal/pipeline"
	"loanstream/internal/stats"
	"loanstream/internal/store"
	"loanstream/internal/stream"
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
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting loan application generator...")

	obs := observability.New("loan-generator")
	defer obs.Shutdown()

	if cfg.Metrics.Enabled {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.Metrics.Address, nil); err != nil {
				zapLog.Warn("metrics endpoint failed", zap.Error(err))
			}
		}()
		zapLog.Info("metrics endpoint listening", zap.String("address", cfg.Metrics.Address))
	}

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	appStore := store.New(pg.DB, log)
	if err := appStore.Reset(ctx); err != nil {
		zapLog.Fatal("table reset failed", zap.Error(err))
	}

	// --- Init Redis (optional, stats cache only) ---
	var redisClient *database.RedisClient
	if cfg.Database.Redis.Address != "" {
		redisClient, err = database.NewRedis(cfg.Database.Redis)
		if err == nil {
			err = redisClient.Ping(ctx)
		}
		if err != nil {
			zapLog.Warn("redis unavailable, stats cache disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
			zapLog.Info("Redis connected successfully")
		}
	}

	var statsSvc *stats.Service
	if redisClient != nil {
		statsSvc = stats.NewService(appStore, redisClient.Client, time.Duration(cfg.Stats.CacheTTL)*time.Second, log)
	} else {
		statsSvc = stats.NewService(appStore, nil, 0, log)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	sampler := generator.NewSampler(rng)
	factory := generator.NewFactory(rng)
	flushTimeout := config.GetDuration(cfg.Kafka.FlushTimeout)

	runMenu(ctx, menuDeps{
		cfg:          cfg,
		log:          log,
		zapLog:       zapLog,
		appStore:     appStore,
		statsSvc:     statsSvc,
		sampler:      sampler,
		factory:      factory,
		obs:          obs,
		flushTimeout: flushTimeout,
	})
}

type menuDeps struct {
	cfg          *config.Config
	log          logger.Logger
	zapLog       *zap.Logger
	appStore     *store.ApplicationStore
	statsSvc     *stats.Service
	sampler      *generator.Sampler
	factory      *generator.Factory
	obs          *observability.Observability
	flushTimeout time.Duration
}

func runMenu(ctx context.Context, deps menuDeps) {
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Println("\nOptions:")
		fmt.Println("1. Send historical data batch to Kafka")
		fmt.Println("2. Start real-time streaming to Kafka")
		fmt.Println("3. Generate local-only batch (no Kafka)")
		fmt.Println("4. Test Kafka connection")
		fmt.Println("5. Show local database stats")
		fmt.Println("6. Show recent applications")
		fmt.Println("7. Exit")
		fmt.Print("\nEnter your choice (1-7): ")

		if !scanner.Scan() {
			return
		}

		switch strings.TrimSpace(scanner.Text()) {
		case "1":
			count := readInt(scanner, fmt.Sprintf("Number of historical records (default %d): ", deps.cfg.Generator.BatchSize), deps.cfg.Generator.BatchSize)
			runBatch(ctx, deps, count, true)

		case "2":
			interval := readInt(scanner, fmt.Sprintf("Streaming interval in seconds (default %d): ", deps.cfg.Generator.IntervalSeconds), deps.cfg.Generator.IntervalSeconds)
			runContinuous(deps, time.Duration(interval)*time.Second)

		case "3":
			count := readInt(scanner, fmt.Sprintf("Number of records (default %d): ", deps.cfg.Generator.BatchSize), deps.cfg.Generator.BatchSize)
			runBatch(ctx, deps, count, false)

		case "4":
			testConnection(ctx, deps)

		case "5":
			showStats(ctx, deps)

		case "6":
			hours := readInt(scanner, "Window in hours (default 24): ", 24)
			showRecent(ctx, deps, hours)

		case "7":
			fmt.Println("Goodbye!")
			return

		default:
			fmt.Println("Invalid choice. Please try again.")
		}
	}
}

// connectPublisher builds and connects the stream publisher. Connection
// failure aborts streaming startup; it is reported, not retried.
func connectPublisher(ctx context.Context, deps menuDeps) *stream.KafkaPublisher {
	pub := stream.NewKafkaPublisher(deps.cfg.Kafka, deps.log)
	if err := pub.Connect(ctx); err != nil {
		deps.zapLog.Error("kafka connection failed", zap.Error(err))
		fmt.Println("Cannot start streaming without a Kafka connection.")
		return nil
	}
	return pub
}

func runBatch(ctx context.Context, deps menuDeps, count int, withKafka bool) {
	var pub stream.Publisher
	if withKafka {
		kafkaPub := connectPublisher(ctx, deps)
		if kafkaPub == nil {
			return
		}
		defer kafkaPub.Close()
		pub = kafkaPub
	}

	coord := pipeline.NewCoordinator(pub, deps.appStore, deps.cfg.Generator.ValidateMessages, deps.log)
	driver := pipeline.NewDriver(deps.sampler, deps.factory, coord, pub, deps.cfg.Generator, deps.flushTimeout, deps.obs, deps.log)

	sum, err := driver.RunBatch(ctx, count)
	if err != nil {
		deps.zapLog.Error("batch failed", zap.Error(err))
	}
	fmt.Printf("\nBatch complete: %d/%d accepted for transmission\n", sum.Sent, sum.Generated)
	fmt.Printf("Fraud records: %d (%.1f%%)\n", sum.Fraud, sum.FraudRate()*100)
}

func runContinuous(deps menuDeps, interval time.Duration) {
	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pub := connectPublisher(runCtx, deps)
	if pub == nil {
		return
	}
	defer pub.Close()

	coord := pipeline.NewCoordinator(pub, deps.appStore, deps.cfg.Generator.ValidateMessages, deps.log)
	driver := pipeline.NewDriver(deps.sampler, deps.factory, coord, pub, deps.cfg.Generator, deps.flushTimeout, deps.obs, deps.log)

	fmt.Println("Streaming... press Ctrl+C to stop")
	sum, err := driver.RunContinuous(runCtx, interval)
	if err != nil {
		deps.zapLog.Error("streaming failed", zap.Error(err))
	}
	fmt.Printf("\nTotal applications: %d, accepted: %d, fraud: %d (%.1f%%)\n",
		sum.Generated, sum.Sent, sum.Fraud, sum.FraudRate()*100)
}

func testConnection(ctx context.Context, deps menuDeps) {
	fmt.Println("Testing Kafka connection...")
	pub := stream.NewKafkaPublisher(deps.cfg.Kafka, deps.log)
	if err := pub.Connect(ctx); err != nil {
		fmt.Printf("Kafka connection failed: %v\n", err)
		return
	}
	pub.Close()
	fmt.Println("Kafka connection successful!")
}

func showStats(ctx context.Context, deps menuDeps) {
	st, err := deps.statsSvc.Snapshot(ctx)
	if err != nil {
		deps.zapLog.Error("stats query failed", zap.Error(err))
		return
	}

	fmt.Println("\nLocal Database Stats:")
	fmt.Printf("Total records: %d\n", st.Total)
	fmt.Printf("Sent to Kafka: %d\n", st.Sent)
	fmt.Printf("Fraud records: %d\n", st.Fraud)
	if st.Total > 0 {
		fmt.Printf("Fraud rate: %.1f%%\n", st.FraudRate()*100)
		fmt.Printf("Kafka success rate: %.1f%%\n", st.SentRate()*100)
		fmt.Printf("Avg loan amount (fraud): %.0f\n", st.AvgLoanFraud)
		fmt.Printf("Avg loan amount (normal): %.0f\n", st.AvgLoanNormal)
	}
}

func showRecent(ctx context.Context, deps menuDeps, hours int) {
	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	rows, err := deps.appStore.QueryRecent(ctx, since)
	if err != nil {
		deps.zapLog.Error("recent query failed", zap.Error(err))
		return
	}

	fmt.Printf("\n%d applications in the last %dh\n", len(rows), hours)
	limit := 10
	if len(rows) < limit {
		limit = len(rows)
	}
	for _, rec := range rows[:limit] {
		fmt.Printf("%s | %s | fraud=%t | sent=%t | amount=%.0f | score=%d\n",
			rec.ApplicationTimestamp.Format("2006-01-02 15:04:05"),
			rec.LoanID, rec.IsFraud, rec.KafkaSent, rec.LoanAmount, rec.CreditScore)
	}
}

func readInt(scanner *bufio.Scanner, prompt string, defaultValue int) int {
	fmt.Print(prompt)
	if !scanner.Scan() {
		return defaultValue
	}
	text := strings.TrimSpace(scanner.Text())
	if text == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(text)
	if err != nil || v <= 0 {
		fmt.Println("Invalid number, using default.")
		return defaultValue
	}
	return v
}
