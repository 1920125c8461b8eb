// Package app はアプリケーションの初期化と起動モードの制御を行う。
package app

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/fitlog/internal/analysis"
	"github.com/hitoshi/fitlog/internal/config"
	"github.com/hitoshi/fitlog/internal/database"
	"github.com/hitoshi/fitlog/internal/garmin"
	"github.com/hitoshi/fitlog/internal/handler"
	"github.com/hitoshi/fitlog/internal/logger"
	"github.com/hitoshi/fitlog/internal/metrics"
	"github.com/hitoshi/fitlog/internal/normalize"
	"github.com/hitoshi/fitlog/internal/repository"
	"github.com/hitoshi/fitlog/internal/security"
	"github.com/hitoshi/fitlog/internal/worker/backfill"
	"github.com/hitoshi/fitlog/internal/worker/cleanup"
	"github.com/hitoshi/fitlog/internal/worker/ingest"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandBackfill:
		return runBackfill(cfg, args[1:])
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(cfg *config.Config) (*repos, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	return &repos{
		db:       db,
		daily:    repository.NewPostgresDailySummaryRepo(db),
		sleep:    repository.NewPostgresSleepSummaryRepo(db),
		hrv:      repository.NewPostgresHrvSummaryRepo(db),
		activity: repository.NewPostgresActivityRepo(db),
		detail:   repository.NewPostgresActivityDetailRepo(db),
		syncRun:  repository.NewPostgresSyncRunRepo(db),
	}, nil
}

// repos はDB接続と全リポジトリをまとめた構造体。
type repos struct {
	db       *sql.DB
	daily    *repository.PostgresDailySummaryRepo
	sleep    *repository.PostgresSleepSummaryRepo
	hrv      *repository.PostgresHrvSummaryRepo
	activity *repository.PostgresActivityRepo
	detail   *repository.PostgresActivityDetailRepo
	syncRun  *repository.PostgresSyncRunRepo
}

// newSyncer はベンダークライアント・ノーマライザ・リポジトリを
// ワイヤリングしたSyncerを生成する。workerとbackfillで共用する。
func newSyncer(cfg *config.Config, r *repos, collector metrics.MetricsCollector) *ingest.Syncer {
	client := garmin.NewClient(
		&http.Client{Timeout: cfg.FetchTimeout},
		slog.Default(),
		cfg.GarminToken,
		cfg.GarminBaseURL,
		cfg.VendorAPIInterval,
	)
	client.SetObserver(collector)
	sanitizer := security.NewTextSanitizer()
	normalizer := normalize.NewNormalizer(sanitizer, slog.Default())

	return ingest.NewSyncer(
		client, normalizer,
		r.daily, r.sleep, r.hrv, r.activity, r.detail, r.syncRun,
		collector, slog.Default(), cfg.MaxRetries, true,
	)
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、読み取り専用APIの依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	r, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer r.db.Close()

	estimator := analysis.NewEstimator(r.activity, r.detail, slog.Default())

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		DB:                r.db,
		Gatherer:          prometheus.DefaultGatherer,

		DailyRepo:    r.daily,
		SleepRepo:    r.sleep,
		HrvRepo:      r.hrv,
		ActivityRepo: r.activity,
		DetailRepo:   r.detail,
		SyncRunRepo:  r.syncRun,
		Estimator:    estimator,
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker は同期ワーカーモードで起動する。
// 定期同期スケジューラと履歴クリーンアップジョブを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	r, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer r.db.Close()

	collector := metrics.NewCollector(prometheus.DefaultRegisterer)
	syncer := newSyncer(cfg, r, collector)
	scheduler := ingest.NewScheduler(syncer, collector, slog.Default(), cfg.SyncYesterday)

	cleanupJob := cleanup.NewCleanupJob(r.syncRun, slog.Default())
	cleanupJob.RetentionDays = cfg.SyncRunRetentionDays

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("sync_interval", cfg.SyncInterval),
		slog.Bool("sync_yesterday", cfg.SyncYesterday),
	)

	// クリーンアップジョブを日次でバックグラウンド実行
	go cleanupJob.StartDaily(ctx)

	// 同期スケジューラをメインgoroutineで実行（ブロッキング）
	scheduler.Start(ctx, cfg.SyncInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runBackfill は過去日付範囲のバックフィルを実行する。
// --start/--end（YYYY-MM-DD、両端含む）で範囲を指定し、
// 古い日付から順に同期して最終レポートを出力する。
func runBackfill(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("backfill", flag.ContinueOnError)
	startStr := fs.String("start", "", "開始日 (YYYY-MM-DD)")
	endStr := fs.String("end", "", "終了日 (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *startStr == "" || *endStr == "" {
		return fmt.Errorf("backfill requires --start and --end (YYYY-MM-DD)")
	}

	start, err := time.Parse("2006-01-02", *startStr)
	if err != nil {
		return fmt.Errorf("invalid --start date: %w", err)
	}
	end, err := time.Parse("2006-01-02", *endStr)
	if err != nil {
		return fmt.Errorf("invalid --end date: %w", err)
	}

	r, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer r.db.Close()

	collector := metrics.NewCollector(prometheus.DefaultRegisterer)
	syncer := newSyncer(cfg, r, collector)
	driver := backfill.NewDriver(syncer, r.syncRun, slog.Default())

	// Ctrl-Cで残り日付の処理を中断できるようにする
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	report, err := driver.Run(ctx, start, end)
	if err != nil {
		return fmt.Errorf("backfill failed: %w", err)
	}

	for _, f := range report.Failures {
		slog.Warn("backfill failure",
			slog.String("date", f.Date),
			slog.String("metric", f.Metric),
			slog.String("reason", f.Reason),
		)
	}
	slog.Info("backfill finished",
		slog.Int("dates_processed", report.DatesProcessed),
		slog.Int("failure_count", len(report.Failures)),
	)

	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
