package ingest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/fitlog/internal/metrics"
)

// SchedulerState はスケジューラの実行状態を表す。
type SchedulerState string

const (
	// SchedulerStateIdle はサイクル未実行の待機状態。
	SchedulerStateIdle SchedulerState = "idle"
	// SchedulerStateRunning はサイクル実行中の状態。
	SchedulerStateRunning SchedulerState = "running"
)

// CycleRunner は同期サイクルの実行インターフェース。
type CycleRunner interface {
	RunCycle(ctx context.Context, includeYesterday bool) error
}

// Scheduler は定期同期のスケジューリングを行う。
// 状態はIdleとRunningの2状態のみを持ち、サイクル実行中に到来した
// ティックは実行をキューイングせずに破棄する（前回サイクルが長引いても
// 実行が積み上がらない）。
type Scheduler struct {
	runner           CycleRunner
	collector        metrics.MetricsCollector
	logger           *slog.Logger
	includeYesterday bool

	mu    sync.Mutex
	state SchedulerState
	wg    sync.WaitGroup
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
func NewScheduler(runner CycleRunner, collector metrics.MetricsCollector, logger *slog.Logger, includeYesterday bool) *Scheduler {
	return &Scheduler{
		runner:           runner,
		collector:        collector,
		logger:           logger,
		includeYesterday: includeYesterday,
		state:            SchedulerStateIdle,
	}
}

// State は現在のスケジューラ状態を返す。
func (s *Scheduler) State() SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続し、
// 停止時は実行中のサイクルの完了を待つ。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("同期スケジューラを開始しました",
		slog.Duration("interval", interval),
		slog.Bool("include_yesterday", s.includeYesterday),
	)

	// 起動直後に1回実行
	s.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			s.logger.Info("同期スケジューラを停止しました")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick は1ティック分の処理を行う。
// Idle状態ならRunningに遷移してサイクルを非同期に開始する。
// Running状態（前回サイクルが未完了）ならティックを破棄して記録する。
func (s *Scheduler) Tick(ctx context.Context) {
	s.mu.Lock()
	if s.state == SchedulerStateRunning {
		s.mu.Unlock()
		s.collector.RecordTickSkipped()
		s.logger.Warn("前回サイクルが実行中のためティックをスキップします")
		return
	}
	s.state = SchedulerStateRunning
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.state = SchedulerStateIdle
			s.mu.Unlock()
			s.wg.Done()
		}()

		if err := s.runner.RunCycle(ctx, s.includeYesterday); err != nil {
			s.logger.Error("同期サイクルの実行に失敗しました",
				slog.String("error", err.Error()),
			)
		}
	}()
}
