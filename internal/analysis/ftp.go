package analysis

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/hitoshi/fitlog/internal/repository"
)

// ErrInsufficientData はFTP推定に必要なパワーデータが不足していることを示す。
var ErrInsufficientData = errors.New("FTP推定に十分なパワーデータがありません")

// mmpDurations はMMP（最大平均パワー）曲線の対象時間（秒）。
// 3分、5分、10分、20分、30分、40分、60分。
var mmpDurations = []int{180, 300, 600, 1200, 1800, 2400, 3600}

// steadyStateDurations は定常走の探索対象時間（秒）。40分と60分。
var steadyStateDurations = []int{2400, 3600}

// FTPEstimate はFTP推定の結果。
type FTPEstimate struct {
	FTPWatts              float64 `json:"ftp_watts"`
	ConfidenceScore       float64 `json:"confidence_score"`
	CPWatts               float64 `json:"cp_watts"`
	WPrime                float64 `json:"w_prime"`
	BestSteadyPower       float64 `json:"best_steady_power"`
	BestSteadyDurationMin float64 `json:"best_steady_duration_m"`
	HRDecouplingAvg       float64 `json:"hr_decoupling_avg"`
	DataCoverageDays      int     `json:"data_coverage_days"`
}

// Estimator は保存済みアクティビティ詳細からFTPを推定する。
//
// 推定はフィールドデータに基づく5段階で行う：
//  1. 対象期間のMMP曲線を構築する
//  2. 2パラメータCPモデル（Work = CP*t + W'）を最小二乗法で当てはめる
//  3. モデルFTPを実測の定常走パワーで上限クランプする
//  4. 最良の定常走（40-70分、VI <= 1.05）を探索する
//  5. HR-パワーのデカップリングで信頼度を調整する
type Estimator struct {
	activityRepo repository.ActivityRepository
	detailRepo   repository.ActivityDetailRepository
	logger       *slog.Logger
	now          func() time.Time // テスト用に差し替え可能
}

// NewEstimator はEstimatorの新しいインスタンスを生成する。
func NewEstimator(activityRepo repository.ActivityRepository, detailRepo repository.ActivityDetailRepository, logger *slog.Logger) *Estimator {
	return &Estimator{
		activityRepo: activityRepo,
		detailRepo:   detailRepo,
		logger:       logger,
		now:          time.Now,
	}
}

// Estimate は直近days日間のアクティビティからFTPを推定する。
// activityTypesが空でない場合はその種別に限定する。
// パワーデータを持つ有効なMMP点が2つ未満の場合はErrInsufficientDataを返す。
func (e *Estimator) Estimate(ctx context.Context, days int, activityTypes []string) (*FTPEstimate, error) {
	series, err := e.loadPowerSeries(ctx, days, activityTypes)
	if err != nil {
		return nil, err
	}

	// Step 1: MMP曲線の構築
	mmpCurve := make(map[int]float64, len(mmpDurations))
	for _, s := range series {
		for _, duration := range mmpDurations {
			if val := rollingMaxPower(s.Power, duration); val > mmpCurve[duration] {
				mmpCurve[duration] = val
			}
		}
	}

	// Step 2: CPモデルの当てはめ
	cp, wPrime, err := fitCPModel(mmpCurve)
	if err != nil {
		return nil, err
	}

	// Step 4: 最良定常走の探索（Step 3のクランプ基準を兼ねる）
	steadyPower, steadyDuration := bestSteadyState(series)

	// Step 3: モデルFTPのクランプ
	// 実測の定常走パワーがある場合、モデル値はその110%を超えない
	ftpModeled := cp
	if steadyPower > 0 && ftpModeled > steadyPower*1.10 {
		e.logger.Info("モデルFTPを実測定常走パワーでクランプします",
			slog.Float64("cp_watts", ftpModeled),
			slog.Float64("steady_power", steadyPower),
		)
		ftpModeled = steadyPower * 1.10
	}

	// Step 5: HR-パワーのデカップリング
	decoupling := avgDecoupling(series)

	// 最終重み付け：モデル70% + 実測定常走30%。
	// デカップリングが大きい（疲労や脱水の兆候）場合は実測の重みを上げる。
	// 定常走が観測されていない場合はモデル値をそのまま採用する。
	finalFTP := ftpModeled
	if steadyPower > 0 {
		if decoupling > 7.0 {
			finalFTP = 0.5*ftpModeled + 0.5*steadyPower
		} else {
			finalFTP = 0.7*ftpModeled + 0.3*steadyPower
		}
	}

	confidence := 0.5
	if decoupling < 5.0 {
		confidence = 0.8
	}

	return &FTPEstimate{
		FTPWatts:              finalFTP,
		ConfidenceScore:       confidence,
		CPWatts:               cp,
		WPrime:                wPrime,
		BestSteadyPower:       steadyPower,
		BestSteadyDurationMin: float64(steadyDuration) / 60,
		HRDecouplingAvg:       decoupling,
		DataCoverageDays:      days,
	}, nil
}

// loadPowerSeries は対象期間のアクティビティ詳細からパワー時系列を読み込む。
// パワーデータを持たないアクティビティはスキップする。
func (e *Estimator) loadPowerSeries(ctx context.Context, days int, activityTypes []string) ([]*Series, error) {
	since := e.now().AddDate(0, 0, -days)
	ids, err := e.activityRepo.ListIDsSince(ctx, since, activityTypes)
	if err != nil {
		return nil, err
	}

	e.logger.Info("MMP曲線の解析対象アクティビティを取得しました",
		slog.Int("activity_count", len(ids)),
		slog.Int("days", days),
	)

	var series []*Series
	for _, id := range ids {
		detail, err := e.detailRepo.FindByActivityID(ctx, id)
		if err != nil {
			return nil, err
		}
		if detail == nil {
			continue
		}
		s, err := ParseDetailSeries(detail.Details)
		if err != nil {
			// 解析できない詳細はスキップする（取り込み時の形式差異を許容）
			e.logger.Warn("アクティビティ詳細の解析をスキップします",
				slog.Int64("activity_id", id),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !s.HasPower() {
			continue
		}
		series = append(series, s)
	}

	return series, nil
}

// rollingMaxPower は指定ウィンドウ幅の移動平均パワーの最大値を返す。
// サンプル数がウィンドウ幅に満たない場合は0を返す。
func rollingMaxPower(power []float64, window int) float64 {
	if window <= 0 || len(power) < window {
		return 0
	}

	var sum float64
	for i := 0; i < window; i++ {
		sum += power[i]
	}
	max := sum

	for i := window; i < len(power); i++ {
		sum += power[i] - power[i-window]
		if sum > max {
			max = sum
		}
	}

	return max / float64(window)
}

// fitCPModel はMMP曲線に2パラメータCPモデルを最小二乗法で当てはめる。
// Work = CP*t + W' の回帰により臨界パワーCPと無酸素作業容量W'を求める。
// 3分以上の有効な点が2つ未満の場合はErrInsufficientDataを返す。
func fitCPModel(mmpCurve map[int]float64) (cp, wPrime float64, err error) {
	var ts, works []float64
	for t, p := range mmpCurve {
		if p > 0 && t >= 180 {
			ts = append(ts, float64(t))
			works = append(works, p*float64(t))
		}
	}

	if len(ts) < 2 {
		return 0, 0, ErrInsufficientData
	}

	n := float64(len(ts))
	var sx, sy, sxx, sxy float64
	for i := range ts {
		sx += ts[i]
		sy += works[i]
		sxx += ts[i] * ts[i]
		sxy += ts[i] * works[i]
	}

	denom := n*sxx - sx*sx
	if denom == 0 {
		return 0, 0, ErrInsufficientData
	}
	cp = (n*sxy - sx*sy) / denom
	wPrime = (sy - cp*sx) / n

	return cp, wPrime, nil
}

// normalizedPower はNP（Normalized Power）を計算する。
// 30秒移動平均の4乗平均の4乗根。サンプル数が30未満の場合は0を返す。
func normalizedPower(power []float64) float64 {
	const window = 30
	if len(power) < window {
		return 0
	}

	var sum float64
	for i := 0; i < window; i++ {
		sum += power[i]
	}

	var fourthPowerSum float64
	count := 0
	avg := sum / window
	fourthPowerSum += avg * avg * avg * avg
	count++

	for i := window; i < len(power); i++ {
		sum += power[i] - power[i-window]
		avg = sum / window
		fourthPowerSum += avg * avg * avg * avg
		count++
	}

	return math.Pow(fourthPowerSum/float64(count), 0.25)
}

// bestSteadyState は全アクティビティから最良の定常走を探索する。
// 40分と60分のウィンドウで移動平均パワーが最大の区間を特定し、
// その区間のVI（NP/平均パワー）が1.05以下であれば定常走とみなす。
func bestSteadyState(series []*Series) (bestPower float64, bestDuration int) {
	for _, s := range series {
		for _, duration := range steadyStateDurations {
			if s.Len() < duration {
				continue
			}

			avgPower, endIdx := rollingMaxPowerWithIndex(s.Power, duration)
			if avgPower <= 0 {
				continue
			}

			segment := s.Power[endIdx-duration+1 : endIdx+1]
			np := normalizedPower(segment)
			vi := math.Inf(1)
			if avgPower > 0 {
				vi = np / avgPower
			}

			if vi <= 1.05 && avgPower > bestPower {
				bestPower = avgPower
				bestDuration = duration
			}
		}
	}
	return bestPower, bestDuration
}

// rollingMaxPowerWithIndex は移動平均パワーの最大値とその終端インデックスを返す。
func rollingMaxPowerWithIndex(power []float64, window int) (float64, int) {
	if window <= 0 || len(power) < window {
		return 0, 0
	}

	var sum float64
	for i := 0; i < window; i++ {
		sum += power[i]
	}
	max := sum
	maxEnd := window - 1

	for i := window; i < len(power); i++ {
		sum += power[i] - power[i-window]
		if sum > max {
			max = sum
			maxEnd = i
		}
	}

	return max / float64(window), maxEnd
}

// avgDecoupling は60分以上のアクティビティの平均HR-パワーデカップリングを返す。
// デカップリングは前半と後半の効率（パワー/心拍）の低下率（%）。
// 異常値（-20%未満または30%超）は除外する。
func avgDecoupling(series []*Series) float64 {
	var values []float64
	for _, s := range series {
		if s.Len() < 3600 {
			continue
		}
		d, ok := decoupling(s)
		if ok && d > -20 && d < 30 {
			values = append(values, d)
		}
	}

	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// decoupling は1アクティビティの前半・後半の効率低下率（%）を計算する。
// 心拍データがない場合は計算不能としてfalseを返す。
func decoupling(s *Series) (float64, bool) {
	half := s.Len() / 2
	p1, h1 := mean(s.Power[:half]), mean(s.HeartRate[:half])
	p2, h2 := mean(s.Power[half:]), mean(s.HeartRate[half:])

	if h1 == 0 || h2 == 0 || p1 == 0 {
		return 0, false
	}

	ef1 := p1 / h1
	ef2 := p2 / h2
	return (ef1 - ef2) / ef1 * 100, true
}

// mean はスライスの算術平均を返す。空の場合は0。
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
