// Package cluster はクラスタリングアルゴリズムを提供する。
//
// KMeans はフルバッチのLloyd法による実装で、割り当てが前回と完全に一致した
// 時点で反復を打ち切る。シードを固定すれば結果は完全に再現される。
package cluster

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/scratchml/scratchml/core/model"
	"github.com/scratchml/scratchml/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// KMeans はK-meansクラスタリング
// scikit-learnのKMeansと互換性を持つ
type KMeans struct {
	model.BaseEstimator

	// ハイパーパラメータ
	nClusters   int   // クラスタ数
	maxIter     int   // 最大イテレーション数
	randomState int64 // 乱数シード（-1は非決定的）

	// 学習パラメータ
	clusterCenters_ [][]float64 // クラスタ中心（nClusters x nFeatures）
	labels_         []int       // 各サンプルのクラスタラベル
	inertia_        float64     // クラスタ内平方和誤差
	nIter_          int         // 実行されたイテレーション数
	converged_      bool        // 割り当ての安定により停止したか

	// 内部状態
	mu         sync.RWMutex
	rng        *rand.Rand
	nFeatures_ int
	nSamples_  int
}

// KMeansOption はKMeansの設定オプション
type KMeansOption func(*KMeans)

// NewKMeans は新しいKMeansを作成
func NewKMeans(options ...KMeansOption) *KMeans {
	kmeans := &KMeans{
		nClusters:   3,
		maxIter:     100,
		randomState: -1,
	}

	for _, opt := range options {
		opt(kmeans)
	}

	if kmeans.randomState >= 0 {
		kmeans.rng = rand.New(rand.NewSource(kmeans.randomState))
	} else {
		kmeans.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return kmeans
}

// WithNClusters はクラスタ数を設定
func WithNClusters(n int) KMeansOption {
	return func(kmeans *KMeans) {
		kmeans.nClusters = n
	}
}

// WithMaxIter は最大イテレーション数を設定
func WithMaxIter(maxIter int) KMeansOption {
	return func(kmeans *KMeans) {
		kmeans.maxIter = maxIter
	}
}

// WithKMeansRandomState は乱数シードを設定
func WithKMeansRandomState(seed int64) KMeansOption {
	return func(kmeans *KMeans) {
		kmeans.randomState = seed
		if seed >= 0 {
			kmeans.rng = rand.New(rand.NewSource(seed))
		}
	}
}

// Fit はLloyd法でクラスタ中心を学習する。yは無視される（Estimatorインターフェース互換のため）。
//
// 各イテレーションでは全サンプルを最近傍中心に割り当て、割り当てが前回格納
// したものと完全に一致した場合は、格納済みのラベルと中心を保ったまま反復を
// 終了する。一致しなければ割り当てを格納し、各クラスタの所属サンプルの平均
// で中心を更新する。所属サンプルが無いクラスタの中心は据え置かれる。
func (kmeans *KMeans) Fit(X, y mat.Matrix) (err error) {
	kmeans.mu.Lock()
	defer kmeans.mu.Unlock()
	defer errors.Recover(&err, "KMeans.Fit")

	if kmeans.nClusters < 1 {
		return errors.NewValueError("KMeans.Fit", fmt.Sprintf("n_clusters must be at least 1, got %d", kmeans.nClusters))
	}
	if kmeans.maxIter < 1 {
		return errors.NewValueError("KMeans.Fit", fmt.Sprintf("max_iter must be at least 1, got %d", kmeans.maxIter))
	}

	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewModelError("KMeans.Fit", "empty data", errors.ErrEmptyData)
	}
	if err := errors.CheckMatrix("KMeans.Fit", X, rows, cols, 0); err != nil {
		return err
	}
	if rows < kmeans.nClusters {
		return errors.NewValueError("KMeans.Fit", fmt.Sprintf("n_clusters %d exceeds n_samples %d", kmeans.nClusters, rows))
	}

	kmeans.nSamples_ = rows
	kmeans.nFeatures_ = cols

	centers := kmeans.initializeCenters(X)

	var labels []int
	converged := false
	nIter := 0

	for iter := 0; iter < kmeans.maxIter; iter++ {
		nIter = iter + 1

		assignment := make([]int, rows)
		for i := 0; i < rows; i++ {
			sample := mat.Row(nil, i, X)
			assignment[i] = kmeans.findNearestCluster(sample, centers)
		}

		// 割り当てが安定したら、格納済みのラベルと中心の整合を保ったまま終了
		if iter > 0 && equalAssignments(assignment, labels) {
			converged = true
			break
		}

		labels = assignment
		centers = kmeans.updateCenters(X, centers, labels)
	}

	kmeans.clusterCenters_ = centers
	kmeans.labels_ = labels
	kmeans.nIter_ = nIter
	kmeans.converged_ = converged
	kmeans.inertia_ = kmeans.computeInertia(X, centers, labels)

	if !converged {
		errors.Warn(errors.NewConvergenceWarning("KMeans", kmeans.maxIter,
			"assignment did not stabilize within max_iter"))
	}

	kmeans.SetFitted()
	return nil
}

// Predict は各サンプルに最近傍クラスタのインデックスを割り当てる
func (kmeans *KMeans) Predict(X mat.Matrix) (mat.Matrix, error) {
	kmeans.mu.RLock()
	defer kmeans.mu.RUnlock()

	if !kmeans.IsFitted() {
		return nil, errors.NewNotFittedError("KMeans", "Predict")
	}

	rows, cols := X.Dims()
	if cols != kmeans.nFeatures_ {
		return nil, errors.NewDimensionError("KMeans.Predict", kmeans.nFeatures_, cols, 1)
	}

	predictions := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		sample := mat.Row(nil, i, X)
		cluster := kmeans.findNearestCluster(sample, kmeans.clusterCenters_)
		predictions.Set(i, 0, float64(cluster))
	}

	return predictions, nil
}

// FitPredict は学習を行い、学習時に格納された割り当てをそのまま返す。
// Predictによる再計算ではないため、空クラスタがあっても学習時の
// ラベルと厳密に一致する。
func (kmeans *KMeans) FitPredict(X, y mat.Matrix) (mat.Matrix, error) {
	if err := kmeans.Fit(X, y); err != nil {
		return nil, err
	}

	kmeans.mu.RLock()
	defer kmeans.mu.RUnlock()

	predictions := mat.NewDense(len(kmeans.labels_), 1, nil)
	for i, cluster := range kmeans.labels_ {
		predictions.Set(i, 0, float64(cluster))
	}
	return predictions, nil
}

// Transform はデータを各クラスタ中心とのユークリッド距離に変換
func (kmeans *KMeans) Transform(X mat.Matrix) (mat.Matrix, error) {
	kmeans.mu.RLock()
	defer kmeans.mu.RUnlock()

	if !kmeans.IsFitted() {
		return nil, errors.NewNotFittedError("KMeans", "Transform")
	}

	rows, cols := X.Dims()
	if cols != kmeans.nFeatures_ {
		return nil, errors.NewDimensionError("KMeans.Transform", kmeans.nFeatures_, cols, 1)
	}

	distances := mat.NewDense(rows, kmeans.nClusters, nil)
	for i := 0; i < rows; i++ {
		sample := mat.Row(nil, i, X)
		for c := 0; c < kmeans.nClusters; c++ {
			distances.Set(i, c, euclideanDistance(sample, kmeans.clusterCenters_[c]))
		}
	}

	return distances, nil
}

// ClusterCenters は学習されたクラスタ中心のコピーを返す
func (kmeans *KMeans) ClusterCenters() *mat.Dense {
	kmeans.mu.RLock()
	defer kmeans.mu.RUnlock()

	if kmeans.clusterCenters_ == nil {
		return nil
	}

	centers := mat.NewDense(kmeans.nClusters, kmeans.nFeatures_, nil)
	for c, center := range kmeans.clusterCenters_ {
		for j, v := range center {
			centers.Set(c, j, v)
		}
	}
	return centers
}

// Labels は学習データのクラスタラベルのコピーを返す
func (kmeans *KMeans) Labels() []int {
	kmeans.mu.RLock()
	defer kmeans.mu.RUnlock()

	if kmeans.labels_ == nil {
		return nil
	}

	labels := make([]int, len(kmeans.labels_))
	copy(labels, kmeans.labels_)
	return labels
}

// Inertia は慣性（格納済みラベルに基づくクラスタ内平方和誤差）を返す
func (kmeans *KMeans) Inertia() float64 {
	kmeans.mu.RLock()
	defer kmeans.mu.RUnlock()
	return kmeans.inertia_
}

// NIter は実行されたイテレーション数を返す（収束を検出したパスを含む）
func (kmeans *KMeans) NIter() int {
	kmeans.mu.RLock()
	defer kmeans.mu.RUnlock()
	return kmeans.nIter_
}

// Converged は割り当ての安定により停止したかどうかを返す。
// falseはmax_iterを使い切ったことを意味する。
func (kmeans *KMeans) Converged() bool {
	kmeans.mu.RLock()
	defer kmeans.mu.RUnlock()
	return kmeans.converged_
}

// GetParams はハイパーパラメータをscikit-learn形式のキーで返す
func (kmeans *KMeans) GetParams() map[string]interface{} {
	kmeans.mu.RLock()
	defer kmeans.mu.RUnlock()

	return map[string]interface{}{
		"n_clusters":   kmeans.nClusters,
		"max_iter":     kmeans.maxIter,
		"random_state": kmeans.randomState,
	}
}

// SetParams はscikit-learn形式のキーでハイパーパラメータを更新
func (kmeans *KMeans) SetParams(params map[string]interface{}) error {
	kmeans.mu.Lock()
	defer kmeans.mu.Unlock()

	for key, value := range params {
		switch key {
		case "n_clusters":
			v, ok := value.(int)
			if !ok {
				return errors.NewValidationError(key, "must be an int", value)
			}
			kmeans.nClusters = v
		case "max_iter":
			v, ok := value.(int)
			if !ok {
				return errors.NewValidationError(key, "must be an int", value)
			}
			kmeans.maxIter = v
		case "random_state":
			switch v := value.(type) {
			case int:
				kmeans.randomState = int64(v)
			case int64:
				kmeans.randomState = v
			default:
				return errors.NewValidationError(key, "must be an int", value)
			}
			if kmeans.randomState >= 0 {
				kmeans.rng = rand.New(rand.NewSource(kmeans.randomState))
			}
		default:
			return errors.NewValueError("KMeans.SetParams", fmt.Sprintf("unknown parameter %q", key))
		}
	}

	return nil
}

// 内部ヘルパーメソッド

// initializeCenters はクラスタ中心を一様ランダムに選んだサンプル行で初期化する。
// 復元抽出なので同じ行が複数の中心に選ばれることもある。
// シード指定時は毎回ここで乱数列を巻き戻し、同一インスタンスの再学習でも
// 同じ初期中心から始まるようにする。
func (kmeans *KMeans) initializeCenters(X mat.Matrix) [][]float64 {
	if kmeans.randomState >= 0 {
		kmeans.rng = rand.New(rand.NewSource(kmeans.randomState))
	}

	rows, cols := X.Dims()
	centers := make([][]float64, kmeans.nClusters)

	for c := 0; c < kmeans.nClusters; c++ {
		centers[c] = make([]float64, cols)
		idx := kmeans.rng.Intn(rows)
		sample := mat.Row(nil, idx, X)
		copy(centers[c], sample)
	}

	return centers
}

// findNearestCluster は最近傍クラスタを検索（距離が等しい場合は小さいインデックス）
func (kmeans *KMeans) findNearestCluster(sample []float64, centers [][]float64) int {
	minDist := math.Inf(1)
	nearestCluster := 0

	for c, center := range centers {
		dist := euclideanDistance(sample, center)
		if dist < minDist {
			minDist = dist
			nearestCluster = c
		}
	}

	return nearestCluster
}

// updateCenters は各クラスタの所属サンプルの平均で中心を再計算する。
// 所属サンプルが無いクラスタの中心は現在の値を据え置く。
func (kmeans *KMeans) updateCenters(X mat.Matrix, centers [][]float64, labels []int) [][]float64 {
	rows, cols := X.Dims()

	sums := make([][]float64, kmeans.nClusters)
	counts := make([]int, kmeans.nClusters)
	for c := range sums {
		sums[c] = make([]float64, cols)
	}

	for i := 0; i < rows; i++ {
		c := labels[i]
		counts[c]++
		for j := 0; j < cols; j++ {
			sums[c][j] += X.At(i, j)
		}
	}

	updated := make([][]float64, kmeans.nClusters)
	for c := 0; c < kmeans.nClusters; c++ {
		updated[c] = make([]float64, cols)
		if counts[c] == 0 {
			copy(updated[c], centers[c])
			continue
		}
		for j := 0; j < cols; j++ {
			updated[c][j] = sums[c][j] / float64(counts[c])
		}
	}

	return updated
}

// computeInertia は格納済みラベルに基づく慣性（クラスタ内平方和誤差）を計算
func (kmeans *KMeans) computeInertia(X mat.Matrix, centers [][]float64, labels []int) float64 {
	inertia := 0.0

	for i, c := range labels {
		sample := mat.Row(nil, i, X)
		dist := euclideanDistance(sample, centers[c])
		inertia += dist * dist
	}

	return inertia
}

// 補助関数

// equalAssignments は2つの割り当てが要素ごとに完全一致するかを判定
func equalAssignments(a, b []int) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// euclideanDistance はユークリッド距離を計算
func euclideanDistance(a, b []float64) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}

	sum := 0.0
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}

	return math.Sqrt(sum)
}
