package model

// BaseEstimator は全ての推定器に埋め込まれる基底構造体。
// 学習済みフラグを一元管理し、Fit前のクエリ呼び出しを
// 各推定器がNotFittedErrorとして検出できるようにする。
// 排他制御は行わない。並行アクセスの保護は各推定器が
// 自身のRWMutexで行う。
type BaseEstimator struct {
	fitted bool
}

// IsFitted はFitが一度成功した後であればtrueを返す
func (e *BaseEstimator) IsFitted() bool {
	return e.fitted
}

// SetFitted は学習の完了を記録する。各推定器のFitが
// 学習済みフィールドをすべて構築した後に呼び出す。
func (e *BaseEstimator) SetFitted() {
	e.fitted = true
}

// Reset は学習状態を破棄し、未学習の状態に戻す
func (e *BaseEstimator) Reset() {
	e.fitted = false
}
