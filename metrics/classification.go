package metrics

import (
	"math"
	"sort"

	"github.com/scratchml/scratchml/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Accuracy は正解率（ラベルが完全一致したサンプルの割合）を計算する
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	// 入力検証
	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError("Accuracy", "nil vector")
	}

	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("Accuracy", "empty vector")
	}

	if yPred.Len() != n {
		return 0, errors.NewDimensionError("Accuracy", n, yPred.Len(), 0)
	}

	// accuracy = (1/n) * Σ 1[yTrue == yPred]
	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}

	return float64(correct) / float64(n), nil
}

// AccuracyMatrix は行列形式の入力に対して正解率を計算する
// 複数列の行列が渡された場合は先頭列をラベルとして扱う
func AccuracyMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	yTrueVec, yPredVec, err := columnVectors("AccuracyMatrix", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return Accuracy(yTrueVec, yPredVec)
}

// ClassificationError は誤分類率（1 - 正解率）を計算する
func ClassificationError(yTrue, yPred *mat.VecDense) (float64, error) {
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return 1 - acc, nil
}

// ConfusionMatrix は混同行列を計算する
// 行が真のラベル、列が予測ラベルに対応し、ラベルは昇順に並ぶ
// 戻り値はカウント行列と、行・列に対応するラベルの順序
func ConfusionMatrix(yTrue, yPred *mat.VecDense) (*mat.Dense, []float64, error) {
	// 入力検証
	if yTrue == nil || yPred == nil {
		return nil, nil, errors.NewValueError("ConfusionMatrix", "nil vector")
	}

	n := yTrue.Len()
	if n == 0 {
		return nil, nil, errors.NewValueError("ConfusionMatrix", "empty vector")
	}

	if yPred.Len() != n {
		return nil, nil, errors.NewDimensionError("ConfusionMatrix", n, yPred.Len(), 0)
	}

	// 真のラベルと予測ラベルの和集合を昇順で求める
	seen := make(map[float64]bool)
	for i := 0; i < n; i++ {
		seen[yTrue.AtVec(i)] = true
		seen[yPred.AtVec(i)] = true
	}

	labels := make([]float64, 0, len(seen))
	for label := range seen {
		labels = append(labels, label)
	}
	sort.Float64s(labels)

	index := make(map[float64]int, len(labels))
	for i, label := range labels {
		index[label] = i
	}

	// カウントを集計する
	cm := mat.NewDense(len(labels), len(labels), nil)
	for i := 0; i < n; i++ {
		r := index[yTrue.AtVec(i)]
		c := index[yPred.AtVec(i)]
		cm.Set(r, c, cm.At(r, c)+1)
	}

	return cm, labels, nil
}

// Precision は二値分類の適合率 TP/(TP+FP) を計算する
// posLabel で陽性クラスのラベルを指定する
// 陽性と予測されたサンプルが存在しない場合はUndefinedMetricWarningを発行し0を返す
func Precision(yTrue, yPred *mat.VecDense, posLabel float64) (float64, error) {
	tp, fp, _, err := binaryCounts("Precision", yTrue, yPred, posLabel)
	if err != nil {
		return 0, err
	}

	if tp+fp == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("precision", "no predicted samples for the positive label", 0))
		return 0, nil
	}

	return float64(tp) / float64(tp+fp), nil
}

// Recall は二値分類の再現率 TP/(TP+FN) を計算する
// 陽性クラスの真のサンプルが存在しない場合はUndefinedMetricWarningを発行し0を返す
func Recall(yTrue, yPred *mat.VecDense, posLabel float64) (float64, error) {
	tp, _, fn, err := binaryCounts("Recall", yTrue, yPred, posLabel)
	if err != nil {
		return 0, err
	}

	if tp+fn == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("recall", "no true samples for the positive label", 0))
		return 0, nil
	}

	return float64(tp) / float64(tp+fn), nil
}

// F1Score は適合率と再現率の調和平均 2PR/(P+R) を計算する
// 適合率と再現率がともに0の場合はUndefinedMetricWarningを発行し0を返す
func F1Score(yTrue, yPred *mat.VecDense, posLabel float64) (float64, error) {
	tp, fp, fn, err := binaryCounts("F1Score", yTrue, yPred, posLabel)
	if err != nil {
		return 0, err
	}

	var precision, recall float64
	if tp+fp > 0 {
		precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		recall = float64(tp) / float64(tp+fn)
	}

	if precision+recall == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("f1", "precision and recall are both zero", 0))
		return 0, nil
	}

	return 2 * precision * recall / (precision + recall), nil
}

// binaryCounts は陽性ラベルに対するTP/FP/FNを集計する
func binaryCounts(op string, yTrue, yPred *mat.VecDense, posLabel float64) (tp, fp, fn int, err error) {
	if yTrue == nil || yPred == nil {
		return 0, 0, 0, errors.NewValueError(op, "nil vector")
	}

	n := yTrue.Len()
	if n == 0 {
		return 0, 0, 0, errors.NewValueError(op, "empty vector")
	}

	if yPred.Len() != n {
		return 0, 0, 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}

	for i := 0; i < n; i++ {
		truePos := yTrue.AtVec(i) == posLabel
		predPos := yPred.AtVec(i) == posLabel

		switch {
		case truePos && predPos:
			tp++
		case !truePos && predPos:
			fp++
		case truePos && !predPos:
			fn++
		}
	}

	return tp, fp, fn, nil
}

// AUC はROC曲線下面積（Area Under the ROC Curve）を計算する
// yTrueは0/1の二値ラベル、yPredは陽性クラスのスコア（確率など）
// 同スコアのサンプルは平均順位で扱う（Mann-WhitneyのU統計量と等価）
// yTrueに一方のクラスしか存在しない場合はUndefinedMetricWarningを発行し0.5を返す
func AUC(yTrue, yPred *mat.VecDense) (float64, error) {
	// 入力検証
	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError("AUC", "nil vector")
	}

	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("AUC", "empty vector")
	}

	if yPred.Len() != n {
		return 0, errors.NewDimensionError("AUC", n, yPred.Len(), 0)
	}

	nPos := 0
	for i := 0; i < n; i++ {
		switch yTrue.AtVec(i) {
		case 1:
			nPos++
		case 0:
		default:
			return 0, errors.NewValueError("AUC", "labels must be binary (0 or 1)")
		}
	}

	nNeg := n - nPos
	if nPos == 0 || nNeg == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("auc", "only one class present in yTrue", 0.5))
		return 0.5, nil
	}

	// スコア昇順に並べ、同スコアには平均順位を割り当てる
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return yPred.AtVec(order[a]) < yPred.AtVec(order[b])
	})

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j < n && yPred.AtVec(order[j]) == yPred.AtVec(order[i]) {
			j++
		}
		// 1始まりの順位 i+1..j の平均
		avgRank := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			ranks[order[k]] = avgRank
		}
		i = j
	}

	// U統計量から AUC = U / (nPos * nNeg)
	var rankSumPos float64
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == 1 {
			rankSumPos += ranks[i]
		}
	}

	u := rankSumPos - float64(nPos)*float64(nPos+1)/2
	return u / (float64(nPos) * float64(nNeg)), nil
}

// AUCMatrix は行列形式の入力に対してAUCを計算する
// 複数列の行列が渡された場合は先頭列を使用する
func AUCMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	yTrueVec, yPredVec, err := columnVectors("AUCMatrix", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return AUC(yTrueVec, yPredVec)
}

// BinaryLogLoss は二値分類の交差エントロピー損失を計算する
// 予測確率は log(0) を避けるため [eps, 1-eps] にクリップされる
func BinaryLogLoss(yTrue, yPred *mat.VecDense) (float64, error) {
	// 入力検証
	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError("BinaryLogLoss", "nil vector")
	}

	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("BinaryLogLoss", "empty vector")
	}

	if yPred.Len() != n {
		return 0, errors.NewDimensionError("BinaryLogLoss", n, yPred.Len(), 0)
	}

	const eps = 1e-15

	var sum float64
	for i := 0; i < n; i++ {
		y := yTrue.AtVec(i)
		if y != 0 && y != 1 {
			return 0, errors.NewValueError("BinaryLogLoss", "labels must be binary (0 or 1)")
		}

		p := yPred.AtVec(i)
		if p < eps {
			p = eps
		} else if p > 1-eps {
			p = 1 - eps
		}

		sum += y*math.Log(p) + (1-y)*math.Log(1-p)
	}

	return -sum / float64(n), nil
}

// columnVectors は行列ペアの先頭列をVecDenseのペアに変換する共通処理
func columnVectors(op string, yTrue, yPred mat.Matrix) (*mat.VecDense, *mat.VecDense, error) {
	if yTrue == nil || yPred == nil {
		return nil, nil, errors.NewValueError(op, "nil matrix")
	}

	rTrue, cTrue := yTrue.Dims()
	rPred, cPred := yPred.Dims()

	if rTrue == 0 || cTrue == 0 || rPred == 0 || cPred == 0 {
		return nil, nil, errors.NewValueError(op, "empty matrix")
	}

	if rTrue != rPred {
		return nil, nil, errors.NewDimensionError(op, rTrue, rPred, 0)
	}

	yTrueVec := mat.NewVecDense(rTrue, nil)
	yPredVec := mat.NewVecDense(rPred, nil)
	for i := 0; i < rTrue; i++ {
		yTrueVec.SetVec(i, yTrue.At(i, 0))
		yPredVec.SetVec(i, yPred.At(i, 0))
	}

	return yTrueVec, yPredVec, nil
}
