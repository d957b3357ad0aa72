package model

import "gonum.org/v1/gonum/mat"

// Transformer はデータ変換器のインターフェース。前処理スケーラーが実装する。
type Transformer interface {
	// Fit は変換に必要な統計量を学習する
	Fit(X mat.Matrix) error

	// Transform は学習済みの統計量でデータを変換する
	Transform(X mat.Matrix) (mat.Matrix, error)

	// FitTransform は同じデータに対してFitとTransformを続けて実行する
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// InverseTransformer は変換を逆向きに適用できる変換器のインターフェース
type InverseTransformer interface {
	Transformer

	// InverseTransform は変換されたデータを元のスケールに戻す
	InverseTransform(X mat.Matrix) (mat.Matrix, error)
}
