package regression

import "gonum.org/v1/gonum/stat"

// Scaler standardizes each column to zero mean and unit variance.
// A column whose standard deviation is below 1e-10 is scaled by 1.
type Scaler struct {
	Mean []float64
	Std  []float64
}

func FitScaler(X [][]float64) *Scaler {
	if len(X) == 0 {
		return &Scaler{}
	}
	d := len(X[0])
	s := &Scaler{Mean: make([]float64, d), Std: make([]float64, d)}
	col := make([]float64, len(X))
	for j := 0; j < d; j++ {
		for i, row := range X {
			col[i] = row[j]
		}
		s.Mean[j], s.Std[j] = stat.PopMeanStdDev(col, nil)
		if !(s.Std[j] >= 1e-10) {
			s.Std[j] = 1
		}
	}
	return s
}

// FitScalar fits a one-column scaler on a target vector.
func FitScalar(y []float64) *Scaler {
	col := make([][]float64, len(y))
	for i, v := range y {
		col[i] = []float64{v}
	}
	return FitScaler(col)
}

func (s *Scaler) Transform(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - s.Mean[j]) / s.Std[j]
	}
	return out
}

func (s *Scaler) TransformAll(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = s.Transform(row)
	}
	return out
}

func (s *Scaler) Inverse(v float64) float64 { return v*s.Std[0] + s.Mean[0] }
