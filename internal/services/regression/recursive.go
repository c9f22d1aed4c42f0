package regression

import "iter"

// ring is a fixed-capacity window over the most recent values.
type ring struct {
	buf  []float64
	head int
}

func newRing(last []float64) *ring {
	return &ring{buf: append([]float64(nil), last...)}
}

func (r *ring) push(v float64) {
	r.buf[r.head] = v
	r.head = (r.head + 1) % len(r.buf)
}

// window copies the values oldest-first into dst.
func (r *ring) window(dst []float64) []float64 {
	n := copy(dst, r.buf[r.head:])
	copy(dst[n:], r.buf[:r.head])
	return dst
}

// Recursive lazily yields h predictions. Each prediction is appended to the
// window and the oldest value falls out. The sequence can be consumed once;
// ranging over it again yields nothing.
func Recursive(p Predictor, last []float64, h int) iter.Seq[float64] {
	r := newRing(last)
	consumed := false
	return func(yield func(float64) bool) {
		if consumed || len(last) == 0 {
			return
		}
		consumed = true
		scratch := make([]float64, len(r.buf))
		for i := 0; i < h; i++ {
			v := p.Predict(r.window(scratch))
			r.push(v)
			if !yield(v) {
				return
			}
		}
	}
}
