package analysis

import "github.com/cockroachdb/apd/v3"

// Group sums accumulate in decimal so totals do not drift with summation
// order; float64 addition is not associative and partition order is not
// guaranteed when inputs are re-chunked upstream.

var decCtx = apd.BaseContext.WithPrecision(34)

type decSum struct {
	total apd.Decimal
}

func (s *decSum) add(f float64) {
	var x apd.Decimal
	if _, err := x.SetFloat64(f); err != nil {
		return // NaN/Inf never reach here; normalized metrics are finite
	}
	_, _ = decCtx.Add(&s.total, &s.total, &x)
}

func (s *decSum) float64() float64 {
	f, _ := s.total.Float64()
	return f
}
