package measure

import "math"

// Cosine is the set cosine similarity |A∩B| / sqrt(|A|·|B|).
//
// From score >= alpha and |A∩B| <= min(|A|,|B|) follow the bounds
//
//	alpha²·|X| <= |Y| <= |X|/alpha²
//	|X∩Y| >= alpha·sqrt(|X|·|Y|)
type Cosine struct{}

func (Cosine) Name() string {
	return "cosine"
}

func (Cosine) MinSize(querySize int, alpha float64) int {
	if querySize <= 0 {
		return 0
	}
	return int(math.Ceil(alpha*alpha*float64(querySize) - tolerance))
}

// MaxSize returns math.MaxInt when alpha is 0, callers clamp it to the index.
func (Cosine) MaxSize(querySize int, alpha float64) int {
	if querySize <= 0 {
		return 0
	}
	if alpha <= 0 {
		return math.MaxInt
	}
	bound := float64(querySize)/(alpha*alpha) + tolerance
	if bound >= math.MaxInt {
		return math.MaxInt
	}
	return int(math.Floor(bound))
}

func (Cosine) MinOverlap(querySize, candidateSize int, alpha float64) int {
	if querySize <= 0 || candidateSize <= 0 {
		return 0
	}
	return int(math.Ceil(alpha*math.Sqrt(float64(querySize)*float64(candidateSize)) - tolerance))
}

// Score returns 0 when either set is empty.
func (Cosine) Score(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	return float64(Overlap(a, b)) / math.Sqrt(float64(len(a))*float64(len(b)))
}
