package services

// Confidence bounds shared by every prediction the service emits.
const (
	MinConfidence = 0.5
	MaxConfidence = 0.95
)

// ConfidenceScorer derives per-step confidence from model fit quality and
// forecast distance. The linear decay schedule is deliberate: it matches the
// documented formula rather than a tuned curve.
type ConfidenceScorer struct {
	BaseConfidence float64
	Decay          float64
}

// NewConfidenceScorer creates a scorer; non-positive parameters use the
// defaults of 0.8 base confidence and 0.01 per-step decay.
func NewConfidenceScorer(baseConfidence, decay float64) *ConfidenceScorer {
	if baseConfidence <= 0 {
		baseConfidence = 0.8
	}
	if decay <= 0 {
		decay = 0.01
	}
	return &ConfidenceScorer{BaseConfidence: baseConfidence, Decay: decay}
}

// Score computes the confidence for a forecast step. The result is
// non-increasing in step for a fixed fit score, and always within
// [MinConfidence, MaxConfidence] regardless of inputs.
func (s *ConfidenceScorer) Score(step int, fitScore float64) float64 {
	scoreFactor := 0.6
	if fitScore > 0 {
		scoreFactor = fitScore
		if scoreFactor < 0.5 {
			scoreFactor = 0.5
		}
	}

	timeFactor := s.BaseConfidence - float64(step)*s.Decay
	if timeFactor < 0.5 {
		timeFactor = 0.5
	}

	confidence := scoreFactor * timeFactor
	if confidence < MinConfidence {
		return MinConfidence
	}
	if confidence > MaxConfidence {
		return MaxConfidence
	}
	return confidence
}
