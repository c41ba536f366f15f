package profiling

import (
	"fmt"
	"strings"

	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// TILT LABEL
// ══════════════════════════════════════════════════════════════════════════════

// TiltLabel is the 3-way risk-appetite classification of a student.
type TiltLabel string

const (
	TiltCautious    TiltLabel = "cautious"
	TiltBalanced    TiltLabel = "balanced"
	TiltSpeculative TiltLabel = "speculative"
)

// clusterLabels maps model cluster ids to labels.
var clusterLabels = map[int]TiltLabel{
	0: TiltCautious,
	1: TiltBalanced,
	2: TiltSpeculative,
}

// ParseTilt accepts canonical and legacy spellings. Unknown input yields balanced
// with ok=false.
func ParseTilt(s string) (TiltLabel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cautious", "prudent":
		return TiltCautious, true
	case "balanced", "equilibré", "equilibre", "équilibré":
		return TiltBalanced, true
	case "speculative", "speculatif", "spéculatif":
		return TiltSpeculative, true
	default:
		return TiltBalanced, false
	}
}

// Rank returns the ordinal position used to pick an expected option:
// 0 for cautious, 1 for balanced, 2 for speculative.
func (t TiltLabel) Rank() int {
	switch t {
	case TiltCautious:
		return 0
	case TiltSpeculative:
		return 2
	default:
		return 1
	}
}

// IsValid reports whether the label is one of the three tilts.
func (t TiltLabel) IsValid() bool {
	return t == TiltCautious || t == TiltBalanced || t == TiltSpeculative
}

// ══════════════════════════════════════════════════════════════════════════════
// CLASSIFIER
// ══════════════════════════════════════════════════════════════════════════════

// Artifact is the persisted scaler + clustering model.
type Artifact interface {
	// Scale applies the fitted scaling transform.
	Scale(features []float64) ([]float64, error)

	// Predict returns the cluster id of a scaled vector.
	Predict(scaled []float64) (int, error)
}

// Classifier maps feature vectors to tilt labels.
type Classifier struct {
	artifact Artifact
}

// NewClassifier creates a classifier. A nil artifact is allowed; every
// prediction then fails with shared.ErrTiltModelUnavailable.
func NewClassifier(artifact Artifact) *Classifier {
	return &Classifier{artifact: artifact}
}

// Available reports whether a model artifact is loaded.
func (c *Classifier) Available() bool {
	return c != nil && c.artifact != nil
}

// Predict classifies a feature vector.
func (c *Classifier) Predict(v FeatureVector) (TiltLabel, error) {
	if !c.Available() {
		return "", shared.ErrTiltModelUnavailable
	}
	scaled, err := c.artifact.Scale(v.Slice())
	if err != nil {
		return "", unavailable("scale", err)
	}
	cluster, err := c.artifact.Predict(scaled)
	if err != nil {
		return "", unavailable("predict", err)
	}
	label, ok := clusterLabels[cluster]
	if !ok {
		return "", unavailable("predict", fmt.Errorf("unknown cluster id %d", cluster))
	}
	return label, nil
}

func unavailable(op string, err error) error {
	return shared.WrapError("profiling", op, shared.ErrModelUnavailable, "tilt model failed", err)
}

// RecomputeDue reports whether a tilt recompute is due after the given number
// of completed missions.
func RecomputeDue(completed, every int) bool {
	return every > 0 && completed > 0 && completed%every == 0
}
