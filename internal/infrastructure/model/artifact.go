// Package model loads the persisted tilt model: a standard scaler followed by
// a nearest-centroid clustering over the profiling feature schema.
package model

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/goccy/go-json"

	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/profiling"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/shared"
)

// ClusterCount is the number of centroids the tilt table expects.
const ClusterCount = 3

var _ profiling.Artifact = (*Artifact)(nil)

// file is the on-disk layout.
type file struct {
	Version      string      `json:"version"`
	FeatureNames []string    `json:"feature_names"`
	Scaler       scalerFile  `json:"scaler"`
	Centroids    [][]float64 `json:"centroids"`
}

type scalerFile struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Artifact is a loaded, validated tilt model.
type Artifact struct {
	version   string
	mean      []float64
	scale     []float64
	centroids [][]float64
}

// LoadArtifact reads and validates the model file. Any failure is reported
// as shared.ErrTiltModelUnavailable.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, unavailable(fmt.Errorf("read %s: %w", path, err))
	}
	return ParseArtifact(data)
}

// ParseArtifact decodes and validates a model document.
func ParseArtifact(data []byte) (*Artifact, error) {
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, unavailable(fmt.Errorf("decode: %w", err))
	}
	if err := f.validate(); err != nil {
		return nil, unavailable(err)
	}
	return &Artifact{
		version:   f.Version,
		mean:      f.Scaler.Mean,
		scale:     f.Scaler.Scale,
		centroids: f.Centroids,
	}, nil
}

func (f *file) validate() error {
	n := profiling.FeatureCount
	if len(f.FeatureNames) > 0 {
		if len(f.FeatureNames) != n {
			return fmt.Errorf("feature_names has %d entries, want %d", len(f.FeatureNames), n)
		}
		for i, name := range f.FeatureNames {
			if name != profiling.FeatureNames[i] {
				return fmt.Errorf("feature %d is %q, want %q", i, name, profiling.FeatureNames[i])
			}
		}
	}
	if len(f.Scaler.Mean) != n || len(f.Scaler.Scale) != n {
		return fmt.Errorf("scaler must have %d means and scales", n)
	}
	if err := finite("scaler.mean", f.Scaler.Mean); err != nil {
		return err
	}
	if err := finite("scaler.scale", f.Scaler.Scale); err != nil {
		return err
	}
	if len(f.Centroids) != ClusterCount {
		return fmt.Errorf("got %d centroids, want %d", len(f.Centroids), ClusterCount)
	}
	for i, c := range f.Centroids {
		if len(c) != n {
			return fmt.Errorf("centroid %d has %d dimensions, want %d", i, len(c), n)
		}
		if err := finite(fmt.Sprintf("centroid %d", i), c); err != nil {
			return err
		}
	}
	return nil
}

func finite(what string, xs []float64) error {
	for i, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("%s[%d] is not finite", what, i)
		}
	}
	return nil
}

// Version returns the artifact's declared version, if any.
func (a *Artifact) Version() string { return a.version }

// Scale applies (x - mean) / scale. A zero scale leaves the centered value
// unscaled, matching how constant features are fitted.
func (a *Artifact) Scale(features []float64) ([]float64, error) {
	if len(features) != len(a.mean) {
		return nil, fmt.Errorf("got %d features, want %d", len(features), len(a.mean))
	}
	out := make([]float64, len(features))
	for i, x := range features {
		s := a.scale[i]
		if s == 0 {
			s = 1
		}
		out[i] = (x - a.mean[i]) / s
	}
	return out, nil
}

// Predict returns the index of the nearest centroid by squared euclidean
// distance. Ties go to the lowest index.
func (a *Artifact) Predict(scaled []float64) (int, error) {
	if len(scaled) != len(a.mean) {
		return 0, fmt.Errorf("got %d dimensions, want %d", len(scaled), len(a.mean))
	}
	best, bestDist := -1, math.Inf(1)
	for i, c := range a.centroids {
		var d float64
		for j, x := range scaled {
			diff := x - c[j]
			d += diff * diff
		}
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return 0, errors.New("no finite centroid distance")
	}
	return best, nil
}

func unavailable(err error) error {
	return shared.WrapError("model", "LoadArtifact", shared.ErrTiltModelUnavailable, "cannot load tilt model", err)
}
