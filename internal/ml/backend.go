package ml

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoData is returned when the dataset is absent or has no usable rows.
	ErrNoData = errors.New("no data available")

	// ErrBackendUnavailable is returned when no model backend is configured.
	ErrBackendUnavailable = errors.New("model backend unavailable")

	// ErrTrainingInProgress is returned when a training run is already active.
	ErrTrainingInProgress = errors.New("training already in progress")
)

const (
	BackendForest = "forest"
	BackendNone   = "none"
)

// Backend describes the available model implementation and its parameters.
// A nil *Backend means no backend is available.
type Backend struct {
	Name     string
	Trees    int
	MaxDepth int
	MinLeaf  int
	Seed     int64
}

// Probe resolves the configured backend once at startup. "none" yields a nil
// backend and no error; an unknown name is a configuration error.
func Probe(name string, trees, maxDepth int) (*Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", BackendForest:
		if trees <= 0 {
			trees = 50
		}
		if maxDepth <= 0 {
			maxDepth = 12
		}
		return &Backend{
			Name:     BackendForest,
			Trees:    trees,
			MaxDepth: maxDepth,
			MinLeaf:  1,
			Seed:     defaultSeed,
		}, nil
	case BackendNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown ML_BACKEND %q", name)
	}
}

func (b *Backend) forestParams() ForestParams {
	return ForestParams{
		Trees:    b.Trees,
		MaxDepth: b.MaxDepth,
		MinLeaf:  b.MinLeaf,
		Seed:     b.Seed,
	}
}
