package predictor

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"sync"

	"github.com/tbdelay/platform/pkg/observability/metrics"
	"github.com/tbdelay/platform/pkg/schema"
	"github.com/tbdelay/platform/pkg/training"
)

var ErrModelNotFound = errors.New("model artifact not found")

// Model is a loaded pipeline tagged with the artifact's modification time,
// which changes whenever the trainer rewrites the file.
type Model struct {
	Pipeline *training.Pipeline
	Version  string
}

// Predictor serves a single artifact path, rereading it only when the file
// changes on disk.
type Predictor struct {
	path    string
	cached  *training.Pipeline
	modTime int64
	mu      sync.RWMutex
}

func NewPredictor(path string) *Predictor {
	return &Predictor{path: path}
}

func (p *Predictor) Path() string {
	return p.path
}

// Available reports whether an artifact exists at the configured path.
func (p *Predictor) Available() bool {
	_, err := os.Stat(p.path)
	return err == nil
}

func (p *Predictor) Load() (Model, error) {
	info, err := os.Stat(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Model{}, fmt.Errorf("%w: %s", ErrModelNotFound, p.path)
	}
	if err != nil {
		return Model{}, err
	}
	mod := info.ModTime().UnixNano()
	version := strconv.FormatInt(mod, 10)

	p.mu.RLock()
	cached, cachedMod := p.cached, p.modTime
	p.mu.RUnlock()
	if cached != nil && cachedMod == mod {
		return Model{Pipeline: cached, Version: version}, nil
	}

	pipeline, err := training.LoadArtifact(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Model{}, fmt.Errorf("%w: %s", ErrModelNotFound, p.path)
	}
	if err != nil {
		return Model{}, err
	}
	metrics.ObserveArtifactLoad()

	p.mu.Lock()
	p.cached, p.modTime = pipeline, mod
	p.mu.Unlock()
	return Model{Pipeline: pipeline, Version: version}, nil
}

// Predict returns the long-delay probability for one observation.
func (p *Predictor) Predict(obs schema.Observation) (float64, error) {
	model, err := p.Load()
	if err != nil {
		return 0, err
	}
	return model.Pipeline.PredictProba(obs)
}
