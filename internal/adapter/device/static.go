package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/city-locator/internal/domain"
	"gopkg.in/yaml.v3"
)

// ErrNoFixes is reported when a replay has nothing to deliver.
var ErrNoFixes = errors.New("replay has no fixes")

// Replay is the contents of a fix-replay file:
//
//	interval: 500ms
//	batches:
//	  - - {lat: 39.9042, lon: 116.4074, accuracy: 65}
//	    - {lat: 39.9050, lon: 116.4080, accuracy: 30}
//	  - - {lat: 31.2304, lon: 121.4737}
type Replay struct {
	// Interval is waited before each batch.
	Interval time.Duration `yaml:"interval"`
	Batches  [][]ReplayFix `yaml:"batches"`
}

// ReplayFix is one recorded position. Accuracy defaults to the desired
// accuracy of the running cycle.
type ReplayFix struct {
	Lat      float64 `yaml:"lat"`
	Lon      float64 `yaml:"lon"`
	Accuracy float64 `yaml:"accuracy"`
}

// LoadReplay reads a replay file.
func LoadReplay(path string) (Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		return Replay{}, fmt.Errorf("open replay: %w", err)
	}
	defer f.Close()
	return ParseReplay(f)
}

// ParseReplay decodes a replay document.
func ParseReplay(r io.Reader) (Replay, error) {
	var replay Replay
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&replay); err != nil && !errors.Is(err, io.EOF) {
		return Replay{}, fmt.Errorf("decode replay: %w", err)
	}
	if replay.Interval < 0 {
		return Replay{}, errors.New("decode replay: negative interval")
	}
	for i, batch := range replay.Batches {
		if len(batch) == 0 {
			return Replay{}, fmt.Errorf("decode replay: batch %d is empty", i)
		}
	}
	return replay, nil
}

// StaticProvider replays recorded fixes. Each cycle starts from the first
// batch.
type StaticProvider struct {
	*base
	replay Replay
}

// NewStaticProvider creates a replay provider. A replay without batches
// fails every cycle with ErrNoFixes.
func NewStaticProvider(replay Replay, settings Settings, logger *slog.Logger) *StaticProvider {
	p := &StaticProvider{replay: replay}
	p.base = newBase(settings, p.run, logger)
	return p
}

func (p *StaticProvider) run(ctx context.Context, emit func([]domain.PositionFix), fail func(error)) {
	if len(p.replay.Batches) == 0 {
		fail(ErrNoFixes)
		return
	}

	clock := domain.Clock()
	for _, batch := range p.replay.Batches {
		if p.replay.Interval > 0 {
			select {
			case <-ctx.Done():
				return
			case <-clock.After(p.replay.Interval):
			}
		} else if ctx.Err() != nil {
			return
		}

		now := clock.Now()
		fixes := make([]domain.PositionFix, 0, len(batch))
		for _, rf := range batch {
			accuracy := rf.Accuracy
			if accuracy <= 0 {
				accuracy = float64(p.desiredAccuracy())
			}
			fixes = append(fixes, domain.PositionFix{
				Coordinate: domain.Coordinate{Lat: rf.Lat, Lon: rf.Lon},
				Accuracy:   accuracy,
				Timestamp:  now,
				Raw:        rf,
			})
		}
		p.logger.Debug("replaying fixes", "count", len(fixes))
		emit(fixes)
	}
}
