package seed

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/goccy/go-json"

	"github.com/MrSnakeDoc/pulse/internal/domain"
	"github.com/MrSnakeDoc/pulse/internal/logger"
	"github.com/MrSnakeDoc/pulse/internal/pulse"
)

// Submitter ingests a pulse at a given time.
type Submitter interface {
	SubmitAt(ctx context.Context, in pulse.Submission, at time.Time) (domain.Pulse, error)
}

type Options struct {
	Min      int     // pulses per item, lower bound
	Max      int     // pulses per item, upper bound
	Days     int     // pulses are spread over the last Days days
	Variance float64 // max offset in degrees around a location
	Seed     uint64
	Now      func() time.Time
}

func DefaultOptions() Options {
	return Options{Min: 2, Max: 8, Days: 30, Variance: 0.045}
}

func (o Options) validate() error {
	switch {
	case o.Min < 1:
		return fmt.Errorf("min must be >= 1, got %d", o.Min)
	case o.Max < o.Min:
		return fmt.Errorf("max (%d) must be >= min (%d)", o.Max, o.Min)
	case o.Days < 1:
		return fmt.Errorf("days must be >= 1, got %d", o.Days)
	case o.Variance < 0:
		return fmt.Errorf("variance must be >= 0, got %v", o.Variance)
	}
	return nil
}

// Result summarizes a seeding run.
type Result struct {
	Items  int
	Pulses int
}

// Seeder submits randomized pulses for every item of a seed file.
type Seeder struct {
	target Submitter
	opts   Options
	rng    *rand.Rand
	log    logger.Logger
}

func NewSeeder(target Submitter, opts Options, log logger.Logger) (*Seeder, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Seeder{
		target: target,
		opts:   opts,
		rng:    rand.New(rand.NewPCG(seed, seed>>1|1)),
		log:    log,
	}, nil
}

// Run seeds every item of f. It stops at the first failed submission.
func (s *Seeder) Run(ctx context.Context, f File) (Result, error) {
	var res Result
	now := s.opts.Now()

	for _, item := range f.Content {
		base, err := submission(item)
		if err != nil {
			return res, err
		}

		n := s.opts.Min + s.rng.IntN(s.opts.Max-s.opts.Min+1)
		for range n {
			if err := ctx.Err(); err != nil {
				return res, err
			}

			in := base
			loc := f.Locations[s.rng.IntN(len(f.Locations))]
			lat := loc.Lat + s.jitter()
			lng := loc.Lng + s.jitter()
			in.Latitude = &lat
			in.Longitude = &lng
			in.ReactionType = string(domain.Reactions[s.rng.IntN(len(domain.Reactions))])

			at := now.Add(-time.Duration(s.rng.Int64N(int64(s.opts.Days)*86400)) * time.Second)
			if _, err := s.target.SubmitAt(ctx, in, at); err != nil {
				return res, fmt.Errorf("seed %q near %s: %w", item.Title, loc.Name, err)
			}
			res.Pulses++
		}

		res.Items++
		s.log.Info("seeded item",
			logger.String("title", item.Title),
			logger.String("type", item.Type),
			logger.Int("pulses", n),
		)
	}
	return res, nil
}

func (s *Seeder) jitter() float64 {
	return (s.rng.Float64()*2 - 1) * s.opts.Variance
}

// submission builds the object part of a pulse. Movies are addressed by
// their catalog id so that repeated runs reuse the same objects.
func submission(item Item) (pulse.Submission, error) {
	in := pulse.Submission{
		ObjectType: item.Type,
		Title:      item.Title,
	}
	if typ, _ := domain.ParseObjectType(item.Type); typ == domain.ObjectMovie {
		in.ObjectID = item.ID
	} else {
		in.ExternalID = item.ID
	}

	if len(item.Metadata) > 0 {
		raw, err := json.Marshal(item.Metadata)
		if err != nil {
			return pulse.Submission{}, fmt.Errorf("encode metadata for %q: %w", item.Title, err)
		}
		in.Metadata = raw
	}
	return in, nil
}
