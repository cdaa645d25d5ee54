// Package runner drives a pipeline stage over a record set with periodic
// checkpoints so an interrupted run resumes where it left off.
package runner

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/company-enrich/internal/model"
)

// DefaultInterval is the checkpoint cadence when Options.Interval is unset.
const DefaultInterval = 5

// Step is one pipeline stage applied record by record.
type Step[T any] interface {
	Name() string
	// Done reports whether rec needs no processing. Done records are
	// skipped, which is what makes a rerun resume instead of restart.
	Done(rec *T) bool
	// Process updates rec in place. A returned error stops the run;
	// per-record failures belong in the Outcome.
	Process(ctx context.Context, rec *T) (model.Outcome, error)
}

// Sink persists a full snapshot of the record set, replacing any previous one.
type Sink[T any] interface {
	Save(ctx context.Context, records []T) error
}

// Stats counts what a run did.
type Stats struct {
	RunID     string
	Stage     string
	Total     int
	Skipped   int
	Processed int
	Found     int
	Absent    int
	Failed    int
}

// Options configures Run.
type Options struct {
	// Interval is the number of processed records between checkpoints.
	Interval   int
	OnProgress func(Stats)
}

// Run applies step to every record that is not yet done, in order, saving
// the whole set to sink every Interval processed records. The set is saved
// once more on every exit path, including step errors, cancellation and
// panics, so completed records are never lost.
func Run[T any](ctx context.Context, records []T, step Step[T], sink Sink[T], opts Options) (stats Stats, err error) {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	stats = Stats{RunID: uuid.NewString(), Stage: step.Name(), Total: len(records)}
	log := zap.L().With(
		zap.String("stage", stats.Stage),
		zap.String("run_id", stats.RunID),
	)
	log.Info("stage started", zap.Int("records", stats.Total), zap.Int("checkpoint_interval", interval))

	defer func() {
		if saveErr := sink.Save(context.WithoutCancel(ctx), records); saveErr != nil {
			saveErr = eris.Wrapf(saveErr, "runner: %s final save", stats.Stage)
			if err == nil {
				err = saveErr
			} else {
				log.Error("final save failed", zap.Error(saveErr))
			}
			return
		}
		log.Info("stage finished",
			zap.Int("found", stats.Found),
			zap.Int("processed", stats.Processed),
			zap.Int("skipped", stats.Skipped),
			zap.Int("failed", stats.Failed),
			zap.Bool("complete", err == nil),
		)
		if opts.OnProgress != nil {
			opts.OnProgress(stats)
		}
	}()

	for i := range records {
		if ctx.Err() != nil {
			return stats, eris.Wrapf(ctx.Err(), "runner: %s interrupted", stats.Stage)
		}

		rec := &records[i]
		if step.Done(rec) {
			stats.Skipped++
			continue
		}

		outcome, procErr := step.Process(ctx, rec)
		if procErr != nil {
			return stats, eris.Wrapf(procErr, "runner: %s record %d", stats.Stage, i)
		}

		stats.Processed++
		switch outcome.Status {
		case model.OutcomeFound:
			stats.Found++
		case model.OutcomeFailed:
			stats.Failed++
			log.Warn("record failed", zap.Int("index", i), zap.Error(outcome.Err))
		default:
			stats.Absent++
		}

		if stats.Processed%interval == 0 {
			if err := sink.Save(ctx, records); err != nil {
				return stats, eris.Wrapf(err, "runner: %s checkpoint", stats.Stage)
			}
			log.Info("progress saved",
				zap.Int("found", stats.Found),
				zap.Int("processed", stats.Processed),
			)
			if opts.OnProgress != nil {
				opts.OnProgress(stats)
			}
		}
	}

	return stats, nil
}
