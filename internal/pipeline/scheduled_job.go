package pipeline

import (
	"context"
	"fmt"

	"github.com/marketoracle/forecast/internal/contracts"
)

// ScheduledJob adapts a Coordinator into a scheduler.Job (spec §11.3):
// on each cron tick it re-runs the full pipeline for every reference
// in its configured watchlist and hands the resulting Predictions to
// whatever LogSink the Coordinator already has — the scheduler never
// sees Predictions directly, matching the same fire-and-record shape
// as cron-invoked batch jobs elsewhere in the reference.
type ScheduledJob struct {
	name       string
	schedule   string
	coord      *Coordinator
	references []contracts.EventReference
}

// NewScheduledJob builds a job named name running on the given cron
// schedule expression, re-predicting every reference in references.
func NewScheduledJob(name, schedule string, coord *Coordinator, references []contracts.EventReference) *ScheduledJob {
	return &ScheduledJob{name: name, schedule: schedule, coord: coord, references: references}
}

func (j *ScheduledJob) Name() string { return j.name }

func (j *ScheduledJob) Schedule() string { return j.schedule }

// Run predicts every configured reference in turn, returning the
// first error encountered (if any) after attempting all of them —
// matching spec §4.7's "never block on one failure" posture at the
// job level, not just within one pipeline run.
func (j *ScheduledJob) Run(ctx context.Context) error {
	var firstErr error
	for _, ref := range j.references {
		pred := j.coord.Run(ctx, ref)
		if pred.TimedOut && firstErr == nil {
			firstErr = fmt.Errorf("prediction for reference %q timed out", ref.Kind())
		}
	}
	return firstErr
}
