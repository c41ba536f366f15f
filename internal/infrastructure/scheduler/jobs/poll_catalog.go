// Package jobs contains the engine's scheduled jobs.
package jobs

import (
	"context"

	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/mission"
)

// PollCatalogJob reloads the mission catalog on a fixed interval. It is the
// fallback for mounts where file notifications never arrive.
type PollCatalogJob struct {
	reloader mission.Reloader
}

// NewPollCatalogJob creates the job.
func NewPollCatalogJob(reloader mission.Reloader) *PollCatalogJob {
	return &PollCatalogJob{reloader: reloader}
}

func (j *PollCatalogJob) Name() string { return "poll_catalog" }

func (j *PollCatalogJob) Description() string {
	return "Reloads mission and event definitions from disk"
}

func (j *PollCatalogJob) Run(ctx context.Context) error {
	return j.reloader.Reload(ctx)
}
