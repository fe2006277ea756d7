package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/bbtalk/internal/track"
)

// TrackerSweepJob purges expired delivery-tracking entries so the
// process-wide maps stay bounded. Forgetting in-flight state is safe: the
// underlying operations are idempotent or re-derivable from storage.
type TrackerSweepJob struct {
	idem       *track.IdempotencyTracker
	completion *track.CompletionTracker
}

func NewTrackerSweepJob(idem *track.IdempotencyTracker, completion *track.CompletionTracker) *TrackerSweepJob {
	return &TrackerSweepJob{idem: idem, completion: completion}
}

func (j *TrackerSweepJob) Name() string {
	return "tracker_sweep"
}

func (j *TrackerSweepJob) Run(ctx context.Context) error {
	removedIdem := j.idem.Sweep()
	removedDone := j.completion.Sweep()
	if removedIdem > 0 || removedDone > 0 {
		logutil.GetLogger(ctx).Info("tracker entries swept",
			zap.Int("idempotency", removedIdem), zap.Int("completion", removedDone))
	}
	return nil
}
