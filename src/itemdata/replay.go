package itemdata

import (
	"context"
	"time"

	"git.thicket.social/thicket/thicket/src/jobs"
	"git.thicket.social/thicket/thicket/src/logging"
	"git.thicket.social/thicket/thicket/src/metrics"
	"git.thicket.social/thicket/thicket/src/spool"
	"git.thicket.social/thicket/thicket/src/utils"
	"github.com/jpillora/backoff"
)

/*
ReplaySpool runs every spooled record back through the pipeline, oldest
first. A record that reaches any terminal outcome (stored, duplicate,
rejected) leaves the spool. One that spools again was just rewritten to a
fresh file by the insert, so the original is dropped as well and the sweep
stops there, since whatever broke storage is in all likelihood still broken.

Returns the number of records cleared from the spool.
*/
func (p *Pipeline) ReplaySpool(ctx context.Context) (int, error) {
	logger := logging.ExtractLogger(ctx)

	paths, err := spool.List(p.Config.Spool.Dir)
	if err != nil {
		return 0, err
	}

	cleared := 0
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return cleared, err
		}

		rec, err := spool.Read(path)
		if err != nil {
			// Unreadable files would wedge the sweep forever; drop them.
			logger.Error().Err(err).Str("spool_file", path).Msg("dropping unreadable spool file")
			if err := spool.Remove(path); err != nil {
				return cleared, err
			}
			continue
		}

		res := p.Insert(ctx, rec)
		if res.Status == StatusSpooled {
			// The record now lives in the fresh spool file the insert wrote;
			// keeping the old one would duplicate it on every sweep.
			logger.Info().Str("spool_file", path).Msg("storage still failing, pausing spool replay")
			if err := spool.Remove(path); err != nil {
				return cleared, err
			}
			return cleared, nil
		}

		if err := spool.Remove(path); err != nil {
			return cleared, err
		}
		cleared++
		metrics.SpoolReplayed.Inc()
	}
	return cleared, nil
}

/*
RunSpoolReplay starts the background job that periodically sweeps the spool.
Sweeps back off while storage stays broken and return to the configured
interval after a clean pass.
*/
func RunSpoolReplay(p *Pipeline) *jobs.Job {
	job := jobs.New("spool replay")

	b := &backoff.Backoff{
		Min:    p.Config.Spool.RetryInterval,
		Max:    time.Hour,
		Factor: 2,
		Jitter: true,
	}

	go func() {
		defer job.Finish()
		for {
			cleared, err := p.ReplaySpool(job.Ctx)
			if err != nil && job.Ctx.Err() != nil {
				return
			}

			wait := b.Duration()
			if err == nil {
				remaining, listErr := spool.List(p.Config.Spool.Dir)
				if listErr == nil && len(remaining) == 0 {
					b.Reset()
					wait = p.Config.Spool.RetryInterval
				}
			} else {
				job.Logger.Error().Err(err).Msg("spool sweep failed")
			}
			if cleared > 0 {
				job.Logger.Info().Int("cleared", cleared).Msg("replayed spooled items")
			}

			if utils.SleepContext(job.Ctx, wait) != nil {
				return
			}
		}
	}()
	return job
}
