package main

import (
	"UIForge/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/robfig/cron/v3"
)

// StartWindowSweepCron starts the periodic rate limiter maintenance job.
// The limiter purges windows lazily on access, so identifiers that stop
// sending traffic would otherwise accumulate; the sweep evicts them.
func StartWindowSweepCron(limiter *biz.SlidingWindowLimiter, logger log.Logger) (*cron.Cron, func()) {
	helper := log.NewHelper(logger)

	c := cron.New()

	_, err := c.AddFunc("@every 1m", func() {
		if evicted := limiter.SweepIdle(); evicted > 0 {
			helper.Infow("msg", "evicted idle rate limit windows", "count", evicted)
		}
	})
	if err != nil {
		helper.Errorw("msg", "failed to register window sweep cron job", "error", err)
		return c, func() {}
	}

	c.Start()
	helper.Info("rate limiter window sweep started: runs every minute")

	cleanup := func() {
		helper.Info("stopping rate limiter window sweep")
		c.Stop()
	}
	return c, cleanup
}
