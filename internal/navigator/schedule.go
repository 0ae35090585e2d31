package navigator

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	rerrors "github.com/Aman-CERP/routenav/internal/errors"
)

// ScheduleRefresh runs a full Refresh on spec until the returned stop
// function is called or ctx is done. spec uses standard cron syntax or a
// descriptor such as "@every 30m". A run still in progress when the next
// tick fires is not overlapped.
func (n *Navigator) ScheduleRefresh(ctx context.Context, spec string) (stop func(), err error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err = c.AddFunc(spec, func() {
		if ctx.Err() != nil {
			return
		}
		stats, err := n.Refresh(ctx, nil)
		if err != nil {
			n.logger.Warn("scheduled_refresh_failed", slog.String("error", err.Error()))
			return
		}
		n.logger.Info("scheduled_refresh",
			slog.Int("files", stats.Files),
			slog.Int("routes", stats.Routes),
			slog.Duration("duration", stats.Duration))
	})
	if err != nil {
		return nil, rerrors.ConfigError("invalid watch.full_refresh_schedule", err).
			WithDetail("schedule", spec)
	}

	c.Start()
	n.logger.Info("refresh_scheduled", slog.String("schedule", spec))
	return func() { <-c.Stop().Done() }, nil
}
