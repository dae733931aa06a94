package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/sentrymon/monitor-core/internal/checks"
	"github.com/sentrymon/monitor-core/internal/domain"
)

// NewPushContract returns the push monitor type's handler. A push monitor
// is driven by an external caller hitting its ingest endpoint (outside the
// core); the check step here only evaluates whether the last push, read
// as a unix time from the monitor's `lastPushUnix` config value, lies
// within the check's effective timeout of now.
func NewPushContract() checks.HandlerContract {
	return checks.HandlerContract{
		Check: func(_ context.Context, view domain.View, hb *domain.Heartbeat, timeout time.Duration) error {
			lastPush := view.GetInt("lastPushUnix", 0)
			if lastPush == 0 {
				return fmt.Errorf("no push received yet")
			}
			since := time.Since(time.Unix(int64(lastPush), 0))
			if since > timeout {
				return fmt.Errorf("no push received in %s", since.Round(time.Second))
			}
			hb.Status = domain.StatusUp
			hb.Msg = "push received"
			return nil
		},
	}
}
