// Package usecases holds the periodic reconciliation sweeps. Each job is idempotent,
// tolerates being triggered late and reports how many rows it changed.
package usecases

import (
	"time"

	"github.com/google/uuid"

	"github.com/channelgate/channelgate/internal/shared/biztime"
	"github.com/channelgate/channelgate/internal/shared/logger"
)

// Job names double as metric labels and scheduler tags.
const (
	JobRegistrationNudge  = "registration_nudge"
	JobPreExpiryReminder  = "pre_expiry_reminder"
	JobLastDayReminder    = "last_day_reminder"
	JobPostExpiryReminder = "post_expiry_reminder"
	JobExpirySweep        = "expiry_sweep"
	JobMembershipAudit    = "membership_audit"
)

// DefaultBatchSize caps the rows a single run picks up. Rows left over are taken by the
// next run.
const DefaultBatchSize = 500

const (
	DefaultNudgeAfter      = 3 * time.Hour
	DefaultPreExpiryWindow = 24 * time.Hour
	DefaultAuditBuffer     = 2 * time.Hour
)

// base carries what every job shares.
type base struct {
	logger    logger.Interface
	batchSize int
	now       func() time.Time
}

func newBase(name string, log logger.Interface) base {
	return base{
		logger:    log.Named(name),
		batchSize: DefaultBatchSize,
		now:       biztime.NowUTC,
	}
}

// SetClock overrides the time source.
func (b *base) SetClock(now func() time.Time) {
	b.now = now
}

// SetBatchSize overrides DefaultBatchSize. Values below one are ignored.
func (b *base) SetBatchSize(n int) {
	if n > 0 {
		b.batchSize = n
	}
}

// runLogger tags every line of one run with the same id.
func (b *base) runLogger() logger.Interface {
	return b.logger.With("run_id", uuid.NewString())
}
