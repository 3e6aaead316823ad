package schedule

import (
	"time"

	"github.com/google/uuid"
	"github.com/vendor-payouts/payout-service/internal/domain/shared"
)

// JobStatus defines scheduled job states
type JobStatus string

const (
	JobScheduled  JobStatus = "scheduled"
	JobProcessing JobStatus = "processing"
	// JobFailed holds a job out of Due rotation after retry exhaustion. It
	// stays queryable; re-registering the schedule puts it back in rotation.
	JobFailed JobStatus = "failed"
)

// Job is the in-process scheduling state for one vendor. The registry holding
// jobs is derived cache, not storage of record: vendor accounts are the source
// of truth for interval and minimum, and jobs are rebuilt from them at startup.
type Job struct {
	VendorAccountID     uuid.UUID               `json:"vendor_account_id"`
	Interval            shared.ScheduleInterval `json:"interval"`
	MinimumPayoutAmount int64                   `json:"minimum_payout_amount"`
	NextExecution       time.Time               `json:"next_execution"`
	Status              JobStatus               `json:"status"`
	RetryCount          int                     `json:"retry_count"`
	LastExecuted        *time.Time              `json:"last_executed,omitempty"`
}

// Clone returns an independent copy so callers outside the registry lock
// never share job memory with concurrent updates.
func (j *Job) Clone() *Job {
	c := *j
	if j.LastExecuted != nil {
		t := *j.LastExecuted
		c.LastExecuted = &t
	}
	return &c
}
