package schedule

import (
	"time"

	"github.com/vendor-payouts/payout-service/internal/domain/shared"
)

// Payouts run at 02:00 local time, off the business peak.
const executionHour = 2

// ComputeNextExecution returns the next run time for an interval.
//
// Contracts, pinned here because callers and tests depend on them:
//   - daily: the next calendar day at 02:00, regardless of the current time.
//   - weekly: the upcoming Monday at 02:00. A Monday before 02:00 resolves to
//     the same day at 02:00; Monday 02:00 or later rolls to the next week.
//   - biweekly: a fixed 14-day cadence anchored on the last executed date.
//     Without a prior execution it behaves like weekly for the first run.
//   - monthly: the 1st of the next month at 02:00.
func ComputeNextExecution(interval shared.ScheduleInterval, lastExecuted *time.Time, now time.Time) time.Time {
	switch interval {
	case shared.IntervalWeekly:
		return nextMonday(now)
	case shared.IntervalBiweekly:
		if lastExecuted == nil {
			return nextMonday(now)
		}
		anchor := atExecutionHour(*lastExecuted).AddDate(0, 0, 14)
		for !anchor.After(now) {
			anchor = anchor.AddDate(0, 0, 14)
		}
		return anchor
	case shared.IntervalMonthly:
		return time.Date(now.Year(), now.Month()+1, 1, executionHour, 0, 0, 0, now.Location())
	default:
		// daily, and the fallback for anything unrecognized
		return atExecutionHour(now).AddDate(0, 0, 1)
	}
}

// RetryBackoff computes the delay before retry attempt retryCount using
// exponential backoff: base * 2^(retryCount-1).
func RetryBackoff(base time.Duration, retryCount int) time.Duration {
	if retryCount < 1 {
		retryCount = 1
	}
	return base << uint(retryCount-1)
}

func nextMonday(now time.Time) time.Time {
	daysAhead := (int(time.Monday) - int(now.Weekday()) + 7) % 7
	candidate := atExecutionHour(now).AddDate(0, 0, daysAhead)
	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate
}

func atExecutionHour(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), executionHour, 0, 0, 0, t.Location())
}
