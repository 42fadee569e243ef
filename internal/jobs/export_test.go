package jobs

import "time"

// SetClock replaces the time source the sweep measures staleness and due retries against.
func (j *RecoverySweepJob) SetClock(now func() time.Time) {
	j.now = now
}
