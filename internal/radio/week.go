package radio

import "time"

// WeekStart returns the most recent Sunday at or before the provided instant,
// truncated to midnight UTC. Playlist entries aggregate per such week.
func WeekStart(at time.Time) time.Time {
	utc := at.UTC()
	day := time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -int(day.Weekday()))
}

// resolveWeekStart honors a stored submission week when present so that
// backdated submissions settle into the week they were originally queued.
func resolveWeekStart(weekSubmitted *time.Time, now time.Time) time.Time {
	if weekSubmitted != nil {
		return WeekStart(*weekSubmitted)
	}
	return WeekStart(now)
}
