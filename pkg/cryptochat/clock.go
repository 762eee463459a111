package cryptochat

import "time"

const dateLayout = "2006-01-02"

// Clock returns the current time. Snapshot dates use its location.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now()
}

// dateKey formats t as a local calendar day.
func dateKey(t time.Time) string {
	return t.Format(dateLayout)
}
