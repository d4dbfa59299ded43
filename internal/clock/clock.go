// Package clock abstracts time for services that compute billing periods
// and subscription windows, so tests can pin "now".
package clock

import "time"

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// New returns the wall clock (UTC).
func New() Clock {
	return systemClock{}
}
