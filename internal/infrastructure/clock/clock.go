// Package clock provides the injectable time source.
package clock

import (
	"time"

	"github.com/kaiwen/taskline/internal/application/port"
)

// SystemClock reads the wall clock.
type SystemClock struct{}

// NewSystemClock creates the production clock
func NewSystemClock() *SystemClock {
	return &SystemClock{}
}

// Now returns the current time
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Location resolves an IANA timezone name
func (SystemClock) Location(name string) (*time.Location, error) {
	return time.LoadLocation(name)
}

// Verify interface compliance
var _ port.Clock = (*SystemClock)(nil)
