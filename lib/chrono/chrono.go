package chrono

import "time"

// API is the interface anything depending on the system clock should use,
// so that calendar arithmetic and timestamps stay deterministic under test.
type API interface {
	Now() time.Time
	Location() *time.Location
}

// StandardImpl reads the real clock in the process-local timezone.
type StandardImpl struct{}

func NewStandardImpl() StandardImpl {
	return StandardImpl{}
}

func (s StandardImpl) Now() time.Time {
	return time.Now().In(time.Local)
}

func (s StandardImpl) Location() *time.Location {
	return time.Local
}

// FixedImpl always reports the same instant.
type FixedImpl struct {
	Time time.Time
}

func NewFixedImpl(t time.Time) FixedImpl {
	return FixedImpl{Time: t}
}

func (f FixedImpl) Now() time.Time {
	return f.Time
}

func (f FixedImpl) Location() *time.Location {
	return f.Time.Location()
}
