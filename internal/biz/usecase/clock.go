package usecase

import "time"

// Timer is a cancellable scheduled callback
type Timer interface {
	// Stop reports whether the callback was prevented from running
	Stop() bool
}

// Clock abstracts time for the verification timeouts
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

// SystemClock returns the wall clock
func SystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
