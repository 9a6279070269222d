package accounts

import "time"

// Clock abstracts wall-clock reads so validity windows are
// deterministically testable.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the real wall clock.
func SystemClock() Clock { return systemClock{} }

// IsWithinThresholdPeriodAt checks if the given time is within the
// threshold, measured from the supplied instant.
func IsWithinThresholdPeriodAt(now, t time.Time, pattern string) (bool, error) {
	duration, err := time.ParseDuration(pattern)
	if err != nil {
		return false, err
	}

	threshold := now.Add(-duration)
	if t.After(threshold) {
		return true, nil
	}

	return false, nil
}

// IsWithinThresholdPeriod checks if the given time is within the threshold
func IsWithinThresholdPeriod(t time.Time, pattern string) (bool, error) {
	return IsWithinThresholdPeriodAt(time.Now(), t, pattern)
}

// IsOutsideThresholdPeriodAt is the negation of IsWithinThresholdPeriodAt
func IsOutsideThresholdPeriodAt(now, t time.Time, pattern string) (bool, error) {
	valid, err := IsWithinThresholdPeriodAt(now, t, pattern)
	if err != nil {
		return false, err
	}

	return !valid, nil
}

// IsOutsideThresholdPeriod is the negation of IsWithinThresholdPeriod
func IsOutsideThresholdPeriod(t time.Time, pattern string) (bool, error) {
	return IsOutsideThresholdPeriodAt(time.Now(), t, pattern)
}
