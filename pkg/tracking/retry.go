package tracking

import "time"

// RetryConfig shapes ConnectWithRetry. The wait before retry n (counting
// from 1) is InitialDelay * Multiplier^(n-1), never more than MaxDelay.
type RetryConfig struct {
	// MaxRetries is the number of attempts after the first
	MaxRetries int

	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryConfig suits a USB controller that is still enumerating:
// four attempts over about seven seconds.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// backoff returns the wait before the given retry.
func (c RetryConfig) backoff(retry int) time.Duration {
	d := float64(c.InitialDelay)
	for i := 1; i < retry; i++ {
		d *= c.Multiplier
	}
	if c.MaxDelay > 0 && d > float64(c.MaxDelay) {
		return c.MaxDelay
	}
	return time.Duration(d)
}
