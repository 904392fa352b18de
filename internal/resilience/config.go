package resilience

import "time"

// FromSettings builds a RetryConfig from configured values, keeping the
// defaults for anything non-positive.
func FromSettings(maxAttempts int, baseDelay, maxBackoff time.Duration) RetryConfig {
	cfg := DefaultRetryConfig()
	if maxAttempts > 0 {
		cfg.MaxAttempts = maxAttempts
	}
	if baseDelay > 0 {
		cfg.BaseDelay = baseDelay
	}
	if maxBackoff > 0 {
		cfg.MaxBackoff = maxBackoff
	}
	return cfg
}
