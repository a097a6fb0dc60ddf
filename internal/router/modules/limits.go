package modules

import "time"

// Limit is a request budget per key and window. A zero Max disables the limiter.
type Limit struct {
	Max    int
	Window time.Duration
}
