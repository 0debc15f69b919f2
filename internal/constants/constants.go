package constants

import "time"

var RedisConfig = struct {
	ReadyTimeout time.Duration
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxRetries   int
	PoolSize     int
}{
	ReadyTimeout: 5 * time.Second,
	DialTimeout:  5 * time.Second,
	ReadTimeout:  3 * time.Second,
	WriteTimeout: 3 * time.Second,
	MaxRetries:   3,
	PoolSize:     10,
}

var CircuitBreakerConfig = struct {
	FailureThreshold int
	ResetTimeout     time.Duration
}{
	FailureThreshold: 3,                // consecutive busy store failures before falling back
	ResetTimeout:     30 * time.Second, // time before probing the busy store again
}

var LifecycleConfig = struct {
	BuildTimeout    time.Duration
	ShutdownTimeout time.Duration
}{
	BuildTimeout:    30 * time.Second,
	ShutdownTimeout: 10 * time.Second,
}
