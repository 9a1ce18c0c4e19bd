package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SessionResultKey returns the cache key for a session's computed score result.
func (r *CacheKeyStruct) SessionResultKey(sessionID string) string {
	return fmt.Sprintf("session:%s:result", sessionID)
}

// SweepLockKey returns the advisory lock key for the reconciliation sweep,
// so only one instance runs the sweep at a time.
func (r *CacheKeyStruct) SweepLockKey() string {
	return "sweep:expired_sessions:lock"
}

var CacheKey = NewCacheKeyStruct()
