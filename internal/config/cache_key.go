package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SessionAnswersKey returns the cache key for a session's autosaved answers.
func (r *CacheKeyStruct) SessionAnswersKey(token string) string {
	return fmt.Sprintf("session:%s:answers", token)
}

// SessionTabViolationsKey returns the cache key for a session's cumulative
// tab/pointer violation counter. Kept in Redis so the count survives reloads.
func (r *CacheKeyStruct) SessionTabViolationsKey(token string) string {
	return fmt.Sprintf("session:%s:tab_violations", token)
}

// SessionPresenceKey returns the cache key for a session's last presence ping.
func (r *CacheKeyStruct) SessionPresenceKey(token string) string {
	return fmt.Sprintf("session:%s:presence", token)
}

// SessionAckKey returns the cache key marking that a session acknowledged the
// proctoring rules.
func (r *CacheKeyStruct) SessionAckKey(token string) string {
	return fmt.Sprintf("session:%s:proctoring_ack", token)
}

// PeriodPayloadKey returns the cache key for an exam period's client-safe
// test payload (correct answers stripped).
func (r *CacheKeyStruct) PeriodPayloadKey(periodID string) string {
	return fmt.Sprintf("period:%s:payload", periodID)
}

// PeriodAnswerKeyKey returns the cache key for an exam period's answer key.
func (r *CacheKeyStruct) PeriodAnswerKeyKey(periodID string) string {
	return fmt.Sprintf("period:%s:answer_key", periodID)
}

// PeriodMonitorChannel returns the Redis PubSub channel name for a period's
// live proctoring monitor.
func (r *CacheKeyStruct) PeriodMonitorChannel(periodID string) string {
	return fmt.Sprintf("period:%s:monitor", periodID)
}

var CacheKey = NewCacheKeyStruct()
