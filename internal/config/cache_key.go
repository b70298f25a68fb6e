package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SavedQuestionSetKey is the store key of the last validated question set.
func (r *CacheKeyStruct) SavedQuestionSetKey() string {
	return "savedQuestions"
}

// DarkModeKey is the store key of the display preference.
func (r *CacheKeyStruct) DarkModeKey() string {
	return "darkMode"
}

// RedisKVKey namespaces a store key inside Redis
func (r *CacheKeyStruct) RedisKVKey(key string) string {
	return fmt.Sprintf("quiz:kv:%s", key)
}

// GenerateRateLimitKey returns the rate limiter bucket for generation requests
func (r *CacheKeyStruct) GenerateRateLimitKey(clientIP string) string {
	return fmt.Sprintf("generate:%s", clientIP)
}

var CacheKey = NewCacheKeyStruct()
