package config

import "fmt"

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SessionSlotKey returns the single named slot holding one candidate's
// serialized session state for one exam. The candidate key is the
// normalized candidate name; one device, one slot.
func (r *CacheKeyStruct) SessionSlotKey(examID, candidateKey string) string {
	return fmt.Sprintf("session:%s:%s:state", examID, candidateKey)
}

var CacheKey = NewCacheKeyStruct()
