package utils

import (
	"crypto/md5"
	"fmt"
	"strings"
)

func HashString(input string) string {
	hash := md5.Sum([]byte(input))
	return fmt.Sprintf("%x", hash)
}

// CacheKey joins parts with ":" and hashes them, prefixed by namespace.
func CacheKey(namespace string, parts ...string) string {
	return namespace + ":" + HashString(strings.Join(parts, ":"))
}
