package cache

import (
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
)

// NewLRU returns a cache holding at most size entries, evicting the least
// recently used. A size of zero or less means unbounded. The cache is safe
// for concurrent use.
func NewLRU[K comparable, V any](size int) (*lru.Cache[K, V], error) {
	if size <= 0 {
		size = math.MaxInt
	}
	return lru.New[K, V](size)
}
