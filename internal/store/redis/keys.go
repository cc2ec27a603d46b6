package redis

// DefaultKeyPrefix namespaces every shelf key in a shared Redis database.
const DefaultKeyPrefix = "shelf:"

// key returns the Redis key for a logical store key.
func (s *Store) key(k string) string {
	return s.prefix + k
}
