package store

import "encoding/json"

// SeedDemo loads the two sample users the API ships with.
func SeedDemo(s *Store) {
	s.Seed("user1", Entities{
		"entity1": json.RawMessage(`{ "test": true }`),
	})
	s.Seed("user2", Entities{
		"entity1": json.RawMessage(`{ "test": true }`),
		"entity2": json.RawMessage(`{ "une-autre-entite": 42 }`),
	})
}
