package ecs

// StoreStats is a snapshot of what a Store holds.
type StoreStats struct {
	TotalEntityCount   int
	ComponentCount     int
	SingletonCount     int
	ComponentBreakdown []ComponentStats
	SingletonTypes     []string
}

// ComponentStats describes the population of one component type.
type ComponentStats struct {
	Type          ComponentType
	InstanceCount int
	Bytes         uintptr
}

// CollectStats gathers entity, component and singleton counts.
func (s *Store) CollectStats() StoreStats {
	stats := StoreStats{
		TotalEntityCount:   s.Len(),
		SingletonCount:     len(s.singletons),
		ComponentBreakdown: make([]ComponentStats, 0, len(s.storages)),
		SingletonTypes:     s.SingletonTypes(),
	}

	for _, storage := range s.storages {
		ct := storage.Type()
		count := storage.Len()
		stats.ComponentCount += count
		stats.ComponentBreakdown = append(stats.ComponentBreakdown, ComponentStats{
			Type:          ct,
			InstanceCount: count,
			Bytes:         uintptr(count) * ct.Size,
		})
	}

	return stats
}
