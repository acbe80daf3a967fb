package persona

import "github.com/zhouzirui/z-tutor/backend/internal/analysis/subject"

// Store exposes persona retrieval for handlers and the router.
type Store interface {
	List() []Persona
	FindByID(id string) (Persona, bool)
	ForCategory(category subject.Category) Persona
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Persona
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied personas.
func NewMemoryStore(items []Persona) *MemoryStore {
	return &MemoryStore{items: append([]Persona(nil), items...)}
}

// List returns the persona table in seed order.
func (s *MemoryStore) List() []Persona {
	return append([]Persona(nil), s.items...)
}

// FindByID looks up a persona by identifier.
func (s *MemoryStore) FindByID(id string) (Persona, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Persona{}, false
}

// ForCategory 返回负责该学科的教授；找不到时回退到 default 学科的教授，再找不到则返回内置的班主任。
func (s *MemoryStore) ForCategory(category subject.Category) Persona {
	if p, ok := s.findByCategory(category); ok {
		return p
	}
	if p, ok := s.findByCategory(subject.Default); ok {
		return p
	}
	return Seed()[0]
}

func (s *MemoryStore) findByCategory(category subject.Category) (Persona, bool) {
	for _, item := range s.items {
		if item.Category == category {
			return item, true
		}
	}
	return Persona{}, false
}
