package auth

import (
	"context"
	"fmt"

	"github.com/TCH93/Indico-Dev/internal/models"
)

// Manager holds the configured registries and resolves which backend serves
// a request. Sign-in walks the backends in configuration order, so the first
// backend claiming a login wins.
type Manager struct {
	order      []string
	registries map[string]*Registry
}

// NewManager registers the given registries. Backend ids must be unique.
func NewManager(list ...*Registry) *Manager {
	m := &Manager{registries: make(map[string]*Registry, len(list))}
	for _, r := range list {
		if _, ok := m.registries[r.ID()]; ok {
			continue
		}
		m.order = append(m.order, r.ID())
		m.registries[r.ID()] = r
	}
	return m
}

// Get returns the registry for a backend id or an error if not registered.
func (m *Manager) Get(id string) (*Registry, error) {
	r, ok := m.registries[id]
	if !ok {
		return nil, fmt.Errorf("unknown authentication backend: %s", id)
	}
	return r, nil
}

// IDs returns the backend ids in configuration order.
func (m *Manager) IDs() []string {
	ids := make([]string, len(m.order))
	copy(ids, m.order)
	return ids
}

// SignIn tries each backend in order until one accepts the credential.
// (nil, "", nil) means every backend rejected it.
func (m *Manager) SignIn(ctx context.Context, loginID, secret string) (*models.User, string, error) {
	for _, id := range m.order {
		user, err := m.registries[id].GetAvatar(ctx, loginID, secret)
		if err != nil {
			return nil, "", err
		}
		if user != nil {
			return user, id, nil
		}
	}
	return nil, "", nil
}
