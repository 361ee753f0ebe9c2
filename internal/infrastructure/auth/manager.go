package auth

import (
	"context"
	"crypto/subtle"
)

type ServiceToken struct {
	Name  string
	Token string
}

// Manager authenticates callers by static service token.
// With no tokens configured it is disabled and every caller is admitted.
type Manager struct {
	enabled bool

	serviceTokens []ServiceToken
}

func NewManager(serviceTokens []ServiceToken) *Manager {
	st := make([]ServiceToken, 0, len(serviceTokens))
	for _, t := range serviceTokens {
		if t.Token == "" {
			continue
		}
		st = append(st, t)
	}
	return &Manager{
		enabled:       len(st) > 0,
		serviceTokens: st,
	}
}

func (m *Manager) Enabled() bool { return m != nil && m.enabled }

func (m *Manager) AuthenticateServiceToken(_ context.Context, token string) (subject string, ok bool) {
	if !m.Enabled() {
		return "", true
	}
	if token == "" {
		return "", false
	}
	for _, t := range m.serviceTokens {
		if subtle.ConstantTimeCompare([]byte(t.Token), []byte(token)) != 1 {
			continue
		}
		if t.Name != "" {
			return t.Name, true
		}
		return "service", true
	}
	return "", false
}
