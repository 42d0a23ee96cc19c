package scheduling

import (
	"sync"

	"github.com/vaishnavimodi30/healthsphere-portal/internal/session"
	"github.com/vaishnavimodi30/healthsphere-portal/pkg/logging"
)

// Manager hands out at most one workflow per client instance, so the draft
// has exactly one logical owner.
type Manager struct {
	mu        sync.Mutex
	client    SlotClient
	window    DateWindow
	logger    *logging.Logger
	workflows map[string]*Workflow

	// StaleHook, when set before workflows are created, is attached to
	// each new workflow and fires on every discarded stale slot response.
	StaleHook func()
}

// NewManager creates a workflow manager.
func NewManager(client SlotClient, window DateWindow, logger *logging.Logger) *Manager {
	return &Manager{
		client:    client,
		window:    window,
		logger:    logger,
		workflows: make(map[string]*Workflow),
	}
}

// ForSession returns the client's workflow, creating it on first use.
func (m *Manager) ForSession(clientID string, sess *session.Session) *Workflow {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.workflows[clientID]; ok {
		return w
	}
	w := NewWorkflow(m.client, m.window, sess.Token, sess.SubjectID, m.logger)
	w.staleHook = m.StaleHook
	m.workflows[clientID] = w
	return w
}

// Drop discards the client's workflow, e.g. on logout.
func (m *Manager) Drop(clientID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.workflows, clientID)
}
