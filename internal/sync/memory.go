package sync

import (
	"context"
	"sort"
	gosync "sync"

	"github.com/mlevitan/clinisync/internal/common"
	"github.com/mlevitan/clinisync/internal/models"
)

// MemoryRemote is an in-process RemoteStore used in tests and for simulating
// peer devices syncing through a shared point. It can be switched into an
// unavailable state to exercise degraded operation.
type MemoryRemote struct {
	mu          gosync.Mutex
	sessions    map[string]map[string]*models.RemoteSession // userID -> sessionID -> record
	version     map[string]int64                            // userID -> last assigned version
	unavailable bool
}

func NewMemoryRemote() *MemoryRemote {
	return &MemoryRemote{
		sessions: make(map[string]map[string]*models.RemoteSession),
		version:  make(map[string]int64),
	}
}

// SetUnavailable toggles simulated outage: every call fails with
// common.ErrRemoteUnavailable while set.
func (m *MemoryRemote) SetUnavailable(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unavailable = v
}

func (m *MemoryRemote) Upload(ctx context.Context, userID string, rec *models.EncryptedSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unavailable {
		return common.ErrRemoteUnavailable
	}

	if m.sessions[userID] == nil {
		m.sessions[userID] = make(map[string]*models.RemoteSession)
	}

	m.version[userID]++
	cp := *rec
	m.sessions[userID][rec.SessionID] = &models.RemoteSession{
		EncryptedSession: cp,
		Version:          m.version[userID],
	}
	return nil
}

func (m *MemoryRemote) ListSince(ctx context.Context, userID string, cursor int64) ([]models.RemoteSession, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unavailable {
		return nil, 0, common.ErrRemoteUnavailable
	}

	next := cursor
	var out []models.RemoteSession
	for _, rec := range m.sessions[userID] {
		if rec.Version > cursor {
			out = append(out, *rec)
			if rec.Version > next {
				next = rec.Version
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, next, nil
}
