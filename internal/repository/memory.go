package repository

import (
	"context"
	"sync"
	"time"

	"github.com/predictmaint/predictmaint/internal/domain"
)

// Memory is a process-local Store used for STORE=memory and in tests.
type Memory struct {
	mu     sync.RWMutex
	rows   []domain.Prediction
	nextID int64
	now    func() time.Time
}

func NewMemory() *Memory {
	return &Memory{nextID: 1, now: time.Now}
}

func (m *Memory) InsertPrediction(_ context.Context, p *domain.Prediction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p.ID = m.nextID
	m.nextID++
	if p.Timestamp.IsZero() {
		p.Timestamp = m.now().UTC()
	}
	m.rows = append(m.rows, *p)
	return nil
}

func (m *Memory) ListPredictions(_ context.Context) ([]domain.Prediction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Prediction, len(m.rows))
	copy(out, m.rows)
	return out, nil
}

func (m *Memory) ListByMachine(_ context.Context, machineID string) ([]domain.Prediction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.Prediction
	for _, p := range m.rows {
		if p.MachineID == machineID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *Memory) Ping(context.Context) error { return nil }
