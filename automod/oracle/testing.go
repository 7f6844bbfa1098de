package oracle

import (
	"context"
	"sync"
)

// Oracle stub for tests. Returns the verdict registered for the exact content, or a not-flagged verdict.
type MockOracle struct {
	lk       sync.Mutex
	Verdicts map[string]*Verdict
	Err      error
	Calls    int
}

var _ Oracle = (*MockOracle)(nil)

func NewMockOracle() *MockOracle {
	return &MockOracle{
		Verdicts: make(map[string]*Verdict),
	}
}

func (m *MockOracle) Set(content string, v *Verdict) {
	m.lk.Lock()
	defer m.lk.Unlock()
	m.Verdicts[content] = v
}

func (m *MockOracle) Classify(ctx context.Context, authorName, content string) (*Verdict, error) {
	m.lk.Lock()
	defer m.lk.Unlock()
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	if v, ok := m.Verdicts[content]; ok {
		return v, nil
	}
	return NotFlagged(""), nil
}
