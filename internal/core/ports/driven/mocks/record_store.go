package mocks

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/custodia-labs/userstore/internal/core/domain"
)

// MockRecordStore is an in-memory RecordStore for testing. Setting Err
// fails every operation; SetErr fails writes only, which lets tests
// exercise the consumed-but-unused id path on create.
type MockRecordStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	Err    error
	SetErr error
}

// NewMockRecordStore creates a new MockRecordStore
func NewMockRecordStore() *MockRecordStore {
	return &MockRecordStore{
		data: make(map[string][]byte),
	}
}

func (m *MockRecordStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.data[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

func (m *MockRecordStore) Set(ctx context.Context, key string, value []byte) error {
	if m.Err != nil {
		return m.Err
	}
	if m.SetErr != nil {
		return m.SetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MockRecordStore) Exists(ctx context.Context, key string) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[key]
	return ok, nil
}

func (m *MockRecordStore) Delete(ctx context.Context, key string) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	delete(m.data, key)
	return ok, nil
}

func (m *MockRecordStore) Increment(ctx context.Context, key string) (int64, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n, _ := strconv.ParseInt(string(m.data[key]), 10, 64)
	n++
	m.data[key] = []byte(strconv.FormatInt(n, 10))
	return n, nil
}

func (m *MockRecordStore) Scan(ctx context.Context, match string, fn func(key string) error) error {
	if m.Err != nil {
		return m.Err
	}
	prefix := strings.TrimSuffix(match, "*")
	m.mu.RLock()
	keys := make([]string, 0, len(m.data))
	for key := range m.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	m.mu.RUnlock()

	for _, key := range keys {
		if err := fn(key); err != nil {
			return err
		}
	}
	return nil
}
