// Package storagetest provides an in-memory ObjectStore for tests.
package storagetest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/snapwall/snapwall-backend/pkg/storage"
)

// MemoryStore keeps objects in a map. FailPut and FailKeys inject write failures.
type MemoryStore struct {
	mu       sync.Mutex
	objects  map[string]memoryObject
	FailPut  error
	FailKeys map[string]error
	Deleted  []string
}

type memoryObject struct {
	data        []byte
	contentType string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: map[string]memoryObject{}, FailKeys: map[string]error{}}
}

func (m *MemoryStore) Put(ctx context.Context, localPath, key, contentType string) error {
	defer os.Remove(localPath)

	m.mu.Lock()
	failAll := m.FailPut
	failKey := m.FailKeys[key]
	m.mu.Unlock()
	if failAll != nil {
		return failAll
	}
	if failKey != nil {
		return failKey
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memoryObject{data: data, contentType: contentType}
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, key string) (*storage.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return &storage.Object{
		Body:        io.NopCloser(bytes.NewReader(obj.data)),
		ContentType: obj.contentType,
		Size:        int64(len(obj.data)),
		ETag:        `"` + key + `"`,
	}, nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return errors.New("key required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	m.Deleted = append(m.Deleted, key)
	return nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

// Has reports whether key is stored.
func (m *MemoryStore) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

// Keys returns the stored keys in sorted order.
func (m *MemoryStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var _ storage.ObjectStore = (*MemoryStore)(nil)
