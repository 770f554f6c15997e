// Package storagetest provides an in-memory stand-in for the S3 gateway.
package storagetest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/digkill/magicpic/internal/storage"
)

type stored struct {
	body        []byte
	contentType string
	modified    time.Time
}

// Memory keeps objects in a map. PutErr, when set, fails every Put whose key
// starts with PutErrPrefix.
type Memory struct {
	mu      sync.Mutex
	objects map[string]stored

	PutErr       error
	PutErrPrefix string
	Denied       map[string]bool
	Now          func() time.Time
}

func NewMemory() *Memory {
	return &Memory{objects: map[string]stored{}, Denied: map[string]bool{}, Now: time.Now}
}

func (m *Memory) Put(_ context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PutErr != nil && strings.HasPrefix(key, m.PutErrPrefix) {
		return m.PutErr
	}
	m.objects[key] = stored{body: append([]byte(nil), data...), contentType: contentType, modified: m.Now()}
	return nil
}

// PutAt stores an object with an explicit modification time.
func (m *Memory) PutAt(key string, data []byte, contentType string, modified time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = stored{body: data, contentType: contentType, modified: modified}
}

func (m *Memory) Get(_ context.Context, key string) (*storage.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Denied[key] {
		return nil, fmt.Errorf("get %s: %w", key, storage.ErrAccessDenied)
	}
	obj, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", key, storage.ErrNotFound)
	}
	return &storage.Object{Body: obj.body, ContentType: obj.contentType}, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *Memory) List(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []storage.ObjectInfo
	for key, obj := range m.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, storage.ObjectInfo{Key: key, LastModified: obj.modified, Size: int64(len(obj.body))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// PresignGet returns a fake URL so callers can tell keys from resolved links.
func (m *Memory) PresignGet(_ context.Context, ref string) (string, error) {
	if ref == "" {
		return "", nil
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref, nil
	}
	return "https://signed.test/" + ref, nil
}

// Keys lists stored keys under prefix, sorted.
func (m *Memory) Keys(prefix string) []string {
	infos, _ := m.List(context.Background(), prefix)
	keys := make([]string, 0, len(infos))
	for _, info := range infos {
		keys = append(keys, info.Key)
	}
	return keys
}
