package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"ayyooya/internal/domain/media"
)

// ObjectStore keeps uploaded objects in memory.
type ObjectStore struct {
	mu      sync.RWMutex
	objects map[string]object
	base    string
}

type object struct {
	contentType string
	data        []byte
}

func NewObjectStore(publicBase string) *ObjectStore {
	if publicBase == "" {
		publicBase = "memory://objects"
	}
	return &ObjectStore{objects: map[string]object{}, base: strings.TrimRight(publicBase, "/")}
}

func (s *ObjectStore) Put(_ context.Context, bucket, objectPath, contentType string, body io.Reader) error {
	if strings.TrimSpace(bucket) == "" {
		return media.ErrEmptyBucket
	}
	if strings.TrimSpace(objectPath) == "" {
		return media.ErrEmptyPath
	}
	if body == nil {
		return media.ErrEmptyBody
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return media.ErrEmptyBody
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := bucket + "/" + objectPath
	if _, ok := s.objects[k]; ok {
		return fmt.Errorf("memory: object %s already exists", k)
	}
	s.objects[k] = object{contentType: contentType, data: data}
	return nil
}

func (s *ObjectStore) Delete(_ context.Context, bucket, objectPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, bucket+"/"+objectPath)
	return nil
}

func (s *ObjectStore) PublicURL(bucket, objectPath string) string {
	if strings.TrimSpace(bucket) == "" || strings.TrimSpace(objectPath) == "" {
		return ""
	}
	return s.base + "/" + bucket + "/" + objectPath
}

// Open returns a stored object's bytes.
func (s *ObjectStore) Open(bucket, objectPath string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[bucket+"/"+objectPath]
	if !ok {
		return nil, "", false
	}
	return bytes.Clone(o.data), o.contentType, true
}
