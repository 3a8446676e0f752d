package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// MemoryUploader keeps uploaded objects in memory.
type MemoryUploader struct {
	mu            sync.Mutex
	publicBaseURL string
	objects       map[string][]byte
}

func NewMemoryUploader(publicBaseURL string) *MemoryUploader {
	return &MemoryUploader{publicBaseURL: publicBaseURL, objects: make(map[string][]byte)}
}

func (u *MemoryUploader) Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, fmt.Errorf("failed to read upload body: %w", err)
	}
	u.mu.Lock()
	u.objects[key] = buf.Bytes()
	u.mu.Unlock()
	return &UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *MemoryUploader) Delete(ctx context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.objects, key)
	return nil
}

func (u *MemoryUploader) GetPublicURL(key string) string {
	return publicURL(u.publicBaseURL, key)
}

// Object returns the stored bytes of key.
func (u *MemoryUploader) Object(key string) ([]byte, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	b, ok := u.objects[key]
	return b, ok
}
