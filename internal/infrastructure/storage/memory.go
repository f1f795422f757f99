package storage

import (
	"context"
	"errors"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"

	orderapp "github.com/restohub/backend/internal/application/order"
	"github.com/restohub/backend/internal/domain/integration"
)

var _ orderapp.DocumentArchive = (*MemoryArchive)(nil)

// MemoryArchive keeps documents in process memory. It backs development and
// tests when no object storage is configured; archived sheets do not survive
// a restart, and the order service re-renders on demand when a key misses.
type MemoryArchive struct {
	mu   sync.RWMutex
	docs map[string]*integration.Document
}

// NewMemoryArchive creates an empty in-memory archive
func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{
		docs: make(map[string]*integration.Document),
	}
}

// Archive stores a copy of the document under the tenant-scoped key
func (m *MemoryArchive) Archive(ctx context.Context, tenantID uuid.UUID, orderID string, doc *integration.Document) (string, error) {
	if orderID == "" {
		return "", errors.New("order id is required")
	}
	if doc == nil || len(doc.Content) == 0 {
		return "", errors.New("document has no content")
	}

	key := path.Join("orders", tenantID.String(), orderID+".pdf")

	content := make([]byte, len(doc.Content))
	copy(content, doc.Content)

	m.mu.Lock()
	m.docs[key] = &integration.Document{
		Filename:    doc.Filename,
		ContentType: doc.ContentType,
		Content:     content,
	}
	m.mu.Unlock()

	return key, nil
}

// Fetch retrieves a stored document
func (m *MemoryArchive) Fetch(ctx context.Context, storageKey string) (*integration.Document, error) {
	if storageKey == "" {
		return nil, errors.New("storage key is required")
	}

	m.mu.RLock()
	doc, ok := m.docs[storageKey]
	m.mu.RUnlock()

	if !ok {
		return nil, errors.New("document not found: " + storageKey)
	}
	return doc, nil
}

// DownloadURL is not supported for in-memory archives; callers fall back to
// streaming the document through the API instead.
func (m *MemoryArchive) DownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	return "", time.Time{}, errors.New("presigned URLs require object storage")
}

// Len returns the number of archived documents
func (m *MemoryArchive) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}
