package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/art-solutions/nanobana-gen/modules/common/apperr"
	"github.com/art-solutions/nanobana-gen/modules/common/config"
	"github.com/art-solutions/nanobana-gen/modules/common/utils"
)

// Store - durable blob persistence for generated artifacts. Append-only:
// every call writes a new object, nothing is overwritten. The public URL is
// valid as soon as Store returns.
type Store interface {
	Store(ctx context.Context, data []byte, contentType string) (string, error)
	PublicURL(ref string) string
}

var (
	_ Store = (*SupabaseStore)(nil)
	_ Store = (*MemoryStore)(nil)
)

// SupabaseStore uploads artifacts to Supabase Storage over its REST API.
type SupabaseStore struct {
	cfg        *config.Config
	httpClient *http.Client
}

// NewSupabaseStore - storage client over the configured bucket.
func NewSupabaseStore(cfg *config.Config) *SupabaseStore {
	return &SupabaseStore{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// Store - upload the artifact, then a best-effort lossy WebP preview next to
// it. Preview failures are logged and swallowed; the PNG object is the source
// of truth.
func (s *SupabaseStore) Store(ctx context.Context, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: refusing to store empty artifact", apperr.ErrStorage)
	}

	day := time.Now().UTC().Format("2006-01-02")
	ref := fmt.Sprintf("localized/%s/%s%s", day, uuid.New().String(), extensionForMIME(contentType))

	log.Printf("📤 Uploading artifact to storage: %s (%d bytes)", ref, len(data))

	if err := s.upload(ctx, ref, data, contentType); err != nil {
		return "", err
	}

	if contentType == "image/png" {
		if webpData, err := utils.ConvertPNGToWebP(data, 90.0); err != nil {
			log.Printf("⚠️  Preview conversion failed for %s: %v", ref, err)
		} else {
			previewRef := strings.TrimSuffix(ref, ".png") + ".webp"
			if err := s.upload(ctx, previewRef, webpData, "image/webp"); err != nil {
				log.Printf("⚠️  Preview upload failed for %s: %v", previewRef, err)
			}
		}
	}

	log.Printf("✅ Artifact stored: %s", ref)
	return ref, nil
}

func (s *SupabaseStore) upload(ctx context.Context, ref string, data []byte, contentType string) error {
	uploadURL := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.cfg.SupabaseURL, s.cfg.ArtifactBucket, ref)

	req, err := http.NewRequestWithContext(ctx, "POST", uploadURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: failed to create upload request: %v", apperr.ErrStorage, err)
	}

	req.Header.Set("Authorization", "Bearer "+s.cfg.SupabaseServiceKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: upload failed: %v", apperr.ErrStorage, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: upload failed with status %d: %s", apperr.ErrStorage, resp.StatusCode, string(body))
	}

	return nil
}

// PublicURL - the storage base URL wins when configured, otherwise the
// standard public object path of the bucket.
func (s *SupabaseStore) PublicURL(ref string) string {
	if s.cfg.SupabaseStorageBaseURL != "" {
		return s.cfg.SupabaseStorageBaseURL + ref
	}
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.cfg.SupabaseURL, s.cfg.ArtifactBucket, ref)
}

// MemoryStore keeps artifacts in a map. Used by tests and local runs without
// a Supabase project.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	types   map[string]string
}

// NewMemoryStore - empty in-memory artifact store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func (s *MemoryStore) Store(ctx context.Context, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: refusing to store empty artifact", apperr.ErrStorage)
	}

	ref := fmt.Sprintf("localized/%s%s", uuid.New().String(), extensionForMIME(contentType))
	stored := make([]byte, len(data))
	copy(stored, data)

	s.mu.Lock()
	s.objects[ref] = stored
	s.types[ref] = contentType
	s.mu.Unlock()

	return ref, nil
}

func (s *MemoryStore) PublicURL(ref string) string {
	return "memory://" + ref
}

// Get - test hook for inspecting a stored object.
func (s *MemoryStore) Get(ref string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[ref]
	return data, ok
}

// Len - number of stored objects.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

func extensionForMIME(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".bin"
	}
}
