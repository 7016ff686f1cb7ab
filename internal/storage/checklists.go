package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/valter-silva-au/sitecheck/pkg/models"
	"gopkg.in/yaml.v3"
)

// ChecklistFilter specifies criteria for listing checklists.
// All specified fields use AND logic.
type ChecklistFilter struct {
	TaskID     string
	TemplateID string
}

// ChecklistFile represents the top-level structure of checklists.yaml.
type ChecklistFile struct {
	Version    string                      `yaml:"version"`
	Checklists map[string]models.Checklist `yaml:"checklists"`
}

// ChecklistStore defines the interface for persisting checklists.
type ChecklistStore interface {
	AddChecklist(cl models.Checklist) error
	UpdateChecklist(cl models.Checklist) error
	RemoveChecklist(id string) error
	GetChecklist(id string) (*models.Checklist, error)
	ListChecklists(filter ChecklistFilter) ([]models.Checklist, error)
	Load() error
	Save() error
	// WithLock runs fn while holding an exclusive lock on the checklist
	// file, so a Load-modify-Save sequence is not interleaved with other
	// processes.
	WithLock(fn func() error) error
}

type fileChecklistStore struct {
	basePath string
	mu       sync.Mutex
	data     ChecklistFile
}

// NewChecklistStore creates a ChecklistStore backed by a checklists.yaml file
// in the given base directory.
func NewChecklistStore(basePath string) ChecklistStore {
	return &fileChecklistStore{
		basePath: basePath,
		data:     emptyChecklistFile(),
	}
}

func emptyChecklistFile() ChecklistFile {
	return ChecklistFile{
		Version:    "1.0",
		Checklists: make(map[string]models.Checklist),
	}
}

func (s *fileChecklistStore) filePath() string {
	return filepath.Join(s.basePath, "checklists.yaml")
}

func (s *fileChecklistStore) lockPath() string {
	return filepath.Join(s.basePath, ".checklists.lock")
}

func (s *fileChecklistStore) WithLock(fn func() error) error {
	if err := os.MkdirAll(s.basePath, 0o750); err != nil {
		return fmt.Errorf("locking checklists: creating directory: %w", err)
	}
	release, err := acquireLock(s.lockPath())
	if err != nil {
		return fmt.Errorf("locking checklists: %w", err)
	}
	defer func() { _ = release() }()
	return fn()
}

func (s *fileChecklistStore) AddChecklist(cl models.Checklist) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cl.ID == "" {
		return fmt.Errorf("adding checklist: ID must not be empty")
	}
	if _, exists := s.data.Checklists[cl.ID]; exists {
		return fmt.Errorf("adding checklist: checklist %s already exists", cl.ID)
	}
	s.data.Checklists[cl.ID] = cl.Clone()
	return nil
}

func (s *fileChecklistStore) UpdateChecklist(cl models.Checklist) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data.Checklists[cl.ID]; !exists {
		return fmt.Errorf("updating checklist: checklist %s not found", cl.ID)
	}
	s.data.Checklists[cl.ID] = cl.Clone()
	return nil
}

func (s *fileChecklistStore) RemoveChecklist(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data.Checklists[id]; !exists {
		return fmt.Errorf("removing checklist: checklist %s not found", id)
	}
	delete(s.data.Checklists, id)
	return nil
}

func (s *fileChecklistStore) GetChecklist(id string) (*models.Checklist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cl, exists := s.data.Checklists[id]
	if !exists {
		return nil, fmt.Errorf("checklist %s not found", id)
	}
	out := cl.Clone()
	return &out, nil
}

// ListChecklists returns matching checklists ordered by creation time, then ID.
func (s *fileChecklistStore) ListChecklists(filter ChecklistFilter) ([]models.Checklist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]models.Checklist, 0, len(s.data.Checklists))
	for _, cl := range s.data.Checklists {
		if filter.TaskID != "" && cl.TaskID != filter.TaskID {
			continue
		}
		if filter.TemplateID != "" && cl.TemplateID != filter.TemplateID {
			continue
		}
		result = append(result, cl.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Created.Equal(result[j].Created) {
			return result[i].Created.Before(result[j].Created)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (s *fileChecklistStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath())
	if err != nil {
		if os.IsNotExist(err) {
			s.data = emptyChecklistFile()
			return nil
		}
		return fmt.Errorf("loading checklists: %w", err)
	}

	var cf ChecklistFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return fmt.Errorf("loading checklists: parsing YAML: %w", err)
	}
	if cf.Checklists == nil {
		cf.Checklists = make(map[string]models.Checklist)
	}
	s.data = cf
	return nil
}

// Save writes checklists.yaml atomically via a temp file and rename.
func (s *fileChecklistStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.basePath, 0o750); err != nil {
		return fmt.Errorf("saving checklists: creating directory: %w", err)
	}
	data, err := yaml.Marshal(&s.data)
	if err != nil {
		return fmt.Errorf("saving checklists: marshaling YAML: %w", err)
	}

	tmp, err := os.CreateTemp(s.basePath, ".checklists-*.yaml")
	if err != nil {
		return fmt.Errorf("saving checklists: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("saving checklists: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("saving checklists: closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.filePath()); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("saving checklists: renaming temp file: %w", err)
	}
	return nil
}
