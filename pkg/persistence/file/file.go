// Package file provides a file-based persistence implementation. Every record is a
// JSON document under <root>/<orgID>/<collection>/. Conditional writes are serialized
// by a process-wide mutex, so the store is safe for one process only.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dukex/caseflow/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	store *store

	definitions   *DefinitionRepository
	tasks         *TaskRepository
	executions    *ExecutionRepository
	organizations *OrganizationRepository
	contacts      *ContactRepository
	audit         *AuditRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	s := &store{root: strings.Replace(root, "file://", "", 1)}

	return &Persistence{
		store:         s,
		definitions:   &DefinitionRepository{store: s},
		tasks:         &TaskRepository{store: s},
		executions:    &ExecutionRepository{store: s},
		organizations: &OrganizationRepository{store: s},
		contacts:      &ContactRepository{store: s},
		audit:         &AuditRepository{store: s},
	}
}

var _ persistence.Persistence = (*Persistence)(nil)

func (fp *Persistence) Definitions() persistence.DefinitionRepository {
	return fp.definitions
}

func (fp *Persistence) Tasks() persistence.TaskRepository {
	return fp.tasks
}

func (fp *Persistence) Executions() persistence.ExecutionRepository {
	return fp.executions
}

func (fp *Persistence) Organizations() persistence.OrganizationRepository {
	return fp.organizations
}

func (fp *Persistence) Contacts() persistence.ContactRepository {
	return fp.contacts
}

func (fp *Persistence) Audit() persistence.AuditRepository {
	return fp.audit
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.store.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

type store struct {
	root string
	mu   sync.RWMutex
}

// validateID rejects ids that would escape the store root.
func validateID(kind, id string) error {
	if id == "" {
		return fmt.Errorf("%s ID cannot be empty", kind)
	}

	if strings.Contains(id, "..") || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%s ID contains invalid characters", kind)
	}

	return nil
}

func (s *store) dir(orgID, collection string) (string, error) {
	if err := validateID("organization", orgID); err != nil {
		return "", err
	}

	return filepath.Join(s.root, orgID, collection), nil
}

func (s *store) path(orgID, collection, id string) (string, error) {
	dir, err := s.dir(orgID, collection)
	if err != nil {
		return "", err
	}

	if err := validateID(collection, id); err != nil {
		return "", err
	}

	return filepath.Join(dir, id+".json"), nil
}

// readJSON decodes path into a new T. A missing file yields os.ErrNotExist.
func readJSON[T any](path string) (*T, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is built from validated ids
	if err != nil {
		if os.IsNotExist(err) {
			return nil, os.ErrNotExist
		}

		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", path, err)
	}

	return &value, nil
}

// writeJSON replaces path atomically through a temp file and rename.
func writeJSON(path string, value any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	return nil
}

// readAll decodes every JSON document of a directory in file name order.
func readAll[T any](dir string) ([]*T, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*T{}, nil
		}

		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	values := make([]*T, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		value, err := readJSON[T](filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}

		values = append(values, value)
	}

	return values, nil
}

func isNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
