// ABOUTME: Workspace manages the project registry and one SQLite database per project
// ABOUTME: Implements the query, search and conversation contracts used by the orchestrator
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/harper/querychat/internal/models"
	"github.com/harper/querychat/internal/storage/sqlite"
	"gopkg.in/yaml.v3"
)

var (
	// ErrProjectNotFound is returned for an unknown project id or name
	ErrProjectNotFound = errors.New("project not found")
	// ErrNoEmbedder is returned when semantic operations run without an embedder
	ErrNoEmbedder = errors.New("no embedder configured")
)

const registryFile = "projects.yaml"

// Embedder turns texts into vectors
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// Chunker splits document content into chunks
type Chunker interface {
	ChunkDocument(content string, fileType string) []models.DocumentChunk
}

// Workspace owns every project and its database
type Workspace struct {
	dataDir  string
	inMemory bool
	logger   *slog.Logger

	mu       sync.Mutex
	projects map[string]*models.Project
	dbs      map[string]*sqlite.Storage

	embedder Embedder
	chunker  Chunker
}

type registry struct {
	Projects []*models.Project `yaml:"projects"`
}

// DefaultDataDir returns the XDG data directory for querychat
func DefaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		dataHome = xdg.DataHome
	}
	return filepath.Join(dataHome, "querychat")
}

// NewWorkspace opens the workspace rooted at dataDir, creating it if needed
func NewWorkspace(dataDir string, logger *slog.Logger) (*Workspace, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Join(dataDir, "databases"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	w := &Workspace{
		dataDir:  dataDir,
		logger:   logger,
		projects: make(map[string]*models.Project),
		dbs:      make(map[string]*sqlite.Storage),
	}
	if err := w.loadRegistry(); err != nil {
		return nil, err
	}
	return w, nil
}

// NewWorkspaceInMemory creates a workspace whose registry and databases live in memory
func NewWorkspaceInMemory(logger *slog.Logger) *Workspace {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workspace{
		inMemory: true,
		logger:   logger,
		projects: make(map[string]*models.Project),
		dbs:      make(map[string]*sqlite.Storage),
	}
}

// SetEmbedder sets the embedder used for vectorization and semantic search
func (w *Workspace) SetEmbedder(e Embedder) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.embedder = e
}

// SetChunker sets the document chunker
func (w *Workspace) SetChunker(c Chunker) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.chunker = c
}

// DataDir returns the workspace root
func (w *Workspace) DataDir() string {
	return w.dataDir
}

// Close closes every open project database
func (w *Workspace) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var errs []error
	for id, db := range w.dbs {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", id, err))
		}
		delete(w.dbs, id)
	}
	return errors.Join(errs...)
}

func (w *Workspace) loadRegistry() error {
	data, err := os.ReadFile(filepath.Join(w.dataDir, registryFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read project registry: %w", err)
	}

	var reg registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return fmt.Errorf("parse project registry: %w", err)
	}
	for _, p := range reg.Projects {
		w.projects[p.ID] = p
	}
	return nil
}

// saveRegistry must be called with w.mu held
func (w *Workspace) saveRegistry() error {
	if w.inMemory {
		return nil
	}
	reg := registry{Projects: w.sortedProjects()}
	data, err := yaml.Marshal(&reg)
	if err != nil {
		return err
	}

	path := filepath.Join(w.dataDir, registryFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write project registry: %w", err)
	}
	return os.Rename(tmp, path)
}

func (w *Workspace) sortedProjects() []*models.Project {
	out := make([]*models.Project, 0, len(w.projects))
	for _, p := range w.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// CreateProject registers a new project with an empty database
func (w *Workspace) CreateProject(ctx context.Context, name, description string) (*models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("project name cannot be empty")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, p := range w.projects {
		if strings.EqualFold(p.Name, name) {
			return nil, fmt.Errorf("project %q already exists", name)
		}
	}

	now := time.Now().UTC()
	p := &models.Project{
		ID:          models.NewID(),
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	p.DatabaseFile = p.ID + ".db"

	w.projects[p.ID] = p
	if _, err := w.openLocked(p); err != nil {
		delete(w.projects, p.ID)
		return nil, err
	}
	if err := w.saveRegistry(); err != nil {
		return nil, err
	}

	w.logger.Info("project created", "project", p.ID, "name", p.Name)
	copied := *p
	return &copied, nil
}

// ListProjects returns every project, oldest first
func (w *Workspace) ListProjects(ctx context.Context) ([]models.Project, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	sorted := w.sortedProjects()
	out := make([]models.Project, len(sorted))
	for i, p := range sorted {
		out[i] = *p
	}
	return out, nil
}

// GetProject returns a project by id
func (w *Workspace) GetProject(ctx context.Context, id string) (*models.Project, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, ok := w.projects[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrProjectNotFound)
	}
	copied := *p
	return &copied, nil
}

// FindProject resolves a project by id, or by case-insensitive name
func (w *Workspace) FindProject(ctx context.Context, idOrName string) (*models.Project, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if p, ok := w.projects[idOrName]; ok {
		copied := *p
		return &copied, nil
	}
	for _, p := range w.projects {
		if strings.EqualFold(p.Name, idOrName) {
			copied := *p
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", idOrName, ErrProjectNotFound)
}

// DeleteProject removes a project and its database file
func (w *Workspace) DeleteProject(ctx context.Context, id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, ok := w.projects[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrProjectNotFound)
	}
	if db, ok := w.dbs[id]; ok {
		_ = db.Close()
		delete(w.dbs, id)
	}
	delete(w.projects, id)

	if !w.inMemory {
		base := filepath.Join(w.dataDir, "databases", p.DatabaseFile)
		for _, path := range []string{base, base + "-wal", base + "-shm"} {
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("remove database: %w", err)
			}
		}
	}

	w.logger.Info("project deleted", "project", id)
	return w.saveRegistry()
}

// Storage returns the opened database of a project
func (w *Workspace) Storage(projectID string) (*sqlite.Storage, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, ok := w.projects[projectID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", projectID, ErrProjectNotFound)
	}
	return w.openLocked(p)
}

func (w *Workspace) openLocked(p *models.Project) (*sqlite.Storage, error) {
	if db, ok := w.dbs[p.ID]; ok {
		return db, nil
	}

	var (
		db  *sqlite.Storage
		err error
	)
	if w.inMemory {
		db, err = sqlite.NewStorageInMemory()
	} else {
		db, err = sqlite.NewStorageWithPath(filepath.Join(w.dataDir, "databases", p.DatabaseFile))
	}
	if err != nil {
		return nil, fmt.Errorf("open project %s: %w", p.ID, err)
	}
	w.dbs[p.ID] = db
	return db, nil
}

func (w *Workspace) currentEmbedder() (Embedder, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.embedder == nil {
		return nil, ErrNoEmbedder
	}
	return w.embedder, nil
}

func (w *Workspace) embedOne(ctx context.Context, text string) ([]float32, error) {
	e, err := w.currentEmbedder()
	if err != nil {
		return nil, err
	}
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(vecs))
	}
	return vecs[0], nil
}
