package state

import (
	"context"
	"errors"
	"sync"
	"time"

	"cable-orchestrator/internal/metrics"
	"cable-orchestrator/internal/models"
	"cable-orchestrator/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Backend is everything a workspace needs from the external service.
type Backend interface {
	service.Sizer
	service.CatalogService
	service.SheetImporter
	service.ExportService
}

// Workspace is one user's working set: the bulk worksheet and the two
// upload wizards that feed it. Its parts serialise their own operations.
type Workspace struct {
	ID        string
	CreatedAt time.Time

	Worksheet *service.Worksheet
	Catalog   *service.CatalogWizard
	Import    *service.SizingImport
	Exporter  *service.Exporter

	mu        sync.Mutex
	lastMatch *MatchRun
}

// MatchRun is the outcome of the last catalog match of a workspace. RowIDs
// records which row every RowIndex referred to when the match ran.
type MatchRun struct {
	RowIDs  []string                `json:"row_ids"`
	TopN    int                     `json:"top_n"`
	Results []models.RowMatchResult `json:"results"`
}

// ErrNoMatch is returned by ApplyMatch before any match has run.
var ErrNoMatch = errors.New("no catalog match to apply")

// Match ranks catalog parts for every current row and remembers the result
// for ApplyMatch.
func (ws *Workspace) Match(ctx context.Context, topN int) (*MatchRun, error) {
	rows := ws.Worksheet.Rows()
	results, err := ws.Catalog.Match(ctx, service.BuildMatchRows(rows), topN)
	if err != nil {
		return nil, err
	}
	run := &MatchRun{RowIDs: make([]string, len(rows)), TopN: topN, Results: results}
	for i, r := range rows {
		run.RowIDs[i] = r.ID
	}

	ws.mu.Lock()
	ws.lastMatch = run
	ws.mu.Unlock()
	return run, nil
}

// LastMatch returns the remembered match, or nil.
func (ws *Workspace) LastMatch() *MatchRun {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.lastMatch
}

// ApplyMatch attaches the top suggestions of the last match to the rows they
// were computed for and recomputes the worksheet. The match is consumed even
// if the recompute fails, since the attachments stay in place.
func (ws *Workspace) ApplyMatch(ctx context.Context) (int, error) {
	ws.mu.Lock()
	run := ws.lastMatch
	ws.lastMatch = nil
	ws.mu.Unlock()

	if run == nil {
		return 0, ErrNoMatch
	}
	return ws.Worksheet.ApplyMatchesTo(ctx, run.RowIDs, run.Results)
}

// Registry holds the open workspaces.
type Registry struct {
	mu         sync.RWMutex
	workspaces map[string]*Workspace

	backend Backend
	store   service.MappingStore
	logger  *zap.Logger
}

// NewRegistry returns an empty registry. Every workspace it creates shares
// backend and the mapping store.
func NewRegistry(backend Backend, store service.MappingStore, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		workspaces: make(map[string]*Workspace),
		backend:    backend,
		store:      store,
		logger:     logger,
	}
}

// Create opens a new empty workspace.
func (r *Registry) Create() *Workspace {
	id := uuid.NewString()
	log := r.logger.With(zap.String("workspace", id))
	ws := &Workspace{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		Worksheet: service.NewWorksheet(r.backend, log),
		Catalog:   service.NewCatalogWizard(r.backend, r.store, log),
		Import:    service.NewSizingImport(r.backend, r.store, log),
		Exporter:  service.NewExporter(r.backend, log),
	}

	r.mu.Lock()
	r.workspaces[id] = ws
	r.mu.Unlock()

	metrics.WorkspacesActive.Inc()
	log.Info("workspace created")
	return ws
}

// Get retrieves a workspace by id.
func (r *Registry) Get(id string) (*Workspace, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ws, ok := r.workspaces[id]
	return ws, ok
}

// Delete closes a workspace. It reports whether one was removed.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	_, ok := r.workspaces[id]
	delete(r.workspaces, id)
	r.mu.Unlock()

	if ok {
		metrics.WorkspacesActive.Dec()
		r.logger.Info("workspace deleted", zap.String("workspace", id))
	}
	return ok
}

// Len returns the number of open workspaces.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.workspaces)
}
