package board

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/johnwards/talentflow/internal/domain"
	"github.com/johnwards/talentflow/internal/pipeline"
)

var (
	// ErrNotLoaded is returned when an action needs a board that was never
	// loaded.
	ErrNotLoaded = errors.New("board not loaded")
	// ErrTransitionNotAllowed is returned when no transition connects the
	// source and destination stages of a move.
	ErrTransitionNotAllowed = errors.New("transition not allowed")
	// ErrMoveInFlight is returned when an application is moved again before
	// its previous move finished.
	ErrMoveInFlight = errors.New("move already in flight")
	// ErrNotConfirmed is returned when the user declines a bulk action.
	ErrNotConfirmed = errors.New("action not confirmed")
	// ErrReload is returned when the backend accepted an action but the
	// board could not be fetched again afterwards.
	ErrReload = errors.New("board reload failed")
)

// Backend is the remote source of truth for pipelines and applications.
type Backend interface {
	FetchPipeline(ctx context.Context, jobID string) (*domain.Pipeline, error)
	FetchApplications(ctx context.Context, jobID string) ([]domain.Application, error)
	UpdateStage(ctx context.Context, applicationID string, req domain.StageChangeRequest) (*domain.Application, error)
	BulkUpdateStatus(ctx context.Context, req domain.BulkStatusRequest) (*domain.BulkStatusResult, error)
}

// Controller keeps the board of one job in sync with a Backend. Local state
// only changes by reloading from the backend.
type Controller struct {
	jobID    string
	backend  Backend
	notifier Notifier

	mu       sync.Mutex
	board    *Board
	inFlight map[string]struct{}
}

// NewController creates a controller for jobID. A nil notifier logs.
func NewController(jobID string, backend Backend, notifier Notifier) *Controller {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &Controller{
		jobID:    jobID,
		backend:  backend,
		notifier: notifier,
		inFlight: make(map[string]struct{}),
	}
}

// Board returns the last loaded board, or nil.
func (c *Controller) Board() *Board {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.board
}

// Load fetches the pipeline and applications and rebuilds every column.
func (c *Controller) Load(ctx context.Context) error {
	p, err := c.backend.FetchPipeline(ctx, c.jobID)
	if err != nil {
		return fmt.Errorf("fetch pipeline: %w", err)
	}
	apps, err := c.backend.FetchApplications(ctx, c.jobID)
	if err != nil {
		return fmt.Errorf("fetch applications: %w", err)
	}

	b := Build(p, apps)
	c.mu.Lock()
	c.board = b
	c.mu.Unlock()
	return nil
}

// Move drags an application from one column to another. Dropping on the
// same column does nothing. A move with no matching transition is refused
// without calling the backend.
func (c *Controller) Move(ctx context.Context, applicationID, fromKey, toKey string) error {
	if fromKey == toKey {
		return nil
	}

	c.mu.Lock()
	b := c.board
	if b == nil {
		c.mu.Unlock()
		return ErrNotLoaded
	}
	if _, busy := c.inFlight[applicationID]; busy {
		c.mu.Unlock()
		return ErrMoveInFlight
	}
	from, to := stageName(b.Pipeline, fromKey), stageName(b.Pipeline, toKey)
	if !b.Pipeline.Allows(fromKey, toKey) {
		c.mu.Unlock()
		c.notifier.Error(fmt.Sprintf("Cannot move from %s to %s", from, to))
		return fmt.Errorf("%s -> %s: %w", fromKey, toKey, ErrTransitionNotAllowed)
	}
	c.inFlight[applicationID] = struct{}{}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.inFlight, applicationID)
		c.mu.Unlock()
	}()

	_, err := c.backend.UpdateStage(ctx, applicationID, domain.StageChangeRequest{
		StageKey:         toKey,
		ExpectedStageKey: fromKey,
		Reason:           fmt.Sprintf("Moved from %s to %s", from, to),
	})
	if err != nil {
		c.notifier.Error(fmt.Sprintf("Failed to move candidate: %v", err))
		return fmt.Errorf("update stage: %w", err)
	}

	if err := c.Load(ctx); err != nil {
		c.notifier.Error(fmt.Sprintf("Candidate moved to %s but the board could not be refreshed", to))
		return fmt.Errorf("%w: %w", ErrReload, err)
	}
	c.notifier.Success(fmt.Sprintf("Candidate moved to %s", to))
	return nil
}

// RejectAll rejects every application shown in a non-terminal stage with a
// single bulk call, after confirm approves the count. It returns the number
// of applications sent.
func (c *Controller) RejectAll(ctx context.Context, stageKey string, confirm func(n int) bool) (int, error) {
	c.mu.Lock()
	b := c.board
	c.mu.Unlock()
	if b == nil {
		return 0, ErrNotLoaded
	}

	col, ok := b.Column(stageKey)
	if !ok {
		return 0, fmt.Errorf("stage %q: %w", stageKey, pipeline.ErrStageNotFound)
	}
	if col.Stage.Terminal {
		return 0, fmt.Errorf("stage %q: %w", stageKey, pipeline.ErrTerminalStage)
	}
	if len(col.Applications) == 0 {
		return 0, nil
	}

	ids := make([]string, len(col.Applications))
	for i, a := range col.Applications {
		ids[i] = a.ID
	}
	if confirm == nil || !confirm(len(ids)) {
		return 0, ErrNotConfirmed
	}

	if _, err := c.backend.BulkUpdateStatus(ctx, domain.BulkStatusRequest{
		ApplicationIDs: ids,
		Status:         domain.StatusRejected,
	}); err != nil {
		c.notifier.Error(fmt.Sprintf("Failed to reject candidates: %v", err))
		return 0, fmt.Errorf("bulk update status: %w", err)
	}

	if err := c.Load(ctx); err != nil {
		c.notifier.Error(fmt.Sprintf("Rejected %d candidates from %s but the board could not be refreshed", len(ids), col.Stage.Name))
		return len(ids), fmt.Errorf("%w: %w", ErrReload, err)
	}
	c.notifier.Success(fmt.Sprintf("Rejected %d candidates from %s", len(ids), col.Stage.Name))
	return len(ids), nil
}

func stageName(p *domain.Pipeline, key string) string {
	if st, ok := p.Stage(key); ok && st.Name != "" {
		return st.Name
	}
	return key
}
