package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/andresuchdata/autopar/backend-go/internal/cache"
	"github.com/andresuchdata/autopar/backend-go/internal/domain"
	"github.com/andresuchdata/autopar/backend-go/internal/par"
	"github.com/andresuchdata/autopar/backend-go/internal/repository"
	"github.com/andresuchdata/autopar/backend-go/internal/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type GenerateParams struct {
	Scope        domain.Scope
	LeadTimeDays float64 // 0 uses the configured lead time
}

// ApplyParams selects what to apply. With RunID set, ItemKeys picks from the cached
// run (all of it when empty) and Scope.GuideID may override the target guide.
// Without RunID, Suggestions are applied to Scope directly.
type ApplyParams struct {
	RunID       string
	ItemKeys    []string
	Scope       domain.Scope
	Suggestions []domain.Suggestion
}

type ApplyOutcome struct {
	RunID      string              `json:"run_id,omitempty"`
	Result     *domain.ApplyResult `json:"result"`
	ArchiveKey string              `json:"archive_key,omitempty"`
}

type ParService struct {
	store   repository.ParStore
	loader  *par.HistoryLoader
	ranker  *par.Ranker
	applier *par.Applier
	gate    *par.NotificationGate
	runs    cache.SuggestionRunCache
	archive *storage.RunArchive
	opts    Options
}

func NewParService(store repository.ParStore, runs cache.SuggestionRunCache, archive *storage.RunArchive, opts Options) *ParService {
	if opts.Now == nil {
		opts.Now = DefaultOptions().Now
	}
	if runs == nil {
		runs = cache.NewMemoryRunCache(0, opts.Now)
	}
	if archive == nil {
		archive = storage.NewRunArchive(storage.NoopStorage{}, "")
	}
	return &ParService{
		store:   store,
		loader:  par.NewHistoryLoader(store, store),
		ranker:  par.NewRanker(opts.Thresholds),
		applier: par.NewApplier(store, opts.Apply, opts.Now),
		gate:    par.NewNotificationGate(store, opts.Thresholds, opts.DefaultTimezone, opts.Now),
		runs:    runs,
		archive: archive,
		opts:    opts,
	}
}

// Generate loads history for the scope, runs the engine and caches the run by ID.
func (s *ParService) Generate(ctx context.Context, p GenerateParams) (*domain.SuggestionRun, error) {
	if strings.TrimSpace(p.Scope.RestaurantID) == "" {
		return nil, fmt.Errorf("%w: restaurant_id is required", domain.ErrInvalidRequest)
	}

	run, err := s.generate(ctx, p)
	if err != nil {
		return nil, err
	}

	if err := s.runs.SetRun(ctx, run); err != nil {
		log.Warn().Err(err).Str("run_id", run.ID).Msg("par: cache set run failed")
	}
	return run, nil
}

func (s *ParService) generate(ctx context.Context, p GenerateParams) (*domain.SuggestionRun, error) {
	t := s.opts.Thresholds
	if p.LeadTimeDays > 0 {
		t.LeadTimeDays = p.LeadTimeDays
	}

	history, err := s.loader.Load(ctx, p.Scope, t.Lookback)
	if err != nil {
		return nil, err
	}

	suggestions := par.NewEngine(t).Generate(history)
	if suggestions == nil {
		suggestions = make([]domain.Suggestion, 0)
	}

	run := &domain.SuggestionRun{
		ID:           uuid.NewString(),
		Scope:        p.Scope,
		GeneratedAt:  s.opts.Now().UTC(),
		LeadTimeDays: t.LeadTimeDays,
		SessionCount: len(history.Counts),
		Suggestions:  suggestions,
		Summary:      s.ranker.Summarize(suggestions),
	}

	log.Info().
		Str("run_id", run.ID).
		Str("scope", p.Scope.String()).
		Int("sessions", run.SessionCount).
		Int("suggestions", run.Summary.Total).
		Int("major", run.Summary.Major).
		Msg("par: suggestions generated")

	return run, nil
}

// View returns a copy of the run holding only the suggestions matching the filter.
// The summary always describes the full run.
func (s *ParService) View(run *domain.SuggestionRun, filter domain.Filter) *domain.SuggestionRun {
	out := *run
	out.Suggestions = s.ranker.Apply(filter, run.Suggestions)
	return &out
}

// GetRun returns a cached run through the named filter.
func (s *ParService) GetRun(ctx context.Context, id string, filter domain.Filter) (*domain.SuggestionRun, error) {
	run, err := s.loadRun(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.View(run, filter), nil
}

func (s *ParService) loadRun(ctx context.Context, id string) (*domain.SuggestionRun, error) {
	run, ok, err := s.runs.GetRun(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", id, err)
	}
	if !ok {
		return nil, fmt.Errorf("run %s: %w", id, domain.ErrNotFound)
	}
	return run, nil
}

// Apply writes the selected suggestions into a guide and archives the outcome.
func (s *ParService) Apply(ctx context.Context, p ApplyParams) (*ApplyOutcome, error) {
	req, run, err := s.applyRequest(ctx, p)
	if err != nil {
		return nil, err
	}
	if len(req.Suggestions) == 0 {
		return nil, fmt.Errorf("%w: no suggestions selected", domain.ErrInvalidRequest)
	}

	result, err := s.applier.Apply(ctx, req)
	if err != nil {
		return nil, err
	}

	outcome := &ApplyOutcome{Result: result}
	if run != nil {
		outcome.RunID = run.ID
		if len(result.Failed) == 0 && len(req.Suggestions) == len(run.Suggestions) {
			s.retireRun(ctx, run.ID)
		}
	} else {
		run = &domain.SuggestionRun{
			ID:          uuid.NewString(),
			Scope:       req.Scope,
			GeneratedAt: s.opts.Now().UTC(),
			Suggestions: req.Suggestions,
			Summary:     s.ranker.Summarize(req.Suggestions),
		}
	}

	key, err := s.archive.Save(ctx, storage.AppliedRun{
		Run:       run,
		Applied:   req.Suggestions,
		Result:    result,
		AppliedAt: s.opts.Now().UTC(),
	})
	if err != nil {
		log.Error().Err(err).Str("run_id", run.ID).Msg("par: archive applied run failed")
	} else {
		outcome.ArchiveKey = key
	}

	log.Info().
		Str("run_id", run.ID).
		Str("guide_id", result.GuideID).
		Bool("guide_created", result.GuideCreated).
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int("failed", len(result.Failed)).
		Msg("par: suggestions applied")

	return outcome, nil
}

// retireRun drops a run from the cache once all of it has been written.
func (s *ParService) retireRun(ctx context.Context, id string) {
	if err := s.runs.DeleteRun(ctx, id); err != nil {
		log.Warn().Err(err).Str("run_id", id).Msg("par: cache delete run failed")
	}
}

// FlushRuns discards every cached run.
func (s *ParService) FlushRuns(ctx context.Context) (int, error) {
	n, err := s.runs.InvalidateAll(ctx)
	if err != nil {
		return n, fmt.Errorf("flush run cache: %w", err)
	}
	log.Info().Int("runs", n).Msg("par: run cache flushed")
	return n, nil
}

// ArchivedRuns lists the audit object keys of a restaurant's applied runs, oldest first.
func (s *ParService) ArchivedRuns(ctx context.Context, restaurantID string) ([]string, error) {
	if strings.TrimSpace(restaurantID) == "" {
		return nil, fmt.Errorf("%w: restaurant_id is required", domain.ErrInvalidRequest)
	}
	keys, err := s.archive.List(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("list archived runs: %w", err)
	}
	return keys, nil
}

func (s *ParService) ArchivedRun(ctx context.Context, key string) (*storage.AppliedRun, error) {
	rec, err := s.archive.Load(ctx, key)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, fmt.Errorf("archived run %s: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *ParService) applyRequest(ctx context.Context, p ApplyParams) (par.ApplyRequest, *domain.SuggestionRun, error) {
	if p.RunID == "" {
		if strings.TrimSpace(p.Scope.RestaurantID) == "" {
			return par.ApplyRequest{}, nil, fmt.Errorf("%w: restaurant_id is required", domain.ErrInvalidRequest)
		}
		return par.ApplyRequest{Scope: p.Scope, Suggestions: p.Suggestions}, nil, nil
	}

	run, err := s.loadRun(ctx, p.RunID)
	if err != nil {
		return par.ApplyRequest{}, nil, err
	}

	scope := run.Scope
	if p.Scope.GuideID != "" {
		scope.GuideID = p.Scope.GuideID
	}

	selected, err := selectItems(run.Suggestions, p.ItemKeys)
	if err != nil {
		return par.ApplyRequest{}, nil, err
	}
	return par.ApplyRequest{Scope: scope, Suggestions: selected}, run, nil
}

// selectItems keeps the run's order. Unknown keys are rejected.
func selectItems(suggestions []domain.Suggestion, keys []string) ([]domain.Suggestion, error) {
	if len(keys) == 0 {
		return suggestions, nil
	}

	wanted := make(map[string]bool, len(keys))
	for _, k := range keys {
		wanted[domain.NormalizeItemKey(k)] = true
	}

	out := make([]domain.Suggestion, 0, len(wanted))
	for _, sug := range suggestions {
		if wanted[sug.ItemKey] {
			out = append(out, sug)
			delete(wanted, sug.ItemKey)
		}
	}
	if len(wanted) > 0 {
		missing := make([]string, 0, len(wanted))
		for k := range wanted {
			missing = append(missing, k)
		}
		sort.Strings(missing)
		return nil, fmt.Errorf("%w: items not in run: %s", domain.ErrInvalidRequest, strings.Join(missing, ", "))
	}
	return out, nil
}

// Notify generates fresh suggestions for the restaurant and runs them through the
// notification gate. This is the entry point of the daily cron.
func (s *ParService) Notify(ctx context.Context, scope domain.Scope) (*par.NotifyResult, error) {
	if strings.TrimSpace(scope.RestaurantID) == "" {
		return nil, fmt.Errorf("%w: restaurant_id is required", domain.ErrInvalidRequest)
	}

	run, err := s.generate(ctx, GenerateParams{Scope: scope})
	if err != nil {
		return nil, err
	}

	settings, err := s.store.GetNotificationSettings(ctx, scope.RestaurantID)
	if err != nil {
		return nil, domain.NewStorageError("load notification settings", scope, err)
	}
	if settings == nil {
		settings = &domain.NotificationSettings{Mode: s.opts.DefaultRecipients, InAppEnabled: true}
	}

	return s.gate.Evaluate(ctx, par.NotifyRequest{
		RestaurantID: scope.RestaurantID,
		Suggestions:  run.Suggestions,
		Settings:     *settings,
	})
}
