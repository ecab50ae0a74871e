package repository

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spachava753/ctictl/internal/models"
)

type syncFunc func(ctx context.Context, comp models.ComponentDescriptor) models.ComponentResult

// CloneAll ensures every component is cloned and stages connectors. A failure
// on one component never stops the others.
func (s *Syncer) CloneAll(ctx context.Context, comps []models.ComponentDescriptor) *models.SyncReport {
	return s.runBatch(ctx, models.OpClone, comps, s.EnsureCloned)
}

// UpdateAll pulls every component that has a checkout and restages connectors.
func (s *Syncer) UpdateAll(ctx context.Context, comps []models.ComponentDescriptor) *models.SyncReport {
	return s.runBatch(ctx, models.OpUpdate, comps, s.Update)
}

// runBatch fans components out to at most s.concurrency workers. Results flow
// through a single channel whose reader is the only writer of the report.
func (s *Syncer) runBatch(ctx context.Context, op models.Operation, comps []models.ComponentDescriptor, fn syncFunc) *models.SyncReport {
	report := &models.SyncReport{
		Operation: op,
		Total:     len(comps),
		StartedAt: time.Now(),
		Results:   make([]models.ComponentResult, 0, len(comps)),
	}

	slog.Debug("starting batch", "operation", op, "components", len(comps), "concurrency", s.concurrency)

	resultChan := make(chan models.ComponentResult)
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for result := range resultChan {
			report.Results = append(report.Results, result)
			if result.Failed() {
				report.Failed++
			} else {
				report.Succeeded++
			}
		}
	}()

	var g errgroup.Group
	g.SetLimit(s.concurrency)

	launched := 0
	for _, comp := range comps {
		if ctx.Err() != nil {
			break
		}
		launched++
		comp := comp
		g.Go(func() error {
			resultChan <- s.syncOne(ctx, comp, fn)
			return nil
		})
	}

	g.Wait()
	close(resultChan)
	<-collected

	report.Skipped = len(comps) - launched
	if report.Skipped > 0 || ctx.Err() != nil {
		report.Cancelled = true
	}

	// Report in input order regardless of completion order
	order := make(map[string]int, len(comps))
	for i, comp := range comps {
		order[comp.ID] = i
	}
	sort.SliceStable(report.Results, func(i, j int) bool {
		return order[report.Results[i].Component] < order[report.Results[j].Component]
	})

	report.EndedAt = time.Now()
	report.TotalDurationSec = report.EndedAt.Sub(report.StartedAt).Seconds()
	return report
}

// syncOne runs fn and, for connectors whose checkout is usable, refreshes the
// staged copy. Staging failures are recorded against the component.
func (s *Syncer) syncOne(ctx context.Context, comp models.ComponentDescriptor, fn syncFunc) models.ComponentResult {
	result := fn(ctx, comp)
	if result.Failed() || !comp.IsConnector() {
		return result
	}

	if err := s.Stage(comp); err != nil {
		return fail(result, models.NewError(models.ErrStage, comp.ID, err))
	}
	result.Staged = true
	return result
}
