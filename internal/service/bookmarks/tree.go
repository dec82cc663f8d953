package bookmarks

import (
	"context"
	"fmt"
	"log/slog"

	"treemark/internal/config"
	models "treemark/internal/domain/models/bookmarks"
	"treemark/internal/domain/repositories"
	bookmarkSvc "treemark/internal/domain/services/bookmarks"
	"treemark/internal/observability"
	"treemark/internal/treeview"
)

type treeService struct {
	repo      repositories.BookmarkRepository
	txManager repositories.TransactionManager
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewTreeService creates a new tree service
func NewTreeService(
	repo repositories.BookmarkRepository,
	txManager repositories.TransactionManager,
	metrics *observability.Metrics,
	logger *slog.Logger,
) bookmarkSvc.TreeService {
	return &treeService{
		repo:      repo,
		txManager: txManager,
		metrics:   metrics,
		logger:    logger,
	}
}

// GetTree starts from the root records and descends through each folder's
// children, fetching every folder's children in one batch.
func (s *treeService) GetTree(ctx context.Context, userID string) ([]models.Node, error) {
	roots, err := s.repo.ListByParent(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("list roots: %w", err)
	}

	lookup := models.LookupFunc(func(ctx context.Context, ids []string) ([]models.Bookmark, error) {
		return s.repo.GetMany(ctx, ids, userID)
	})

	forest, err := models.Assemble(ctx, roots, lookup, config.MaxTreeDepth)
	if err != nil {
		return nil, fmt.Errorf("assemble tree: %w", err)
	}

	return forest, nil
}

// Search filters the reconstructed tree.
func (s *treeService) Search(ctx context.Context, userID, query string) ([]models.Node, error) {
	forest, err := s.GetTree(ctx, userID)
	if err != nil {
		return nil, err
	}
	return treeview.Filter(forest, query), nil
}

// Check runs the consistency check over the whole collection.
func (s *treeService) Check(ctx context.Context, userID string) (*models.Report, error) {
	records, err := s.repo.ListAll(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}

	report := models.CheckConsistency(records)
	s.metrics.SetConsistency(report)
	if !report.Consistent() {
		s.logger.Warn("bookmark tree inconsistent",
			"user_id", userID,
			"issues", len(report.Issues),
		)
	}
	return report, nil
}

// Repair rewrites the parent/children fields of every record the repair
// plan changes, in one transaction.
func (s *treeService) Repair(ctx context.Context, userID string) (*models.Report, error) {
	var report *models.Report

	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		records, err := s.repo.ListAll(ctx, userID)
		if err != nil {
			return fmt.Errorf("list bookmarks: %w", err)
		}

		report = models.CheckConsistency(records)
		if report.Consistent() {
			return nil
		}

		fixed, changed := models.Repair(records)
		ix := models.NewIndex(fixed)
		for _, id := range changed {
			rec := ix[id]
			children := rec.Children
			if children == nil {
				children = []string{}
			}
			patch := &models.Patch{
				Children:  children,
				ParentSet: true,
				ParentID:  rec.ParentID,
			}
			if err := s.repo.Update(ctx, id, userID, patch); err != nil {
				return fmt.Errorf("repair %s: %w", id, err)
			}
		}
		report.Repaired = len(changed)
		return nil
	})
	s.metrics.RecordMutation("repair", err)
	if err != nil {
		return nil, err
	}

	s.metrics.SetConsistency(&models.Report{Issues: []models.Issue{}})
	s.logger.Info("bookmark tree repaired",
		"user_id", userID,
		"issues", len(report.Issues),
		"repaired", report.Repaired,
	)
	return report, nil
}
