// Package workingset keeps scored batches in memory for the presentation
// layer. Entries expire after the configured retention; nothing is persisted.
package workingset

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/openprocure/tenderisk/internal/domain/models"
	"github.com/openprocure/tenderisk/pkg/constants"
	"github.com/openprocure/tenderisk/pkg/errors"
	"github.com/openprocure/tenderisk/pkg/logger"
)

// Store holds completed analyses keyed by ID.
type Store struct {
	cache *gocache.Cache
	log   logger.Logger
}

// NewStore creates a store with the given retention.
func NewStore(retention time.Duration, log logger.Logger) *Store {
	if retention <= 0 {
		retention = constants.AnalysisRetention
	}
	return &Store{
		cache: gocache.New(retention, constants.AnalysisSweepInterval),
		log:   log.WithComponent("workingset"),
	}
}

// Put stores an analysis under its ID.
func (s *Store) Put(ctx context.Context, analysis *models.Analysis) {
	s.cache.SetDefault(analysis.ID, analysis)
	s.log.Debug(ctx, "analysis stored",
		logger.String("analysis_id", analysis.ID),
		logger.Int("records", len(analysis.Records)))
}

// Get returns the analysis with the given ID, or NotFound if it never
// existed or has expired.
func (s *Store) Get(ctx context.Context, id string) (*models.Analysis, error) {
	v, ok := s.cache.Get(id)
	if !ok {
		return nil, errors.ErrAnalysisNotFound(id)
	}
	return v.(*models.Analysis), nil
}

// Delete removes an analysis before its retention expires.
func (s *Store) Delete(ctx context.Context, id string) {
	s.cache.Delete(id)
}

// Count returns the number of live analyses.
func (s *Store) Count() int {
	return s.cache.ItemCount()
}
