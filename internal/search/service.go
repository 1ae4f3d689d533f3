package search

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Service is the facade that tries Meilisearch first and falls back to
// the PostgreSQL title match.
type Service struct {
	meili  *Meili
	pglike *PgLike
}

// NewService creates a search service. meili may be nil when
// Meilisearch is not configured.
func NewService(meili *Meili, pglike *PgLike) *Service {
	return &Service{meili: meili, pglike: pglike}
}

// Search tries Meilisearch if healthy, otherwise falls back to Postgres.
// Queries under MinQueryLength characters return an empty response.
func (s *Service) Search(q Query) Response {
	if len(q.Text) < MinQueryLength {
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}

	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		logrus.WithError(err).Warn("search: meilisearch error, falling back to postgres")
	}

	results, total, err := s.pglike.Search(q)
	if err != nil {
		logrus.WithError(err).Error("search: postgres fallback failed")
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexBlog pushes a published blog into Meilisearch, fire-and-forget.
func (s *Service) IndexBlog(record BlogRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexBlog(record); err != nil {
			logrus.WithError(err).Warnf("search: index blog %s", record.ID)
		}
	}()
}

// ReindexAllFromPG loads every published blog from PostgreSQL and bulk
// indexes it into Meilisearch. Called at startup.
func (s *Service) ReindexAllFromPG(ctx context.Context) {
	if s.meili == nil || !s.meili.Healthy() || s.pglike == nil {
		return
	}
	records, err := s.pglike.LoadPublishedRecords(ctx)
	if err != nil {
		logrus.WithError(err).Error("search: reindex load failed")
		return
	}
	if err := s.meili.IndexBlogs(records); err != nil {
		logrus.WithError(err).Error("search: reindex failed")
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
