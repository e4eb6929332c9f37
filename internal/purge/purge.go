// Package purge implements the retention sweep over stored articles.
package purge

import (
	"context"
	"fmt"
	"time"

	"github.com/jbellamy/veilleur/internal/veilleur"
)

const (
	// DefaultMaxAge is how long an unprotected article survives.
	DefaultMaxAge = 48 * time.Hour
	// DefaultMinReads is the engagement threshold: more reads than this
	// exempts an article from age-based deletion.
	DefaultMinReads = 20
)

// Report is the outcome of one sweep, shaped for the notification sender.
type Report struct {
	DeletedCount int64     `json:"deleted_count"`
	AdminEmails  []string  `json:"admin_emails"`
	Timestamp    time.Time `json:"timestamp"`
}

// Sweeper deletes expired articles in one pass.
type Sweeper struct {
	repo     veilleur.ArticleRepo
	maxAge   time.Duration
	minReads int
}

func New(repo veilleur.ArticleRepo, maxAge time.Duration, minReads int) *Sweeper {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if minReads <= 0 {
		minReads = DefaultMinReads
	}
	return &Sweeper{repo: repo, maxAge: maxAge, minReads: minReads}
}

// Run deletes every article older than the retention window that is neither
// pinned by anyone nor read by more than the configured number of users,
// then gathers the admin recipients for the report.
func (s *Sweeper) Run(ctx context.Context, now time.Time) (Report, error) {
	deleted, err := s.repo.PurgeArticles(ctx, veilleur.PurgeCriteria{
		Cutoff:   now.UTC().Add(-s.maxAge),
		MinReads: s.minReads,
	})
	if err != nil {
		return Report{}, fmt.Errorf("error purging articles: %w", err)
	}

	emails, err := s.repo.AdminEmails(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("error listing admin recipients: %w", err)
	}

	return Report{
		DeletedCount: deleted,
		AdminEmails:  emails,
		Timestamp:    now.UTC(),
	}, nil
}
