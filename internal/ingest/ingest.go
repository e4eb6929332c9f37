// Package ingest runs a single feed through the pipeline: resolve the
// document URL, fetch it, parse it, normalize every item, and store the
// result. It owns feed status transitions.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jbellamy/veilleur/internal/feedparse"
	"github.com/jbellamy/veilleur/internal/fetch"
	"github.com/jbellamy/veilleur/internal/normalize"
	"github.com/jbellamy/veilleur/internal/veilleur"
	"github.com/jbellamy/veilleur/internal/youtube"
)

// Stage names the pipeline step an ingestion error originated from.
type Stage string

const (
	StageResolve Stage = "resolve"
	StageFetch   Stage = "fetch"
	StageParse   Stage = "parse"
	StageStore   Stage = "store"
)

// Error wraps a pipeline failure with the stage it happened in.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("ingest %s: %s", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Fetcher retrieves a remote document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (fetch.Document, error)
}

// Resolver turns a youtube channel URL into its RSS feed URL.
type Resolver interface {
	Resolve(ctx context.Context, channelURL string) (youtube.Resolution, error)
}

// Result reports what a single run considered. ArticlesProcessed counts
// parsed items handed to storage, not rows inserted: re-running against an
// unchanged document reports the same number while inserting nothing.
type Result struct {
	ArticlesProcessed int `json:"articles_processed"`
}

// Coordinator wires the pipeline stages together. It holds no per-run
// state, so a single value is safe for concurrent runs over distinct feeds.
type Coordinator struct {
	repo       veilleur.Repository
	fetcher    Fetcher
	resolver   Resolver
	normalizer *normalize.Normalizer
	now        func() time.Time
}

func New(repo veilleur.Repository, fetcher Fetcher, resolver Resolver) *Coordinator {
	return &Coordinator{
		repo:       repo,
		fetcher:    fetcher,
		resolver:   resolver,
		normalizer: normalize.New(),
		now:        time.Now,
	}
}

// Ingest runs the full pipeline for one feed. Resolve, fetch, and parse
// failures mark the feed errored before returning; storage failures leave
// the previous status in place so a transient database problem does not
// masquerade as a broken source.
func (c *Coordinator) Ingest(ctx context.Context, feedID string) (Result, error) {
	feed, err := c.repo.Feed(ctx, feedID)
	if err != nil {
		return Result{}, fmt.Errorf("error loading feed %s: %w", feedID, err)
	}

	url := feed.URL
	if feed.Kind == veilleur.FeedKindYouTube {
		res, err := c.resolver.Resolve(ctx, feed.URL)
		if err != nil {
			c.markError(ctx, feed.ID)
			return Result{}, &Error{Stage: StageResolve, Err: err}
		}
		url = res.RSSURL
	}

	doc, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		c.markError(ctx, feed.ID)
		return Result{}, &Error{Stage: StageFetch, Err: err}
	}

	items, meta, err := feedparse.Parse(doc.Body)
	if err != nil {
		c.markError(ctx, feed.ID)
		return Result{}, &Error{Stage: StageParse, Err: err}
	}

	articles := make([]veilleur.Article, 0, len(items))
	for _, item := range items {
		articles = append(articles, c.normalizer.Article(item, feed.ID, feed.Kind))
	}

	if err := c.repo.InsertArticles(ctx, articles); err != nil {
		return Result{}, &Error{Stage: StageStore, Err: err}
	}

	count, err := c.repo.CountFeedArticles(ctx, feed.ID)
	if err != nil {
		return Result{}, &Error{Stage: StageStore, Err: err}
	}

	args := veilleur.UpdateFeedArgs{
		Status:        veilleur.FeedStatusActive,
		LastFetchedAt: c.now().UTC(),
		ArticleCount:  &count,
	}
	if feed.Name == "" {
		// A feed registered without a name takes the document's own title.
		args.Name = meta.Title
	}
	if err := c.repo.UpdateFeed(ctx, feed.ID, args); err != nil {
		return Result{}, &Error{Stage: StageStore, Err: err}
	}

	return Result{ArticlesProcessed: len(items)}, nil
}

// markError is best effort: the run already failed and that error is the
// one worth surfacing.
func (c *Coordinator) markError(ctx context.Context, feedID string) {
	err := c.repo.UpdateFeed(ctx, feedID, veilleur.UpdateFeedArgs{Status: veilleur.FeedStatusError})
	if err != nil {
		slog.WarnContext(ctx, "could not mark feed errored", "feed_id", feedID, "err", err)
	}
}
