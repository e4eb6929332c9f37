// Package veilleur holds the domain types shared between the HTTP API,
// the ingestion worker, and the storage layer.
package veilleur

import (
	"context"
	"errors"
	"time"
)

var (
	ErrConflict = errors.New("resource already exists")
	ErrNotFound = errors.New("resource not found")
)

// FeedKind tells the coordinator how a source's document is obtained.
type FeedKind string

const (
	FeedKindWebsite   FeedKind = "website"
	FeedKindRSSAuto   FeedKind = "rss-auto"
	FeedKindRSSManual FeedKind = "rss-manual"
	FeedKindYouTube   FeedKind = "youtube"
	FeedKindSteam     FeedKind = "steam"
)

func (k FeedKind) Valid() bool {
	switch k {
	case FeedKindWebsite, FeedKindRSSAuto, FeedKindRSSManual, FeedKindYouTube, FeedKindSteam:
		return true
	}
	return false
}

// FeedStatus is owned by the ingestion coordinator: active only after at
// least one successful run, error only after a run has failed.
type FeedStatus string

const (
	FeedStatusPending FeedStatus = "pending"
	FeedStatusActive  FeedStatus = "active"
	FeedStatusError   FeedStatus = "error"
)

type (
	// Feed represents a registered external source.
	Feed struct {
		ID            string     `db:"id"`
		Name          string     `db:"name"`
		URL           string     `db:"url"`
		Kind          FeedKind   `db:"kind"`
		Status        FeedStatus `db:"status"`
		LastFetchedAt *time.Time `db:"last_fetched_at"`
		ArticleCount  int        `db:"article_count"`
		CreatedAt     time.Time  `db:"created_at"`
		UpdatedAt     time.Time  `db:"updated_at"`
	}

	// Article is one normalized item of a feed document. Rows are immutable
	// after insertion; (feed_id, guid) is the dedup key.
	Article struct {
		ID          string    `db:"id"`
		FeedID      string    `db:"feed_id"`
		GUID        string    `db:"guid"`
		Title       string    `db:"title"`
		Description string    `db:"description"`
		Content     string    `db:"content"`
		URL         *string   `db:"url"`
		ImageURL    *string   `db:"image_url"`
		PublishedAt time.Time `db:"published_at"`
		ReadTime    int       `db:"read_time"`
		CreatedAt   time.Time `db:"created_at"`
	}

	// UserArticleState is the per-user overlay on an article. An absent row
	// means unread and unpinned.
	UserArticleState struct {
		UserID    string     `db:"user_id"`
		ArticleID string     `db:"article_id"`
		IsRead    bool       `db:"is_read"`
		IsPinned  bool       `db:"is_pinned"`
		ReadAt    *time.Time `db:"read_at"`
	}

	// NewFeed carries the fields of a feed registration.
	NewFeed struct {
		Name string
		URL  string
		Kind FeedKind
	}

	// UpdateFeedArgs holds the optional fields for updating a feed. Zero
	// values are left untouched.
	UpdateFeedArgs struct {
		Name          string
		URL           string
		Status        FeedStatus
		LastFetchedAt time.Time
		ArticleCount  *int
	}

	// FeedArticlesArgs narrows and pages an article listing.
	FeedArticlesArgs struct {
		FeedID string
		Limit  uint64
		Offset uint64
	}

	// PurgeCriteria selects the articles the retention sweep may delete.
	PurgeCriteria struct {
		// Articles published before Cutoff are candidates.
		Cutoff time.Time
		// An article read by more than MinReads users is kept.
		MinReads int
	}

	FeedRepo interface {
		Feed(ctx context.Context, id string) (Feed, error)
		FeedByURL(ctx context.Context, url string) (Feed, error)
		AllFeeds(ctx context.Context) ([]Feed, error)
		InsertFeed(ctx context.Context, args NewFeed) (Feed, error)
		UpdateFeed(ctx context.Context, id string, args UpdateFeedArgs) error
		DeleteFeed(ctx context.Context, id string) error
	}

	ArticleRepo interface {
		Article(ctx context.Context, id string) (Article, error)
		FeedArticles(ctx context.Context, args FeedArticlesArgs) ([]Article, error)
		// InsertArticles bulk-inserts with ignore-on-conflict semantics over
		// (feed_id, guid): re-ingesting an already-seen item is a no-op.
		InsertArticles(ctx context.Context, articles []Article) error
		CountFeedArticles(ctx context.Context, feedID string) (int, error)
		// UserArticleStates returns the user's overlay for the given
		// articles, keyed by article ID. Articles without a row are absent.
		UserArticleStates(ctx context.Context, userID string, articleIDs []string) (map[string]UserArticleState, error)
		SetRead(ctx context.Context, userID, articleID string, read bool, at time.Time) error
		SetPinned(ctx context.Context, userID, articleID string, pinned bool) error
		// PurgeArticles deletes everything matching the criteria in a single
		// statement, sparing pinned and sufficiently-read articles.
		PurgeArticles(ctx context.Context, criteria PurgeCriteria) (int64, error)
		AdminEmails(ctx context.Context) ([]string, error)
	}

	Repository interface {
		FeedRepo
		ArticleRepo
	}
)
