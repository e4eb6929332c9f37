package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"modernc.org/sqlite"

	"github.com/jbellamy/veilleur/internal/veilleur"
)

const feedNamespace = "-fd"

// sqlite error code for a UNIQUE constraint violation.
const codeConstraintUnique = 2067

func (r Repo) Feed(ctx context.Context, id string) (veilleur.Feed, error) {
	const q = `SELECT * FROM feeds WHERE id = ?;`

	var feed veilleur.Feed
	err := r.db.GetContext(ctx, &feed, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return veilleur.Feed{}, veilleur.ErrNotFound
	}
	if err != nil {
		return veilleur.Feed{}, fmt.Errorf("error fetching feed: %s", err)
	}

	return feed, nil
}

func (r Repo) FeedByURL(ctx context.Context, url string) (veilleur.Feed, error) {
	const q = `SELECT * FROM feeds WHERE url = ?;`

	var feed veilleur.Feed
	err := r.db.GetContext(ctx, &feed, q, url)
	if errors.Is(err, sql.ErrNoRows) {
		return veilleur.Feed{}, veilleur.ErrNotFound
	}
	if err != nil {
		return veilleur.Feed{}, fmt.Errorf("error fetching feed: %s", err)
	}

	return feed, nil
}

// AllFeeds retrieves _all_ feeds from the database.
func (r Repo) AllFeeds(ctx context.Context) ([]veilleur.Feed, error) {
	const q = `SELECT * FROM feeds ORDER BY created_at;`

	feeds := []veilleur.Feed{}
	if err := r.db.SelectContext(ctx, &feeds, q); err != nil {
		return nil, fmt.Errorf("error selecting all feeds: %s", err)
	}

	return feeds, nil
}

func (r Repo) InsertFeed(ctx context.Context, args veilleur.NewFeed) (veilleur.Feed, error) {
	const q = `INSERT INTO feeds (id, name, url, kind) VALUES (:id, :name, :url, :kind);`

	f := veilleur.Feed{
		ID:   fmt.Sprintf("%s%s", uuid.NewString(), feedNamespace),
		Name: args.Name,
		URL:  args.URL,
		Kind: args.Kind,
	}
	_, err := r.db.NamedExecContext(ctx, q, f)
	if sqliteErr := (&sqlite.Error{}); errors.As(err, &sqliteErr) && sqliteErr.Code() == codeConstraintUnique {
		return veilleur.Feed{}, fmt.Errorf("feed already exists: %w", veilleur.ErrConflict)
	}
	if err != nil {
		return veilleur.Feed{}, fmt.Errorf("error inserting feed: %s", err)
	}

	return r.Feed(ctx, f.ID)
}

func (r Repo) UpdateFeed(ctx context.Context, id string, args veilleur.UpdateFeedArgs) error {
	q := sq.Update("feeds")
	if args.Name != "" {
		q = q.Set("name", args.Name)
	}
	if args.URL != "" {
		q = q.Set("url", args.URL)
	}
	if args.Status != "" {
		q = q.Set("status", args.Status)
	}
	if !args.LastFetchedAt.IsZero() {
		q = q.Set("last_fetched_at", args.LastFetchedAt)
	}
	if args.ArticleCount != nil {
		q = q.Set("article_count", *args.ArticleCount)
	}
	q = q.Set("updated_at", time.Now().UTC()).Where(sq.Eq{"id": id})

	query, qArgs, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("error constructing sql: %s", err)
	}
	if _, err := r.db.ExecContext(ctx, query, qArgs...); err != nil {
		return fmt.Errorf("error executing feed update: %s", err)
	}

	return nil
}

// DeleteFeed removes the feed; its articles cascade away with it.
func (r Repo) DeleteFeed(ctx context.Context, id string) error {
	const q = `DELETE FROM feeds WHERE id = ?;`

	if _, err := r.db.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("error deleting feed: %s", err)
	}

	return nil
}
