package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/jbellamy/veilleur/internal/veilleur"
)

const articleNamespace = "-art"

func (r Repo) Article(ctx context.Context, id string) (veilleur.Article, error) {
	const q = `SELECT * FROM articles WHERE id = ?;`

	var article veilleur.Article
	err := r.db.GetContext(ctx, &article, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return veilleur.Article{}, veilleur.ErrNotFound
	}
	if err != nil {
		return veilleur.Article{}, fmt.Errorf("error fetching article: %s", err)
	}

	return article, nil
}

func (r Repo) FeedArticles(ctx context.Context, args veilleur.FeedArticlesArgs) ([]veilleur.Article, error) {
	builder := sq.Select("*").
		From("articles").
		Where(sq.Eq{"feed_id": args.FeedID}).
		OrderBy("published_at DESC")
	if args.Limit > 0 {
		builder = builder.Limit(args.Limit).Offset(args.Offset)
	}

	q, queryArgs, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building query: %s", err)
	}

	articles := []veilleur.Article{}
	if err := r.db.SelectContext(ctx, &articles, q, queryArgs...); err != nil {
		return nil, fmt.Errorf("error fetching feed articles: %s", err)
	}

	return articles, nil
}

// InsertArticles bulk-inserts the batch. An article whose (feed_id, guid)
// already exists is skipped silently; re-ingestion must never produce a
// duplicate row or an error.
func (r Repo) InsertArticles(ctx context.Context, articles []veilleur.Article) error {
	if len(articles) == 0 {
		return nil
	}

	// Create id's for the new rows
	for i := range articles {
		articles[i].ID = fmt.Sprintf("%s%s", uuid.NewString(), articleNamespace)
	}

	const q = `INSERT INTO articles (id, feed_id, guid, title, description, content, url, image_url, published_at, read_time)
	VALUES (:id, :feed_id, :guid, :title, :description, :content, :url, :image_url, :published_at, :read_time)
	ON CONFLICT (feed_id, guid) DO NOTHING;`
	if _, err := r.db.NamedExecContext(ctx, q, articles); err != nil {
		return fmt.Errorf("error inserting articles: %s", err)
	}

	return nil
}

func (r Repo) CountFeedArticles(ctx context.Context, feedID string) (int, error) {
	const q = `SELECT COUNT(*) FROM articles WHERE feed_id = ?;`

	var count int
	if err := r.db.GetContext(ctx, &count, q, feedID); err != nil {
		return 0, fmt.Errorf("error counting articles: %s", err)
	}

	return count, nil
}

func (r Repo) SetRead(ctx context.Context, userID, articleID string, read bool, at time.Time) error {
	const q = `INSERT INTO user_articles (user_id, article_id, is_read, read_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (user_id, article_id) DO UPDATE SET is_read = excluded.is_read, read_at = excluded.read_at;`

	var readAt *time.Time
	if read {
		readAt = &at
	}
	if _, err := r.db.ExecContext(ctx, q, userID, articleID, read, readAt); err != nil {
		return fmt.Errorf("error setting read state: %s", err)
	}

	return nil
}

func (r Repo) UserArticleStates(ctx context.Context, userID string, articleIDs []string) (map[string]veilleur.UserArticleState, error) {
	states := map[string]veilleur.UserArticleState{}
	if len(articleIDs) == 0 {
		return states, nil
	}

	q, args, err := sq.Select("*").
		From("user_articles").
		Where(sq.Eq{"user_id": userID, "article_id": articleIDs}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building query: %s", err)
	}

	rows := []veilleur.UserArticleState{}
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("error fetching user article states: %s", err)
	}

	for _, row := range rows {
		states[row.ArticleID] = row
	}

	return states, nil
}

func (r Repo) SetPinned(ctx context.Context, userID, articleID string, pinned bool) error {
	const q = `INSERT INTO user_articles (user_id, article_id, is_pinned)
	VALUES (?, ?, ?)
	ON CONFLICT (user_id, article_id) DO UPDATE SET is_pinned = excluded.is_pinned;`

	if _, err := r.db.ExecContext(ctx, q, userID, articleID, pinned); err != nil {
		return fmt.Errorf("error setting pinned state: %s", err)
	}

	return nil
}

// PurgeArticles deletes aged articles in one statement so no partial
// deletion is ever visible mid-run. Articles pinned by anyone or read by
// more than criteria.MinReads users survive.
func (r Repo) PurgeArticles(ctx context.Context, criteria veilleur.PurgeCriteria) (int64, error) {
	q := sq.Delete("articles").
		Where(sq.Lt{"published_at": criteria.Cutoff}).
		Where(`id NOT IN (SELECT article_id FROM user_articles WHERE is_pinned = 1)`).
		Where(`id NOT IN (
			SELECT article_id FROM user_articles
			WHERE is_read = 1
			GROUP BY article_id
			HAVING COUNT(*) > ?)`, criteria.MinReads)

	query, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("error constructing sql: %s", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("error purging articles: %s", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error reading purge result: %s", err)
	}

	return deleted, nil
}

// AdminEmails lists the recipients of the purge report.
func (r Repo) AdminEmails(ctx context.Context) ([]string, error) {
	const q = `SELECT email FROM users WHERE is_admin = 1 ORDER BY email;`

	emails := []string{}
	if err := r.db.SelectContext(ctx, &emails, q); err != nil {
		return nil, fmt.Errorf("error fetching admin emails: %s", err)
	}

	return emails, nil
}
