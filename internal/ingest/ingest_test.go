package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbellamy/veilleur/internal/fetch"
	"github.com/jbellamy/veilleur/internal/veilleur"
	"github.com/jbellamy/veilleur/internal/youtube"
)

const feedXML = `<?xml version="1.0"?>
<rss version="2.0"><channel>
<title>Test Blog</title>
<item><title>First</title><guid>g-1</guid><link>https://example.com/1</link><description>Hello there.</description></item>
<item><title>Second</title><guid>g-2</guid><link>https://example.com/2</link><description>More words.</description></item>
</channel></rss>`

type fakeRepo struct {
	veilleur.Repository

	feed      veilleur.Feed
	articles  map[string]veilleur.Article
	updates   []veilleur.UpdateFeedArgs
	insertErr error
}

func newFakeRepo(kind veilleur.FeedKind, url string) *fakeRepo {
	return &fakeRepo{
		feed: veilleur.Feed{
			ID:     "feed-1",
			Name:   "Test Blog",
			URL:    url,
			Kind:   kind,
			Status: veilleur.FeedStatusPending,
		},
		articles: map[string]veilleur.Article{},
	}
}

func (f *fakeRepo) Feed(_ context.Context, id string) (veilleur.Feed, error) {
	if id != f.feed.ID {
		return veilleur.Feed{}, veilleur.ErrNotFound
	}
	return f.feed, nil
}

func (f *fakeRepo) InsertArticles(_ context.Context, articles []veilleur.Article) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	for _, a := range articles {
		key := a.FeedID + "/" + a.GUID
		if _, ok := f.articles[key]; ok {
			continue
		}
		f.articles[key] = a
	}
	return nil
}

func (f *fakeRepo) CountFeedArticles(_ context.Context, _ string) (int, error) {
	return len(f.articles), nil
}

func (f *fakeRepo) UpdateFeed(_ context.Context, _ string, args veilleur.UpdateFeedArgs) error {
	f.updates = append(f.updates, args)
	if args.Status != "" {
		f.feed.Status = args.Status
	}
	return nil
}

type stubResolver struct {
	res youtube.Resolution
	err error
}

func (s stubResolver) Resolve(_ context.Context, _ string) (youtube.Resolution, error) {
	return s.res, s.err
}

func feedServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestIngest_HappyPath(t *testing.T) {
	srv := feedServer(t, feedXML)
	repo := newFakeRepo(veilleur.FeedKindRSSManual, srv.URL)
	c := New(repo, fetch.New(time.Second), stubResolver{})

	got, err := c.Ingest(context.Background(), "feed-1")
	require.NoError(t, err)

	assert.Equal(t, 2, got.ArticlesProcessed)
	assert.Len(t, repo.articles, 2)
	assert.Equal(t, veilleur.FeedStatusActive, repo.feed.Status)

	require.Len(t, repo.updates, 1)
	assert.False(t, repo.updates[0].LastFetchedAt.IsZero())
	require.NotNil(t, repo.updates[0].ArticleCount)
	assert.Equal(t, 2, *repo.updates[0].ArticleCount)
}

func TestIngest_Idempotent(t *testing.T) {
	srv := feedServer(t, feedXML)
	repo := newFakeRepo(veilleur.FeedKindRSSManual, srv.URL)
	c := New(repo, fetch.New(time.Second), stubResolver{})

	first, err := c.Ingest(context.Background(), "feed-1")
	require.NoError(t, err)
	second, err := c.Ingest(context.Background(), "feed-1")
	require.NoError(t, err)

	assert.Equal(t, first.ArticlesProcessed, second.ArticlesProcessed)
	assert.Len(t, repo.articles, 2)
}

func TestIngest_NamesFeedFromDocument(t *testing.T) {
	srv := feedServer(t, feedXML)
	repo := newFakeRepo(veilleur.FeedKindRSSManual, srv.URL)
	repo.feed.Name = ""
	c := New(repo, fetch.New(time.Second), stubResolver{})

	_, err := c.Ingest(context.Background(), "feed-1")
	require.NoError(t, err)

	require.Len(t, repo.updates, 1)
	assert.Equal(t, "Test Blog", repo.updates[0].Name)
}

func TestIngest_KeepsExistingName(t *testing.T) {
	srv := feedServer(t, feedXML)
	repo := newFakeRepo(veilleur.FeedKindRSSManual, srv.URL)
	c := New(repo, fetch.New(time.Second), stubResolver{})

	_, err := c.Ingest(context.Background(), "feed-1")
	require.NoError(t, err)

	require.Len(t, repo.updates, 1)
	assert.Empty(t, repo.updates[0].Name)
}

func TestIngest_FeedNotFound(t *testing.T) {
	repo := newFakeRepo(veilleur.FeedKindRSSManual, "http://unused")
	c := New(repo, fetch.New(time.Second), stubResolver{})

	_, err := c.Ingest(context.Background(), "nope")
	assert.ErrorIs(t, err, veilleur.ErrNotFound)
}

func TestIngest_FetchFailureMarksError(t *testing.T) {
	srv := feedServer(t, feedXML)
	srv.Close()
	repo := newFakeRepo(veilleur.FeedKindRSSManual, srv.URL)
	c := New(repo, fetch.New(time.Second), stubResolver{})

	_, err := c.Ingest(context.Background(), "feed-1")

	var ingErr *Error
	require.ErrorAs(t, err, &ingErr)
	assert.Equal(t, StageFetch, ingErr.Stage)
	assert.Equal(t, veilleur.FeedStatusError, repo.feed.Status)
}

func TestIngest_ParseFailureMarksError(t *testing.T) {
	srv := feedServer(t, "<html><body>not a feed</body></html>")
	repo := newFakeRepo(veilleur.FeedKindRSSManual, srv.URL)
	c := New(repo, fetch.New(time.Second), stubResolver{})

	_, err := c.Ingest(context.Background(), "feed-1")

	var ingErr *Error
	require.ErrorAs(t, err, &ingErr)
	assert.Equal(t, StageParse, ingErr.Stage)
	assert.Equal(t, veilleur.FeedStatusError, repo.feed.Status)
}

func TestIngest_YouTubeResolvesBeforeFetch(t *testing.T) {
	srv := feedServer(t, feedXML)
	repo := newFakeRepo(veilleur.FeedKindYouTube, "https://www.youtube.com/@somecreator")
	resolver := stubResolver{res: youtube.Resolution{RSSURL: srv.URL, ChannelName: "Some Creator"}}
	c := New(repo, fetch.New(time.Second), resolver)

	got, err := c.Ingest(context.Background(), "feed-1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.ArticlesProcessed)
}

func TestIngest_ResolveFailureMarksError(t *testing.T) {
	repo := newFakeRepo(veilleur.FeedKindYouTube, "https://www.youtube.com/@somecreator")
	resolver := stubResolver{err: youtube.ErrRSSLinkNotFound}
	c := New(repo, fetch.New(time.Second), resolver)

	_, err := c.Ingest(context.Background(), "feed-1")

	var ingErr *Error
	require.ErrorAs(t, err, &ingErr)
	assert.Equal(t, StageResolve, ingErr.Stage)
	assert.ErrorIs(t, err, youtube.ErrRSSLinkNotFound)
	assert.Equal(t, veilleur.FeedStatusError, repo.feed.Status)
}

func TestIngest_StoreFailureLeavesStatus(t *testing.T) {
	srv := feedServer(t, feedXML)
	repo := newFakeRepo(veilleur.FeedKindRSSManual, srv.URL)
	repo.insertErr = errors.New("disk full")
	c := New(repo, fetch.New(time.Second), stubResolver{})

	_, err := c.Ingest(context.Background(), "feed-1")

	var ingErr *Error
	require.ErrorAs(t, err, &ingErr)
	assert.Equal(t, StageStore, ingErr.Stage)
	assert.Equal(t, veilleur.FeedStatusPending, repo.feed.Status)
	assert.Empty(t, repo.updates)
}
