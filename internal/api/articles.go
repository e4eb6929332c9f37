package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/gorilla/mux"
	"github.com/sym01/htmlsanitizer"

	verrs "github.com/jbellamy/veilleur/internal/errors"
	"github.com/jbellamy/veilleur/internal/veilleur"
)

type ArticleResp struct {
	ID          string    `json:"id"`
	FeedID      string    `json:"feed_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Content     string    `json:"content"`
	URL         string    `json:"url"`
	ImageURL    string    `json:"image_url"`
	PublishedAt time.Time `json:"published_at"`
	ReadTime    int       `json:"read_time"`
	IsRead      bool      `json:"is_read"`
	IsPinned    bool      `json:"is_pinned"`
}

func apiArticle(a veilleur.Article, state veilleur.UserArticleState) ArticleResp {
	var (
		articleURL string
		imageURL   string
	)
	if a.URL != nil {
		articleURL = *a.URL
	}
	if a.ImageURL != nil {
		imageURL = *a.ImageURL
	}

	return ArticleResp{
		ID:          a.ID,
		FeedID:      a.FeedID,
		Title:       a.Title,
		Description: a.Description,
		Content:     a.Content,
		URL:         articleURL,
		ImageURL:    imageURL,
		PublishedAt: a.PublishedAt,
		ReadTime:    a.ReadTime,
		IsRead:      state.IsRead,
		IsPinned:    state.IsPinned,
	}
}

type ArticleListResp struct {
	Articles   []ArticleResp `json:"articles"`
	Pagination PageMeta      `json:"pagination"`
}

// PageMeta echoes the window a list response covers.
type PageMeta struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total,omitempty"`
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// pageWindow reads ?limit= and ?offset= from the request, clamping bad or
// oversized values back to the defaults.
func pageWindow(r *http.Request) (limit, offset int) {
	q := r.URL.Query()

	limit, _ = strconv.Atoi(q.Get("limit"))
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}

	offset, _ = strconv.Atoi(q.Get("offset"))
	if offset < 0 {
		offset = 0
	}

	return limit, offset
}

func (s Server) getFeedArticles(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx    = r.Context()
		feedID = mux.Vars(r)["feedID"]
		userID = r.Header.Get(userIDHeader)
	)

	if _, err := s.repo.Feed(ctx, feedID); err != nil {
		return err
	}

	limit, offset := pageWindow(r)

	total, err := s.repo.CountFeedArticles(ctx, feedID)
	if err != nil {
		return err
	}

	articles, err := s.repo.FeedArticles(ctx, veilleur.FeedArticlesArgs{
		FeedID: feedID,
		Limit:  uint64(limit),
		Offset: uint64(offset),
	})
	if err != nil {
		return err
	}

	states := map[string]veilleur.UserArticleState{}
	if userID != "" {
		ids := make([]string, 0, len(articles))
		for _, a := range articles {
			ids = append(ids, a.ID)
		}
		states, err = s.repo.UserArticleStates(ctx, userID, ids)
		if err != nil {
			return err
		}
	}

	resp := ArticleListResp{
		Articles:   []ArticleResp{},
		Pagination: PageMeta{Limit: limit, Offset: offset, Total: total},
	}
	for _, a := range articles {
		resp.Articles = append(resp.Articles, apiArticle(a, states[a.ID]))
	}

	return writeJSON(w, http.StatusOK, resp)
}

type ReaderResp struct {
	ID            string    `json:"id"`
	FeedID        string    `json:"feed_id"`
	URL           string    `json:"url"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	CreatedAt     time.Time `json:"created_at"`
	ReaderContent string    `json:"reader_content"`
}

func (s Server) getArticleReader(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx       = r.Context()
		articleID = mux.Vars(r)["articleID"]
	)

	article, err := s.repo.Article(ctx, articleID)
	if err != nil {
		return err
	}

	// Cache results for less processing and prevent refetches
	if resp, ok := s.readerCache.Get(articleID); ok {
		return writeJSON(w, http.StatusOK, resp)
	}

	if article.URL == nil {
		return verrs.E("article has no source url", http.StatusUnprocessableEntity)
	}

	u, err := url.Parse(*article.URL)
	if err != nil {
		return fmt.Errorf("error with the article's url: %s", err)
	}

	// Fetch the actual site
	resp, err := s.fetchClient.Get(*article.URL)
	if err != nil {
		return verrs.E(err, http.StatusBadGateway)
	}
	defer resp.Body.Close()

	// Strip it for readability and sanitize
	parser := readability.NewParser()
	parsed, err := parser.Parse(resp.Body, u)
	if err != nil {
		return err
	}

	sanitizer := htmlsanitizer.NewHTMLSanitizer()
	contents, err := sanitizer.SanitizeString(parsed.Content)
	if err != nil {
		return err
	}

	ret := ReaderResp{
		ID:            article.ID,
		FeedID:        article.FeedID,
		URL:           *article.URL,
		Title:         article.Title,
		Description:   article.Description,
		CreatedAt:     article.CreatedAt,
		ReaderContent: contents,
	}
	// Add to the cache for next time
	s.readerCache.Add(article.ID, ret)

	return writeJSON(w, http.StatusOK, ret)
}

type PutReadReq struct {
	Read bool `json:"read"`
}

func (req PutReadReq) Validate() error { return nil }

func (s Server) putArticleRead(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx       = r.Context()
		articleID = mux.Vars(r)["articleID"]
	)

	userID, err := requestUserID(r)
	if err != nil {
		return err
	}

	body, err := decodeValid[PutReadReq](r.Body)
	if err != nil {
		return err
	}

	if _, err := s.repo.Article(ctx, articleID); err != nil {
		return err
	}

	if err := s.repo.SetRead(ctx, userID, articleID, body.Read, time.Now().UTC()); err != nil {
		return err
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

type PutPinnedReq struct {
	Pinned bool `json:"pinned"`
}

func (req PutPinnedReq) Validate() error { return nil }

func (s Server) putArticlePinned(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx       = r.Context()
		articleID = mux.Vars(r)["articleID"]
	)

	userID, err := requestUserID(r)
	if err != nil {
		return err
	}

	body, err := decodeValid[PutPinnedReq](r.Body)
	if err != nil {
		return err
	}

	if _, err := s.repo.Article(ctx, articleID); err != nil {
		return err
	}

	if err := s.repo.SetPinned(ctx, userID, articleID, body.Pinned); err != nil {
		return err
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}
