package api

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"

	verrs "github.com/jbellamy/veilleur/internal/errors"
	"github.com/jbellamy/veilleur/internal/veilleur"
	"github.com/jbellamy/veilleur/internal/worker"
)

type PostFeedReq struct {
	Name string            `json:"name"`
	URL  string            `json:"url"`
	Kind veilleur.FeedKind `json:"kind"`
}

func (req PostFeedReq) Validate() error {
	var details []verrs.Detail
	if req.URL == "" {
		details = append(details, verrs.Detail{Field: "url", Error: "url is required"})
	} else if _, err := url.ParseRequestURI(req.URL); err != nil {
		details = append(details, verrs.Detail{Field: "url", Error: "url is not valid"})
	}
	if !req.Kind.Valid() {
		details = append(details, verrs.Detail{Field: "kind", Error: "unknown feed kind"})
	}
	if len(details) > 0 {
		return verrs.E("invalid feed", http.StatusBadRequest, details)
	}

	return nil
}

type FeedResp struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	URL           string              `json:"url"`
	Kind          veilleur.FeedKind   `json:"kind"`
	Status        veilleur.FeedStatus `json:"status"`
	LastFetchedAt *time.Time          `json:"last_fetched_at"`
	ArticleCount  int                 `json:"article_count"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func apiFeed(f veilleur.Feed) FeedResp {
	return FeedResp{
		ID:            f.ID,
		Name:          f.Name,
		URL:           f.URL,
		Kind:          f.Kind,
		Status:        f.Status,
		LastFetchedAt: f.LastFetchedAt,
		ArticleCount:  f.ArticleCount,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
}

func (s Server) postFeeds(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	body, err := decodeValid[PostFeedReq](r.Body)
	if err != nil {
		return err
	}

	// Start the workflow to create and first-sync it
	feedID, err := worker.TriggerCreateFeedWorkflow(ctx, s.tempCli, worker.CreateFeedInput{
		Name: body.Name,
		URL:  body.URL,
		Kind: body.Kind,
	})
	if err != nil {
		return err
	}

	feed, err := s.repo.Feed(ctx, feedID)
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusCreated, apiFeed(feed))
}

type FeedListResp struct {
	Feeds []FeedResp `json:"feeds"`
}

func (s Server) getFeeds(w http.ResponseWriter, r *http.Request) error {
	feeds, err := s.repo.AllFeeds(r.Context())
	if err != nil {
		return err
	}

	resp := FeedListResp{
		Feeds: []FeedResp{},
	}
	for _, feed := range feeds {
		resp.Feeds = append(resp.Feeds, apiFeed(feed))
	}

	return writeJSON(w, http.StatusOK, resp)
}

func (s Server) getFeed(w http.ResponseWriter, r *http.Request) error {
	feed, err := s.repo.Feed(r.Context(), mux.Vars(r)["feedID"])
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, apiFeed(feed))
}

func (s Server) deleteFeed(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx    = r.Context()
		feedID = mux.Vars(r)["feedID"]
	)

	// Confirm it exists so a bogus ID 404s instead of silently succeeding
	if _, err := s.repo.Feed(ctx, feedID); err != nil {
		return err
	}

	if err := s.repo.DeleteFeed(ctx, feedID); err != nil {
		return err
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

type RefreshResp struct {
	ArticlesProcessed int `json:"articles_processed"`
}

func (s Server) postFeedRefresh(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx    = r.Context()
		feedID = mux.Vars(r)["feedID"]
	)

	if _, err := s.repo.Feed(ctx, feedID); err != nil {
		return err
	}

	res, err := worker.TriggerIngestFeedWorkflow(ctx, s.tempCli, feedID)
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, RefreshResp{ArticlesProcessed: res.ArticlesProcessed})
}
