// Package api exposes the HTTP surface: feed management, article listing,
// per-user read/pin state, the reader view, and channel resolution.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.temporal.io/sdk/client"

	verrs "github.com/jbellamy/veilleur/internal/errors"
	"github.com/jbellamy/veilleur/internal/veilleur"
	"github.com/jbellamy/veilleur/internal/youtube"
)

func writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("error encoding json response: %s", err)
	}

	return nil
}

// validator is a surface that can validate itself and return an error
// if something is wrong.
type validator interface {
	Validate() error
}

// decodeValid decodes a request and then validates it.
func decodeValid[V validator](r io.Reader) (V, error) {
	var v V
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		return v, verrs.E(fmt.Errorf("error decoding request: %w", err), http.StatusBadRequest)
	}
	if err := v.Validate(); err != nil {
		return v, err
	}

	return v, nil
}

// HandlerFuncE is a modified type of [http.HandlerFunc] that returns an error.
type HandlerFuncE func(w http.ResponseWriter, r *http.Request) error

func (f HandlerFuncE) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	err := f(w, r)
	if err == nil {
		return
	}

	// Map the common repository errors before coercing
	if errors.Is(err, veilleur.ErrNotFound) {
		err = verrs.E(err, http.StatusNotFound)
	}
	if errors.Is(err, veilleur.ErrConflict) {
		err = verrs.E(err, http.StatusConflict)
	}

	// Either it's already a structured error, or coerce it to one
	sErr := &verrs.Error{}
	if !errors.As(err, &sErr) {
		slog.Error("unstructured handler error", "err", err)
		sErr = verrs.E(http.StatusInternalServerError, "internal server error")
	}

	if err := writeJSON(w, sErr.Status, sErr); err != nil {
		slog.Error("error writing response", "error", err)
	}
}

// errRouter is a newtype around a mux router that allows attaching handlers that return errors.
type errRouter struct {
	*mux.Router
}

func (r errRouter) HandleFuncE(path string, f HandlerFuncE) *mux.Route {
	return r.Handle(path, f)
}

type (
	// Server is an instance of the aggregation server and handles requests
	// to manage feeds, browse articles, and mark them read or pinned.
	Server struct {
		*http.Server

		fetchClient *http.Client
		readerCache *lru.Cache[string, ReaderResp]

		repo     veilleur.Repository
		resolver *youtube.Resolver
		tempCli  client.Client
	}

	ServerConfig struct {
		Port       int
		CorsHeader string
	}
)

func NewServer(config ServerConfig, repo veilleur.Repository, resolver *youtube.Resolver, temporalCli client.Client) *Server {
	var (
		r        = errRouter{Router: mux.NewRouter()}
		cache, _ = lru.New[string, ReaderResp](1024)
	)

	srvr := Server{
		fetchClient: &http.Client{
			Timeout: 2 * time.Second,
		},
		readerCache: cache,
		repo:        repo,
		resolver:    resolver,
		tempCli:     temporalCli,
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%d", config.Port),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
			Handler: handlers.CORS(
				handlers.AllowedOrigins([]string{config.CorsHeader}),
				handlers.AllowCredentials(),
				handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
				handlers.AllowedHeaders([]string{"content-type", "x-user-id"}),
			)(r),
		},
	}

	r.Use(accessLogMiddleware) // Log everything

	// Feed management
	r.HandleFuncE("/api/feeds", srvr.postFeeds).Methods(http.MethodPost)
	r.HandleFuncE("/api/feeds", srvr.getFeeds).Methods(http.MethodGet)
	r.HandleFuncE("/api/feeds/{feedID}", srvr.getFeed).Methods(http.MethodGet)
	r.HandleFuncE("/api/feeds/{feedID}", srvr.deleteFeed).Methods(http.MethodDelete)
	r.HandleFuncE("/api/feeds/{feedID}/refresh", srvr.postFeedRefresh).Methods(http.MethodPost)

	// Articles
	r.HandleFuncE("/api/feeds/{feedID}/articles", srvr.getFeedArticles).Methods(http.MethodGet)
	r.HandleFuncE("/api/articles/{articleID}/reader", srvr.getArticleReader).Methods(http.MethodGet)
	r.HandleFuncE("/api/articles/{articleID}/read", srvr.putArticleRead).Methods(http.MethodPut)
	r.HandleFuncE("/api/articles/{articleID}/pinned", srvr.putArticlePinned).Methods(http.MethodPut)

	// Resolution preview
	r.HandleFuncE("/api/youtube/resolve", srvr.postYouTubeResolve).Methods(http.MethodPost)

	slog.Debug("configured veilleur server", "port", config.Port)

	return &srvr
}
