package api

import (
	"net/http"
	"strings"

	verrs "github.com/jbellamy/veilleur/internal/errors"
)

type PostResolveReq struct {
	URL string `json:"url"`
}

func (req PostResolveReq) Validate() error {
	if req.URL == "" {
		return verrs.E("url is required", http.StatusBadRequest, verrs.Detail{Field: "url", Error: "url is required"})
	}
	if !strings.Contains(req.URL, "youtube.com") {
		return verrs.E("not a youtube url", http.StatusBadRequest, verrs.Detail{Field: "url", Error: "must be a youtube.com url"})
	}

	return nil
}

// postYouTubeResolve previews a channel resolution without registering a
// feed, so a client can show the RSS URL and channel name before creating.
func (s Server) postYouTubeResolve(w http.ResponseWriter, r *http.Request) error {
	body, err := decodeValid[PostResolveReq](r.Body)
	if err != nil {
		return err
	}

	res, err := s.resolver.Resolve(r.Context(), body.URL)
	if err != nil {
		return verrs.E(err, http.StatusUnprocessableEntity)
	}

	return writeJSON(w, http.StatusOK, res)
}
