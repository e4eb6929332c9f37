package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello feed"))
	}))
	defer srv.Close()

	doc, err := New(time.Second).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "hello feed", doc.Body)
	assert.Equal(t, srv.URL+"/", doc.FinalURL)
}

func TestFetch_FollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("moved here"))
	})
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/feed.xml", http.StatusMovedPermanently)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	doc, err := New(time.Second).Fetch(context.Background(), srv.URL+"/old")
	require.NoError(t, err)
	assert.Equal(t, "moved here", doc.Body)
	assert.Equal(t, srv.URL+"/feed.xml", doc.FinalURL)
}

func TestFetch_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(time.Second).Fetch(context.Background(), srv.URL)
	require.Error(t, err)

	var fErr *Error
	require.ErrorAs(t, err, &fErr)
	assert.Equal(t, KindHTTPStatus, fErr.Kind)
	assert.Equal(t, http.StatusNotFound, fErr.Status)
}

func TestFetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	_, err := New(20*time.Millisecond).Fetch(context.Background(), srv.URL)
	require.Error(t, err)

	var fErr *Error
	require.ErrorAs(t, err, &fErr)
	assert.Equal(t, KindTimeout, fErr.Kind)
}

func TestFetch_Unreachable(t *testing.T) {
	// A closed server gives a connection refusal, not a timeout.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(time.Second).Fetch(context.Background(), url)
	require.Error(t, err)

	var fErr *Error
	require.ErrorAs(t, err, &fErr)
	assert.Equal(t, KindUnreachable, fErr.Kind)
}
