package errors_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	verrs "github.com/jbellamy/veilleur/internal/errors"
)

func TestEConstructor(t *testing.T) {
	got := verrs.E(
		"something went wrong",
		verrs.Detail{Field: "url", Error: "was bad"},
		http.StatusBadRequest,
	)
	want := &verrs.Error{
		Err: errors.New("something went wrong"),
		Details: []verrs.Detail{
			{Field: "url", Error: "was bad"},
		},
		Status: http.StatusBadRequest,
	}

	assert.Equal(t, want, got)
}

func TestMarshalRoundTrip(t *testing.T) {
	orig := verrs.E("feed not found", http.StatusNotFound)

	byts, err := orig.MarshalJSON()
	assert.NoError(t, err)

	var back verrs.Error
	assert.NoError(t, back.UnmarshalJSON(byts))
	assert.Equal(t, http.StatusNotFound, back.Status)
	assert.Equal(t, "feed not found", back.Err.Error())
}
