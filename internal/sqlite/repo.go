// Package sqlite implements the domain repositories over a sqlite database.
package sqlite

import (
	"github.com/jmoiron/sqlx"

	"github.com/jbellamy/veilleur/internal/veilleur"
)

// Ensure Repo implements the Repository interface
var _ veilleur.Repository = (*Repo)(nil)

type Repo struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) Repo {
	return Repo{db: db}
}
