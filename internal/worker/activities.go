package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.temporal.io/sdk/temporal"

	verrs "github.com/jbellamy/veilleur/internal/errors"
	"github.com/jbellamy/veilleur/internal/ingest"
	"github.com/jbellamy/veilleur/internal/purge"
	"github.com/jbellamy/veilleur/internal/report"
	"github.com/jbellamy/veilleur/internal/veilleur"
	"github.com/jbellamy/veilleur/internal/youtube"
)

type activities struct {
	repo     veilleur.Repository
	coord    *ingest.Coordinator
	resolver *youtube.Resolver
	sweeper  *purge.Sweeper
	sender   report.Sender
}

// Instance to make the workflow a bit more readable
var acts = activities{}

// Fetches a single feed.
func (a activities) Feed(ctx context.Context, feedID string) (veilleur.Feed, error) {
	feed, err := a.repo.Feed(ctx, feedID)
	if err != nil {
		return veilleur.Feed{}, err
	}

	return feed, nil
}

// Fetches all feeds registered in the system.
func (a activities) AllFeeds(ctx context.Context) ([]veilleur.Feed, error) {
	feeds, err := a.repo.AllFeeds(ctx)
	if err != nil {
		return nil, err
	}

	return feeds, nil
}

// Inserts a new pending feed. Registering an already-known URL hands back
// the existing feed's ID instead of failing.
func (a activities) CreateFeed(ctx context.Context, args veilleur.NewFeed) (string, error) {
	feed, err := a.repo.InsertFeed(ctx, args)
	if errors.Is(err, veilleur.ErrConflict) {
		feed, err = a.repo.FeedByURL(ctx, args.URL)
		if err != nil {
			return "", fmt.Errorf("error fetching conflicting feed: %s", err)
		}

		return feed.ID, nil
	}
	if err != nil {
		return "", fmt.Errorf("error inserting feed: %w", err)
	}

	return feed.ID, nil
}

// Turns a youtube feed's channel URL into its RSS document URL and fills in
// the channel name when the feed was registered without one.
func (a activities) ResolveFeed(ctx context.Context, feedID string) error {
	feed, err := a.repo.Feed(ctx, feedID)
	if err != nil {
		return err
	}

	res, err := a.resolver.Resolve(ctx, feed.URL)
	if err != nil {
		return temporal.NewApplicationError("error resolving channel", errTypeResolve, verrs.E(err, http.StatusUnprocessableEntity))
	}

	args := veilleur.UpdateFeedArgs{URL: res.RSSURL}
	if feed.Name == "" {
		args.Name = res.ChannelName
	}

	if err := a.repo.UpdateFeed(ctx, feed.ID, args); err != nil {
		return fmt.Errorf("error updating resolved feed: %w", err)
	}

	return nil
}

// Runs the full ingestion pipeline for one feed.
func (a activities) IngestFeed(ctx context.Context, feedID string) (ingest.Result, error) {
	res, err := a.coord.Ingest(ctx, feedID)

	var ingErr *ingest.Error
	if errors.As(err, &ingErr) {
		return ingest.Result{}, temporal.NewApplicationError("error ingesting feed", errTypeIngest, verrs.E(ingErr, http.StatusBadGateway))
	}
	if err != nil {
		return ingest.Result{}, err
	}

	return res, nil
}

// Runs the retention sweep.
func (a activities) PurgeArticles(ctx context.Context) (purge.Report, error) {
	rep, err := a.sweeper.Run(ctx, time.Now())
	if err != nil {
		return purge.Report{}, err
	}

	return rep, nil
}

// Delivers the sweep summary to the admins.
func (a activities) SendReport(ctx context.Context, rep purge.Report) error {
	if err := a.sender.Send(ctx, rep); err != nil {
		return fmt.Errorf("error sending purge report: %w", err)
	}

	return nil
}
