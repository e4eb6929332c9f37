package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	verrs "github.com/jbellamy/veilleur/internal/errors"
	"github.com/jbellamy/veilleur/internal/ingest"
	"github.com/jbellamy/veilleur/internal/purge"
	"github.com/jbellamy/veilleur/internal/veilleur"
)

type workflows struct{}

// CreateFeedInput carries the registration fields into the workflow.
type CreateFeedInput struct {
	Name string            `json:"name"`
	URL  string            `json:"url"`
	Kind veilleur.FeedKind `json:"kind"`
}

// TriggerCreateFeedWorkflow starts feed creation and waits for the feed ID.
func TriggerCreateFeedWorkflow(ctx context.Context, c client.Client, input CreateFeedInput) (string, error) {
	options := client.StartWorkflowOptions{
		TaskQueue: TaskQueue,
	}
	we, err := c.ExecuteWorkflow(ctx, options, workflows{}.CreateFeed, input)
	if err != nil {
		return "", fmt.Errorf("unable to execute workflow: %s", err)
	}

	var feedID string
	err = we.Get(ctx, &feedID)
	vErr := &verrs.Error{}
	if asAppErr(err, &vErr) {
		return "", vErr
	}
	if err != nil {
		return "", fmt.Errorf("error executing workflow: %s", err)
	}

	return feedID, nil
}

// TriggerIngestFeedWorkflow refreshes one feed and waits for the outcome.
func TriggerIngestFeedWorkflow(ctx context.Context, c client.Client, feedID string) (ingest.Result, error) {
	options := client.StartWorkflowOptions{
		TaskQueue: TaskQueue,
	}
	we, err := c.ExecuteWorkflow(ctx, options, workflows{}.IngestFeed, feedID)
	if err != nil {
		return ingest.Result{}, fmt.Errorf("unable to execute workflow: %s", err)
	}

	var res ingest.Result
	err = we.Get(ctx, &res)
	vErr := &verrs.Error{}
	if asAppErr(err, &vErr) {
		return ingest.Result{}, vErr
	}
	if err != nil {
		return ingest.Result{}, fmt.Errorf("error executing workflow: %s", err)
	}

	return res, nil
}

func defaultActivityOptions() workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumAttempts:    3, // 0 is unlimited retries
		},
	}
}

// CreateFeed inserts a new pending feed, resolves it if it points at a
// youtube channel, and runs a first ingestion.
//
// Returns the ID of the created feed. A failed resolution leaves the feed
// pending and a failed first ingestion leaves it errored; both still return
// the ID so the caller can show the feed and its status.
func (workflows) CreateFeed(ctx workflow.Context, input CreateFeedInput) (string, error) {
	ctx = workflow.WithActivityOptions(ctx, defaultActivityOptions())

	// Insert the feed
	var feedID string
	args := veilleur.NewFeed{Name: input.Name, URL: input.URL, Kind: input.Kind}
	if err := workflow.ExecuteActivity(ctx, acts.CreateFeed, args).Get(ctx, &feedID); err != nil {
		slog.Error("failed to create feed", "error", err)
		return "", err
	}

	// Swap the channel URL for its RSS document URL
	if input.Kind == veilleur.FeedKindYouTube {
		if err := workflow.ExecuteActivity(ctx, acts.ResolveFeed, feedID).Get(ctx, nil); err != nil {
			slog.Error("failed to resolve channel", "feed_id", feedID, "error", err)
			return feedID, nil
		}
	}

	// First ingestion. The coordinator marks the feed errored itself, so a
	// failure here is reported through feed status rather than the workflow.
	if err := workflow.ExecuteActivity(ctx, acts.IngestFeed, feedID).Get(ctx, nil); err != nil {
		slog.Error("failed first ingestion", "feed_id", feedID, "error", err)
	}

	return feedID, nil
}

// IngestFeed refreshes a single feed on demand.
func (workflows) IngestFeed(ctx workflow.Context, feedID string) (ingest.Result, error) {
	ctx = workflow.WithActivityOptions(ctx, defaultActivityOptions())

	var res ingest.Result
	if err := workflow.ExecuteActivity(ctx, acts.IngestFeed, feedID).Get(ctx, &res); err != nil {
		slog.Error("failed to ingest feed", "feed_id", feedID, "error", err)
		return ingest.Result{}, err
	}

	return res, nil
}

// SyncAllFeeds refreshes every registered feed. Each feed fails or succeeds
// on its own; one broken source never blocks the rest.
func (workflows) SyncAllFeeds(ctx workflow.Context) error {
	ctx = workflow.WithActivityOptions(ctx, defaultActivityOptions())

	var feeds []veilleur.Feed
	if err := workflow.ExecuteActivity(ctx, acts.AllFeeds).Get(ctx, &feeds); err != nil {
		slog.Error("failed to list feeds", "error", err)
		return err
	}

	wg := workflow.NewWaitGroup(ctx)
	wg.Add(len(feeds))
	for _, feed := range feeds {
		workflow.Go(ctx, func(ctx workflow.Context) {
			defer wg.Done()

			if err := workflow.ExecuteActivity(ctx, acts.IngestFeed, feed.ID).Get(ctx, nil); err != nil {
				slog.Error("failed to ingest feed", "feed_id", feed.ID, "error", err)
			}
		})
	}

	wg.Wait(ctx)

	return nil
}

// PurgeArticles runs the retention sweep and mails out the summary.
func (workflows) PurgeArticles(ctx workflow.Context) error {
	ctx = workflow.WithActivityOptions(ctx, defaultActivityOptions())

	var rep purge.Report
	if err := workflow.ExecuteActivity(ctx, acts.PurgeArticles).Get(ctx, &rep); err != nil {
		slog.Error("failed to purge articles", "error", err)
		return err
	}

	if err := workflow.ExecuteActivity(ctx, acts.SendReport, rep).Get(ctx, nil); err != nil {
		slog.Error("failed to send purge report", "error", err)
		return err
	}

	return nil
}
