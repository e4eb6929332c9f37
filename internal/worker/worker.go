// Package worker hosts the temporal workflows and activities that drive
// ingestion and retention: feed creation, per-feed refresh, the periodic
// sync of every feed, and the daily purge sweep.
package worker

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/jbellamy/veilleur/internal/ingest"
	"github.com/jbellamy/veilleur/internal/purge"
	"github.com/jbellamy/veilleur/internal/report"
	"github.com/jbellamy/veilleur/internal/veilleur"
	"github.com/jbellamy/veilleur/internal/youtube"
)

const TaskQueue = "shared"

// Schedule IDs. Stable across deploys so existing schedules are updated
// rather than duplicated.
const (
	scheduleSyncAll = "sync_all"
	schedulePurge   = "purge_articles"
)

// Config carries the schedule cadences.
type Config struct {
	SyncInterval  time.Duration
	PurgeInterval time.Duration
}

// NewWorker sets up the worker with registration of workflows, activities, and schedules.
func NewWorker(ctx context.Context, cfg Config, repo veilleur.Repository, cli client.Client, coord *ingest.Coordinator, resolver *youtube.Resolver, sweeper *purge.Sweeper, sender report.Sender) (worker.Worker, error) {
	a := activities{
		repo:     repo,
		coord:    coord,
		resolver: resolver,
		sweeper:  sweeper,
		sender:   sender,
	}

	w := worker.New(cli, TaskQueue, worker.Options{})

	if err := registerEverything(ctx, cfg, w, a, cli); err != nil {
		return nil, fmt.Errorf("error registering workflows and activities: %T, %v", err, err)
	}

	return w, nil
}

func registerEverything(ctx context.Context, cfg Config, w worker.Worker, a activities, cli client.Client) error {
	// Workflows
	wfs := workflows{}
	w.RegisterWorkflow(wfs.CreateFeed)
	w.RegisterWorkflow(wfs.IngestFeed)
	w.RegisterWorkflow(wfs.SyncAllFeeds)
	w.RegisterWorkflow(wfs.PurgeArticles)

	// Activities
	w.RegisterActivity(&a)

	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = 15 * time.Minute
	}
	if cfg.PurgeInterval <= 0 {
		cfg.PurgeInterval = 24 * time.Hour
	}

	// Schedules:
	// Sync every feed
	handle := cli.ScheduleClient().GetHandle(ctx, scheduleSyncAll)
	if _, err := handle.Describe(ctx); err != nil {
		handle, err = cli.ScheduleClient().Create(ctx, client.ScheduleOptions{
			ID: scheduleSyncAll,
			Spec: client.ScheduleSpec{
				Intervals: []client.ScheduleIntervalSpec{{Every: cfg.SyncInterval}},
			},
			Action: &client.ScheduleWorkflowAction{
				ID:        scheduleSyncAll,
				Workflow:  wfs.SyncAllFeeds,
				TaskQueue: TaskQueue,
			},
			TriggerImmediately: true,
		})
		if err != nil {
			return err
		}
	}
	handle.Update(ctx, client.ScheduleUpdateOptions{
		DoUpdate: func(input client.ScheduleUpdateInput) (*client.ScheduleUpdate, error) {
			return &client.ScheduleUpdate{
				Schedule: &input.Description.Schedule,
			}, nil
		},
	})
	// Purge old articles
	handle = cli.ScheduleClient().GetHandle(ctx, schedulePurge)
	if _, err := handle.Describe(ctx); err != nil {
		handle, err = cli.ScheduleClient().Create(ctx, client.ScheduleOptions{
			ID: schedulePurge,
			Spec: client.ScheduleSpec{
				Intervals: []client.ScheduleIntervalSpec{{Every: cfg.PurgeInterval}},
			},
			Action: &client.ScheduleWorkflowAction{
				ID:        schedulePurge,
				Workflow:  wfs.PurgeArticles,
				TaskQueue: TaskQueue,
			},
		})
		if err != nil {
			return err
		}
	}
	handle.Update(ctx, client.ScheduleUpdateOptions{
		DoUpdate: func(input client.ScheduleUpdateInput) (*client.ScheduleUpdate, error) {
			return &client.ScheduleUpdate{
				Schedule: &input.Description.Schedule,
			}, nil
		},
	})

	return nil
}
