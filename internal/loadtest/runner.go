package loadtest

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/okian/recap/internal/client"
	"github.com/okian/recap/internal/domain/model"
	"github.com/okian/recap/pkg/logger"
)

// workerChannelMultiplier sizes the work channel relative to the pool.
const workerChannelMultiplier = 2

// Run executes a complete load run and writes a summary to w. The returned
// stats are valid even when verification fails.
func Run(ctx context.Context, cfg *Config, w io.Writer) (*Stats, error) {
	log := logger.Get().Named("loadtest")
	stats := &Stats{StartTime: time.Now(), Planned: cfg.Cappers}
	c := client.New(cfg.BaseURL, client.WithTimeout(cfg.Timeout))

	log.Info(ctx, "starting load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("cappers", cfg.Cappers),
		logger.Int("workers", cfg.Workers),
		logger.Int("replayEvery", cfg.ReplayEvery),
		logger.Bool("cleanup", cfg.Cleanup))

	// Step 1: Check the server answers
	if _, err := c.Leaderboard(ctx); err != nil {
		return stats, fmt.Errorf("server check failed: %w", err)
	}

	plan := generatePlan(cfg.Cappers)

	// Step 2: Add cappers, replaying some keys
	if err := addCappers(ctx, c, cfg, plan, stats); err != nil {
		return stats, err
	}

	// Step 3: Commit names and units
	commitCappers(ctx, c, cfg, plan, stats)

	// Step 4: Verify the published board
	v, err := c.Leaderboard(ctx)
	if err != nil {
		return stats, fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	stats.Rows = len(v.Rows)
	verifyErr := verifyBoard(plan, &v)

	// Step 5: Remove what was added
	if cfg.Cleanup {
		deleteCappers(ctx, c, cfg, plan, stats)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayStats(w, stats)

	if verifyErr != nil {
		log.Error(ctx, "verification failed", logger.Error(verifyErr))
		return stats, verifyErr
	}
	log.Info(ctx, "load run completed", logger.Duration("duration", stats.Duration))
	return stats, nil
}

func addCappers(ctx context.Context, c *client.Client, cfg *Config, plan []Planned, stats *Stats) error {
	var added, failed atomic.Int64
	runPool(ctx, cfg.Workers, len(plan), func(ctx context.Context, i int) {
		res, err := c.Add(ctx, plan[i].AddKey)
		if err != nil || res.Entry == nil {
			failed.Add(1)
			logFailure(ctx, cfg, "add", plan[i].AddKey, err)
			return
		}
		plan[i].ID = res.Entry.ID
		added.Add(1)
	})
	stats.Added = int(added.Load())

	if cfg.ReplayEvery <= 0 {
		stats.Failed += int(failed.Load())
		return ctx.Err()
	}

	var replays []int
	for i := 0; i < len(plan); i += cfg.ReplayEvery {
		replays = append(replays, i)
	}
	var dups, created atomic.Int64
	runPool(ctx, cfg.Workers, len(replays), func(ctx context.Context, j int) {
		p := plan[replays[j]]
		res, err := c.Add(ctx, p.AddKey)
		switch {
		case err != nil:
			failed.Add(1)
			logFailure(ctx, cfg, "replay", p.AddKey, err)
		case res.Duplicate:
			dups.Add(1)
		default:
			created.Add(1)
		}
	})
	stats.Duplicates = int(dups.Load())
	stats.Failed += int(failed.Load())
	if n := created.Load(); n > 0 {
		return fmt.Errorf("%w: %d replayed adds created cappers", ErrInconsistent, n)
	}
	return ctx.Err()
}

func commitCappers(ctx context.Context, c *client.Client, cfg *Config, plan []Planned, stats *Stats) {
	var commits, failed atomic.Int64
	runPool(ctx, cfg.Workers, len(plan), func(ctx context.Context, i int) {
		p := &plan[i]
		if p.ID == "" {
			return
		}
		target := model.ByID(p.ID)
		if _, err := c.Commit(ctx, p.NameKey, target, string(model.FieldName), p.Name); err != nil {
			failed.Add(1)
			logFailure(ctx, cfg, "commit name", p.NameKey, err)
			return
		}
		if _, err := c.Commit(ctx, p.CommitKey, target, string(model.FieldUnits), p.Units.StringFixed(2)); err != nil {
			failed.Add(1)
			logFailure(ctx, cfg, "commit units", p.CommitKey, err)
			return
		}
		p.Committed = true
		commits.Add(2)
	})
	stats.Commits = int(commits.Load())
	stats.Failed += int(failed.Load())
}

func deleteCappers(ctx context.Context, c *client.Client, cfg *Config, plan []Planned, stats *Stats) {
	var deleted, failed atomic.Int64
	runPool(ctx, cfg.Workers, len(plan), func(ctx context.Context, i int) {
		if plan[i].ID == "" {
			return
		}
		if _, err := c.Delete(ctx, "", model.ByID(plan[i].ID)); err != nil {
			failed.Add(1)
			logFailure(ctx, cfg, "delete", plan[i].ID, err)
			return
		}
		deleted.Add(1)
	})
	stats.Deleted = int(deleted.Load())
	stats.Failed += int(failed.Load())
}

// runPool calls fn for every index in [0, n) from a fixed set of workers.
// Indices not yet handed out when ctx ends are skipped.
func runPool(ctx context.Context, workers, n int, fn func(ctx context.Context, i int)) {
	if workers < 1 {
		workers = 1
	}
	indices := make(chan int, workers*workerChannelMultiplier)
	var wg sync.WaitGroup

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				if ctx.Err() != nil {
					continue
				}
				fn(ctx, i)
			}
		}()
	}

send:
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			break send
		case indices <- i:
		}
	}
	close(indices)
	wg.Wait()
}

func logFailure(ctx context.Context, cfg *Config, op, key string, err error) {
	if !cfg.Verbose {
		return
	}
	logger.Get().Warn(ctx, "request failed",
		logger.String("op", op), logger.String("key", key), logger.Error(err))
}

// displayStats prints the run statistics.
func displayStats(w io.Writer, stats *Stats) {
	var perSecond float64
	requests := stats.Added + stats.Duplicates + stats.Commits + stats.Deleted + stats.Failed
	if stats.Duration > 0 {
		perSecond = float64(requests) / stats.Duration.Seconds()
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Planned", stats.Planned},
		{"Added", stats.Added},
		{"Replayed (duplicate)", stats.Duplicates},
		{"Commits", stats.Commits},
		{"Deleted", stats.Deleted},
		{"Failed", stats.Failed},
		{"Rows on board", stats.Rows},
		{"Duration", stats.Duration.Round(time.Millisecond).String()},
		{"Requests/s", fmt.Sprintf("%.1f", perSecond)},
	})
	t.Render()
}
