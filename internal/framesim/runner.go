package framesim

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/proctorwatch/pkg/logger"
)

// Run executes a complete simulation and returns its statistics.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	cfg.Normalize()
	log := logger.Get().Named("framesim")
	stats := &Stats{StartTime: time.Now()}
	client := NewHTTPClient(cfg.BaseURL, cfg.Timeout)

	log.Info(ctx, "starting frame simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("candidates", cfg.Candidates),
		logger.Int("frames", cfg.Frames),
		logger.Int("workers", cfg.Workers),
		logger.Duration("interval", cfg.Interval),
	)

	// Step 1: Check service health
	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Simulate candidates concurrently
	runID := uuid.NewString()[:8]
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	ids := make([]string, cfg.Candidates)
	for i := 0; i < cfg.Candidates; i++ {
		seed := cfg.Seed + uint64(i)
		name := fmt.Sprintf("sim-%s-%03d", runID, i)
		g.Go(func() error {
			id, err := simulate(gctx, client, cfg, stats, name, seed, log)
			ids[i] = id
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return finish(ctx, stats, log), fmt.Errorf("simulation failed: %w", err)
	}

	// Step 3: Verify final state
	if err := verify(ctx, client, ids); err != nil {
		return finish(ctx, stats, log), fmt.Errorf("verification failed: %w", err)
	}
	return finish(ctx, stats, log), nil
}

// simulate runs one candidate's session from registration to report.
func simulate(ctx context.Context, client *HTTPClient, cfg *Config, stats *Stats, name string, seed uint64, log logger.Logger) (string, error) {
	c, err := client.CreateCandidate(ctx, name)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	atomic.AddInt64(&stats.CandidatesCreated, 1)
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	for i := 0; i < cfg.Frames; i++ {
		scene := pickScene(rng)
		atomic.AddInt64(&stats.FramesSent, 1)
		res, err := client.AnalyzeFrame(ctx, c.ID, Render(scene, cfg.Width, cfg.Height))
		switch {
		case errors.Is(err, ErrRateLimited):
			atomic.AddInt64(&stats.FramesRateLimited, 1)
		case err != nil:
			if ctx.Err() != nil {
				return c.ID, ctx.Err()
			}
			atomic.AddInt64(&stats.FramesFailed, 1)
			log.Warn(ctx, "frame failed", logger.String("candidate", c.ID), logger.Error(err))
		default:
			atomic.AddInt64(&stats.FramesAnalyzed, 1)
			atomic.AddInt64(&stats.EventsReported, int64(len(res.Events)))
			if res.Degraded {
				atomic.AddInt64(&stats.FramesDegraded, 1)
			}
			if cfg.Verbose {
				log.Info(ctx, "frame analyzed",
					logger.String("candidate", c.ID),
					logger.String("scene", scene.String()),
					logger.Bool("focused", res.Focused),
					logger.Any("events", res.Events),
					logger.Float64("score", res.Score),
				)
			}
		}

		if (i+1)%eventEvery == 0 {
			label := clientLabels[rng.IntN(len(clientLabels))]
			if err := client.LogEvents(ctx, c.ID, []string{label}); err != nil {
				log.Warn(ctx, "event not logged", logger.String("candidate", c.ID), logger.Error(err))
			} else {
				atomic.AddInt64(&stats.EventsLogged, 1)
			}
		}

		if cfg.Interval > 0 {
			select {
			case <-ctx.Done():
				return c.ID, ctx.Err()
			case <-time.After(cfg.Interval):
			}
		}
	}

	if err := client.EndSession(ctx, c.ID); err != nil {
		return c.ID, fmt.Errorf("end %s: %w", c.ID, err)
	}
	atomic.AddInt64(&stats.SessionsEnded, 1)

	path, err := client.Report(ctx, c.ID)
	if err != nil {
		return c.ID, fmt.Errorf("report %s: %w", c.ID, err)
	}
	atomic.AddInt64(&stats.ReportsWritten, 1)
	log.Info(ctx, "candidate finished", logger.String("candidate", c.ID), logger.String("report", path))
	return c.ID, nil
}

// finish stamps the duration and logs the final statistics.
func finish(ctx context.Context, stats *Stats, log logger.Logger) *Stats {
	stats.Duration = time.Since(stats.StartTime)
	var fps float64
	if stats.Duration > 0 {
		fps = float64(atomic.LoadInt64(&stats.FramesSent)) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("candidates", int(atomic.LoadInt64(&stats.CandidatesCreated))),
		logger.Int("framesSent", int(atomic.LoadInt64(&stats.FramesSent))),
		logger.Int("framesAnalyzed", int(atomic.LoadInt64(&stats.FramesAnalyzed))),
		logger.Int("framesDegraded", int(atomic.LoadInt64(&stats.FramesDegraded))),
		logger.Int("framesRateLimited", int(atomic.LoadInt64(&stats.FramesRateLimited))),
		logger.Int("framesFailed", int(atomic.LoadInt64(&stats.FramesFailed))),
		logger.Int("eventsReported", int(atomic.LoadInt64(&stats.EventsReported))),
		logger.Int("eventsLogged", int(atomic.LoadInt64(&stats.EventsLogged))),
		logger.Int("reports", int(atomic.LoadInt64(&stats.ReportsWritten))),
		logger.Duration("duration", stats.Duration),
		logger.Float64("framesPerSecond", fps),
	)
	return stats
}
