// Package maintenance provides one-shot database cleanup and re-check tasks.
package maintenance

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/vberezko/azimut/internal/config"
	"github.com/vberezko/azimut/internal/models"
	"github.com/vberezko/azimut/internal/motd"
	"github.com/vberezko/azimut/internal/probe"
	"github.com/vberezko/azimut/internal/storage"
)

// Run checks if any maintenance flags are set and executes the corresponding tasks.
// Returns true if a maintenance task was executed (indicating the program should exit).
func Run(cfg *config.Config, store *storage.Repository, prober *probe.Client) bool {
	// Prune history
	if cfg.Storage.Prune > 0 {
		before := time.Now().Add(-cfg.Storage.Prune).UTC()
		log.Info().Time("before", before).Msg("Pruning probe history...")

		count, err := store.PruneHistory(before)
		if err != nil {
			log.Error().Err(err).Msg("Failed to prune history")
		} else {
			log.Info().Int64("deleted", count).Msg("Prune finished")
		}

		return true
	}

	// Re-check all known targets
	if !cfg.Storage.CheckAll {
		return false
	}

	targets, err := store.GetTargets()
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch targets")
		return true
	}

	if len(targets) == 0 {
		log.Info().Msg("No targets found for maintenance")
		return true
	}

	log.Info().Int("count", len(targets)).Msg("Starting re-check task with 10 workers...")
	runWorkerPool(targets, store, prober)
	log.Info().Msg("Maintenance task completed")

	return true
}

func runWorkerPool(targets []string, store *storage.Repository, prober *probe.Client) {
	const workers = 10
	jobs := make(chan string, len(targets))
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for target := range jobs {
				processTarget(target, store, prober)
			}
		}()
	}

	// Send jobs
	for _, t := range targets {
		jobs <- t
	}
	close(jobs)

	wg.Wait()
}

func processTarget(target string, store *storage.Repository, prober *probe.Client) {
	logCtx := log.With().Str("target", target).Logger()

	// Icons are skipped on re-checks, only liveness and metadata matter here.
	snap, err := prober.Probe(context.Background(), target, probe.Options{BypassCache: true})
	if err != nil {
		// Check failed -> Delete
		logCtx.Debug().Err(err).Msg("Server unreachable, deleting target")
		if err := store.DeleteServer(target); err != nil {
			logCtx.Error().Err(err).Msg("Failed to delete unreachable target")
		}
		return
	}

	// Success -> Update
	now := time.Now().UTC()
	server := models.Server{
		Target:     target,
		Name:       snap.Name,
		Brand:      snap.Brand,
		Version:    snap.Version,
		MOTD:       strings.Join(motd.StripAll(snap.MOTD), "\n"),
		Online:     snap.Online,
		MaxPlayers: snap.Max,
		Cracked:    snap.Cracked,
		LatencyMs:  snap.LatencyMs,
		FirstSeen:  now,
		LastSeen:   now,
	}

	// UpsertServer handles the update logic
	if err := store.UpsertServer(server); err != nil {
		logCtx.Error().Err(err).Msg("Failed to update server")
	} else {
		logCtx.Trace().Msg("Server updated successfully")
	}
}
