// Package fake provides utilities for generating random server data for testing and development purposes.
package fake

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/vberezko/azimut/internal/models"
	"github.com/vberezko/azimut/internal/storage"
)

// GenerateData populates the storage with a specified number of randomized server records.
// It simulates various brands, versions, countries and player activity.
func GenerateData(store *storage.Repository, count int) {
	brands := []string{"vanilla", "paper", "purpur", "fabric", "forge"}
	versions := []string{"1.20.4", "1.20.6", "1.21", "1.21.1", "1.21.4"}
	motds := []string{
		"Survival season 7 now open",
		"Hardcore anarchy, no rules",
		"Creative plots and minigames",
		"Fresh map, economy reset",
		"Whitelist only, apply on forum",
	}

	// Countries list
	countriesHigh := []string{"US", "DE", "RU", "CN", "BR", "FR", "GB", "PL", "CZ", "KZ", "UA"}
	countriesMid := []string{"CA", "AU", "IT", "ES", "NL", "SE", "JP", "KR", "TR", "BE", "RO"}
	countriesLow := []string{"ZA", "AR", "MX", "IN", "ID", "VN", "CH", "NO", "FI", "DK", "PT"}

	for i := 0; i < count; i++ {
		// Random date-time in 30 days range
		daysAgo := rand.Intn(30)
		seenTime := time.Now().Add(-time.Duration(daysAgo) * 24 * time.Hour).
			Add(-time.Duration(rand.Intn(1440)) * time.Minute)

		// Select country
		var country string
		roll := rand.Float32()
		switch {
		case roll < 0.70:
			country = countriesHigh[rand.Intn(len(countriesHigh))]
		case roll < 0.90:
			country = countriesMid[rand.Intn(len(countriesMid))]
		default:
			country = countriesLow[rand.Intn(len(countriesLow))]
		}

		maxPlayers := 20 * (rand.Intn(5) + 1)
		target := fmt.Sprintf("wss://play%03d.example.net", rand.Intn(1000))

		server := models.Server{
			Target:      target,
			Name:        fmt.Sprintf("Community Server #%d", rand.Intn(1000)),
			Brand:       brands[rand.Intn(len(brands))],
			Version:     versions[rand.Intn(len(versions))],
			CountryCode: country,
			MOTD:        motds[rand.Intn(len(motds))],
			Online:      rand.Intn(maxPlayers + 1),
			MaxPlayers:  maxPlayers,
			LatencyMs:   int64(rand.Intn(240) + 5),
			Cracked:     rand.Float32() < 0.15,
			FirstSeen:   seenTime.Add(-time.Hour * 24 * 7),
			LastSeen:    seenTime,
		}

		if err := store.UpsertServer(server); err != nil {
			log.Warn().Err(err).Msg("Failed to generate fake server")
			continue
		}

		// A short probe history per server
		history := rand.Intn(5) + 1
		for j := 0; j < history; j++ {
			rec := models.ProbeRecord{
				Target:     target,
				Online:     rand.Intn(maxPlayers + 1),
				MaxPlayers: maxPlayers,
				LatencyMs:  int64(rand.Intn(240) + 5),
				ProbedAt:   seenTime.Add(-time.Duration(j) * time.Hour),
			}

			if err := store.InsertProbe(rec); err != nil {
				log.Warn().Err(err).Msg("Failed to generate fake probe record")
			}
		}
	}
}
