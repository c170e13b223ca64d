// Package storage handles database connections, schema migrations, and data operations using SQLite.
package storage

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite" // Driver sqlite

	"github.com/vberezko/azimut/internal/models"
)

// Repository manages the SQLite database connection.
type Repository struct {
	db *sql.DB
}

// New initializes a new SQLite connection, sets connection pool parameters, and runs migrations.
func New(dbPath string) (*Repository, error) {
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(1 * time.Hour)

	if err := db.Ping(); err != nil {
		return nil, err
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// UpsertServer inserts a new server or updates the existing row keyed by
// the normalized target. Fields that a fresh probe cannot deliver, like
// the country code or icon path, keep their previous value when blank.
func (r *Repository) UpsertServer(s models.Server) error {
	query := `
	INSERT INTO servers (
		target, name, brand, version, country_code, motd, icon_path,
		cracked, online, max_players, latency_ms,
		probes, first_seen, last_seen
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
	ON CONFLICT(target) DO UPDATE SET
		probes = probes + 1,
		last_seen = excluded.last_seen,
		name = excluded.name,
		brand = excluded.brand,
		version = excluded.version,
		motd = excluded.motd,
		cracked = excluded.cracked,
		online = excluded.online,
		max_players = excluded.max_players,
		latency_ms = excluded.latency_ms,

		-- Keep previous values when the new probe carries none
		country_code = CASE WHEN excluded.country_code != '' THEN excluded.country_code ELSE servers.country_code END,
		icon_path    = CASE WHEN excluded.icon_path != '' THEN excluded.icon_path ELSE servers.icon_path END;
	`

	// LastSeen doubles as FirstSeen when inserting a new record
	_, err := r.db.Exec(query,
		s.Target, s.Name, s.Brand, s.Version, s.CountryCode, s.MOTD, s.IconPath,
		s.Cracked, s.Online, s.MaxPlayers, s.LatencyMs,
		s.FirstSeen, s.LastSeen,
	)

	return err
}

// GetServers retrieves all known servers, sorted by the last seen timestamp in descending order.
func (r *Repository) GetServers() ([]models.Server, error) {
	rows, err := r.db.Query(`
		SELECT target, name, brand, version, country_code, motd, icon_path,
		       cracked, online, max_players, latency_ms,
		       probes, first_seen, last_seen
		FROM servers
		ORDER BY last_seen DESC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var servers []models.Server
	for rows.Next() {
		var s models.Server
		if err := rows.Scan(
			&s.Target, &s.Name, &s.Brand, &s.Version, &s.CountryCode, &s.MOTD, &s.IconPath,
			&s.Cracked, &s.Online, &s.MaxPlayers, &s.LatencyMs,
			&s.Probes, &s.FirstSeen, &s.LastSeen,
		); err != nil {
			continue
		}
		servers = append(servers, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return servers, nil
}

// GetServer retrieves one server by its normalized target, nil when unknown.
func (r *Repository) GetServer(target string) (*models.Server, error) {
	query := `
		SELECT target, name, brand, version, country_code, motd, icon_path,
		       cracked, online, max_players, latency_ms,
		       probes, first_seen, last_seen
		FROM servers
		WHERE target = ?
	`
	row := r.db.QueryRow(query, target)

	var s models.Server
	err := row.Scan(
		&s.Target, &s.Name, &s.Brand, &s.Version, &s.CountryCode, &s.MOTD, &s.IconPath,
		&s.Cracked, &s.Online, &s.MaxPlayers, &s.LatencyMs,
		&s.Probes, &s.FirstSeen, &s.LastSeen,
	)

	if err == sql.ErrNoRows {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, err
	}

	return &s, nil
}

// GetTargets retrieves every known target, used by maintenance re-probing.
func (r *Repository) GetTargets() ([]string, error) {
	rows, err := r.db.Query(`SELECT target FROM servers`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var targets []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			continue
		}
		targets = append(targets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return targets, nil
}

// DeleteServer removes a server row and its probe history.
func (r *Repository) DeleteServer(target string) error {
	if _, err := r.db.Exec(`DELETE FROM probes WHERE target = ?`, target); err != nil {
		return err
	}

	_, err := r.db.Exec(`DELETE FROM servers WHERE target = ?`, target)
	return err
}

// InsertProbe appends one probe observation to the history table.
func (r *Repository) InsertProbe(rec models.ProbeRecord) error {
	_, err := r.db.Exec(
		`INSERT INTO probes (target, online, max_players, latency_ms, probed_at) VALUES (?, ?, ?, ?, ?)`,
		rec.Target, rec.Online, rec.MaxPlayers, rec.LatencyMs, rec.ProbedAt,
	)

	return err
}

// GetHistory retrieves the most recent probe observations for a target,
// newest first, capped at limit.
func (r *Repository) GetHistory(target string, limit int) ([]models.ProbeRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(`
		SELECT target, online, max_players, latency_ms, probed_at
		FROM probes
		WHERE target = ?
		ORDER BY probed_at DESC
		LIMIT ?
	`, target, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []models.ProbeRecord
	for rows.Next() {
		var rec models.ProbeRecord
		if err := rows.Scan(&rec.Target, &rec.Online, &rec.MaxPlayers, &rec.LatencyMs, &rec.ProbedAt); err != nil {
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// PruneHistory removes probe observations older than the cutoff and
// reports how many rows went away.
func (r *Repository) PruneHistory(before time.Time) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM probes WHERE probed_at < ?`, before)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}
