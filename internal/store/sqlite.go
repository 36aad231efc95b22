// Package store persists weather history and archived API responses in SQLite.
package store

import (
	"database/sql"
	"fmt"

	"github.com/lox/climafetch/internal/models"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// InsertHistory appends one snapshot and returns its row id.
func (s *Store) InsertHistory(row models.HistoryRow) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO history (timestamp, summary, icon, temperature, feelslike, dewpoint, windbearing, windspeed, windgust, humidity, visibility, pressure, precip_probability, precip_intensity, precip_type, uvindex, sunrise, sunset)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, row.Timestamp, row.Summary, row.Icon, row.Temperature, row.FeelsLike, row.DewPoint, row.WindBearing, row.WindSpeed, row.WindGust, row.Humidity, row.Visibility, row.Pressure, row.PrecipProbability, row.PrecipIntensity, row.PrecipType, row.UVIndex, row.Sunrise, row.Sunset)
	if err != nil {
		return 0, fmt.Errorf("insert history: %w", err)
	}
	return result.LastInsertId()
}

// RecentHistory returns up to limit rows, newest first.
func (s *Store) RecentHistory(limit int) ([]models.HistoryRow, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.Query(`
		SELECT id, timestamp, summary, icon, temperature, feelslike, dewpoint, windbearing, windspeed, windgust, humidity, visibility, pressure, precip_probability, precip_intensity, precip_type, uvindex, sunrise, sunset
		FROM history
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []models.HistoryRow
	for rows.Next() {
		var r models.HistoryRow
		if err := rows.Scan(&r.ID, &r.Timestamp, &r.Summary, &r.Icon, &r.Temperature, &r.FeelsLike, &r.DewPoint, &r.WindBearing, &r.WindSpeed, &r.WindGust, &r.Humidity, &r.Visibility, &r.Pressure, &r.PrecipProbability, &r.PrecipIntensity, &r.PrecipType, &r.UVIndex, &r.Sunrise, &r.Sunset); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) HistoryCount() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM history`).Scan(&n)
	return n, err
}
