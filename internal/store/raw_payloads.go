package store

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// RawPayload is one archived API response.
type RawPayload struct {
	ID                int64
	FetchedAt         time.Time
	Source            string
	Endpoint          string
	PayloadCompressed []byte
	PayloadHash       string
}

// StoreRawPayload archives a gzip-compressed response body.
// Returns the payload ID, or 0 if an identical body is already stored.
func (s *Store) StoreRawPayload(source, endpoint string, payload []byte) (int64, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(payload); err != nil {
		return 0, fmt.Errorf("compress payload: %w", err)
	}
	if err := gz.Close(); err != nil {
		return 0, fmt.Errorf("close gzip: %w", err)
	}

	hash := sha256.Sum256(payload)

	result, err := s.db.Exec(`
		INSERT INTO raw_payloads (fetched_at, source, endpoint, payload_compressed, payload_hash)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(payload_hash) DO NOTHING
	`, time.Now().UTC(), source, endpoint, buf.Bytes(), hex.EncodeToString(hash[:]))
	if err != nil {
		return 0, fmt.Errorf("insert raw payload: %w", err)
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return 0, nil
	}
	return result.LastInsertId()
}

// GetRawPayload returns the archived response with the given ID, or nil if there is none.
func (s *Store) GetRawPayload(id int64) (*RawPayload, error) {
	return scanRawPayload(s.db.QueryRow(rawPayloadSelect+` WHERE id = ?`, id))
}

// GetRawPayloadByHash looks a response up by the sha256 hex digest of its body.
func (s *Store) GetRawPayloadByHash(hash string) (*RawPayload, error) {
	return scanRawPayload(s.db.QueryRow(rawPayloadSelect+` WHERE payload_hash = ?`, strings.ToLower(hash)))
}

const rawPayloadSelect = `SELECT id, fetched_at, source, endpoint, payload_compressed, payload_hash FROM raw_payloads`

func scanRawPayload(row *sql.Row) (*RawPayload, error) {
	var p RawPayload
	err := row.Scan(&p.ID, &p.FetchedAt, &p.Source, &p.Endpoint, &p.PayloadCompressed, &p.PayloadHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query raw payload: %w", err)
	}
	return &p, nil
}

// Body decompresses the archived response.
func (p *RawPayload) Body() ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(p.PayloadCompressed))
	if err != nil {
		return nil, fmt.Errorf("raw payload %d: %w", p.ID, err)
	}
	defer gz.Close()
	return io.ReadAll(gz)
}

// PruneRawPayloads deletes payloads fetched before cutoff and returns how many went.
func (s *Store) PruneRawPayloads(cutoff time.Time) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM raw_payloads WHERE fetched_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune raw payloads: %w", err)
	}
	return result.RowsAffected()
}
