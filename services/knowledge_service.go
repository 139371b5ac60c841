package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/LexAiTools/proofofconcept-sub001/models"
)

func openPostgres(postgresURI string) (*sql.DB, error) {
	connStr := postgresURI
	if !strings.Contains(postgresURI, "sslmode=") {
		if strings.Contains(postgresURI, "?") {
			connStr += "&sslmode=disable"
		} else {
			connStr += "?sslmode=disable"
		}
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return db, nil
}

// SampleKnowledge returns up to limit knowledge entries. A flat bounded
// fetch: no relevance filtering, no ordering guarantee.
func (s *Store) SampleKnowledge(ctx context.Context, limit int) ([]models.KnowledgeEntry, error) {
	rows, err := s.pg.QueryContext(ctx, `SELECT title, content FROM knowledge LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("knowledge query failed: %w", err)
	}
	defer rows.Close()

	entries := make([]models.KnowledgeEntry, 0, limit)
	for rows.Next() {
		var e models.KnowledgeEntry
		if err := rows.Scan(&e.Title, &e.Content); err != nil {
			return nil, fmt.Errorf("knowledge row scan failed: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// InsertKnowledgeEntry adds a curated title/content pair to the knowledge
// base. Used by the drafting endpoint.
func (s *Store) InsertKnowledgeEntry(ctx context.Context, entry models.KnowledgeEntry) error {
	_, err := s.pg.ExecContext(ctx,
		`INSERT INTO knowledge (title, content) VALUES ($1, $2)`,
		entry.Title, entry.Content,
	)
	if err != nil {
		return fmt.Errorf("knowledge insert failed: %w", err)
	}
	return nil
}
