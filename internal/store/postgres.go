// Package store implements the host persistence layer over Postgres.
package store

import (
	"context"
	"fmt"

	"github.com/civicworks/actionnetwork-loader/pkg/contacts"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// ContactStore persists normalized contacts in Postgres. Delete-then-
// insert for one campaign is not transactionally isolated from
// concurrent loads of the same campaign; callers must serialize loads
// per campaign.
type ContactStore struct {
	pool *pgxpool.Pool
}

// NewContactStore creates a store over a pgx pool.
func NewContactStore(pool *pgxpool.Pool) *ContactStore {
	return &ContactStore{pool: pool}
}

// DeleteByCampaign removes all contacts of a campaign.
func (s *ContactStore) DeleteByCampaign(ctx context.Context, campaignID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM campaign_contact WHERE campaign_id = $1`, campaignID)
	if err != nil {
		return fmt.Errorf("delete contacts for campaign %s: %w", campaignID, err)
	}

	log.Debug().
		Str("campaign_id", campaignID).
		Int64("deleted", tag.RowsAffected()).
		Msg("Cleared prior campaign contacts")

	return nil
}

// BulkInsert writes rows into table in batches of batchSize to bound
// transaction and memory size.
func (s *ContactStore) BulkInsert(ctx context.Context, table string, rows []contacts.NormalizedContact, batchSize int) error {
	if batchSize <= 0 {
		batchSize = 100
	}

	sql := fmt.Sprintf(`INSERT INTO %s
		(first_name, last_name, cell, zip, timezone_offset, message_status, campaign_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`, table)

	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}

		batch := &pgx.Batch{}
		for _, row := range rows[start:end] {
			batch.Queue(sql,
				row.FirstName, row.LastName, row.Cell, row.Zip,
				row.TimezoneOffset, row.MessageStatus, row.CampaignID)
		}

		if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("bulk insert rows %d-%d: %w", start, end-1, err)
		}
	}

	log.Debug().
		Str("table", table).
		Int("rows", len(rows)).
		Int("batch_size", batchSize).
		Msg("Bulk insert complete")

	return nil
}
