package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/rpattn/ontograph/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type snapshotRepository struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepository wires a repository backed by pgxpool.
func NewSnapshotRepository(pool *pgxpool.Pool) SnapshotRepository {
	return &snapshotRepository{pool: pool}
}

func (r *snapshotRepository) Create(ctx context.Context, snapshot domain.BaseSnapshot) (domain.BaseSnapshot, error) {
	if snapshot.ID == uuid.Nil {
		snapshot.ID = uuid.New()
	}
	err := r.pool.QueryRow(
		ctx,
		`INSERT INTO base_snapshots (id, ontology_id, merge_request_id, payload)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		snapshot.ID,
		snapshot.OntologyID,
		snapshot.MergeRequestID,
		snapshot.Payload,
	).Scan(&snapshot.CreatedAt)
	if err != nil {
		return domain.BaseSnapshot{}, fmt.Errorf("failed to create base snapshot: %w", err)
	}
	return snapshot, nil
}

func (r *snapshotRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.BaseSnapshot, error) {
	var (
		snapshot       domain.BaseSnapshot
		mergeRequestID pgtype.UUID
	)
	err := r.pool.QueryRow(
		ctx,
		`SELECT id, ontology_id, merge_request_id, payload, created_at FROM base_snapshots WHERE id = $1`,
		id,
	).Scan(&snapshot.ID, &snapshot.OntologyID, &mergeRequestID, &snapshot.Payload, &snapshot.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.BaseSnapshot{}, fmt.Errorf("base snapshot %s: %w", id, domain.ErrNotFound)
		}
		return domain.BaseSnapshot{}, fmt.Errorf("failed to get base snapshot: %w", err)
	}
	if mergeRequestID.Valid {
		mr := uuid.UUID(mergeRequestID.Bytes)
		snapshot.MergeRequestID = &mr
	}
	return snapshot, nil
}

func (r *snapshotRepository) ListByOntology(ctx context.Context, ontologyID int64) ([]domain.BaseSnapshot, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT id, ontology_id, merge_request_id, payload, created_at
		 FROM base_snapshots
		 WHERE ontology_id = $1
		 ORDER BY created_at DESC`,
		ontologyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list base snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := []domain.BaseSnapshot{}
	for rows.Next() {
		var (
			snapshot       domain.BaseSnapshot
			mergeRequestID pgtype.UUID
		)
		if scanErr := rows.Scan(&snapshot.ID, &snapshot.OntologyID, &mergeRequestID, &snapshot.Payload, &snapshot.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan base snapshot: %w", scanErr)
		}
		if mergeRequestID.Valid {
			mr := uuid.UUID(mergeRequestID.Bytes)
			snapshot.MergeRequestID = &mr
		}
		snapshots = append(snapshots, snapshot)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate base snapshots: %w", rowsErr)
	}
	return snapshots, nil
}
