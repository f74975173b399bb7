package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/rpattn/ontograph/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const activityColumns = `id, ontology_id, version_number, activity_type, entity_kind, entity_id, entity_name,
	description, actor_id, actor_name, before_snapshot, after_snapshot, notes, created_at`

// versionAssignRetries bounds the retry loop when concurrent writers collide
// on the per-ontology version constraint.
const versionAssignRetries = 5

type activityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository wires a repository backed by pgxpool.
func NewActivityRepository(pool *pgxpool.Pool) ActivityRepository {
	return &activityRepository{pool: pool}
}

// Record appends one activity record. Version assignment relies on the
// UNIQUE (ontology_id, version_number) constraint: the insert computes
// max+1 in the same statement and retries when a concurrent writer won the
// race, so two writers can never share a version number.
func (r *activityRepository) Record(ctx context.Context, record *domain.ActivityRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	if record.VersionNumber > 0 {
		return r.insertAt(ctx, record, record.VersionNumber)
	}

	var lastErr error
	for attempt := 0; attempt < versionAssignRetries; attempt++ {
		err := r.insertNext(ctx, record)
		if err == nil {
			return nil
		}
		if !isUniqueViolation(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("failed to assign version number after %d attempts: %w", versionAssignRetries, lastErr)
}

func (r *activityRepository) insertNext(ctx context.Context, record *domain.ActivityRecord) error {
	err := r.pool.QueryRow(
		ctx,
		`INSERT INTO ontology_activity
		   (ontology_id, version_number, activity_type, entity_kind, entity_id, entity_name,
		    description, actor_id, actor_name, before_snapshot, after_snapshot, notes)
		 VALUES
		   ($1,
		    COALESCE((SELECT MAX(version_number) FROM ontology_activity WHERE ontology_id = $1), 0) + 1,
		    $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, version_number, created_at`,
		record.OntologyID,
		string(record.ActivityType),
		string(record.EntityKind),
		record.EntityID,
		record.EntityName,
		record.Description,
		record.ActorID,
		record.ActorName,
		record.BeforeSnapshot,
		record.AfterSnapshot,
		record.Notes,
	).Scan(&record.ID, &record.VersionNumber, &record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}
	return nil
}

func (r *activityRepository) insertAt(ctx context.Context, record *domain.ActivityRecord, versionNumber int64) error {
	err := r.pool.QueryRow(
		ctx,
		`INSERT INTO ontology_activity
		   (ontology_id, version_number, activity_type, entity_kind, entity_id, entity_name,
		    description, actor_id, actor_name, before_snapshot, after_snapshot, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id, created_at`,
		record.OntologyID,
		versionNumber,
		string(record.ActivityType),
		string(record.EntityKind),
		record.EntityID,
		record.EntityName,
		record.Description,
		record.ActorID,
		record.ActorName,
		record.BeforeSnapshot,
		record.AfterSnapshot,
		record.Notes,
	).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record activity at version %d: %w", versionNumber, err)
	}
	return nil
}

func (r *activityRepository) CurrentVersion(ctx context.Context, ontologyID int64) (int64, error) {
	var version int64
	err := r.pool.QueryRow(
		ctx,
		`SELECT COALESCE(MAX(version_number), 0) FROM ontology_activity WHERE ontology_id = $1`,
		ontologyID,
	).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read current version: %w", err)
	}
	return version, nil
}

func (r *activityRepository) HasVersion(ctx context.Context, ontologyID, versionNumber int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(
		ctx,
		`SELECT EXISTS(SELECT 1 FROM ontology_activity WHERE ontology_id = $1 AND version_number = $2)`,
		ontologyID,
		versionNumber,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check version: %w", err)
	}
	return exists, nil
}

func (r *activityRepository) GetByID(ctx context.Context, id int64) (domain.ActivityRecord, error) {
	row := r.pool.QueryRow(
		ctx,
		`SELECT `+activityColumns+` FROM ontology_activity WHERE id = $1`,
		id,
	)
	record, err := scanActivityRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ActivityRecord{}, fmt.Errorf("activity record %d: %w", id, domain.ErrNotFound)
		}
		return domain.ActivityRecord{}, fmt.Errorf("failed to get activity record: %w", err)
	}
	return record, nil
}

func (r *activityRepository) List(ctx context.Context, ontologyID int64, filter *domain.ActivityFilter, limit, offset int) ([]domain.ActivityRecord, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + activityColumns + `, COUNT(*) OVER() AS total_count
		 FROM ontology_activity
		 WHERE ontology_id = $1`
	args := []any{ontologyID}

	if filter != nil && filter.EntityKind != nil {
		args = append(args, string(*filter.EntityKind))
		query += fmt.Sprintf(" AND entity_kind = $%d", len(args))
	}
	if filter != nil && filter.ActorID != nil {
		args = append(args, *filter.ActorID)
		query += fmt.Sprintf(" AND actor_id = $%d", len(args))
	}

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY version_number DESC LIMIT $%d", len(args))
	args = append(args, offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	records := []domain.ActivityRecord{}
	totalCount := 0
	for rows.Next() {
		record, total, scanErr := scanActivityRowWithTotal(rows)
		if scanErr != nil {
			return nil, 0, fmt.Errorf("failed to scan activity record: %w", scanErr)
		}
		totalCount = total
		records = append(records, record)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, 0, fmt.Errorf("failed to iterate activity records: %w", rowsErr)
	}
	return records, totalCount, nil
}

func (r *activityRepository) ListByEntity(ctx context.Context, ontologyID int64, kind domain.EntityKind, entityID int64) ([]domain.ActivityRecord, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT `+activityColumns+`
		 FROM ontology_activity
		 WHERE ontology_id = $1 AND entity_kind = $2 AND entity_id = $3
		 ORDER BY version_number DESC`,
		ontologyID,
		string(kind),
		entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list entity history: %w", err)
	}
	defer rows.Close()
	return scanActivityRows(rows)
}

func (r *activityRepository) ListUpToVersion(ctx context.Context, ontologyID, versionNumber int64) ([]domain.ActivityRecord, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT `+activityColumns+`
		 FROM ontology_activity
		 WHERE ontology_id = $1 AND version_number <= $2
		 ORDER BY version_number ASC`,
		ontologyID,
		versionNumber,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity up to version: %w", err)
	}
	defer rows.Close()
	return scanActivityRows(rows)
}

func (r *activityRepository) Stats(ctx context.Context, ontologyID int64) (domain.VersionStats, error) {
	stats := domain.VersionStats{
		ByActivity:   map[domain.ActivityType]int64{},
		ByEntityKind: map[domain.EntityKind]int64{},
	}

	var first, last pgtype.Timestamptz
	err := r.pool.QueryRow(
		ctx,
		`SELECT COUNT(*),
		        COALESCE(MAX(version_number), 0),
		        MIN(created_at),
		        MAX(created_at),
		        COUNT(DISTINCT actor_id) FILTER (WHERE actor_id IS NOT NULL)
		 FROM ontology_activity
		 WHERE ontology_id = $1`,
		ontologyID,
	).Scan(&stats.TotalRecords, &stats.MaxVersion, &first, &last, &stats.DistinctActors)
	if err != nil {
		return domain.VersionStats{}, fmt.Errorf("failed to read version stats: %w", err)
	}
	if first.Valid {
		t := first.Time
		stats.FirstRecorded = &t
	}
	if last.Valid {
		t := last.Time
		stats.LastRecorded = &t
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT activity_type, entity_kind, COUNT(*)
		 FROM ontology_activity
		 WHERE ontology_id = $1
		 GROUP BY activity_type, entity_kind`,
		ontologyID,
	)
	if err != nil {
		return domain.VersionStats{}, fmt.Errorf("failed to read activity counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var activityType, entityKind string
		var count int64
		if scanErr := rows.Scan(&activityType, &entityKind, &count); scanErr != nil {
			return domain.VersionStats{}, fmt.Errorf("failed to scan activity counts: %w", scanErr)
		}
		stats.ByActivity[domain.ActivityType(activityType)] += count
		stats.ByEntityKind[domain.EntityKind(entityKind)] += count
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return domain.VersionStats{}, fmt.Errorf("failed to iterate activity counts: %w", rowsErr)
	}
	return stats, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func scanActivityRow(row pgx.Row) (domain.ActivityRecord, error) {
	var (
		record         domain.ActivityRecord
		activityType   string
		entityKind     string
		entityID       pgtype.Int8
		actorID        pgtype.Int8
		beforeSnapshot pgtype.Text
		afterSnapshot  pgtype.Text
	)
	err := row.Scan(
		&record.ID,
		&record.OntologyID,
		&record.VersionNumber,
		&activityType,
		&entityKind,
		&entityID,
		&record.EntityName,
		&record.Description,
		&actorID,
		&record.ActorName,
		&beforeSnapshot,
		&afterSnapshot,
		&record.Notes,
		&record.CreatedAt,
	)
	if err != nil {
		return domain.ActivityRecord{}, err
	}
	applyActivityNullables(&record, activityType, entityKind, entityID, actorID, beforeSnapshot, afterSnapshot)
	return record, nil
}

func scanActivityRowWithTotal(rows pgx.Rows) (domain.ActivityRecord, int, error) {
	var (
		record         domain.ActivityRecord
		activityType   string
		entityKind     string
		entityID       pgtype.Int8
		actorID        pgtype.Int8
		beforeSnapshot pgtype.Text
		afterSnapshot  pgtype.Text
		totalCount     int
	)
	err := rows.Scan(
		&record.ID,
		&record.OntologyID,
		&record.VersionNumber,
		&activityType,
		&entityKind,
		&entityID,
		&record.EntityName,
		&record.Description,
		&actorID,
		&record.ActorName,
		&beforeSnapshot,
		&afterSnapshot,
		&record.Notes,
		&record.CreatedAt,
		&totalCount,
	)
	if err != nil {
		return domain.ActivityRecord{}, 0, err
	}
	applyActivityNullables(&record, activityType, entityKind, entityID, actorID, beforeSnapshot, afterSnapshot)
	return record, totalCount, nil
}

func scanActivityRows(rows pgx.Rows) ([]domain.ActivityRecord, error) {
	records := []domain.ActivityRecord{}
	for rows.Next() {
		record, err := scanActivityRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activity records: %w", err)
	}
	return records, nil
}

func applyActivityNullables(record *domain.ActivityRecord, activityType, entityKind string, entityID, actorID pgtype.Int8, before, after pgtype.Text) {
	record.ActivityType = domain.ActivityType(activityType)
	record.EntityKind = domain.EntityKind(entityKind)
	if entityID.Valid {
		v := entityID.Int64
		record.EntityID = &v
	}
	if actorID.Valid {
		v := actorID.Int64
		record.ActorID = &v
	}
	if before.Valid {
		v := before.String
		record.BeforeSnapshot = &v
	}
	if after.Valid {
		v := after.String
		record.AfterSnapshot = &v
	}
}
