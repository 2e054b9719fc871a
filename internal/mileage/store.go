package mileage

import (
	"context"
	"errors"
	"time"

	"backend-mileagehub/internal/db"

	"github.com/jackc/pgx/v5"
)

// Store is the record persistence contract. GetByDate returns nil (not an
// error) when no record exists for the date. Audit rows are insert-only.
type Store interface {
	GetByDate(ctx context.Context, driverID string, date time.Time) (*Record, error)
	Upsert(ctx context.Context, rec Record) (Record, error)
	QueryRange(ctx context.Context, driverID string, from, to time.Time) ([]Record, error)
	AppendAudit(ctx context.Context, entry AuditEntry) error
	AuditTrail(ctx context.Context, driverID, recordID string) ([]AuditEntry, error)
}

type PostgresStore struct {
	db db.Querier
}

func NewPostgresStore(q db.Querier) *PostgresStore {
	return &PostgresStore{db: q}
}

func (s *PostgresStore) GetByDate(ctx context.Context, driverID string, date time.Time) (*Record, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, driver_id, record_date, start_mileage_km, end_mileage_km, gps_distance_km, source, created_at, updated_at
		FROM mileage_records
		WHERE driver_id=$1 AND record_date=$2
	`, driverID, DayOf(date))

	var rec Record
	err := row.Scan(&rec.ID, &rec.DriverID, &rec.Date, &rec.StartMileage, &rec.EndMileage, &rec.Distance, &rec.Source, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Upsert writes the record keyed on (driver, date); a conflicting insert
// updates the existing row and keeps its id and created_at.
func (s *PostgresStore) Upsert(ctx context.Context, rec Record) (Record, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO mileage_records (id, driver_id, record_date, start_mileage_km, end_mileage_km, gps_distance_km, source, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (driver_id, record_date) DO UPDATE
		SET start_mileage_km=EXCLUDED.start_mileage_km,
		    end_mileage_km=EXCLUDED.end_mileage_km,
		    gps_distance_km=EXCLUDED.gps_distance_km,
		    source=EXCLUDED.source,
		    updated_at=EXCLUDED.updated_at
		RETURNING id, created_at
	`, rec.ID, rec.DriverID, DayOf(rec.Date), rec.StartMileage, rec.EndMileage, rec.Distance, rec.Source, rec.CreatedAt, rec.UpdatedAt)
	if err := row.Scan(&rec.ID, &rec.CreatedAt); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *PostgresStore) QueryRange(ctx context.Context, driverID string, from, to time.Time) ([]Record, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, driver_id, record_date, start_mileage_km, end_mileage_km, gps_distance_km, source, created_at, updated_at
		FROM mileage_records
		WHERE driver_id=$1 AND record_date BETWEEN $2 AND $3
		ORDER BY record_date
	`, driverID, DayOf(from), DayOf(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.DriverID, &rec.Date, &rec.StartMileage, &rec.EndMileage, &rec.Distance, &rec.Source, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *PostgresStore) AppendAudit(ctx context.Context, entry AuditEntry) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO mileage_audit (id, record_id, occurred_at, action, old_value, new_value, reason, driver_id, device_info)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, entry.ID, entry.RecordID, entry.Timestamp, entry.Action, entry.OldValue, entry.NewValue, entry.Reason, entry.UserID, entry.DeviceInfo)
	return err
}

// AuditTrail reads a record's ledger, scoped to the owning driver so one
// driver cannot walk another's history by guessing record ids.
func (s *PostgresStore) AuditTrail(ctx context.Context, driverID, recordID string) ([]AuditEntry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT a.id, a.record_id, a.occurred_at, a.action, a.old_value, a.new_value, a.reason, a.driver_id, a.device_info
		FROM mileage_audit a
		JOIN mileage_records r ON r.id = a.record_id
		WHERE a.record_id=$1 AND r.driver_id=$2
		ORDER BY a.occurred_at, a.id
	`, recordID, driverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.RecordID, &e.Timestamp, &e.Action, &e.OldValue, &e.NewValue, &e.Reason, &e.UserID, &e.DeviceInfo); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
