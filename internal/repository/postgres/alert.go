package postgres

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"brandpulse/internal/domain/alert"
	"brandpulse/internal/metrics"
	"brandpulse/pkg/errors"
)

// Compile-time check
var _ alert.Repository = (*AlertRepository)(nil)

const defaultAlertLimit = 50

var alertColumns = []string{
	"id", "run_id", "brand", "type", "severity", "status", "title", "message",
	"crisis_score", "assignee", "created_at", "acknowledged_at", "resolved_at",
}

// AlertRepository implements alert.Repository using sqlx and squirrel
type AlertRepository struct {
	db DBTX
	qb sq.StatementBuilderType
}

// NewAlertRepository creates a new alert repository.
// Accepts DBTX so it works with both *sqlx.DB and *sqlx.Tx.
func NewAlertRepository(db DBTX) *AlertRepository {
	return &AlertRepository{
		db: db,
		qb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Create inserts a new alert, assigning id, status and timestamp when unset
func (r *AlertRepository) Create(ctx context.Context, a *alert.Alert) (err error) {
	defer observe("create_alert", time.Now(), &err)

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = alert.StatusOpen
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	query, args, err := r.qb.Insert("alerts").
		Columns(alertColumns...).
		Values(
			a.ID, a.RunID, a.Brand, a.Type, a.Severity, a.Status, a.Title, a.Message,
			a.CrisisScore, a.Assignee, a.CreatedAt, a.AcknowledgedAt, a.ResolvedAt,
		).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "build insert alert")
	}

	if _, err = r.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrapf(err, "insert alert %s", a.ID)
	}
	return nil
}

// GetByID retrieves an alert
func (r *AlertRepository) GetByID(ctx context.Context, id uuid.UUID) (_ *alert.Alert, err error) {
	defer observe("get_alert", time.Now(), &err)

	query, args, err := r.qb.Select(alertColumns...).From("alerts").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build select alert")
	}

	var a alert.Alert
	if err = r.db.GetContext(ctx, &a, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(errors.ErrNotFound, "alert %s", id)
		}
		return nil, errors.Wrapf(err, "get alert %s", id)
	}
	return &a, nil
}

// List returns alerts newest first
func (r *AlertRepository) List(ctx context.Context, f alert.Filter) (_ []*alert.Alert, err error) {
	defer observe("list_alerts", time.Now(), &err)

	q := r.qb.Select(alertColumns...).From("alerts").OrderBy("created_at DESC")
	if f.Brand != "" {
		q = q.Where(sq.Eq{"brand": f.Brand})
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		q = q.Where(sq.Eq{"status": statuses})
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultAlertLimit
	}
	q = q.Limit(uint64(limit))

	query, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build list alerts")
	}

	alerts := []*alert.Alert{}
	if err = r.db.SelectContext(ctx, &alerts, query, args...); err != nil {
		return nil, errors.Wrap(err, "list alerts")
	}
	return alerts, nil
}

// Acknowledge moves an open alert to acknowledged
func (r *AlertRepository) Acknowledge(ctx context.Context, id uuid.UUID, assignee string) (err error) {
	defer observe("acknowledge_alert", time.Now(), &err)

	return r.update(ctx, id, r.qb.Update("alerts").
		Set("status", alert.StatusAcknowledged).
		Set("assignee", assignee).
		Set("acknowledged_at", time.Now().UTC()).
		Where(sq.Eq{"id": id, "status": alert.StatusOpen}))
}

// Resolve closes an open or acknowledged alert
func (r *AlertRepository) Resolve(ctx context.Context, id uuid.UUID) (err error) {
	defer observe("resolve_alert", time.Now(), &err)

	return r.update(ctx, id, r.qb.Update("alerts").
		Set("status", alert.StatusResolved).
		Set("resolved_at", time.Now().UTC()).
		Where(sq.Eq{"id": id}).
		Where(sq.NotEq{"status": alert.StatusResolved}))
}

// update runs a guarded status change. Zero affected rows means the alert is
// missing (ErrNotFound) or not in a state that allows the change (ErrInvalidTransition).
func (r *AlertRepository) update(ctx context.Context, id uuid.UUID, b sq.UpdateBuilder) error {
	query, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, "build update alert")
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrapf(err, "update alert %s", id)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "update alert %s", id)
	}
	if n > 0 {
		return nil
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return errors.Wrapf(errors.ErrInvalidTransition, "alert %s is %s", id, current.Status)
}

func observe(operation string, started time.Time, err *error) {
	metrics.RecordDBQuery("postgres", operation, time.Since(started), *err)
}
