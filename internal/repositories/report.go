package repositories

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/skinwise/internal/errors"
	"github.com/myrjola/skinwise/internal/models"
	"github.com/myrjola/skinwise/internal/sqlite"
)

// createdAtLayout is fixed width so that the text column sorts chronologically.
const createdAtLayout = "2006-01-02T15:04:05.000Z"

// DefaultHistoryLimit caps history reads when the caller does not ask for a specific amount.
const DefaultHistoryLimit = 50

type ReportRepository struct {
	db     *sqlite.Database
	logger *slog.Logger
	now    func() time.Time
}

func NewReportRepository(db *sqlite.Database, logger *slog.Logger) *ReportRepository {
	return &ReportRepository{
		db:     db,
		logger: logger.With(slog.String("source", "ReportRepository")),
		now:    time.Now,
	}
}

type reportRow struct {
	ID        string `db:"id"`
	UserID    []byte `db:"user_id"`
	CreatedAt string `db:"created_at"`
	Data      []byte `db:"data"`
}

func (row reportRow) toModel() (models.Report, error) {
	createdAt, err := time.Parse(createdAtLayout, row.CreatedAt)
	if err != nil {
		return models.Report{}, errors.Wrap(err, "parse created_at", slog.String("report_id", row.ID))
	}
	return models.Report{
		ID:        row.ID,
		UserID:    row.UserID,
		CreatedAt: createdAt,
		Data:      json.RawMessage(row.Data),
	}, nil
}

// Create appends a report to the owner's history and returns its id.
func (r *ReportRepository) Create(ctx context.Context, userID []byte, data json.RawMessage) (string, error) {
	if !json.Valid(data) {
		return "", errors.New("report data is not valid JSON")
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return "", errors.Wrap(err, "generate report id")
	}
	createdAt := r.now().UTC().Format(createdAtLayout)
	stmt := `INSERT INTO reports (id, user_id, created_at, data) VALUES (?, ?, ?, ?)`
	// data is bound as text so that JSON_VALID accepts it.
	if _, err = r.db.ReadWrite.ExecContext(ctx, stmt, id.String(), userID, createdAt, string(data)); err != nil {
		return "", errors.Wrap(err, "insert report", slog.String("user_id", hex.EncodeToString(userID)))
	}
	return id.String(), nil
}

// Get reads a single report owned by userID. Returns ErrNotFound when the report does not exist or belongs to
// someone else.
func (r *ReportRepository) Get(ctx context.Context, id string, userID []byte) (*models.Report, error) {
	var row reportRow
	stmt := `SELECT id, user_id, created_at, data FROM reports WHERE id = ? AND user_id = ?`
	if err := r.db.ReadOnly.GetContext(ctx, &row, stmt, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrap(ErrNotFound, "read report", slog.String("report_id", id))
		}
		return nil, errors.Wrap(err, "read report", slog.String("report_id", id))
	}
	report, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// History lists the owner's reports, most recent first. A non-positive limit falls back to DefaultHistoryLimit.
func (r *ReportRepository) History(ctx context.Context, userID []byte, limit int) ([]models.Report, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	var rows []reportRow
	stmt := `SELECT id, user_id, created_at, data
FROM reports
WHERE user_id = ?
ORDER BY created_at DESC, rowid DESC
LIMIT ?`
	if err := r.db.ReadOnly.SelectContext(ctx, &rows, stmt, userID, limit); err != nil {
		return nil, errors.Wrap(err, "select reports", slog.String("user_id", hex.EncodeToString(userID)))
	}
	reports := make([]models.Report, 0, len(rows))
	for _, row := range rows {
		report, err := row.toModel()
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}
