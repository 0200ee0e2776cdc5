package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"booknest_backend/internal/models"
)

// LogRepository persists audit log entries. Append and read only.
type LogRepository interface {
	CreateLog(entry *models.Log) (int64, error)
	ListLogs(skip, limit int64) ([]models.Log, error)
}

type logRepository struct {
	db *sql.DB
}

// NewLogRepository creates a new instance of LogRepository.
func NewLogRepository(db *sql.DB) LogRepository {
	return &logRepository{db: db}
}

func (r *logRepository) CreateLog(entry *models.Log) (int64, error) {
	var id int64
	err := r.db.QueryRow(
		`INSERT INTO logs (action_by_id, action_type, description, target_type, target_id, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		entry.ActionByID, entry.ActionType, entry.Description, entry.TargetType, entry.TargetID, time.Now(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%w: creating log entry: %v", ErrDatabaseError, err)
	}
	return id, nil
}

// ListLogs returns entries newest first with the actor's username joined.
func (r *logRepository) ListLogs(skip, limit int64) ([]models.Log, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(
		`SELECT l.id, l.action_by_id, l.action_type, l.description, l.target_type, l.target_id, l.timestamp,
		        u.username
		 FROM logs l
		 LEFT JOIN users u ON l.action_by_id = u.id
		 ORDER BY l.timestamp DESC
		 OFFSET $1 LIMIT $2`,
		skip, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: listing logs: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var logs []models.Log
	for rows.Next() {
		entry := models.Log{}
		var actionBy, targetID sql.NullInt64
		var targetType, username sql.NullString
		err := rows.Scan(
			&entry.ID, &actionBy, &entry.ActionType, &entry.Description,
			&targetType, &targetID, &entry.Timestamp, &username,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning log entry: %v", ErrDatabaseError, err)
		}
		if actionBy.Valid {
			entry.ActionByID = &actionBy.Int64
		}
		if targetID.Valid {
			entry.TargetID = &targetID.Int64
		}
		if targetType.Valid {
			entry.TargetType = &targetType.String
		}
		if username.Valid {
			entry.ActionByUsername = &username.String
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}
