package services

import (
	"booknest_backend/internal/models"
	"booknest_backend/internal/repositories"
	"booknest_backend/pkg/utils"

	"github.com/rs/zerolog/log"
)

// maxLogDescription caps the description column so oversized payloads cannot
// fail the insert.
const maxLogDescription = 1000

// --- LogService Interface ---

// LogService is the audit sink. Record is fire-and-forget: a failed write is
// logged to the console and swallowed so auditing never breaks the operation
// being audited.
type LogService interface {
	Record(actorID *int64, actionType, description string, targetType *string, targetID *int64)
	ListLogs(skip, limit int64) ([]models.Log, error)
}

type logService struct {
	logRepo repositories.LogRepository
}

// NewLogService creates a new instance of LogService.
func NewLogService(logRepo repositories.LogRepository) LogService {
	return &logService{logRepo: logRepo}
}

func (s *logService) Record(actorID *int64, actionType, description string, targetType *string, targetID *int64) {
	entry := &models.Log{
		ActionByID:  actorID,
		ActionType:  actionType,
		Description: utils.TruncateString(description, maxLogDescription),
		TargetType:  targetType,
		TargetID:    targetID,
	}
	if _, err := s.logRepo.CreateLog(entry); err != nil {
		log.Error().Err(err).Str("action_type", actionType).Msg("audit log write failed")
	}
}

func (s *logService) ListLogs(skip, limit int64) ([]models.Log, error) {
	return s.logRepo.ListLogs(skip, limit)
}
