package services

import (
	"errors"
	"strings"
	"testing"

	"booknest_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureLogRepo struct {
	entries []*models.Log
	err     error
}

func (c *captureLogRepo) CreateLog(entry *models.Log) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.entries = append(c.entries, entry)
	return int64(len(c.entries)), nil
}

func (c *captureLogRepo) ListLogs(skip, limit int64) ([]models.Log, error) {
	return nil, nil
}

func TestLogServiceRecord(t *testing.T) {
	t.Run("stores the entry", func(t *testing.T) {
		repo := &captureLogRepo{}
		svc := NewLogService(repo)

		actorID := int64(3)
		svc.Record(&actorID, "BOOK_CREATE", "Created book", nil, nil)

		require.Len(t, repo.entries, 1)
		assert.Equal(t, "BOOK_CREATE", repo.entries[0].ActionType)
		require.NotNil(t, repo.entries[0].ActionByID)
		assert.Equal(t, actorID, *repo.entries[0].ActionByID)
	})

	t.Run("truncates oversized descriptions", func(t *testing.T) {
		repo := &captureLogRepo{}
		svc := NewLogService(repo)

		svc.Record(nil, "BOOK_UPDATE", strings.Repeat("x", 5000), nil, nil)

		require.Len(t, repo.entries, 1)
		desc := repo.entries[0].Description
		assert.Len(t, desc, 1000)
		assert.True(t, strings.HasSuffix(desc, "..."))
	})

	t.Run("a failed write is swallowed", func(t *testing.T) {
		repo := &captureLogRepo{err: errors.New("insert failed")}
		svc := NewLogService(repo)

		assert.NotPanics(t, func() {
			svc.Record(nil, "BOOK_DELETE", "Deleted book", nil, nil)
		})
	})
}
