package services

import (
	"context"
	"errors"
	"testing"

	"github.com/fyerfyer/scholar-assistant/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestValidateStateTransition(t *testing.T) {
	m := NewPaperStatusManager(nil, quietLogger())

	tests := []struct {
		from, to models.PaperStatus
		valid    bool
	}{
		{models.PaperStatusIdle, models.PaperStatusQueued, true},
		{models.PaperStatusIdle, models.PaperStatusRunning, true},
		{models.PaperStatusIdle, models.PaperStatusDone, false},
		{models.PaperStatusQueued, models.PaperStatusRunning, true},
		{models.PaperStatusQueued, models.PaperStatusQueued, false},
		{models.PaperStatusRunning, models.PaperStatusDoneWithFallback, true},
		{models.PaperStatusRunning, models.PaperStatusQueued, false},
		{models.PaperStatusDone, models.PaperStatusRunning, true},
		{models.PaperStatusFailed, models.PaperStatusQueued, true},
	}

	for _, tt := range tests {
		err := m.ValidateStateTransition(tt.from, tt.to)
		if tt.valid {
			assert.NoError(t, err, "%s -> %s", tt.from, tt.to)
		} else {
			assert.True(t, errors.Is(err, models.ErrInvalidPaperStatus), "%s -> %s", tt.from, tt.to)
		}
	}
}

func TestMarkAsRunning(t *testing.T) {
	ctx := context.Background()
	repo := setupTestDB(t)
	m := NewPaperStatusManager(repo, quietLogger())

	require.NoError(t, repo.Create(ctx, &models.Paper{ID: "p1", Snapshot: datatypes.JSON(`{}`)}))

	// 任务队列只处理已入队的论文
	err := m.MarkAsRunning(ctx, "p1", true)
	assert.True(t, errors.Is(err, models.ErrInvalidPaperStatus))

	require.NoError(t, m.MarkAsRunning(ctx, "p1", false))
	status, err := m.GetStatus(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, models.PaperStatusRunning, status)

	err = m.MarkAsRunning(ctx, "p1", false)
	assert.True(t, errors.Is(err, models.ErrPaperBusy))

	err = m.MarkAsQueued(ctx, "p1")
	assert.True(t, errors.Is(err, models.ErrPaperBusy))

	err = m.MarkAsRunning(ctx, "missing", false)
	assert.True(t, errors.Is(err, models.ErrPaperNotFound))
}

func TestMarkAsQueuedThenRunning(t *testing.T) {
	ctx := context.Background()
	repo := setupTestDB(t)
	m := NewPaperStatusManager(repo, quietLogger())

	require.NoError(t, repo.Create(ctx, &models.Paper{ID: "p1", Status: models.PaperStatusDone, Snapshot: datatypes.JSON(`{}`)}))

	require.NoError(t, m.MarkAsQueued(ctx, "p1"))

	// 同步处理不能抢占已入队的论文
	err := m.MarkAsRunning(ctx, "p1", false)
	assert.True(t, errors.Is(err, models.ErrPaperBusy))

	require.NoError(t, m.MarkAsRunning(ctx, "p1", true))

	require.NoError(t, m.MarkAsFailed(ctx, "p1", "boom"))
	p, err := repo.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, models.PaperStatusFailed, p.Status)
	assert.Equal(t, "boom", p.Error)
}

func TestEnsureEditable(t *testing.T) {
	m := NewPaperStatusManager(nil, quietLogger())

	assert.NoError(t, m.EnsureEditable(&models.Paper{ID: "a", Status: models.PaperStatusIdle}))
	assert.NoError(t, m.EnsureEditable(&models.Paper{ID: "a", Status: models.PaperStatusFailed}))
	assert.True(t, errors.Is(m.EnsureEditable(&models.Paper{ID: "a", Status: models.PaperStatusQueued}), models.ErrPaperBusy))
	assert.True(t, errors.Is(m.EnsureEditable(&models.Paper{ID: "a", Status: models.PaperStatusRunning}), models.ErrPaperBusy))
}

func TestRecoverInterrupted(t *testing.T) {
	ctx := context.Background()
	repo := setupTestDB(t)
	m := NewPaperStatusManager(repo, quietLogger())

	for id, status := range map[string]models.PaperStatus{
		"r1": models.PaperStatusRunning,
		"r2": models.PaperStatusRunning,
		"d1": models.PaperStatusDone,
	} {
		require.NoError(t, repo.Create(ctx, &models.Paper{ID: id, Status: status, Snapshot: datatypes.JSON(`{}`)}))
	}

	n, err := m.RecoverInterrupted(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	p, err := repo.GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, models.PaperStatusFailed, p.Status)
	assert.Equal(t, "processing interrupted", p.Error)

	p, err = repo.GetByID(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, models.PaperStatusDone, p.Status)
}
