package usecase

import (
	"context"
	"encoding/json"
	"testing"

	"FundFlow/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKafkaSnapshotHandler(t *testing.T) {
	store := &fakeStorage{}
	rec := newRecorder()
	h := NewKafkaSnapshotHandler("fundflow.snapshots", ArchiveClickHouse, store, rec)
	assert.Equal(t, "fundflow.snapshots", h.Topic())

	snap := rawTable("600519", models.MarketSH, 4)
	snap.Rows[2].NetAmount[models.ClassLarge].Valid = false
	b, err := json.Marshal(snap)
	require.NoError(t, err)

	require.NoError(t, h.Handle(context.Background(), b))
	require.Len(t, store.stored, 1)
	got := store.stored[0]
	assert.Equal(t, "600519", got.Code)
	assert.Equal(t, 4, got.Len())
	assert.False(t, got.Rows[2].NetAmount[models.ClassLarge].Valid)
	assert.True(t, got.Rows[0].Date.Equal(snap.Rows[0].Date))
	assert.Equal(t, 4, rec.archived[ArchiveClickHouse])
}

func TestKafkaSnapshotHandlerRejects(t *testing.T) {
	store := &fakeStorage{}
	rec := newRecorder()
	h := NewKafkaSnapshotHandler("t", ArchiveSQLite, store, rec)

	assert.Error(t, h.Handle(context.Background(), []byte("{")))
	assert.Error(t, h.Handle(context.Background(), []byte(`{"rows":[]}`)))
	store.err = errUpstream
	b, _ := json.Marshal(rawTable("600519", models.MarketSH, 1))
	assert.ErrorIs(t, h.Handle(context.Background(), b), errUpstream)
	assert.Equal(t, []string{"consumer_unmarshal", "consumer_invalid", "consumer_store"}, rec.errors)
}
