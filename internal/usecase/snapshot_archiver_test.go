package usecase

import (
	"context"
	"testing"

	"FundFlow/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotArchiverRouting(t *testing.T) {
	snap := rawTable("600519", models.MarketSH, 3)

	pub := &fakePublisher{}
	rec := newRecorder()
	a, err := NewSnapshotArchiver(pub, nil, rec, ArchiveKafka)
	require.NoError(t, err)
	require.NoError(t, a.Archive(context.Background(), snap))
	assert.Len(t, pub.published, 1)
	assert.Equal(t, 3, rec.archived[ArchiveKafka])

	store := &fakeStorage{}
	a, err = NewSnapshotArchiver(nil, store, rec, ArchiveClickHouse)
	require.NoError(t, err)
	require.NoError(t, a.Archive(context.Background(), snap))
	assert.Len(t, store.stored, 1)
	assert.Equal(t, ArchiveClickHouse, a.Backend())
}

func TestSnapshotArchiverNone(t *testing.T) {
	a, err := NewSnapshotArchiver(nil, nil, nil, "")
	require.NoError(t, err)
	assert.False(t, a.Enabled())
	assert.Equal(t, ArchiveNone, a.Backend())
	assert.NoError(t, a.Archive(context.Background(), rawTable("600519", models.MarketSH, 3)))

	var nilArchiver *SnapshotArchiver
	assert.NoError(t, nilArchiver.Archive(context.Background(), rawTable("600519", models.MarketSH, 3)))
}

func TestSnapshotArchiverValidation(t *testing.T) {
	_, err := NewSnapshotArchiver(nil, nil, nil, ArchiveKafka)
	assert.Error(t, err)
	_, err = NewSnapshotArchiver(nil, nil, nil, ArchiveSQLite)
	assert.Error(t, err)
	_, err = NewSnapshotArchiver(nil, nil, nil, "s3")
	assert.Error(t, err)
}

func TestSnapshotArchiverError(t *testing.T) {
	rec := newRecorder()
	a, err := NewSnapshotArchiver(&fakePublisher{err: errUpstream}, nil, rec, ArchiveKafka)
	require.NoError(t, err)
	err = a.Archive(context.Background(), rawTable("600519", models.MarketSH, 1))
	assert.ErrorIs(t, err, errUpstream)
	assert.Equal(t, []string{"archive"}, rec.errors)
}
