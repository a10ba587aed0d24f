package database

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

func TestSaveRunInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewPostgresStoreWithPool(mock, "harvest_runs")
	require.NoError(t, err)

	started := time.Unix(1700000000, 0).UTC()
	finished := started.Add(90 * time.Second)

	meta := RunMetadata{
		ID:         "0191a5e2-7d5a-7c9e-b111-222233334444",
		StartURL:   "https://shop.example/women/running-shoes",
		ActorRunID: "run-1",
		DatasetID:  "ds-1",
		Status:     "SUCCEEDED",
		Pages:      4,
		Chunks:     19,
		OutputPath: "dataset.json",
		StartedAt:  started,
		FinishedAt: finished,
	}

	mock.ExpectExec("INSERT INTO harvest_runs").
		WithArgs(
			meta.ID,
			meta.StartURL,
			meta.ActorRunID,
			meta.DatasetID,
			meta.Status,
			meta.Pages,
			meta.Chunks,
			meta.OutputPath,
			meta.StartedAt,
			meta.FinishedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.SaveRun(context.Background(), meta))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRunRequiresID(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewPostgresStoreWithPool(mock, "")
	require.NoError(t, err)

	require.Error(t, store.SaveRun(context.Background(), RunMetadata{}))
}

func TestNewPostgresStoreWithPoolValidatesTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewPostgresStoreWithPool(mock, "runs; DROP TABLE users")
	require.Error(t, err)

	_, err = NewPostgresStoreWithPool(nil, "harvest_runs")
	require.Error(t, err)
}

func TestNoOpStore(t *testing.T) {
	t.Parallel()

	var store NoOpStore
	require.NoError(t, store.SaveRun(context.Background(), RunMetadata{}))
	store.Close()
}
