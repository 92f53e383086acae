package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	miniogo "github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/minio"

	"github.com/RMahshie/tinfoil/pkg/models"
)

func TestReportKey(t *testing.T) {
	assert.Equal(t, "reports/42/abc.json", ReportKey(42, "abc"))
}

func TestNewReportStore_Disabled(t *testing.T) {
	store, err := NewReportStore(context.Background(), S3Config{})
	assert.Nil(t, store)
	assert.True(t, errors.Is(err, ErrArchiveDisabled))
}

func TestReportStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := minio.Run(ctx,
		"minio/minio:RELEASE.2024-10-29T16-01-48Z",
		minio.WithUsername("minioadmin"),
		minio.WithPassword("minioadmin"),
	)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, container.Terminate(ctx))
	}()

	endpoint, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	bucket := "tinfoil-test-" + uuid.New().String()[:8]
	admin, err := miniogo.New(endpoint, &miniogo.Options{
		Creds: miniocreds.NewStaticV4("minioadmin", "minioadmin", ""),
	})
	require.NoError(t, err)
	require.NoError(t, admin.MakeBucket(ctx, bucket, miniogo.MakeBucketOptions{}))

	store, err := NewReportStore(ctx, S3Config{
		Bucket:    bucket,
		Endpoint:  endpoint,
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		URLExpiry: time.Minute,
	})
	require.NoError(t, err)

	result := &models.SessionResult{
		ID:                 uuid.New().String(),
		SessionID:          uuid.New().String(),
		ContestantID:       7,
		HatType:            models.HatHybrid,
		AverageAttenuation: 14.25,
		ValidCount:         1,
		Points: []models.ResultPoint{
			{Frequency: models.MHz(915), Baseline: -60, Hat: -74.25, Attenuation: 14.25, Valid: true},
		},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}

	key, err := store.UploadReport(ctx, result)
	require.NoError(t, err)
	assert.Equal(t, ReportKey(7, result.ID), key)

	got, err := store.FetchReport(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, result.ID, got.ID)
	assert.Equal(t, result.Points, got.Points)

	url, err := store.GenerateDownloadURL(ctx, key)
	require.NoError(t, err)
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), result.ID)

	_, err = store.FetchReport(ctx, ReportKey(7, "missing"))
	assert.ErrorIs(t, err, models.ErrNotFound)
}
