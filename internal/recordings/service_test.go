package recordings

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/aura-webinar/liverelay/internal/mocks"
	"github.com/aura-webinar/liverelay/internal/models"
	"github.com/aura-webinar/liverelay/pkg/queue"
)

func TestService_RecordingFinished(t *testing.T) {
	rec := models.Recording{
		ID:          uuid.New(),
		BroadcastID: uuid.New(),
		LocalPath:   "/var/lib/relay/x.webm",
		Status:      models.RecordingStatusProcessing,
	}

	t.Run("stores and schedules upload", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockRecordingStore(ctrl)
		q := mocks.NewMockUploadQueue(ctrl)
		gomock.InOrder(
			store.EXPECT().MarkFinished(gomock.Any(), rec).Return(nil),
			q.EXPECT().EnqueueRecordingUpload(gomock.Any(), queue.RecordingUploadPayload{
				RecordingID: rec.ID,
				BroadcastID: rec.BroadcastID,
				LocalPath:   rec.LocalPath,
			}).Return(nil),
		)
		require.NoError(t, NewService(store, q, nil).RecordingFinished(context.Background(), rec))
	})

	t.Run("failed recording is not uploaded", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockRecordingStore(ctrl)
		q := mocks.NewMockUploadQueue(ctrl)
		failed := rec
		failed.Status = models.RecordingStatusFailed
		store.EXPECT().MarkFinished(gomock.Any(), failed).Return(nil)
		require.NoError(t, NewService(store, q, nil).RecordingFinished(context.Background(), failed))
	})

	t.Run("enqueue failure marks the row failed", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		store := mocks.NewMockRecordingStore(ctrl)
		q := mocks.NewMockUploadQueue(ctrl)
		store.EXPECT().MarkFinished(gomock.Any(), rec).Return(nil)
		q.EXPECT().EnqueueRecordingUpload(gomock.Any(), gomock.Any()).Return(errors.New("redis down"))
		store.EXPECT().UpdateStatus(gomock.Any(), rec.ID, models.RecordingStatusFailed).Return(nil)

		err := NewService(store, q, nil).RecordingFinished(context.Background(), rec)
		req.Error(err)
		req.Contains(err.Error(), "enqueue upload")
	})
}

func TestService_RecordingStarted(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockRecordingStore(ctrl)
	store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("no db"))

	err := NewService(store, nil, nil).RecordingStarted(context.Background(), models.Recording{ID: uuid.New()})
	require.ErrorContains(t, err, "create recording")
}
