package archive

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/aura-webinar/liverelay/internal/mocks"
	"github.com/aura-webinar/liverelay/internal/models"
)

func TestWriter_ArchivesInOrder(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	bStore := mocks.NewMockBroadcastStore(ctrl)
	sStore := mocks.NewMockSessionStore(ctrl)

	w := NewWriter(bStore, sStore, "main", 16, nil)
	left := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return left }

	b := models.Broadcast{ID: uuid.New(), Session: "main", BroadcasterID: "b"}
	joined := models.ParticipantInfo{ID: "b", UserID: "u1", Role: models.RoleBroadcaster, JoinedAt: left.Add(-time.Minute)}

	gomock.InOrder(
		sStore.EXPECT().LogJoin(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, s models.ParticipantSession) error {
				req.Equal("b", s.ParticipantID)
				req.Equal("main", s.Session)
				req.Equal(models.RoleBroadcaster, s.Role)
				req.Equal(joined.JoinedAt, s.JoinedAt)
				return nil
			}),
		bStore.EXPECT().Create(gomock.Any(), b).Return(nil),
		bStore.EXPECT().Finish(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, got models.Broadcast) error {
				req.Equal(b.ID, got.ID)
				req.Equal(uint64(7), got.Chunks)
				return nil
			}),
		sStore.EXPECT().LogLeave(gomock.Any(), "b", left).Return(nil),
	)

	w.ParticipantJoined(joined)
	w.BroadcastStarted(b)
	ended := b
	ended.Chunks = 7
	w.BroadcastEnded(ended)
	w.ParticipantLeft(joined)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// a cancelled context still drains what is queued
	w.Run(ctx)
	req.Zero(w.Dropped())
}

func TestWriter_DropsWhenQueueFull(t *testing.T) {
	ctrl := gomock.NewController(t)
	sStore := mocks.NewMockSessionStore(ctrl)
	sStore.EXPECT().LogJoin(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	w := NewWriter(nil, sStore, "main", 1, nil)
	w.ParticipantJoined(models.ParticipantInfo{ID: "a"})
	w.ParticipantJoined(models.ParticipantInfo{ID: "b"})
	// no broadcast store: nothing queued
	w.BroadcastStarted(models.Broadcast{})
	require.Equal(t, uint64(1), w.Dropped())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Run(ctx)
}
