package recorder

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/aura-webinar/liverelay/internal/mocks"
	"github.com/aura-webinar/liverelay/internal/models"
)

func chunk(b models.Broadcast, seq uint64, data string) models.Chunk {
	return models.Chunk{BroadcastID: b.ID, Seq: seq, Payload: []byte(data)}
}

func TestRecorder_WritesBroadcastAndHandsOff(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	finisher := mocks.NewMockFinisher(ctrl)
	dir := t.TempDir()

	b := models.Broadcast{ID: uuid.New(), MimeType: "video/webm"}
	var started models.Recording
	finisher.EXPECT().RecordingStarted(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, rec models.Recording) error {
			started = rec
			return nil
		})
	var finished models.Recording
	finisher.EXPECT().RecordingFinished(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, rec models.Recording) error {
			finished = rec
			return nil
		})

	r, err := New(dir, 32, finisher, nil)
	req.NoError(err)
	r.BroadcastStarted(b)
	r.ChunkRelayed(b, chunk(b, 1, "head"))
	r.ChunkRelayed(b, chunk(b, 2, "-a"))
	// seq 3 never reached the recorder
	r.ChunkRelayed(b, chunk(b, 4, "-c"))
	r.BroadcastEnded(b)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.Run(ctx)

	req.Equal(models.RecordingStatusRecording, started.Status)
	req.Equal(started.ID, finished.ID)
	req.Equal(models.RecordingStatusProcessing, finished.Status)
	req.Equal(uint64(3), finished.Chunks)
	req.Equal(uint64(1), finished.DroppedChunks)
	req.Equal(int64(len("head-a-c")), finished.FileSize)
	req.Equal("video/webm", finished.ContentType)
	req.Equal(filepath.Join(dir, b.ID.String()+".webm"), finished.LocalPath)

	data, err := os.ReadFile(finished.LocalPath)
	req.NoError(err)
	req.Equal("head-a-c", string(data))
}

func TestRecorder_BroadcastWithoutChunksLeavesNoFile(t *testing.T) {
	req := require.New(t)
	dir := t.TempDir()
	r, err := New(dir, 32, nil, nil)
	req.NoError(err)

	b := models.Broadcast{ID: uuid.New()}
	r.BroadcastStarted(b)
	r.BroadcastEnded(b)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.Run(ctx)

	entries, err := os.ReadDir(dir)
	req.NoError(err)
	req.Empty(entries)
}

func TestRecorder_ShutdownFinishesOpenRecording(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	finisher := mocks.NewMockFinisher(ctrl)
	finisher.EXPECT().RecordingStarted(gomock.Any(), gomock.Any()).Return(nil)
	finisher.EXPECT().RecordingFinished(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, rec models.Recording) error {
			req.True(strings.HasSuffix(rec.LocalPath, ".bin"))
			req.Equal(uint64(1), rec.Chunks)
			return nil
		})

	r, err := New(t.TempDir(), 32, finisher, nil)
	req.NoError(err)
	b := models.Broadcast{ID: uuid.New()}
	r.ChunkRelayed(b, chunk(b, 1, "x"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.Run(ctx)
}

func TestRecorder_ChunksNeverTakeReservedSlots(t *testing.T) {
	req := require.New(t)
	r, err := New(t.TempDir(), controlReserve+2, nil, nil)
	req.NoError(err)

	b := models.Broadcast{ID: uuid.New()}
	for seq := uint64(1); seq <= 5; seq++ {
		r.ChunkRelayed(b, chunk(b, seq, "x"))
	}
	req.Equal(uint64(3), r.Dropped())
	for i := 0; i < controlReserve; i++ {
		r.BroadcastEnded(b)
	}
	req.Len(r.events, controlReserve+2)
}
