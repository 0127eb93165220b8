package chatlog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/aura-webinar/liverelay/internal/mocks"
	"github.com/aura-webinar/liverelay/internal/models"
)

func TestTap_StoresDeliveredChat(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockChatStore(ctrl)

	stored := make(chan uint64, 2)
	store.EXPECT().Put(gomock.Any()).DoAndReturn(func(m models.ChatMessage) error {
		stored <- m.Seq
		return nil
	}).Times(1)
	store.EXPECT().Put(gomock.Any()).DoAndReturn(func(m models.ChatMessage) error {
		stored <- m.Seq
		return errors.New("disk full")
	}).Times(1)

	tap := NewTap(store, 4, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tap.Run(ctx)
		close(done)
	}()

	tap.ChatDelivered(models.ChatMessage{Seq: 1, Text: "a"})
	tap.ChatDelivered(models.ChatMessage{Seq: 2, Text: "b"})

	for _, want := range []uint64{1, 2} {
		select {
		case got := <-stored:
			req.Equal(want, got)
		case <-time.After(2 * time.Second):
			t.Fatal("message not stored")
		}
	}
	cancel()
	<-done
}

func TestTap_DropsWhenFull(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockChatStore(ctrl)
	store.EXPECT().Put(gomock.Any()).Return(nil).Times(1)

	// nothing drains the queue until Run
	tap := NewTap(store, 1, nil)
	tap.ChatDelivered(models.ChatMessage{Seq: 1})
	tap.ChatDelivered(models.ChatMessage{Seq: 2})
	require.Equal(t, uint64(1), tap.Dropped())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tap.Run(ctx)
}
