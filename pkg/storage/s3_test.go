package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRecordingKey(t *testing.T) {
	require.Equal(t, "recordings/b1/r1.webm", RecordingKey("b1", "r1", ".webm"))
	require.Equal(t, "recordings/b1/r1.webm", RecordingKey("b1", "r1", "webm"))
	require.Equal(t, "recordings/b1/r1", RecordingKey("b1", "r1", ""))
}

func TestPresignRecordingDownload(t *testing.T) {
	req := require.New(t)
	s, err := NewS3(context.Background(), S3Config{
		Region:               "eu-west-1",
		AccessKeyID:          "AKIDEXAMPLE",
		SecretAccessKey:      "secret",
		Endpoint:             "http://localhost:9000",
		RecordingsBucket:     "recordings",
		PresignExpireMinutes: 5,
	}, nil)
	req.NoError(err)
	req.Equal(5*time.Minute, s.PresignExpire())

	url, err := s.PresignRecordingDownload(context.Background(), "recordings/b1/r1.webm")
	req.NoError(err)
	req.True(strings.HasPrefix(url, "http://localhost:9000/recordings/recordings/b1/r1.webm?"), url)
	req.Contains(url, "X-Amz-Signature=")
	req.Contains(url, "X-Amz-Expires=300")

	req.Equal("http://localhost:9000/recordings/recordings/b1/r1.webm", s.ObjectURL("recordings/b1/r1.webm"))
}
