package relay

import (
	"github.com/aura-webinar/liverelay/internal/models"
	"github.com/gabriel-vasile/mimetype"
)

// initSegment holds the first chunk of the running broadcast. For webm the
// first MediaRecorder blob carries the EBML header and track info, and a
// player that never sees it cannot decode anything that follows.
type initSegment struct {
	chunk models.Chunk
	mime  string
	ok    bool
}

func (s *initSegment) Store(c models.Chunk) {
	s.chunk = c
	s.mime = mimetype.Detect(c.Payload).String()
	s.ok = true
}

func (s *initSegment) Get() (models.Chunk, bool) { return s.chunk, s.ok }

func (s *initSegment) MimeType() string { return s.mime }

func (s *initSegment) Reset() { *s = initSegment{} }
