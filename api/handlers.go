package api

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/brainstream/pkg/frame"
	"github.com/papercomputeco/brainstream/pkg/storage"
)

const (
	defaultFrameLimit = 20
	maxFrameLimit     = 500
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error string `json:"error"`
}

// FrameSource names where a frames listing came from.
type FrameSource string

const (
	FrameSourceArchive FrameSource = "archive"
	FrameSourceSession FrameSource = "session"
)

// FramesResponse lists recent frames, newest first.
type FramesResponse struct {
	Source FrameSource  `json:"source"`
	Frames []FrameEntry `json:"frames"`
}

// FrameEntry is one frame in a listing. The archive fields are only set when
// the frame came from the archive.
type FrameEntry struct {
	ArchiveID    int64       `json:"archive_id,omitempty"`
	ConnectionID string      `json:"connection_id,omitempty"`
	Sequence     uint64      `json:"sequence,omitempty"`
	Frame        frame.Frame `json:"frame"`
}

func entryFromRecord(rec *storage.Record) FrameEntry {
	return FrameEntry{
		ArchiveID:    rec.ID,
		ConnectionID: rec.ConnectionID,
		Sequence:     rec.Sequence,
		Frame:        rec.Frame,
	}
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleState returns the session snapshot.
func (s *Server) handleState(c *fiber.Ctx) error {
	return c.JSON(s.session.Snapshot())
}

// handleReset clears the session's logs and derived state.
func (s *Server) handleReset(c *fiber.Ctx) error {
	s.session.Reset()
	s.logger.Info("session state reset", "remote", c.IP())
	return c.JSON(s.session.Snapshot())
}

// handleFrames lists recent frames from the archive when one is configured,
// and from the session's frame log otherwise.
func (s *Server) handleFrames(c *fiber.Ctx) error {
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	if s.archive == nil {
		frames := s.session.Snapshot().Frames
		if len(frames) > limit {
			frames = frames[:limit]
		}
		entries := make([]FrameEntry, 0, len(frames))
		for _, f := range frames {
			entries = append(entries, FrameEntry{Frame: f})
		}
		return c.JSON(FramesResponse{Source: FrameSourceSession, Frames: entries})
	}

	var records []*storage.Record
	if conn := c.Query("connection"); conn != "" {
		records, err = s.archive.ByConnection(c.UserContext(), conn, limit)
	} else {
		records, err = s.archive.Recent(c.UserContext(), limit)
	}
	if err != nil {
		s.logger.Error("listing archived frames", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list frames"})
	}

	entries := make([]FrameEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, entryFromRecord(rec))
	}
	return c.JSON(FramesResponse{Source: FrameSourceArchive, Frames: entries})
}

// handleGetFrame returns a single archived frame by its id.
func (s *Server) handleGetFrame(c *fiber.Ctx) error {
	if s.archive == nil {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "no archive configured"})
	}

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "id must be an integer"})
	}

	rec, err := s.archive.Get(c.UserContext(), id)
	var notFound storage.ErrNotFound
	if errors.As(err, &notFound) {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "frame not found"})
	}
	if err != nil {
		s.logger.Error("reading archived frame", "id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to read frame"})
	}

	return c.JSON(entryFromRecord(rec))
}

// handleManifest returns the current dashboard manifest.
func (s *Server) handleManifest(c *fiber.Ctx) error {
	return c.JSON(s.Manifest())
}

// handleBrainHealth returns the brain's health, degraded to a cached or
// placeholder value when the brain does not answer.
func (s *Server) handleBrainHealth(c *fiber.Ctx) error {
	return c.JSON(s.session.Health(c.UserContext()))
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultFrameLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	return min(n, maxFrameLimit), nil
}
