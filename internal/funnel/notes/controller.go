// internal/funnel/notes/controller.go
package notes

import (
	"context"
	"sync"
	"time"

	"opportunity-funnel/internal/common/config"
	"opportunity-funnel/internal/common/errors"
	"opportunity-funnel/internal/common/logger"
	"opportunity-funnel/internal/models"
	"opportunity-funnel/internal/remote/opportunityapi"
)

// NotesSaver is the slice of the remote opportunity service autosave needs.
type NotesSaver interface {
	PatchNotes(ctx context.Context, profile models.ProfileContext, opportunityID, text string) (*opportunityapi.NotesResult, error)
}

// Controller opens note-editing sessions. Each open record gets its
// own session owning its own debounce timer, so a timer can never fire
// against a record that is no longer in view.
type Controller struct {
	saver    NotesSaver
	debounce time.Duration
	savedAck time.Duration
	logger   logger.Logger
}

func NewController(saver NotesSaver, cfg config.NotesConfig, log logger.Logger) *Controller {
	return &Controller{
		saver:    saver,
		debounce: cfg.Debounce(),
		savedAck: cfg.SavedAck(),
		logger:   log.WithFields(map[string]interface{}{"component": "notes_autosave"}),
	}
}

// Open starts an editing session for one opportunity's notes.
func (c *Controller) Open(profile models.ProfileContext, opportunityID string) *Session {
	return &Session{
		controller:    c,
		profile:       profile,
		opportunityID: opportunityID,
	}
}

// State is a snapshot of a session's save status.
type State struct {
	Saving bool
	Saved  bool
	Err    error
}

// Session owns the pending edit and the debounce timer for one open
// record. Closed sessions never issue a save.
type Session struct {
	mu            sync.Mutex
	controller    *Controller
	profile       models.ProfileContext
	opportunityID string

	timer    *time.Timer
	ackTimer *time.Timer
	pending  string
	saving   bool
	saved    bool
	lastErr  error
	closed   bool
}

// Update records an edit and restarts the debounce window. A new edit
// before the timer fires cancels the earlier one: last write wins, no
// queued intermediate saves.
func (s *Session) Update(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.pending = text
	s.saved = false
	s.lastErr = nil

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.controller.debounce, s.fire)
}

func (s *Session) fire() {
	s.mu.Lock()
	if s.closed || s.saving {
		// An in-flight save re-checks pending when it finishes and
		// re-arms the debounce if the text moved on.
		s.mu.Unlock()
		return
	}
	text := s.pending
	s.saving = true
	s.mu.Unlock()

	s.save(context.Background(), text)
}

// Flush cancels any pending debounce and saves immediately. Used by
// explicit save actions.
func (s *Session) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	text := s.pending
	s.saving = true
	s.mu.Unlock()

	return s.save(ctx, text)
}

func (s *Session) save(ctx context.Context, text string) error {
	_, err := s.controller.saver.PatchNotes(ctx, s.profile, s.opportunityID, text)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.saving = false
	if s.closed {
		return err
	}

	// An edit made while this save was in flight supersedes it. Re-arm
	// the debounce so the newest text is the one that ends up stored.
	stale := s.pending != text
	if stale {
		if s.timer != nil {
			s.timer.Stop()
		}
		s.timer = time.AfterFunc(s.controller.debounce, s.fire)
	}

	if err != nil {
		saveErr := errors.NewNotesSaveFailedError(s.opportunityID, err)
		s.lastErr = saveErr
		s.controller.logger.WithError(err).Warn("notes save failed", map[string]interface{}{
			"opportunityId": s.opportunityID,
		})
		return saveErr
	}

	if stale {
		// The stored text is already outdated; no saved acknowledgment.
		return nil
	}

	s.saved = true
	if s.ackTimer != nil {
		s.ackTimer.Stop()
	}
	s.ackTimer = time.AfterFunc(s.controller.savedAck, func() {
		s.mu.Lock()
		s.saved = false
		s.mu.Unlock()
	})

	s.controller.logger.Debug("notes saved", map[string]interface{}{
		"opportunityId": s.opportunityID,
		"length":        len(text),
	})
	return nil
}

// Close ends the session, cancelling any pending debounce. A timer
// that fires after Close finds the closed flag and does nothing.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	if s.ackTimer != nil {
		s.ackTimer.Stop()
	}
}

// State returns the current save status.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{Saving: s.saving, Saved: s.saved, Err: s.lastErr}
}
