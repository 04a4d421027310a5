package agent

import (
	"sync"
	"time"

	"github.com/verimeet/verimeet/pkg/analysis/summary"
)

// Session lifecycle states.
const (
	StateIdle      = "idle"
	StateActive    = "active"
	StateFinalized = "finalized"
)

// FactCheckRecord is a fact detected during a meeting together with its
// verification outcome.
type FactCheckRecord struct {
	Claim      string `json:"claim"`
	Type       string `json:"type"`
	Context    string `json:"context,omitempty"`
	Verified   bool   `json:"verified"`
	Confidence string `json:"confidence,omitempty"`
	SourceURL  string `json:"source_url,omitempty"`
}

// Session accumulates the state of one meeting, keyed by its bot id. All
// methods are safe for concurrent use; webhook deliveries for the same bot
// may overlap.
type Session struct {
	mu sync.Mutex

	botID          string
	meetingURL     string
	state          string
	segments       []string
	rollingSummary string
	factChecks     []FactCheckRecord
	intentsSeen    int
	createdAt      time.Time
	updatedAt      time.Time
}

func newSession(botID string) *Session {
	now := time.Now().UTC()
	return &Session{
		botID:     botID,
		state:     StateIdle,
		createdAt: now,
		updatedAt: now,
	}
}

// BotID returns the bot id this session belongs to.
func (s *Session) BotID() string { return s.botID }

// State returns the current lifecycle state.
func (s *Session) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetMeetingURL records the meeting URL once known.
func (s *Session) SetMeetingURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meetingURL = url
}

// MeetingURL returns the meeting URL, if known.
func (s *Session) MeetingURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meetingURL
}

// appendSegment records a transcript segment and activates the session.
// It returns the segment's index, or -1 when the session is finalized.
func (s *Session) appendSegment(text string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateFinalized {
		return -1
	}
	s.state = StateActive
	s.segments = append(s.segments, text)
	s.updatedAt = time.Now().UTC()
	return len(s.segments) - 1
}

// Segments returns a copy of the transcript segments in arrival order.
func (s *Session) Segments() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.segments))
	copy(out, s.segments)
	return out
}

// Summary returns the current rolling summary.
func (s *Session) Summary() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rollingSummary
}

func (s *Session) setSummary(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollingSummary = text
	s.updatedAt = time.Now().UTC()
}

func (s *Session) addFactCheck(rec FactCheckRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.factChecks = append(s.factChecks, rec)
}

// FactChecks returns a copy of all fact check records so far.
func (s *Session) FactChecks() []FactCheckRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]FactCheckRecord, len(s.factChecks))
	copy(out, s.factChecks)
	return out
}

// VerifiedCount returns how many fact checks verified successfully.
func (s *Session) VerifiedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, fc := range s.factChecks {
		if fc.Verified {
			n++
		}
	}
	return n
}

func (s *Session) addIntents(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intentsSeen += n
}

// IntentCount returns the number of actionable intents seen so far.
func (s *Session) IntentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intentsSeen
}

// finalize transitions the session to finalized. It returns false when the
// session was already finalized.
func (s *Session) finalize() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateFinalized {
		return false
	}
	s.state = StateFinalized
	s.updatedAt = time.Now().UTC()
	return true
}

// summaryFactChecks converts the session's records for the final summary
// prompt.
func (s *Session) summaryFactChecks() []summary.FactCheck {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]summary.FactCheck, 0, len(s.factChecks))
	for _, fc := range s.factChecks {
		out = append(out, summary.FactCheck{Claim: fc.Claim, Verified: fc.Verified})
	}
	return out
}

// Registry tracks the sessions of all meetings the service is attending.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	order    []string
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// GetOrCreate returns the session for botID, creating it on first use.
func (r *Registry) GetOrCreate(botID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[botID]; ok {
		return s
	}
	s := newSession(botID)
	r.sessions[botID] = s
	r.order = append(r.order, botID)
	return s
}

// Lookup returns the session for botID, or nil when none exists.
func (r *Registry) Lookup(botID string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[botID]
}

// Latest returns the most recently created session, or nil when the
// registry is empty. It serves status queries that do not name a bot.
func (r *Registry) Latest() *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.order) == 0 {
		return nil
	}
	return r.sessions[r.order[len(r.order)-1]]
}

// Len returns the number of tracked sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
