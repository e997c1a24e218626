package call

// Snapshot is a copy of everything the call UI renders.
type Snapshot struct {
	SessionID     string `json:"sessionId"`
	State         State  `json:"state"`
	Listening     bool   `json:"listening"`
	Loading       bool   `json:"loading"`
	Transcript    string `json:"transcript"`
	Message       string `json:"message"`
	APIError      string `json:"apiError,omitempty"`
	SpeakerBanner string `json:"speakerBanner,omitempty"`
	Elapsed       string `json:"elapsed"`
	Ended         bool   `json:"ended"`
}

// Snapshot returns the current UI state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		SessionID:  s.id,
		State:      s.state,
		Listening:  s.state == StateListening,
		Loading:    s.state == StateAwaitingReply,
		Transcript: s.transcript,
		Message:    s.message,
		APIError:   s.apiError,
		Elapsed:    s.deps.Elapsed.String(),
		Ended:      s.state == StateEnded,
	}
	if s.speakerBanner {
		snap.SpeakerBanner = MsgSpeakerOn
	}
	return snap
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
