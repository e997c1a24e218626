package call

import "errors"

var (
	ErrAlreadyStarted   = errors.New("call: already started")
	ErrNotStarted       = errors.New("call: not started")
	ErrAlreadyListening = errors.New("call: already listening")
	ErrBusy             = errors.New("call: reply pending")
	ErrSessionEnded     = errors.New("call: session ended")
	ErrMicTimeout       = errors.New("call: mic timed out")
)

// Messages shown to the user.
const (
	MsgMicTimeout  = "Mic timed out. Tap again to talk."
	MsgMicDenied   = "Please allow microphone access."
	MsgNoSpeech    = "I didn't hear anything. Try again."
	MsgMicError    = "Something went wrong with the mic."
	MsgAPIError    = "Unable to connect to the backend. Please try again later."
	MsgFetchFailed = "Something went wrong while fetching the response."
	MsgSpeakerOn   = "Speaker mode is always on by default!"
)
