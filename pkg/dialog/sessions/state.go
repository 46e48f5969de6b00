package sessions

// State of the turn-taking controller.
type State int32

const (
	StateIdle State = iota
	StateListening
	StateRecording
	StateTranscribing
	StateThinking
	StateSpeaking
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateRecording:
		return "recording"
	case StateTranscribing:
		return "transcribing"
	case StateThinking:
		return "thinking"
	case StateSpeaking:
		return "speaking"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// StatusText is the short line shown to the user for each state.
func (s State) StatusText() string {
	switch s {
	case StateIdle:
		return "Stopped"
	case StateListening:
		return "Listening…"
	case StateRecording:
		return "Recording…"
	case StateTranscribing:
		return "Transcribing…"
	case StateThinking:
		return "Thinking…"
	case StateSpeaking:
		return "Speaking…"
	case StateError:
		return "Something went wrong"
	default:
		return ""
	}
}
