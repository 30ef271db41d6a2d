package domain

// CommandType classifies what the user typed at the prompt.
type CommandType int

const (
	CommandUnknown CommandType = iota
	CommandSpeak               // replace anything queued with Payload
	CommandQueue               // append Payload behind queued speech
	CommandPause
	CommandResume
	CommandCancel
	CommandPitch // Value holds the new pitch
	CommandRate  // Value holds the new rate
	CommandVoices
	CommandStatus
	CommandHistory
	CommandRepeat
	CommandHelp
	CommandQuit
)

// String returns a human-readable command type.
func (c CommandType) String() string {
	switch c {
	case CommandSpeak:
		return "speak"
	case CommandQueue:
		return "queue"
	case CommandPause:
		return "pause"
	case CommandResume:
		return "resume"
	case CommandCancel:
		return "cancel"
	case CommandPitch:
		return "pitch"
	case CommandRate:
		return "rate"
	case CommandVoices:
		return "voices"
	case CommandStatus:
		return "status"
	case CommandHistory:
		return "history"
	case CommandRepeat:
		return "repeat"
	case CommandHelp:
		return "help"
	case CommandQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// Command represents a parsed line of user input.
type Command struct {
	Type    CommandType
	Payload string  // text to speak, for speak and queue
	Value   float64 // numeric argument, for pitch and rate
}
