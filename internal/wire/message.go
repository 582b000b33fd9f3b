package wire

import "time"

// Actions identify what an in-page script is asking the engine to do.
// The set is closed: the gateway dispatches each action explicitly and
// silently drops anything it does not recognize, because unknown or
// malformed requests are normal typing noise, not protocol errors.
const (
	// ActionStatusRequest asks for a fresh State push to the requesting tab.
	ActionStatusRequest = "statusRequest"

	// ActionSetPossiblePassword stages an unconfirmed email+password pair
	// observed on a login form.
	ActionSetPossiblePassword = "setPossiblePassword"

	// ActionDeletePossiblePassword discards the tab's staged credential.
	ActionDeletePossiblePassword = "deletePossiblePassword"

	// ActionSavePossiblePassword commits the tab's staged credential to
	// the persistent store after a successful login signal.
	ActionSavePossiblePassword = "savePossiblePassword"

	// ActionCheckPassword asks whether a typed password matches a stored
	// credential. The only action with a response.
	ActionCheckPassword = "checkPassword"

	// ActionOTPAlert reports one-time-passcode entry on a tab that is in
	// OTP mode after a password match.
	ActionOTPAlert = "otpAlert"

	// ActionClearOTPMode returns the tab to the idle detection state.
	ActionClearOTPMode = "clearOtpMode"

	// ActionLooksLikeGoogle reports that the page resembles a trusted
	// login surface; the phishing signal is computed by the caller.
	ActionLooksLikeGoogle = "looksLikeGoogle"
)

// Request is the envelope sent by an in-page script over the gateway
// websocket. Which fields are meaningful depends on Action; extras are
// ignored.
type Request struct {
	// Action selects the operation. One of the Action constants.
	Action string `json:"action"`

	// ID correlates a checkPassword request with its Result message.
	// Optional for actions without a response.
	ID string `json:"id,omitempty"`

	// Email and Password carry the observed credential for
	// setPossiblePassword; Password alone for checkPassword.
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`

	// Referer and URL describe the page for checkPassword, otpAlert,
	// and looksLikeGoogle.
	Referer string `json:"referer,omitempty"`
	URL     string `json:"url,omitempty"`
}

// Message kinds identify the type of payload pushed by the server.
const (
	// KindState carries a State payload.
	KindState = "state"

	// KindResult carries the boolean outcome of a checkPassword request.
	KindResult = "result"
)

// ServerMessage is the envelope pushed to an in-page script.
type ServerMessage struct {
	Kind string `json:"kind"`

	// ID echoes the Request.ID for KindResult messages.
	ID string `json:"id,omitempty"`

	// Match is the checkPassword outcome for KindResult messages.
	Match *bool `json:"match,omitempty"`

	// State is the payload for KindState messages.
	State *State `json:"state,omitempty"`
}

// State is pushed to tabs on statusRequest and after every store write.
// It is advisory data: the in-page script uses it to skip hashing
// passwords of lengths nobody is tracking and to render OTP-mode hints.
type State struct {
	// PasswordLengths is a sparse boolean array indexed by password
	// length, true at every watched length.
	PasswordLengths []bool `json:"passwordLengths"`

	// OTPMode reports whether the tab saw a password match that has not
	// been cleared yet.
	OTPMode bool `json:"otpMode"`

	// OTPTime is when the match was observed. Nil outside OTP mode.
	OTPTime *time.Time `json:"otpTime,omitempty"`
}

// NewStateMessage wraps a State in its server envelope. A nil
// PasswordLengths slice is replaced with an empty one so the field
// always marshals as a JSON array, never null.
func NewStateMessage(state State) ServerMessage {
	if state.PasswordLengths == nil {
		state.PasswordLengths = []bool{}
	}
	return ServerMessage{Kind: KindState, State: &state}
}

// NewResultMessage wraps a checkPassword outcome in its server envelope.
func NewResultMessage(id string, match bool) ServerMessage {
	return ServerMessage{Kind: KindResult, ID: id, Match: &match}
}
