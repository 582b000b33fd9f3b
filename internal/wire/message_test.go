package wire

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestRequestJSON(t *testing.T) {
	t.Parallel()

	t.Run("status request serializes to the action alone", func(t *testing.T) {
		t.Parallel()

		got, err := json.Marshal(Request{Action: ActionStatusRequest})
		if err != nil {
			t.Fatalf("failed to marshal request: %v", err)
		}
		if string(got) != `{"action":"statusRequest"}` {
			t.Errorf("got %s, want bare action envelope", got)
		}
	})

	t.Run("decodes a credential staging request", func(t *testing.T) {
		t.Parallel()

		raw := `{"action":"setPossiblePassword","email":"user@example.com","password":"hunter22"}`

		var req Request
		if err := json.Unmarshal([]byte(raw), &req); err != nil {
			t.Fatalf("failed to unmarshal request: %v", err)
		}
		if req.Action != ActionSetPossiblePassword {
			t.Errorf("got action %q, want %q", req.Action, ActionSetPossiblePassword)
		}
		if req.Email != "user@example.com" {
			t.Errorf("got email %q, want user@example.com", req.Email)
		}
		if req.Password != "hunter22" {
			t.Errorf("got password %q, want hunter22", req.Password)
		}
	})

	t.Run("ignores fields it does not know", func(t *testing.T) {
		t.Parallel()

		raw := `{"action":"clearOtpMode","tabHint":42,"nested":{"a":1}}`

		var req Request
		if err := json.Unmarshal([]byte(raw), &req); err != nil {
			t.Fatalf("failed to unmarshal request: %v", err)
		}
		if req.Action != ActionClearOTPMode {
			t.Errorf("got action %q, want %q", req.Action, ActionClearOTPMode)
		}
	})
}

func TestNewResultMessage(t *testing.T) {
	t.Parallel()

	t.Run("negative result still carries an explicit match field", func(t *testing.T) {
		t.Parallel()

		got, err := json.Marshal(NewResultMessage("req-7", false))
		if err != nil {
			t.Fatalf("failed to marshal result: %v", err)
		}
		if !strings.Contains(string(got), `"match":false`) {
			t.Errorf("got %s, want explicit match:false", got)
		}
		if !strings.Contains(string(got), `"id":"req-7"`) {
			t.Errorf("got %s, want echoed request id", got)
		}
	})

	t.Run("state payload is absent from results", func(t *testing.T) {
		t.Parallel()

		got, err := json.Marshal(NewResultMessage("req-8", true))
		if err != nil {
			t.Fatalf("failed to marshal result: %v", err)
		}
		if strings.Contains(string(got), "state") {
			t.Errorf("got %s, want no state payload", got)
		}
	})
}

func TestNewStateMessage(t *testing.T) {
	t.Parallel()

	t.Run("nil lengths marshal as an empty array", func(t *testing.T) {
		t.Parallel()

		got, err := json.Marshal(NewStateMessage(State{}))
		if err != nil {
			t.Fatalf("failed to marshal state: %v", err)
		}
		if !strings.Contains(string(got), `"passwordLengths":[]`) {
			t.Errorf("got %s, want empty passwordLengths array", got)
		}
		if strings.Contains(string(got), "null") {
			t.Errorf("got %s, want no null fields", got)
		}
	})

	t.Run("otp time appears only in otp mode", func(t *testing.T) {
		t.Parallel()

		matched := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		msg := NewStateMessage(State{
			PasswordLengths: []bool{false, false, false, false, false, false, false, false, true},
			OTPMode:         true,
			OTPTime:         &matched,
		})

		got, err := json.Marshal(msg)
		if err != nil {
			t.Fatalf("failed to marshal state: %v", err)
		}
		if !strings.Contains(string(got), `"otpMode":true`) {
			t.Errorf("got %s, want otpMode true", got)
		}
		if !strings.Contains(string(got), `"otpTime":"2025-06-01T12:00:00Z"`) {
			t.Errorf("got %s, want otp timestamp", got)
		}

		idle, err := json.Marshal(NewStateMessage(State{PasswordLengths: []bool{}}))
		if err != nil {
			t.Fatalf("failed to marshal idle state: %v", err)
		}
		if strings.Contains(string(idle), "otpTime") {
			t.Errorf("got %s, want otpTime omitted when idle", idle)
		}
	})
}
