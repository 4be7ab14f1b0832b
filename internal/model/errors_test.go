package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"not found", NotFound("resolve", nil), CodeNotFound},
		{"target lost", TargetLost(errors.New("window 0x2a gone")), CodeTargetLost},
		{"focus failed", FocusFailed(errors.New("no activation")), CodeFocusFailed},
		{"send failed", SendFailed(errors.New("xdotool exited 1")), CodeSendFailed},
		{"wrapped once more", fmt.Errorf("line 2: %w", SendFailed(errors.New("paste"))), CodeSendFailed},
		{"unclassified", errors.New("plain"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDispatchError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"op and cause", NotFound("list windows", errors.New("display closed")), "list windows: display closed"},
		{"op only", NotFound("no window at (12,34)", nil), "no window at (12,34)"},
		{"cause only", SendFailed(errors.New("type text: xdotool exited 1")), "type text: xdotool exited 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDispatchError_Unwrap(t *testing.T) {
	cause := errors.New("port closed")
	err := SendFailed(cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the wrapped cause")
	}
}

func TestFatalToTarget(t *testing.T) {
	if !FatalToTarget(TargetLost(errors.New("window gone"))) {
		t.Error("target_lost must invalidate the target")
	}
	if FatalToTarget(FocusFailed(errors.New("window busy"))) {
		t.Error("focus_failed must keep the target")
	}
	if FatalToTarget(SendFailed(errors.New("write: broken pipe"))) {
		t.Error("send_failed must keep the target")
	}
	if FatalToTarget(nil) {
		t.Error("nil error must not invalidate the target")
	}
}
