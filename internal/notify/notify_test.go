package notify

import (
	"errors"
	"strings"
	"testing"
)

func TestBuildData(t *testing.T) {
	msg := &Message{
		FromName:  "Security Team",
		FromEmail: "security@phishguard-test.com",
		ToName:    "Alice",
		ToEmail:   "alice@acme.test",
		Subject:   "Your password will expire in 24 hours",
		HTML:      "<html><body><p>Hello</p></body></html>",
	}

	data := string(BuildData(msg, "phish.example.com"))

	wantHeaders := []string{
		"From: Security Team <security@phishguard-test.com>\r\n",
		"To: Alice <alice@acme.test>\r\n",
		"Subject: Your password will expire in 24 hours\r\n",
		"MIME-Version: 1.0\r\n",
		"Content-Type: text/html; charset=utf-8\r\n",
	}
	for _, h := range wantHeaders {
		if !strings.Contains(data, h) {
			t.Errorf("message missing header %q", strings.TrimSpace(h))
		}
	}

	if !strings.Contains(data, "@phish.example.com>\r\n") {
		t.Error("Message-ID should use the configured hostname")
	}

	// Headers and body are separated by a blank line, body follows
	parts := strings.SplitN(data, "\r\n\r\n", 2)
	if len(parts) != 2 {
		t.Fatal("message should have a header/body separator")
	}
	if !strings.Contains(parts[1], msg.HTML) {
		t.Error("body should contain the HTML")
	}
}

func TestBuildDataUniqueMessageID(t *testing.T) {
	msg := &Message{FromEmail: "a@b.test", ToEmail: "c@d.test", Subject: "x"}

	a := string(BuildData(msg, "host"))
	b := string(BuildData(msg, "host"))

	extractID := func(s string) string {
		for _, line := range strings.Split(s, "\r\n") {
			if strings.HasPrefix(line, "Message-ID:") {
				return line
			}
		}
		return ""
	}
	if extractID(a) == "" || extractID(a) == extractID(b) {
		t.Error("each message should get a distinct Message-ID")
	}
}

func TestIsTemporaryError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"temporary delivery error", &DeliveryError{Temporary: true, Message: "451"}, true},
		{"permanent delivery error", &DeliveryError{Temporary: false, Message: "550"}, false},
		{"wrapped permanent", errors.Join(errors.New("outer"), &DeliveryError{Temporary: false}), false},
		{"unknown error", errors.New("something"), true},
		{"nil-ish plain error", errors.New(""), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTemporaryError(tt.err); got != tt.want {
				t.Errorf("IsTemporaryError() = %v, want %v", got, tt.want)
			}
		})
	}
}
