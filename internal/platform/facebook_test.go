package platform

import (
	"errors"
	"testing"
)

func TestSubmitPending(t *testing.T) {
	cases := []struct {
		name      string
		remaining string
		readErr   error
		text      string
		want      bool
	}{
		{"text still in composer", "great point! ", nil, "great point!", true},
		{"composer cleared by enter", "", nil, "great point!", false},
		{"composer holds placeholder", "Write a comment...", nil, "great point!", false},
		{"composer detached after submit", "", errors.New("element detached"), "great point!", false},
	}
	for _, c := range cases {
		if got := submitPending(c.remaining, c.readErr, c.text); got != c.want {
			t.Errorf("%s: submitPending = %v, want %v", c.name, got, c.want)
		}
	}
}
