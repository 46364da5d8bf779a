package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func denylist(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

func TestModerate(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		denylist map[string]struct{}
		wantErr  bool
	}{
		{"clean text", "This is fine", denylist("badword"), false},
		{"denylist hit", "This badword here", denylist("badword"), true},
		{"hit on later line", "first line\nsecond badword line", denylist("badword"), true},
		{"case insensitive", "This BADWORD here", denylist("badword"), true},
		{"empty denylist", "anything goes", denylist(), false},
		{"empty text", "", denylist("badword"), false},
		{"substring is not a hit", "badwords are not matched", denylist("badword"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Moderate(tt.text, tt.denylist)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrModerationRejected)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
