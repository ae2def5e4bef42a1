package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractMentions(t *testing.T) {
	tcases := []struct {
		name     string
		text     string
		expected []string
	}{
		{name: "order and duplicates kept", text: "hey @alice and @bob, @alice again", expected: []string{"alice", "bob", "alice"}},
		{name: "no mentions", text: "plain comment", expected: []string{}},
		{name: "empty", text: "", expected: []string{}},
		{name: "word characters only", text: "ping @dev_team-lead!", expected: []string{"dev_team"}},
		{name: "bare at sign", text: "email me @ noon", expected: []string{}},
		{name: "adjacent", text: "@a@b", expected: []string{"a", "b"}},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ExtractMentions(tc.text))
		})
	}
}
