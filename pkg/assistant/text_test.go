package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateToLastSentence(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{" Sure! It is about 90 km. Have a", "Sure! It is about 90 km."},
		{"Is that far? Not", "Is that far?"},
		{"  no terminator here  ", "no terminator here"},
		{"", ""},
		{"Done.", "Done."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TruncateToLastSentence(tt.in), tt.in)
	}
}
