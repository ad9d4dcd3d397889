package messages

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestViewType_String(t *testing.T) {
	tests := []struct {
		view ViewType
		want string
	}{
		{ViewParties, "parties"},
		{ViewPositions, "positions"},
		{ViewDetail, "detail"},
		{ViewHelp, "help"},
		{ViewType(99), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.view.String())
	}
}
