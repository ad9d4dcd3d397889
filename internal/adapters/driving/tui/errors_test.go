package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors_AreDistinct(t *testing.T) {
	errs := []error{ErrMissingCorpusService, ErrMissingReportService, ErrInvalidPorts}

	seen := make(map[string]bool)
	for _, err := range errs {
		assert.False(t, seen[err.Error()], "duplicate error message: %s", err)
		seen[err.Error()] = true
		assert.Contains(t, err.Error(), "tui:")
	}
}
