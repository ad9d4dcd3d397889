package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPorts_Validate(t *testing.T) {
	tests := []struct {
		name  string
		ports *Ports
		want  error
	}{
		{"nil", nil, ErrInvalidPorts},
		{"no corpus", &Ports{Reports: &mockReportService{}}, ErrMissingCorpusService},
		{"no reports", &Ports{Corpus: &mockCorpusService{}}, ErrMissingReportService},
		{"complete", newTestPorts(), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ports.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
