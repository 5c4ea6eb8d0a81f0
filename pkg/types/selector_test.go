package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaperSelectorValidate(t *testing.T) {
	tests := []struct {
		name    string
		sel     PaperSelector
		wantErr bool
	}{
		{"arxiv only", PaperSelector{ArxivID: "1705.00001"}, false},
		{"s2 only", PaperSelector{S2ID: "abc123"}, false},
		{"both set", PaperSelector{ArxivID: "1705.00001", S2ID: "abc123"}, true},
		{"neither set", PaperSelector{}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.sel.Validate()
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSelector)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPaperSelectorString(t *testing.T) {
	assert.Equal(t, "arxiv:1705.00001", PaperSelector{ArxivID: "1705.00001"}.String())
	assert.Equal(t, "s2:abc", PaperSelector{S2ID: "abc"}.String())
	assert.Equal(t, "(empty selector)", PaperSelector{}.String())
}
