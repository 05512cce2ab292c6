package textclean

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Ottawa", "Ottawa"},
		{"  Cambridge   Bay ", "Cambridge Bay"},
		{"#Ottawa,", "Ottawa"},
		{"\"Nunavut\".", "Nunavut"},
		{"St. John's", "St. John's"},
		{"Saint\tJohn\n", "Saint John"},
		{"São\u0000 Paulo", "São Paulo"},
		{"Cambridge\r\nBay", "Cambridge Bay"},
		{"Thunder\u0007\tBay", "Thunder Bay"},
		{"...", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestFold(t *testing.T) {
	assert.Equal(t, Fold("OTTAWA"), Fold("ottawa"))
	assert.Equal(t, Fold("Cambridge Bay"), Fold("CAMBRIDGE bay"))
}
