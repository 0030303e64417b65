package variant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForms(t *testing.T) {
	tests := []struct {
		name string
		want [3]string
	}{
		{"Ali Khan", [3]string{"Ali Khan", "A. Khan", "AliKha."}},
		{"  Ali   Khan  ", [3]string{"Ali   Khan", "A. Khan", "AliKha."}},
		{"Madonna", [3]string{"Madonna", "Madonna", "Mad."}},
		{"Al", [3]string{"Al", "Al", "Al."}},
		{"Muhammad Abdullah Rahman", [3]string{"Muhammad Rahman", "M. Rahman", "MuhaRah."}},
		{"Alexandrina Lo", [3]string{"Alexandrina Lo", "A. Lo", "AlexaLo."}},
		{"", [3]string{"", "", ""}},
		{" \t\n", [3]string{"", "", ""}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Forms(tt.name), "Forms(%q)", tt.name)
	}
}

func TestFormsCountsCharactersNotBytes(t *testing.T) {
	// 17 characters but more than 18 bytes.
	name := "Zoë Ålvarez-Øster"
	got := Forms(name)
	assert.Equal(t, name, got[0])
	assert.Equal(t, "Z. Ålvarez-Øster", got[1])
	assert.Equal(t, "ZoëÅlv.", got[2])
}

func TestFormsIsPure(t *testing.T) {
	for _, name := range []string{"Ali Khan", "Sara", "Jean Claude Van Damme"} {
		assert.Equal(t, Forms(name), Forms(name))
	}
}
