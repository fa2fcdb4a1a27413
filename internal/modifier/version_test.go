package modifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractVersion(t *testing.T) {
	tests := []struct {
		name string
		stem string
		want string
	}{
		{
			name: "version at end of stem",
			stem: "icarus_full_chain_250625",
			want: "250625",
		},
		{
			name: "version followed by more segments",
			stem: "mod_data_250115_test",
			want: "250115",
		},
		{
			name: "no version",
			stem: "base_common",
			want: "",
		},
		{
			name: "first of several tokens wins",
			stem: "base_240101_250101",
			want: "240101",
		},
		{
			name: "five digit run is not a version",
			stem: "base_12345",
			want: "",
		},
		{
			name: "seven digit run is not a version",
			stem: "base_1234567",
			want: "",
		},
		{
			name: "digits without leading underscore",
			stem: "base250625",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractVersion(tt.stem))
		})
	}
}

func TestStem(t *testing.T) {
	assert.Equal(t, "icarus_full_chain_250625", Stem("/data/infer/icarus/icarus_full_chain_250625.yaml"))
	assert.Equal(t, "latest", Stem("latest"))
	assert.Equal(t, "mod_data", Stem("mod_data.cfg"))
}
