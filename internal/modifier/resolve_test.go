package modifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entriesFor(stems ...string) []Entry {
	entries := make([]Entry, len(stems))
	for i, stem := range stems {
		entries[i] = Entry{
			Path:    "/fake/" + stem + ".yaml",
			Stem:    stem,
			Version: ExtractVersion(stem),
		}
	}
	return entries
}

func TestResolve(t *testing.T) {
	entries := entriesFor("mod_data_240719", "mod_data_250115", "mod_data_250625")

	tests := []struct {
		name        string
		baseVersion string
		explicit    string
		wantStem    string
	}{
		{
			name:        "explicit version wins over base match",
			baseVersion: "250625",
			explicit:    "250115",
			wantStem:    "mod_data_250115",
		},
		{
			name:        "exact base version match",
			baseVersion: "250625",
			wantStem:    "mod_data_250625",
		},
		{
			name:        "closest earlier when base between versions",
			baseVersion: "250300",
			wantStem:    "mod_data_250115",
		},
		{
			name:        "oldest when base predates all versions",
			baseVersion: "000101",
			wantStem:    "mod_data_240719",
		},
		{
			name:     "latest when base has no version",
			wantStem: "mod_data_250625",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(context.Background(), "data", entries, tt.baseVersion, tt.explicit)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStem, got.Stem)
		})
	}
}

func TestResolve_ExplicitNotFound(t *testing.T) {
	entries := entriesFor("mod_data_240719", "mod_data_250115")

	_, err := Resolve(context.Background(), "data", entries, "250115", "999999")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `modifier "data" version "999999" not found`)
	assert.Contains(t, err.Error(), "240719")
	assert.Contains(t, err.Error(), "250115")
}

func TestResolve_NoEntries(t *testing.T) {
	_, err := Resolve(context.Background(), "data", nil, "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no versions found")
}

func TestResolve_UnversionedEntryQualifiesAsEarlier(t *testing.T) {
	// An entry without a version token compares as the empty string and
	// always qualifies as "not later than" the base.
	entries := entriesFor("mod_special", "mod_special_991231")

	got, err := Resolve(context.Background(), "special", entries, "250101", "")
	require.NoError(t, err)
	assert.Equal(t, "mod_special", got.Stem)
}
