package submitter

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListModifiers(t *testing.T) {
	svc, basedir, _ := newTestService(t)

	config := filepath.Join(basedir, "config/infer/icarus/icarus_full_chain_250625.yaml")
	report, err := svc.ListModifiers(context.Background(), config)
	require.NoError(t, err)

	assert.Equal(t, "icarus_full_chain_250625.yaml", report.ConfigName)
	assert.Equal(t, "250625", report.BaseVersion)

	require.Len(t, report.Modifiers, 1)
	m := report.Modifiers[0]
	assert.Equal(t, "data", m.Name)
	assert.Equal(t, []string{"240719", "250625"}, m.Available)
	assert.Equal(t, "250625", m.Selected)
}

func TestListModifiers_NoModifiers(t *testing.T) {
	svc, _, _ := newTestService(t)

	dir := t.TempDir()
	config := filepath.Join(dir, "bare_250101.yaml")
	report, err := svc.ListModifiers(context.Background(), config)
	require.NoError(t, err)
	assert.Empty(t, report.Modifiers)
	assert.Equal(t, "250101", report.BaseVersion)
}
