package runtime

import (
	"testing"

	"github.com/aretw0/releasebot/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachine(t *testing.T) {
	m := newMachine()
	require.NoError(t, m.advance(domain.StateDiscovered))
	require.NoError(t, m.advance(domain.StateGitHubReleased))
	assert.Error(t, m.advance(domain.StateDistributionReleased), "package release cannot be skipped")
	assert.Equal(t, domain.StateGitHubReleased, m.state)

	trail := m.reset()
	assert.Equal(t, []domain.CycleState{
		domain.StateIdle, domain.StateDiscovered, domain.StateGitHubReleased, domain.StateIdle,
	}, trail)
	assert.Equal(t, domain.StateIdle, m.state)
	assert.Equal(t, []domain.CycleState{domain.StateIdle}, m.reset())
}
