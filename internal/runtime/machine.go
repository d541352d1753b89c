package runtime

import (
	"fmt"

	"github.com/aretw0/releasebot/pkg/domain"
)

// machine tracks the cycle state and rejects out-of-order transitions.
type machine struct {
	state domain.CycleState
	trail []domain.CycleState
}

func newMachine() *machine {
	return &machine{state: domain.StateIdle, trail: []domain.CycleState{domain.StateIdle}}
}

func (m *machine) advance(next domain.CycleState) error {
	if !m.state.CanTransitionTo(next) {
		return fmt.Errorf("illegal transition %s -> %s", m.state, next)
	}
	m.state = next
	m.trail = append(m.trail, next)
	return nil
}

// reset returns to Idle and hands back the visited states.
func (m *machine) reset() []domain.CycleState {
	if m.state != domain.StateIdle {
		m.trail = append(m.trail, domain.StateIdle)
	}
	trail := m.trail
	m.state = domain.StateIdle
	m.trail = []domain.CycleState{domain.StateIdle}
	return trail
}
