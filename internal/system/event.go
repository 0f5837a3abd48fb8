package system

import (
	"time"

	"github.com/l1jgo/ecsindex/internal/core/event"
	coresys "github.com/l1jgo/ecsindex/internal/core/system"
)

// EventSystem swaps the bus buffers and runs the subscribed handlers.
// Handlers write components, so the system declares those writes.
type EventSystem struct {
	bus    *event.Bus
	phase  coresys.Phase
	access []coresys.Access
}

func NewEventSystem(bus *event.Bus, phase coresys.Phase, writes ...coresys.Access) *EventSystem {
	return &EventSystem{bus: bus, phase: phase, access: writes}
}

func (s *EventSystem) Name() string { return "events" }
func (s *EventSystem) Phase() coresys.Phase { return s.phase }
func (s *EventSystem) Access() []coresys.Access { return s.access }

func (s *EventSystem) Update(_ time.Duration) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}
