package sim

import "fmt"

type EventKind int

const (
	// EventBondRuptured fires when a bond stretched beyond its maximum length
	// is removed.
	EventBondRuptured EventKind = iota
	// EventForceExpired fires when an external force passes its end step.
	EventForceExpired
	// EventStopped fires when a run ends on request.
	EventStopped
	// EventFatal fires with the restored last-known-good state before a fatal
	// error is returned.
	EventFatal
)

func (k EventKind) String() string {
	switch k {
	case EventBondRuptured:
		return "bond_ruptured"
	case EventForceExpired:
		return "force_expired"
	case EventStopped:
		return "stopped"
	case EventFatal:
		return "fatal"
	}
	return fmt.Sprintf("event(%d)", int(k))
}

type Event struct {
	Kind  EventKind
	Step  int64
	Bond  int
	Label string
	Err   error
}

type Listener func(e Event)

func (s *Simulator) OnEvent(l Listener) { s.listeners = append(s.listeners, l) }

func (s *Simulator) emit(e Event) {
	attrs := []any{"step", e.Step, "kind", e.Kind.String()}
	if e.Kind == EventBondRuptured {
		attrs = append(attrs, "bond", e.Bond)
	}
	if e.Label != "" {
		attrs = append(attrs, "label", e.Label)
	}
	if e.Err != nil {
		s.log.Error("simulation event", append(attrs, "err", e.Err)...)
	} else {
		s.log.Info("simulation event", attrs...)
	}
	for _, l := range s.listeners {
		l(e)
	}
}
