package missile

import (
	"github.com/rs/zerolog"

	"github.com/RedstoneFuture/missilewars-sub001/internal/protocol"
)

// Notifier tells a player something went wrong with their placement.
type Notifier interface {
	Notify(playerID, message string)
}

type NotifierFunc func(playerID, message string)

func (f NotifierFunc) Notify(playerID, message string) { f(playerID, message) }

// LogNotifier writes player messages to the log when no chat bridge is wired.
func LogNotifier(logger zerolog.Logger) Notifier {
	return NotifierFunc(func(playerID, message string) {
		logger.Info().Str("player", playerID).Msg(message)
	})
}

// EventSink receives placement and cleanup outcomes. It is called from the
// scheduler goroutine and from paste goroutines, so it must be safe for
// concurrent use.
type EventSink interface {
	Placement(ev protocol.PlacementEvent)
	Cleanup(ev protocol.CleanupEvent)
}

// Sinks fans events out to several sinks in order.
type Sinks []EventSink

func (s Sinks) Placement(ev protocol.PlacementEvent) {
	for _, x := range s {
		x.Placement(ev)
	}
}

func (s Sinks) Cleanup(ev protocol.CleanupEvent) {
	for _, x := range s {
		x.Cleanup(ev)
	}
}
