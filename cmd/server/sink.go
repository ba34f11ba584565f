package main

import (
	"github.com/rs/zerolog"

	"github.com/RedstoneFuture/missilewars-sub001/internal/persistence/indexdb"
	persistlog "github.com/RedstoneFuture/missilewars-sub001/internal/persistence/log"
	"github.com/RedstoneFuture/missilewars-sub001/internal/protocol"
	"github.com/RedstoneFuture/missilewars-sub001/internal/transport/observer"
)

// eventSink writes placement events to the JSONL log, the index and the
// observer stream. Any of them may be nil.
type eventSink struct {
	log *persistlog.PlacementLogger
	idx *indexdb.SQLiteIndex
	hub *observer.Hub
	lg  zerolog.Logger
}

func newEventSink(l *persistlog.PlacementLogger, idx *indexdb.SQLiteIndex, hub *observer.Hub, lg zerolog.Logger) *eventSink {
	return &eventSink{log: l, idx: idx, hub: hub, lg: lg}
}

func (s *eventSink) Placement(ev protocol.PlacementEvent) {
	if s.log != nil {
		if err := s.log.WritePlacement(ev); err != nil {
			s.lg.Warn().Err(err).Msg("placement log write")
		}
	}
	s.idx.RecordPlacement(ev)
	if s.hub != nil {
		_ = s.hub.Publish(ev.Arena, ev)
	}
}

func (s *eventSink) Cleanup(ev protocol.CleanupEvent) {
	if s.log != nil {
		if err := s.log.WriteCleanup(ev); err != nil {
			s.lg.Warn().Err(err).Msg("placement log write")
		}
	}
	s.idx.RecordCleanup(ev)
	if s.hub != nil {
		_ = s.hub.Publish(ev.Arena, ev)
	}
}
