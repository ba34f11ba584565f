package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/RedstoneFuture/missilewars-sub001/internal/persistence/indexdb"
	"github.com/RedstoneFuture/missilewars-sub001/internal/protocol"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/facing"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/geom"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/missile"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/structure"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/tuning"
)

type api struct {
	cfg      tuning.Tuning
	svc      *missile.Service
	library  *structure.Library
	index    *indexdb.SQLiteIndex
	resolver *facing.Resolver
	log      zerolog.Logger
}

func newAPI(cfg tuning.Tuning, svc *missile.Service, library *structure.Library, index *indexdb.SQLiteIndex, logger zerolog.Logger) *api {
	return &api{cfg: cfg, svc: svc, library: library, index: index, resolver: facing.NewResolver(logger), log: logger}
}

func (a *api) handlePlace(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req protocol.PlaceRequest
	dec := json.NewDecoder(http.MaxBytesReader(rw, r.Body, 64*1024))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writePlaceError(rw, protocol.ErrBadRequest, err)
		return
	}

	id, err := a.place(req)
	if err != nil {
		code := missile.CodeOf(err)
		if code == "" {
			code = protocol.ErrInternal
		}
		writePlaceError(rw, code, err)
		return
	}
	writeJSON(rw, http.StatusAccepted, protocol.PlaceResponse{Type: protocol.TypePlace, PlacementID: id, Accepted: true})
}

// place maps a wire request onto the service. A missile plus a yaw is a
// player throw; everything else is an explicit placement.
func (a *api) place(req protocol.PlaceRequest) (string, error) {
	anchor := geom.V(req.Anchor[0], req.Anchor[1], req.Anchor[2])
	if req.Missile != "" && req.Yaw != nil && req.Facing == "" && req.Rotation == nil {
		return a.svc.Throw(missile.ThrowRequest{
			Arena:    req.Arena,
			Missile:  req.Missile,
			Team:     req.Team,
			PlayerID: req.PlayerID,
			Anchor:   anchor,
			Yaw:      *req.Yaw,
		})
	}

	out := missile.Request{
		Structure: req.Structure,
		World:     req.World,
		Anchor:    anchor,
		Rotation:  req.Rotation,
		Arena:     req.Arena,
		PlayerID:  req.PlayerID,
	}
	// Explicit placements may omit the team and paste uncolored; a named
	// team has to be configured.
	if strings.TrimSpace(req.Team) != "" {
		color, ok := a.cfg.TeamColor(req.Team)
		if !ok {
			return "", &missile.PlaceError{Code: protocol.ErrBadColor, Err: fmt.Errorf("team %q has no configured color", req.Team)}
		}
		out.Color = color
	}
	if req.Arena != "" {
		arena, ok := a.cfg.Arena(req.Arena)
		if !ok {
			return "", &missile.PlaceError{Code: protocol.ErrUnknownArena, Err: fmt.Errorf("unknown arena %q", req.Arena)}
		}
		if out.World == "" {
			out.World = arena.World
		}
	}
	if req.Missile != "" {
		m, ok := a.cfg.Missile(req.Missile)
		if !ok {
			return "", &missile.PlaceError{Code: protocol.ErrUnknownMissile, Err: fmt.Errorf("unknown missile %q", req.Missile)}
		}
		out.Structure, out.DisplayName, out.Drop, out.Distance = m.Schematic, m.DisplayName, m.Down, m.Dist
	}
	if out.Structure == "" {
		return "", &missile.PlaceError{Code: protocol.ErrBadRequest, Err: errors.New("missile or structure is required")}
	}
	switch {
	case req.Facing != "":
		f, err := facing.Parse(req.Facing)
		if err != nil {
			return "", &missile.PlaceError{Code: protocol.ErrBadRequest, Err: err}
		}
		out.Facing = f
	case req.Yaw != nil && req.Rotation == nil:
		// req.Arena was checked above. Without one the set stays empty and the
		// resolver warns before falling back to every facing.
		var set facing.Set
		if arena, ok := a.cfg.Arena(req.Arena); ok {
			set = arena.FacingSet()
		}
		out.Facing = a.resolver.FromYaw(*req.Yaw, set)
	}
	return a.svc.PlaceStructure(out)
}

func (a *api) handlePlacements(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if a.index == nil {
		http.Error(rw, "placement index disabled", http.StatusServiceUnavailable)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if err := a.index.Flush(r.Context()); err != nil {
		http.Error(rw, err.Error(), http.StatusServiceUnavailable)
		return
	}
	rows, err := a.index.RecentPlacements(r.Context(), strings.TrimSpace(r.URL.Query().Get("arena")), limit)
	if err != nil {
		a.log.Error().Err(err).Msg("query placements")
		http.Error(rw, "query failed", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []indexdb.PlacementRow{}
	}
	writeJSON(rw, http.StatusOK, rows)
}

func (a *api) handleReload(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !isLoopbackRemote(r.RemoteAddr) {
		http.Error(rw, "forbidden", http.StatusForbidden)
		return
	}
	a.library.Reload()
	a.log.Info().Msg("structure cache cleared")
	writeJSON(rw, http.StatusOK, map[string]any{"ok": true})
}

func (a *api) handleArenaReset(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !isLoopbackRemote(r.RemoteAddr) {
		http.Error(rw, "forbidden", http.StatusForbidden)
		return
	}
	arena := strings.TrimSpace(r.URL.Query().Get("arena"))
	if _, ok := a.cfg.Arena(arena); !ok {
		writePlaceError(rw, protocol.ErrUnknownArena, fmt.Errorf("unknown arena %q", arena))
		return
	}
	n := a.svc.CancelArena(arena)
	writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "cancelled": n})
}

func writePlaceError(rw http.ResponseWriter, code string, err error) {
	writeJSON(rw, statusOf(code), protocol.PlaceResponse{Type: protocol.TypeError, Code: code, Message: err.Error()})
}

func statusOf(code string) int {
	switch code {
	case protocol.ErrBadRequest, protocol.ErrNoFacing, protocol.ErrBadColor:
		return http.StatusBadRequest
	case protocol.ErrUnknownArena, protocol.ErrUnknownMissile, protocol.ErrUnknownStructure, protocol.ErrWorldNotFound:
		return http.StatusNotFound
	case protocol.ErrShutdown, protocol.ErrWorldUnloaded:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
