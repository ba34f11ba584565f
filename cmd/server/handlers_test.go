package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/rs/zerolog"

	"github.com/RedstoneFuture/missilewars-sub001/internal/metrics"
	"github.com/RedstoneFuture/missilewars-sub001/internal/persistence/indexdb"
	persistlog "github.com/RedstoneFuture/missilewars-sub001/internal/persistence/log"
	"github.com/RedstoneFuture/missilewars-sub001/internal/protocol"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/blockworld"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/geom"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/missile"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/paste"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/scheduler"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/structure"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/tuning"
	"github.com/RedstoneFuture/missilewars-sub001/internal/transport/observer"
)

const rocketJSON = `{"id":"rocket","blocks":[{"pos":[0,0,0],"block":"glass"},{"pos":[0,0,-1],"block":"slime_block"}]}`

type testServer struct {
	api   *api
	sched *scheduler.Scheduler
	world *blockworld.MemWorld
	mux   *http.ServeMux
	logs  *bytes.Buffer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := tuning.Defaults()
	cfg.Arenas = []tuning.ArenaSpec{
		{Name: "classic", World: "mw", Facings: []string{"NORTH", "SOUTH"}},
		{Name: "cross", World: "mw", Facings: []string{}},
	}
	cfg.Missiles = []tuning.MissileSpec{{Name: "rocket", DisplayName: "Rocket", Schematic: "rocket.json", Down: 2, Dist: 3}}

	sched := scheduler.New(20, zerolog.Nop())
	w := blockworld.NewMemWorld("mw", -64, 319)
	worlds := blockworld.NewRegistry()
	worlds.Add(w)
	lib := structure.NewLibrary(structure.NewLoader(fstest.MapFS{"rocket.json": {Data: []byte(rocketJSON)}}, structure.ModeAuto), zerolog.Nop())

	dir := t.TempDir()
	idx, err := indexdb.OpenSQLite(filepath.Join(dir, "index.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	plog := persistlog.NewPlacementLogger(dir)
	t.Cleanup(func() { _ = plog.Close() })

	svc, err := missile.New(missile.Deps{
		Tuning:    cfg,
		Worlds:    worlds,
		Library:   lib,
		Engine:    paste.NewSyncEngine(zerolog.Nop()),
		Scheduler: sched,
		Metrics:   metrics.New(nil),
		Sink:      newEventSink(plog, idx, observer.NewHub(), zerolog.Nop()),
		Logger:    zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("missile.New: %v", err)
	}
	logs := &bytes.Buffer{}
	a := newAPI(cfg, svc, lib, idx, zerolog.New(logs))
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/place", a.handlePlace)
	mux.HandleFunc("/v1/placements", a.handlePlacements)
	mux.HandleFunc("/admin/v1/reload", a.handleReload)
	mux.HandleFunc("/admin/v1/arena/reset", a.handleArenaReset)
	return &testServer{api: a, sched: sched, world: w, mux: mux, logs: logs}
}

func (s *testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.RemoteAddr = "127.0.0.1:40000"
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func decodePlace(t *testing.T, rec *httptest.ResponseRecorder) protocol.PlaceResponse {
	t.Helper()
	var resp protocol.PlaceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestHandlePlace_ThrowAndQuery(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/v1/place", `{"type":"PLACE","arena":"classic","missile":"rocket","anchor":[100,64,100],"yaw":0,"team":"red","player_id":"p1"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	resp := decodePlace(t, rec)
	if !resp.Accepted || resp.PlacementID == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	s.sched.Step()
	st, err := s.world.BlockAt(geom.V(100, 62, 103))
	if err != nil || st.Path() != "red_stained_glass" {
		t.Fatalf("block at origin = %v err=%v", st, err)
	}

	rec = s.do(t, http.MethodGet, "/v1/placements?limit=5&arena=classic", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("placements status=%d body=%s", rec.Code, rec.Body.String())
	}
	var rows []indexdb.PlacementRow
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode rows: %v", err)
	}
	if len(rows) != 1 || rows[0].PlacementID != resp.PlacementID || rows[0].Rotation != 180 {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestHandlePlace_ExplicitFacing(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/v1/place", `{"type":"PLACE","world":"mw","structure":"rocket.json","anchor":[0,64,0],"facing":"EAST"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	s.sched.Step()
	// East is 270 degrees: the north-pointing nose now points +x.
	st, _ := s.world.BlockAt(geom.V(1, 64, 0))
	if st.Path() != "slime_block" {
		t.Fatalf("nose = %v", st)
	}
}

func TestHandlePlace_YawWithoutFacingSetWarns(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"empty arena set", `{"type":"PLACE","arena":"cross","structure":"rocket.json","anchor":[0,64,0],"yaw":0}`},
		{"no arena", `{"type":"PLACE","world":"mw","structure":"rocket.json","anchor":[0,64,0],"yaw":0}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t)
			rec := s.do(t, http.MethodPost, "/v1/place", tc.body)
			if rec.Code != http.StatusAccepted {
				t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
			}
			if !strings.Contains(s.logs.String(), "no facings enabled") {
				t.Fatalf("missing fallback warning, logs=%s", s.logs.String())
			}
			s.sched.Step()
			// Yaw 0 resolves to SOUTH once every facing is allowed.
			st, _ := s.world.BlockAt(geom.V(0, 64, 1))
			if st.Path() != "slime_block" {
				t.Fatalf("nose = %v", st)
			}
		})
	}

	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/v1/place", `{"type":"PLACE","arena":"classic","structure":"rocket.json","anchor":[0,64,0],"yaw":0}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if strings.Contains(s.logs.String(), "no facings enabled") {
		t.Fatalf("unexpected warning for a configured arena: %s", s.logs.String())
	}
}

func TestHandlePlace_Errors(t *testing.T) {
	s := newTestServer(t)
	cases := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"bad json", `{"type":`, http.StatusBadRequest, protocol.ErrBadRequest},
		{"unknown field", `{"type":"PLACE","bogus":1}`, http.StatusBadRequest, protocol.ErrBadRequest},
		{"no structure", `{"type":"PLACE","world":"mw","facing":"NORTH"}`, http.StatusBadRequest, protocol.ErrBadRequest},
		{"no facing", `{"type":"PLACE","world":"mw","structure":"rocket.json"}`, http.StatusBadRequest, protocol.ErrNoFacing},
		{"bad facing", `{"type":"PLACE","world":"mw","structure":"rocket.json","facing":"UP"}`, http.StatusBadRequest, protocol.ErrBadRequest},
		{"unknown arena", `{"type":"PLACE","arena":"x","missile":"rocket","yaw":10}`, http.StatusNotFound, protocol.ErrUnknownArena},
		{"unknown arena with structure", `{"type":"PLACE","arena":"x","structure":"rocket.json","yaw":10}`, http.StatusNotFound, protocol.ErrUnknownArena},
		{"unknown world", `{"type":"PLACE","world":"nether","structure":"rocket.json","facing":"NORTH"}`, http.StatusNotFound, protocol.ErrWorldNotFound},
		{"bad color", `{"type":"PLACE","world":"mw","structure":"rocket.json","facing":"NORTH","team":"§z"}`, http.StatusBadRequest, protocol.ErrBadColor},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/v1/place", tc.body)
			if rec.Code != tc.status {
				t.Fatalf("status=%d want=%d body=%s", rec.Code, tc.status, rec.Body.String())
			}
			if resp := decodePlace(t, rec); resp.Code != tc.code || resp.Accepted {
				t.Fatalf("response = %+v, want code %s", resp, tc.code)
			}
		})
	}
	if rec := s.do(t, http.MethodGet, "/v1/place", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET /v1/place status=%d", rec.Code)
	}
}

func TestAdmin_ArenaResetCancelsCleanups(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/v1/place", `{"type":"PLACE","arena":"classic","missile":"rocket","anchor":[0,64,0],"yaw":0,"team":"blue"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status=%d", rec.Code)
	}
	s.sched.Step()

	rec = s.do(t, http.MethodPost, "/admin/v1/arena/reset?arena=classic", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"cancelled":1`) {
		t.Fatalf("reset status=%d body=%s", rec.Code, rec.Body.String())
	}
	rec = s.do(t, http.MethodPost, "/admin/v1/arena/reset?arena=nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown arena status=%d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/admin/v1/reload", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	rr := httptest.NewRecorder()
	s.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("remote reload status=%d", rr.Code)
	}
	if rec := s.do(t, http.MethodPost, "/admin/v1/reload", ""); rec.Code != http.StatusOK {
		t.Fatalf("reload status=%d", rec.Code)
	}
	if err := s.api.svc.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
