package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	persistlog "github.com/RedstoneFuture/missilewars-sub001/internal/persistence/log"
	"github.com/RedstoneFuture/missilewars-sub001/internal/protocol"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/block"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/blockworld"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/geom"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/paste"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/structure"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/tuning"
)

func TestReplayPlacementLog(t *testing.T) {
	dir := t.TempDir()
	structDir := filepath.Join(dir, "missiles")
	if err := os.MkdirAll(structDir, 0o755); err != nil {
		t.Fatal(err)
	}
	rocket := `{"id":"rocket","blocks":[{"pos":[0,0,0],"block":"glass"},{"pos":[0,0,-1],"block":"slime_block"}]}`
	if err := os.WriteFile(filepath.Join(structDir, "rocket.json"), []byte(rocket), 0o644); err != nil {
		t.Fatal(err)
	}

	lg := persistlog.NewPlacementLogger(dir)
	events := []protocol.PlacementEvent{
		{Type: protocol.TypePlacement, PlacementID: "a", Arena: "classic", World: "mw", Structure: "rocket.json", Origin: [3]int{0, 64, 0}, Rotation: 180, Color: "red", Placed: 2},
		{Type: protocol.TypePlacement, PlacementID: "b", Arena: "classic", World: "mw", Structure: "rocket.json", Code: protocol.ErrPaste},
		{Type: protocol.TypePlacement, PlacementID: "c", Arena: "cross", World: "mw2", Structure: "rocket.json", Origin: [3]int{5, 64, 5}, Placed: 2},
	}
	for _, ev := range events {
		if err := lg.WritePlacement(ev); err != nil {
			t.Fatalf("WritePlacement: %v", err)
		}
	}
	if err := lg.WriteCleanup(protocol.CleanupEvent{Type: protocol.TypeCleanup, PlacementID: "a", Arena: "classic", World: "mw", Anchor: [3]int{0, 64, 0}, Outcome: "done"}); err != nil {
		t.Fatalf("WriteCleanup: %v", err)
	}
	if err := lg.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	files, err := listPlacementFiles(filepath.Join(dir, "placements"))
	if err != nil || len(files) != 1 {
		t.Fatalf("files=%v err=%v", files, err)
	}

	cfg := tuning.Defaults()
	spec, err := cfg.SentinelSpec()
	if err != nil {
		t.Fatal(err)
	}
	r := &replayer{
		cfg:     cfg,
		spec:    spec,
		arena:   "classic",
		library: structure.NewLibrary(structure.NewLoader(os.DirFS(structDir), structure.ModeAuto), zerolog.Nop()),
		engine:  paste.NewSyncEngine(zerolog.Nop()),
		worlds:  map[string]*blockworld.MemWorld{},
	}
	if err := r.replayFile(files[0]); err != nil {
		t.Fatalf("replayFile: %v", err)
	}
	if r.placed != 1 || r.failed != 1 || r.cleanups != 1 {
		t.Fatalf("placed=%d failed=%d cleanups=%d", r.placed, r.failed, r.cleanups)
	}
	if _, ok := r.worlds["mw2"]; ok {
		t.Fatalf("arena filter leaked world mw2")
	}
	got, err := r.worlds["mw"].BlockAt(geom.V(0, 64, 1))
	if err != nil || got != block.MustParse("slime_block") {
		t.Fatalf("nose after 180 = %v err=%v", got, err)
	}
}

func TestReplayPlacementMissingStructure(t *testing.T) {
	cfg := tuning.Defaults()
	r := &replayer{
		cfg:     cfg,
		library: structure.NewLibrary(structure.NewLoader(os.DirFS(t.TempDir()), structure.ModeAuto), zerolog.Nop()),
		engine:  paste.NewSyncEngine(zerolog.Nop()),
		worlds:  map[string]*blockworld.MemWorld{},
	}
	if err := r.placement(protocol.PlacementEvent{World: "mw", Structure: "missing.json"}); err == nil {
		t.Fatalf("expected load error")
	}
}
