package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"

	"github.com/RedstoneFuture/missilewars-sub001/internal/protocol"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/blockworld"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/filter"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/geom"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/paste"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/sentinel"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/structure"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/tuning"
)

func main() {
	var (
		logDir     = flag.String("placements", "./data/placements", "dir containing placements-*.jsonl.zst")
		configPath = flag.String("config", "./configs/missilewars.yaml", "tuning config")
		structDir  = flag.String("structures", "", "structure dir (defaults to structures_dir from config)")
		arena      = flag.String("arena", "", "only replay this arena (optional)")
	)
	flag.Parse()

	cfg, err := tuning.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	spec, err := cfg.SentinelSpec()
	if err != nil {
		fmt.Fprintln(os.Stderr, "sentinel config:", err)
		os.Exit(1)
	}
	dir := *structDir
	if dir == "" {
		dir = cfg.StructuresDir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(filepath.Dir(*configPath), dir)
		}
	}
	mode, err := structure.ParseMode(cfg.CompatibilityMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, "compatibility mode:", err)
		os.Exit(1)
	}

	files, err := listPlacementFiles(*logDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list placements:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no placement files found in", *logDir)
		os.Exit(1)
	}

	r := &replayer{
		cfg:     cfg,
		spec:    spec,
		arena:   *arena,
		library: structure.NewLibrary(structure.NewLoader(os.DirFS(dir), mode), zerolog.Nop()),
		engine:  paste.NewSyncEngine(zerolog.Nop()),
		worlds:  map[string]*blockworld.MemWorld{},
	}
	for _, path := range files {
		if err := r.replayFile(path); err != nil {
			fmt.Fprintln(os.Stderr, "replay:", err)
			os.Exit(1)
		}
	}

	names := make([]string, 0, len(r.worlds))
	for name := range r.worlds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		w := r.worlds[name]
		fmt.Printf("world=%s writes=%d digest=%s\n", name, w.Writes(), w.Digest())
	}
	fmt.Printf("replay ok: placements=%d failed=%d cleanups=%d cleared=%d\n", r.placed, r.failed, r.cleanups, r.cleared)
}

type replayer struct {
	cfg     tuning.Tuning
	spec    sentinel.Spec
	arena   string
	library *structure.Library
	engine  *paste.SyncEngine
	worlds  map[string]*blockworld.MemWorld

	placed, failed, cleanups, cleared int
}

func (r *replayer) world(name string) *blockworld.MemWorld {
	w := r.worlds[name]
	if w == nil {
		w = blockworld.NewMemWorld(name, r.cfg.World.MinY, r.cfg.World.MaxY)
		r.worlds[name] = w
	}
	return w
}

func listPlacementFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "placements-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

func (r *replayer) replayFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)

	for sc.Scan() {
		line := sc.Bytes()
		base, err := protocol.DecodeBase(line)
		if err != nil {
			return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}
		switch base.Type {
		case protocol.TypePlacement:
			var ev protocol.PlacementEvent
			if err := json.Unmarshal(line, &ev); err != nil {
				return fmt.Errorf("%s: unmarshal placement: %w", filepath.Base(path), err)
			}
			if err := r.placement(ev); err != nil {
				return fmt.Errorf("%s: placement %s: %w", filepath.Base(path), ev.PlacementID, err)
			}
		case protocol.TypeCleanup:
			var ev protocol.CleanupEvent
			if err := json.Unmarshal(line, &ev); err != nil {
				return fmt.Errorf("%s: unmarshal cleanup: %w", filepath.Base(path), err)
			}
			if err := r.cleanup(ev); err != nil {
				return fmt.Errorf("%s: cleanup %s: %w", filepath.Base(path), ev.PlacementID, err)
			}
		}
	}
	return sc.Err()
}

// placement re-pastes a logged placement and checks the block count.
// Rejected and failed placements wrote nothing and are only counted.
func (r *replayer) placement(ev protocol.PlacementEvent) error {
	if r.arena != "" && ev.Arena != r.arena {
		return nil
	}
	if ev.Code != "" {
		r.failed++
		return nil
	}
	st, err := r.library.Get(ev.Structure)
	if err != nil {
		return err
	}
	var src paste.Source = st
	if ev.Color != "" {
		cf, err := filter.NewColorFilter(ev.Color)
		if err != nil {
			return err
		}
		src = filter.Wrap(st, cf)
	}
	w := r.world(ev.World)
	res, err := r.engine.Paste(context.Background(), paste.Job{
		ID:       ev.PlacementID,
		Name:     ev.Structure,
		Source:   src,
		Origin:   geom.V(ev.Origin[0], ev.Origin[1], ev.Origin[2]),
		Rotation: ev.Rotation,
		World:    w,
	})
	if err != nil {
		return err
	}
	if res.Placed != ev.Placed {
		return fmt.Errorf("placed mismatch: got=%d want=%d", res.Placed, ev.Placed)
	}
	r.placed++
	return nil
}

func (r *replayer) cleanup(ev protocol.CleanupEvent) error {
	if r.arena != "" && ev.Arena != r.arena {
		return nil
	}
	r.cleanups++
	if ev.Outcome != "done" {
		return nil
	}
	anchor := geom.V(ev.Anchor[0], ev.Anchor[1], ev.Anchor[2])
	n, err := sentinel.Sweep(r.world(ev.World), geom.Around(anchor, r.spec.Radius), r.spec.Material, r.spec.Replacement())
	if err != nil && !errors.Is(err, blockworld.ErrWorldUnloaded) {
		return err
	}
	r.cleared += n
	return nil
}
