package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/block"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/facing"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/filter"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/geom"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/placement"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/structure"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "info":
			infoCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "reload":
			reloadCmd(os.Args[2:])
			return
		case "reset":
			resetCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dir := fs.String("structures", "./missiles", "structure directory")
	_ = fs.Parse(args)

	entries, err := os.ReadDir(*dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	loader := structure.NewLoader(os.DirFS(*dir), structure.ModeAuto)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		format, err := loader.Detect(e.Name())
		if err != nil {
			fmt.Printf("%s\t?\t%v\n", e.Name(), err)
			continue
		}
		fmt.Printf("%s\t%s\n", e.Name(), format)
	}
}

type structureInfo struct {
	Name        string           `json:"name"`
	Format      structure.Format `json:"format"`
	DataVersion int              `json:"data_version,omitempty"`
	Size        [3]int           `json:"size"`
	Offset      [3]int           `json:"offset"`
	Solid       int              `json:"solid"`
	Palette     map[string]int   `json:"palette"`

	Color     string               `json:"color,omitempty"`
	Recolored int                  `json:"recolored,omitempty"`
	Facing    string               `json:"facing,omitempty"`
	Transform *placement.Transform `json:"transform,omitempty"`
}

// infoCmd loads one structure and optionally shows where a throw at -anchor
// with -yaw would paste it.
func infoCmd(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	path := fs.String("file", "", "structure file (required)")
	mode := fs.String("mode", "auto", "compatibility mode: auto|sponge|legacy|json")
	yaw := fs.String("yaw", "", "player yaw in degrees (optional)")
	facings := fs.String("facings", "", "enabled facings, e.g. NORTH,SOUTH (default all)")
	anchor := fs.String("anchor", "0,64,0", "throw anchor x,y,z")
	down := fs.Int("down", 0, "vertical drop")
	dist := fs.Int("dist", 0, "forward distance")
	team := fs.String("team", "", "team color code to preview, e.g. §c or red (optional)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*path) == "" {
		fmt.Fprintln(os.Stderr, "missing -file")
		os.Exit(2)
	}
	m, err := structure.ParseMode(*mode)
	if err != nil {
		fmt.Fprintln(os.Stderr, "mode:", err)
		os.Exit(2)
	}
	st, err := structure.NewLoader(os.DirFS(filepath.Dir(*path)), m).Load(filepath.Base(*path))
	if err != nil {
		fmt.Fprintln(os.Stderr, "load:", err)
		os.Exit(1)
	}
	info := describe(st)

	if strings.TrimSpace(*team) != "" {
		cf, err := filter.NewColorFilter(*team)
		if err != nil {
			fmt.Fprintln(os.Stderr, "bad -team:", err)
			os.Exit(2)
		}
		info.Color = string(cf.Color())
		info.Recolored = recolored(st, cf)
	}

	if strings.TrimSpace(*yaw) != "" {
		y, err := strconv.ParseFloat(strings.TrimSpace(*yaw), 64)
		if err != nil {
			fmt.Fprintln(os.Stderr, "bad -yaw:", err)
			os.Exit(2)
		}
		set := facing.All
		if strings.TrimSpace(*facings) != "" {
			if set, err = facing.ParseSet(strings.Split(*facings, ",")); err != nil {
				fmt.Fprintln(os.Stderr, "bad -facings:", err)
				os.Exit(2)
			}
		}
		a, err := parseVec3(*anchor)
		if err != nil {
			fmt.Fprintln(os.Stderr, "bad -anchor:", err)
			os.Exit(2)
		}
		f := facing.NewResolver(zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})).FromYaw(y, set)
		info.Facing = f.String()
		if tr, ok := placement.Compute(geom.V(a[0], a[1], a[2]), f, *down, *dist); ok {
			info.Transform = &tr
		}
	}
	printJSON(info)
}

func describe(st *structure.Structure) structureInfo {
	size, off := st.Size(), st.Offset()
	info := structureInfo{
		Name:        st.Name,
		Format:      st.Format,
		DataVersion: st.DataVersion,
		Size:        [3]int{size.X, size.Y, size.Z},
		Offset:      [3]int{off.X, off.Y, off.Z},
		Solid:       st.Solid(),
		Palette:     map[string]int{},
	}
	st.Each(func(_ geom.Vec3i, b block.State) bool {
		if !b.IsAir() {
			info.Palette[b.Path()]++
		}
		return true
	})
	return info
}

// recolored counts the blocks the team filter would change.
func recolored(st *structure.Structure, cf *filter.ColorFilter) int {
	n := 0
	st.Each(func(_ geom.Vec3i, b block.State) bool {
		if cf.Apply(b) != b {
			n++
		}
		return true
	})
	return n
}

func printJSON(v any) {
	b, _ := json.Marshal(v)
	fmt.Println(string(b))
}

func parseVec3(s string) ([3]int, error) {
	var v [3]int
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 3 {
		return v, fmt.Errorf("expected x,y,z")
	}
	for i := 0; i < 3; i++ {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return v, err
		}
		v[i] = n
	}
	return v, nil
}
