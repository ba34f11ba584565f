package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional; defaults to <data>/index.db)")
	arena := fs.String("arena", "", "arena filter (optional)")
	player := fs.String("player", "", "player_id filter (placements)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := "placements"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}
	if *limit <= 0 {
		*limit = 20
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "index.db")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	switch q {
	case "placements":
		rows, err := db.Query(`SELECT id,tick,arena,world,structure,player_id,x,y,z,rotation,facing,color,engine,placed,code
			FROM placements
			WHERE (?1 = '' OR arena = ?1) AND (?2 = '' OR player_id = ?2)
			ORDER BY tick DESC LIMIT ?3`, *arena, *player, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				ID        string `json:"placement_id"`
				Tick      int64  `json:"tick"`
				Arena     string `json:"arena"`
				World     string `json:"world"`
				Structure string `json:"structure"`
				PlayerID  string `json:"player_id"`
				X         int    `json:"x"`
				Y         int    `json:"y"`
				Z         int    `json:"z"`
				Rotation  int    `json:"rotation"`
				Facing    string `json:"facing"`
				Color     string `json:"color"`
				Engine    string `json:"engine"`
				Placed    int    `json:"placed"`
				Code      string `json:"code,omitempty"`
			}
			if err := rows.Scan(&r.ID, &r.Tick, &r.Arena, &r.World, &r.Structure, &r.PlayerID, &r.X, &r.Y, &r.Z, &r.Rotation, &r.Facing, &r.Color, &r.Engine, &r.Placed, &r.Code); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "cleanups":
		rows, err := db.Query(`SELECT c.placement_id,c.tick,p.arena,c.world,c.x,c.y,c.z,c.outcome,c.cleared
			FROM cleanups c LEFT JOIN placements p ON p.id = c.placement_id
			WHERE (?1 = '' OR p.arena = ?1)
			ORDER BY c.tick DESC LIMIT ?2`, *arena, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				PlacementID string         `json:"placement_id"`
				Tick        int64          `json:"tick"`
				Arena       sql.NullString `json:"-"`
				ArenaName   string         `json:"arena,omitempty"`
				World       string         `json:"world"`
				X           int            `json:"x"`
				Y           int            `json:"y"`
				Z           int            `json:"z"`
				Outcome     string         `json:"outcome"`
				Cleared     int            `json:"cleared"`
			}
			if err := rows.Scan(&r.PlacementID, &r.Tick, &r.Arena, &r.World, &r.X, &r.Y, &r.Z, &r.Outcome, &r.Cleared); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			r.ArenaName = r.Arena.String
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "stats":
		rows, err := db.Query(`SELECT arena, CASE WHEN code = '' THEN 'ok' ELSE code END, COUNT(*), COALESCE(SUM(placed),0)
			FROM placements
			WHERE (?1 = '' OR arena = ?1)
			GROUP BY 1, 2 ORDER BY 1, 2`, *arena)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Arena  string `json:"arena"`
				Result string `json:"result"`
				Count  int    `json:"count"`
				Blocks int64  `json:"blocks"`
			}
			if err := rows.Scan(&r.Arena, &r.Result, &r.Count, &r.Blocks); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q, "(want placements|cleanups|stats)")
		os.Exit(2)
	}
}
