package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/WirelessLan/AAFDynamicPositioner/internal/config"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/persistence/indexdb"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dbPath := fs.String("db", config.Defaults().IndexDB, "sqlite index path")
	kind := fs.String("kind", "", "command kind filter (commands)")
	limit := fs.Int("limit", 20, "result limit (commands)")
	open := fs.Bool("open", false, "only scenes that have not ended (scenes)")
	_ = fs.Parse(args)

	q := "commands"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "index:", err)
		os.Exit(2)
	}
	idx, err := indexdb.OpenSQLite(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer idx.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch q {
	case "commands":
		if *limit <= 0 {
			*limit = 20
		}
		rows, err := idx.Commands(ctx, strings.ToUpper(strings.TrimSpace(*kind)), *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		for _, r := range rows {
			printJSON(r)
		}

	case "scenes":
		rows, err := idx.Scenes(ctx, *open)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		for _, r := range rows {
			printJSON(r)
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown db query:", q, "(want commands|scenes)")
		os.Exit(2)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
