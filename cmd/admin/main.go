package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/WirelessLan/AAFDynamicPositioner/internal/config"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/offsets"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/persistence/journal"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/positioner"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "profiles":
			profilesCmd(os.Args[2:])
			return
		case "journal":
			journalCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "command":
			commandCmd(os.Args[2:])
			return
		}
	}
	profilesCmd(os.Args[1:])
}

// profilesCmd lists stored offset profiles, or prints one with -show.
func profilesCmd(args []string) {
	fs := flag.NewFlagSet("profiles", flag.ExitOnError)
	dataDir := fs.String("data", config.Defaults().DataDir, "offset profile directory")
	show := fs.String("show", "", "profile name to print (optional)")
	player := fs.Bool("player", false, "use the player variant of -show")
	_ = fs.Parse(args)

	store := offsets.NewStore(*dataDir, log.New(os.Stderr, "[admin] ", 0))

	if name := strings.TrimSpace(*show); name != "" {
		p, err := store.Path(name, *player)
		if err != nil {
			fmt.Fprintln(os.Stderr, "profile:", err)
			os.Exit(2)
		}
		if _, err := os.Stat(p); err != nil {
			fmt.Fprintln(os.Stderr, "no such profile:", name)
			os.Exit(2)
		}
		recs, err := store.Load(name, *player)
		if err != nil {
			fmt.Fprintln(os.Stderr, "load:", err)
			os.Exit(1)
		}
		if err := offsets.Format(os.Stdout, recs); err != nil {
			fmt.Fprintln(os.Stderr, "format:", err)
			os.Exit(1)
		}
		return
	}

	profiles, err := store.Profiles()
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, p := range profiles {
		printJSON(p)
	}
}

// journalCmd prints journal entries, optionally filtered by kind and seq range.
func journalCmd(args []string) {
	fs := flag.NewFlagSet("journal", flag.ExitOnError)
	dir := fs.String("dir", config.Defaults().JournalDir, "journal directory")
	kind := fs.String("kind", "", "command kind filter (optional)")
	fromSeq := fs.Uint64("from_seq", 0, "first seq (inclusive, optional)")
	toSeq := fs.Uint64("to_seq", 0, "last seq (inclusive, optional)")
	files := fs.Bool("files", false, "list journal files only")
	_ = fs.Parse(args)

	if *files {
		paths, err := journal.ListFiles(*dir)
		if err != nil {
			fmt.Fprintln(os.Stderr, "list:", err)
			os.Exit(1)
		}
		for _, p := range paths {
			fmt.Println(p)
		}
		return
	}

	want := positioner.Kind(strings.ToUpper(strings.TrimSpace(*kind)))
	err := journal.ReadDir(*dir, func(e positioner.Entry) error {
		if e.Seq < *fromSeq || (*toSeq != 0 && e.Seq > *toSeq) {
			return nil
		}
		if want != "" && e.Command.Kind != want {
			return nil
		}
		printJSON(e)
		return nil
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
}
