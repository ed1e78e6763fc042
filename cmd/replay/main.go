package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/WirelessLan/AAFDynamicPositioner/internal/config"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/host"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/offsets"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/persistence/journal"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/positioner"
)

func main() {
	var (
		journalDir = flag.String("journal", "", "journal dir containing journal-*.jsonl.zst")
		seedDir    = flag.String("seed", "", "offset profiles as of the first journal entry (optional; copied, never written)")
		configPath = flag.String("config", "", "path to positioner.yaml for settings (optional)")
		fromSeq    = flag.Uint64("from_seq", 0, "start verifying from seq (inclusive, optional)")
		toSeq      = flag.Uint64("to_seq", 0, "stop verifying after seq (inclusive, optional)")
		verbose    = flag.Bool("v", false, "log registry warnings")
	)
	flag.Parse()

	if *journalDir == "" {
		fmt.Fprintln(os.Stderr, "missing -journal")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	if err := config.ApplyEnv(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, "config env:", err)
		os.Exit(1)
	}

	logger := log.New(io.Discard, "", 0)
	if *verbose {
		logger = log.New(os.Stderr, "[replay] ", log.LstdFlags)
	}

	// Same settings resolution as the server.
	settings, err := cfg.PositionerSettings()
	if err != nil {
		fmt.Fprintln(os.Stderr, "settings:", err)
		os.Exit(1)
	}
	if err := config.LoadSettingsINI(cfg.SettingsINI, &settings, logger); err != nil {
		fmt.Fprintln(os.Stderr, "settings ini:", err)
		os.Exit(1)
	}

	work, err := os.MkdirTemp("", "positioner-replay-")
	if err != nil {
		fmt.Fprintln(os.Stderr, "temp dir:", err)
		os.Exit(1)
	}
	defer os.RemoveAll(work)

	store := offsets.NewStore(filepath.Join(work, "offsets"), logger)
	if *seedDir != "" {
		n, err := seedProfiles(offsets.NewStore(*seedDir, logger), store)
		if err != nil {
			fmt.Fprintln(os.Stderr, "seed profiles:", err)
			os.Exit(1)
		}
		fmt.Printf("seeded %d profiles from %s\n", n, *seedDir)
	}

	// The host is not observable during replay; every actor gets a live handle on first use.
	mem := host.NewMemory()
	mem.SetAutoCreate(true)
	reg := positioner.New(positioner.Options{
		Host:     mem,
		Store:    store,
		Settings: settings,
		Logger:   logger,
	})

	st, err := journal.Replay(*journalDir, reg, journal.ReplayOptions{FromSeq: *fromSeq, ToSeq: *toSeq})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.RemoveAll(work)
		os.Exit(1)
	}
	fmt.Printf("replay ok: applied=%d checked=%d restarts=%d last_seq=%d\n", st.Applied, st.Checked, st.Restarts, st.LastSeq)
}

// seedProfiles copies every profile file of src into dst.
func seedProfiles(src, dst *offsets.Store) (int, error) {
	profiles, err := src.Profiles()
	if err != nil {
		return 0, err
	}
	for _, p := range profiles {
		b, err := os.ReadFile(p.Path)
		if err != nil {
			return 0, err
		}
		out, err := dst.Path(p.Name, p.Player)
		if err != nil {
			return 0, err
		}
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return 0, err
		}
		if err := os.WriteFile(out, b, 0o644); err != nil {
			return 0, err
		}
	}
	return len(profiles), nil
}
