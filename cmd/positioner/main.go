package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/WirelessLan/AAFDynamicPositioner/internal/bridge"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/config"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/host"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/i18n"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/offsets"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/panel"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/persistence/journal"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/positioner"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/transport/ws"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to positioner.yaml (optional)")
		addr       = flag.String("addr", "", "http listen address (overrides config listen)")
		dataDir    = flag.String("data", "", "offset profile directory (overrides config data_dir)")
		script     = flag.String("script", "", "lua script to load into the scripting bridge (optional)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite journal index")
		noJournal  = flag.Bool("no_journal", false, "disable the command journal")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[positioner] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if err := config.ApplyEnv(&cfg); err != nil {
		logger.Fatalf("config env: %v", err)
	}
	if s := strings.TrimSpace(*addr); s != "" {
		cfg.Listen = s
	}
	if s := strings.TrimSpace(*dataDir); s != "" {
		cfg.DataDir = s
	}

	settings, err := cfg.PositionerSettings()
	if err != nil {
		logger.Fatalf("settings: %v", err)
	}
	if err := config.LoadSettingsINI(cfg.SettingsINI, &settings, logger); err != nil {
		logger.Printf("%v; using configured settings", err)
	}

	indicator, err := highlightIndicator(cfg.Highlight)
	if err != nil {
		logger.Fatalf("highlight: %v", err)
	}

	cat := i18n.NewCatalog(i18n.NewLoader(cfg.TranslationsDir, cfg.MenuName, cfg.DefaultLocale, logger))
	if err := cat.Reload(cfg.Locale); err != nil {
		logger.Printf("translations: %v", err)
	}

	mem := host.NewMemory()
	layers := panel.NewLayers(0)
	link := ws.NewHostLink(ws.HostOptions{
		Memory:   mem,
		Controls: panel.NewMemoryControls(nil),
		Layers:   layers,
		Catalog:  cat,
		Logger:   logger,
	})
	pnl := panel.New(panel.NewGate(link, layers, logger), cat, logger)
	link.SetPanel(pnl)

	reg := positioner.New(positioner.Options{
		Host:     mem,
		Store:    offsets.NewStore(cfg.DataDir, logger),
		Panel:    pnl,
		Settings: settings,
		Logger:   logger,
	})
	rt := positioner.NewRuntime(reg, logger)

	if !*noJournal && strings.TrimSpace(cfg.JournalDir) != "" {
		if err := os.MkdirAll(cfg.JournalDir, 0o755); err != nil {
			logger.Fatalf("journal dir: %v", err)
		}
		jw := journal.NewWriter(cfg.JournalDir)
		defer jw.Close()
		rt.AddSink(jw)
	}

	idx, err := openRuntimeIndex(cfg.IndexDB, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		rt.AddSink(idx)
	}

	br := bridge.New(bridge.Options{Commander: rt, Indicator: indicator, Logger: logger})
	if s := strings.TrimSpace(*script); s != "" {
		if err := br.LoadScript(s); err != nil {
			logger.Fatalf("script: %v", err)
		}
		logger.Printf("loaded script %s", s)
	}
	link.SetCommander(rt)
	link.SetCaller(br)

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		if err := rt.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("runtime stopped: %v", err)
		}
	}()

	wsSrv, err := ws.NewServer(rt, pnl, link, logger)
	if err != nil {
		logger.Fatalf("ws: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		res, err := rt.Do(r.Context(), positioner.Command{Kind: positioner.KindState})
		if err != nil || res.State == nil {
			http.Error(rw, "runtime unavailable", http.StatusServiceUnavailable)
			return
		}
		st := res.State
		actors := 0
		for _, sc := range st.Scenes {
			actors += len(sc.Actors)
		}
		enabled := 0
		if st.Enabled {
			enabled = 1
		}
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		fmt.Fprintf(rw, "# HELP positioner_enabled Whether positioning is enabled.\n")
		fmt.Fprintf(rw, "# TYPE positioner_enabled gauge\n")
		fmt.Fprintf(rw, "positioner_enabled %d\n", enabled)
		fmt.Fprintf(rw, "# HELP positioner_scenes Registered scenes.\n")
		fmt.Fprintf(rw, "# TYPE positioner_scenes gauge\n")
		fmt.Fprintf(rw, "positioner_scenes %d\n", len(st.Scenes))
		fmt.Fprintf(rw, "# HELP positioner_actors Registered actors.\n")
		fmt.Fprintf(rw, "# TYPE positioner_actors gauge\n")
		fmt.Fprintf(rw, "positioner_actors %d\n", actors)
		fmt.Fprintf(rw, "# HELP positioner_host_actors Actors mirrored from the host.\n")
		fmt.Fprintf(rw, "# TYPE positioner_host_actors gauge\n")
		fmt.Fprintf(rw, "positioner_host_actors %d\n", len(mem.Actors()))
		if idx != nil {
			s := idx.Stats()
			fmt.Fprintf(rw, "# HELP positioner_index_dropped_total Journal entries the index dropped.\n")
			fmt.Fprintf(rw, "# TYPE positioner_index_dropped_total counter\n")
			fmt.Fprintf(rw, "positioner_index_dropped_total %d\n", s.DropEntryTotal)
			fmt.Fprintf(rw, "# HELP positioner_index_queue_depth Index writer backlog.\n")
			fmt.Fprintf(rw, "# TYPE positioner_index_queue_depth gauge\n")
			fmt.Fprintf(rw, "positioner_index_queue_depth %d\n", s.QueueDepth)
		}
	})

	if envBool("POSITIONER_ENABLE_ADMIN_HTTP", true) {
		// Local-only admin endpoints.
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			res, err := rt.Do(r.Context(), positioner.Command{Kind: positioner.KindState})
			if err != nil {
				http.Error(rw, err.Error(), http.StatusServiceUnavailable)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(res.State)
		})
		mux.HandleFunc("/admin/v1/command", func(rw http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				rw.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			var cmd positioner.Command
			if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
				http.Error(rw, err.Error(), http.StatusBadRequest)
				return
			}
			ctx2, cancel2 := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel2()
			res, err := rt.Do(ctx2, cmd)
			rw.Header().Set("Content-Type", "application/json")
			if err != nil {
				rw.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "error": err.Error()})
				return
			}
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "result": res})
		})
	} else {
		logger.Printf("admin endpoints disabled (POSITIONER_ENABLE_ADMIN_HTTP=false)")
	}
	wsSrv.Routes(mux)

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		rt.Stop()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s (offsets %s)", cfg.Listen, cfg.DataDir)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func highlightIndicator(h config.HighlightSpec) (bridge.Indicator, error) {
	movable, err := config.ParseFormID(h.Movable)
	if err != nil {
		return bridge.Indicator{}, err
	}
	immovable, err := config.ParseFormID(h.Immovable)
	if err != nil {
		return bridge.Indicator{}, err
	}
	return bridge.Indicator{Plugin: h.Plugin, Movable: movable, Immovable: immovable}, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
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

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
