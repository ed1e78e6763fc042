package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/WirelessLan/AAFDynamicPositioner/internal/geom"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/host"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/positioner"
)

func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)

	u := strings.TrimRight(strings.TrimSpace(*baseURL), "/") + "/admin/v1/state"
	cl := &http.Client{Timeout: 5 * time.Second}
	resp, err := cl.Get(u)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(string(b))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}

// commandCmd posts one registry command, e.g.
//
//	admin command -kind SET_OFFSET -axis Z -value 3.5
func commandCmd(args []string) {
	fs := flag.NewFlagSet("command", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	kind := fs.String("kind", "", "command kind (required)")
	enabled := fs.Bool("enabled", false, "SET_ENABLED value")
	actors := fs.String("actors", "", "comma-separated actor form ids (SCENE_START, PHASE_CHANGE, SCENE_END)")
	standIn := fs.String("stand_in", "", "stand-in actor form id (SCENE_START)")
	profile := fs.String("profile", "", "profile name (PHASE_CHANGE)")
	axis := fs.String("axis", "", "axis X|Y|Z (SET_OFFSET)")
	value := fs.Float64("value", 0, "offset or setting value")
	setting := fs.String("setting", "", "setting name (UPDATE_SETTING)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*kind) == "" {
		fmt.Fprintln(os.Stderr, "missing -kind")
		os.Exit(2)
	}
	cmd := positioner.Command{
		Kind:    positioner.Kind(strings.ToUpper(strings.TrimSpace(*kind))),
		Enabled: *enabled,
		Profile: *profile,
		Value:   *value,
		Setting: *setting,
	}
	if s := strings.TrimSpace(*actors); s != "" {
		for _, part := range strings.Split(s, ",") {
			id, err := parseActor(part)
			if err != nil {
				fmt.Fprintln(os.Stderr, "bad -actors:", err)
				os.Exit(2)
			}
			cmd.Actors = append(cmd.Actors, id)
		}
	}
	if s := strings.TrimSpace(*standIn); s != "" {
		id, err := parseActor(s)
		if err != nil {
			fmt.Fprintln(os.Stderr, "bad -stand_in:", err)
			os.Exit(2)
		}
		cmd.StandIn = id
	}
	if s := strings.TrimSpace(*axis); s != "" {
		a, ok := geom.ParseAxis(strings.ToUpper(s))
		if !ok {
			fmt.Fprintln(os.Stderr, "bad -axis:", s)
			os.Exit(2)
		}
		cmd.Axis = a
	}

	body, err := json.Marshal(cmd)
	if err != nil {
		fmt.Fprintln(os.Stderr, "marshal:", err)
		os.Exit(1)
	}
	u := strings.TrimRight(strings.TrimSpace(*baseURL), "/") + "/admin/v1/command"
	cl := &http.Client{Timeout: 10 * time.Second}
	resp, err := cl.Post(u, "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(string(b))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}

// parseActor reads a hex form id, with or without a 0x prefix.
func parseActor(s string) (host.ActorID, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", s, err)
	}
	return host.ActorID(v), nil
}
