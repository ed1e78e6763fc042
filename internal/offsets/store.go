// Package offsets persists per-slot positional offsets, one flat text file per position
// profile. Each record line reads `slot|x,y,z`.
package offsets

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/WirelessLan/AAFDynamicPositioner/internal/geom"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/host"
)

const (
	fileExt   = ".txt"
	playerDir = "Player"
)

var (
	ErrUnregistered   = errors.New("actor not registered")
	ErrInvalidProfile = errors.New("invalid profile name")
)

type Record struct {
	Slot   uint32    `json:"slot"`
	Offset geom.Vec3 `json:"offset"`
}

// Lookup resolves an actor to its current slot and offset.
type Lookup func(id host.ActorID) (Record, bool)

type Store struct {
	root string
	log  *log.Logger
}

func NewStore(root string, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{root: root, log: logger}
}

func (s *Store) Root() string { return s.root }

// Path is where a profile lives: <root>/<profile>.txt, or <root>/Player/<profile>.txt for the
// player variant.
func (s *Store) Path(profile string, player bool) (string, error) {
	if err := checkProfile(profile); err != nil {
		return "", err
	}
	if player {
		return filepath.Join(s.root, playerDir, profile+fileExt), nil
	}
	return filepath.Join(s.root, profile+fileExt), nil
}

// Load reads a profile. A missing file is an empty profile, not an error.
func (s *Store) Load(profile string, player bool) ([]Record, error) {
	p, err := s.Path(profile, player)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open profile %s: %w", profile, err)
	}
	defer f.Close()

	recs, err := Parse(f, func(format string, args ...any) {
		s.log.Printf("profile %s: "+format, append([]any{profile}, args...)...)
	})
	if err != nil {
		return nil, fmt.Errorf("read profile %s: %w", profile, err)
	}
	return recs, nil
}

// Save writes one record per actor, in the given order. When any actor cannot be resolved
// nothing is written and ErrUnregistered is returned.
func (s *Store) Save(profile string, player bool, ids []host.ActorID, lookup Lookup) error {
	p, err := s.Path(profile, player)
	if err != nil {
		return err
	}
	recs := make([]Record, 0, len(ids))
	for _, id := range ids {
		rec, ok := lookup(id)
		if !ok {
			return fmt.Errorf("save profile %s: actor %d: %w", profile, id, ErrUnregistered)
		}
		recs = append(recs, rec)
	}

	var buf bytes.Buffer
	if err := Format(&buf, recs); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}

// Profile describes one stored profile file.
type Profile struct {
	Name   string `json:"name"`
	Player bool   `json:"player"`
	Path   string `json:"path"`
}

// Profiles lists stored profiles, shared ones first, each group sorted by name.
func (s *Store) Profiles() ([]Profile, error) {
	var out []Profile
	for _, player := range []bool{false, true} {
		dir := s.root
		if player {
			dir = filepath.Join(s.root, playerDir)
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		var names []string
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
				continue
			}
			names = append(names, strings.TrimSuffix(e.Name(), fileExt))
		}
		sort.Strings(names)
		for _, n := range names {
			out = append(out, Profile{Name: n, Player: player, Path: filepath.Join(dir, n+fileExt)})
		}
	}
	return out, nil
}

// Parse reads profile records. Blank lines and `#` comments are skipped; malformed lines
// are reported through logf and skipped.
func Parse(r io.Reader, logf func(format string, args ...any)) ([]Record, error) {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	var out []Record
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := stripComment(strings.TrimSpace(sc.Text()))
		if line == "" {
			continue
		}
		rec, err := parseLine(line)
		if err != nil {
			logf("%v: %q", err, line)
			continue
		}
		out = append(out, rec)
	}
	return out, sc.Err()
}

func parseLine(line string) (Record, error) {
	idxStr, rest, ok := strings.Cut(line, "|")
	idxStr = strings.TrimSpace(idxStr)
	if !ok || idxStr == "" {
		return Record{}, errors.New("cannot read the position index")
	}
	slot, err := strconv.ParseUint(idxStr, 10, 32)
	if err != nil {
		return Record{}, fmt.Errorf("bad position index: %w", err)
	}

	fields := strings.Split(rest, ",")
	if len(fields) != 3 {
		return Record{}, fmt.Errorf("expected 3 offset components, got %d", len(fields))
	}
	var off geom.Vec3
	for i, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			return Record{}, fmt.Errorf("cannot read the offset %s", []string{"X", "Y", "Z"}[i])
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Record{}, fmt.Errorf("bad offset %s: %w", []string{"X", "Y", "Z"}[i], err)
		}
		off[i] = v
	}
	return Record{Slot: uint32(slot), Offset: off}, nil
}

func Format(w io.Writer, recs []Record) error {
	bw := bufio.NewWriter(w)
	for _, r := range recs {
		if _, err := fmt.Fprintf(bw, "%d|%s,%s,%s\n", r.Slot,
			formatFloat(r.Offset[0]), formatFloat(r.Offset[1]), formatFloat(r.Offset[2])); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Find returns the offset stored for slot. The first matching record wins.
func Find(recs []Record, slot uint32) (geom.Vec3, bool) {
	for _, r := range recs {
		if r.Slot == slot {
			return r.Offset, true
		}
	}
	return geom.Vec3{}, false
}

func formatFloat(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func stripComment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}

func checkProfile(name string) error {
	if strings.TrimSpace(name) == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidProfile, name)
	}
	return nil
}
