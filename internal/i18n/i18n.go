// Package i18n loads the operator panel's translation tables.
//
// A table lives in <dir>/<menu>_<lang>.txt, one `name<TAB>value` pair per line. Files may be
// UTF-8 or UTF-16 with a byte order mark.
package i18n

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/language"
	"golang.org/x/text/transform"
)

type Table struct {
	Language string            `json:"language"`
	Source   string            `json:"source,omitempty"`
	Strings  map[string]string `json:"strings"`
}

type Loader struct {
	dir  string
	menu string
	def  string
	log  *log.Logger
}

func NewLoader(dir, menu, defaultLang string, logger *log.Logger) *Loader {
	if logger == nil {
		logger = log.Default()
	}
	if defaultLang == "" {
		defaultLang = "en"
	}
	return &Loader{dir: dir, menu: menu, def: defaultLang, log: logger}
}

func (l *Loader) path(lang string) string {
	return filepath.Join(l.dir, l.menu+"_"+lang+".txt")
}

// Candidates lists the file languages tried for lang, in order: lang itself, its base
// language, then the default.
func (l *Loader) Candidates(lang string) []string {
	var out []string
	add := func(s string) {
		if s == "" {
			return
		}
		for _, have := range out {
			if have == s {
				return
			}
		}
		out = append(out, s)
	}
	add(lang)
	if tag, err := language.Parse(lang); err == nil {
		if base, conf := tag.Base(); conf != language.No {
			add(base.String())
		}
	}
	add(l.def)
	return out
}

// Load reads the table for lang. A missing table is not an error: the result is empty.
func (l *Loader) Load(lang string) (Table, error) {
	if lang == "" {
		lang = l.def
	}
	t := Table{Language: lang, Strings: map[string]string{}}
	for _, cand := range l.Candidates(lang) {
		p := l.path(cand)
		f, err := os.Open(p)
		if errors.Is(err, fs.ErrNotExist) {
			l.log.Printf("translation file not found: %s", p)
			continue
		}
		if err != nil {
			return t, fmt.Errorf("open %s: %w", p, err)
		}
		strs, err := Parse(f, l.log.Printf)
		f.Close()
		if err != nil {
			return t, fmt.Errorf("read %s: %w", p, err)
		}
		t.Source = p
		t.Strings = strs
		return t, nil
	}
	l.log.Printf("no translation table for %q", lang)
	return t, nil
}

// Parse reads name/value pairs. The first definition of a name wins.
func Parse(r io.Reader, logf func(format string, args ...any)) (map[string]string, error) {
	dec := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	out := map[string]string{}
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		name, value, _ := strings.Cut(line, "\t")
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		if name == "" {
			logf("cannot read the name: %q", line)
			continue
		}
		if value == "" {
			logf("cannot read the value: %q", line)
			continue
		}
		if _, dup := out[name]; !dup {
			out[name] = value
		}
	}
	return out, sc.Err()
}

// Catalog holds the table currently served to the panel.
type Catalog struct {
	loader *Loader

	mu  sync.RWMutex
	cur Table
}

func NewCatalog(loader *Loader) *Catalog {
	return &Catalog{loader: loader, cur: Table{Strings: map[string]string{}}}
}

func (c *Catalog) Reload(lang string) error {
	t, err := c.loader.Load(lang)
	c.mu.Lock()
	c.cur = t
	c.mu.Unlock()
	return err
}

func (c *Catalog) Current() Table {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cur
}
