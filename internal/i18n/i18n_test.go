package i18n

import (
	"bytes"
	"encoding/binary"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf16"
)

func quiet() *log.Logger { return log.New(io.Discard, "", 0) }

func TestParse(t *testing.T) {
	in := strings.Join([]string{
		"# header",
		"",
		"$Title\tDynamic Positioner",
		"  $Axis\t X axis  # trailing",
		"$NoValue\t",
		"\tno name",
		"$Title\tshadowed",
		"#$Commented\tvalue",
	}, "\n")
	var logged []string
	got, err := Parse(strings.NewReader(in), func(f string, a ...any) { logged = append(logged, f) })
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := map[string]string{"$Title": "Dynamic Positioner", "$Axis": "X axis"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("%s=%q want %q", k, got[k], v)
		}
	}
	if len(logged) != 2 {
		t.Fatalf("logged %d lines", len(logged))
	}
}

func TestParseUTF16(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xFE})
	for _, u := range utf16.Encode([]rune("$Title\tPositionneur\r\n")) {
		binary.Write(&buf, binary.LittleEndian, u)
	}
	got, err := Parse(&buf, quiet().Printf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got["$Title"] != "Positionneur" {
		t.Fatalf("got %v", got)
	}
}

func write(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestLoadFallback(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "Menu_en.txt", "$Title\tEnglish\n")
	write(t, dir, "Menu_pt.txt", "$Title\tPortuguês\n")
	l := NewLoader(dir, "Menu", "en", quiet())

	cases := []struct{ lang, want string }{
		{"en", "English"},
		{"pt-BR", "Português"},
		{"de", "English"},
		{"", "English"},
	}
	for _, tc := range cases {
		tab, err := l.Load(tc.lang)
		if err != nil {
			t.Fatalf("Load(%q): %v", tc.lang, err)
		}
		if tab.Strings["$Title"] != tc.want {
			t.Fatalf("Load(%q) title=%q want %q", tc.lang, tab.Strings["$Title"], tc.want)
		}
	}
	if tab, _ := l.Load("de"); tab.Language != "de" {
		t.Fatalf("language should stay the requested one, got %q", tab.Language)
	}
}

func TestLoadMissingIsEmpty(t *testing.T) {
	l := NewLoader(t.TempDir(), "Menu", "en", quiet())
	tab, err := l.Load("fr")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(tab.Strings) != 0 || tab.Source != "" {
		t.Fatalf("expected empty table, got %+v", tab)
	}
}

func TestCatalogReload(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "Menu_en.txt", "$A\t1\n")
	c := NewCatalog(NewLoader(dir, "Menu", "en", quiet()))
	if len(c.Current().Strings) != 0 {
		t.Fatalf("catalog should start empty")
	}
	if err := c.Reload("en"); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if c.Current().Strings["$A"] != "1" {
		t.Fatalf("current=%+v", c.Current())
	}
}
