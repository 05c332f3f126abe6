package grass

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Location identifies a GRASS mapset inside a database directory.
type Location struct {
	Dbase    string // GISDBASE, absolute
	Location string // LOCATION_NAME
	Mapset   string // MAPSET
}

// Session is a GRASS environment bound to one mapset. Commands started
// through it see GISBASE and a private GISRC file.
type Session struct {
	GISBase  string
	Location Location

	// Stderr, when set, receives command stderr as it is produced in
	// addition to the copy kept for errors.
	Stderr io.Writer

	gisrc string
	env   []string
}

// NewSession writes a GISRC file for loc and prepares the command
// environment. Close removes the GISRC file.
func NewSession(gisbase string, loc Location) (*Session, error) {
	if strings.TrimSpace(gisbase) == "" {
		return nil, &NotFoundError{GISBase: gisbase, Err: fmt.Errorf("GISBASE is empty")}
	}
	if loc.Dbase == "" || loc.Location == "" || loc.Mapset == "" {
		return nil, fmt.Errorf("incomplete GRASS location %+v", loc)
	}

	f, err := os.CreateTemp("", "rhessysflow-gisrc-*")
	if err != nil {
		return nil, fmt.Errorf("create GISRC: %w", err)
	}
	_, werr := fmt.Fprintf(f, "GISDBASE: %s\nLOCATION_NAME: %s\nMAPSET: %s\nGUI: text\n",
		loc.Dbase, loc.Location, loc.Mapset)
	cerr := f.Close()
	if werr != nil || cerr != nil {
		os.Remove(f.Name())
		if werr == nil {
			werr = cerr
		}
		return nil, fmt.Errorf("write GISRC: %w", werr)
	}

	s := &Session{GISBase: gisbase, Location: loc, gisrc: f.Name()}
	s.env = buildEnv(os.Environ(), gisbase, s.gisrc)
	return s, nil
}

// GISRC returns the path of the session's GISRC file.
func (s *Session) GISRC() string { return s.gisrc }

// Env returns the environment commands run with.
func (s *Session) Env() []string {
	return append([]string(nil), s.env...)
}

// Close removes the GISRC file.
func (s *Session) Close() error {
	if s.gisrc == "" {
		return nil
	}
	err := os.Remove(s.gisrc)
	s.gisrc = ""
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// buildEnv layers the GRASS variables over base. Existing values of the
// variables GRASS owns are replaced, search paths are prepended to.
func buildEnv(base []string, gisbase, gisrc string) []string {
	libVar := "LD_LIBRARY_PATH"
	if runtime.GOOS == "darwin" {
		libVar = "DYLD_LIBRARY_PATH"
	}

	prepend := map[string]string{
		"PATH": strings.Join([]string{filepath.Join(gisbase, "bin"), filepath.Join(gisbase, "scripts")}, string(os.PathListSeparator)),
		libVar: filepath.Join(gisbase, "lib"),
	}
	set := map[string]string{
		"GISBASE": gisbase,
		"GISRC":   gisrc,
	}

	env := make([]string, 0, len(base)+len(set)+len(prepend))
	for _, kv := range base {
		name, value, _ := strings.Cut(kv, "=")
		if _, ok := set[name]; ok {
			continue
		}
		if p, ok := prepend[name]; ok {
			if value != "" {
				p += string(os.PathListSeparator) + value
			}
			env = append(env, name+"="+p)
			delete(prepend, name)
			continue
		}
		env = append(env, kv)
	}
	for _, name := range []string{"PATH", libVar} {
		if p, ok := prepend[name]; ok {
			env = append(env, name+"="+p)
		}
	}
	env = append(env, "GISBASE="+gisbase, "GISRC="+gisrc)
	return env
}
