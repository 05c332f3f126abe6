package metadata

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/ecohydro/rhessysflow/internal/ctxlog"
)

// legacyOptions match Python's ConfigParser defaults: '#' and ';' start a
// comment only at the beginning of a line, and surrounding quotes and a
// trailing backslash belong to the value.
var legacyOptions = ini.LoadOptions{
	IgnoreInlineComment:     true,
	IgnoreContinuation:      true,
	PreserveSurroundedQuote: true,
}

// ImportSummary reports what ImportLegacy copied.
type ImportSummary struct {
	Entries         int
	History         int
	SkippedSections []string
}

// ImportLegacy copies an INI metadata file written by earlier workflow tools
// into store. Entry sections are copied verbatim; the processing section's
// cmdN keys are appended to the history in numeric order.
func ImportLegacy(ctx context.Context, store Store, path string) (ImportSummary, error) {
	log := ctxlog.FromContext(ctx)
	var sum ImportSummary

	f, err := ini.LoadSources(legacyOptions, path)
	if err != nil {
		return sum, fmt.Errorf("load legacy metadata: %w", err)
	}

	for _, sec := range f.Sections() {
		name := sec.Name()
		if name == ini.DefaultSection && len(sec.Keys()) == 0 {
			continue
		}

		if Section(name) == SectionProcessing {
			n, err := importHistory(ctx, store, sec)
			sum.History += n
			if err != nil {
				return sum, err
			}
			continue
		}

		section, err := ParseSection(name)
		if err != nil {
			log.Debug("skipping legacy metadata section", "section", name)
			sum.SkippedSections = append(sum.SkippedSections, name)
			continue
		}
		for _, k := range sec.Keys() {
			key, err := ParseKey(section, k.Name())
			if err != nil {
				return sum, fmt.Errorf("legacy metadata [%s]: %w", name, err)
			}
			if err := store.WriteEntry(ctx, key, k.String()); err != nil {
				return sum, err
			}
			sum.Entries++
		}
	}

	log.Debug("imported legacy metadata", "path", path, "entries", sum.Entries, "history", sum.History)
	return sum, nil
}

func importHistory(ctx context.Context, store Store, sec *ini.Section) (int, error) {
	keys := sec.Keys()
	sort.SliceStable(keys, func(i, j int) bool {
		a, aok := historyIndex(keys[i].Name())
		b, bok := historyIndex(keys[j].Name())
		if aok && bok {
			return a < b
		}
		return aok && !bok
	})
	for i, k := range keys {
		if _, err := store.AppendHistory(ctx, k.String()); err != nil {
			return i, err
		}
	}
	return len(keys), nil
}

func historyIndex(name string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimPrefix(name, "cmd"))
	if err != nil || !strings.HasPrefix(name, "cmd") {
		return 0, false
	}
	return n, true
}

// ExportLegacy writes the store's entries and history as an INI metadata file
// readable by the Python workflow tools.
func ExportLegacy(ctx context.Context, store Store, path string) error {
	f := ini.Empty(legacyOptions)

	for _, section := range Sections {
		entries, err := store.ReadSection(ctx, section)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			continue
		}
		sec, err := f.NewSection(string(section))
		if err != nil {
			return fmt.Errorf("export section %s: %w", section, err)
		}
		names := make([]string, 0, len(entries))
		for k := range entries {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			if _, err := sec.NewKey(k, entries[k]); err != nil {
				return fmt.Errorf("export %s.%s: %w", section, k, err)
			}
		}
	}

	history, err := store.History(ctx)
	if err != nil {
		return err
	}
	if len(history) > 0 {
		sec, err := f.NewSection(string(SectionProcessing))
		if err != nil {
			return fmt.Errorf("export history: %w", err)
		}
		for i, h := range history {
			if _, err := sec.NewKey(fmt.Sprintf("cmd%d", i+1), h.CommandLine); err != nil {
				return fmt.Errorf("export history: %w", err)
			}
		}
	}

	if err := f.SaveTo(path); err != nil {
		return fmt.Errorf("write legacy metadata: %w", err)
	}
	return nil
}
