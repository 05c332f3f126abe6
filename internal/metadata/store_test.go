package metadata

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreWriteRead(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.WriteEntry(ctx, DEMRast, "dem"); err != nil {
		t.Fatalf("WriteEntry: %v", err)
	}
	if err := s.WriteEntry(ctx, SlopeRast, "slope"); err != nil {
		t.Fatalf("WriteEntry: %v", err)
	}
	if err := s.WriteEntry(ctx, DEMRast, "dem_filled"); err != nil {
		t.Fatalf("WriteEntry overwrite: %v", err)
	}
	if err := s.WriteEntry(ctx, Worldfile, "world"); err != nil {
		t.Fatalf("WriteEntry: %v", err)
	}

	grass, err := s.ReadSection(ctx, SectionGRASS)
	if err != nil {
		t.Fatalf("ReadSection: %v", err)
	}
	want := Entries{"dem_rast": "dem_filled", "slope_rast": "slope"}
	if diff := cmp.Diff(want, grass); diff != "" {
		t.Errorf("grass section mismatch (-want +got):\n%s", diff)
	}

	empty, err := s.ReadSection(ctx, SectionStudyArea)
	if err != nil {
		t.Fatalf("ReadSection: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected empty study_area, got %v", empty)
	}

	all, err := s.ReadAll(ctx)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if all[SectionRHESSys].Value(Worldfile) != "world" || len(all) != 2 {
		t.Errorf("unexpected ReadAll result: %v", all)
	}
}

func TestStoreWriteIncompleteKey(t *testing.T) {
	s := openTestStore(t)
	if err := s.WriteEntry(context.Background(), Key{Name: "x"}, "v"); err == nil {
		t.Fatal("expected error for key without section")
	}
}

func TestStoreHistory(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	fixed := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	s.Now = func() time.Time { return fixed }

	first, err := s.AppendHistory(ctx, "rhessysflow create-flowtable -p /data/project")
	if err != nil {
		t.Fatalf("AppendHistory: %v", err)
	}
	if first.RunID == "" || first.Seq == 0 {
		t.Errorf("history entry missing identifiers: %+v", first)
	}
	if _, err := s.AppendHistory(ctx, "second"); err != nil {
		t.Fatalf("AppendHistory: %v", err)
	}

	history, err := s.History(ctx)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("got %d history entries, want 2", len(history))
	}
	if diff := cmp.Diff(first, history[0]); diff != "" {
		t.Errorf("first entry mismatch (-want +got):\n%s", diff)
	}
	if history[1].CommandLine != "second" || history[1].RunID == first.RunID {
		t.Errorf("unexpected second entry: %+v", history[1])
	}
}

func TestStorePersists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(ctx, dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.WriteEntry(ctx, DEMResX, "10.0"); err != nil {
		t.Fatalf("WriteEntry: %v", err)
	}
	if !strings.HasPrefix(s.Path(), dir) {
		t.Errorf("store path %s not under project %s", s.Path(), dir)
	}
	s.Close()

	s, err = Open(ctx, dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	study, err := s.ReadSection(ctx, SectionStudyArea)
	if err != nil {
		t.Fatalf("ReadSection: %v", err)
	}
	if study.Value(DEMResX) != "10.0" {
		t.Errorf("dem_res_x = %q after reopen", study.Value(DEMResX))
	}
}

func TestImportLegacy(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	legacy := `[study_area]
dem_res_x = 10.0
dem_res_y = 10.0

[grass]
dem_rast = dem
zero_rast = zero

[rhessys]
worldfile = world
grass_dbase = GRASSData

[manifest]
dem = DEM.tif

[processing]
cmd2 = CreateFlowtable.py -p proj
cmd10 = later.py -p proj
cmd1 = GenerateWorldfile.py -p proj
`
	path := filepath.Join(t.TempDir(), "metadata.txt")
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}

	sum, err := ImportLegacy(ctx, s, path)
	if err != nil {
		t.Fatalf("ImportLegacy: %v", err)
	}
	if sum.Entries != 6 || sum.History != 3 {
		t.Errorf("summary = %+v", sum)
	}
	if diff := cmp.Diff([]string{"manifest"}, sum.SkippedSections); diff != "" {
		t.Errorf("skipped sections (-want +got):\n%s", diff)
	}

	grass, err := s.ReadSection(ctx, SectionGRASS)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Entries{"dem_rast": "dem", "zero_rast": "zero"}, grass); diff != "" {
		t.Errorf("grass mismatch (-want +got):\n%s", diff)
	}

	history, err := s.History(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var cmds []string
	for _, h := range history {
		cmds = append(cmds, h.CommandLine)
	}
	want := []string{"GenerateWorldfile.py -p proj", "CreateFlowtable.py -p proj", "later.py -p proj"}
	if diff := cmp.Diff(want, cmds); diff != "" {
		t.Errorf("history order (-want +got):\n%s", diff)
	}
}

func TestImportLegacyMissingFile(t *testing.T) {
	s := openTestStore(t)
	if _, err := ImportLegacy(context.Background(), s, filepath.Join(t.TempDir(), "none.txt")); err == nil {
		t.Fatal("expected error for missing legacy file")
	}
}

func TestExportLegacyRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := openTestStore(t)

	if err := src.WriteEntry(ctx, DEMResX, "10.0"); err != nil {
		t.Fatal(err)
	}
	if err := src.WriteEntry(ctx, SurfaceFlowtable, "world.flow"); err != nil {
		t.Fatal(err)
	}
	if _, err := src.AppendHistory(ctx, "rhessysflow create-flowtable -p proj"); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "metadata.txt")
	if err := ExportLegacy(ctx, src, path); err != nil {
		t.Fatalf("ExportLegacy: %v", err)
	}

	dst := openTestStore(t)
	sum, err := ImportLegacy(ctx, dst, path)
	if err != nil {
		t.Fatalf("ImportLegacy: %v", err)
	}
	if sum.Entries != 2 || sum.History != 1 {
		t.Errorf("round trip summary = %+v", sum)
	}
	rhessys, err := dst.ReadSection(ctx, SectionRHESSys)
	if err != nil {
		t.Fatal(err)
	}
	if rhessys.Value(SurfaceFlowtable) != "world.flow" {
		t.Errorf("surface_flowtable = %q", rhessys.Value(SurfaceFlowtable))
	}
}

func TestImportLegacyKeepsCommentCharacters(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	legacy := `# written by GRASSDatasetForRHESSys.py
[rhessys]
template = tmpl#2
; line comments are still skipped
worldfile = world;v2

[processing]
cmd1 = Foo.py -p /data/x;y # keep
`
	path := filepath.Join(t.TempDir(), "metadata.txt")
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := ImportLegacy(ctx, s, path); err != nil {
		t.Fatalf("ImportLegacy: %v", err)
	}
	rhessys, err := s.ReadSection(ctx, SectionRHESSys)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Entries{"template": "tmpl#2", "worldfile": "world;v2"}, rhessys); diff != "" {
		t.Errorf("rhessys mismatch (-want +got):\n%s", diff)
	}
	history, err := s.History(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].CommandLine != "Foo.py -p /data/x;y # keep" {
		t.Fatalf("history = %+v", history)
	}

	out := filepath.Join(t.TempDir(), "exported.txt")
	if err := ExportLegacy(ctx, s, out); err != nil {
		t.Fatalf("ExportLegacy: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "`") {
		t.Errorf("export quoted values:\n%s", data)
	}
	for _, line := range []string{"= tmpl#2\n", "= world;v2\n", "= Foo.py -p /data/x;y # keep\n"} {
		if !strings.Contains(string(data), line) {
			t.Errorf("export missing %q:\n%s", line, data)
		}
	}

	dst := openTestStore(t)
	if _, err := ImportLegacy(ctx, dst, out); err != nil {
		t.Fatalf("re-import: %v", err)
	}
	again, err := dst.ReadSection(ctx, SectionRHESSys)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(rhessys, again); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestCommitRun(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	h, err := s.CommitRun(ctx, []Assignment{
		{Key: SurfaceFlowtable, Value: "world.flow"},
		{Key: SubsurfaceFlowtable, Value: "world.flow"},
	}, "rhessysflow create-flowtable -p proj")
	if err != nil {
		t.Fatalf("CommitRun: %v", err)
	}
	if h.Seq == 0 || h.RunID == "" {
		t.Errorf("history entry = %+v", h)
	}

	rhessys, err := s.ReadSection(ctx, SectionRHESSys)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Entries{"surface_flowtable": "world.flow", "subsurface_flowtable": "world.flow"}, rhessys); diff != "" {
		t.Errorf("rhessys mismatch (-want +got):\n%s", diff)
	}
	history, err := s.History(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].RunID != h.RunID {
		t.Errorf("history = %+v", history)
	}
}

func TestCommitRunRollsBack(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.CommitRun(ctx, []Assignment{
		{Key: SurfaceFlowtable, Value: "world.flow"},
		{Key: Key{Section: SectionRHESSys}, Value: "x"},
	}, "rhessysflow create-flowtable -p proj")
	if err == nil {
		t.Fatal("expected error for incomplete key")
	}

	rhessys, err := s.ReadSection(ctx, SectionRHESSys)
	if err != nil {
		t.Fatal(err)
	}
	if len(rhessys) != 0 {
		t.Errorf("entries kept after failed commit: %v", rhessys)
	}
	history, err := s.History(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 0 {
		t.Errorf("history kept after failed commit: %+v", history)
	}

	// The store stays usable after a rollback.
	if err := s.WriteEntry(ctx, Worldfile, "world"); err != nil {
		t.Fatalf("WriteEntry after rollback: %v", err)
	}
}
