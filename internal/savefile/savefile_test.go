package savefile

import (
	"bytes"
	"errors"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andresmejia3/veil/internal/region"
	"github.com/google/go-cmp/cmp"
)

func mustRegion(t *testing.T, x0, y0, x1, y1 int) region.Region {
	t.Helper()
	r, err := region.New(image.Pt(x0, y0), image.Pt(x1, y1), region.DefaultShape)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func texts(s *region.Store) map[int][]string {
	out := make(map[int][]string)
	s.Each(func(frame int, r region.Region) {
		out[frame] = append(out[frame], r.String())
	})
	return out
}

func TestRoundTripPreservesOrder(t *testing.T) {
	cam0 := region.NewStore(20)
	cam0.Append(0, mustRegion(t, 1, 2, 3, 4))
	cam0.Append(5, mustRegion(t, 10, 10, 100, 80))
	cam0.Append(5, mustRegion(t, 110, 80, 200, 150))
	cam0.Append(19, mustRegion(t, 0, 0, 640, 480))
	cam1 := region.NewStore(7)
	cam2 := region.NewStore(3)
	cam2.Append(2, mustRegion(t, -5, -5, 5, 5))

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "log_save.txt")
	if err := Write(path, []*region.Store{cam0, cam1, cam2}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 cameras, got %d", len(got))
	}
	for i, want := range []*region.Store{cam0, cam1, cam2} {
		if got[i].Len() != want.Len() {
			t.Errorf("cam%d frame count = %d, want %d", i, got[i].Len(), want.Len())
		}
		if diff := cmp.Diff(texts(want), texts(got[i])); diff != "" {
			t.Errorf("cam%d regions mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestRoundTripShrunkRegion(t *testing.T) {
	r := mustRegion(t, 10, 10, 15, 60)
	for i := 0; i < 40; i++ {
		r.Resize(0.05, region.Shrink)
	}
	cam0 := region.NewStore(2)
	cam0.Append(1, r.Moved(image.Pt(100, 100)))

	path := filepath.Join(t.TempDir(), "log_save.txt")
	if err := Write(path, []*region.Store{cam0}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if diff := cmp.Diff(texts(cam0), texts(got[0])); diff != "" {
		t.Errorf("regions mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeLayout(t *testing.T) {
	s := region.NewStore(6)
	s.Append(5, mustRegion(t, 10, 10, 100, 80))
	s.Append(5, mustRegion(t, 1, 1, 2, 2))

	var buf bytes.Buffer
	if err := Encode(&buf, []*region.Store{s, region.NewStore(2)}); err != nil {
		t.Fatal(err)
	}
	want := "cam0 6\n5 10 10 100 80\n5 1 1 2 2\ncam1 2\n"
	if buf.String() != want {
		t.Errorf("Encode() =\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.txt"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist in chain, got %v", err)
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"region before header", "3 1 1 5 5\n"},
		{"frame out of range", "cam0 2\n2 1 1 5 5\n"},
		{"bad coordinates", "cam0 2\n0 1 1 x 5\n"},
		{"zero width", "cam0 2\n0 4 1 4 5\n"},
		{"camera out of sequence", "cam1 2\n"},
		{"bad header", "cam0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input))
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestDecodeToleratesBlankLines(t *testing.T) {
	stores, err := Decode(strings.NewReader("cam0 3\n\n1 0 0 4 4\n\ncam1 1\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(stores) != 2 || stores[0].Count() != 1 {
		t.Fatalf("unexpected result: %d cameras", len(stores))
	}
}

func TestPathFor(t *testing.T) {
	got := PathFor("saves", "/data/bags/run-1.mcap")
	if got != filepath.Join("saves", "run-1_save.txt") {
		t.Errorf("PathFor() = %s", got)
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x_save.txt")
	if err := Write(path, []*region.Store{region.NewStore(1)}); err != nil {
		t.Fatal(err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only the save file, found %d entries", len(entries))
	}
}
