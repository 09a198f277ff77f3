// Package savefile reads and writes the plain-text annotation save format:
//
//	cam0 <frame_count>
//	<frame_index> <start.x> <start.y> <end.x> <end.y>
//	...
//	cam1 <frame_count>
//	...
//
// Regions are listed in frame order and, within a frame, in append order.
package savefile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/andresmejia3/veil/internal/region"
)

var (
	// ErrNotFound is returned by Read when the save file does not exist.
	// It matches fs.ErrNotExist as well.
	ErrNotFound = fmt.Errorf("save file not found: %w", fs.ErrNotExist)
	// ErrMalformed is returned for lines the format does not allow.
	ErrMalformed = errors.New("malformed save file")
)

// PathFor returns the save file used for a log: <dir>/<stem>_save.txt.
func PathFor(dir, logPath string) string {
	stem := strings.TrimSuffix(filepath.Base(logPath), filepath.Ext(logPath))
	return filepath.Join(dir, stem+"_save.txt")
}

// Write saves the stores of every camera, in camera order. The file is
// replaced atomically.
func Write(path string, stores []*region.Store) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create save directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".veil-save-*")
	if err != nil {
		return fmt.Errorf("failed to create save file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if err := Encode(tmp, stores); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to flush save file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move save file into place: %w", err)
	}
	return nil
}

// Encode writes the save format to w.
func Encode(w io.Writer, stores []*region.Store) error {
	bw := bufio.NewWriter(w)
	for cam, s := range stores {
		fmt.Fprintf(bw, "cam%d %d\n", cam, s.Len())
		s.Each(func(frame int, r region.Region) {
			fmt.Fprintf(bw, "%d %s\n", frame, r)
		})
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write save file: %w", err)
	}
	return nil
}

// Read loads a save file. A missing file yields ErrNotFound.
func Read(path string) ([]*region.Store, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to open save file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses the save format from r.
func Decode(r io.Reader) ([]*region.Store, error) {
	var stores []*region.Store
	var current *region.Store

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "cam") {
			fields := strings.Fields(line)
			if len(fields) != 2 {
				return nil, fmt.Errorf("%w: line %d: bad camera header %q", ErrMalformed, lineNo, line)
			}
			idx, err := strconv.Atoi(strings.TrimPrefix(fields[0], "cam"))
			if err != nil || idx != len(stores) {
				return nil, fmt.Errorf("%w: line %d: expected cam%d, got %q", ErrMalformed, lineNo, len(stores), fields[0])
			}
			n, err := strconv.Atoi(fields[1])
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: line %d: bad frame count %q", ErrMalformed, lineNo, fields[1])
			}
			current = region.NewStore(n)
			stores = append(stores, current)
			continue
		}

		if current == nil {
			return nil, fmt.Errorf("%w: line %d: region before any camera header", ErrMalformed, lineNo)
		}
		frameStr, rest, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("%w: line %d: %q", ErrMalformed, lineNo, line)
		}
		frame, err := strconv.Atoi(frameStr)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad frame index %q", ErrMalformed, lineNo, frameStr)
		}
		reg, err := region.Parse(rest)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, lineNo, err)
		}
		if err := current.Append(frame, reg); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read save file: %w", err)
	}
	return stores, nil
}
