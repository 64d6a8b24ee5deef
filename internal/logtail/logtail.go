package logtail

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const maxLineBytes = 1024 * 1024

// ErrNoLogFiles is returned by Newest when a directory holds no *.log files.
var ErrNoLogFiles = errors.New("no log files found")

// Read returns at most maxLines from the end of the file at path. When
// maxLines <= 0 every line is returned. A missing file yields no lines.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	if maxLines <= 0 {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	ring := make([]string, maxLines)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Chunk is the result of an incremental read.
type Chunk struct {
	Lines     []string
	Offset    int64 // position just past the last complete line
	Size      int64
	Truncated bool // the file shrank below the requested offset
}

// ReadFrom returns the complete lines written after offset. A trailing
// partial line is left for the next call. When the file is shorter than
// offset it is treated as truncated and read from the start.
func ReadFrom(path string, offset int64) (Chunk, error) {
	file, err := os.Open(path)
	if err != nil {
		return Chunk{Offset: offset}, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Chunk{Offset: offset}, fmt.Errorf("stat log: %w", err)
	}
	chunk := Chunk{Offset: offset, Size: info.Size()}
	if chunk.Size < offset {
		chunk.Offset = 0
		chunk.Truncated = true
	}
	if chunk.Size == chunk.Offset {
		return chunk, nil
	}

	if _, err := file.Seek(chunk.Offset, io.SeekStart); err != nil {
		return chunk, fmt.Errorf("seek log: %w", err)
	}
	buf, err := io.ReadAll(io.LimitReader(file, chunk.Size-chunk.Offset))
	if err != nil {
		return chunk, fmt.Errorf("read log: %w", err)
	}

	end := bytes.LastIndexByte(buf, '\n')
	if end < 0 {
		return chunk, nil
	}
	for _, line := range strings.Split(string(buf[:end]), "\n") {
		chunk.Lines = append(chunk.Lines, strings.TrimSuffix(line, "\r"))
	}
	chunk.Offset += int64(end + 1)
	return chunk, nil
}

// Newest returns the most recently modified *.log file in dir, ignoring
// directories and hidden files.
func Newest(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read dir: %w", err)
	}

	type candidate struct {
		path    string
		modTime time.Time
	}
	var files []candidate
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(name), ".log") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, candidate{path: filepath.Join(dir, name), modTime: info.ModTime()})
	}
	if len(files) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoLogFiles, dir)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.After(files[j].modTime)
	})
	return files[0].path, nil
}
