// Package logtail resolves and tails the append-only log files written by
// the imagery worker. Multiple log files may exist; the newest by
// modification time is authoritative. Files are never deleted here.
package logtail

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/flutter-gis/earthbridge/internal/common"
	"github.com/flutter-gis/earthbridge/internal/interfaces"
)

// Service implements LogTailer over a configured directory and prefix.
type Service struct {
	dir          string
	prefix       string
	defaultLines int
	maxLines     int
	logger       arbor.ILogger
}

// NewService creates a log tailer for the configured worker log directory.
func NewService(cfg *common.LogsConfig, logger arbor.ILogger) interfaces.LogTailer {
	return &Service{
		dir:          cfg.Dir,
		prefix:       cfg.Prefix,
		defaultLines: cfg.DefaultLines,
		maxLines:     cfg.MaxLines,
		logger:       logger,
	}
}

// LatestLogPath lists the log directory and returns the file with the
// greatest modification time among those matching the prefix. Returns ""
// when no log file exists yet; a missing directory is an error.
func (s *Service) LatestLogPath() (string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return "", fmt.Errorf("failed to read log directory %s: %w", s.dir, err)
	}

	var newest string
	var newestMod int64
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), s.prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); newest == "" || mod > newestMod {
			newest = entry.Name()
			newestMod = mod
		}
	}

	if newest == "" {
		return "", nil
	}
	return filepath.Join(s.dir, newest), nil
}

// Tail reads the whole file and returns at most maxLines trailing lines in
// original order. Whole-file reads are fine for bounded worker logs; the
// configured max_lines caps the request rather than the file size.
func (s *Service) Tail(path string, maxLines int) ([]string, error) {
	maxLines = s.clampLines(maxLines)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read log file %s: %w", path, err)
	}

	text := strings.TrimRight(string(data), "\n")
	if text == "" {
		return []string{}, nil
	}

	lines := strings.Split(text, "\n")
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return lines, nil
}

// TailLatest tails the most recent log file. No log file yet is reported
// as an error so the caller can surface "no log available" to the UI.
func (s *Service) TailLatest(maxLines int) ([]string, error) {
	path, err := s.LatestLogPath()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, fmt.Errorf("no log file matching %s* in %s", s.prefix, s.dir)
	}

	s.logger.Debug().Str("path", path).Int("max_lines", maxLines).Msg("Tailing worker log")
	return s.Tail(path, maxLines)
}

func (s *Service) clampLines(n int) int {
	if n <= 0 {
		n = s.defaultLines
	}
	if s.maxLines > 0 && n > s.maxLines {
		n = s.maxLines
	}
	if n <= 0 {
		n = 50
	}
	return n
}
