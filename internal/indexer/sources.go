package indexer

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/karrick/godirwalk"
	"github.com/rs/zerolog/log"
)

// FileSystemWalker defines the interface for walking directories
type FileSystemWalker interface {
	Walk(root string, options *godirwalk.Options) error
}

// FileReader defines the interface for reading files
type FileReader interface {
	ReadFile(filename string) ([]byte, error)
}

// DefaultFileSystemWalker implements FileSystemWalker using godirwalk
type DefaultFileSystemWalker struct{}

func (d *DefaultFileSystemWalker) Walk(root string, options *godirwalk.Options) error {
	return godirwalk.Walk(root, options)
}

// DefaultFileReader implements FileReader using os
type DefaultFileReader struct{}

func (d *DefaultFileReader) ReadFile(filename string) ([]byte, error) {
	return os.ReadFile(filename)
}

// ReadSources parses a newline-delimited URL list. Blank lines and lines
// starting with '#' are ignored.
func ReadSources(r io.Reader) ([]string, error) {
	var urls []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, scanner.Err()
}

// SourceLoader reads URL lists from a file or a directory of lists.
type SourceLoader struct {
	Walker FileSystemWalker
	Reader FileReader
}

// LoadSources reads path with the default walker and reader.
func LoadSources(path string) ([]string, error) {
	l := &SourceLoader{Walker: &DefaultFileSystemWalker{}, Reader: &DefaultFileReader{}}
	return l.Load(path)
}

// Load returns the URLs listed at path. A directory contributes every .txt
// and .list file below it in lexical order. Duplicates keep their first position.
func (l *SourceLoader) Load(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("sources: %w", err)
	}

	var urls []string
	if !info.IsDir() {
		urls, err = l.readList(path)
		if err != nil {
			return nil, err
		}
		return dedupe(urls), nil
	}

	err = l.Walker.Walk(path, &godirwalk.Options{
		Callback: func(p string, de *godirwalk.Dirent) error {
			if de != nil && de.IsDir() {
				return nil
			}
			if !isSourceList(p) {
				return nil
			}
			found, err := l.readList(p)
			if err != nil {
				return err
			}
			log.Debug().Str("path", p).Int("urls", len(found)).Msg("read source list")
			urls = append(urls, found...)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("walk sources %s: %w", path, err)
	}
	return dedupe(urls), nil
}

func (l *SourceLoader) readList(path string) ([]string, error) {
	b, err := l.Reader.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources %s: %w", path, err)
	}
	return ReadSources(bytes.NewReader(b))
}

func isSourceList(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".list":
		return true
	}
	return false
}

func dedupe(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}
