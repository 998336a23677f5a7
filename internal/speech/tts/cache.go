package tts

import (
	"crypto/md5"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// AudioCache keeps synthesized audio on disk, one file per distinct
// utterance. Entries older than maxAge are treated as missing; a zero maxAge
// keeps them forever.
type AudioCache struct {
	dir    string
	ext    string
	maxAge time.Duration
}

// CacheInfo describes the cache contents.
type CacheInfo struct {
	Dir          string
	Exists       bool
	Files        int
	Size         int64
	LastModified time.Time
	MaxAge       time.Duration
}

func NewAudioCache(dir, ext string, maxAge time.Duration) *AudioCache {
	return &AudioCache{dir: dir, ext: ext, maxAge: maxAge}
}

// Path returns the file an entry for key is stored in.
func (c *AudioCache) Path(key string) string {
	return filepath.Join(c.dir, fmt.Sprintf("%x%s", md5Sum(key), c.ext))
}

// Lookup returns the path of a fresh entry for key.
func (c *AudioCache) Lookup(key string) (string, bool) {
	path := c.Path(key)
	info, err := os.Stat(path)
	if err != nil || !c.isFresh(info) {
		return "", false
	}
	return path, true
}

// Store writes data as the entry for key and returns its path.
func (c *AudioCache) Store(key string, data []byte) (string, error) {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create cache dir: %w", err)
	}

	path := c.Path(key)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write audio to %s: %w", path, err)
	}
	return path, nil
}

func (c *AudioCache) isFresh(info os.FileInfo) bool {
	return c.maxAge <= 0 || time.Since(info.ModTime()) < c.maxAge
}

// Info summarises the cached entries.
func (c *AudioCache) Info() (CacheInfo, error) {
	info := CacheInfo{Dir: c.dir, MaxAge: c.maxAge}

	err := c.walk(func(_ string, fi os.FileInfo) error {
		info.Files++
		info.Size += fi.Size()
		if fi.ModTime().After(info.LastModified) {
			info.LastModified = fi.ModTime()
		}
		return nil
	})
	if os.IsNotExist(err) {
		return info, nil
	}
	if err != nil {
		return info, err
	}

	info.Exists = true
	return info, nil
}

// Prune removes stale entries and reports how many were removed.
func (c *AudioCache) Prune() (int, error) {
	removed := 0
	err := c.walk(func(path string, fi os.FileInfo) error {
		if c.isFresh(fi) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			return err
		}
		removed++
		return nil
	})
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return removed, fmt.Errorf("failed to prune cache: %w", err)
	}

	logrus.WithField("removed", removed).Debug("Pruned audio cache")
	return removed, nil
}

// Clear removes every cached entry.
func (c *AudioCache) Clear() error {
	if err := os.RemoveAll(c.dir); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	logrus.WithField("dir", c.dir).Info("Cleared audio cache")
	return nil
}

// walk visits the cache entries; it returns an IsNotExist error when the
// directory is missing.
func (c *AudioCache) walk(fn func(path string, fi os.FileInfo) error) error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), c.ext) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		if err := fn(filepath.Join(c.dir, e.Name()), fi); err != nil {
			return err
		}
	}
	return nil
}

func md5Sum(s string) []byte {
	h := md5.New()
	io.WriteString(h, s)
	return h.Sum(nil)
}
