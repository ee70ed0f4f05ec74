// Package utils fetches remote map images into a local cache.
package utils

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var ErrNotFound = errors.New("file not found on server")

// CacheDir is where downloaded map images are kept between runs.
var CacheDir = "data/cache"

const progressStep = 5 << 20

// byteCounter logs progress while a large map image downloads.
type byteCounter struct {
	label  string
	n      int64
	logged int64
}

func (c *byteCounter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	if c.n-c.logged >= progressStep {
		log.Printf("%s: %d MB received", c.label, c.n>>20)
		c.logged = c.n
	}
	return len(p), nil
}

// IsURL reports whether src should be fetched over HTTP rather than opened locally.
func IsURL(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// DownloadFile stores the body of url at dst. dst only appears once the body is complete.
func DownloadFile(url, dst string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("Error closing response body: %v", err)
		}
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", url, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("fetch %s: %s", url, resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return err
	}
	body := io.TeeReader(resp.Body, &byteCounter{label: filepath.Base(dst)})
	_, copyErr := io.Copy(tmp, body)
	if err := errors.Join(copyErr, tmp.Close()); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}

// CacheFileName is the name a download of url is stored under. The log prefix keeps
// images fetched for different purposes apart.
func CacheFileName(url, logPrefix string) string {
	name := path.Base(strings.SplitN(url, "?", 2)[0])
	tag := strings.ReplaceAll(strings.Trim(logPrefix, "[]"), " ", "_")
	if tag == "" {
		return name
	}
	return tag + "_" + name
}

// OpenCached opens the cached copy of url, downloading it into CacheDir first if no
// earlier run has.
func OpenCached(url, logPrefix string) (*os.File, error) {
	if err := os.MkdirAll(CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	local := filepath.Join(CacheDir, CacheFileName(url, logPrefix))

	_, err := os.Stat(local)
	switch {
	case err == nil:
		log.Printf("%s Using cached file: %s", logPrefix, local)
	case errors.Is(err, fs.ErrNotExist):
		log.Printf("%s Downloading %s", logPrefix, url)
		if err := DownloadFile(url, local); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}
	return os.Open(local)
}
