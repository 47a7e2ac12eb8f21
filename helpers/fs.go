package helpers

import (
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/liamg/memoryfs"
	"go.lsp.dev/uri"
)

// SharedFS keeps the text of open documents in memory. Files that were
// never written are loaded from disk on first access.
type SharedFS struct {
	memfs *memoryfs.FS
}

func NewSharedFS() *SharedFS {
	return &SharedFS{
		memfs: memoryfs.New(),
	}
}

// PathKey turns a disk path into a key of the shared filesystem.
func PathKey(p string) string {
	key := path.Clean("/" + filepath.ToSlash(p))
	return strings.TrimPrefix(key, "/")
}

// URIKey turns a document URI into a key of the shared filesystem. File
// URIs map to the same key as their path; other schemes (untitled:, etc.)
// live under a directory named after the scheme.
func URIKey(u uri.URI) string {
	parsed, err := url.Parse(string(u))
	if err != nil || len(parsed.Scheme) == 0 {
		return PathKey(path.Join("unknown", url.PathEscape(string(u))))
	}
	if parsed.Scheme == uri.FileScheme {
		return PathKey(u.Filename())
	}

	rest := parsed.Opaque
	if len(rest) == 0 {
		rest = path.Join(parsed.Host, parsed.Path)
	}
	return PathKey(path.Join(parsed.Scheme, rest))
}

func diskPath(key string) string {
	if len(filepath.VolumeName(filepath.FromSlash(key))) != 0 {
		return filepath.FromSlash(key)
	}
	return filepath.FromSlash("/" + key)
}

func (sfs *SharedFS) Remove(name string) error {
	return sfs.memfs.Remove(name)
}

func (sfs *SharedFS) WriteFile(name string, content []byte) error {
	if dir := path.Dir(name); dir != "." {
		if err := sfs.memfs.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	return sfs.memfs.WriteFile(name, content, 0o700)
}

func (sfs *SharedFS) Open(name string) (fs.File, error) {
	file, err := sfs.memfs.Open(name)
	if err == nil {
		return file, nil
	}

	diskFile, err := os.Open(diskPath(name))
	if err != nil {
		return nil, err
	}
	defer diskFile.Close()

	content, err := io.ReadAll(diskFile)
	if err != nil {
		return nil, err
	}

	if err := sfs.WriteFile(name, content); err != nil {
		return nil, err
	}
	return sfs.memfs.Open(name)
}

func (sfs *SharedFS) ReadFile(name string) ([]byte, error) {
	file, err := sfs.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()
	return io.ReadAll(file)
}
