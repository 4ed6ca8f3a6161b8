// Package cache persists what an incremental build needs to know about the
// previous run: the input hash of every emitted class and the content hash
// of every file written to the output directory.
//
// The cache is stored as canonical CBOR in FileName at the output root.
// A missing, unreadable or outdated cache is an empty cache: the build
// then emits everything.
package cache

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/fxamacker/cbor/v2"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("gd2c.cache")

// FileName is the cache file written next to the generated sources.
const FileName = ".gd2c-cache"

// Version changes whenever the encoding or the meaning of a hash does.
const Version = 1

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cache: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Class records one emitted class.
type Class struct {
	Hash  [32]byte `cbor:"1,keyasint"`
	Files []string `cbor:"2,keyasint"`
}

// Cache is the state of one output directory.
type Cache struct {
	Version int                 `cbor:"1,keyasint"`
	Target  string              `cbor:"2,keyasint"`
	Classes map[string]Class    `cbor:"3,keyasint"`
	Files   map[string][32]byte `cbor:"4,keyasint"`
}

// New returns an empty cache for target.
func New(target string) *Cache {
	return &Cache{
		Version: Version,
		Target:  target,
		Classes: make(map[string]Class),
		Files:   make(map[string][32]byte),
	}
}

// Marshal encodes c in canonical CBOR.
func Marshal(c *Cache) ([]byte, error) {
	return encMode.Marshal(c)
}

// Unmarshal decodes a cache.
func Unmarshal(data []byte) (*Cache, error) {
	var c Cache
	if err := cbor.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("cache: unmarshal: %w", err)
	}
	if c.Classes == nil {
		c.Classes = make(map[string]Class)
	}
	if c.Files == nil {
		c.Files = make(map[string][32]byte)
	}
	return &c, nil
}

// Load reads the cache of dir. Anything that cannot be used for target
// yields an empty cache; only I/O errors other than a missing file are
// returned.
func Load(dir, target string) (*Cache, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if errors.Is(err, os.ErrNotExist) {
		return New(target), nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	c, err := Unmarshal(data)
	if err != nil {
		log.Warningf("ignoring unreadable cache in %s: %s", dir, err)
		return New(target), nil
	}
	if c.Version != Version || c.Target != target {
		log.Infof("cache in %s is for %s v%d, starting clean", dir, c.Target, c.Version)
		return New(target), nil
	}
	return c, nil
}

// Save writes the cache to dir. The file is replaced atomically.
func (c *Cache) Save(dir string) error {
	data, err := Marshal(c)
	if err != nil {
		return fmt.Errorf("cache: marshal: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	tmp, err := os.CreateTemp(dir, FileName+".*")
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return os.Rename(tmp.Name(), filepath.Join(dir, FileName))
}

// Fresh reports whether the class at path was emitted from inputs hashing
// to h and every file it produced is still in place.
func (c *Cache) Fresh(path string, h [32]byte, exists func(name string) bool) bool {
	e, ok := c.Classes[path]
	if !ok || e.Hash != h {
		return false
	}
	for _, name := range e.Files {
		if _, ok := c.Files[name]; !ok || (exists != nil && !exists(name)) {
			return false
		}
	}
	return true
}

// Record stores the result of emitting the class at path.
func (c *Cache) Record(path string, h [32]byte, files []string) {
	files = append([]string(nil), files...)
	sort.Strings(files)
	c.Classes[path] = Class{Hash: h, Files: files}
}

// Retain drops the classes whose path is not in keep. Their files stay in
// the file table so a class that comes back is not rewritten needlessly.
func (c *Cache) Retain(keep map[string]bool) {
	for path := range c.Classes {
		if !keep[path] {
			log.Debugf("dropping %s from the cache", path)
			delete(c.Classes, path)
		}
	}
}

// Sum is the content hash stored for a file.
func Sum(data []byte) [32]byte {
	return sha256.Sum256(data)
}
