package cache

import (
	"github.com/chazu/gd2c/target/emit"
)

// Output passes files through to an underlying output unless the same
// content was written there by a previous build.
type Output struct {
	cache *Cache
	next  emit.Output

	// Written and Skipped list file names in write order.
	Written []string
	Skipped []string

	recording bool
	recorded  []string
}

// existence is implemented by outputs that can tell whether a file is
// still present, such as emit.DirOutput.
type existence interface {
	Exists(name string) bool
}

// Filter wraps next so unchanged files are not rewritten.
func (c *Cache) Filter(next emit.Output) *Output {
	return &Output{cache: c, next: next}
}

// Exists reports whether the underlying output still holds name. Outputs
// that cannot tell are assumed to.
func (o *Output) Exists(name string) bool {
	if e, ok := o.next.(existence); ok {
		return e.Exists(name)
	}
	return true
}

func (o *Output) WriteFile(name string, data []byte) error {
	if o.recording {
		o.recorded = append(o.recorded, name)
	}
	sum := Sum(data)
	if prev, ok := o.cache.Files[name]; ok && prev == sum && o.Exists(name) {
		o.Skipped = append(o.Skipped, name)
		return nil
	}
	if err := o.next.WriteFile(name, data); err != nil {
		return err
	}
	o.cache.Files[name] = sum
	o.Written = append(o.Written, name)
	return nil
}

// Capture returns the names of the files written by fn, whether or not
// they reached the underlying output.
func (o *Output) Capture(fn func() error) ([]string, error) {
	o.recording, o.recorded = true, nil
	defer func() { o.recording = false }()
	err := fn()
	return o.recorded, err
}
