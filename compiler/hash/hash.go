// Package hash computes deterministic content hashes of compiler inputs.
//
// A class hash covers the class itself, the hashes of its functions, the
// build environment and the hashes of every class it depends on, so a
// change anywhere below a class in the dependency graph changes the class
// hash. Incremental builds compare these hashes with the previous run.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/chazu/gd2c/project"
)

// Settings are the build options that affect generated code.
type Settings struct {
	Target        string
	SSA           bool
	StripDebug    bool
	MaxIterations int
	Passes        []string
	Disallow      []string
}

// Function computes the SHA-256 content hash of a function's inputs.
func Function(f *project.Function) [32]byte {
	return sha256.Sum256(SerializeFunction(f))
}

// Environment computes the hash mixed into every class of a build.
func Environment(p *project.Project, settings Settings) [32]byte {
	return sha256.Sum256(SerializeEnvironment(settings, p.GlobalConstants))
}

// Class computes the hash of c. The hashes of c's dependencies must
// already be in deps.
func Class(c *project.Class, env [32]byte, deps map[*project.Class][32]byte) [32]byte {
	fns := make([][32]byte, len(c.Functions))
	for i, f := range c.Functions {
		fns[i] = Function(f)
	}
	dh := make([][32]byte, len(c.Deps))
	for i, d := range c.Deps {
		h, ok := deps[d]
		if !ok {
			panic(fmt.Sprintf("hash: dependency %s of %s hashed out of order", d.Path, c.Path))
		}
		dh[i] = h
	}
	return sha256.Sum256(SerializeClass(c, env, fns, dh))
}

// Project hashes every class of p, dependencies first.
func Project(p *project.Project, settings Settings) map[*project.Class][32]byte {
	env := Environment(p, settings)
	out := make(map[*project.Class][32]byte, len(p.Classes))
	for _, c := range p.Classes {
		out[c] = Class(c, env, out)
	}
	return out
}

// Hex renders a hash for logs and cache keys.
func Hex(h [32]byte) string {
	return hex.EncodeToString(h[:])
}
