package project

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/gd2c/compiler/cfg"
	"github.com/chazu/gd2c/pkg/bytecode"
)

func s(i int) int { return bytecode.Stack(i).Encode() }

type method map[string]any

func ret0() method {
	return method{
		"name":       "f",
		"stack_size": 1,
		"bytecode":   []int{int(bytecode.OpReturn), s(0)},
	}
}

func writeDump(t *testing.T, dir, rel string, dump map[string]any) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel)+DumpSuffix)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	data, err := json.Marshal(dump)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func preload(path string) map[string]any {
	return map[string]any{
		"index":       0,
		"name":        "Dep",
		"declaration": `Resource( "` + path + `" )`,
		"data":        []int{0, 0, 0, 0},
	}
}

func TestLoadOrdersByDependency(t *testing.T) {
	dir := t.TempDir()
	base := "res://base.gd"
	writeDump(t, dir, "player", map[string]any{
		"type":      "Node2D",
		"base_type": base,
		"constants": []any{preload("res://weapon.gd")},
		"methods":   []any{ret0()},
	})
	writeDump(t, dir, "base", map[string]any{
		"type": "Node2D",
		"global_constants": []any{
			map[string]any{"index": 1, "name": "Input", "source": "singleton"},
			map[string]any{"index": 0, "name": "PI", "source": "constant"},
		},
		"members": []any{map[string]any{"index": 0, "name": "speed", "type": int(bytecode.TypeReal)}},
	})
	writeDump(t, dir, "weapon", map[string]any{"type": "Node"})

	p, err := Load(dir)
	require.NoError(t, err)

	var order []string
	for _, c := range p.Classes {
		order = append(order, c.Path)
	}
	assert.Equal(t, []string{"res://base.gd", "res://weapon.gd", "res://player.gd"}, order)

	player, ok := p.Class("res://player.gd")
	require.True(t, ok)
	assert.Equal(t, "Player", player.Name)
	require.NotNil(t, player.Base)
	assert.Equal(t, "Base", player.Base.Name)
	assert.Len(t, player.Deps, 2)
	assert.Equal(t, 1, player.MemberCount(), "members are inherited")

	f, ok := player.FindMethod("f")
	require.True(t, ok)
	assert.Equal(t, "Player.f", f.QualifiedName())
	require.Len(t, f.Ops, 1)
	assert.Equal(t, bytecode.OpReturn, f.Ops[0].Opcode())

	name, ok := p.Global(0)
	require.True(t, ok)
	assert.Equal(t, "PI", name)
}

func TestLoadCycle(t *testing.T) {
	dir := t.TempDir()
	writeDump(t, dir, "a", map[string]any{"base_type": "res://b.gd"})
	writeDump(t, dir, "b", map[string]any{"constants": []any{preload("res://a.gd")}})

	_, err := Load(dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCycle))
	assert.Contains(t, err.Error(), "res://a.gd")
	assert.Contains(t, err.Error(), "res://b.gd")
}

func TestLoadIgnoresReferencesOutsideProject(t *testing.T) {
	dir := t.TempDir()
	writeDump(t, dir, "a", map[string]any{
		"base_type": "res://addons/missing.gd",
		"constants": []any{preload("res://icon.png")},
	})
	p, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, p.Classes, 1)
	assert.Nil(t, p.Classes[0].Base)
	assert.Empty(t, p.Classes[0].Deps)
}

func TestLoadAggregatesErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken"+DumpSuffix), []byte("{"), 0o644))
	writeDump(t, dir, "badop", map[string]any{
		"methods": []any{method{"name": "f", "stack_size": 1, "bytecode": []int{99}}},
	})
	writeDump(t, dir, "fine", map[string]any{})

	_, err := Load(dir)
	require.Error(t, err)
	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.Len(t, merr.Errors, 2)
	assert.True(t, errors.Is(err, ErrMalformed) || errors.Is(err, bytecode.ErrMalformed))
}

func TestLoadRejectsOutOfRangeSlots(t *testing.T) {
	dir := t.TempDir()
	writeDump(t, dir, "a", map[string]any{
		"methods": []any{method{"name": "f", "stack_size": 1, "bytecode": []int{int(bytecode.OpReturn), s(4)}}},
	})
	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "beyond stack size")
}

func TestDuplicateFunction(t *testing.T) {
	f1, err := NewFunction("f", nil, 0, []int{int(bytecode.OpEnd)}, nil)
	require.NoError(t, err)
	f2, err := NewFunction("f", nil, 0, []int{int(bytecode.OpEnd)}, nil)
	require.NoError(t, err)

	_, err = NewClass("A", "res://a.gd", f1, f2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate function "f"`)
}

func TestNameCollisions(t *testing.T) {
	a := &Class{Path: "res://enemies/player.gd"}
	b := &Class{Path: "res://player.gd"}
	c := &Class{Path: "res://2d/node.gd"}
	_, err := New("game", a, b, c)
	require.NoError(t, err)

	assert.Equal(t, "EnemiesPlayer", a.Name)
	assert.Equal(t, "Player", b.Name)
	assert.Equal(t, "NodeScript", c.Name, "engine class names are suffixed")
}

func TestDuplicateClassPath(t *testing.T) {
	_, err := New("game", &Class{Path: "res://a.gd"}, &Class{Path: "res://a.gd"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "duplicate class"))
}

func TestPhaseAdvance(t *testing.T) {
	f, err := NewFunction("f", nil, 0, []int{int(bytecode.OpEnd)}, nil)
	require.NoError(t, err)
	assert.Equal(t, Unanalyzed, f.Phase())

	assert.Panics(t, func() { f.Advance(Transformed) }, "phases cannot be skipped")
	f.Advance(Analyzed)
	assert.Panics(t, func() { f.Advance(Analyzed) }, "phases cannot repeat")
	assert.Equal(t, Analyzed, f.Phase())
}

func TestFunctionCFGOwnership(t *testing.T) {
	f, err := NewFunction("f", nil, 0, []int{int(bytecode.OpEnd)}, nil)
	require.NoError(t, err)

	assert.False(t, f.HasCFG())
	assert.Panics(t, func() { f.CFG() })
	assert.Panics(t, func() { f.SetCFG(nil) })

	g, err := cfg.Build(f.Ops, f.StackSize)
	require.NoError(t, err)
	f.SetCFG(g)
	assert.Same(t, g, f.CFG())

	f.DiscardCFG()
	assert.False(t, f.HasCFG())
}

func TestParamAssigned(t *testing.T) {
	f := &Function{AssignedParams: []int{0, 2}}
	assert.True(t, f.IsParamAssigned(2))
	assert.False(t, f.IsParamAssigned(1))
}
