package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/gd2c/compiler/cfg"
	"github.com/chazu/gd2c/compiler/internal/cfgtest"
	"github.com/chazu/gd2c/pkg/bytecode"
	"github.com/chazu/gd2c/project"
)

var self = bytecode.Self().Encode()

func fn(t *testing.T, name string, argc int, code []int, names ...string) *project.Function {
	t.Helper()
	params := make([]project.Parameter, argc)
	for i := range params {
		params[i].Name = string(rune('a' + i))
	}
	f, err := project.NewFunction(name, params, 4, code, nil)
	require.NoError(t, err)
	f.GlobalNames = names
	g, err := cfg.Build(f.Ops, f.StackSize)
	require.NoError(t, err)
	f.SetCFG(g)
	return f
}

// callSelf returns a function that calls self.<callee>() and returns.
func callSelf(t *testing.T, name, callee string) *project.Function {
	return fn(t, name, 0, []int{
		int(bytecode.OpCallReturn), 0, self, 0, cfgtest.S(0),
		int(bytecode.OpReturn), cfgtest.S(0),
	}, callee)
}

func yielder(t *testing.T, name string) *project.Function {
	return fn(t, name, 0, []int{
		int(bytecode.OpYield),
		int(bytecode.OpYieldResume), cfgtest.S(0),
		int(bytecode.OpEnd),
	})
}

func newProject(t *testing.T, classes ...*project.Class) *project.Project {
	t.Helper()
	p, err := project.New("test", classes...)
	require.NoError(t, err)
	return p
}

func TestCoroutinesTransitive(t *testing.T) {
	gen := yielder(t, "gen")
	wrap := callSelf(t, "wrap", "gen")
	outer := callSelf(t, "outer", "wrap")
	plain := fn(t, "plain", 0, []int{int(bytecode.OpEnd)})
	c, err := project.NewClass("A", "res://a.gd", outer, plain, wrap, gen)
	require.NoError(t, err)
	p := newProject(t, c)

	for i := 0; i < 2; i++ {
		Coroutines(p)

		assert.True(t, gen.Yields)
		assert.Equal(t, []int{0}, gen.YieldSites)
		assert.Empty(t, gen.AwaitSites)

		assert.True(t, wrap.Yields)
		assert.Empty(t, wrap.YieldSites)
		assert.Equal(t, []int{0}, wrap.AwaitSites)

		assert.True(t, outer.Yields, "yielding is transitive")
		assert.False(t, plain.Yields)
	}
}

func TestCoroutinesRecursion(t *testing.T) {
	ping := callSelf(t, "ping", "pong")
	pong := fn(t, "pong", 0, []int{
		int(bytecode.OpCallReturn), 0, self, 0, cfgtest.S(0),
		int(bytecode.OpYieldSignal), cfgtest.S(0), cfgtest.S(0),
		int(bytecode.OpEnd),
	}, "ping")
	loop := callSelf(t, "loop", "loop")
	c, err := project.NewClass("A", "res://a.gd", ping, pong, loop)
	require.NoError(t, err)
	p := newProject(t, c)

	Coroutines(p)
	assert.True(t, ping.Yields)
	assert.True(t, pong.Yields)
	assert.Equal(t, []int{5}, pong.YieldSites)
	assert.Equal(t, []int{0}, pong.AwaitSites, "call into ping is awaited")
	assert.False(t, loop.Yields, "recursion alone does not yield")
}

func TestCoroutinesBaseClass(t *testing.T) {
	gen := yielder(t, "gen")
	base, err := project.NewClass("Base", "res://base.gd", gen)
	require.NoError(t, err)

	super := fn(t, "super_gen", 0, []int{
		int(bytecode.OpCallSelfBase), 0, 0, cfgtest.S(0),
		int(bytecode.OpReturn), cfgtest.S(0),
	}, "gen")
	inherited := callSelf(t, "inherited", "gen")
	other := fn(t, "other", 0, []int{
		int(bytecode.OpCallReturn), 0, cfgtest.S(1), 0, cfgtest.S(0),
		int(bytecode.OpReturn), cfgtest.S(0),
	}, "gen")
	child, err := project.NewClass("Child", "res://child.gd", super, inherited, other)
	require.NoError(t, err)
	child.BasePath = base.Path
	p := newProject(t, child, base)
	require.Same(t, base, child.Base)

	Coroutines(p)
	assert.True(t, super.Yields, "super call resolves in the base class")
	assert.True(t, inherited.Yields, "self call resolves through the base chain")
	assert.False(t, other.Yields, "calls on other receivers are not resolved")
}

func TestCoroutinesIgnoresUnreachableYield(t *testing.T) {
	f := fn(t, "f", 0, []int{
		int(bytecode.OpReturn), cfgtest.S(0),
		int(bytecode.OpYield),
		int(bytecode.OpEnd),
	})
	c, err := project.NewClass("A", "res://a.gd", f)
	require.NoError(t, err)
	Coroutines(newProject(t, c))
	assert.False(t, f.Yields)
	assert.Empty(t, f.YieldSites)
}

func TestAssignedParams(t *testing.T) {
	f := fn(t, "f", 3, []int{
		int(bytecode.OpOperator), int(bytecode.OpAdd), cfgtest.S(2), cfgtest.S(0), cfgtest.S(2),
		int(bytecode.OpAssign), cfgtest.S(3), cfgtest.S(1),
		int(bytecode.OpReturn), cfgtest.S(3),
	})
	AssignedParams(f)
	assert.Equal(t, []int{2}, f.AssignedParams)
	assert.True(t, f.IsParamAssigned(2))
	assert.False(t, f.IsParamAssigned(0))

	AssignedParams(f)
	assert.Equal(t, []int{2}, f.AssignedParams)
}

func TestLoops(t *testing.T) {
	f := fn(t, "f", 1, []int{
		int(bytecode.OpAssign), cfgtest.S(1), cfgtest.S(0),
		int(bytecode.OpOperator), int(bytecode.OpLess), cfgtest.S(1), cfgtest.S(0), cfgtest.S(2),
		int(bytecode.OpJumpIfNot), cfgtest.S(2), 18,
		int(bytecode.OpOperator), int(bytecode.OpAdd), cfgtest.S(1), cfgtest.S(0), cfgtest.S(1),
		int(bytecode.OpJump), 3,
		int(bytecode.OpReturn), cfgtest.S(1),
	})
	Loops(f)
	require.Len(t, f.Loops, 1)
	assert.Equal(t, 1, f.Loops[0].Header)
	assert.Equal(t, []int{1, 2}, f.Loops[0].Body)
}

func TestAnnotate(t *testing.T) {
	gen := yielder(t, "gen")
	c, err := project.NewClass("A", "res://a.gd", gen)
	require.NoError(t, err)
	p := newProject(t, c)
	Annotate(p)
	assert.True(t, gen.Yields)
	assert.Empty(t, gen.Loops)
	assert.Empty(t, gen.AssignedParams)
}
