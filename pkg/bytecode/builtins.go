package bytecode

import "fmt"

// builtinNames lists GDScript builtin functions in call-table order, as
// indexed by CALL_BUILT_IN.
var builtinNames = []string{
	"sin", "cos", "tan", "sinh", "cosh", "tanh", "asin", "acos", "atan",
	"atan2", "sqrt", "fmod", "fposmod", "posmod", "floor", "ceil", "round",
	"abs", "sign", "pow", "log", "exp", "is_nan", "is_inf",
	"is_equal_approx", "is_zero_approx", "ease", "decimals",
	"step_decimals", "stepify", "lerp", "lerp_angle", "inverse_lerp",
	"range_lerp", "smoothstep", "move_toward", "dectime", "randomize",
	"randi", "randf", "rand_range", "seed", "rand_seed", "deg2rad",
	"rad2deg", "linear2db", "db2linear", "polar2cartesian",
	"cartesian2polar", "wrapi", "wrapf", "max", "min", "clamp",
	"nearest_po2", "weakref", "funcref", "convert", "typeof", "type_exists",
	"char", "ord", "str", "print", "printt", "prints", "printerr",
	"printraw", "print_debug", "push_error", "push_warning", "var2str",
	"str2var", "var2bytes", "bytes2var", "range", "load", "inst2dict",
	"dict2inst", "validate_json", "parse_json", "to_json", "hash", "Color8",
	"ColorN", "print_stack", "get_stack", "instance_from_id", "len",
	"is_instance_valid", "deep_equal",
}

var builtinIndex = func() map[string]int {
	m := make(map[string]int, len(builtinNames))
	for i, n := range builtinNames {
		m[n] = i
	}
	return m
}()

// Builtins returns the number of builtin functions.
func Builtins() int {
	return len(builtinNames)
}

// BuiltinName returns the name of builtin function index i.
func BuiltinName(i int) string {
	if i >= 0 && i < len(builtinNames) {
		return builtinNames[i]
	}
	return fmt.Sprintf("builtin_%d", i)
}

// BuiltinIndex returns the call-table index of the named builtin.
func BuiltinIndex(name string) (int, bool) {
	i, ok := builtinIndex[name]
	return i, ok
}

// Frequently referenced builtins.
var (
	BuiltinConvert = builtinIndex["convert"]
	BuiltinLoad    = builtinIndex["load"]
)
