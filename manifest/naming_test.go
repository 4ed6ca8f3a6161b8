package manifest

import "testing"

func TestToPascalCase(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"player", "Player"},
		{"enemy-spawner", "EnemySpawner"},
		{"enemy_spawner", "EnemySpawner"},
		{"myScript", "MyScript"},
		{"UPPER", "Upper"},
		{"a", "A"},
		{"", ""},
		{"ui/main_menu", "UiMainMenu"},
		{"_leading", "Leading"},
	}

	for _, tc := range tests {
		got := ToPascalCase(tc.input)
		if got != tc.want {
			t.Errorf("ToPascalCase(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestClassSymbol(t *testing.T) {
	tests := []struct {
		stem string
		want string
	}{
		{"player", "Player"},
		{"node", "NodeScript"},
		{"2d_tools", "_2dTools"},
		{"level (copy)", "Levelcopy"},
		{"---", "Script"},
	}

	for _, tc := range tests {
		got := ClassSymbol(tc.stem)
		if got != tc.want {
			t.Errorf("ClassSymbol(%q) = %q, want %q", tc.stem, got, tc.want)
		}
	}
}

func TestIsReservedName(t *testing.T) {
	for _, name := range []string{"Object", "Node", "Array", "Variant"} {
		if !IsReservedName(name) {
			t.Errorf("%s should be reserved", name)
		}
	}
	if IsReservedName("Player") {
		t.Error("Player should not be reserved")
	}
}

func TestPackageName(t *testing.T) {
	tests := []struct {
		project string
		want    string
	}{
		{"demo", "demo"},
		{"My Game", "mygame"},
		{"2d-demo", "p2ddemo"},
		{"Über", "ber"},
		{"func", "pfunc"},
		{"", ""},
		{"!!!", ""},
	}

	for _, tc := range tests {
		got := PackageName(tc.project)
		if got != tc.want {
			t.Errorf("PackageName(%q) = %q, want %q", tc.project, got, tc.want)
		}
	}
}
