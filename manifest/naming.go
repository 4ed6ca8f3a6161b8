package manifest

import (
	"go/token"
	"strings"
	"unicode"
)

// ToPascalCase converts a script file stem to PascalCase.
// "player" -> "Player", "enemy_spawner" -> "EnemySpawner",
// "ui/main-menu" -> "UiMainMenu"
func ToPascalCase(s string) string {
	var words []string
	current := ""
	for i, r := range s {
		if r == '-' || r == '_' || r == '/' || r == '.' || r == ' ' {
			if current != "" {
				words = append(words, current)
				current = ""
			}
			continue
		}
		if i > 0 && r >= 'A' && r <= 'Z' {
			prev := rune(s[i-1])
			if prev >= 'a' && prev <= 'z' {
				words = append(words, current)
				current = ""
			}
		}
		current += string(r)
	}
	if current != "" {
		words = append(words, current)
	}

	var result string
	for _, w := range words {
		if w == "" {
			continue
		}
		result += strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return result
}

// reservedNames lists Godot core class names that generated class symbols
// must not shadow.
var reservedNames = map[string]bool{
	"Object":       true,
	"Reference":    true,
	"Resource":     true,
	"Node":         true,
	"Node2D":       true,
	"Spatial":      true,
	"Control":      true,
	"Script":       true,
	"GDScript":     true,
	"NativeScript": true,
	"Array":        true,
	"Dictionary":   true,
	"String":       true,
	"Variant":      true,
	"Vector2":      true,
	"Vector3":      true,
	"Color":        true,
	"Engine":       true,
	"OS":           true,
	"Input":        true,
	"Runtime":      true,
	"Coroutine":    true,
}

// IsReservedName reports whether name is a core class name.
func IsReservedName(name string) bool {
	return reservedNames[name]
}

// ClassSymbol turns a resource stem into an identifier usable as a class
// symbol in generated code. Reserved names get a Script suffix and names
// starting with a digit an underscore prefix.
func ClassSymbol(stem string) string {
	name := ToPascalCase(stem)
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	name = b.String()
	if name == "" {
		return "Script"
	}
	if unicode.IsDigit(rune(name[0])) {
		name = "_" + name
	}
	if IsReservedName(name) {
		name += "Script"
	}
	return name
}

// PackageName turns a project name into a Go package name: lower case
// letters and digits only, never starting with a digit and never a
// keyword. An empty result means the generator's default.
// "My Game" -> "mygame", "2d-demo" -> "p2ddemo"
func PackageName(project string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(project) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	name := b.String()
	if name == "" {
		return ""
	}
	if unicode.IsDigit(rune(name[0])) || token.IsKeyword(name) {
		name = "p" + name
	}
	return name
}
