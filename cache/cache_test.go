package cache

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/chazu/gd2c/target/emit"
)

func TestMarshalIsCanonical(t *testing.T) {
	a := New("gdnative")
	a.Files["a.c"] = Sum([]byte("a"))
	a.Files["b.c"] = Sum([]byte("b"))
	a.Record("res://a.gd", Sum([]byte("class a")), []string{"a.c"})

	b := New("gdnative")
	b.Record("res://a.gd", Sum([]byte("class a")), []string{"a.c"})
	b.Files["b.c"] = Sum([]byte("b"))
	b.Files["a.c"] = Sum([]byte("a"))

	da, err := Marshal(a)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	db, err := Marshal(b)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Equal(da, db) {
		t.Error("equal caches encoded differently")
	}

	back, err := Unmarshal(da)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(back, a) {
		t.Errorf("round trip: got %+v, want %+v", back, a)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	c := New("go")
	c.Record("res://player.gd", Sum([]byte("player")), []string{"Player.gd.go"})
	c.Files["Player.gd.go"] = Sum([]byte("package scripts"))
	if err := c.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(dir, "go")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, c) {
		t.Errorf("Load: got %+v, want %+v", got, c)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || entries[0].Name() != FileName {
		t.Errorf("Save left %v in the directory", entries)
	}
}

func TestLoadStartsClean(t *testing.T) {
	dir := t.TempDir()

	c, err := Load(dir, "go")
	if err != nil {
		t.Fatalf("missing cache: %v", err)
	}
	if len(c.Classes) != 0 || c.Target != "go" {
		t.Errorf("missing cache: got %+v", c)
	}

	old := New("gdnative")
	old.Record("res://a.gd", Sum(nil), nil)
	if err := old.Save(dir); err != nil {
		t.Fatal(err)
	}
	c, err = Load(dir, "go")
	if err != nil {
		t.Fatalf("other target: %v", err)
	}
	if len(c.Classes) != 0 {
		t.Errorf("cache of another target was reused: %+v", c.Classes)
	}

	if err := os.WriteFile(filepath.Join(dir, FileName), []byte{0xff, 0x00}, 0o644); err != nil {
		t.Fatal(err)
	}
	c, err = Load(dir, "go")
	if err != nil {
		t.Fatalf("corrupt cache: %v", err)
	}
	if len(c.Classes) != 0 {
		t.Errorf("corrupt cache: got %+v", c.Classes)
	}
}

func TestFresh(t *testing.T) {
	h := Sum([]byte("inputs"))
	c := New("gdnative")
	c.Record("res://a.gd", h, []string{"a.c"})
	present := map[string]bool{"a.c": true}
	exists := func(name string) bool { return present[name] }

	if c.Fresh("res://a.gd", h, exists) {
		t.Error("fresh without a recorded file hash")
	}
	c.Files["a.c"] = Sum([]byte("int x;"))
	if !c.Fresh("res://a.gd", h, exists) {
		t.Error("not fresh with matching hash and files")
	}
	if c.Fresh("res://a.gd", Sum([]byte("changed")), exists) {
		t.Error("fresh after the inputs changed")
	}
	if c.Fresh("res://b.gd", h, exists) {
		t.Error("unknown class is fresh")
	}
	delete(present, "a.c")
	if c.Fresh("res://a.gd", h, exists) {
		t.Error("fresh after its output was deleted")
	}
}

func TestRetain(t *testing.T) {
	c := New("gdnative")
	c.Record("res://a.gd", Sum(nil), []string{"a.c"})
	c.Record("res://b.gd", Sum(nil), []string{"b.c"})
	c.Files["b.c"] = Sum(nil)

	c.Retain(map[string]bool{"res://a.gd": true})
	if _, ok := c.Classes["res://b.gd"]; ok {
		t.Error("removed class kept")
	}
	if _, ok := c.Classes["res://a.gd"]; !ok {
		t.Error("kept class removed")
	}
	if _, ok := c.Files["b.c"]; !ok {
		t.Error("file hash of a removed class dropped")
	}
}

func TestOutputSkipsUnchangedFiles(t *testing.T) {
	dir := t.TempDir()
	c := New("gdnative")
	out := c.Filter(emit.NewDirOutput(dir))

	if err := out.WriteFile("a.c", []byte("one")); err != nil {
		t.Fatal(err)
	}
	if err := out.WriteFile("a.c", []byte("one")); err != nil {
		t.Fatal(err)
	}
	if err := out.WriteFile("a.c", []byte("two")); err != nil {
		t.Fatal(err)
	}
	if want := []string{"a.c", "a.c"}; !reflect.DeepEqual(out.Written, want) {
		t.Errorf("Written = %v, want %v", out.Written, want)
	}
	if want := []string{"a.c"}; !reflect.DeepEqual(out.Skipped, want) {
		t.Errorf("Skipped = %v, want %v", out.Skipped, want)
	}

	// A deleted file is written again even when its hash is known.
	if err := os.Remove(filepath.Join(dir, "a.c")); err != nil {
		t.Fatal(err)
	}
	if err := out.WriteFile("a.c", []byte("two")); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "a.c"))
	if err != nil || string(data) != "two" {
		t.Errorf("a.c = %q, %v", data, err)
	}
}

func TestOutputCapture(t *testing.T) {
	c := New("go")
	c.Files["kept.go"] = Sum([]byte("same"))
	mem := emit.NewMemOutput()
	out := c.Filter(mem)

	files, err := out.Capture(func() error {
		if err := out.WriteFile("kept.go", []byte("same")); err != nil {
			return err
		}
		return out.WriteFile("new.go", []byte("new"))
	})
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"kept.go", "new.go"}; !reflect.DeepEqual(files, want) {
		t.Errorf("Capture = %v, want %v", files, want)
	}
	if want := []string{"new.go"}; !reflect.DeepEqual(mem.Order, want) {
		t.Errorf("underlying writes = %v, want %v", mem.Order, want)
	}

	if err := out.WriteFile("later.go", nil); err != nil {
		t.Fatal(err)
	}
	files, _ = out.Capture(func() error { return nil })
	if len(files) != 0 {
		t.Errorf("Capture recorded writes outside its callback: %v", files)
	}
}
