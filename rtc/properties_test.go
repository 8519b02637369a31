package rtc

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func TestProcessArguments(t *testing.T) {
	params, specials, rest := ProcessArguments([]string{
		"_max_vel:=0.3", "__name:=spur2", "foo:=bar", "--rate", "20",
	})
	if v, ok := params.Get("max_vel"); !ok || v != "0.3" {
		t.Errorf("max_vel = %q %v", v, ok)
	}
	if got := specials.GetOr("__name", ""); got != "spur2" {
		t.Errorf("__name = %q", got)
	}
	if len(rest) != 3 || rest[0] != "foo:=bar" || rest[1] != "--rate" {
		t.Errorf("rest = %v", rest)
	}
}

func TestParseJSON(t *testing.T) {
	p, err := ParseJSON([]byte(`{"max_vel": "0.3", "max_acc": 0.5, "debug": true, "note": null}`))
	if err != nil {
		t.Fatal(err)
	}
	for name, want := range map[string]string{"max_vel": "0.3", "max_acc": "0.5", "debug": "true"} {
		if got, _ := p.Get(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
	if _, ok := p.Get("note"); ok {
		t.Error("null value stored")
	}
}

func TestParseJSONNestedConf(t *testing.T) {
	p, err := ParseJSON([]byte(`{"conf": {"default": {"max_rot_vel": "1.0"}, "__widget__": {"max_rot_vel": "text"}}}`))
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := p.Get("max_rot_vel"); v != "1.0" {
		t.Errorf("max_rot_vel = %q", v)
	}
	if v, _ := p.Get("conf.__widget__.max_rot_vel"); v != "text" {
		t.Errorf("widget = %q", v)
	}
}

func TestParseJSONRejectsArrays(t *testing.T) {
	if _, err := ParseJSON([]byte(`{"max_vel": [1, 2]}`)); err == nil {
		t.Error("array value accepted")
	}
}

func TestLoadJSONFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "rtc")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "spur.json")
	if err := ioutil.WriteFile(path, []byte(`{"max_acc": "0.4"}`), 0644); err != nil {
		t.Fatal(err)
	}
	p, err := LoadJSONFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := p.Get("max_acc"); v != "0.4" {
		t.Errorf("max_acc = %q", v)
	}
	if _, err := LoadJSONFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("missing file accepted")
	}
}

func TestPropertiesMergeAndDefaults(t *testing.T) {
	p := PropertiesFrom(map[string]string{"a": "1"})
	p.SetDefault("a", "2")
	p.SetDefault("b", "3")
	p.Merge(PropertiesFrom(map[string]string{"b": "4"}))
	p.Merge(nil)
	if p.GetOr("a", "") != "1" || p.GetOr("b", "") != "4" || p.GetOr("c", "x") != "x" {
		t.Errorf("unexpected properties %v", p.Names())
	}
	if names := p.Names(); len(names) != 2 || names[0] != "a" {
		t.Errorf("names = %v", names)
	}
}

func TestPropertiesParse(t *testing.T) {
	p := PropertiesFrom(map[string]string{
		"f": " 0.52 ", "bad": "fast", "zero": "0", "one": "1", "yes": "true",
	})
	if f, err := p.Float64("f"); err != nil || f != 0.52 {
		t.Error(f, err)
	}
	if _, err := p.Float64("bad"); err == nil {
		t.Error("malformed float accepted")
	}
	if _, err := p.Float64("missing"); err == nil {
		t.Error("missing float accepted")
	}
	for name, want := range map[string]bool{"zero": false, "one": true, "yes": true} {
		if b, err := p.Bool(name); err != nil || b != want {
			t.Errorf("%s: %v %v", name, b, err)
		}
	}
	if _, err := p.Bool("bad"); err == nil {
		t.Error("malformed bool accepted")
	}
}
