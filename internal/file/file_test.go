package file

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func TestSerializeRoundTrip(t *testing.T) {
	dir, err := ioutil.TempDir("", "file")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	type record struct {
		Name  string
		Count int
	}

	path := filepath.Join(dir, "record")
	in := record{Name: "chime", Count: 3}
	if err := Serialize(path, &in); err != nil {
		t.Fatal(err)
	}

	var out record
	if err := Unserialize(path, &out); err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Errorf("round trip changed the data: %+v != %+v", out, in)
	}
}

func TestAppendCreatesAndAppends(t *testing.T) {
	dir, err := ioutil.TempDir("", "file")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "log")
	if err := Append(path, []byte("one\n")); err != nil {
		t.Fatal(err)
	}
	if err := Append(path, []byte("two\n")); err != nil {
		t.Fatal(err)
	}

	b, err := ioutil.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "one\ntwo\n" {
		t.Errorf("got %q", string(b))
	}

	if !Exists(path) {
		t.Error("Exists should report the appended file")
	}
	if Exists(filepath.Join(dir, "missing")) {
		t.Error("Exists should not report a missing file")
	}
}
