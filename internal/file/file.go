package file

import (
	"encoding/gob"
	"io/ioutil"
	"os"
	"path/filepath"
)

// Serialize gob-encodes data into a temp file and atomically renames it
// over path.
func Serialize(path string, data interface{}) error {
	tf, err := ioutil.TempFile("", filepath.Base(path))
	if err != nil {
		return err
	}

	e := gob.NewEncoder(tf)
	err = e.Encode(data)
	if err != nil {
		_ = tf.Close()
		return err
	}

	err = tf.Sync()
	if err != nil {
		_ = tf.Close()
		return err
	}
	_ = tf.Close()

	err = os.Rename(tf.Name(), path)
	if err != nil {
		return err
	}

	return nil
}

func Unserialize(path string, data interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	d := gob.NewDecoder(f)
	err = d.Decode(data)
	if err != nil {
		return err
	}

	return nil
}

// Append appends data to the file at path, creating it if needed.
func Append(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(data)
	return err
}

func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
