package fixtures

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// Load reads a fixture file from this directory, failing the test on any
// error.
func Load(t *testing.T, name string) []byte {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("unable to locate fixtures directory")
	}

	data, err := os.ReadFile(filepath.Join(filepath.Dir(thisFile), name))
	if err != nil {
		t.Fatalf("load fixture %s: %v", name, err)
	}

	return data
}
