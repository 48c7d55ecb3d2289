package fixtures

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// fixturesDir returns the absolute path to the fixtures directory.
func fixturesDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Dir(file)
}

// ArtifactPath returns the absolute path of a fixture contract artifact.
func ArtifactPath(filename string) string {
	return filepath.Join(fixturesDir(), "artifacts", filename)
}

// LoadArtifact loads a fixture artifact JSON file and returns its raw bytes.
func LoadArtifact(t *testing.T, filename string) []byte {
	t.Helper()
	data, err := os.ReadFile(ArtifactPath(filename))
	require.NoError(t, err, "failed to load fixture artifact: %s", filename)
	return data
}
