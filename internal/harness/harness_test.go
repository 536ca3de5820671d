package harness

import (
	"path/filepath"
	"testing"
)

func TestFixtures(t *testing.T) {
	for _, dir := range Discover(t, filepath.Join("..", "..", "testdata")) {
		t.Run(filepath.Base(dir), func(t *testing.T) {
			tc := LoadTestCase(t, dir)
			t.Logf("running with %s", Describe(tc))
			Run(t, tc)
		})
	}
}
