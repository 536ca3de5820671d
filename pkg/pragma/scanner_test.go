package pragma

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanReader(t *testing.T) {
	source := `
#include <windows.h>
#pragma comment(lib, "ws2_32.lib")
#pragma comment( lib , "crypt32.lib" )
#pragma comment(lib, "ws2_32.lib")
// #pragma comment(lib, "commented_out.lib")
#pragma once
#pragma comment(linker, "/SUBSYSTEM:WINDOWS")
`
	info, err := ScanReader(strings.NewReader(source))
	require.NoError(t, err)

	assert.Equal(t, []string{"ws2_32.lib", "crypt32.lib"}, info.Libraries)
}

func TestScanReaderNoDirectives(t *testing.T) {
	info, err := ScanReader(strings.NewReader("int main() { return 0; }\n"))
	require.NoError(t, err)
	assert.Empty(t, info.Libraries)
}
