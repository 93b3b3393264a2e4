package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_main(t *testing.T) {
	var file = filepath.Join(t.TempDir(), "bursts.txt")

	os.Args = []string{"husky-genburst", "-o", file, "-n", "2", "-F", "136725000",
		"0442c24c504cca8d20ffff0132aed3d0ad4c57c115c831b502cdb031c14c4fb03132b3c8454c4c4f833c5e7f",
	}

	main()

	var data, err = os.ReadFile(file)
	require.NoError(t, err)

	var lines = strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, lines[0], lines[1])
	assert.True(t, strings.HasPrefix(lines[0], "136725000 -10.0 -40.0 "), lines[0])
}
