package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tbdelay/platform/pkg/records"
)

func TestGenerateCommand(t *testing.T) {
	output := filepath.Join(t.TempDir(), "out.csv")
	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{"--rows", "25", "--output", output, "--seed", "7"})

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "Generated 25 rows → saved to "+output+"\n", stdout.String())

	frame, err := records.ReadFrameFile(output)
	require.NoError(t, err)
	assert.Equal(t, 25, frame.Len())
	assert.Equal(t, records.Columns, frame.Header)

	content, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "patient_id,age,sex,"))
}
