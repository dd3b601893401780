package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestWeeksCommand(t *testing.T) {
	out, err := runCmd(t, "weeks", "2024-02")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 6)
	assert.Contains(t, lines[1], "2024-01-28")
	assert.Contains(t, lines[1], "28/01-03/02")
	assert.Contains(t, lines[5], "Semana 5")
}

func TestWeeksCommandDefaultsToCurrentMonth(t *testing.T) {
	saved := now
	now = func() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.Local) }
	defer func() { now = saved }()

	out, err := runCmd(t, "weeks")
	require.NoError(t, err)
	assert.Contains(t, out, "2024-02-25")
	assert.Contains(t, out, "2024-03-31")
}

func TestWeeksCommandRejectsBadMonth(t *testing.T) {
	_, err := runCmd(t, "weeks", "2024-13")
	assert.Error(t, err)
}

func TestPromptPassword(t *testing.T) {
	saved := readPassword
	defer func() { readPassword = saved }()

	answers := []string{"hermanos2024", "hermanos2024"}
	readPassword = func(string) (string, error) {
		a := answers[0]
		answers = answers[1:]
		return a, nil
	}
	got, err := promptPassword()
	require.NoError(t, err)
	assert.Equal(t, "hermanos2024", got)

	answers = []string{"hermanos2024", "otra-cosa"}
	_, err = promptPassword()
	assert.Error(t, err)
}

func TestReadLine(t *testing.T) {
	got, err := readLine(strings.NewReader("secreto\r\nrest"))
	require.NoError(t, err)
	assert.Equal(t, "secreto", got)

	got, err = readLine(strings.NewReader("sin-salto"))
	require.NoError(t, err)
	assert.Equal(t, "sin-salto", got)
}
