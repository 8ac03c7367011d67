package main

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/dmitrijs2005/smartids/internal/cryptox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedPassphrase(p string) passwordReader {
	return func(*os.File, io.Reader) ([]byte, error) { return []byte(p), nil }
}

func TestRun_RandomKey(t *testing.T) {
	var out, errOut bytes.Buffer
	require.NoError(t, run(nil, nil, nil, &out, &errOut, fixedPassphrase("")))

	key := strings.TrimSpace(out.String())
	_, err := cryptox.ParseMasterKey(key)
	assert.NoError(t, err)
}

func TestRun_PassphraseIsDeterministic(t *testing.T) {
	args := []string{"-passphrase", "-salt", "0123456789abcdef"}

	var a, b bytes.Buffer
	require.NoError(t, run(args, nil, nil, &a, io.Discard, fixedPassphrase("correct horse")))
	require.NoError(t, run(args, nil, nil, &b, io.Discard, fixedPassphrase("correct horse")))
	assert.Equal(t, a.String(), b.String())

	_, err := cryptox.ParseMasterKey(strings.TrimSpace(a.String()))
	assert.NoError(t, err)
}

func TestRun_PassphraseErrors(t *testing.T) {
	err := run([]string{"-passphrase", "-salt", "short"}, nil, nil, io.Discard, io.Discard, fixedPassphrase("x"))
	assert.ErrorContains(t, err, "-salt")

	err = run([]string{"-passphrase", "-salt", "0123456789abcdef"}, nil, nil, io.Discard, io.Discard, fixedPassphrase(""))
	assert.ErrorContains(t, err, "empty passphrase")
}

func TestReadPassphrase_FallbackReader(t *testing.T) {
	got, err := readPassphrase(nil, strings.NewReader("secret\r\nignored"))
	require.NoError(t, err)
	assert.Equal(t, []byte("secret"), got)
}
