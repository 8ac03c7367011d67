// Command keygen prints a master key for the file service as 64 hex
// characters. By default the key is random; with -passphrase it is derived
// from a passphrase read without echo, using argon2id and -salt.
package main

import (
	"bufio"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/smartids/internal/common"
	"github.com/dmitrijs2005/smartids/internal/cryptox"
	"golang.org/x/term"
)

const minSaltLen = 16

// passwordReader reads a passphrase; swapped in tests.
type passwordReader func(in *os.File, fallback io.Reader) ([]byte, error)

func readPassphrase(in *os.File, fallback io.Reader) ([]byte, error) {
	if in != nil && term.IsTerminal(int(in.Fd())) {
		return term.ReadPassword(int(in.Fd()))
	}
	line, err := bufio.NewReader(fallback).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return []byte(strings.TrimRight(line, "\r\n")), nil
}

func run(args []string, stdin *os.File, stdinReader io.Reader, stdout, stderr io.Writer, read passwordReader) error {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	usePassphrase := fs.Bool("passphrase", false, "derive the key from a passphrase read from the terminal")
	salt := fs.String("salt", "", "salt for passphrase derivation (at least 16 characters)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if !*usePassphrase {
		key := common.GenerateRandByteArray(cryptox.MasterKeySize)
		defer common.WipeByteArray(key)
		_, err := fmt.Fprintln(stdout, hex.EncodeToString(key))
		return err
	}

	if len(*salt) < minSaltLen {
		return fmt.Errorf("-salt must be at least %d characters", minSaltLen)
	}

	fmt.Fprint(stderr, "Passphrase: ")
	pass, err := read(stdin, stdinReader)
	fmt.Fprintln(stderr)
	if err != nil {
		return fmt.Errorf("read passphrase: %w", err)
	}
	defer common.WipeByteArray(pass)
	if len(pass) == 0 {
		return errors.New("empty passphrase")
	}

	key := cryptox.DeriveMasterKey(pass, []byte(*salt))
	defer common.WipeByteArray(key)
	_, err = fmt.Fprintln(stdout, hex.EncodeToString(key))
	return err
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdin, os.Stdout, os.Stderr, readPassphrase); err != nil {
		fmt.Fprintln(os.Stderr, "keygen:", err)
		os.Exit(1)
	}
}
