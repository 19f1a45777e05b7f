package input

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Terminal is a terminal used for input. If `nil`, stdin is used.
var Terminal *term.Terminal

// ReadLine reads a line from the input without trailing '\n'.
func ReadLine(prompt string) (string, error) {
	trm := Terminal
	if trm == nil {
		s, err := term.MakeRaw(int(os.Stdin.Fd()))
		if err != nil {
			return readLine(os.Stdout, os.Stdin, prompt)
		}
		defer func() { _ = term.Restore(int(os.Stdin.Fd()), s) }()
		trm = term.NewTerminal(ReadWriter{
			Reader: os.Stdin,
			Writer: os.Stdout,
		}, "")
	}
	return readLineFromTerm(trm, prompt)
}

// ReadWriter combines separate reader and writer into the io.ReadWriter
// term.NewTerminal needs.
type ReadWriter struct {
	io.Reader
	io.Writer
}

func readLine(w io.Writer, r io.Reader, prompt string) (string, error) {
	_, _ = fmt.Fprint(w, prompt)
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func readLineFromTerm(t *term.Terminal, prompt string) (string, error) {
	_, err := t.Write([]byte(prompt))
	if err != nil {
		return "", err
	}
	line, err := t.ReadLine()
	return strings.TrimRight(line, "\n"), err
}

// ReadPassword reads the user's password with prompt.
func ReadPassword(prompt string) (string, error) {
	if Terminal != nil {
		return Terminal.ReadPassword(prompt)
	}
	return readSecurePassword(prompt)
}
