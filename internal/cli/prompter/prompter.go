package prompter

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter reads answers from in and writes labels to out.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
}

func New() *Prompter {
	return &Prompter{in: bufio.NewReader(os.Stdin), out: os.Stdout, fd: int(os.Stdin.Fd())}
}

// NewWithReader is for non-interactive input; passwords are read as plain lines.
func NewWithReader(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out, fd: -1}
}

func (p *Prompter) String(label string) (string, error) {
	fmt.Fprint(p.out, label)
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Password reads without echo when stdin is a terminal.
func (p *Prompter) Password(label string) (string, error) {
	if p.fd < 0 || !term.IsTerminal(p.fd) {
		return p.String(label)
	}
	fmt.Fprint(p.out, label)
	b, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
