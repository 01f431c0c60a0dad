package console

import (
	"bufio"
	"io"
)

// Terminal is a line-oriented connection to one player. *telnet.Conn
// satisfies it.
type Terminal interface {
	// ReadLine returns the next input line without its terminator, or io.EOF
	// once input is exhausted.
	ReadLine() (string, error)
	// Write displays text. Lines are separated by "\n".
	Write(data []byte) error
}

// Stdio is a Terminal over a reader and writer, such as os.Stdin and os.Stdout.
type Stdio struct {
	in  *bufio.Scanner
	out io.Writer
}

// NewStdio creates a Terminal reading lines from in and writing to out.
//
// Precondition: in and out must be non-nil.
func NewStdio(in io.Reader, out io.Writer) *Stdio {
	if in == nil || out == nil {
		panic("console.NewStdio: in and out must not be nil")
	}
	return &Stdio{in: bufio.NewScanner(in), out: out}
}

func (s *Stdio) ReadLine() (string, error) {
	if s.in.Scan() {
		return s.in.Text(), nil
	}
	if err := s.in.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (s *Stdio) Write(data []byte) error {
	_, err := s.out.Write(data)
	return err
}
