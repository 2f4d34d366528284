package cli

import (
	"bufio"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
)

// linePrompter asks yes/no questions on a line-oriented terminal. Invalid
// answers are asked again; end of input counts as "no".
type linePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newLinePrompter(in io.Reader, out io.Writer) *linePrompter {
	return &linePrompter{in: bufio.NewReader(in), out: out}
}

// Confirm implements orchestrator.Prompter.
func (p *linePrompter) Confirm(question string) (bool, error) {
	for {
		_, _ = fmt.Fprintf(p.out, "%s [Y]es or [N]o: ", question)
		line, err := p.in.ReadString('\n')

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}

		if err != nil {
			_, _ = fmt.Fprintln(p.out)
			if stderrors.Is(err, io.EOF) {
				return false, nil
			}
			return false, fmt.Errorf("failed to read answer: %w", err)
		}
		_, _ = fmt.Fprintln(p.out, "Invalid choice, try again!")
	}
}
