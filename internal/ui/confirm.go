package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ConfirmFrom asks prompt on w and reads the answer from r.
func ConfirmFrom(r io.Reader, w io.Writer, prompt string) bool {
	fmt.Fprintf(w, "%s [y/N]: ", prompt)
	line, _ := bufio.NewReader(r).ReadString('\n')
	line = strings.TrimSpace(strings.ToLower(line))
	return line == "y" || line == "yes"
}
