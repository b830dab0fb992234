// Package samples provides the demonstration inputs fed through the cipher.
package samples

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Printable is the reference printable alphabet: digits, ASCII letters,
// punctuation, then whitespace.
const Printable = "0123456789" +
	"abcdefghijklmnopqrstuvwxyz" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
	"!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~" +
	" \t\n\r\x0b\x0c"

var defaultSamples = []string{
	"Hello, World!",
	"This is a sample string",
	"Another string for testing",
	"A very very long string that should result in a high score",
	"Short string",
	"abcdefghijklmnopqrstuvwxyz",
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ",
	"1234567890",
	"A string with special characters: !@#$%^&*()",
	"A string with spaces    between     words",
	"A string with a mix of letters, numbers, and special characters: abc123!@#",
}

// Default returns a copy of the built-in demonstration strings.
func Default() []string {
	return append([]string(nil), defaultSamples...)
}

// LoadFile reads one sample per line. Blank lines are skipped; surrounding
// whitespace inside a line is kept.
func LoadFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only sample file.
			_ = cerr
		}
	}()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("sample file is empty")
	}
	return lines, nil
}
