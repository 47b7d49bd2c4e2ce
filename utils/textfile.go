package utils

import (
	"os"
	"strings"
)

// ReadLines loads a text file as a slice of lines, trailing newline dropped.
func ReadLines(fname string) ([]string, error) {
	data, err := os.ReadFile(fname)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return nil, nil
	}
	return strings.Split(text, "\n"), nil
}

// WriteLines replaces the file with the given lines, one per row.
func WriteLines(fname string, lines []string) error {
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return os.WriteFile(fname, []byte(b.String()), 0644)
}
