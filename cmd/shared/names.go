package shared

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ReadNames returns the names given as arguments followed by those listed in
// file, one per line. Blank lines and lines starting with # are skipped.
func ReadNames(args []string, file string) ([]string, error) {
	names := append([]string(nil), args...)
	if file == "" {
		return names, nil
	}

	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open names file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read names file: %w", err)
	}
	return names, nil
}
