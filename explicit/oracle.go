package explicit

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ReadGroundTruth extracts the long-run average reward from the model
// checker output. The first "Result ...: <value>" line wins; otherwise
// the content must be a single number.
func ReadGroundTruth(r io.Reader) (float64, error) {
	scanner := bufio.NewScanner(r)
	lines := make([]string, 0)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if strings.HasPrefix(text, "Result") {
			i := strings.Index(text, ":")
			if i < 0 {
				continue
			}
			fields := strings.Fields(text[i+1:])
			if len(fields) == 0 {
				continue
			}
			v, err := strconv.ParseFloat(fields[0], 64)
			if err != nil {
				return 0, fmt.Errorf("parsing result %q: %w", fields[0], err)
			}
			return v, nil
		}
		lines = append(lines, text)
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	if len(lines) == 1 {
		if v, err := strconv.ParseFloat(lines[0], 64); err == nil {
			return v, nil
		}
	}
	return 0, ErrNoGroundTruth
}

// ReadGroundTruthFile reads the model checker output stored at path
func ReadGroundTruthFile(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	v, err := ReadGroundTruth(f)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}
