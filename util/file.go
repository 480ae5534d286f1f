package util

import (
	"os"
	"path/filepath"
	"strings"
)

// WriteToFile writes the contents to savePath separated by new lines,
// creating the parent folder when needed
func WriteToFile(savePath string, content ...string) error {
	if err := os.MkdirAll(filepath.Dir(savePath), os.ModePerm); err != nil {
		return err
	}
	return os.WriteFile(savePath, []byte(strings.Join(content, "\n")+"\n"), 0644)
}
