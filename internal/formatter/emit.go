package formatter

import (
	"bytes"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/scan-io-git/scanio-audit/pkg/shared/files"
)

// DefaultFileName names the report file written by command in format.
func DefaultFileName(command, format string) string {
	ext := format
	switch format {
	case FormatHuman, "":
		ext = "txt"
	case FormatYAML:
		ext = "yml"
	}
	return fmt.Sprintf("scanio-audit-%s.%s", command, ext)
}

// Emit renders to stdout when outputPath is empty. Otherwise it renders without
// colors into a file: outputPath itself, or defaultName inside a folder
// outputPath. It returns the written file path.
func Emit(stdout io.Writer, outputPath, defaultName string, render func(io.Writer) error) (string, error) {
	if outputPath == "" {
		return "", render(stdout)
	}

	fullPath, folder, err := files.DetermineFileFullPath(outputPath, defaultName)
	if err != nil {
		return "", err
	}
	if err := files.CreateFolderIfNotExists(folder); err != nil {
		return "", err
	}

	noColor := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = noColor }()

	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return "", err
	}
	if err := files.WriteFile(fullPath, buf.Bytes()); err != nil {
		return "", err
	}
	return fullPath, nil
}
