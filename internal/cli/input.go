package cli

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowsketch/pkg/errors"
	"github.com/matzehuels/flowsketch/pkg/pipeline"
)

// stdinName selects standard input or output in file arguments.
const stdinName = "-"

// readSource reads diagram source from a file, or from stdin for "-".
func readSource(cmd *cobra.Command, name string) (string, error) {
	var (
		data []byte
		err  error
	)
	if name == stdinName {
		data, err = io.ReadAll(io.LimitReader(cmd.InOrStdin(), pipeline.MaxSourceBytes+1))
	} else {
		data, err = readFile(name)
	}
	if err != nil {
		return "", err
	}
	source := strings.TrimSpace(string(data))
	if err := errors.ValidateSource(source, pipeline.MaxSourceBytes); err != nil {
		return "", err
	}
	return source, nil
}

func readFile(name string) ([]byte, error) {
	data, err := os.ReadFile(name)
	if os.IsNotExist(err) {
		return nil, errors.New(errors.ErrCodeFileNotFound, "file not found: %s", name)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", name)
	}
	return data, nil
}

// writeSource writes source to path, or prints it when path is empty or "-".
func writeSource(path, source string) error {
	if path == "" || path == stdinName {
		printSource(source)
		return nil
	}
	if err := writeFile(path, []byte(source+"\n")); err != nil {
		return err
	}
	printSuccess("Wrote diagram source")
	printFile(path)
	return nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
