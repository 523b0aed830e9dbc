package main

import (
	"fmt"
	"io"
	"os"

	"github.com/GriffinCanCode/Playground/backend/internal/shared/utils"
)

// readSource reads a program from path, or from stdin when path is "-"
func readSource(path string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(io.LimitReader(stdin, utils.MaxCodeSize+1))
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	code := string(data)
	if err := utils.ValidateCode(code); err != nil {
		return "", err
	}
	return code, nil
}
