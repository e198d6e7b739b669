package app

import (
	"encoding/json"
	"os"

	"github.com/pagesift/pagesift/internal/model"
)

// writeOutput persists the run's sole artifact as pretty-printed JSON.
func writeOutput(path string, out model.ScrapedOutput) error {
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
