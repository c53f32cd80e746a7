package configloader

import (
	"fmt"
	"io"

	"github.com/segmentio/encoding/json"
)

// PrintConfig выводит конфиг в читаемом виде.
func PrintConfig(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("configloader: marshal: %w", err)
	}
	_, err = fmt.Fprintf(w, "Loaded configuration:\n%s\n", b)
	return err
}
