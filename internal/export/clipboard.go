package export

import (
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"

	"resumelift/internal/models"
)

// ErrClipboardUnavailable is returned on systems without a clipboard utility.
var ErrClipboardUnavailable = errors.New("clipboard is not available on this system")

var (
	clipboardUnsupported = func() bool { return clipboard.Unsupported }
	writeClipboard       = clipboard.WriteAll
)

// CopyToClipboard places the analysis text on the system clipboard.
func CopyToClipboard(result string) error {
	if strings.TrimSpace(result) == "" {
		return models.ErrNoResult
	}
	if clipboardUnsupported() {
		return ErrClipboardUnavailable
	}
	if err := writeClipboard(result); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	return nil
}
