package certificate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	casemodels "meldeamt/internal/caserec/models"
)

// FileRenderer writes certificate artifacts to a local directory. PDF layout
// is deliberately out of scope; the artifact is a plain-text document with
// the same content a rendered certificate would carry.
type FileRenderer struct {
	dir string
}

func NewFileRenderer(dir string) *FileRenderer {
	return &FileRenderer{dir: dir}
}

func (r *FileRenderer) Render(ctx context.Context, c *casemodels.Case) (string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifacts dir: %w", err)
	}

	var b strings.Builder
	b.WriteString("ANMELDEBESTÄTIGUNG\n")
	b.WriteString("Bürgeramt - Meldebehörde\n\n")
	fmt.Fprintf(&b, "Vorgang:      %s\n", c.ID)
	fmt.Fprintf(&b, "Name:         %s\n", c.CitizenName)
	fmt.Fprintf(&b, "Geburtsdatum: %s\n", c.DOB)
	fmt.Fprintf(&b, "Neue Adresse: %s\n", c.CanonicalAddress)
	fmt.Fprintf(&b, "Einzugsdatum: %s\n", c.MoveInDateRaw)
	fmt.Fprintf(&b, "Ausgestellt:  %s\n", time.Now().Format("02.01.2006"))

	path := filepath.Join(r.dir, "certificate_"+c.ID.FileSafe()+".txt")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write certificate: %w", err)
	}
	return path, nil
}
