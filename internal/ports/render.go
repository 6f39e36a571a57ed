package ports

import (
	"context"

	"github.com/Arrow-air/Flight-Log-Analyser/internal/domain"
)

// Renderer turns populated series groups into chart files under dir and
// returns them keyed by topic.
type Renderer interface {
	Render(ctx context.Context, set *domain.SeriesSet, dir string) (map[string]string, error)
}

// NotesRenderer converts session notes to HTML.
type NotesRenderer interface {
	RenderNotes(src []byte) (string, error)
}
