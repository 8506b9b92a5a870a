package discoveries

import (
	"context"

	"github.com/google/uuid"
)

// System defines the discovery operations.
type System interface {
	Handler() *Handler

	Save(ctx context.Context, cmd SaveCommand) (*Discovery, error)
	// List returns discoveries newest first.
	List(ctx context.Context, filters Filters) ([]Discovery, error)
	// Find has no ownership filter.
	Find(ctx context.Context, id uuid.UUID) (*Discovery, error)
	Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Discovery, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// Capture uploads and analyzes the image concurrently, then saves.
	Capture(ctx context.Context, cmd CaptureCommand) (*Discovery, error)
}
