package profiles

import "context"

// System defines profile operations for the signed-in user.
type System interface {
	Handler() *Handler
	// Current returns the profile, creating the default one when missing.
	Current(ctx context.Context) (*Profile, error)
	Update(ctx context.Context, cmd UpdateCommand) (*Profile, error)
}
