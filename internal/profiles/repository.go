package profiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JaimeStill/microfinder/pkg/repository"
)

const columns = "id, username, full_name, COALESCE(email, ''), COALESCE(avatar_url, ''), created_at, updated_at"

type repo struct {
	db       *sql.DB
	identity Identity
	logger   *slog.Logger
}

func New(db *sql.DB, identity Identity, logger *slog.Logger) System {
	return &repo{
		db:       db,
		identity: identity,
		logger:   logger.With("system", "profiles"),
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger)
}

func (r *repo) Current(ctx context.Context) (*Profile, error) {
	user, ok := r.identity.User()
	if !ok || user.ID == "" {
		return nil, ErrNotAuthenticated
	}

	p, err := repository.QueryOne(
		ctx, r.db,
		"SELECT "+columns+" FROM public.profiles WHERE id = $1",
		[]any{user.ID},
		scanProfile,
	)
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("query profile: %w", err)
	}

	def := Default(user)

	// A concurrent first visit may insert first; the no-op update returns
	// whichever row won.
	q := `
		INSERT INTO public.profiles (id, username, full_name, email)
		VALUES ($1, $2, $3, NULLIF($4, ''))
		ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id
		RETURNING ` + columns

	p, err = repository.QueryOne(ctx, r.db, q, []any{def.ID, def.Username, def.FullName, def.Email}, scanProfile)
	if err != nil {
		return nil, repository.MapWriteError(err, ErrStoreWrite, ErrStoreWrite)
	}

	r.logger.Info("default profile created", "id", p.ID)
	return &p, nil
}

func (r *repo) Update(ctx context.Context, cmd UpdateCommand) (*Profile, error) {
	user, ok := r.identity.User()
	if !ok || user.ID == "" {
		return nil, ErrNotAuthenticated
	}

	username := strings.TrimSpace(cmd.Username)
	fullName := strings.TrimSpace(cmd.FullName)
	if username == "" || fullName == "" {
		return nil, ErrInvalidProfile
	}

	q := `
		INSERT INTO public.profiles (id, username, full_name, email, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), now())
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			full_name = EXCLUDED.full_name,
			email = COALESCE(EXCLUDED.email, public.profiles.email),
			updated_at = now()
		RETURNING ` + columns

	p, err := repository.QueryOne(ctx, r.db, q, []any{user.ID, username, fullName, user.Email}, scanProfile)
	if err != nil {
		return nil, repository.MapWriteError(err, ErrStoreWrite, ErrStoreWrite)
	}

	r.logger.Info("profile updated", "id", p.ID)
	return &p, nil
}

func scanProfile(s repository.Scanner) (Profile, error) {
	var (
		p       Profile
		updated sql.NullTime
	)
	err := s.Scan(&p.ID, &p.Username, &p.FullName, &p.Email, &p.AvatarURL, &p.CreatedAt, &updated)
	if updated.Valid {
		t := updated.Time
		p.UpdatedAt = &t
	}
	return p, err
}
