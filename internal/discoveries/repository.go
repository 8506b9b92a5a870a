package discoveries

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/microfinder/internal/analysis"
	"github.com/JaimeStill/microfinder/internal/classification"
	"github.com/JaimeStill/microfinder/pkg/query"
	"github.com/JaimeStill/microfinder/pkg/repository"
	"github.com/JaimeStill/microfinder/pkg/storage"
)

const discardTimeout = 10 * time.Second

type repo struct {
	db           *sql.DB
	storage      storage.System
	analyzer     analysis.Analyzer
	identity     Identity
	observer     Observer
	logger       *slog.Logger
	maxImageSize int64
}

// New creates a discovery repository implementing the System interface.
// observer may be nil.
func New(
	db *sql.DB,
	store storage.System,
	analyzer analysis.Analyzer,
	identity Identity,
	observer Observer,
	logger *slog.Logger,
	maxImageSize int64,
) System {
	return &repo{
		db:           db,
		storage:      store,
		analyzer:     analyzer,
		identity:     identity,
		observer:     observer,
		logger:       logger.With("system", "discoveries"),
		maxImageSize: maxImageSize,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.maxImageSize)
}

func (r *repo) Save(ctx context.Context, cmd SaveCommand) (*Discovery, error) {
	userID, ok := r.identity.CurrentUser()
	if !ok {
		return nil, ErrNotAuthenticated
	}
	if strings.TrimSpace(cmd.ImageURL) == "" || cmd.Analysis == nil {
		return nil, fmt.Errorf("%w: image_url and analysis are required", ErrInvalidRequest)
	}

	coerced := cmd.Analysis.WithDefaults()
	a := &coerced
	cls := r.normalize(a.Classification, "save")

	charJSON, err := json.Marshal(a.Characteristics)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}

	raw, err := rawAnalysis(a)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}

	q := `
		INSERT INTO public.discoveries AS d (user_id, image_url, microbe_name, classification, confidence_score, characteristics, analysis_results, raw_analysis)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + projection.Columns()

	args := []any{
		userID,
		cmd.ImageURL,
		a.MicrobeName,
		cls.String(),
		a.Confidence,
		string(charJSON),
		a.Description,
		raw,
	}

	d, err := repository.QueryOne(ctx, r.db, q, args, scanDiscovery)
	if err != nil {
		return nil, repository.MapWriteError(err, ErrStoreWrite, ErrStoreWrite)
	}

	r.logger.Info("discovery saved", "id", d.ID, "classification", d.Classification)
	return &d, nil
}

func (r *repo) List(ctx context.Context, filters Filters) ([]Discovery, error) {
	qb := query.NewBuilder(projection, defaultSort)
	filters.Apply(qb)

	if filters.Mine {
		userID, ok := r.identity.CurrentUser()
		if !ok {
			return nil, ErrNotAuthenticated
		}
		qb.WhereEquals("UserID", userID)
	}

	q, args := qb.Build()
	items, err := repository.QueryMany(ctx, r.db, q, args, scanDiscovery)
	if err != nil {
		return nil, fmt.Errorf("query discoveries: %w", err)
	}
	return items, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Discovery, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	d, err := repository.QueryOne(ctx, r.db, q, args, scanDiscovery)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrStoreWrite)
	}
	return &d, nil
}

func (r *repo) Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Discovery, error) {
	userID, ok := r.identity.CurrentUser()
	if !ok {
		return nil, ErrNotAuthenticated
	}

	ub := query.NewUpdate(projection)
	if cmd.MicrobeName != nil {
		ub.Set("MicrobeName", *cmd.MicrobeName)
	}
	if cmd.Classification != nil {
		ub.Set("Classification", r.normalize(*cmd.Classification, "update").String())
	}
	if cmd.AnalysisResults != nil {
		ub.Set("AnalysisResults", *cmd.AnalysisResults)
	}

	q, args, err := ub.
		Touch("UpdatedAt", "now()").
		Where("ID", id).
		Where("UserID", userID).
		Build()
	if errors.Is(err, query.ErrNoAssignments) {
		return nil, ErrEmptyUpdate
	}
	if err != nil {
		return nil, err
	}

	d, err := repository.QueryOne(ctx, r.db, q, args, scanDiscovery)
	if err != nil {
		return nil, repository.MapWriteError(err, ErrNotAuthorizedOrNotFound, ErrStoreWrite)
	}

	r.logger.Info("discovery updated", "id", d.ID, "fields", ub.Fields())
	return &d, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	userID, ok := r.identity.CurrentUser()
	if !ok {
		return ErrNotAuthenticated
	}

	err := repository.ExecExpectOne(
		ctx, r.db,
		"DELETE FROM public.discoveries WHERE id = $1 AND user_id = $2",
		id, userID,
	)
	if err != nil {
		return repository.MapWriteError(err, ErrNotAuthorizedOrNotFound, ErrStoreWrite)
	}

	r.logger.Info("discovery deleted", "id", id)
	return nil
}

func (r *repo) Capture(ctx context.Context, cmd CaptureCommand) (*Discovery, error) {
	if _, ok := r.identity.CurrentUser(); !ok {
		return nil, ErrNotAuthenticated
	}

	img, err := analysis.EncodeImage(cmd.Data, cmd.ContentType, r.maxImageSize)
	if err != nil {
		return nil, err
	}

	key := buildStorageKey(uuid.New(), sanitizeFilename(cmd.Filename, img.MimeType))

	var result *analysis.MicrobeAnalysis
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := r.storage.Upload(gctx, key, bytes.NewReader(cmd.Data), img.MimeType); err != nil {
			return fmt.Errorf("upload image: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a, err := r.analyzer.Analyze(gctx, img)
		if err != nil {
			return err
		}
		result = a
		return nil
	})

	if err := g.Wait(); err != nil {
		r.discard(ctx, key)
		return nil, err
	}

	d, err := r.Save(ctx, SaveCommand{ImageURL: r.storage.URL(key), Analysis: result})
	if err != nil {
		r.discard(ctx, key)
		return nil, err
	}

	return d, nil
}

// normalize coerces raw into the closed set, reporting substitutions.
func (r *repo) normalize(raw, source string) classification.Classification {
	c, ok := classification.Normalize(raw)
	if !ok {
		r.logger.Warn(
			"unrecognized classification replaced with default",
			"raw", raw,
			"default", classification.Default,
			"source", source,
		)
		if r.observer != nil {
			r.observer.ObserveClassificationFallback(source)
		}
	}
	return c
}

// discard removes an uploaded image whose discovery was never saved. It
// outlives a cancelled request context.
func (r *repo) discard(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), discardTimeout)
	defer cancel()

	if err := r.storage.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		r.logger.Warn("compensating blob delete failed", "key", key, "error", err)
	}
}

func rawAnalysis(a *analysis.MicrobeAnalysis) (any, error) {
	if len(a.Raw) > 0 && json.Valid(a.Raw) {
		return string(a.Raw), nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func buildStorageKey(id uuid.UUID, filename string) string {
	return fmt.Sprintf("discoveries/%s/%s", id, filename)
}

func sanitizeFilename(name, mimeType string) string {
	name = filepath.Base(name)
	if name == "." || name == "/" || name == "" {
		name = "capture" + extension(mimeType)
	}
	return url.PathEscape(name)
}

func extension(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	default:
		return ".jpg"
	}
}
