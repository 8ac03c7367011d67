package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dmitrijs2005/smartids/internal/common"
	"github.com/dmitrijs2005/smartids/internal/dbx"
	"github.com/dmitrijs2005/smartids/internal/logging"
	"github.com/dmitrijs2005/smartids/internal/server/config"
	"github.com/dmitrijs2005/smartids/internal/server/models"
	"github.com/dmitrijs2005/smartids/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/smartids/internal/server/repositories/shares"
	"github.com/google/uuid"
)

// shareTokenSize is the number of random bytes behind a share token
// (22 base64url characters).
const shareTokenSize = 16

// ShareOptions tunes a new share. Zero values fall back to the configured
// defaults; negative values are rejected.
type ShareOptions struct {
	ExpiresIn    time.Duration
	MaxDownloads int
}

// ShareService issues share links and consumes them on download.
type ShareService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger

	defaultTTL          time.Duration
	defaultMaxDownloads int

	now func() time.Time
}

// NewShareService constructs a ShareService using repositories and server config.
func NewShareService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, log logging.Logger) *ShareService {
	return &ShareService{
		db:                  db,
		repomanager:         m,
		log:                 log,
		defaultTTL:          cfg.DefaultShareTTL,
		defaultMaxDownloads: cfg.DefaultShareMaxDownloads,
		now:                 time.Now,
	}
}

// Issue creates a share for a file owned by ownerID. A file that does not
// exist and a file owned by someone else both yield common.ErrorNotFound.
func (s *ShareService) Issue(ctx context.Context, fileID, ownerID string, opts ShareOptions) (*models.Share, error) {
	if opts.ExpiresIn < 0 || opts.MaxDownloads < 0 {
		return nil, fmt.Errorf("%w: expiry and download limit must be positive", common.ErrorValidation)
	}
	if opts.ExpiresIn == 0 {
		opts.ExpiresIn = s.defaultTTL
	}
	if opts.MaxDownloads == 0 {
		opts.MaxDownloads = s.defaultMaxDownloads
	}
	if opts.ExpiresIn <= 0 || opts.MaxDownloads <= 0 {
		return nil, fmt.Errorf("%w: expiry and download limit must be positive", common.ErrorValidation)
	}
	if opts.MaxDownloads > math.MaxInt32 {
		return nil, fmt.Errorf("%w: download limit is too large", common.ErrorValidation)
	}

	// Postgres rejects non-uuid ids at the type level; report them as absent.
	if _, err := uuid.Parse(fileID); err != nil {
		return nil, common.ErrorNotFound
	}

	if _, err := s.repomanager.Files(s.db).GetByIDAndOwner(ctx, fileID, ownerID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error loading file: %w", err)
	}

	token, err := common.MakeRandURLToken(shareTokenSize)
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	now := s.now().UTC()
	share := &models.Share{
		ID:           uuid.NewString(),
		FileID:       fileID,
		Token:        token,
		ExpiresAt:    now.Add(opts.ExpiresIn),
		MaxDownloads: opts.MaxDownloads,
		CreatedAt:    now,
	}
	if err := s.repomanager.Shares(s.db).Create(ctx, share); err != nil {
		return nil, fmt.Errorf("error creating share: %w", err)
	}

	s.log.Info(ctx, "share issued", "file_id", fileID, "share_id", share.ID,
		"expires_at", share.ExpiresAt, "max_downloads", share.MaxDownloads)
	return share, nil
}

// ValidateAndConsume spends one download of the share identified by token
// and returns the shared file record. It must run on a transaction handle
// so that a later failure in the download chain rolls the spend back.
//
// Errors: common.ErrorNotFound (unknown token or file gone),
// common.ErrShareExpired (now >= expires_at), common.ErrShareExhausted.
func (s *ShareService) ValidateAndConsume(ctx context.Context, tx dbx.DBTX, token string) (*models.File, error) {
	now := s.now()
	repo := s.repomanager.Shares(tx)

	fileID, err := repo.Consume(ctx, token, now)
	if err != nil {
		if !errors.Is(err, shares.ErrNotConsumable) {
			return nil, fmt.Errorf("error consuming share: %w", err)
		}
		return nil, s.classify(ctx, repo, token, now)
	}

	file, err := s.repomanager.Files(tx).GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error loading file: %w", err)
	}
	return file, nil
}

// classify explains why Consume matched nothing.
func (s *ShareService) classify(ctx context.Context, repo shares.Repository, token string, now time.Time) error {
	share, err := repo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("error loading share: %w", err)
	}
	switch share.State(now) {
	case models.ShareExpired:
		return common.ErrShareExpired
	case models.ShareConsumed:
		return common.ErrShareExhausted
	default:
		// Active by counters and clock yet not consumable: the row changed
		// between the two statements. Treat as spent.
		return common.ErrShareExhausted
	}
}

// ListOwned returns the share links of ownerID's files with their current state.
func (s *ShareService) ListOwned(ctx context.Context, ownerID string) ([]models.ShareInfo, error) {
	list, err := s.repomanager.Shares(s.db).ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("error listing shares: %w", err)
	}
	now := s.now()
	for i := range list {
		sh := models.Share{ExpiresAt: list[i].ExpiresAt, MaxDownloads: list[i].MaxDownloads, Downloads: list[i].Downloads}
		list[i].State = sh.State(now)
	}
	return list, nil
}
