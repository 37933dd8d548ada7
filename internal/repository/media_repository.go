package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/wyatts97/schedx/internal/models"
)

type MediaAssetRepository interface {
	GetByID(ctx context.Context, id int64) (*models.MediaAsset, error)
}

type mediaAssetRepository struct {
	db *sql.DB
}

func NewMediaAssetRepository(db *sql.DB) MediaAssetRepository {
	return &mediaAssetRepository{db: db}
}

func (r *mediaAssetRepository) GetByID(ctx context.Context, id int64) (*models.MediaAsset, error) {
	query := `SELECT id, user_id, file_name, file_type, file_size, file_url, thumbnail_url, created_at
		FROM media_assets WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	var ma models.MediaAsset
	err := row.Scan(&ma.ID, &ma.UserID, &ma.FileName, &ma.FileType, &ma.FileSize,
		&ma.FileURL, &ma.ThumbnailURL, &ma.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &ma, nil
}

type TweetMediaRepository interface {
	Create(ctx context.Context, tx *sql.Tx, tm *models.TweetMedia) error
	ListByTweetID(ctx context.Context, tweetID int64) ([]*models.TweetMedia, error)
}

type tweetMediaRepository struct {
	db *sql.DB
}

func NewTweetMediaRepository(db *sql.DB) TweetMediaRepository {
	return &tweetMediaRepository{db: db}
}

func (r *tweetMediaRepository) Create(ctx context.Context, tx *sql.Tx, tm *models.TweetMedia) error {
	query := `
		INSERT INTO tweet_media (tweet_id, asset_id, display_order)
		VALUES ($1, $2, $3)
	`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, tm.TweetID, tm.AssetID, tm.DisplayOrder)
	} else {
		_, err = r.db.ExecContext(ctx, query, tm.TweetID, tm.AssetID, tm.DisplayOrder)
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *tweetMediaRepository) ListByTweetID(ctx context.Context, tweetID int64) ([]*models.TweetMedia, error) {
	query := `SELECT tweet_id, asset_id, display_order, created_at
		FROM tweet_media WHERE tweet_id = $1 ORDER BY display_order ASC`

	rows, err := r.db.QueryContext(ctx, query, tweetID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var media []*models.TweetMedia
	for rows.Next() {
		var tm models.TweetMedia
		err := rows.Scan(&tm.TweetID, &tm.AssetID, &tm.DisplayOrder, &tm.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		media = append(media, &tm)
	}
	return media, rows.Err()
}
