// Package history persists generated posts and brand voice profiles.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// PostRecord is one stored generation result.
type PostRecord struct {
	ID          string
	Topic       string
	Variants    map[string]string
	BestVariant string
	Hashtags    []string
	Sources     []string
	Published   bool
	PublishedID string
	CreatedAt   time.Time
	PublishedAt *time.Time
}

// BrandProfileRecord stores the learned voice profile for a user.
type BrandProfileRecord struct {
	UserID    string
	Profile   json.RawMessage
	UpdatedAt time.Time
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) SavePost(ctx context.Context, record PostRecord) (PostRecord, error) {
	if s == nil || s.db == nil {
		return PostRecord{}, errors.New("history store unavailable")
	}

	variantsJSON, err := json.Marshal(record.Variants)
	if err != nil {
		return PostRecord{}, fmt.Errorf("encode variants: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO scrivener.posts (
			topic,
			variants,
			best_variant,
			hashtags,
			sources,
			created_at
		)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at
	`,
		record.Topic,
		variantsJSON,
		record.BestVariant,
		pq.Array(record.Hashtags),
		pq.Array(record.Sources),
	).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		return PostRecord{}, fmt.Errorf("insert post: %w", err)
	}
	return record, nil
}

func (s *Store) GetPost(ctx context.Context, id string) (PostRecord, error) {
	if s == nil || s.db == nil {
		return PostRecord{}, errors.New("history store unavailable")
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id,
			topic,
			variants,
			best_variant,
			hashtags,
			sources,
			published,
			COALESCE(published_id, ''),
			created_at,
			published_at
		FROM scrivener.posts
		WHERE id = $1
	`, id)

	record, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return PostRecord{}, fmt.Errorf("post %s: %w", id, ErrNotFound)
	}
	return record, err
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]PostRecord, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("history store unavailable")
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id,
			topic,
			variants,
			best_variant,
			hashtags,
			sources,
			published,
			COALESCE(published_id, ''),
			created_at,
			published_at
		FROM scrivener.posts
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent posts: %w", err)
	}
	defer rows.Close()

	var posts []PostRecord
	for rows.Next() {
		record, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}

// MarkPublished records the external post id after a successful publish.
func (s *Store) MarkPublished(ctx context.Context, id, publishedID string) error {
	if s == nil || s.db == nil {
		return errors.New("history store unavailable")
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE scrivener.posts
		SET published = TRUE,
			published_id = $2,
			published_at = NOW()
		WHERE id = $1
	`, id, publishedID)
	if err != nil {
		return fmt.Errorf("mark published: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark published: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("post %s: %w", id, ErrNotFound)
	}
	return nil
}

// RecentPostTexts returns best-variant texts for brand profile learning.
func (s *Store) RecentPostTexts(ctx context.Context, limit int) ([]string, error) {
	posts, err := s.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	var texts []string
	for _, p := range posts {
		if text, ok := p.Variants[p.BestVariant]; ok && text != "" {
			texts = append(texts, text)
		}
	}
	return texts, nil
}

func (s *Store) SaveBrandProfile(ctx context.Context, userID string, profile json.RawMessage) error {
	if s == nil || s.db == nil {
		return errors.New("history store unavailable")
	}
	if userID == "" {
		return errors.New("user id is required")
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO scrivener.brand_profiles (user_id, profile, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET profile = EXCLUDED.profile, updated_at = NOW()
	`, userID, []byte(profile)); err != nil {
		return fmt.Errorf("save brand profile: %w", err)
	}
	return nil
}

func (s *Store) GetBrandProfile(ctx context.Context, userID string) (BrandProfileRecord, error) {
	if s == nil || s.db == nil {
		return BrandProfileRecord{}, errors.New("history store unavailable")
	}

	var record BrandProfileRecord
	var profile []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, profile, updated_at
		FROM scrivener.brand_profiles
		WHERE user_id = $1
	`, userID).Scan(&record.UserID, &profile, &record.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return BrandProfileRecord{}, fmt.Errorf("brand profile %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return BrandProfileRecord{}, fmt.Errorf("get brand profile: %w", err)
	}
	record.Profile = profile
	return record, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (PostRecord, error) {
	var record PostRecord
	var variantsJSON []byte
	var hashtags, sources pq.StringArray
	var publishedAt sql.NullTime

	err := row.Scan(
		&record.ID,
		&record.Topic,
		&variantsJSON,
		&record.BestVariant,
		&hashtags,
		&sources,
		&record.Published,
		&record.PublishedID,
		&record.CreatedAt,
		&publishedAt,
	)
	if err != nil {
		return PostRecord{}, err
	}
	if len(variantsJSON) > 0 {
		if err := json.Unmarshal(variantsJSON, &record.Variants); err != nil {
			return PostRecord{}, fmt.Errorf("decode variants: %w", err)
		}
	}
	record.Hashtags = hashtags
	record.Sources = sources
	if publishedAt.Valid {
		t := publishedAt.Time
		record.PublishedAt = &t
	}
	return record, nil
}
