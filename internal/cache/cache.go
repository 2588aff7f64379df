// Package cache stores the ranked ticker list for each analysis type.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"newsticker/internal/kv"
	"newsticker/internal/news"
)

// Record is replaced wholesale on every refresh.
type Record struct {
	News      []news.Item
	Timestamp time.Time
}

type recordJSON struct {
	News      []news.Item `json:"news"`
	Timestamp int64       `json:"timestamp"` // unix milliseconds
}

func (r Record) MarshalJSON() ([]byte, error) {
	items := r.News
	if items == nil {
		items = []news.Item{}
	}
	return json.Marshal(recordJSON{News: items, Timestamp: r.Timestamp.UnixMilli()})
}

func (r *Record) UnmarshalJSON(b []byte) error {
	var raw recordJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.Timestamp <= 0 {
		return errors.New("cache record without timestamp")
	}
	r.News = raw.News
	r.Timestamp = time.UnixMilli(raw.Timestamp)
	return nil
}

func (r Record) Age(now time.Time) time.Duration {
	return now.Sub(r.Timestamp)
}

// IsStale reports whether the record is older than maxAge.
func (r Record) IsStale(now time.Time, maxAge time.Duration) bool {
	return r.Age(now) > maxAge
}

func Key(analysisType string) string {
	return "news_" + analysisType
}

type Store struct {
	kv     kv.Store
	logger *zap.Logger
}

func NewStore(store kv.Store, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{kv: store, logger: logger.With(zap.String("component", "cache"))}
}

// Load returns the record for analysisType. Missing, unreadable and
// corrupt records all come back as absent so the caller refreshes.
func (s *Store) Load(ctx context.Context, analysisType string) (Record, bool) {
	key := Key(analysisType)
	data, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.logger.Warn("Cache read failed, treating as miss", zap.String("key", key), zap.Error(err))
		}
		return Record{}, false
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.Warn("Cache record unparsable, treating as miss", zap.String("key", key), zap.Error(err))
		return Record{}, false
	}
	return rec, true
}

func (s *Store) Save(ctx context.Context, analysisType string, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding cache record: %w", err)
	}
	if err := s.kv.Set(ctx, Key(analysisType), data); err != nil {
		return fmt.Errorf("saving cache record: %w", err)
	}
	s.logger.Debug("Cache record saved",
		zap.String("key", Key(analysisType)),
		zap.Int("items", len(rec.News)))
	return nil
}
