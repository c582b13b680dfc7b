// Package storage persists journal records as per-user, per-category
// JSON-lines files.
//
// Layout:
//
//	<data-dir>/<user>/<category>/<singular>_<YYYYMMDD>.jsonl
//	<data-dir>/<user>/settings.json
//
// The date in a file name is the record's own date, so a file exists for a
// day exactly when some record is dated that day, readable or not. Older
// per-entry files named <singular>_<YYYYMMDD_HHMMSS>.json
// are read the same way. Each line is either a plaintext record or an
// encrypted envelope {"enc": "<token>"}; the two may be mixed freely.
package storage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gobwas/glob"

	"github.com/entrhq/moodjournal/pkg/envelope"
	"github.com/entrhq/moodjournal/pkg/logging"
	"github.com/entrhq/moodjournal/pkg/metrics"
	"github.com/entrhq/moodjournal/pkg/record"
)

// ErrUnknownCategory is returned for categories other than mood and dreams.
var ErrUnknownCategory = errors.New("storage: unknown category")

// timeNow is swapped in tests.
var timeNow = time.Now

// Passwords looks up a user's cached password.
type Passwords interface {
	Get(userID int64) (string, bool)
}

// noPasswords is used when the store is built without a credential source.
type noPasswords struct{}

func (noPasswords) Get(int64) (string, bool) { return "", false }

// Store reads and appends journal records.
type Store struct {
	root      string
	passwords Passwords
	logger    *logging.Logger
	patterns  map[record.Category]glob.Glob
	settings  *SettingsStore
}

// Option configures a Store.
type Option func(*Store)

// WithPasswords makes writes encrypt and reads decrypt with cached passwords.
func WithPasswords(p Passwords) Option {
	return func(s *Store) {
		if p != nil {
			s.passwords = p
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStore creates a store rooted at dir. The directory is created lazily.
func NewStore(dir string, opts ...Option) *Store {
	s := &Store{
		root:      dir,
		passwords: noPasswords{},
		logger:    logging.Discard("storage"),
		patterns:  make(map[record.Category]glob.Glob, len(record.Categories)),
	}
	for _, c := range record.Categories {
		s.patterns[c] = glob.MustCompile(c.Singular() + "_*.{json,jsonl}")
	}
	for _, opt := range opts {
		opt(s)
	}
	s.settings = &SettingsStore{store: s}
	return s
}

// Root returns the data directory.
func (s *Store) Root() string {
	return s.root
}

// UserDir returns the directory holding everything for userID.
func (s *Store) UserDir(userID int64) string {
	return filepath.Join(s.root, strconv.FormatInt(userID, 10))
}

func (s *Store) categoryDir(userID int64, category record.Category) (string, error) {
	if !category.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	return filepath.Join(s.UserDir(userID), string(category)), nil
}

// Write appends rec to the user's category stream. When the user has a
// cached password the record is sealed first. The line is written with a
// single append so concurrent writers never interleave within a line.
func (s *Store) Write(_ context.Context, userID int64, category record.Category, rec record.Record) error {
	date, ok := rec.Date()
	if !ok {
		return record.ErrInvalidDate
	}
	day, err := record.ParseDate(date)
	if err != nil {
		return err
	}
	dir, err := s.categoryDir(userID, category)
	if err != nil {
		return err
	}

	var line []byte
	password, encrypted := s.passwords.Get(userID)
	if encrypted {
		token, err := envelope.Encrypt(rec, password)
		if err != nil {
			return fmt.Errorf("storage: encrypt: %w", err)
		}
		line, err = json.Marshal(envelope.Wrap(token))
		if err != nil {
			return fmt.Errorf("storage: marshal envelope: %w", err)
		}
	} else {
		line, err = json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("storage: marshal record: %w", err)
		}
	}
	line = append(line, '\n')

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("storage: create %s: %w", dir, err)
	}
	name := fmt.Sprintf("%s_%s.jsonl", category.Singular(), day.Format("20060102"))
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("storage: open %s: %w", path, err)
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("storage: append %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("storage: close %s: %w", path, err)
	}

	metrics.RecordWritten(string(category), encrypted)
	s.logger.Debugf("appended %s record for user %d (encrypted=%t)", category, userID, encrypted)
	return nil
}

// ReadStats counts lines skipped during a read, by reason.
type ReadStats struct {
	Skipped map[string]int
}

// Total returns the number of skipped lines.
func (r ReadStats) Total() int {
	n := 0
	for _, c := range r.Skipped {
		n += c
	}
	return n
}

// Locked returns how many lines were skipped for lack of a password or
// because the password did not open them.
func (r ReadStats) Locked() int {
	return r.Skipped[metrics.SkipLocked] + r.Skipped[metrics.SkipDecrypt]
}

// ReadAll returns every readable record of the user's category in write
// order. Bad lines are skipped; only directory-level failures are errors.
func (s *Store) ReadAll(ctx context.Context, userID int64, category record.Category) ([]record.Record, error) {
	recs, _, err := s.ReadAllWithStats(ctx, userID, category)
	return recs, err
}

// ReadAllWithStats is ReadAll plus a breakdown of skipped lines.
func (s *Store) ReadAllWithStats(ctx context.Context, userID int64, category record.Category) ([]record.Record, ReadStats, error) {
	stats := ReadStats{Skipped: map[string]int{}}

	files, err := s.files(userID, category)
	if err != nil {
		return nil, stats, err
	}
	password, hasPassword := s.passwords.Get(userID)

	var out []record.Record
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}
		f, err := os.Open(path)
		if err != nil {
			s.logger.Warnf("skip unreadable file %s: %v", path, err)
			continue
		}
		reader := bufio.NewReader(f)
		for {
			raw, readErr := reader.ReadBytes('\n')
			if line := bytes.TrimSpace(raw); len(line) > 0 {
				rec, reason := decodeLine(line, password, hasPassword)
				if reason != "" {
					stats.Skipped[reason]++
					metrics.LineSkipped(string(category), reason)
					s.logger.Debugf("skip %s line in %s: %s", category, filepath.Base(path), reason)
				} else {
					out = append(out, rec)
				}
			}
			if readErr != nil {
				if !errors.Is(readErr, io.EOF) {
					s.logger.Warnf("read %s: %v", path, readErr)
				}
				break
			}
		}
		_ = f.Close()
	}
	return out, stats, nil
}

// decodeLine turns one stored line into a record, or names why it cannot.
func decodeLine(line []byte, password string, hasPassword bool) (record.Record, string) {
	if !utf8.Valid(line) {
		return nil, metrics.SkipEncoding
	}
	var obj map[string]any
	if err := json.Unmarshal(line, &obj); err != nil || obj == nil {
		return nil, metrics.SkipJSON
	}

	rec := record.Record(obj)
	if token, ok := envelope.Unwrap(obj); ok {
		if !hasPassword {
			return nil, metrics.SkipLocked
		}
		opened, err := envelope.Decrypt(token, password)
		if err != nil {
			return nil, metrics.SkipDecrypt
		}
		rec = opened
	}
	if err := rec.Validate(); err != nil {
		return nil, metrics.SkipInvalid
	}
	return rec, ""
}

// files lists the category's record files in chronological order. A missing
// directory is created and yields no files.
func (s *Store) files(userID int64, category record.Category) ([]string, error) {
	dir, err := s.categoryDir(userID, category)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("storage: create %s: %w", dir, err)
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", dir, err)
	}

	pattern := s.patterns[category]
	var names []string
	for _, e := range entries {
		if e.IsDir() || !pattern.Match(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(dir, n)
	}
	return paths, nil
}

// DayMarkers returns the record dates (YYYY-MM-DD) encoded in the category's
// file names. It works without a password, since names are never encrypted.
func (s *Store) DayMarkers(_ context.Context, userID int64, category record.Category) (map[string]bool, error) {
	files, err := s.files(userID, category)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(files))
	prefix := category.Singular() + "_"
	for _, path := range files {
		stem := strings.TrimPrefix(filepath.Base(path), prefix)
		if len(stem) < 8 {
			continue
		}
		day, err := time.Parse("20060102", stem[:8])
		if err != nil {
			continue
		}
		out[record.FormatDate(day)] = true
	}
	return out, nil
}
