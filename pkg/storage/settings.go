package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/entrhq/moodjournal/pkg/record"
)

// ErrInvalidTime is returned for reminder times not in HH:MM form.
var ErrInvalidTime = errors.New("storage: time must be HH:MM")

// Default reminder times.
const (
	DefaultMorning = "08:00"
	DefaultEvening = "21:00"
)

// Settings are a user's preferences, kept in <user>/settings.json.
type Settings struct {
	Morning      string             `json:"morning"`
	Evening      string             `json:"evening"`
	CustomParams []record.Parameter `json:"custom_params"`
}

func defaultSettings() Settings {
	return Settings{Morning: DefaultMorning, Evening: DefaultEvening}
}

// SettingsStore reads and writes per-user settings files.
type SettingsStore struct {
	store *Store
	mu    sync.Mutex
}

// Settings returns the settings store sharing s's data directory.
func (s *Store) Settings() *SettingsStore {
	return s.settings
}

func (ss *SettingsStore) path(userID int64) string {
	return filepath.Join(ss.store.UserDir(userID), "settings.json")
}

// Load returns the user's settings. Missing or unreadable files yield
// defaults; missing fields are filled with defaults.
func (ss *SettingsStore) Load(userID int64) Settings {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.load(userID)
}

func (ss *SettingsStore) load(userID int64) Settings {
	out := defaultSettings()
	data, err := os.ReadFile(ss.path(userID))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			ss.store.logger.Warnf("read settings for user %d: %v", userID, err)
		}
		return out
	}
	var loaded Settings
	if err := json.Unmarshal(data, &loaded); err != nil {
		ss.store.logger.Warnf("decode settings for user %d: %v", userID, err)
		return out
	}
	if validTime(loaded.Morning) {
		out.Morning = loaded.Morning
	}
	if validTime(loaded.Evening) {
		out.Evening = loaded.Evening
	}
	out.CustomParams = loaded.CustomParams
	return out
}

// Save writes the user's settings atomically.
func (ss *SettingsStore) Save(userID int64, settings Settings) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.save(userID, settings)
}

func (ss *SettingsStore) save(userID int64, settings Settings) error {
	path := ss.path(userID)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("storage: create settings directory: %w", err)
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encode settings: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("storage: write settings: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("storage: rename settings: %w", err)
	}
	return nil
}

// SetReminderTimes stores the morning and evening reminder times.
func (ss *SettingsStore) SetReminderTimes(userID int64, morning, evening string) error {
	if !validTime(morning) || !validTime(evening) {
		return ErrInvalidTime
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()

	s := ss.load(userID)
	s.Morning, s.Evening = morning, evening
	return ss.save(userID, s)
}

// AddCustomParam appends a user-defined check-in parameter and returns its
// generated key.
func (ss *SettingsStore) AddCustomParam(userID int64, label string) (string, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return "", errors.New("storage: empty parameter label")
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()

	s := ss.load(userID)
	key := record.CustomParameterKey(len(s.CustomParams) + 1)
	s.CustomParams = append(s.CustomParams, record.Parameter{Key: key, Label: label})
	if err := ss.save(userID, s); err != nil {
		return "", err
	}
	return key, nil
}

// Parameters returns the user's full check-in parameter list.
func (ss *SettingsStore) Parameters(userID int64) []record.Parameter {
	return record.Parameters(ss.Load(userID).CustomParams)
}

func validTime(s string) bool {
	if len(s) != 5 {
		return false
	}
	_, err := time.Parse("15:04", s)
	return err == nil
}
