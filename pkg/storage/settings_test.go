package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/moodjournal/pkg/record"
)

func TestSettingsDefaults(t *testing.T) {
	ss := NewStore(t.TempDir()).Settings()
	s := ss.Load(user)
	assert.Equal(t, DefaultMorning, s.Morning)
	assert.Equal(t, DefaultEvening, s.Evening)
	assert.Empty(t, s.CustomParams)
	assert.Equal(t, record.BaseParameters, ss.Parameters(user))
}

func TestSetReminderTimes(t *testing.T) {
	ss := NewStore(t.TempDir()).Settings()

	require.NoError(t, ss.SetReminderTimes(user, "07:30", "22:15"))
	s := ss.Load(user)
	assert.Equal(t, "07:30", s.Morning)
	assert.Equal(t, "22:15", s.Evening)

	for _, bad := range [][2]string{{"7:30", "22:00"}, {"07:30", "25:00"}, {"morning", "evening"}} {
		assert.ErrorIs(t, ss.SetReminderTimes(user, bad[0], bad[1]), ErrInvalidTime)
	}
	assert.Equal(t, "07:30", ss.Load(user).Morning)
}

func TestAddCustomParam(t *testing.T) {
	ss := NewStore(t.TempDir()).Settings()

	key, err := ss.AddCustomParam(user, "Anxiety")
	require.NoError(t, err)
	assert.Equal(t, "custom1", key)

	key, err = ss.AddCustomParam(user, "  Focus ")
	require.NoError(t, err)
	assert.Equal(t, "custom2", key)

	_, err = ss.AddCustomParam(user, "   ")
	assert.Error(t, err)

	params := ss.Parameters(user)
	require.Len(t, params, len(record.BaseParameters)+2)
	assert.Equal(t, record.Parameter{Key: "custom2", Label: "Focus"}, params[len(params)-1])
}

func TestCorruptSettingsFallBack(t *testing.T) {
	s := NewStore(t.TempDir())
	path := filepath.Join(s.UserDir(user), "settings.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	got := s.Settings().Load(user)
	assert.Equal(t, DefaultMorning, got.Morning)

	require.NoError(t, os.WriteFile(path, []byte(`{"morning":"oops","evening":"20:00"}`), 0o600))
	got = s.Settings().Load(user)
	assert.Equal(t, DefaultMorning, got.Morning)
	assert.Equal(t, "20:00", got.Evening)
}
