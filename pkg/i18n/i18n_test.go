package i18n

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslation(t *testing.T) {
	cases := []struct {
		lang, expected string
	}{
		{"en", "Cancelled."},
		{"ru", "Отменено."},
		{"xx-invalid", "Cancelled."},
	}

	for _, tc := range cases {
		t.Run(tc.lang, func(t *testing.T) {
			loc, err := Init(tc.lang)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, loc.T("cancelled"))
		})
	}
}

func TestFormatting(t *testing.T) {
	loc := MustInit("en")
	assert.Equal(t, "Check-in for 2024-05-01 saved.", loc.Tf("mood_saved", "2024-05-01"))
	assert.Equal(t, "<b>Mood</b> (1/6)", loc.Tf("mood_param_prompt", "Mood", 1, 6))
}

func TestMissingMessageReturnsID(t *testing.T) {
	loc := MustInit("ru")
	assert.Equal(t, "no_such_message", loc.T("no_such_message"))
	assert.False(t, loc.Has("no_such_message"))
	assert.True(t, loc.Has("param_mood"))
}

func TestCatalogsHaveSameKeys(t *testing.T) {
	load := func(name string) map[string]string {
		data, err := localeFS.ReadFile("locales/" + name + ".json")
		require.NoError(t, err)
		var m map[string]string
		require.NoError(t, json.Unmarshal(data, &m))
		return m
	}

	en, ru := load("en"), load("ru")
	for id := range en {
		assert.Contains(t, ru, id)
	}
	assert.Len(t, ru, len(en))
}
