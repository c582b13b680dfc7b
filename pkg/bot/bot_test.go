package bot

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/moodjournal/internal/testing/chattest"
	"github.com/entrhq/moodjournal/pkg/config"
	"github.com/entrhq/moodjournal/pkg/credentials"
	"github.com/entrhq/moodjournal/pkg/i18n"
	"github.com/entrhq/moodjournal/pkg/record"
	"github.com/entrhq/moodjournal/pkg/storage"
	"github.com/entrhq/moodjournal/pkg/types"
)

const (
	user     int64 = 100
	stranger int64 = 666
)

type fakeAnalyzer struct {
	mu    sync.Mutex
	calls []string
}

func (a *fakeAnalyzer) Analyze(_ context.Context, text string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, text)
	return "A reading.\nMETRICS: {\"intensity\": 1.5, \"emotions\": [\"радость\", \"страх\"]}"
}

type harness struct {
	bot       *Bot
	store     *storage.Store
	cache     *credentials.Cache
	transport *chattest.Transport
	analyzer  *fakeAnalyzer
	nextMsg   types.MessageID
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		cache:     credentials.NewCache(),
		transport: chattest.New(),
		analyzer:  &fakeAnalyzer{},
		nextMsg:   1,
	}
	h.store = storage.NewStore(t.TempDir(), storage.WithPasswords(h.cache))
	timeouts := config.Default().Timeouts
	h.bot = New(h.store, h.cache, h.analyzer, h.transport, i18n.MustInit("en"),
		WithAuthorizer(func(id int64) bool { return id == user }),
		WithTimeouts(timeouts),
		WithChartDir(t.TempDir()),
		WithClock(func() time.Time { return time.Date(2024, 5, 10, 21, 0, 0, 0, time.Local) }),
	)
	t.Cleanup(h.bot.Close)
	return h
}

func (h *harness) text(from int64, s string) {
	h.nextMsg++
	h.bot.Handle(context.Background(), types.NewTextEvent(from, h.nextMsg, s))
}

func (h *harness) press(payload string) {
	h.bot.Handle(context.Background(), types.NewButtonEvent(user, 0, payload))
}

func (h *harness) read(t *testing.T, c record.Category) []record.Record {
	t.Helper()
	recs, err := h.store.ReadAll(context.Background(), user, c)
	require.NoError(t, err)
	return recs
}

func (h *harness) lastText(t *testing.T) string {
	t.Helper()
	last, ok := h.transport.Last(user)
	require.True(t, ok)
	return last.Message.Text
}

func TestUnauthorizedUsersAreIgnored(t *testing.T) {
	h := newHarness(t)
	h.text(stranger, "/start")
	h.text(stranger, "hello")
	assert.Empty(t, h.transport.Messages(stranger))
}

func TestStartShowsMenu(t *testing.T) {
	h := newHarness(t)
	h.text(user, "/start")
	assert.True(t, h.transport.Contains(user, "I keep your mood and dream journal"))
	menu, ok := h.transport.LastWithKeyboard(user)
	require.True(t, ok)
	assert.Contains(t, chattest.Payloads(menu.Message.Keyboard), "mg_checkin")
	assert.Contains(t, chattest.Payloads(menu.Message.Keyboard), "mg_export")
}

func TestUnknownCommandAndHint(t *testing.T) {
	h := newHarness(t)
	h.text(user, "/nope")
	assert.Equal(t, "Unknown command. Type /menu to see what I can do.", h.lastText(t))
	h.text(user, "just chatting")
	assert.Equal(t, "I did not understand that. Type /menu to see what I can do.", h.lastText(t))
}

func TestCheckinThroughBot(t *testing.T) {
	h := newHarness(t)
	h.press("mg_checkin")
	for _, p := range record.BaseParameters {
		h.press("m_" + p.Key + "_1")
	}
	h.text(user, "fine day")

	recs := h.read(t, record.CategoryMood)
	require.Len(t, recs, 1)
	assert.Equal(t, "fine day", recs[0][record.KeySummary])
	assert.Equal(t, "2024-05-10", recs[0][record.KeyDate])
	// menu is shown again after the check-in
	menu, ok := h.transport.LastWithKeyboard(user)
	require.True(t, ok)
	assert.Equal(t, "<b>Main menu</b>", menu.Message.Text)
}

func TestCustomParameterJoinsCheckin(t *testing.T) {
	h := newHarness(t)
	h.text(user, "/param")
	assert.Equal(t, "Usage: /param <label>", h.lastText(t))

	h.text(user, "/param Focus")
	h.text(user, "/checkin")
	for _, p := range record.BaseParameters {
		h.press("m_" + p.Key + "_0")
	}
	last, _ := h.transport.LastWithKeyboard(user)
	assert.Contains(t, last.Message.Text, "Focus")
	h.press("m_custom1_2")
	h.text(user, "ok")

	recs := h.read(t, record.CategoryMood)
	require.Len(t, recs, 1)
	assert.EqualValues(t, 2, recs[0]["custom1"])
}

func TestDreamThroughBot(t *testing.T) {
	h := newHarness(t)
	h.text(user, "/dream")
	h.press("dream_write:2024-05-10")
	h.text(user, "I flew")
	h.text(user, "over water")
	h.text(user, "/done")

	assert.Equal(t, []string{"I flew\nover water"}, h.analyzer.calls)
	recs := h.read(t, record.CategoryDreams)
	require.Len(t, recs, 1)
	assert.Equal(t, "A reading.", recs[0][record.KeyAnalysis])

	h.text(user, "/done")
	assert.Equal(t, "No dream is being recorded. Use /dream to start.", h.lastText(t))
}

func TestInlineDream(t *testing.T) {
	h := newHarness(t)
	h.text(user, "/dream a red door")
	assert.Equal(t, []string{"a red door"}, h.analyzer.calls)
	assert.Len(t, h.read(t, record.CategoryDreams), 1)
}

func TestPasswordPromptTakesPrecedence(t *testing.T) {
	h := newHarness(t)
	h.press("mg_pass")
	h.press("pass_set")
	h.text(user, "/checkin")

	pw, ok := h.cache.Get(user)
	require.True(t, ok)
	assert.Equal(t, "/checkin", pw)
	assert.Contains(t, h.transport.Deleted(), h.nextMsg)

	h.text(user, "/dream encrypted dream")
	raw := h.read(t, record.CategoryDreams)
	require.Len(t, raw, 1)
	assert.Equal(t, "encrypted dream", raw[0][record.KeyDream])
}

func TestDirectPasswordAndLockedEntries(t *testing.T) {
	h := newHarness(t)
	h.text(user, "/setpass hunter2")
	assert.Equal(t, "Password set. New entries will be encrypted.", h.lastText(t))
	h.text(user, "/dream secret")

	other := storage.NewStore(h.store.Root())
	recs, stats, err := other.ReadAllWithStats(context.Background(), user, record.CategoryDreams)
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Equal(t, 1, stats.Locked())

	h.text(user, "/login hunter2")
	assert.Equal(t, "Password accepted.", h.lastText(t))
}

func TestSetReminderTimes(t *testing.T) {
	h := newHarness(t)
	h.text(user, "/set 7:30")
	assert.Equal(t, "Usage: /set HH:MM HH:MM (morning and evening)", h.lastText(t))
	h.text(user, "/set 25:00 10:00")
	assert.Equal(t, "Usage: /set HH:MM HH:MM (morning and evening)", h.lastText(t))

	h.text(user, "/set 07:30 22:15")
	assert.Equal(t, "Reminder times saved: morning 07:30, evening 22:15.", h.lastText(t))
	h.press("mg_time")
	assert.Contains(t, h.lastText(t), "morning 07:30, evening 22:15")
}

func TestCancel(t *testing.T) {
	h := newHarness(t)
	h.text(user, "/cancel")
	assert.Equal(t, "Nothing to cancel.", h.lastText(t))

	h.text(user, "/checkin")
	h.text(user, "/cancel")
	assert.Equal(t, "Cancelled.", h.lastText(t))
	h.press("m_mood_1")
	assert.Empty(t, h.read(t, record.CategoryMood))
}

func TestArchiveAndLongDream(t *testing.T) {
	h := newHarness(t)
	long := strings.Repeat("word ", 1000)
	h.text(user, "/dream "+long)
	h.press("dream_none:2024-05-09")

	h.text(user, "/dreams")
	archive, ok := h.transport.LastWithKeyboard(user)
	require.True(t, ok)
	assert.Equal(t, []string{"showdream_2024-05-10"}, chattest.Payloads(archive.Message.Keyboard))

	before := len(h.transport.Messages(user))
	h.press("showdream_2024-05-10")
	shown := h.transport.Messages(user)[before:]
	require.Len(t, shown, 2)
	for _, m := range shown {
		assert.LessOrEqual(t, len([]rune(m.Message.Text)), types.MaxTextLength)
	}

	h.press("showdream_2024-01-01")
	assert.Equal(t, "No dream recorded on 2024-01-01.", h.lastText(t))
}

func TestStats(t *testing.T) {
	h := newHarness(t)
	h.text(user, "/stats")
	assert.Equal(t, "No emotions recorded yet.", h.lastText(t))

	h.text(user, "/dream one")
	h.text(user, "/dream two")
	h.text(user, "/stats")
	assert.Equal(t, "<b>Emotions across your dreams</b>\nрадость: 2\nстрах: 2", h.lastText(t))
}

func TestChart(t *testing.T) {
	h := newHarness(t)
	h.press("gp_mood:week:0")
	assert.Equal(t, "No data for this period.", h.lastText(t))

	ctx := context.Background()
	for i := 0; i < 20; i++ {
		date := record.FormatDate(time.Date(2024, 4, 20+i, 0, 0, 0, 0, time.UTC))
		require.NoError(t, h.store.Write(ctx, user, record.CategoryMood, record.Record{"date": date, "mood": i%7 - 3}))
	}
	h.press("mg_graph")
	params, _ := h.transport.LastWithKeyboard(user)
	assert.Contains(t, chattest.Payloads(params.Message.Keyboard), "g_cim_score")

	h.press("g_mood")
	periods, _ := h.transport.LastWithKeyboard(user)
	assert.Contains(t, chattest.Payloads(periods.Message.Keyboard), "gp_mood:month:0")

	h.press("gp_mood:week:0")
	require.Len(t, h.transport.Photos(), 1)
	nav, _ := h.transport.LastWithKeyboard(user)
	assert.Equal(t, []string{"gp_mood:week:1"}, chattest.Payloads(nav.Message.Keyboard))

	h.press("gp_unknown:week:0")
	assert.Len(t, h.transport.Photos(), 1)
}

func TestSpectrum(t *testing.T) {
	h := newHarness(t)
	h.press("mg_fft")
	params, ok := h.transport.LastWithKeyboard(user)
	require.True(t, ok)
	assert.Equal(t, "Spectrum of which parameter?", params.Message.Text)
	assert.Contains(t, chattest.Payloads(params.Message.Keyboard), "fft_mood")
	assert.Contains(t, chattest.Payloads(params.Message.Keyboard), "mg_back")

	h.press("fft_mood")
	assert.Equal(t, "Not enough data for a spectrum.", h.lastText(t))
	assert.Empty(t, h.transport.Photos())

	ctx := context.Background()
	for i := 0; i < 28; i += 2 {
		date := record.FormatDate(time.Date(2024, 4, 1+i, 0, 0, 0, 0, time.UTC))
		require.NoError(t, h.store.Write(ctx, user, record.CategoryMood, record.Record{"date": date, "mood": i%7 - 3}))
	}
	h.press("fft_mood")
	photos := h.transport.Photos()
	require.Len(t, photos, 1)
	assert.FileExists(t, photos[0])
	assert.Contains(t, photos[0], "fft_100_mood.png")

	h.press("fft_unknown")
	assert.Len(t, h.transport.Photos(), 1)
}

func TestExport(t *testing.T) {
	h := newHarness(t)
	h.text(user, "/export")
	assert.Equal(t, "Nothing to export yet.", h.lastText(t))

	h.text(user, "/dream a fox")
	h.press("mg_export")
	require.Len(t, h.transport.Documents(), 1)
	assert.Equal(t, "Your export is ready.", h.lastText(t))
}

func TestMissedThroughBot(t *testing.T) {
	h := newHarness(t)
	h.text(user, "/missed")
	h.press("missed_mood")
	cal, ok := h.transport.LastWithKeyboard(user)
	require.True(t, ok)
	assert.Equal(t, "ci_2024-05-09", cal.Message.Keyboard[0][0].Payload)

	h.press("ci_2024-05-09")
	for _, p := range record.BaseParameters {
		h.press("m_" + p.Key + "_x")
	}
	h.text(user, "late entry")
	recs := h.read(t, record.CategoryMood)
	require.Len(t, recs, 1)
	assert.Equal(t, "2024-05-09", recs[0][record.KeyDate])
}

func TestCommandsAreListed(t *testing.T) {
	h := newHarness(t)
	names := make([]string, 0)
	for _, c := range h.bot.Commands() {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, "checkin")
	assert.Contains(t, names, "cancel")
	assert.Len(t, names, 15)
}
