package bot

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/entrhq/moodjournal/pkg/charts"
	"github.com/entrhq/moodjournal/pkg/credentials"
	"github.com/entrhq/moodjournal/pkg/record"
	"github.com/entrhq/moodjournal/pkg/types"
	"github.com/entrhq/moodjournal/pkg/views"
)

// Button payload prefixes owned by the bot.
const (
	menuPrefix        = "mg_"
	passPrefix        = "pass_"
	chartParamPrefix  = "g_"
	chartPeriodPrefix = "gp_"
	spectrumPrefix    = "fft_"
	showDreamPrefix   = "showdream_"
	dreamPagePrefix   = "dreampg_"
)

// Main menu actions, the part after menuPrefix.
const (
	menuCheckin  = "checkin"
	menuDream    = "dream"
	menuGraph    = "graph"
	menuFFT      = "fft"
	menuDreams   = "dreams"
	menuStats    = "stats"
	menuMissed   = "missed"
	menuTime     = "time"
	menuPassword = "pass"
	menuExport   = "export"
	menuBack     = "back"
)

// maxChartPoints bounds the points drawn for long periods.
const maxChartPoints = 60

func (b *Bot) backButton() types.Button {
	return types.Button{Text: b.loc.T("btn_back"), Payload: menuPrefix + menuBack}
}

func (b *Bot) showMenu(ctx context.Context, userID int64) {
	item := func(id, action string) types.Button {
		return types.Button{Text: b.loc.T(id), Payload: menuPrefix + action}
	}
	kb := types.Columns([]types.Button{
		item("menu_checkin", menuCheckin),
		item("menu_dream", menuDream),
		item("menu_graph", menuGraph),
		item("menu_fft", menuFFT),
		item("menu_dreams", menuDreams),
		item("menu_stats", menuStats),
		item("menu_missed", menuMissed),
		item("menu_time", menuTime),
		item("menu_password", menuPassword),
		item("menu_export", menuExport),
	}, 2)
	b.send(ctx, userID, types.NewKeyboardMessage(b.loc.T("menu_title"), kb))
}

func (b *Bot) handleMenu(ctx context.Context, userID int64, action string) {
	var err error
	switch action {
	case menuCheckin:
		err = b.mood.Start(ctx, userID, "")
	case menuDream:
		err = b.dream.Offer(ctx, userID, "")
	case menuGraph:
		b.offerParams(ctx, userID)
	case menuFFT:
		b.offerSpectrumParams(ctx, userID)
	case menuDreams:
		b.showArchive(ctx, userID, "0")
	case menuStats:
		b.showStats(ctx, userID)
	case menuMissed:
		err = b.backfill.Offer(ctx, userID)
	case menuTime:
		s := b.store.Settings().Load(userID)
		b.reply(ctx, userID, b.loc.Tf("time_current", s.Morning, s.Evening))
	case menuPassword:
		kb := types.Keyboard{
			types.Row(types.Button{Text: b.loc.T("pass_btn_set"), Payload: passPrefix + "set"}),
			types.Row(types.Button{Text: b.loc.T("pass_btn_login"), Payload: passPrefix + "login"}),
			types.Row(b.backButton()),
		}
		b.send(ctx, userID, types.NewKeyboardMessage(b.loc.T("pass_menu"), kb))
	case menuExport:
		b.export(ctx, userID)
	case menuBack:
		b.showMenu(ctx, userID)
	default:
		b.logger.Warnf("unknown menu action %q from user %d", action, userID)
	}
	if err != nil {
		b.fail(ctx, userID, "menu "+action, err)
	}
}

func (b *Bot) handlePassword(ctx context.Context, userID int64, action string) {
	switch action {
	case "set":
		b.requestPassword(ctx, userID, credentials.KindSet)
	case "login":
		b.requestPassword(ctx, userID, credentials.KindLogin)
	default:
		b.logger.Warnf("unknown password action %q from user %d", action, userID)
	}
}

func (b *Bot) graphParams(userID int64) []record.Parameter {
	return record.GraphParameters(b.store.Settings().Load(userID).CustomParams)
}

func (b *Bot) offerParams(ctx context.Context, userID int64) {
	buttons := lo.Map(b.graphParams(userID), func(p record.Parameter, _ int) types.Button {
		return types.Button{Text: b.paramLabel(p), Payload: chartParamPrefix + p.Key}
	})
	kb := append(types.Columns(buttons, 2), types.Row(b.backButton()))
	b.send(ctx, userID, types.NewKeyboardMessage(b.loc.T("graph_pick_param"), kb))
}

func chartPayload(param string, period views.Period, page int) string {
	return fmt.Sprintf("%s%s:%s:%d", chartPeriodPrefix, param, period, page)
}

func (b *Bot) offerPeriods(ctx context.Context, userID int64, param string) {
	buttons := lo.Map(views.Periods, func(p views.Period, _ int) types.Button {
		return types.Button{Text: b.loc.T("period_" + string(p)), Payload: chartPayload(param, p, 0)}
	})
	kb := append(types.Columns(buttons, 2), types.Row(types.Button{
		Text:    b.loc.T("btn_back"),
		Payload: menuPrefix + menuGraph,
	}))
	b.send(ctx, userID, types.NewKeyboardMessage(b.loc.T("graph_pick_period"), kb))
}

// handleChartPeriod renders <param>:<period>:<page>.
func (b *Bot) handleChartPeriod(ctx context.Context, userID int64, rest string) {
	parts := strings.Split(rest, ":")
	if len(parts) != 3 {
		b.logger.Warnf("malformed chart payload %q from user %d", rest, userID)
		return
	}
	period := views.Period(parts[1])
	page, err := strconv.Atoi(parts[2])
	if err != nil || !period.Valid() || page < 0 {
		b.logger.Warnf("malformed chart payload %q from user %d", rest, userID)
		return
	}
	param, ok := lo.Find(b.graphParams(userID), func(p record.Parameter) bool { return p.Key == parts[0] })
	if !ok {
		b.logger.Warnf("unknown chart parameter %q from user %d", parts[0], userID)
		return
	}
	b.sendChart(ctx, userID, param, period, page)
}

func (b *Bot) sendChart(ctx context.Context, userID int64, param record.Parameter, period views.Period, page int) {
	moodRecs, err := b.store.ReadAll(ctx, userID, record.CategoryMood)
	if err != nil {
		b.fail(ctx, userID, "read mood", err)
		return
	}
	dreamRecs, err := b.store.ReadAll(ctx, userID, record.CategoryDreams)
	if err != nil {
		b.fail(ctx, userID, "read dreams", err)
		return
	}

	series, older := views.Slice(views.DailySeries(moodRecs, dreamRecs, param.Key), period, page)
	series = views.Resample(series, maxChartPoints)
	title := b.loc.Tf("graph_caption", b.paramLabel(param), b.loc.T("period_"+string(period)))
	path := filepath.Join(b.chartDir, fmt.Sprintf("chart_%d_%s_%s_%d.png", userID, param.Key, period, page))

	err = charts.RenderLine(series, title, path)
	if errors.Is(err, charts.ErrNoData) {
		b.reply(ctx, userID, b.loc.T("graph_no_data"))
		return
	}
	if err != nil {
		b.fail(ctx, userID, "render chart", err)
		return
	}
	if err := b.transport.SendPhoto(ctx, userID, path, title); err != nil {
		b.fail(ctx, userID, "send chart", err)
		return
	}

	var nav []types.Button
	if older {
		nav = append(nav, types.Button{Text: b.loc.T("graph_older"), Payload: chartPayload(param.Key, period, page+1)})
	}
	if page > 0 {
		nav = append(nav, types.Button{Text: b.loc.T("graph_newer"), Payload: chartPayload(param.Key, period, page-1)})
	}
	if len(nav) > 0 {
		b.send(ctx, userID, types.NewKeyboardMessage(title, types.Keyboard{nav}))
	}
}

func (b *Bot) offerSpectrumParams(ctx context.Context, userID int64) {
	buttons := lo.Map(b.graphParams(userID), func(p record.Parameter, _ int) types.Button {
		return types.Button{Text: b.paramLabel(p), Payload: spectrumPrefix + p.Key}
	})
	kb := append(types.Columns(buttons, 2), types.Row(b.backButton()))
	b.send(ctx, userID, types.NewKeyboardMessage(b.loc.T("fft_pick_param"), kb))
}

// sendSpectrum renders the amplitude spectrum of a parameter's whole history.
func (b *Bot) sendSpectrum(ctx context.Context, userID int64, key string) {
	param, ok := lo.Find(b.graphParams(userID), func(p record.Parameter) bool { return p.Key == key })
	if !ok {
		b.logger.Warnf("unknown spectrum parameter %q from user %d", key, userID)
		return
	}
	moodRecs, err := b.store.ReadAll(ctx, userID, record.CategoryMood)
	if err != nil {
		b.fail(ctx, userID, "read mood", err)
		return
	}
	dreamRecs, err := b.store.ReadAll(ctx, userID, record.CategoryDreams)
	if err != nil {
		b.fail(ctx, userID, "read dreams", err)
		return
	}

	spectrum := views.Spectrum(views.DailySeries(moodRecs, dreamRecs, param.Key))
	title := b.loc.Tf("fft_caption", b.paramLabel(param))
	path := filepath.Join(b.chartDir, fmt.Sprintf("fft_%d_%s.png", userID, param.Key))

	err = charts.RenderSpectrum(spectrum, title, path)
	if errors.Is(err, charts.ErrNoData) {
		b.reply(ctx, userID, b.loc.T("fft_no_data"))
		return
	}
	if err != nil {
		b.fail(ctx, userID, "render spectrum", err)
		return
	}
	if err := b.transport.SendPhoto(ctx, userID, path, title); err != nil {
		b.fail(ctx, userID, "send spectrum", err)
	}
}

func (b *Bot) showArchive(ctx context.Context, userID int64, pageArg string) {
	page, err := strconv.Atoi(pageArg)
	if err != nil {
		b.logger.Warnf("malformed archive page %q from user %d", pageArg, userID)
		return
	}
	recs, stats, err := b.store.ReadAllWithStats(ctx, userID, record.CategoryDreams)
	if err != nil {
		b.fail(ctx, userID, "read dreams", err)
		return
	}
	b.reportUnavailable(ctx, userID, stats.Total())

	dates := views.DatesWithDreams(recs)
	if len(dates) == 0 {
		b.reply(ctx, userID, b.loc.T("dreams_none"))
		return
	}
	page = max(0, min(page, views.PageCount(len(dates))-1))
	chunk, hasPrev, hasNext := views.Page(dates, page)

	buttons := lo.Map(chunk, func(date string, _ int) types.Button {
		label := date
		if d, err := record.ParseDate(date); err == nil {
			label = d.Format("02.01")
		}
		return types.Button{Text: label, Payload: showDreamPrefix + date}
	})
	kb := types.Columns(buttons, 4)
	var nav []types.Button
	if hasPrev {
		nav = append(nav, types.Button{Text: b.loc.T("dreams_prev"), Payload: dreamPagePrefix + strconv.Itoa(page-1)})
	}
	if hasNext {
		nav = append(nav, types.Button{Text: b.loc.T("dreams_next"), Payload: dreamPagePrefix + strconv.Itoa(page+1)})
	}
	if len(nav) > 0 {
		kb = append(kb, nav)
	}
	text := b.loc.Tf("dreams_pick", page+1, views.PageCount(len(dates)))
	b.send(ctx, userID, types.NewKeyboardMessage(text, kb))
}

func (b *Bot) showDreams(ctx context.Context, userID int64, date string) {
	recs, err := b.store.ReadAll(ctx, userID, record.CategoryDreams)
	if err != nil {
		b.fail(ctx, userID, "read dreams", err)
		return
	}
	found := views.DreamsOn(recs, date)
	if len(found) == 0 {
		b.reply(ctx, userID, b.loc.Tf("dreams_not_found", date))
		return
	}
	for _, rec := range found {
		b.reply(ctx, userID, fmt.Sprintf("🌙 %s\n%s\n\n🌓 %s", date, rec.String(record.KeyDream), rec.String(record.KeyAnalysis)))
	}
}

func (b *Bot) showStats(ctx context.Context, userID int64) {
	recs, stats, err := b.store.ReadAllWithStats(ctx, userID, record.CategoryDreams)
	if err != nil {
		b.fail(ctx, userID, "read dreams", err)
		return
	}
	b.reportUnavailable(ctx, userID, stats.Total())

	counts := views.EmotionCounts(recs)
	if len(counts) == 0 {
		b.reply(ctx, userID, b.loc.T("stats_none"))
		return
	}
	lines := append([]string{b.loc.T("stats_title")}, lo.Map(counts, func(c views.EmotionCount, _ int) string {
		return fmt.Sprintf("%s: %d", c.Emotion, c.Count)
	})...)
	b.reply(ctx, userID, strings.Join(lines, "\n"))
}

func (b *Bot) reportUnavailable(ctx context.Context, userID int64, skipped int) {
	if skipped > 0 {
		b.reply(ctx, userID, b.loc.Tf("unavailable_entries", skipped))
	}
}
