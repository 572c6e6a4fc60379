package web

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/okian/recap/internal/domain/model"
)

const datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.6/bundles/datastar.js"

// BoardData is everything the board component draws.
type BoardData struct {
	View      model.View
	StartDate string
	EndDate   string
}

// Page renders the full document. The board subscribes to /web/updates as
// soon as it is initialised.
func Page(title string, data BoardData) templ.Component { //nolint:gocritic // hugeParam
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<!doctype html><html lang="en"><head><meta charset="utf-8">`)
		b.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		fmt.Fprintf(&b, `<title>%s</title>`, templ.EscapeString(title))
		fmt.Fprintf(&b, `<script type="module" src="%s"></script>`, datastarScript)
		b.WriteString(`<style>` + pageCSS + `</style></head>`)
		b.WriteString(`<body data-signals="{draft: ''}" data-init="@get('/web/updates')">`)
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
		if err := Board(data).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}

// Board renders the period, the ranked rows and the total. Its root id is
// stable so SSE patches morph it in place.
func Board(data BoardData) templ.Component { //nolint:gocritic // hugeParam
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		var b strings.Builder
		v := data.View
		b.WriteString(`<main id="board" class="recap">`)
		fmt.Fprintf(&b, `<header><h1>Weekly Recap</h1><p class="period">%s &ndash; %s</p></header>`,
			templ.EscapeString(data.StartDate), templ.EscapeString(data.EndDate))

		b.WriteString(`<section id="leaderboard">`)
		if v.State() == model.StateEmpty {
			b.WriteString(`<div class="empty-state"><p>No cappers added yet. Click "Add Capper" to get started.</p></div>`)
		}
		for i := range v.Rows {
			writeRow(&b, &v.Rows[i])
		}
		b.WriteString(`</section>`)

		b.WriteString(`<button id="addRowBtn" data-on:click="@post('/web/add')">Add Capper</button>`)

		totalClass := "total"
		if v.TotalNegative {
			totalClass += " negative"
		}
		fmt.Fprintf(&b, `<footer id="totalValue" class="%s"><span>TOTAL</span><span id="totalUnits">%s</span><span>UNITS</span></footer>`,
			totalClass, templ.EscapeString(v.TotalDisplay))
		b.WriteString(`</main>`)

		_, err := io.WriteString(w, b.String())
		return err
	})
}

func writeRow(b *strings.Builder, r *model.Row) {
	classes := []string{"player-row"}
	sign := "negative"
	if r.Nonnegative {
		sign = "positive"
	}
	classes = append(classes, sign)
	if r.TopTier {
		classes = append(classes, "top-3")
	}
	if r.PendingRemoval {
		classes = append(classes, "removing")
	}
	id := templ.EscapeString(r.ID)

	fmt.Fprintf(b, `<div id="row-%s" class="%s" data-index="%d">`, id, strings.Join(classes, " "), r.Index)
	fmt.Fprintf(b, `<div class="rank">%s</div>`, templ.EscapeString(r.Rank))
	b.WriteString(`<div class="player-info">`)
	writeInput(b, r, model.FieldName, "player-input player-name", r.Name)
	writeInput(b, r, model.FieldRole, "player-input player-role", r.Role)
	b.WriteString(`</div><div class="units-wrapper">`)
	writeInput(b, r, model.FieldUnits, "units-input "+sign, r.UnitsDisplay)
	b.WriteString(`<div class="units-label">UNITS</div></div>`)
	fmt.Fprintf(b, `<button class="delete-btn" title="Remove capper" data-on:click="@delete('/web/rows/%s')"%s>&times;</button>`,
		id, disabledAttr(r.PendingRemoval))
	b.WriteString(`</div>`)
}

func writeInput(b *strings.Builder, r *model.Row, field model.Field, class, value string) {
	id := templ.EscapeString(r.ID)
	fmt.Fprintf(b,
		`<input type="text" id="%s-%s" class="%s" value="%s" data-field="%s" data-index="%d" data-on:change="$draft = el.value; @post('/web/rows/%s/%s')"%s>`,
		field, id, class, templ.EscapeString(value), field, r.Index, id, field, disabledAttr(r.PendingRemoval))
}

func disabledAttr(disabled bool) string {
	if disabled {
		return " disabled"
	}
	return ""
}

// focusScript selects the name input of a freshly added entry.
func focusScript(id string) string {
	return fmt.Sprintf(`document.getElementById(%q)?.select()`, string(model.FieldName)+"-"+id)
}

const pageCSS = `body{font-family:system-ui,sans-serif;background:#0d1117;color:#e6edf3;margin:0}
.recap{max-width:640px;margin:2rem auto;padding:1rem}
.player-row{display:flex;align-items:center;gap:.75rem;padding:.5rem;border-bottom:1px solid #30363d;transition:opacity .3s,transform .3s}
.player-row.top-3 .rank{color:#f0b429;font-weight:700}
.player-row.removing{opacity:0;transform:translateX(-1rem)}
.player-input,.units-input{background:transparent;border:0;color:inherit;font:inherit}
.units-input.positive{color:#3fb950}.units-input.negative{color:#f85149}
.total{display:flex;justify-content:space-between;margin-top:1rem;font-weight:700;color:#3fb950}
.total.negative{color:#f85149}
.empty-state{text-align:center;color:#8b949e;padding:2rem}`
