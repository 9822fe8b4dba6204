package join

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/jgxilos/wdd231/internal/dom"
	"github.com/jgxilos/wdd231/internal/notify"
)

var now = time.Date(2025, 10, 5, 18, 30, 0, 0, time.UTC)

func valid() Application {
	return Application{
		FirstName:       "Ana",
		LastName:        "Pérez",
		Email:           "ana@example.com",
		Phone:           "555-123-4567",
		Organization:    "Café Morón",
		MembershipLevel: LevelGold,
		Timestamp:       "2025-10-05T14:05:00.000Z",
	}
}

func TestValidateAcceptsValidApplication(t *testing.T) {
	assert.NoError(t, valid().Validate(now))

	a := valid()
	a.Phone = "+58 (424) 123-4567"
	a.MembershipLevel = ""
	a.Timestamp = ""
	assert.NoError(t, a.Validate(now))
}

func TestValidateRejectsBadFields(t *testing.T) {
	cases := []struct {
		name  string
		edit  func(*Application)
		field string
	}{
		{"missing first name", func(a *Application) { a.FirstName = "" }, "firstName"},
		{"missing organization", func(a *Application) { a.Organization = "" }, "organization"},
		{"email without domain dot", func(a *Application) { a.Email = "ana@example" }, "email"},
		{"email with space", func(a *Application) { a.Email = "ana maria@example.com" }, "email"},
		{"phone letters", func(a *Application) { a.Phone = "call me" }, "phone"},
		{"phone too short", func(a *Application) { a.Phone = "12-34" }, "phone"},
		{"unknown level", func(a *Application) { a.MembershipLevel = "platinum" }, "membershipLevel"},
		{"future timestamp", func(a *Application) { a.Timestamp = "2030-01-01T00:00:00.000Z" }, "timestamp"},
		{"garbage timestamp", func(a *Application) { a.Timestamp = "yesterday" }, "timestamp"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := valid()
			tc.edit(&a)

			errs := FieldErrors(a.Validate(now))

			require.Contains(t, errs, tc.field)
			assert.Len(t, errs, 1)
		})
	}
}

func TestQueryRoundTrip(t *testing.T) {
	a := valid()
	a.Description = "Coffee & pastries"

	got := FromQuery(a.Query())

	assert.Equal(t, a, got)
	assert.False(t, a.Query().Has("title"))
}

func TestFromQueryTrims(t *testing.T) {
	a := FromQuery(url.Values{"firstName": {"  Ana "}, "email": {" ana@example.com"}})

	assert.Equal(t, "Ana", a.FirstName)
	assert.Equal(t, "ana@example.com", a.Email)
	assert.False(t, a.Complete())
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "October 5, 2025 at 2:05 PM", FormatTimestamp("2025-10-05T14:05:00.000Z"))
	assert.Equal(t, "January 9, 2025 at 9:07 AM", FormatTimestamp("2025-01-09T09:07:00-04:00"))
	assert.Equal(t, "not a date", FormatTimestamp("not a date"))
}

const thankYouPage = `<div id="summary-card" class="summary-card">
<p id="displayName"></p><p id="displayEmail"></p><p id="displayPhone"></p>
<p id="displayOrganization"></p><p id="displayLevel"></p><p id="displayTimestamp"></p>
</div>`

func TestSummaryFillsCard(t *testing.T) {
	doc, err := dom.Parse(strings.NewReader(thankYouPage))
	require.NoError(t, err)

	Summary(doc, valid())

	text := func(id string) string { return dom.TextContent(dom.FindByID(doc, id)) }
	assert.Equal(t, "Ana Pérez", text("displayName"))
	assert.Equal(t, "Café Morón", text("displayOrganization"))
	assert.Equal(t, "Gold Membership", text("displayLevel"))
	assert.Equal(t, "October 5, 2025 at 2:05 PM", text("displayTimestamp"))
}

func TestSummaryMissingFieldShowsErrorCard(t *testing.T) {
	doc, err := dom.Parse(strings.NewReader(thankYouPage))
	require.NoError(t, err)
	a := valid()
	a.Phone = ""

	Summary(doc, a)

	card := dom.FindByID(doc, SummaryCardID)
	assert.Contains(t, dom.TextContent(card), "Unable to load application data")
	assert.Contains(t, dom.TextContent(card), OfficeEmail)
	assert.Nil(t, dom.FindByID(doc, "displayName"))
}

const joinPage = `<form id="membershipForm" method="post" action="/join">
<input type="text" name="firstName">
<input type="email" name="email">
<input type="hidden" id="timestamp" name="timestamp">
<label><input type="radio" name="membershipLevel" value="np"></label>
<label><input type="radio" name="membershipLevel" value="gold"></label>
<textarea name="description"></textarea>
</form><div id="level-dialogs"></div>`

func TestPopulateAndErrors(t *testing.T) {
	doc, err := dom.Parse(strings.NewReader(joinPage))
	require.NoError(t, err)
	a := valid()
	a.Email = "bad"
	a.Description = "<b>hi</b>"

	SetTimestamp(doc, now)
	Populate(doc, a)
	RenderErrors(doc, FieldErrors(a.Validate(now)))

	out := dom.RenderString(doc)
	assert.Contains(t, out, `value="2025-10-05T18:30:00.000Z"`)
	assert.Contains(t, out, `value="Ana"`)
	assert.Contains(t, out, `value="gold" checked="checked"`)
	assert.NotContains(t, out, `value="np" checked`)
	assert.Contains(t, out, "&lt;b&gt;hi&lt;/b&gt;")
	assert.Contains(t, out, `aria-invalid="true"`)

	box := dom.Find(doc, func(n *html.Node) bool { return dom.HasClass(n, "form-errors") })
	require.NotNil(t, box)
	assert.Contains(t, dom.TextContent(box), "email: ")
}

func TestLevelDialogs(t *testing.T) {
	fsys := fstest.MapFS{
		"gold.md": {Data: []byte("# Gold\n\n- Spotlight placement\n- <script>x</script>\n")},
		"np.md":   {Data: []byte("Free for **non-profits**.")},
	}

	levels, err := LoadLevels(fsys)
	require.NoError(t, err)
	require.Len(t, levels, 2)
	assert.Equal(t, LevelNonProfit, levels[0].Level)
	assert.Equal(t, LevelGold, levels[1].Level)

	doc, err := dom.Parse(strings.NewReader(joinPage))
	require.NoError(t, err)
	require.NoError(t, RenderDialogs(doc, levels))

	gold := dom.FindByID(doc, "modal-gold")
	require.NotNil(t, gold)
	assert.Equal(t, "dialog", gold.Data)
	assert.NotNil(t, dom.FindTag(gold, "li"))
	assert.Nil(t, dom.FindTag(gold, "script"))
	np := dom.FindByID(doc, "modal-np")
	require.NotNil(t, np)
	assert.NotNil(t, dom.FindTag(np, "strong"))
}

type recordingSender struct {
	sent []notify.Message
}

func (r *recordingSender) Send(_ context.Context, msg notify.Message) (notify.Receipt, error) {
	r.sent = append(r.sent, msg)
	return notify.Receipt{ID: "test"}, nil
}

func TestNotify(t *testing.T) {
	s := &recordingSender{}
	a := valid()
	a.Organization = "Tom & <Jerry>"

	require.NoError(t, Notify(context.Background(), s, a, "office@example.org"))

	require.Len(t, s.sent, 1)
	msg := s.sent[0]
	assert.Equal(t, []string{"office@example.org"}, msg.To)
	assert.Equal(t, "ana@example.com", msg.ReplyTo)
	assert.Contains(t, msg.HTML, "Tom &amp; &lt;Jerry&gt;")
	assert.Contains(t, msg.HTML, "Gold Membership")
}
