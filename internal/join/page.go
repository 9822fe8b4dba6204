package join

import (
	"sort"
	"time"

	"golang.org/x/net/html"

	"github.com/jgxilos/wdd231/internal/dom"
)

const (
	FormID        = "membershipForm"
	TimestampID   = "timestamp"
	SummaryCardID = "summary-card"
	DialogsID     = "level-dialogs"
)

// Contact details shown when a summary cannot be displayed.
const (
	OfficeEmail = "info@camarajjmora.org"
	OfficePhone = "(+58) 424-123-4567"
)

// SetTimestamp stamps the hidden timestamp field with now.
func SetTimestamp(doc *html.Node, now time.Time) {
	if n := dom.FindByID(doc, TimestampID); n != nil {
		dom.SetAttr(n, "value", now.UTC().Format(TimestampLayout))
	}
}

// Populate refills the form inputs with a previously submitted application.
func Populate(doc *html.Node, a Application) {
	form := dom.FindByID(doc, FormID)
	if form == nil {
		return
	}
	values := a.Query()
	for _, n := range dom.FindAll(form, func(n *html.Node) bool {
		return n.Type == html.ElementNode && (n.Data == "input" || n.Data == "textarea" || n.Data == "select")
	}) {
		name, _ := dom.GetAttr(n, "name")
		if name == "" || name == TimestampID {
			continue
		}
		v := values.Get(name)
		switch n.Data {
		case "textarea":
			dom.SetText(n, v)
		case "select":
			for _, opt := range dom.FindAll(n, func(o *html.Node) bool { return o.Type == html.ElementNode && o.Data == "option" }) {
				if ov, _ := dom.GetAttr(opt, "value"); ov == v && v != "" {
					dom.SetAttr(opt, "selected", "selected")
				}
			}
		default:
			if t, _ := dom.GetAttr(n, "type"); t == "radio" {
				if rv, _ := dom.GetAttr(n, "value"); rv == v && v != "" {
					dom.SetAttr(n, "checked", "checked")
				}
				continue
			}
			if v != "" {
				dom.SetAttr(n, "value", v)
			}
		}
	}
}

// RenderErrors lists field errors at the top of the form and marks the
// offending inputs.
func RenderErrors(doc *html.Node, errs map[string]string) {
	form := dom.FindByID(doc, FormID)
	if form == nil || len(errs) == 0 {
		return
	}
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	list := dom.El("ul", nil)
	for _, f := range fields {
		label := f
		if label == "" {
			label = "form"
		}
		list.AppendChild(dom.El("li", nil, dom.Text(label+": "+errs[f])))
		if input := dom.Find(form, func(n *html.Node) bool {
			name, _ := dom.GetAttr(n, "name")
			return n.Type == html.ElementNode && name == f && f != ""
		}); input != nil {
			dom.SetAttr(input, "aria-invalid", "true")
			dom.AddClass(input, "invalid")
		}
	}
	box := dom.El("div", []html.Attribute{dom.Attr("class", "form-errors"), dom.Attr("role", "alert")},
		dom.El("p", nil, dom.Text("Please correct the following:")),
		list,
	)
	form.InsertBefore(box, form.FirstChild)
}

// Summary fills the thank-you card, or replaces it with the error card when
// a required field is missing.
func Summary(doc *html.Node, a Application) {
	card := dom.FindByID(doc, SummaryCardID)
	if card == nil {
		return
	}
	if !a.Complete() {
		RenderSummaryError(card)
		return
	}
	set := func(id, text string) {
		if n := dom.FindByID(card, id); n != nil {
			dom.SetText(n, text)
		}
	}
	set("displayName", a.FullName())
	set("displayEmail", a.Email)
	set("displayPhone", a.Phone)
	set("displayOrganization", a.Organization)
	if a.Title != "" {
		set("displayTitle", a.Title)
	}
	if a.MembershipLevel != "" {
		set("displayLevel", LevelLabel(a.MembershipLevel))
	}
	if a.Timestamp != "" {
		set("displayTimestamp", FormatTimestamp(a.Timestamp))
	}
}

// RenderSummaryError replaces the card contents with the failure notice.
func RenderSummaryError(card *html.Node) {
	dom.ReplaceChildren(card,
		dom.El("div", []html.Attribute{dom.Attr("class", "summary-header")},
			dom.El("h3", nil, dom.Text("Error Loading Data")),
		),
		dom.El("div", []html.Attribute{dom.Attr("class", "summary-content summary-error"), dom.Attr("role", "alert")},
			dom.El("p", []html.Attribute{dom.Attr("class", "summary-error-title")},
				dom.Text("⚠️ Unable to load application data")),
			dom.El("p", nil, dom.Text("There was an issue retrieving your application information. "+
				"Your application may still have been submitted successfully.")),
			dom.El("p", nil,
				dom.Text("If you have concerns, please contact us at: "),
				dom.El("strong", nil, dom.Text(OfficeEmail)),
				dom.Text(" or "),
				dom.El("strong", nil, dom.Text(OfficePhone)),
			),
		),
	)
}
