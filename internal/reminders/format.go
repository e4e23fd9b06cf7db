package reminders

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/charlesng35/cabinet/internal/models"
)

const (
	dateLayout = "02/01/2006"
	timeLayout = "15:04"

	// maxTitleRunes mirrors the max=255 rule on CandidateAlert.Title.
	maxTitleRunes = 255
)

var (
	frenchPrinter = message.NewPrinter(language.French)

	// CLDR groups French digits with narrow no-break spaces.
	groupSpaces = strings.NewReplacer("\u202f", " ", "\u00a0", " ")
)

func formatDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dateLayout)
}

func formatTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(timeLayout)
}

// formatAmount renders a euro amount the French way: "1 234,56 €".
func formatAmount(amount float64) string {
	formatted := frenchPrinter.Sprint(number.Decimal(amount, number.Scale(2)))
	return groupSpaces.Replace(formatted) + " €"
}

// truncateTitle caps composed titles so a long event title never fails
// validation; the full title stays in the message body.
func truncateTitle(title string) string {
	if utf8.RuneCountInString(title) <= maxTitleRunes {
		return title
	}
	runes := []rune(title)
	return string(runes[:maxTitleRunes-1]) + "…"
}

func pluralDays(n int) string {
	if n == 1 {
		return "1 jour"
	}
	return strconv.Itoa(n) + " jours"
}

func eventLabel(kind models.EventKind) string {
	switch kind {
	case models.EventKindHearing:
		return "Audience"
	case models.EventKindMeeting:
		return "Rendez-vous"
	case models.EventKindDeadline:
		return "Échéance"
	default:
		return "Tâche"
	}
}

var (
	eventEmailTemplate = template.Must(template.New("event").Parse(`<!DOCTYPE html>
<html lang="fr">
<body>
<p>Bonjour,</p>
<p>Nous vous rappelons l'événement suivant prévu demain :</p>
<table>
<tr><td><strong>{{.Label}}</strong></td><td>{{.Title}}</td></tr>
<tr><td>Date</td><td>{{.Date}}</td></tr>
<tr><td>Heure</td><td>{{.Time}}</td></tr>
{{- if .Location}}
<tr><td>Lieu</td><td>{{.Location}}</td></tr>
{{- end}}
{{- if .Description}}
<tr><td>Description</td><td>{{.Description}}</td></tr>
{{- end}}
</table>
</body>
</html>
`))

	invoiceEmailTemplate = template.Must(template.New("invoice").Parse(`<!DOCTYPE html>
<html lang="fr">
<body>
<p>Bonjour,</p>
<p>La facture <strong>{{.Number}}</strong> est en retard de {{.Overdue}}.</p>
<table>
{{- if .Client}}
<tr><td>Client</td><td>{{.Client}}</td></tr>
{{- end}}
<tr><td>Montant</td><td>{{.Amount}}</td></tr>
<tr><td>Échéance</td><td>{{.DueDate}}</td></tr>
</table>
<p>Pensez à relancer le client.</p>
</body>
</html>
`))
)

type eventEmailData struct {
	Label       string
	Title       string
	Date        string
	Time        string
	Location    string
	Description string
}

type invoiceEmailData struct {
	Number  string
	Client  string
	Amount  string
	DueDate string
	Overdue string
}

func renderTemplate(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("reminders: render %s email: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
