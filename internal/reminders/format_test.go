package reminders

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/cabinet/internal/models"
)

func TestFormatAmount(t *testing.T) {
	cases := map[float64]string{
		0:          "0,00 €",
		9.5:        "9,50 €",
		1500:       "1 500,00 €",
		1234.567:   "1 234,57 €",
		1234567.89: "1 234 567,89 €",
		-42.1:      "-42,10 €",
		999999.999: "1 000 000,00 €",
	}
	for amount, want := range cases {
		require.Equal(t, want, formatAmount(amount), "amount %v", amount)
	}
}

func TestTruncateTitle(t *testing.T) {
	require.Equal(t, "Audience demain : Dupont", truncateTitle("Audience demain : Dupont"))

	exact := strings.Repeat("é", maxTitleRunes)
	require.Equal(t, exact, truncateTitle(exact))

	cut := truncateTitle(strings.Repeat("é", maxTitleRunes+40))
	require.Equal(t, maxTitleRunes, utf8.RuneCountInString(cut))
	require.True(t, strings.HasSuffix(cut, "é…"))
}

func TestFormatDateAndTimeUseLocation(t *testing.T) {
	instant := time.Date(2026, 3, 4, 23, 30, 0, 0, time.UTC)
	require.Equal(t, "05/03/2026", formatDate(instant, paris))
	require.Equal(t, "00:30", formatTime(instant, paris))
	require.Equal(t, "04/03/2026", formatDate(instant, time.UTC))
}

func TestPluralDays(t *testing.T) {
	require.Equal(t, "1 jour", pluralDays(1))
	require.Equal(t, "15 jours", pluralDays(15))
}

func TestEventLabel(t *testing.T) {
	require.Equal(t, "Audience", eventLabel(models.EventKindHearing))
	require.Equal(t, "Rendez-vous", eventLabel(models.EventKindMeeting))
	require.Equal(t, "Échéance", eventLabel(models.EventKindDeadline))
	require.Equal(t, "Tâche", eventLabel(models.EventKindTask))
}

func TestEventEmailEscapesUserContent(t *testing.T) {
	body, err := renderTemplate(eventEmailTemplate, eventEmailData{
		Label:       "Audience",
		Title:       "Dupont <script>alert(1)</script>",
		Date:        "05/03/2026",
		Time:        "09:00",
		Description: "Plaidoirie",
	})
	require.NoError(t, err)
	require.NotContains(t, body, "<script>")
	require.Contains(t, body, "&lt;script&gt;")
	require.Contains(t, body, "Plaidoirie")
	require.NotContains(t, body, "Lieu")
}
