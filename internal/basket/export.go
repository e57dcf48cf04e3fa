// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package basket

import (
	"fmt"
	"io"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/patent-chooser/pkg/types"
)

const (
	dismissMark = "∅"
	starMark    = "★"
	nbsp        = "\u00a0"

	humanDateLayout = "2006-01-02 15:04:05"
)

// CSVList renders one "number,score,dismiss" line per entry. Unset values
// are empty.
func (b *Basket) CSVList() []string {
	entries := b.Entries()
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		score, dismiss := "", ""
		if e.Score != nil {
			score = strconv.Itoa(*e.Score)
		}
		if e.Dismiss != nil {
			dismiss = strconv.FormatBool(*e.Dismiss)
		}
		out = append(out, strings.Join([]string{e.Number, score, dismiss}, ","))
	}
	return out
}

// UnicodeStarsList renders entries as fixed-width columns: number, dismiss
// mark, and one star per score point.
func (b *Basket) UnicodeStarsList() []string {
	entries := b.Entries()
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		mark := ""
		if e.Dismissed() {
			mark = dismissMark
		}
		out = append(out, fmt.Sprintf("%-20s%-5s%s", e.Number, mark, strings.Repeat(starMark, e.ScoreValue())))
	}
	return out
}

// UnicodeStarsListEmail puts the rating first and pads it with
// non-breaking spaces so numbers line up in proportional mail fonts.
func (b *Basket) UnicodeStarsListEmail() []string {
	entries := b.Entries()
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		rating := strings.Repeat(starMark, e.ScoreValue())
		if e.Dismissed() {
			rating = dismissMark + rating
		}
		pad := int(math.Floor(10 - float64(len([]rune(rating)))*1.7))
		if pad < 0 {
			pad = 0
		}
		out = append(out, rating+strings.Repeat(nbsp, pad)+e.Number)
	}
	return out
}

// ViewState is the permalink state that reopens the basket content in the
// review viewer. Values in more override the defaults.
func (b *Basket) ViewState(more map[string]string) map[string]string {
	state := map[string]string{
		"context":    "viewer",
		"project":    b.project,
		"datasource": types.DatasourceReview,
		"numberlist": strings.Join(b.GetNumbers(false), ","),
	}
	for k, v := range more {
		state[k] = v
	}
	return state
}

// ViewStateQuery encodes a view state as a URL query string.
func ViewStateQuery(state map[string]string) string {
	values := url.Values{}
	for k, v := range state {
		values.Set(k, v)
	}
	return values.Encode()
}

// EmailParams is a prepared share-by-email message.
type EmailParams struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// ShareEmailParams builds the share mail for the basket. baseURL is the
// viewer address the permalink state is appended to.
func (b *Basket) ShareEmailParams(baseURL string, at time.Time) EmailParams {
	numbers := b.GetNumbers(false)
	link := baseURL
	if q := ViewStateQuery(b.ViewState(map[string]string{"project": "via-email"})); q != "" {
		sep := "?"
		if strings.Contains(link, "?") {
			sep = "&"
		}
		link += sep + q
	}

	subject := fmt.Sprintf("Shared %d patent numbers through project %q at %s",
		len(numbers), b.project, at.Format(humanDateLayout))

	var body strings.Builder
	fmt.Fprintf(&body, "%s\n\n", subject)
	fmt.Fprintf(&body, "Numbers:\n%s\n\n", strings.Join(numbers, "\n"))
	fmt.Fprintf(&body, "Ratings (CSV):\n%s\n\n", strings.Join(b.CSVList(), "\n"))
	fmt.Fprintf(&body, "Ratings:\n%s\n\n", strings.Join(b.UnicodeStarsListEmail(), "\n"))
	fmt.Fprintf(&body, "Open in viewer:\n%s\n", link)

	return EmailParams{Subject: "[IPSUITE] " + subject, Body: body.String()}
}

// ExportYAML writes the entries as a YAML list.
func (b *Basket) ExportYAML(w io.Writer) error {
	data, err := yaml.Marshal(b.Entries())
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	_, err = w.Write(data)
	return err
}
