package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/gnoswap-labs/bplmatch/internal/matcher"
)

var (
	assumptionStyle = color.New(color.FgCyan)
	arrowStyle      = color.New(color.FgHiBlue, color.Bold)
	matchStyle      = color.New(color.FgGreen)
	percentStyle    = color.New(color.FgWhite, color.Bold)
	warningStyle    = color.New(color.FgHiYellow, color.Bold)
	sectionStyle    = color.New(color.FgYellow)
)

// Format renders the matching result:
//
//	// <query param> == <target param>    one per assumption of the best section
//	//   ==>
//	// <query local> == <target local>    one per provable obligation
//
//	// Percentage of Matched Locals = N%
func Format(res *matcher.Result) string {
	var b strings.Builder
	for _, h := range res.Assumptions {
		b.WriteString(assumptionStyle.Sprintf("// %s == %s", h.Query, h.Target))
		b.WriteString("\n")
	}
	b.WriteString(arrowStyle.Sprint("//   ==>"))
	b.WriteString("\n")
	for _, m := range res.Matches {
		b.WriteString(matchStyle.Sprintf("// %s", m))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(percentStyle.Sprintf("// Percentage of Matched Locals = %d%%", res.Percentage))
	b.WriteString("\n")
	return b.String()
}

// Print writes Format(res) to w.
func Print(w io.Writer, res *matcher.Result) error {
	_, err := io.WriteString(w, Format(res))
	return err
}

// FormatWarnings renders one line per inconsistent section.
func FormatWarnings(res *matcher.Result) string {
	var b strings.Builder
	for _, w := range res.Warnings {
		b.WriteString(warningStyle.Sprint("warning: "))
		b.WriteString(w.String())
		if res.Best != nil && w.Seq == res.Best.Seq {
			b.WriteString(" (selected section; the matching is suspect)")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatScores lists every section in enumeration order with its proven
// count; the selected section is marked with '*'.
func FormatScores(res *matcher.Result) string {
	var b strings.Builder
	for _, s := range res.Scores {
		marker := " "
		if res.Best != nil && s.Section.Seq == res.Best.Seq {
			marker = "*"
		}
		picks := make([]string, len(s.Section.Picks))
		for i, p := range s.Section.Picks {
			picks[i] = p.String()
		}
		fmt.Fprintf(&b, "%s %s proven=%d matches=%d assumes=[%s]\n",
			marker,
			sectionStyle.Sprint(s.Section.Label),
			s.Proven,
			len(s.Matches),
			strings.Join(picks, ", "),
		)
	}
	return b.String()
}
