package service

import (
	"strings"
	"time"
	"unicode"

	"github.com/agnivade/levenshtein"

	"github.com/concilia/concilia/internal/config"
	"github.com/concilia/concilia/internal/database/repository"
)

// Breakdown carries the per-signal sub-scores behind a confidence value.
// Every field lies in [0, 1].
type Breakdown struct {
	Amount  float64
	Date    float64
	Text    float64
	Payment float64
}

// Scorer computes match confidence between an expense and a movement. It is
// pure (no I/O, no state) and safe to call from any number of goroutines.
type Scorer struct {
	cfg config.MatchingConfig
}

func NewScorer(cfg config.MatchingConfig) *Scorer { return &Scorer{cfg: cfg} }

// Score returns the weighted confidence and its breakdown. It does not look
// at reconciliation state; excluding non-pending entities is the suggestion
// layer's job.
func (s *Scorer) Score(e repository.ExpenseRecord, m repository.BankMovement) (float64, Breakdown) {
	b := Breakdown{
		Amount:  s.amountScore(e.AmountCents, m.AbsAmountCents()),
		Date:    dateScore(e.Date, m.Date),
		Text:    textScore(expenseText(e), movementText(m)),
		Payment: paymentScore(e.PaymentMethod, m.AccountClass),
	}
	c := s.cfg.AmountWeight*b.Amount +
		s.cfg.DateWeight*b.Date +
		s.cfg.TextWeight*b.Text +
		s.cfg.PaymentWeight*b.Payment
	return clamp01(c), b
}

// amountScore is 1.0 when the magnitudes agree within the tolerance, then
// decays linearly to 0 as the relative difference approaches the decay
// ratio. Non-positive amounts on either side score 0.
func (s *Scorer) amountScore(expenseCents, movementAbsCents int64) float64 {
	if expenseCents <= 0 || movementAbsCents <= 0 {
		return 0
	}
	diff := expenseCents - movementAbsCents
	if diff < 0 {
		diff = -diff
	}
	if diff <= s.cfg.AmountToleranceCents {
		return 1.0
	}
	base := expenseCents
	if movementAbsCents > base {
		base = movementAbsCents
	}
	rel := float64(diff) / float64(base)
	return clamp01(1 - rel/s.cfg.AmountDecayRatio)
}

// dateScore is a step function on calendar-day distance.
func dateScore(a, b time.Time) float64 {
	switch d := daysApart(a, b); {
	case d == 0:
		return 1.0
	case d <= 3:
		return 0.9
	case d <= 7:
		return 0.75
	case d <= 15:
		return 0.6
	case d <= 30:
		return 0.4
	default:
		return 0.0
	}
}

func daysApart(a, b time.Time) int {
	au := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bu := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	d := au.Sub(bu)
	if d < 0 {
		d = -d
	}
	return int(d.Hours() / 24)
}

// textScore is token-set Jaccard similarity. Tokens are matched fuzzily so
// bank spellings like GASOLINERA still line up with "gasolina".
func textScore(a, b string) float64 {
	ta, tb := tokenize(a), tokenize(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	used := make([]bool, len(tb))
	inter := 0
	for _, x := range ta {
		for j, y := range tb {
			if used[j] {
				continue
			}
			if tokensMatch(x, y) {
				used[j] = true
				inter++
				break
			}
		}
	}
	union := len(ta) + len(tb) - inter
	return float64(inter) / float64(union)
}

// tokensMatch treats two tokens as equal when identical, or when long enough
// that a small edit distance is almost certainly the same word.
func tokensMatch(x, y string) bool {
	if x == y {
		return true
	}
	if len(x) < 5 || len(y) < 5 {
		return false
	}
	maxLen := len(x)
	if len(y) > maxLen {
		maxLen = len(y)
	}
	dist := levenshtein.ComputeDistance(x, y)
	return float64(dist)/float64(maxLen) <= 0.25
}

// tokenize lower-cases, strips punctuation and de-duplicates, preserving
// first-seen order.
func tokenize(s string) []string {
	var sb strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		} else {
			sb.WriteRune(' ')
		}
	}
	fields := strings.Fields(sb.String())
	seen := make(map[string]bool, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

// NormalizeDescription produces the canonical lower-cased form stored in
// bank_movements.description_norm.
func NormalizeDescription(s string) string {
	return strings.Join(tokenize(s), " ")
}

// paymentScore compares the expense's declared payment method with the
// movement's inferred account class.
func paymentScore(method, class string) float64 {
	method = strings.ToLower(strings.TrimSpace(method))
	class = strings.ToLower(strings.TrimSpace(class))
	if method == "" || method == "unknown" || class == "" || class == "unknown" {
		return 0.5
	}
	if method == class {
		return 1.0
	}
	return 0.0
}

func expenseText(e repository.ExpenseRecord) string {
	if e.Provider != nil && *e.Provider != "" {
		return e.Description + " " + *e.Provider
	}
	return e.Description
}

func movementText(m repository.BankMovement) string {
	if m.DescriptionNorm != "" {
		return m.DescriptionNorm
	}
	return m.DescriptionRaw
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
