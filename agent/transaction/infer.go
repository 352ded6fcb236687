package transaction

import (
	"strconv"
	"strings"
)

// fillerTokens are words a user wraps around a bare selection index
// ("pick option 2 please"). Stripping them lets the remainder decide whether
// the message is a selection or a fresh query.
var fillerTokens = map[string]struct{}{
	"select": {}, "pick": {}, "choose": {}, "option": {}, "number": {},
	"item": {}, "the": {}, "go": {}, "with": {}, "for": {}, "please": {},
	"i": {}, "want": {}, "take": {}, "one": {}, "no": {}, "ok": {},
}

// parseSelectionIndex reports whether the message is a selection by index.
// Only near-bare pick phrases qualify; a query that merely contains a digit
// ("find 3kw solar panels") must still route to search.
func parseSelectionIndex(text string) (int, bool) {
	cleaned := strings.ToLower(strings.TrimSpace(text))
	cleaned = strings.NewReplacer("#", " ", ".", " ", ",", " ", "!", " ", "?", " ").Replace(cleaned)

	index := 0
	found := false
	for _, token := range strings.Fields(cleaned) {
		if _, ok := fillerTokens[token]; ok {
			continue
		}
		n, err := strconv.Atoi(token)
		if err != nil || n <= 0 {
			return 0, false
		}
		if found {
			// two numbers is not a pick
			return 0, false
		}
		index = n
		found = true
	}
	return index, found
}

var confirmPhrases = []string{
	"confirm", "place the order", "place order", "go ahead", "buy it",
	"book it", "order it", "proceed", "yes",
}

// isConfirmation reports whether the message plausibly confirms the pending
// selection. Matched on whole phrases against the lowercased text; "yes" is
// matched as a standalone word so "yesterday" does not confirm an order.
func isConfirmation(text string) bool {
	lowered := strings.ToLower(strings.TrimSpace(text))
	for _, phrase := range confirmPhrases {
		if phrase == "yes" {
			for _, word := range strings.FieldsFunc(lowered, func(r rune) bool {
				return r == ' ' || r == ',' || r == '.' || r == '!'
			}) {
				if word == "yes" || word == "yeah" || word == "yep" {
					return true
				}
			}
			continue
		}
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}
