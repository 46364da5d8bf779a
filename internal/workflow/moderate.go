package workflow

import "strings"

// Moderate tokenizes text by lines and then by whitespace, lowercases every
// token, and rejects the text when any token appears in the denylist. It
// performs no mutation.
func Moderate(text string, denylist map[string]struct{}) error {
	if len(denylist) == 0 {
		return nil
	}

	for _, line := range strings.Split(text, "\n") {
		for _, word := range strings.Fields(line) {
			if _, hit := denylist[strings.ToLower(word)]; hit {
				return ErrModerationRejected
			}
		}
	}

	return nil
}
