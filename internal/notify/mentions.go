package notify

import "regexp"

var mentionPattern = regexp.MustCompile(`@(\w+)`)

// ExtractMentions returns the handles mentioned in text in order of
// appearance. Duplicates are kept and handles are not resolved to users.
func ExtractMentions(text string) []string {
	matches := mentionPattern.FindAllStringSubmatch(text, -1)
	handles := make([]string, 0, len(matches))
	for _, m := range matches {
		handles = append(handles, m[1])
	}

	return handles
}
