package chat

import (
	"regexp"
	"slices"
)

var mentionPattern = regexp.MustCompile(`<@!?([A-Za-z0-9_.\-]+)>`)

// ParseMentions returns the distinct user IDs mentioned in content, in the
// order they first appear.
func ParseMentions(content string) []string {
	var ids []string
	for _, m := range mentionPattern.FindAllStringSubmatch(content, -1) {
		if !slices.Contains(ids, m[1]) {
			ids = append(ids, m[1])
		}
	}
	return ids
}
