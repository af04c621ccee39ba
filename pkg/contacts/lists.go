package contacts

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"
)

// ContactList is one client-choice option presented to the host.
type ContactList struct {
	Name       string `json:"name"`
	Identifier string `json:"identifier"`
}

// Upstream identifiers are compound strings; only the ones carrying
// this prefix name a usable list.
var identifierPattern = regexp.MustCompile(`action_network:(.*)`)

// rawList is the subset of an upstream list record we care about.
type rawList struct {
	Identifiers []string `json:"identifiers"`
	Name        string   `json:"name"`
	Title       string   `json:"title"`
}

// ExtractLists converts aggregated raw list records into sorted
// client-choice options. Lists without a matching identifier or a
// display name are silently dropped. The result is sorted by name,
// case-insensitive ascending, for stable presentation.
func ExtractLists(raw []json.RawMessage) []ContactList {
	lists := []ContactList{}

	for _, item := range raw {
		var list rawList
		if err := json.Unmarshal(item, &list); err != nil {
			continue
		}

		var identifier string
		for _, candidate := range list.Identifiers {
			if match := identifierPattern.FindStringSubmatch(candidate); match != nil {
				identifier = match[1]
				break
			}
		}

		name := list.Name
		if name == "" {
			name = list.Title
		}
		if identifier == "" || name == "" {
			continue
		}

		lists = append(lists, ContactList{Name: name, Identifier: identifier})
	}

	sort.SliceStable(lists, func(i, j int) bool {
		return strings.ToLower(lists[i].Name) < strings.ToLower(lists[j].Name)
	})

	return lists
}
