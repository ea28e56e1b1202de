// Package homebank reads and writes the HomeBank interchange formats: the XHB
// account file (imported for the user's category/payee/tag lists) and the
// semicolon CSV format (exported for the final transactions).
package homebank

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strings"
)

// Entities are the known lists pulled out of a HomeBank file. Categories carry
// their full hierarchy as "Parent:Child" paths.
type Entities struct {
	Categories []string
	Payees     []string
	Tags       []string
}

type xhbFile struct {
	XMLName    xml.Name      `xml:"homebank"`
	Categories []xhbCategory `xml:"cat"`
	Payees     []xhbPayee    `xml:"pay"`
	Tags       []xhbTag      `xml:"tag"`
}

type xhbCategory struct {
	Key    string `xml:"key,attr"`
	Name   string `xml:"name,attr"`
	Parent string `xml:"parent,attr"`
}

type xhbPayee struct {
	Name string `xml:"name,attr"`
}

type xhbTag struct {
	Name string `xml:"name,attr"`
}

// ParseXHB extracts categories, payees and tags from a HomeBank XHB file.
// Category parent references are resolved so each entry is a full
// colon-separated path; all lists come back sorted.
func ParseXHB(data []byte) (*Entities, error) {
	var file xhbFile
	if err := xml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unmarshaling xhb: %w", err)
	}

	byKey := make(map[string]xhbCategory, len(file.Categories))
	for _, cat := range file.Categories {
		byKey[cat.Key] = cat
	}

	categories := make([]string, 0, len(file.Categories))
	for _, cat := range file.Categories {
		if cat.Name == "" {
			continue
		}
		categories = append(categories, categoryPath(cat, byKey))
	}
	sort.Strings(categories)

	payees := make([]string, 0, len(file.Payees))
	for _, p := range file.Payees {
		if p.Name != "" {
			payees = append(payees, p.Name)
		}
	}
	sort.Strings(payees)

	tags := make([]string, 0, len(file.Tags))
	for _, t := range file.Tags {
		if t.Name != "" {
			tags = append(tags, t.Name)
		}
	}
	sort.Strings(tags)

	return &Entities{Categories: categories, Payees: payees, Tags: tags}, nil
}

// categoryPath walks parent references up to the root. A dangling or cyclic
// parent chain stops rather than looping.
func categoryPath(cat xhbCategory, byKey map[string]xhbCategory) string {
	parts := []string{cat.Name}
	seen := map[string]bool{cat.Key: true}

	for cat.Parent != "" && cat.Parent != "0" {
		parent, ok := byKey[cat.Parent]
		if !ok || seen[parent.Key] {
			break
		}
		seen[parent.Key] = true
		parts = append(parts, parent.Name)
		cat = parent
	}

	// Reverse: walked leaf to root.
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ":")
}
