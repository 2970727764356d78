package searchpage

import (
	"strings"

	"github.com/gotrs-io/search-e2e/internal/session"
)

// Locators of the search page. Markup classes come from the Ant Design and
// Tailwind build of the application under test.
var (
	SearchInput    = session.XPath("//input[@placeholder = 'Search']")
	SearchButton   = session.CSS("button[type = 'Submit']")
	ResultTitle    = session.XPath("//h4[contains(@class, 'ant-typography')]")
	NoResult       = session.XPath("//h4[contains(text(), 'No result')]")
	Headline       = session.XPath("//div[contains(@class,'text-gray-700') and contains(@class,'break-words')]")
	TypeSelect     = session.CSS(`[data-e2e = "selectType"]`)
	SortSelect     = session.CSS(`[data-e2e = "selectSortOptions"]`)
	PageSizeSelect = session.CSS(`[data-e2e = "selectPageOptions"]`)

	ResultContainer = session.CSS("div.flex.flex-col.gap-3")
	ResultCard      = session.CSS(`div.flex.flex-col.md\:flex-row.items-start`)

	// Scoped to a result container or card.
	TagWrapper = session.CSS(".flex-wrap.gap-2")
	TagChip    = session.CSS("span.ant-tag")
	TypeBadge  = session.CSS(`span.ant-tag.\!border-primary-hover.\!text-primary-hover.\!bg-white`)
	CardDate   = session.CSS("div.text-sm.text-gray-500")
)

// TagChipByText matches a tag chip whose normalized text equals name.
func TagChipByText(name string) session.Locator {
	return session.XPath("//span[contains(@class, 'ant-tag') and normalize-space(text()) = " + xpathLiteral(name) + "]")
}

// TypeOption matches an entry of the open type dropdown.
func TypeOption(name string) session.Locator {
	return session.XPath("//div[@title=" + xpathLiteral(name) + "]")
}

// PageSizeOption matches an entry of the open page size dropdown.
func PageSizeOption(size string) session.Locator {
	return session.XPath(`//div[contains(@class, "cursor-pointer")]//span[text()=` + xpathLiteral(size) + "]")
}

// SortOption matches an entry of the open sort dropdown.
func SortOption(text string) session.Locator {
	return session.XPath(`//div[contains(@class, "cursor-pointer")]//span[contains(text(), ` + xpathLiteral(text) + ")]")
}

// xpathLiteral quotes s for XPath 1.0, which has no escape sequences.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	var b strings.Builder
	b.WriteString("concat(")
	for i, p := range parts {
		if i > 0 {
			b.WriteString(`, "'", `)
		}
		b.WriteString("'" + p + "'")
	}
	b.WriteString(")")
	return b.String()
}
