package category

import (
	"regexp"
	"strings"
)

// Category is one of the fixed news feeds.
type Category string

const (
	BreakingNews  Category = "Breaking News"
	Politics      Category = "Politics"
	Sports        Category = "Sports"
	Business      Category = "Business"
	Technology    Category = "Technology"
	Entertainment Category = "Entertainment"
	LocalNews     Category = "Local News"
	Lifestyle     Category = "Lifestyle"
	International Category = "International"
)

// All lists the categories in feed display order.
var All = []Category{
	BreakingNews, Politics, Sports, Business, Technology,
	Entertainment, LocalNews, Lifestyle, International,
}

var whitespace = regexp.MustCompile(`\s+`)

// Parse matches s against the known categories, ignoring case and
// treating '-' and runs of whitespace as equivalent ("local-news").
func Parse(s string) (Category, bool) {
	want := Slug(s)
	for _, c := range All {
		if Slug(string(c)) == want {
			return c, true
		}
	}
	return "", false
}

func (c Category) String() string { return string(c) }

// Slug lowercases a category name and collapses whitespace runs into '-'.
func Slug(name string) string {
	return whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

// CacheKey derives the thumbnail cache key for an article in a category,
// e.g. CacheKey("Breaking News", "42") == "breaking-news-42".
func CacheKey(category, articleID string) string {
	return Slug(category) + "-" + articleID
}

// upstream feed slugs and the categories they map to.
var fromUpstream = map[string]Category{
	"sports":        Sports,
	"business":      Business,
	"entertainment": Entertainment,
	"international": International,
	"general":       LocalNews,
	"local":         LocalNews,
	"breaking-news": BreakingNews,
}

var toUpstream = map[Category]string{
	Sports:        "sports",
	Business:      "business",
	Entertainment: "entertainment",
	Technology:    "general",
	International: "international",
	LocalNews:     "general",
	BreakingNews:  "breaking-news",
	Politics:      "general",
	Lifestyle:     "general",
}

// FromUpstream maps a news-source category label. ok is false for labels the
// source uses that have no direct mapping; callers default to LocalNews.
func FromUpstream(label string) (Category, bool) {
	c, ok := fromUpstream[strings.ToLower(strings.TrimSpace(label))]
	return c, ok
}

// UpstreamSlug is the news-source path segment for a category.
func UpstreamSlug(c Category) string {
	if s, ok := toUpstream[c]; ok {
		return s
	}
	return "general"
}
