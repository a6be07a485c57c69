package news

import "time"

// Article is a news item as served to readers. ImageURL is the thumbnail to
// show; OriginalImageURL is the source's own image.
type Article struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	Category           string    `json:"category"`
	PublishedAt        time.Time `json:"publishedAt"`
	URL                string    `json:"url"`
	ImageURL           string    `json:"imageUrl"`
	ImageHint          string    `json:"imageHint"`
	FullText           string    `json:"fullText,omitempty"`
	Images             []Image   `json:"images,omitempty"`
	Author             string    `json:"author,omitempty"`
	OriginalImageURL   string    `json:"originalImageUrl"`
	GeneratedThumbnail bool      `json:"generatedThumbnail"`
}

type Image struct {
	URL     string `json:"url"`
	Alt     string `json:"alt"`
	Caption string `json:"caption"`
}

// SourceArticle is an article in the news source's wire format.
type SourceArticle struct {
	ID            string  `json:"id"`
	Headline      string  `json:"headline"`
	URL           string  `json:"url"`
	Thumbnail     string  `json:"thumbnail"`
	Summary       string  `json:"summary"`
	FullText      string  `json:"fullText,omitempty"`
	Images        []Image `json:"images,omitempty"`
	Category      string  `json:"category"`
	PublishedDate string  `json:"publishedDate"`
	Author        string  `json:"author,omitempty"`
}

type sourceListResponse struct {
	Success bool            `json:"success"`
	Data    []SourceArticle `json:"data"`
	Count   int             `json:"count"`
	Error   string          `json:"error,omitempty"`
}

type sourceArticleResponse struct {
	Success bool           `json:"success"`
	Data    *SourceArticle `json:"data"`
	Error   string         `json:"error,omitempty"`
}
