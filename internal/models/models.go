package models

// BlogPost is a published blog entry. The ID is assigned by the record store
// when the post is persisted and is empty on creation payloads.
type BlogPost struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Project is a portfolio entry. Link is stored verbatim; the store performs no
// URL validation.
type Project struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Link    string `json:"link"`
}
