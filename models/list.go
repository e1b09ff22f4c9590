package models

// ListFilter selects which lists GET /todos returns.
type ListFilter string

const (
	ListFilterUnarchived ListFilter = "unarchived"
	ListFilterArchived   ListFilter = "archived"
	ListFilterAll        ListFilter = "all"
)

// ListItem is a single entry of a todo list.
type ListItem struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Done        bool     `json:"done"`
	Tags        []string `json:"tags"`
}

// List is a decrypted todo list.
type List struct {
	Title        string     `json:"title"`
	Items        []ListItem `json:"items"`
	ReverseItems bool       `json:"reverseItems"`
	Archived     bool       `json:"archived"`
}

// EncryptedListItem is the wire form of [ListItem]. Tag relations stay in the
// clear so the server can drop them when a tag is deleted.
type EncryptedListItem struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Done        string   `json:"done"`
	Tags        []string `json:"tags"`
}

// EncryptedListMeta extends [Meta] with list specific fields.
type EncryptedListMeta struct {
	Meta
	ReverseItems string `json:"reverseItems,omitempty"`
	Archived     bool   `json:"archived"`
}

// EncryptedList is the wire form of [List].
type EncryptedList struct {
	ID    string              `json:"id,omitempty"`
	Title string              `json:"title"`
	Items []EncryptedListItem `json:"items"`
	Meta  EncryptedListMeta   `json:"meta"`
}

func (l EncryptedList) DocumentID() string { return l.ID }
func (l EncryptedList) DocumentMeta() Meta { return l.Meta.Meta }
