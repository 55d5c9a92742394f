// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package resolver

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Comments is the descriptor returned by GET {endpoint}/api/comments/{id}.
// A Comments value handed out by this package always has a non-nil slice.
type Comments struct {
	CommentCount Count     `json:"commentCount"`
	Comments     []Comment `json:"comments"`
}

// Comment is one entry of Comments.
type Comment struct {
	Author           string      `json:"author"`
	Content          string      `json:"content"`
	ContentHTML      string      `json:"contentHtml,omitempty"`
	PublishedText    string      `json:"publishedText,omitempty"`
	LikeCount        Count       `json:"likeCount"`
	AuthorThumbnails []Thumbnail `json:"authorThumbnails,omitempty"`
}

// Thumbnail is an avatar reference.
type Thumbnail struct {
	URL string `json:"url"`
}

// Avatar returns the first thumbnail URL, if any.
func (c Comment) Avatar() string {
	for _, t := range c.AuthorThumbnails {
		if t.URL != "" {
			return t.URL
		}
	}
	return ""
}

// EmptyComments is the well-formed "nothing obtained" value.
func EmptyComments() Comments {
	return Comments{CommentCount: 0, Comments: []Comment{}}
}

// IsEmpty reports whether c holds no comments.
func (c Comments) IsEmpty() bool {
	return len(c.Comments) == 0
}

// normalize makes a decoded payload safe to render: the slice is non-nil,
// plain text is derived from rich text when missing, and a missing count
// falls back to the number of entries.
func (c Comments) normalize() Comments {
	if c.Comments == nil {
		c.Comments = []Comment{}
	}
	for i := range c.Comments {
		if c.Comments[i].Content == "" && c.Comments[i].ContentHTML != "" {
			c.Comments[i].Content = plainText(c.Comments[i].ContentHTML)
		}
	}
	if c.CommentCount <= 0 && len(c.Comments) > 0 {
		c.CommentCount = Count(len(c.Comments))
	}
	if c.CommentCount < 0 {
		c.CommentCount = 0
	}
	return c
}

func plainText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	doc.Find("br").ReplaceWithHtml("\n")
	return strings.TrimSpace(doc.Text())
}
