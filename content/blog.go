package content

import (
	"time"

	"github.com/eringen/clubsite/remote"
)

const BlogPostsTable = "blog_posts"

// Suggested blog categories. The column is free text.
var BlogCategories = []string{"announcement", "social", "event", "tech", "news"}

// BlogPost is a club blog entry. Drafts stay hidden until Published.
type BlogPost struct {
	ID               string
	Title            string
	Excerpt          *string
	Content          string
	Author           string
	Category         *string
	Published        bool
	FeaturedImageURL *string
	InstagramPostURL *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (p BlogPost) RecordID() string { return p.ID }

func blogPostFromRow(r remote.Row) (BlogPost, error) {
	return BlogPost{
		ID:               rowString(r, "id"),
		Title:            rowString(r, "title"),
		Excerpt:          rowOptString(r, "excerpt"),
		Content:          rowString(r, "content"),
		Author:           rowString(r, "author"),
		Category:         rowOptString(r, "category"),
		Published:        rowBool(r, "published"),
		FeaturedImageURL: rowOptString(r, "featured_image_url"),
		InstagramPostURL: rowOptString(r, "instagram_post_url"),
		CreatedAt:        rowTime(r, "created_at"),
		UpdatedAt:        rowTime(r, "updated_at"),
	}, nil
}

// BlogDraft is the admin form for a blog post.
type BlogDraft struct {
	Title        string
	Excerpt      string
	Content      string
	Author       string
	Category     string
	ImageURL     string
	InstagramURL string
	Published    bool
}

// NewBlogDraft returns the defaults of a fresh create form.
func NewBlogDraft() BlogDraft {
	return BlogDraft{}
}

// BlogDraftFrom hydrates an edit form from p.
func BlogDraftFrom(p BlogPost) BlogDraft {
	return BlogDraft{
		Title:        p.Title,
		Excerpt:      deref(p.Excerpt),
		Content:      p.Content,
		Author:       p.Author,
		Category:     deref(p.Category),
		ImageURL:     deref(p.FeaturedImageURL),
		InstagramURL: deref(p.InstagramPostURL),
		Published:    p.Published,
	}
}

func (d *BlogDraft) SetField(name, value string) error {
	switch name {
	case "title":
		d.Title = value
	case "excerpt":
		d.Excerpt = value
	case "content":
		d.Content = value
	case "author":
		d.Author = value
	case "category":
		d.Category = value
	case "imageUrl":
		d.ImageURL = value
	case "instagramUrl":
		d.InstagramURL = value
	case "published":
		d.Published = parseBool(value)
	default:
		return ErrUnknownField
	}
	return nil
}

func (d *BlogDraft) Row() (remote.Row, error) {
	return remote.Row{
		"title":              d.Title,
		"excerpt":            optionalText(d.Excerpt),
		"content":            d.Content,
		"author":             d.Author,
		"category":           optionalText(d.Category),
		"featured_image_url": optionalText(d.ImageURL),
		"instagram_post_url": optionalText(d.InstagramURL),
		"published":          d.Published,
	}, nil
}
