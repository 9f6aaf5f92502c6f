package models

import "errors"

var (
	// ErrNotFound is returned when removing an element that is not present.
	ErrNotFound = errors.New("not found")

	// ErrStaleItem is returned when an item's identity changed while it was being processed.
	ErrStaleItem = errors.New("item identity changed during processing")
)

// Kind distinguishes the two content streams.
type Kind string

const (
	KindComment    Kind = "comment"
	KindSubmission Kind = "submission"
)

// Item is a comment or a submission seen on the subreddit.
type Item interface {
	// ID is the short id, stable for the lifetime of the item.
	ID() string
	// Fullname is the prefixed id used as a reply parent (t1_xxx, t3_xxx).
	Fullname() string
	Kind() Kind
	Author() string
	// HTML returns the entity-decoded HTML body, or "" when there is none.
	HTML() string
}

// Comment is a Reddit comment.
type Comment struct {
	CommentID  string
	Name       string
	AuthorName string
	BodyHTML   string
	LinkID     string // fullname of the parent submission
	Subreddit  string
}

func (c *Comment) ID() string       { return c.CommentID }
func (c *Comment) Fullname() string { return c.Name }
func (c *Comment) Kind() Kind       { return KindComment }
func (c *Comment) Author() string   { return c.AuthorName }
func (c *Comment) HTML() string     { return c.BodyHTML }

// Submission is a Reddit post. Link posts have no self text.
type Submission struct {
	SubmissionID string
	Name         string
	AuthorName   string
	SelfTextHTML string
	Title        string
	Subreddit    string
}

func (s *Submission) ID() string       { return s.SubmissionID }
func (s *Submission) Fullname() string { return s.Name }
func (s *Submission) Kind() Kind       { return KindSubmission }
func (s *Submission) Author() string   { return s.AuthorName }
func (s *Submission) HTML() string     { return s.SelfTextHTML }
