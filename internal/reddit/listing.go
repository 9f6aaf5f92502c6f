package reddit

import (
	"bytes"
	"encoding/json"
	"html"

	"github.com/pauljones0/beatmaplinker/internal/models"
)

const (
	kindComment    = "t1"
	kindSubmission = "t3"
)

type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type listing struct {
	Kind string `json:"kind"`
	Data struct {
		Children []thing `json:"children"`
	} `json:"data"`
}

type commentData struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Author    string  `json:"author"`
	BodyHTML  string  `json:"body_html"`
	LinkID    string  `json:"link_id"`
	Subreddit string  `json:"subreddit"`
	Replies   replies `json:"replies"`
}

type submissionData struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Author       string  `json:"author"`
	SelfTextHTML *string `json:"selftext_html"`
	Title        string  `json:"title"`
	Subreddit    string  `json:"subreddit"`
}

// replies is either an empty string or a nested listing.
type replies struct {
	children []thing
}

func (r *replies) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		r.children = nil
		return nil
	}
	var l listing
	if err := json.Unmarshal(data, &l); err != nil {
		return err
	}
	r.children = l.Data.Children
	return nil
}

func (d commentData) toItem() *models.Comment {
	return &models.Comment{
		CommentID:  d.ID,
		Name:       d.Name,
		AuthorName: d.Author,
		BodyHTML:   html.UnescapeString(d.BodyHTML),
		LinkID:     d.LinkID,
		Subreddit:  d.Subreddit,
	}
}

func (d submissionData) toItem() *models.Submission {
	var self string
	if d.SelfTextHTML != nil {
		self = html.UnescapeString(*d.SelfTextHTML)
	}
	return &models.Submission{
		SubmissionID: d.ID,
		Name:         d.Name,
		AuthorName:   d.Author,
		SelfTextHTML: self,
		Title:        d.Title,
		Subreddit:    d.Subreddit,
	}
}

// decodeItems converts listing children into items, skipping kinds other
// than comments and submissions ("more" stubs and the like).
func decodeItems(children []thing) ([]models.Item, error) {
	items := make([]models.Item, 0, len(children))
	for _, ch := range children {
		switch ch.Kind {
		case kindComment:
			var d commentData
			if err := json.Unmarshal(ch.Data, &d); err != nil {
				return nil, err
			}
			items = append(items, d.toItem())
		case kindSubmission:
			var d submissionData
			if err := json.Unmarshal(ch.Data, &d); err != nil {
				return nil, err
			}
			items = append(items, d.toItem())
		}
	}
	return items, nil
}

// commentAuthors lists the authors of the direct t1 children.
func commentAuthors(children []thing) []string {
	var authors []string
	for _, ch := range children {
		if ch.Kind != kindComment {
			continue
		}
		var d struct {
			Author string `json:"author"`
		}
		if err := json.Unmarshal(ch.Data, &d); err == nil {
			authors = append(authors, d.Author)
		}
	}
	return authors
}

type commentResponse struct {
	JSON struct {
		Errors [][]any `json:"errors"`
		Data   struct {
			Things []struct {
				Data struct {
					Name string `json:"name"`
				} `json:"data"`
			} `json:"things"`
		} `json:"data"`
	} `json:"json"`
}
