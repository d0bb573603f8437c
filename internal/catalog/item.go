package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

// ItemID accepts both JSON numbers and strings; the demo feeds use either.
type ItemID string

func (id *ItemID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ItemID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("item id must be a string or a number")
	}
	*id = ItemID(n.String())
	return nil
}

// numeric reports the id as a number when it is one.
func (id ItemID) numeric() (float64, bool) {
	f, err := strconv.ParseFloat(string(id), 64)
	return f, err == nil
}

// Item is one catalog entry: a product, a course or a job posting.
// Items are immutable once loaded.
type Item struct {
	ID            ItemID    `json:"id"`
	Title         string    `json:"title"`
	Slug          string    `json:"slug,omitempty"`
	Description   string    `json:"description,omitempty"`
	Price         float64   `json:"price"`
	OriginalPrice float64   `json:"originalPrice,omitempty"`
	Category      string    `json:"category"`
	Tags          []string  `json:"tags"`
	Rating        float64   `json:"rating"`
	ReviewCount   int       `json:"reviewCount"`
	Images        []string  `json:"images,omitempty"`
	Level         string    `json:"level,omitempty"`
	IsFree        bool      `json:"isFree,omitempty"`
	Instructor    string    `json:"instructor,omitempty"`
	PublishedAt   time.Time `json:"publishedAt,omitzero"`
	LessonCount   int       `json:"lessonCount,omitempty"`
}

// Free reports whether the item costs nothing.
func (it Item) Free() bool { return it.IsFree || it.Price == 0 }

// Image is the primary picture, if any.
func (it Item) Image() string {
	if len(it.Images) == 0 {
		return ""
	}
	return it.Images[0]
}

func (it Item) score() float64 { return it.Rating * float64(it.ReviewCount) }

type itemWire struct {
	ID            ItemID          `json:"id"`
	Title         string          `json:"title"`
	Slug          string          `json:"slug"`
	Description   string          `json:"description"`
	Price         float64         `json:"price"`
	OriginalPrice float64         `json:"originalPrice"`
	Category      string          `json:"category"`
	Tags          []string        `json:"tags"`
	Rating        float64         `json:"rating"`
	ReviewCount   *int            `json:"reviewCount"`
	ReviewsCount  int             `json:"reviewsCount"`
	Images        []string        `json:"images"`
	Image         string          `json:"image"`
	Thumbnail     string          `json:"thumbnail"`
	Level         string          `json:"level"`
	IsFree        bool            `json:"isFree"`
	Instructor    json.RawMessage `json:"instructor"`
	PublishedAt   string          `json:"publishedAt"`
	LessonCount   int             `json:"lessonCount"`
	Curriculum    []struct {
		Lessons []json.RawMessage `json:"lessons"`
	} `json:"curriculum"`
}

// UnmarshalJSON folds the field spellings of the different demo feeds
// (reviewCount/reviewsCount, images/image/thumbnail, instructor as a
// string or an object, curriculum sections) into one Item.
func (it *Item) UnmarshalJSON(b []byte) error {
	var w itemWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	out := Item{
		ID:            w.ID,
		Title:         w.Title,
		Slug:          w.Slug,
		Description:   w.Description,
		Price:         w.Price,
		OriginalPrice: w.OriginalPrice,
		Category:      w.Category,
		Tags:          w.Tags,
		Rating:        w.Rating,
		ReviewCount:   w.ReviewsCount,
		Images:        w.Images,
		Level:         w.Level,
		IsFree:        w.IsFree,
		LessonCount:   w.LessonCount,
	}
	if w.ReviewCount != nil {
		out.ReviewCount = *w.ReviewCount
	}
	if len(out.Images) == 0 {
		for _, img := range []string{w.Image, w.Thumbnail} {
			if img != "" {
				out.Images = append(out.Images, img)
			}
		}
	}
	if out.LessonCount == 0 {
		for _, sec := range w.Curriculum {
			out.LessonCount += len(sec.Lessons)
		}
	}
	out.Instructor = instructorName(w.Instructor)

	if w.PublishedAt != "" {
		t, err := parseDate(w.PublishedAt)
		if err != nil {
			return err
		}
		out.PublishedAt = t
	}

	*it = out
	return nil
}

func instructorName(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Name
	}
	return ""
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}
