package catalog_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StoreFront/internal/catalog"
)

func TestItem_UnmarshalProductFeed(t *testing.T) {
	raw := `{
		"id": 7,
		"title": "Smart Watch",
		"price": 199.99,
		"originalPrice": 249.99,
		"category": "Electronics",
		"tags": ["wearable"],
		"rating": 4.4,
		"reviewCount": 321,
		"images": ["a.jpg", "b.jpg"]
	}`

	var it catalog.Item
	require.NoError(t, json.Unmarshal([]byte(raw), &it))

	assert.Equal(t, catalog.ItemID("7"), it.ID)
	assert.Equal(t, 321, it.ReviewCount)
	assert.Equal(t, "a.jpg", it.Image())
	assert.Equal(t, 249.99, it.OriginalPrice)
	assert.False(t, it.Free())
}

func TestItem_UnmarshalCourseFeed(t *testing.T) {
	raw := `{
		"id": "course-1",
		"title": "React Basics",
		"price": 0,
		"isFree": true,
		"category": "Web",
		"tags": ["react"],
		"rating": 4.8,
		"reviewsCount": 12,
		"thumbnail": "t.png",
		"level": "Beginner",
		"instructor": {"name": "Ada", "avatar": "ada.png"},
		"publishedAt": "2024-03-01",
		"curriculum": [
			{"title": "Intro", "lessons": [{"id": "l1"}, {"id": "l2"}]},
			{"title": "Hooks", "lessons": [{"id": "l3"}]}
		]
	}`

	var it catalog.Item
	require.NoError(t, json.Unmarshal([]byte(raw), &it))

	assert.Equal(t, catalog.ItemID("course-1"), it.ID)
	assert.Equal(t, 12, it.ReviewCount)
	assert.Equal(t, []string{"t.png"}, it.Images)
	assert.Equal(t, "Ada", it.Instructor)
	assert.Equal(t, 3, it.LessonCount)
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), it.PublishedAt)
	assert.True(t, it.Free())
}

func TestItem_RejectsBadID(t *testing.T) {
	var it catalog.Item
	assert.Error(t, json.Unmarshal([]byte(`{"id": true}`), &it))
}

func TestItem_RejectsBadDate(t *testing.T) {
	var it catalog.Item
	assert.Error(t, json.Unmarshal([]byte(`{"id": 1, "publishedAt": "yesterday"}`), &it))
}

func TestItem_EncodeDecodeKeepsFields(t *testing.T) {
	in := courses()[0]

	raw, err := json.Marshal(in)
	require.NoError(t, err)

	var out catalog.Item
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)
}
