package catalog_test

import (
	"time"

	"StoreFront/internal/catalog"
)

func fixture() []catalog.Item {
	return []catalog.Item{
		{ID: "1", Title: "Wireless Headphones", Price: 99.99, Category: "Electronics", Tags: []string{"audio", "wireless"}, Rating: 4.5, ReviewCount: 120},
		{ID: "2", Title: "Running Shoes", Price: 59.5, Category: "Sports", Tags: []string{"fitness", "outdoor"}, Rating: 4.7, ReviewCount: 80},
		{ID: "3", Title: "Coffee Maker", Price: 45, Category: "Home", Tags: []string{"kitchen"}, Rating: 4.1, ReviewCount: 300},
		{ID: "4", Title: "Bluetooth Speaker", Price: 35, Category: "electronics", Tags: []string{"audio", "portable"}, Rating: 4.7, ReviewCount: 40},
		{ID: "5", Title: "Yoga Mat", Price: 20, Category: "Sports", Tags: []string{"fitness"}, Rating: 3.9, ReviewCount: 15},
		{ID: "6", Title: "Desk Lamp", Price: 0, Category: "Home", Tags: []string{"lighting", "office"}, Rating: 4.1, ReviewCount: 300},
	}
}

func courses() []catalog.Item {
	day := func(d int) time.Time { return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC) }
	return []catalog.Item{
		{ID: "c1", Title: "React Basics", Price: 49, Category: "Web", Tags: []string{"javascript", "react"}, Rating: 4.2, ReviewCount: 10, Level: "Beginner", PublishedAt: day(3), LessonCount: 8},
		{ID: "c2", Title: "Vue Guide", Price: 0, IsFree: true, Category: "Web", Tags: []string{"javascript", "vue"}, Rating: 4.8, ReviewCount: 5, Level: "Beginner", PublishedAt: day(9), LessonCount: 4},
		{ID: "c3", Title: "Advanced React Patterns", Price: 99, Category: "Web", Tags: []string{"react"}, Rating: 4.9, ReviewCount: 2, Level: "Advanced", PublishedAt: day(1), LessonCount: 12},
		{ID: "c4", Title: "react", Price: 10, Category: "Web", Tags: nil, Rating: 3.0, ReviewCount: 1, Level: "Beginner", LessonCount: 1},
	}
}

func ids(items []catalog.Item) []catalog.ItemID {
	out := make([]catalog.ItemID, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}
