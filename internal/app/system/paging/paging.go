// internal/app/system/paging/paging.go
//
// Package paging implements keyset pagination for listings sorted by a
// case-folded name. A listing reads a Query from the URL, turns it into a
// Window over its base filter, runs the count and the find, and hands the
// rows to Finish for the response envelope.
package paging

import (
	"maps"
	"net/http"
	"strconv"

	"github.com/dalemusser/eatandearn/internal/app/system/normalize"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PageSize is the number of rows in one page.
const PageSize = 50

// SortField is the folded-name field every paged listing sorts on.
const SortField = "name_ci"

// Query is what a paged listing reads from the URL.
type Query struct {
	Search string // name prefix, unfolded
	Before string // cursor: page ending before this row
	After  string // cursor: page starting after this row
	Start  int    // 1-based index of the first row, for display
}

// ParseQuery reads q, before, after and start. A missing or invalid start is 1.
func ParseQuery(r *http.Request) Query {
	start, err := strconv.Atoi(query.Get(r, "start"))
	if err != nil || start < 1 {
		start = 1
	}
	return Query{
		Search: normalize.QueryParam(query.Get(r, "q")),
		Before: query.Get(r, "before"),
		After:  query.Get(r, "after"),
		Start:  start,
	}
}

// Window is one page's worth of query: the filter to count, the filter to
// fetch, and the find options. It fetches one extra row to detect a further
// page.
type Window struct {
	Count    bson.M
	Filter   bson.M
	Find     *options.FindOptions
	backward bool
	q        Query
}

// Window narrows base by the name prefix and the cursor. base is not modified.
func (q Query) Window(base bson.M) Window {
	count := maps.Clone(base)
	if count == nil {
		count = bson.M{}
	}
	if fq := text.Fold(q.Search); fq != "" {
		count[SortField] = bson.M{"$gte": fq, "$lt": fq + "\uffff"}
	}

	w := Window{Count: count, Filter: count, q: q}
	order, dir, raw := 1, "gt", q.After
	if q.Before != "" {
		w.backward = true
		order, dir, raw = -1, "lt", q.Before
	}
	if raw != "" {
		if c, ok := wafflemongo.DecodeCursor(raw); ok {
			// The prefix bound and the cursor both constrain SortField.
			w.Filter = bson.M{"$and": []bson.M{count, wafflemongo.KeysetWindow(SortField, dir, c.CI, c.ID)}}
		}
	}
	w.Find = options.Find().
		SetSort(bson.D{{Key: SortField, Value: order}, {Key: "_id", Value: order}}).
		SetLimit(int64(PageSize + 1))
	return w
}

// Page is the envelope of a paged listing. Prev and Next are opaque cursors
// for the before/after query parameters.
type Page[T any] struct {
	Items   []T    `json:"items"`
	Total   int64  `json:"total"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
	HasPrev bool   `json:"has_prev"`
	HasNext bool   `json:"has_next"`
	Prev    string `json:"prev,omitempty"`
	Next    string `json:"next,omitempty"`
}

// Finish puts rows fetched through w into display order, drops the
// look-ahead row and builds the cursors. key and id extract the folded name
// and id of a row.
func Finish[T any](rows []T, total int64, w Window, key func(T) string, id func(T) primitive.ObjectID) Page[T] {
	if w.backward {
		reverse(rows)
	}

	p := Page[T]{Total: total}
	if w.backward {
		if len(rows) > PageSize {
			rows = rows[1:]
			p.HasPrev = true
		}
		p.HasNext = true
	} else {
		if len(rows) > PageSize {
			rows = rows[:PageSize]
			p.HasNext = true
		}
		p.HasPrev = w.q.After != ""
	}
	p.Items = rows

	if len(rows) > 0 {
		p.Start = w.q.Start
		p.End = w.q.Start + len(rows) - 1
		first, last := rows[0], rows[len(rows)-1]
		if p.HasPrev {
			p.Prev = wafflemongo.EncodeCursor(key(first), id(first))
		}
		if p.HasNext {
			p.Next = wafflemongo.EncodeCursor(key(last), id(last))
		}
	}
	return p
}

func reverse[T any](rows []T) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}
