package reconciler

import (
	"slices"
	"time"

	"github.com/emilythestrangee/blogsocial/backend/internal/views"
)

// ListID names a list of posts held by the reconciler: the feed or one of the
// profile tabs.
type ListID string

const Feed ListID = "feed"

func TabList(tab views.Tab) ListID { return ListID(tab) }

// list is an ordered set of post ids. A list value is never modified after it
// is stored; every change builds a new one.
type list struct {
	ids  []int
	tags map[int]time.Time
}

func newList(ids []int, tags map[int]time.Time) *list {
	if tags == nil {
		tags = map[int]time.Time{}
	}
	return &list{ids: ids, tags: tags}
}

func (l *list) index(id int) int {
	return slices.Index(l.ids, id)
}

func (l *list) tag(id int) *time.Time {
	if t, ok := l.tags[id]; ok {
		return &t
	}
	return nil
}

// with returns a copy of l holding id at position i.
func (l *list) with(i, id int, tag *time.Time) *list {
	i = min(max(i, 0), len(l.ids))
	ids := make([]int, 0, len(l.ids)+1)
	ids = append(ids, l.ids[:i]...)
	ids = append(ids, id)
	ids = append(ids, l.ids[i:]...)

	tags := make(map[int]time.Time, len(l.tags)+1)
	for k, v := range l.tags {
		tags[k] = v
	}
	if tag != nil {
		tags[id] = *tag
	}
	return &list{ids: ids, tags: tags}
}

// without returns a copy of l lacking id.
func (l *list) without(id int) *list {
	tags := make(map[int]time.Time, len(l.tags))
	for k, v := range l.tags {
		if k != id {
			tags[k] = v
		}
	}
	return &list{ids: slices.DeleteFunc(slices.Clone(l.ids), func(x int) bool { return x == id }), tags: tags}
}

// undo is a stack of inverse edits.
type undo []func()

func (u undo) run() {
	for i := len(u) - 1; i >= 0; i-- {
		u[i]()
	}
}

func noop() {}

// The helpers below edit loaded lists only and return the inverse edit. The
// caller holds r.mu, and so does whoever runs the inverse.

func (r *Reconciler) insertAt(lid ListID, i, postID int, tag *time.Time) func() {
	l, ok := r.lists[lid]
	if !ok || l.index(postID) >= 0 {
		return noop
	}
	r.lists[lid] = l.with(i, postID, tag)
	return func() {
		if cur, ok := r.lists[lid]; ok {
			r.lists[lid] = cur.without(postID)
		}
	}
}

func (r *Reconciler) prepend(lid ListID, postID int, tag *time.Time) func() {
	return r.insertAt(lid, 0, postID, tag)
}

// insertByDate places postID among the newest-first entries of a list.
func (r *Reconciler) insertByDate(lid ListID, postID int) func() {
	l, ok := r.lists[lid]
	if !ok {
		return noop
	}
	created := r.posts[postID].CreatedAt
	i := len(l.ids)
	for j, id := range l.ids {
		if p, ok := r.posts[id]; ok && !p.CreatedAt.After(created) {
			i = j
			break
		}
	}
	return r.insertAt(lid, i, postID, nil)
}

func (r *Reconciler) remove(lid ListID, postID int) func() {
	l, ok := r.lists[lid]
	if !ok {
		return noop
	}
	i := l.index(postID)
	if i < 0 {
		return noop
	}
	tag := l.tag(postID)
	r.lists[lid] = l.without(postID)
	return func() {
		if cur, ok := r.lists[lid]; ok && cur.index(postID) < 0 {
			r.lists[lid] = cur.with(i, postID, tag)
		}
	}
}

// moveToFront puts postID first in a loaded list with a fresh tag.
func (r *Reconciler) moveToFront(lid ListID, postID int, tag time.Time) {
	l, ok := r.lists[lid]
	if !ok {
		return
	}
	r.lists[lid] = l.without(postID).with(0, postID, &tag)
}

// dropEverywhere removes postID from every list.
func (r *Reconciler) dropEverywhere(postID int) {
	for lid, l := range r.lists {
		if l.index(postID) >= 0 {
			r.lists[lid] = l.without(postID)
		}
	}
}

func (r *Reconciler) items(lid ListID) []Item {
	l, ok := r.lists[lid]
	if !ok {
		return nil
	}
	out := make([]Item, 0, len(l.ids))
	for _, id := range l.ids {
		if p, ok := r.posts[id]; ok {
			out = append(out, Item{Post: p, Tag: l.tag(id)})
		}
	}
	return out
}

// merge builds the list left behind by a fetch issued at since. Posts that
// changed locally after since keep the membership, position and tag they
// have in the held list; the rest follow the fetch.
func (r *Reconciler) merge(lid ListID, fetched []int, tags map[int]time.Time, since uint64) *list {
	old, loaded := r.lists[lid]
	if !loaded {
		return newList(fetched, tags)
	}
	if tags == nil {
		tags = map[int]time.Time{}
	}
	ids := make([]int, 0, len(fetched))
	for _, id := range fetched {
		if r.fresher(id, since) && old.index(id) < 0 {
			continue
		}
		ids = append(ids, id)
	}
	for i, id := range old.ids {
		if !r.fresher(id, since) {
			continue
		}
		if t := old.tag(id); t != nil {
			tags[id] = *t
		}
		if !slices.Contains(ids, id) {
			ids = slices.Insert(ids, min(i, len(ids)), id)
		}
	}
	return newList(ids, tags)
}

// realign fixes the membership of the viewer's own tab for posts changed
// locally after the tab fetch was issued, since the listing predates them.
func (r *Reconciler) realign(tab views.Tab, since uint64) {
	lid := TabList(tab)
	for id, p := range r.posts {
		if r.touched[target{targetPost, id}] <= since {
			continue
		}
		var in bool
		switch tab {
		case views.TabLikes:
			in = p.Liked()
		case views.TabReposts:
			in = p.Reposted()
		case views.TabHidden:
			in = p.IsHidden && p.Author.ID == r.profile
		case views.TabPosts:
			in = !p.IsHidden && p.Author.ID == r.profile
		default:
			return
		}
		present := r.lists[lid].index(id) >= 0
		switch {
		case in && !present && tab == views.TabPosts:
			r.insertByDate(lid, id)
		case in && !present && tab == views.TabHidden:
			r.prepend(lid, id, nil)
		case in && !present:
			now := r.now()
			r.prepend(lid, id, &now)
		case !in && present:
			r.remove(lid, id)
		}
	}
}
