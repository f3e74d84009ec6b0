package clubsite

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/eringen/clubsite/admin"
	"github.com/eringen/clubsite/content"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = content.ErrNotFound

// PublicCache holds the lists behind the public pages. Each list is
// refreshed when older than the TTL and invalidated after every admin
// mutation; when a refresh fails the previous items keep being served.
type PublicCache struct {
	Upcoming     *admin.ListCache[content.Event]
	Past         *admin.ListCache[content.Event]
	Posts        *admin.ListCache[content.BlogPost]
	Testimonials *admin.ListCache[content.Testimonial]

	ttl   time.Duration
	group singleflight.Group
	log   *zap.Logger
}

// Lister is the read side of a repository.
type Lister[E any] interface {
	List(ctx context.Context, opt content.ListOptions) ([]E, error)
}

func NewPublicCache(events Lister[content.Event], posts Lister[content.BlogPost], testimonials Lister[content.Testimonial], ttl time.Duration, log *zap.Logger) *PublicCache {
	return &PublicCache{
		Upcoming:     admin.NewListCache(preset(events, content.UpcomingEvents)),
		Past:         admin.NewListCache(preset(events, content.PastEvents)),
		Posts:        admin.NewListCache(preset(posts, content.PublishedPosts)),
		Testimonials: admin.NewListCache(preset(testimonials, content.ApprovedTestimonials)),
		ttl:          ttl,
		log:          log,
	}
}

func preset[E any](l Lister[E], opt content.ListOptions) admin.Loader[E] {
	return func(ctx context.Context) ([]E, error) {
		return l.List(ctx, opt)
	}
}

// Invalidate marks every list stale so the next read refetches it.
func (p *PublicCache) Invalidate() {
	p.Upcoming.Invalidate()
	p.Past.Invalidate()
	p.Posts.Invalidate()
	p.Testimonials.Invalidate()
}

// fresh returns the items of c, refreshing first when stale. Concurrent
// readers of the same list share one refresh.
func fresh[E any](ctx context.Context, p *PublicCache, key string, c *admin.ListCache[E]) ([]E, bool) {
	if c.Age() >= p.ttl {
		_, err, _ := p.group.Do(key, func() (any, error) {
			return nil, c.Refresh(ctx)
		})
		if err != nil {
			p.log.Warn("public list refresh failed, serving stale items", zap.String("list", key), zap.Error(err))
		}
	}
	return c.Items(), c.Loaded()
}

func (p *PublicCache) UpcomingEvents(ctx context.Context) ([]content.Event, bool) {
	return fresh(ctx, p, "upcoming", p.Upcoming)
}

func (p *PublicCache) PastEvents(ctx context.Context) ([]content.Event, bool) {
	return fresh(ctx, p, "past", p.Past)
}

func (p *PublicCache) PublishedPosts(ctx context.Context) ([]content.BlogPost, bool) {
	return fresh(ctx, p, "posts", p.Posts)
}

func (p *PublicCache) ApprovedTestimonials(ctx context.Context) ([]content.Testimonial, bool) {
	return fresh(ctx, p, "testimonials", p.Testimonials)
}

// Post returns a published post by id from the cache.
func (p *PublicCache) Post(ctx context.Context, id string) (content.BlogPost, error) {
	posts, loaded := p.PublishedPosts(ctx)
	for _, post := range posts {
		if post.ID == id {
			return post, nil
		}
	}
	if !loaded {
		return content.BlogPost{}, errors.New("clubsite: blog posts unavailable")
	}
	return content.BlogPost{}, ErrNotFound
}
