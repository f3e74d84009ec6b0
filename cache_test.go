package clubsite

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eringen/clubsite/content"
)

type listerFunc[E any] func(ctx context.Context, opt content.ListOptions) ([]E, error)

func (f listerFunc[E]) List(ctx context.Context, opt content.ListOptions) ([]E, error) {
	return f(ctx, opt)
}

func emptyLister[E any]() Lister[E] {
	return listerFunc[E](func(context.Context, content.ListOptions) ([]E, error) { return nil, nil })
}

func TestPublicCacheRefreshesOnlyWhenStale(t *testing.T) {
	var calls atomic.Int32
	posts := listerFunc[content.BlogPost](func(_ context.Context, opt content.ListOptions) ([]content.BlogPost, error) {
		calls.Add(1)
		assert.Equal(t, content.PublishedPosts, opt)
		return []content.BlogPost{{ID: "p1", Title: "Hello"}}, nil
	})
	c := NewPublicCache(emptyLister[content.Event](), posts, emptyLister[content.Testimonial](), time.Hour, zap.NewNop())
	ctx := context.Background()

	got, loaded := c.PublishedPosts(ctx)
	assert.True(t, loaded)
	assert.Len(t, got, 1)
	c.PublishedPosts(ctx)
	assert.Equal(t, int32(1), calls.Load())

	c.Invalidate()
	c.PublishedPosts(ctx)
	assert.Equal(t, int32(2), calls.Load())
}

func TestPublicCacheSharesConcurrentRefresh(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	events := listerFunc[content.Event](func(context.Context, content.ListOptions) ([]content.Event, error) {
		calls.Add(1)
		<-release
		return []content.Event{{ID: "e1"}}, nil
	})
	c := NewPublicCache(events, emptyLister[content.BlogPost](), emptyLister[content.Testimonial](), time.Hour, zap.NewNop())

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.UpcomingEvents(context.Background())
		}()
	}
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
}

func TestPublicCachePost(t *testing.T) {
	fail := false
	posts := listerFunc[content.BlogPost](func(context.Context, content.ListOptions) ([]content.BlogPost, error) {
		if fail {
			return nil, errors.New("offline")
		}
		return []content.BlogPost{{ID: "p1", Title: "Hello"}}, nil
	})
	c := NewPublicCache(emptyLister[content.Event](), posts, emptyLister[content.Testimonial](), time.Hour, zap.NewNop())
	ctx := context.Background()

	p, err := c.Post(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Hello", p.Title)

	_, err = c.Post(ctx, "p2")
	assert.ErrorIs(t, err, ErrNotFound)

	fail = true
	c.Invalidate()
	p, err = c.Post(ctx, "p1")
	require.NoError(t, err, "stale items are served when a refresh fails")
	assert.Equal(t, "Hello", p.Title)
}

func TestPublicCacheNeverLoaded(t *testing.T) {
	posts := listerFunc[content.BlogPost](func(context.Context, content.ListOptions) ([]content.BlogPost, error) {
		return nil, errors.New("offline")
	})
	c := NewPublicCache(emptyLister[content.Event](), posts, emptyLister[content.Testimonial](), time.Hour, zap.NewNop())

	items, loaded := c.PublishedPosts(context.Background())
	assert.Empty(t, items)
	assert.False(t, loaded)
	_, err := c.Post(context.Background(), "p1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
