package content

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/eringen/clubsite/remote"
)

// ListOptions selects and orders a whole-table read. There is no
// pagination: List always returns every matching row.
type ListOptions struct {
	OrderBy   string
	Ascending bool
	Filters   []remote.Filter
}

// List presets used by the admin panel and the public pages.
var (
	AdminEvents          = ListOptions{OrderBy: "created_at"}
	UpcomingEvents       = ListOptions{OrderBy: "event_date", Ascending: true, Filters: []remote.Filter{{Column: "status", Value: StatusUpcoming}}}
	PastEvents           = ListOptions{OrderBy: "event_date", Filters: []remote.Filter{{Column: "status", Value: StatusCompleted}}}
	AllPosts             = ListOptions{OrderBy: "created_at"}
	PublishedPosts       = ListOptions{OrderBy: "created_at", Filters: []remote.Filter{{Column: "published", Value: true}}}
	AllTestimonials      = ListOptions{OrderBy: "created_at"}
	ApprovedTestimonials = ListOptions{OrderBy: "created_at", Filters: []remote.Filter{{Column: "approved", Value: true}}}
)

// Option configures a repository.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger sets the logger remote failures are reported to.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Repository reads and writes one table. Every method issues exactly one
// remote call; failures are logged here and returned unchanged.
type Repository[E Record, D Draft] struct {
	client *remote.Client
	table  string
	decode func(remote.Row) (E, error)
	// onCreate holds columns added to every insert.
	onCreate remote.Row
	log      *zap.Logger
}

// NewEventRepository returns the events repository. New events start with
// zero participants.
func NewEventRepository(c *remote.Client, opts ...Option) *Repository[Event, *EventDraft] {
	o := buildOptions(opts)
	return &Repository[Event, *EventDraft]{
		client:   c,
		table:    EventsTable,
		decode:   eventFromRow,
		onCreate: remote.Row{"current_participants": int64(0)},
		log:      o.logger.With(zap.String("table", EventsTable)),
	}
}

// NewBlogRepository returns the blog_posts repository.
func NewBlogRepository(c *remote.Client, opts ...Option) *Repository[BlogPost, *BlogDraft] {
	o := buildOptions(opts)
	return &Repository[BlogPost, *BlogDraft]{
		client: c,
		table:  BlogPostsTable,
		decode: blogPostFromRow,
		log:    o.logger.With(zap.String("table", BlogPostsTable)),
	}
}

func (r *Repository[E, D]) Table() string { return r.table }

func (r *Repository[E, D]) List(ctx context.Context, opt ListOptions) ([]E, error) {
	return list(ctx, r.client, r.table, opt, r.decode, r.log)
}

// Get returns the row with the given id, or ErrNotFound.
func (r *Repository[E, D]) Get(ctx context.Context, id string) (E, error) {
	return get(ctx, r.client, r.table, id, r.decode, r.log)
}

// Create inserts the draft and returns the stored row.
func (r *Repository[E, D]) Create(ctx context.Context, d D) (E, error) {
	var zero E
	row, err := d.Row()
	if err != nil {
		return zero, err
	}
	for k, v := range r.onCreate {
		row[k] = v
	}
	res, err := r.client.From(r.table).Insert(row).Exec(ctx)
	if err != nil {
		r.log.Error("create failed", zap.Error(err))
		return zero, err
	}
	return r.first(res)
}

// Update overwrites the row with the given id with the draft. There is no
// version check: the last write wins.
func (r *Repository[E, D]) Update(ctx context.Context, id string, d D) (E, error) {
	var zero E
	row, err := d.Row()
	if err != nil {
		return zero, err
	}
	res, err := r.client.From(r.table).Update(row).Eq("id", id).Exec(ctx)
	if err != nil {
		r.log.Error("update failed", zap.String("id", id), zap.Error(err))
		return zero, err
	}
	return r.first(res)
}

func (r *Repository[E, D]) Delete(ctx context.Context, id string) error {
	res, err := r.client.From(r.table).Delete().Eq("id", id).Exec(ctx)
	if err != nil {
		r.log.Error("delete failed", zap.String("id", id), zap.Error(err))
		return err
	}
	if res.Count == 0 {
		return fmt.Errorf("%w: %s %s", ErrNotFound, r.table, id)
	}
	return nil
}

func (r *Repository[E, D]) Count(ctx context.Context) (int, error) {
	return count(ctx, r.client, r.table, r.log)
}

func (r *Repository[E, D]) first(res remote.Result) (E, error) {
	var zero E
	if len(res.Data) == 0 {
		return zero, ErrNotFound
	}
	return r.decode(res.Data[0])
}

// TestimonialRepository reads testimonials. Approval is the only write.
type TestimonialRepository struct {
	client *remote.Client
	log    *zap.Logger
}

// Approver flips the approved flag of a testimonial.
type Approver interface {
	SetApproved(ctx context.Context, id string, approved bool) error
}

var _ Approver = (*TestimonialRepository)(nil)

func NewTestimonialRepository(c *remote.Client, opts ...Option) *TestimonialRepository {
	o := buildOptions(opts)
	return &TestimonialRepository{client: c, log: o.logger.With(zap.String("table", TestimonialsTable))}
}

func (r *TestimonialRepository) List(ctx context.Context, opt ListOptions) ([]Testimonial, error) {
	return list(ctx, r.client, TestimonialsTable, opt, testimonialFromRow, r.log)
}

func (r *TestimonialRepository) Count(ctx context.Context) (int, error) {
	return count(ctx, r.client, TestimonialsTable, r.log)
}

func (r *TestimonialRepository) SetApproved(ctx context.Context, id string, approved bool) error {
	res, err := r.client.From(TestimonialsTable).Update(remote.Row{"approved": approved}).Eq("id", id).Exec(ctx)
	if err != nil {
		r.log.Error("approve failed", zap.String("id", id), zap.Error(err))
		return err
	}
	if res.Count == 0 {
		return fmt.Errorf("%w: %s %s", ErrNotFound, TestimonialsTable, id)
	}
	return nil
}

// ProfileRepository answers role lookups for admin sign-in.
type ProfileRepository struct {
	client *remote.Client
	log    *zap.Logger
}

func NewProfileRepository(c *remote.Client, opts ...Option) *ProfileRepository {
	o := buildOptions(opts)
	return &ProfileRepository{client: c, log: o.logger.With(zap.String("table", ProfilesTable))}
}

// Role returns the role recorded for email, or ErrNotFound when no profile
// exists. Emails compare case-insensitively.
func (r *ProfileRepository) Role(ctx context.Context, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.client.From(ProfilesTable).Select().Eq("email", email).Limit(1).Exec(ctx)
	if err != nil {
		r.log.Error("role lookup failed", zap.Error(err))
		return "", err
	}
	if len(res.Data) == 0 {
		return "", ErrNotFound
	}
	p, err := profileFromRow(res.Data[0])
	if err != nil {
		return "", err
	}
	return p.Role, nil
}

func (r *ProfileRepository) HasRole(ctx context.Context, email, role string) (bool, error) {
	got, err := r.Role(ctx, email)
	if err != nil {
		return false, err
	}
	return got == role, nil
}

// Upsert records role for email, creating the profile when missing.
func (r *ProfileRepository) Upsert(ctx context.Context, email, role string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.client.From(ProfilesTable).Update(remote.Row{"role": role}).Eq("email", email).Exec(ctx)
	if err != nil {
		r.log.Error("profile update failed", zap.Error(err))
		return err
	}
	if res.Count > 0 {
		return nil
	}
	if _, err := r.client.From(ProfilesTable).Insert(remote.Row{"email": email, "role": role}).Exec(ctx); err != nil {
		r.log.Error("profile insert failed", zap.Error(err))
		return err
	}
	return nil
}

func list[E any](ctx context.Context, c *remote.Client, table string, opt ListOptions, decode func(remote.Row) (E, error), log *zap.Logger) ([]E, error) {
	q := c.From(table).Select()
	for _, f := range opt.Filters {
		q.Eq(f.Column, f.Value)
	}
	if opt.OrderBy != "" {
		q.Order(opt.OrderBy, opt.Ascending)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		log.Error("list failed", zap.Error(err))
		return nil, err
	}
	out := make([]E, 0, len(res.Data))
	for _, row := range res.Data {
		e, err := decode(row)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func get[E any](ctx context.Context, c *remote.Client, table, id string, decode func(remote.Row) (E, error), log *zap.Logger) (E, error) {
	var zero E
	res, err := c.From(table).Select().Eq("id", id).Limit(1).Exec(ctx)
	if err != nil {
		log.Error("get failed", zap.String("id", id), zap.Error(err))
		return zero, err
	}
	if len(res.Data) == 0 {
		return zero, ErrNotFound
	}
	return decode(res.Data[0])
}

func count(ctx context.Context, c *remote.Client, table string, log *zap.Logger) (int, error) {
	res, err := c.From(table).Select("id").Count().Exec(ctx)
	if err != nil {
		log.Error("count failed", zap.Error(err))
		return 0, err
	}
	return res.Count, nil
}
