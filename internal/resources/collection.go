package resources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"stockdesk/internal/gateway"
	"stockdesk/pkg/listing"
)

// ListOptions narrows a collection fetch.
type ListOptions struct {
	Page     int
	PageSize int
	Search   string
	Filters  map[string]string
}

func (o ListOptions) query() url.Values {
	q := url.Values{}
	if o.Page > 0 {
		q.Set("page", strconv.Itoa(o.Page))
	}
	if o.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(o.PageSize))
	}
	if o.Search != "" {
		q.Set("search", o.Search)
	}
	for k, v := range o.Filters {
		q.Set(k, v)
	}
	return q
}

// Collection is a REST collection of T behind the authenticated gateway.
type Collection[T any] struct {
	client *gateway.Client
	path   string
}

// NewCollection binds a collection rooted at path, e.g. "/api/products/".
func NewCollection[T any](client *gateway.Client, path string) *Collection[T] {
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	return &Collection[T]{client: client, path: path}
}

// Path returns the collection root.
func (c *Collection[T]) Path() string {
	return c.path
}

// List fetches one page. Paginated and bare responses both come back as an
// envelope.
func (c *Collection[T]) List(ctx context.Context, opts ListOptions) (listing.Envelope[T], error) {
	resp, err := c.client.Get(ctx, c.path, opts.query())
	if err != nil {
		return listing.Envelope[T]{}, err
	}
	envelope, err := listing.Normalize[T](resp.Body)
	if err != nil {
		return listing.Envelope[T]{}, fmt.Errorf("failed to read %s: %w", c.path, err)
	}
	return envelope, nil
}

// Next fetches the page after envelope, following the server's link. A link
// to another origin is refused so the credential stays with the API.
func (c *Collection[T]) Next(ctx context.Context, envelope listing.Envelope[T]) (listing.Envelope[T], error) {
	if !envelope.HasMore() {
		return listing.Envelope[T]{}, fmt.Errorf("no further page")
	}
	if err := c.checkOrigin(*envelope.Next); err != nil {
		return listing.Envelope[T]{}, err
	}
	resp, err := c.client.Get(ctx, *envelope.Next, nil)
	if err != nil {
		return listing.Envelope[T]{}, err
	}
	return listing.Normalize[T](resp.Body)
}

// Get fetches one record.
func (c *Collection[T]) Get(ctx context.Context, id ID) (*T, error) {
	resp, err := c.client.Get(ctx, c.itemPath(id), nil)
	if err != nil {
		return nil, err
	}
	var record T
	if err := resp.Decode(&record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Create posts a new record and returns the server's copy.
func (c *Collection[T]) Create(ctx context.Context, record any) (*T, error) {
	return c.write(ctx, http.MethodPost, c.path, record)
}

// Update patches the given fields of a record.
func (c *Collection[T]) Update(ctx context.Context, id ID, fields any) (*T, error) {
	return c.write(ctx, http.MethodPatch, c.itemPath(id), fields)
}

// Delete removes a record.
func (c *Collection[T]) Delete(ctx context.Context, id ID) error {
	_, err := c.client.Issue(ctx, &gateway.Request{Method: http.MethodDelete, Path: c.itemPath(id)})
	return err
}

func (c *Collection[T]) write(ctx context.Context, method, path string, body any) (*T, error) {
	resp, err := c.client.Issue(ctx, &gateway.Request{Method: method, Path: path, Body: body})
	if err != nil {
		return nil, err
	}
	var record T
	if err := resp.Decode(&record); err != nil {
		return nil, err
	}
	return &record, nil
}

// checkOrigin accepts relative links and absolute links on the API's own
// scheme and host.
func (c *Collection[T]) checkOrigin(link string) error {
	next, err := url.Parse(link)
	if err != nil {
		return fmt.Errorf("invalid next link %q: %w", link, err)
	}
	if !next.IsAbs() && next.Host == "" {
		return nil
	}
	base, err := url.Parse(c.client.BaseURL())
	if err != nil {
		return err
	}
	if !strings.EqualFold(next.Scheme, base.Scheme) || !strings.EqualFold(next.Host, base.Host) {
		return fmt.Errorf("refusing to follow next link to %s://%s: not the API origin %s://%s",
			next.Scheme, next.Host, base.Scheme, base.Host)
	}
	return nil
}

func (c *Collection[T]) itemPath(id ID) string {
	return c.path + url.PathEscape(string(id)) + "/"
}

// Companies returns the companies collection.
func Companies(client *gateway.Client) *Collection[Company] {
	return NewCollection[Company](client, KindCompanies.Path)
}

// Warehouses returns the warehouses collection.
func Warehouses(client *gateway.Client) *Collection[Warehouse] {
	return NewCollection[Warehouse](client, KindWarehouses.Path)
}

// Products returns the products collection.
func Products(client *gateway.Client) *Collection[Product] {
	return NewCollection[Product](client, KindProducts.Path)
}

// Users returns the users collection.
func Users(client *gateway.Client) *Collection[User] {
	return NewCollection[User](client, KindUsers.Path)
}

// Roles returns the roles collection.
func Roles(client *gateway.Client) *Collection[Role] {
	return NewCollection[Role](client, KindRoles.Path)
}

// Movements returns the stock movements collection.
func Movements(client *gateway.Client) *Collection[Movement] {
	return NewCollection[Movement](client, KindMovements.Path)
}
