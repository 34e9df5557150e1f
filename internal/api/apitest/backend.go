// Package apitest runs an in-memory catalog backend for tests. It speaks the
// same routes, envelopes and error bodies as the real service.
package apitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/httpclient"
	"github.com/utafrali/storefront/pkg/pagination"
	"github.com/utafrali/storefront/pkg/slug"
)

// SigningKey signs the tokens issued by the fake backend.
var SigningKey = []byte("apitest-signing-key")

// MaxUploadBytes mirrors the backend multipart limit; larger files get a 413.
const MaxUploadBytes = 64 << 10

// Account is a registered user and its password.
type Account struct {
	User     domain.User
	Password string
}

// Request is one recorded call.
type Request struct {
	Method        string
	Path          string
	Query         url.Values
	Authorization string
}

type failure struct {
	status int
	body   string
	times  int // <0 means forever
}

// Backend is a fake catalog backend.
type Backend struct {
	Server *httptest.Server

	mu         sync.Mutex
	categories []domain.Category
	products   []domain.Product
	accounts   map[string]Account
	requests   []Request
	failures   map[string]*failure
	blocks     map[string]*gate
	nextID     atomic.Int64
}

// New starts a backend with no data. Call Close when done.
func New() *Backend {
	b := &Backend{
		accounts: make(map[string]Account),
		failures: make(map[string]*failure),
		blocks:   make(map[string]*gate),
	}
	b.Server = httptest.NewServer(b.routes())
	return b
}

// NewSeeded starts a backend with Seed applied.
func NewSeeded() *Backend {
	b := New()
	b.Seed()
	return b
}

// Close shuts the server down.
func (b *Backend) Close() {
	b.mu.Lock()
	for k, g := range b.blocks {
		g.open()
		delete(b.blocks, k)
	}
	b.mu.Unlock()
	b.Server.Close()
}

// URL is the API base URL, ending in /api.
func (b *Backend) URL() string { return b.Server.URL + "/api" }

// HTTPClient returns an httpclient configured for this backend.
func (b *Backend) HTTPClient() *httpclient.Client {
	cfg := httpclient.DefaultConfig()
	cfg.BaseURL = b.URL()
	cfg.Timeout = 5 * time.Second
	return httpclient.New(cfg)
}

// Seed loads four categories (the last one empty), a dozen products and two
// accounts:
// admin@shop.test / admin and user@shop.test / user.
func (b *Backend) Seed() {
	for _, name := range []string{"Sedie", "Tavoli", "Lampade", "Divani"} {
		b.AddCategory(domain.Category{Name: name, Description: name + " di design"})
	}
	cats := b.Categories()
	singular := []string{"Sedia", "Tavolo", "Lampada"}
	for i := 1; i <= 12; i++ {
		cat := cats[(i-1)%3]
		avail := domain.AvailabilityAvailable
		if i%4 == 0 {
			avail = domain.AvailabilityUnavailable
		}
		b.AddProduct(domain.Product{
			Name:         fmt.Sprintf("%s %02d", singular[(i-1)%3], i),
			Description:  "Pezzo numero " + strconv.Itoa(i),
			Price:        decimal.NewFromInt(int64(10 * i)),
			Availability: avail,
			Highlighted:  i == 3,
			Materials:    []string{"legno", "metallo", "vetro"}[i%3],
			Dimension:    "50x50",
			Category:     &cat,
		})
	}
	b.AddAccount(domain.User{Name: "Ada", Surname: "Admin", Email: "admin@shop.test", Roles: []domain.Role{{Role: "USER"}, {Role: domain.RoleAdmin}}}, "admin")
	b.AddAccount(domain.User{Name: "Ugo", Surname: "User", Email: "user@shop.test", Roles: []domain.Role{{Role: "USER"}}}, "user")
}

func (b *Backend) id(prefix string) string {
	return fmt.Sprintf("%s-%04d", prefix, b.nextID.Add(1))
}

// AddCategory stores c, filling ID and slug when empty.
func (b *Backend) AddCategory(c domain.Category) domain.Category {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c.ID == "" {
		c.ID = b.id("cat")
	}
	if c.Slug == "" {
		c.Slug = slug.Generate(c.Name)
	}
	b.categories = append(b.categories, c)
	return c
}

// AddProduct stores p, filling ID and slug when empty.
func (b *Backend) AddProduct(p domain.Product) domain.Product {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p.ID == "" {
		p.ID = b.id("prd")
	}
	if p.Slug == "" {
		p.Slug = slug.Generate(p.Name)
	}
	if p.Images == nil {
		p.Images = []domain.ProductImage{}
	}
	b.products = append(b.products, p)
	return p
}

// AddAccount registers a user.
func (b *Backend) AddAccount(u domain.User, password string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accounts[u.Email] = Account{User: u, Password: password}
}

// Categories returns a copy of the stored categories.
func (b *Backend) Categories() []domain.Category {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Category(nil), b.categories...)
}

// Products returns a copy of the stored products.
func (b *Backend) Products() []domain.Product {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Product(nil), b.products...)
}

// Requests returns every call received so far.
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

// RequestsTo returns the recorded calls whose path starts with prefix.
func (b *Backend) RequestsTo(method, prefix string) []Request {
	var out []Request
	for _, r := range b.Requests() {
		if r.Method == method && strings.HasPrefix(r.Path, "/api"+prefix) {
			out = append(out, r)
		}
	}
	return out
}

// ResetRequests forgets recorded calls.
func (b *Backend) ResetRequests() {
	b.mu.Lock()
	b.requests = nil
	b.mu.Unlock()
}

// Fail makes the next times calls to "METHOD /route" answer status with body.
// times < 0 fails forever. Routes use chi patterns, e.g. "GET /product/{slug}".
func (b *Backend) Fail(route string, status int, body string, times int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[route] = &failure{status: status, body: body, times: times}
}

// Block holds calls to route until the returned release func is called.
func (b *Backend) Block(route string) (release func()) {
	g := &gate{ch: make(chan struct{})}
	b.mu.Lock()
	b.blocks[route] = g
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		if b.blocks[route] == g {
			delete(b.blocks, route)
		}
		b.mu.Unlock()
		g.open()
	}
}

type gate struct {
	ch   chan struct{}
	once sync.Once
}

func (g *gate) open() { g.once.Do(func() { close(g.ch) }) }

// IssueToken signs a token for email, valid for ttl.
func IssueToken(email string, ttl time.Duration) string {
	claims := jwt.RegisteredClaims{
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(SigningKey)
	if err != nil {
		panic(err)
	}
	return token
}

func (b *Backend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(b.record, b.inject)

	r.Route("/api", func(r chi.Router) {
		r.Get("/category", b.listCategories)
		r.Get("/category/{id}", b.getCategory)
		r.Get("/product", b.listProducts)
		r.Get("/product/{id}", b.getProduct)
		r.Post("/auth/login", b.login)
		r.Post("/auth/register", b.register)

		r.Group(func(r chi.Router) {
			r.Use(b.authenticated)
			r.Get("/users/me", b.me)
		})

		r.Group(func(r chi.Router) {
			r.Use(b.authenticated, b.admin)
			r.Post("/category", b.createCategory)
			r.Put("/category/{id}", b.updateCategory)
			r.Delete("/category/{id}", b.deleteCategory)
			r.Post("/category/{id}/upload-cover", b.uploadCover)
			r.Post("/product", b.createProduct)
			r.Put("/product/{id}", b.updateProduct)
			r.Delete("/product/{id}", b.deleteProduct)
			r.Post("/product/{id}/upload-image", b.uploadImage)
			r.Delete("/product-images/{id}", b.deleteImage)
		})
	})
	return r
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.requests = append(b.requests, Request{
			Method:        r.Method,
			Path:          r.URL.Path,
			Query:         r.URL.Query(),
			Authorization: r.Header.Get("Authorization"),
		})
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// inject applies Fail and Block rules. It runs before routing, so it derives
// the route pattern itself; reads use {slug} and writes use {id}.
func (b *Backend) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.Method + " " + routePattern(r.Method, r.URL.Path)

		b.mu.Lock()
		var block chan struct{}
		if g := b.blocks[route]; g != nil {
			block = g.ch
		}
		f := b.failures[route]
		var status int
		var body string
		if f != nil && f.times != 0 {
			status, body = f.status, f.body
			if f.times > 0 {
				f.times--
			}
		}
		b.mu.Unlock()

		if block != nil {
			select {
			case <-block:
			case <-r.Context().Done():
				return
			}
		}
		if status != 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = io.WriteString(w, body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func routePattern(method, path string) string {
	p := strings.TrimPrefix(path, "/api")
	parts := strings.Split(strings.Trim(p, "/"), "/")
	switch {
	case len(parts) == 2 && (parts[0] == "category" || parts[0] == "product"):
		if method == http.MethodGet {
			return "/" + parts[0] + "/{slug}"
		}
		return "/" + parts[0] + "/{id}"
	case len(parts) == 2 && parts[0] == "product-images":
		return "/product-images/{id}"
	case len(parts) == 3 && parts[2] == "upload-cover":
		return "/category/{id}/upload-cover"
	case len(parts) == 3 && parts[2] == "upload-image":
		return "/product/{id}/upload-image"
	}
	return p
}

func (b *Backend) authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			writeError(w, http.StatusUnauthorized, map[string]any{"error": "Unauthorized"})
			return
		}
		claims := &jwt.RegisteredClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return SigningKey, nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			writeError(w, http.StatusUnauthorized, map[string]any{"message": "Token expired or invalid"})
			return
		}
		b.mu.Lock()
		acc, found := b.accounts[claims.Subject]
		b.mu.Unlock()
		if !found {
			writeError(w, http.StatusUnauthorized, map[string]any{"message": "Unknown user"})
			return
		}
		next.ServeHTTP(w, r.WithContext(withAccount(r.Context(), acc)))
	})
}

func (b *Backend) admin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if acc, ok := accountFrom(r.Context()); !ok || !acc.User.IsAdmin() {
			writeError(w, http.StatusForbidden, map[string]any{"error": "Forbidden"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) listCategories(w http.ResponseWriter, r *http.Request) {
	params := pageParams(r.URL.Query(), 100)
	writeJSON(w, http.StatusOK, pagination.Slice(b.Categories(), params))
}

func (b *Backend) getCategory(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "id")
	for _, c := range b.Categories() {
		if c.Slug == key {
			writeJSON(w, http.StatusOK, c)
			return
		}
	}
	writeError(w, http.StatusNotFound, map[string]any{"message": "Category " + key + " not found"})
}

func (b *Backend) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var matched []domain.Product
	for _, p := range b.Products() {
		if productMatches(p, q) {
			matched = append(matched, p)
		}
	}
	sortProducts(matched, q.Get("sort"))
	writeJSON(w, http.StatusOK, pagination.Slice(matched, pageParams(q, 9)))
}

func productMatches(p domain.Product, q url.Values) bool {
	contains := func(field, key string) bool {
		v := q.Get(key)
		return v == "" || strings.Contains(strings.ToLower(field), strings.ToLower(v))
	}
	if !contains(p.Name, "name") || !contains(p.Description, "description") ||
		!contains(p.Materials, "material") || !contains(p.Dimension, "dimension") {
		return false
	}
	if id := q.Get("categoryId"); id != "" && (p.Category == nil || p.Category.ID != id) {
		return false
	}
	if a := q.Get("availability"); a != "" && p.Availability != a {
		return false
	}
	if h := q.Get("highlighted"); h != "" && strconv.FormatBool(p.Highlighted) != h {
		return false
	}
	if v := q.Get("minPrice"); v != "" {
		if lo, err := decimal.NewFromString(v); err == nil && p.Price.LessThan(lo) {
			return false
		}
	}
	if v := q.Get("maxPrice"); v != "" {
		if hi, err := decimal.NewFromString(v); err == nil && p.Price.GreaterThan(hi) {
			return false
		}
	}
	return true
}

func sortProducts(ps []domain.Product, param string) {
	field, dir, _ := strings.Cut(param, ",")
	desc := dir == "desc"
	less := func(i, j int) bool { return ps[i].ID < ps[j].ID }
	switch field {
	case "name":
		less = func(i, j int) bool { return ps[i].Name < ps[j].Name }
	case "price":
		less = func(i, j int) bool { return ps[i].Price.LessThan(ps[j].Price) }
	}
	sort.SliceStable(ps, func(i, j int) bool {
		if desc {
			return less(j, i)
		}
		return less(i, j)
	})
}

func (b *Backend) getProduct(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "id")
	for _, p := range b.Products() {
		if p.Slug == key {
			writeJSON(w, http.StatusOK, p)
			return
		}
	}
	writeError(w, http.StatusNotFound, map[string]any{"message": "Product " + key + " not found"})
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var creds domain.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, map[string]any{"error": "Bad Request"})
		return
	}
	b.mu.Lock()
	acc, ok := b.accounts[creds.Email]
	b.mu.Unlock()
	if !ok || acc.Password != creds.Password {
		writeError(w, http.StatusUnauthorized, map[string]any{"message": "Invalid email or password"})
		return
	}
	writeJSON(w, http.StatusOK, domain.LoginResponse{AccessToken: IssueToken(creds.Email, time.Hour)})
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var reg domain.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeError(w, http.StatusBadRequest, map[string]any{"error": "Bad Request"})
		return
	}
	var missing []string
	for field, v := range map[string]string{"name": reg.Name, "surname": reg.Surname, "email": reg.Email, "password": reg.Password} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, field+": must not be blank")
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		writeError(w, http.StatusBadRequest, map[string]any{"errorsList": missing})
		return
	}
	b.mu.Lock()
	_, exists := b.accounts[reg.Email]
	b.mu.Unlock()
	if exists {
		writeError(w, http.StatusConflict, map[string]any{"message": "Email " + reg.Email + " is already registered"})
		return
	}
	u := domain.User{Name: reg.Name, Surname: reg.Surname, Email: reg.Email, Roles: []domain.Role{{Role: "USER"}}}
	b.AddAccount(u, reg.Password)
	writeJSON(w, http.StatusCreated, u)
}

func (b *Backend) me(w http.ResponseWriter, r *http.Request) {
	acc, _ := accountFrom(r.Context())
	writeJSON(w, http.StatusOK, acc.User)
}

func (b *Backend) createCategory(w http.ResponseWriter, r *http.Request) {
	var in domain.CategoryInput
	if !decodeInput(w, r, &in) {
		return
	}
	for _, c := range b.Categories() {
		if strings.EqualFold(c.Name, in.Name) {
			writeError(w, http.StatusConflict, map[string]any{"message": "A category named " + in.Name + " already exists"})
			return
		}
	}
	c := b.AddCategory(domain.Category{Name: in.Name, Description: in.Description, CoverImageURL: in.CoverImageURL})
	writeJSON(w, http.StatusCreated, c)
}

func (b *Backend) updateCategory(w http.ResponseWriter, r *http.Request) {
	var in domain.CategoryInput
	if !decodeInput(w, r, &in) {
		return
	}
	id := chi.URLParam(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.categories {
		if b.categories[i].ID == id {
			c := &b.categories[i]
			c.Name, c.Description, c.Slug = in.Name, in.Description, slug.Generate(in.Name)
			writeJSON(w, http.StatusOK, *c)
			return
		}
	}
	writeError(w, http.StatusNotFound, map[string]any{"message": "Category not found"})
}

func (b *Backend) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.products {
		if p.Category != nil && p.Category.ID == id {
			writeError(w, http.StatusInternalServerError, map[string]any{
				"error": "could not execute statement; SQL [n/a]; constraint [fk_product_category]; nested exception is org.hibernate.exception.ConstraintViolationException",
			})
			return
		}
	}
	for i, c := range b.categories {
		if c.ID == id {
			b.categories = append(b.categories[:i], b.categories[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeError(w, http.StatusNotFound, map[string]any{"message": "Category not found"})
}

func (b *Backend) uploadCover(w http.ResponseWriter, r *http.Request) {
	name, ok := readUpload(w, r, "cover")
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.categories {
		if b.categories[i].ID == id {
			b.categories[i].CoverImageURL = "/uploads/categories/" + id + "/" + name
			writeJSON(w, http.StatusOK, b.categories[i])
			return
		}
	}
	writeError(w, http.StatusNotFound, map[string]any{"message": "Category not found"})
}

func (b *Backend) createProduct(w http.ResponseWriter, r *http.Request) {
	var in domain.ProductInput
	if !decodeInput(w, r, &in) {
		return
	}
	cat, ok := b.category(in.CategoryID)
	if !ok {
		writeError(w, http.StatusBadRequest, map[string]any{"errorsList": []string{"categoryId: category does not exist"}})
		return
	}
	p := b.AddProduct(productFromInput(domain.Product{}, in, cat))
	writeJSON(w, http.StatusCreated, p)
}

func (b *Backend) updateProduct(w http.ResponseWriter, r *http.Request) {
	var in domain.ProductInput
	if !decodeInput(w, r, &in) {
		return
	}
	cat, ok := b.category(in.CategoryID)
	if !ok {
		writeError(w, http.StatusBadRequest, map[string]any{"errorsList": []string{"categoryId: category does not exist"}})
		return
	}
	id := chi.URLParam(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.products {
		if b.products[i].ID == id {
			b.products[i] = productFromInput(b.products[i], in, cat)
			writeJSON(w, http.StatusOK, b.products[i])
			return
		}
	}
	writeError(w, http.StatusNotFound, map[string]any{"message": "Product not found"})
}

func productFromInput(p domain.Product, in domain.ProductInput, cat domain.Category) domain.Product {
	p.Name, p.Description, p.Price = in.Name, in.Description, in.Price
	p.Availability, p.Highlighted = in.Availability, in.Highlighted
	p.Materials, p.Dimension = in.Materials, in.Dimension
	p.Category = &cat
	p.Slug = slug.Generate(in.Name)
	return p
}

func (b *Backend) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, p := range b.products {
		if p.ID == id {
			b.products = append(b.products[:i], b.products[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeError(w, http.StatusNotFound, map[string]any{"message": "Product not found"})
}

func (b *Backend) uploadImage(w http.ResponseWriter, r *http.Request) {
	name, ok := readUpload(w, r, "image")
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.products {
		if b.products[i].ID == id {
			img := domain.ProductImage{
				ID:       b.id("img"),
				ImageURL: "/uploads/products/" + id + "/" + name,
				AltText:  name,
				Order:    len(b.products[i].Images),
			}
			b.products[i].Images = append(b.products[i].Images, img)
			writeJSON(w, http.StatusCreated, img)
			return
		}
	}
	writeError(w, http.StatusNotFound, map[string]any{"message": "Product not found"})
}

func (b *Backend) deleteImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.products {
		imgs := b.products[i].Images
		for j, img := range imgs {
			if img.ID == id {
				b.products[i].Images = append(imgs[:j], imgs[j+1:]...)
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
	}
	writeError(w, http.StatusNotFound, map[string]any{"message": "Image not found"})
}

func (b *Backend) category(id string) (domain.Category, bool) {
	for _, c := range b.Categories() {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Category{}, false
}

func readUpload(w http.ResponseWriter, r *http.Request, field string) (string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes+4096)
	if err := r.ParseMultipartForm(MaxUploadBytes + 4096); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, nil)
		return "", false
	}
	file, hdr, err := r.FormFile(field)
	if err != nil {
		writeError(w, http.StatusBadRequest, map[string]any{"message": "missing multipart field " + field})
		return "", false
	}
	defer file.Close()
	if hdr.Size > MaxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, nil)
		return "", false
	}
	return hdr.Filename, true
}

func decodeInput(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, map[string]any{"error": "Bad Request"})
		return false
	}
	return true
}

func pageParams(q url.Values, defSize int) pagination.Params {
	page, _ := strconv.Atoi(q.Get("page"))
	size, err := strconv.Atoi(q.Get("size"))
	if err != nil {
		size = defSize
	}
	return pagination.Params{Page: page, Size: size}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError sends body as the error envelope; a nil body sends no content.
func writeError(w http.ResponseWriter, status int, body map[string]any) {
	if body == nil {
		w.WriteHeader(status)
		return
	}
	body["status"] = status
	writeJSON(w, status, body)
}
