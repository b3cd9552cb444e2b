// Package storefront composes catalog loading, category and search
// filtering and the cart into the one state holder a presentation layer talks
// to. Construct a Facade once and pass it to whatever renders.
package storefront

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"Storefront/internal/cart"
	"Storefront/internal/catalog"
	"Storefront/internal/debounce"
	"Storefront/internal/kv"
	"Storefront/internal/search"
	"Storefront/pkg/kit"
)

type SearchStatus int

const (
	// SearchInactive: the settled query is too short to filter.
	SearchInactive SearchStatus = iota
	SearchHasResults
	SearchNoResults
)

func (s SearchStatus) String() string {
	switch s {
	case SearchInactive:
		return "inactive"
	case SearchHasResults:
		return "results"
	case SearchNoResults:
		return "no_results"
	}
	return "unknown"
}

// Change names the input that moved in a change notification.
type Change string

const (
	ChangeCatalog  Change = "catalog"
	ChangeCategory Change = "category"
	ChangeSearch   Change = "search"
	ChangeCart     Change = "cart"

	// ChangeSearchText: the raw query moved; results follow with ChangeSearch.
	ChangeSearchText Change = "search_text"
)

type Options struct {
	Source catalog.Source
	KV     kv.Store

	Clock   debounce.Clock
	Log     *zap.Logger
	Metrics *kit.CoreMetrics

	SearchQuiet time.Duration
	CartQuiet   time.Duration
	CartKey     string

	// MinQueryLength of zero means catalog.MinQueryLength.
	MinQueryLength int

	// OnChange is called after a state change that can alter what a
	// consumer shows. It is never called for no-op mutations and never with
	// a Facade lock held.
	OnChange func(Change)
}

// Actions are the mutation entry points as plain funcs. The Facade builds
// them once; Actions() always returns the same value.
type Actions struct {
	AddToCart         func(id int)
	RemoveFromCart    func(id int)
	SelectCategory    func(label string)
	UpdateSearchQuery func(raw string)
}

type Facade struct {
	log      *zap.Logger
	loader   *catalog.Loader
	filter   *catalog.CategoryFilter
	query    *search.Query
	cart     *cart.Store
	minLen   int
	onChange func(Change)
	actions  *Actions

	startOnce sync.Once

	// inputs is held for writing by mutations that touch more than one input
	// and for reading while a derivation samples them.
	inputs sync.RWMutex

	memoMu sync.Mutex
	memo   memo
}

type memoKey struct {
	generation   uint64
	category     string
	queryVersion uint64
}

type derived struct {
	visible []catalog.Product
	results []catalog.Product
	status  SearchStatus
}

type memo struct {
	valid bool
	key   memoKey
	derived
}

// New wires the components and hydrates the cart. The catalog is not
// fetched until Start or Load.
func New(ctx context.Context, opts Options) *Facade {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.MinQueryLength <= 0 {
		opts.MinQueryLength = catalog.MinQueryLength
	}

	f := &Facade{
		log:      opts.Log,
		filter:   catalog.NewCategoryFilter(),
		minLen:   opts.MinQueryLength,
		onChange: opts.OnChange,
	}

	f.loader = catalog.NewLoader(opts.Source, opts.Log.Named("catalog"), opts.Metrics)
	f.loader.OnChange(func(catalog.Result) { f.emit(ChangeCatalog) })

	f.query = search.NewQuery(search.Options{
		Quiet:   opts.SearchQuiet,
		Clock:   opts.Clock,
		Metrics: opts.Metrics,
		OnSettle: func(settled string) {
			f.log.Debug("search settled", zap.String("query", settled))
			f.emit(ChangeSearch)
		},
	})

	f.cart = cart.New(ctx, cart.Options{
		KV:      opts.KV,
		Key:     opts.CartKey,
		Quiet:   opts.CartQuiet,
		Clock:   opts.Clock,
		Log:     opts.Log.Named("cart"),
		Metrics: opts.Metrics,
	})

	f.actions = &Actions{
		AddToCart:         f.AddToCart,
		RemoveFromCart:    f.RemoveFromCart,
		SelectCategory:    func(label string) { f.SelectCategory(label) },
		UpdateSearchQuery: f.UpdateSearchQuery,
	}
	return f
}

// Start kicks off the catalog load in the background. Only the first call
// does anything.
func (f *Facade) Start(ctx context.Context) {
	f.startOnce.Do(func() {
		go f.loader.Load(ctx)
	})
}

// Load fetches the catalog if it is not loaded yet and waits for it.
func (f *Facade) Load(ctx context.Context) catalog.Result {
	return f.loader.Load(ctx)
}

// Reload drops the loaded catalog and fetches it again.
func (f *Facade) Reload(ctx context.Context) catalog.Result {
	f.loader.Invalidate()
	return f.loader.Load(ctx)
}

func (f *Facade) Actions() *Actions { return f.actions }

func (f *Facade) IsLoading() bool {
	return f.loader.State().Status == catalog.StatusPending
}

// Err is the current load error, nil unless the last attempt failed.
func (f *Facade) Err() error {
	return f.loader.State().Err
}

func (f *Facade) LoadStatus() catalog.Status {
	return f.loader.State().Status
}

// Categories is empty until the catalog is ready. The slice is the caller's
// own copy.
func (f *Facade) Categories() []string {
	c := f.loader.State().Categories
	out := make([]string, len(c))
	copy(out, c)
	return out
}

func (f *Facade) SelectedCategory() string { return f.filter.Selected() }

// VisibleProducts is the catalog narrowed by the selected category.
func (f *Facade) VisibleProducts() []catalog.Product { return f.derive().visible }

// SearchResults is VisibleProducts narrowed by the settled query; empty
// while the query is shorter than the minimum length.
func (f *Facade) SearchResults() []catalog.Product { return f.derive().results }

func (f *Facade) SearchStatus() SearchStatus { return f.derive().status }

// Displayed applies the precedence rule: search results when there are any,
// the category view otherwise. Use SearchStatus to tell "no matches" apart
// from "not searching".
func (f *Facade) Displayed() []catalog.Product {
	d := f.derive()
	if len(d.results) > 0 {
		return d.results
	}
	return d.visible
}

// SearchText is the raw query, updated on every keystroke.
func (f *Facade) SearchText() string { return f.query.Raw() }

func (f *Facade) SettledQuery() string { return f.query.Settled() }

func (f *Facade) CartCount() int { return f.cart.Size() }

func (f *Facade) InCart(id int) bool { return f.cart.Contains(id) }

func (f *Facade) CartIDs() []int { return f.cart.IDs() }

func (f *Facade) AddToCart(id int) {
	if f.cart.Add(id) {
		f.log.Debug("cart add", zap.Int("product_id", id))
		f.emit(ChangeCart)
	}
}

func (f *Facade) RemoveFromCart(id int) {
	if f.cart.Remove(id) {
		f.log.Debug("cart remove", zap.Int("product_id", id))
		f.emit(ChangeCart)
	}
}

// SelectCategory switches the category filter (selecting the active one
// toggles back to "all") and clears the search, raw and settled, in the same
// step. It returns the resulting selection.
func (f *Facade) SelectCategory(label string) string {
	f.inputs.Lock()
	previous := f.filter.Selected()
	selected := f.filter.Select(label)
	cleared := f.query.Reset()
	f.inputs.Unlock()

	if selected == previous && !cleared {
		return selected
	}
	f.log.Debug("category selected", zap.String("category", selected))
	f.emit(ChangeCategory)
	return selected
}

// UpdateSearchQuery records a keystroke; results follow after the quiet
// period.
func (f *Facade) UpdateSearchQuery(raw string) {
	if f.query.Update(raw) {
		f.emit(ChangeSearchText)
	}
}

// Close stops the search debounce and flushes the cart; no timer fires
// after it returns.
func (f *Facade) Close(ctx context.Context) error {
	f.query.Close()
	return f.cart.Close(ctx)
}

func (f *Facade) derive() derived {
	f.inputs.RLock()
	st := f.loader.State()
	category := f.filter.Selected()
	settled, version := f.query.Snapshot()
	f.inputs.RUnlock()

	key := memoKey{generation: st.Generation, category: category, queryVersion: version}

	f.memoMu.Lock()
	defer f.memoMu.Unlock()

	if f.memo.valid && f.memo.key == key {
		return f.memo.derived
	}

	d := derived{visible: catalog.ByCategory(st.Products, category)}
	d.results = catalog.Search(settled, d.visible, f.minLen)
	switch {
	case utf8.RuneCountInString(settled) < f.minLen:
		d.status = SearchInactive
	case len(d.results) == 0:
		d.status = SearchNoResults
	default:
		d.status = SearchHasResults
	}

	f.memo = memo{valid: true, key: key, derived: d}
	return d
}

func (f *Facade) emit(c Change) {
	if f.onChange != nil {
		f.onChange(c)
	}
}
