package catalog

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"Storefront/pkg/kit"
)

type Status int

const (
	StatusPending Status = iota
	StatusReady
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Result is a snapshot of the loader. Products and Categories are shared
// with every other holder of the same generation and must not be modified.
type Result struct {
	Status     Status
	Products   []Product
	Categories []string
	Err        error

	// Generation increases with every successful load; 0 means never loaded.
	Generation uint64
}

const loadKey = "catalog"

// Loader fetches the catalog at most once. Callers arriving while a fetch is
// in flight wait for that fetch; after success every call returns the cached
// result until Invalidate. A failed attempt is not retried here, but the next
// Load starts a new one.
type Loader struct {
	src     Source
	log     *zap.Logger
	metrics *kit.CoreMetrics

	group singleflight.Group

	mu       sync.RWMutex
	state    Result
	gen      uint64
	onChange func(Result)
}

func NewLoader(src Source, log *zap.Logger, metrics *kit.CoreMetrics) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{src: src, log: log, metrics: metrics}
}

// OnChange registers fn to be called, outside the loader's lock, whenever a
// fetch finishes or Invalidate drops a ready catalog.
func (l *Loader) OnChange(fn func(Result)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = fn
}

// State returns the current snapshot without blocking.
func (l *Loader) State() Result {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Load returns the ready catalog, fetching it if needed. If ctx ends first,
// the current (pending) snapshot is returned and the shared fetch keeps going
// for the other waiters.
func (l *Loader) Load(ctx context.Context) Result {
	if st := l.State(); st.Status == StatusReady {
		return st
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := l.group.DoChan(loadKey, func() (any, error) {
		return l.fetch(fetchCtx), nil
	})

	select {
	case res := <-ch:
		return res.Val.(Result)
	case <-ctx.Done():
		return l.State()
	}
}

// Invalidate forgets a ready catalog so the next Load fetches again.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	if l.state.Status != StatusReady {
		l.mu.Unlock()
		return
	}
	l.state = Result{Status: StatusPending}
	st, fn := l.state, l.onChange
	l.mu.Unlock()

	if fn != nil {
		fn(st)
	}
}

func (l *Loader) fetch(ctx context.Context) Result {
	l.mu.Lock()
	if l.state.Status == StatusReady {
		st := l.state
		l.mu.Unlock()
		return st
	}
	l.state = Result{Status: StatusPending}
	l.mu.Unlock()

	products, err := l.src.Fetch(ctx)
	if err == nil && products == nil {
		err = &LoadError{Kind: KindEmptyPayload}
	}

	if err != nil {
		var le *LoadError
		if !errors.As(err, &le) {
			err = &LoadError{Kind: KindTransport, Err: err}
		}
		kind := KindOf(err)
		l.log.Warn("catalog load failed", zap.String("kind", string(kind)), zap.Error(err))
		l.metrics.CatalogLoad(string(kind))

		return l.publish(Result{Status: StatusFailed, Err: err})
	}

	categories := DeriveCategories(products)
	l.log.Info("catalog loaded",
		zap.Int("products", len(products)),
		zap.Int("categories", len(categories)),
	)
	l.metrics.CatalogLoad(kit.ResultOK)

	return l.publish(Result{
		Status:     StatusReady,
		Products:   products,
		Categories: categories,
	})
}

func (l *Loader) publish(st Result) Result {
	l.mu.Lock()
	if st.Status == StatusReady {
		l.gen++
		st.Generation = l.gen
	}
	l.state = st
	fn := l.onChange
	l.mu.Unlock()

	if fn != nil {
		fn(st)
	}
	return st
}
