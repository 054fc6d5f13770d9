package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"pricetracker/lib/chartutil"
	"pricetracker/lib/configutil"
	"pricetracker/lib/pricestore"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// at most this many check cycles are in flight during a parallel batch
const maxConcurrentChecks = 5

type Options struct {
	// path of the tracked-products file
	ConfigPath string
	// directory holding per-product history csvs and charts
	DataDir  string
	Notifier Notifier
	// if nil, NewFetchClient(FetchOptions{}) is used
	Client *resty.Client
}

// Service is the registry of active Trackers and the source of truth
// for the persisted product configuration. One mutex serializes
// registry mutations against batch checks.
type Service struct {
	mu         sync.Mutex
	configPath string
	store      pricestore.Store
	client     *resty.Client
	notifier   Notifier
	trackers   []*Tracker
}

func NewService(opts Options) (*Service, error) {
	store, err := pricestore.NewStore(opts.DataDir)
	if err != nil {
		return nil, err
	}

	client := opts.Client
	if client == nil {
		client = NewFetchClient(FetchOptions{})
	}

	return &Service{
		configPath: opts.ConfigPath,
		store:      store,
		client:     client,
		notifier:   opts.Notifier,
	}, nil
}

func (s *Service) Store() pricestore.Store {
	return s.store
}

// wire format of the tracked-products file
type productConfig struct {
	Url         string  `json:"url"`
	Name        string  `json:"name"`
	TargetPrice float64 `json:"target_price"`
	Selector    string  `json:"selector,omitempty"`
}

type configFile struct {
	Products []productConfig `json:"products"`
}

// LoadConfig replaces the live Tracker set with the contents of the
// products file. A missing file leaves the current set alone (an empty
// set on first run); a malformed one keeps the prior state and returns
// the parse error. Each new Tracker eagerly reloads its own history.
func (s *Service) LoadConfig(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "LoadConfig")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := configutil.ReadConfig[configFile](s.configPath)
	if os.IsNotExist(err) {
		slog.WarnContext(
			ctx, "no product configuration found, starting with an empty set",
			"path", s.configPath,
		)
		return nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("read product configuration: %w", err)
	}

	var trackers []*Tracker
	seen := map[string]bool{}
	for _, p := range cfg.Products {
		if seen[p.Name] {
			slog.WarnContext(
				ctx, "duplicate product name in configuration, keeping the first",
				"name", p.Name,
			)
			continue
		}
		seen[p.Name] = true

		trackers = append(trackers, newTracker(ctx, Product{
			Url:         p.Url,
			Name:        p.Name,
			TargetPrice: decimal.NewFromFloat(p.TargetPrice),
			Selector:    p.Selector,
		}, s.client, s.store, s.notifier))
	}

	s.trackers = trackers
	slog.InfoContext(ctx, "loaded product configuration", "products", len(trackers))
	return nil
}

// SaveConfig rewrites the products file from the live Tracker set.
// Only identity fields are serialized, never history.
func (s *Service) SaveConfig(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveConfigLocked(ctx)
}

func (s *Service) saveConfigLocked(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "SaveConfig")
	defer span.End()

	cfg := configFile{Products: []productConfig{}}
	for _, t := range s.trackers {
		target, _ := t.Product.TargetPrice.Float64()
		cfg.Products = append(cfg.Products, productConfig{
			Url:         t.Product.Url,
			Name:        t.Product.Name,
			TargetPrice: target,
			Selector:    t.Product.Selector,
		})
	}

	contents, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	err = writeFileAtomic(s.configPath, contents)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("write product configuration: %w", err)
	}
	return nil
}

func writeFileAtomic(path string, contents []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+"_*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(contents)
	if err != nil {
		tmp.Close()
		return err
	}
	err = tmp.Close()
	if err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// AddProduct registers a new product, persists the configuration and
// returns its Tracker. Product names are unique keys, adding an
// existing one is rejected.
func (s *Service) AddProduct(ctx context.Context, product Product) (*Tracker, error) {
	ctx, span := tracer.Start(ctx, "AddProduct")
	defer span.End()

	span.SetAttributes(attribute.String("product", product.Name))

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.trackers {
		if t.Product.Name == product.Name {
			err := fmt.Errorf("a product named %q is already tracked", product.Name)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}

	tracked := newTracker(ctx, product, s.client, s.store, s.notifier)
	s.trackers = append(s.trackers, tracked)

	err := s.saveConfigLocked(ctx)
	if err != nil {
		return nil, err
	}
	return tracked, nil
}

// RemoveProduct drops a product from the registry and persists the
// configuration. Its history file is intentionally left on disk so
// re-adding the product recovers the history.
func (s *Service) RemoveProduct(ctx context.Context, name string) error {
	ctx, span := tracer.Start(ctx, "RemoveProduct")
	defer span.End()

	span.SetAttributes(attribute.String("product", name))

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.trackers[:0]
	found := false
	for _, t := range s.trackers {
		if t.Product.Name == name {
			found = true
			continue
		}
		kept = append(kept, t)
	}
	if !found {
		err := fmt.Errorf("no tracked product named %q", name)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	s.trackers = kept

	return s.saveConfigLocked(ctx)
}

type ProductStatus struct {
	Product Product
	// zero when the product has no recorded history yet
	Latest    pricestore.Record
	HasLatest bool
}

// Statuses snapshots the live set with each product's most recent
// observation, in registry order.
func (s *Service) Statuses() []ProductStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make([]ProductStatus, len(s.trackers))
	for i, t := range s.trackers {
		latest, ok := t.History.Latest()
		statuses[i] = ProductStatus{
			Product:   t.Product,
			Latest:    latest,
			HasLatest: ok,
		}
	}
	return statuses
}

// Result is the tagged outcome of one product's check cycle. Failures
// are values, they never escape a batch as panics or aborts.
type Result struct {
	Price decimal.Decimal
	Err   error
}

func (r Result) Ok() bool {
	return r.Err == nil
}

// CheckAll runs one batch: every Tracker's check cycle, concurrently
// when parallel is set and more than one product is tracked. The
// returned map always has exactly one entry per tracked product,
// failed cycles map to a Result carrying the error. Iteration order is
// not the registry order in parallel mode.
func (s *Service) CheckAll(ctx context.Context, parallel bool) map[string]Result {
	ctx, span := tracer.Start(ctx, "CheckAll")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	span.SetAttributes(
		attribute.Int("products", len(s.trackers)),
		attribute.Bool("parallel", parallel),
	)

	results := make(map[string]Result, len(s.trackers))

	if !parallel || len(s.trackers) <= 1 {
		for _, t := range s.trackers {
			price, err := t.CheckPrice(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "price check failed", "product", t.Product.Name, "err", err)
			}
			results[t.Product.Name] = Result{Price: price, Err: err}
		}
		return results
	}

	resultLock := sync.Mutex{}
	wg := sync.WaitGroup{}
	slots := make(chan struct{}, maxConcurrentChecks)

	for _, t := range s.trackers {
		t := t
		wg.Add(1)
		go func() {
			defer wg.Done()

			slots <- struct{}{}
			defer func() { <-slots }()

			price, err := t.CheckPrice(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "price check failed", "product", t.Product.Name, "err", err)
			}

			resultLock.Lock()
			defer resultLock.Unlock()
			results[t.Product.Name] = Result{Price: price, Err: err}
		}()
	}

	wg.Wait()
	return results
}

// RenderCharts writes a price history line chart png per tracked
// product into the data directory. Products without enough recorded
// points are skipped.
func (s *Service) RenderCharts(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "RenderCharts")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.trackers {
		points := make([]chartutil.Point, len(t.History))
		for i, r := range t.History {
			value, _ := r.Price.Float64()
			points[i] = chartutil.Point{Time: r.Time, Value: value}
		}

		outputPath := s.ChartPath(t.Product.Name)
		err := chartutil.RenderLineChart(
			fmt.Sprintf("Price History for %s", t.Product.Name),
			points,
			outputPath,
		)
		if errors.Is(err, chartutil.ErrNotEnoughData) {
			slog.WarnContext(
				ctx, "not enough history to chart",
				"product", t.Product.Name,
				"records", len(t.History),
			)
			continue
		}
		if err != nil {
			span.RecordError(err)
			slog.ErrorContext(ctx, "could not render chart", "product", t.Product.Name, "err", err)
			continue
		}
		slog.InfoContext(ctx, "chart rendered", "product", t.Product.Name, "path", outputPath)
	}
}

func (s *Service) ChartPath(product string) string {
	return filepath.Join(s.store.Dir(), pricestore.SanitizeName(product)+"_price_chart.png")
}
