package tracker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"pricetracker/lib/pricestore"
	"pricetracker/lib/testutil"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []decimal.Decimal
}

func (n *recordingNotifier) Notify(ctx context.Context, product Product, currentPrice decimal.Decimal) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, currentPrice)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.alerts)
}

func newTestService(t *testing.T, notifier Notifier) (*Service, func()) {
	result, cleanup := testutil.SetupService(t, testutil.ServiceParams{Name: "tracker"})
	svc, err := NewService(Options{
		ConfigPath: filepath.Join(result.DataDir, "config.json"),
		DataDir:    result.DataDir,
		Notifier:   notifier,
	})
	if err != nil {
		t.Fatal(err)
	}
	return svc, cleanup
}

func pricePage(price string) string {
	return `<html><body><h1>Some Product</h1><span class="price">` + price + `</span></body></html>`
}

var decimalComparer = cmp.Comparer(func(a, b decimal.Decimal) bool {
	return a.Equal(b)
})

func TestCheckPriceAlertScenario(t *testing.T) {
	var priceLock sync.Mutex
	currentPrice := "$89.99"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		priceLock.Lock()
		defer priceLock.Unlock()
		w.Write([]byte(pricePage(currentPrice)))
	}))
	defer server.Close()

	notifier := &recordingNotifier{}
	svc, cleanup := newTestService(t, notifier)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	tracked, err := svc.AddProduct(ctx, Product{
		Url:         server.URL,
		Name:        "Gaming Laptop",
		TargetPrice: decimal.RequireFromString("79.99"),
	})
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, DefaultSelector, tracked.Product.Selector)

	for cycle, observed := range []string{"$89.99", "$79.99", "$85.00"} {
		priceLock.Lock()
		currentPrice = observed
		priceLock.Unlock()

		price, err := tracked.CheckPrice(ctx)
		if err != nil {
			t.Fatal(err)
		}
		expected, _ := decimal.NewFromString(observed[1:])
		require.True(t, expected.Equal(price), "cycle %d: expected %s got %s", cycle, expected, price)
	}

	// the price hit the target on cycle 2 only; equality counts
	require.Equal(t, 1, notifier.count())
	require.True(t, notifier.alerts[0].Equal(decimal.RequireFromString("79.99")))
	require.Len(t, tracked.History, 3)

	// the persisted history matches what the tracker saw
	persisted, err := svc.Store().Load(ctx, "Gaming Laptop")
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, persisted, 3)
	for i, expected := range []string{"89.99", "79.99", "85"} {
		require.True(t, persisted[i].Price.Equal(decimal.RequireFromString(expected)), "record %d", i)
	}
}

func TestCheckAllMixedOutcomes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/headphones", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(pricePage("$129.00")))
	})
	mux.HandleFunc("/keyboard", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(pricePage("$64.50")))
	})
	mux.HandleFunc("/monitor", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	for _, parallel := range []bool{false, true} {
		notifier := &recordingNotifier{}
		svc, cleanup := newTestService(t, notifier)
		defer cleanup()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
		defer cancel()

		for _, name := range []string{"headphones", "keyboard", "monitor"} {
			_, err := svc.AddProduct(ctx, Product{
				Url:         server.URL + "/" + name,
				Name:        name,
				TargetPrice: decimal.NewFromInt(10),
			})
			if err != nil {
				t.Fatal(err)
			}
		}

		results := svc.CheckAll(ctx, parallel)
		require.Len(t, results, 3, "parallel=%v", parallel)
		require.True(t, results["headphones"].Ok())
		require.True(t, results["keyboard"].Ok())
		require.False(t, results["monitor"].Ok())
		require.True(t, results["headphones"].Price.Equal(decimal.RequireFromString("129")))
		require.True(t, results["keyboard"].Price.Equal(decimal.RequireFromString("64.5")))
	}
}

func TestCheckAllSelectorMiss(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><div class="cost">$10.00</div></body></html>`))
	}))
	defer server.Close()

	notifier := &recordingNotifier{}
	svc, cleanup := newTestService(t, notifier)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	tracked, err := svc.AddProduct(ctx, Product{
		Url:         server.URL,
		Name:        "Webcam",
		TargetPrice: decimal.NewFromInt(20),
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = tracked.CheckPrice(ctx)
	require.Error(t, err)
	require.Len(t, tracked.History, 0)
	require.Equal(t, 0, notifier.count())
}

func TestConfigRoundTrip(t *testing.T) {
	svc, cleanup := newTestService(t, &recordingNotifier{})
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	products := []Product{
		{
			Url:         "https://shop.example.com/laptop",
			Name:        "Gaming Laptop",
			TargetPrice: decimal.RequireFromString("999.99"),
			Selector:    "span.price",
		},
		{
			Url:         "https://shop.example.com/mouse",
			Name:        "Wireless Mouse",
			TargetPrice: decimal.RequireFromString("25"),
			Selector:    "div.product-price",
		},
	}
	for _, p := range products {
		_, err := svc.AddProduct(ctx, p)
		if err != nil {
			t.Fatal(err)
		}
	}

	// names are unique keys
	_, err := svc.AddProduct(ctx, Product{
		Url:         "https://shop.example.com/laptop-2",
		Name:        "Gaming Laptop",
		TargetPrice: decimal.NewFromInt(1),
	})
	require.Error(t, err)

	reloaded, err := NewService(Options{
		ConfigPath: svc.configPath,
		DataDir:    svc.store.Dir(),
		Notifier:   &recordingNotifier{},
	})
	if err != nil {
		t.Fatal(err)
	}
	err = reloaded.LoadConfig(ctx)
	if err != nil {
		t.Fatal(err)
	}

	var loaded []Product
	for _, status := range reloaded.Statuses() {
		loaded = append(loaded, status.Product)
	}
	diff := cmp.Diff(products, loaded, decimalComparer)
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	svc, cleanup := newTestService(t, &recordingNotifier{})
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	err := svc.LoadConfig(ctx)
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, svc.Statuses(), 0)
}

func TestRemoveProductKeepsHistoryFile(t *testing.T) {
	svc, cleanup := newTestService(t, &recordingNotifier{})
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	_, err := svc.AddProduct(ctx, Product{
		Url:         "https://shop.example.com/ssd",
		Name:        "SSD",
		TargetPrice: decimal.NewFromInt(80),
	})
	if err != nil {
		t.Fatal(err)
	}

	err = svc.Store().Save(ctx, "SSD", pricestore.History{
		{Time: time.Now(), Price: decimal.RequireFromString("99.99")},
	})
	if err != nil {
		t.Fatal(err)
	}

	err = svc.RemoveProduct(ctx, "SSD")
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, svc.Statuses(), 0)

	// removal orphans the history file on purpose
	_, err = os.Stat(svc.Store().HistoryPath("SSD"))
	require.NoError(t, err)

	// removing twice fails
	err = svc.RemoveProduct(ctx, "SSD")
	require.Error(t, err)
}
