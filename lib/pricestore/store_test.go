package pricestore

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"pricetracker/lib/telemetry"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:pricestore")
	defer cleanup()

	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	{
		history, err := store.Load(ctx, "unknown product")
		if err != nil {
			t.Fatal(err)
		}
		require.Len(t, history, 0)
	}

	base := time.Date(2025, time.March, 14, 9, 26, 53, 0, time.Local)
	history := History{
		{Time: base, Price: decimal.RequireFromString("89.99")},
		{Time: base.Add(time.Hour * 12), Price: decimal.RequireFromString("79.99")},
		{Time: base.Add(time.Hour * 24), Price: decimal.RequireFromString("85")},
	}
	err = store.Save(ctx, "Gaming Laptop", history)
	if err != nil {
		t.Fatal(err)
	}

	loaded, err := store.Load(ctx, "Gaming Laptop")
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, loaded, len(history))
	for i := range history {
		require.True(t, history[i].Time.Equal(loaded[i].Time), "record %d time", i)
		require.True(t, history[i].Price.Equal(loaded[i].Price), "record %d price", i)
	}

	history = append(history, Record{
		Time:  base.Add(time.Hour * 36),
		Price: decimal.RequireFromString("82.50"),
	})
	err = store.Save(ctx, "Gaming Laptop", history)
	if err != nil {
		t.Fatal(err)
	}

	grown, err := store.Load(ctx, "Gaming Laptop")
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, grown, 4)
	for i := range loaded {
		require.True(t, loaded[i].Time.Equal(grown[i].Time), "prefix record %d time", i)
		require.True(t, loaded[i].Price.Equal(grown[i].Price), "prefix record %d price", i)
	}

	latest, ok := grown.Latest()
	require.True(t, ok)
	require.True(t, latest.Price.Equal(decimal.RequireFromString("82.5")))
}

func TestStoreSkipsMalformedRows(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:pricestore")
	defer cleanup()

	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	raw := strings.Join([]string{
		"timestamp,price",
		"2025-03-14 09:26:53,89.99",
		"not a timestamp,12.00",
		"2025-03-15 09:26:53,also not a price",
		"2025-03-16 09:26:53,79.99",
	}, "\n") + "\n"
	err = os.WriteFile(store.HistoryPath("Headphones"), []byte(raw), 0644)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	history, err := store.Load(ctx, "Headphones")
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, history, 2)
	require.True(t, history[0].Price.Equal(decimal.RequireFromString("89.99")))
	require.True(t, history[1].Price.Equal(decimal.RequireFromString("79.99")))
}

func TestSanitizeName(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{input: "Gaming Laptop", expected: "Gaming Laptop"},
		{input: "a/b\\c", expected: "a_b_c"},
		{input: `16:9 "wide" monitor?`, expected: "16_9 _wide_ monitor_"},
	}
	for _, test := range testCases {
		require.Equal(t, test.expected, SanitizeName(test.input))
	}
}
