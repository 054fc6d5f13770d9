package tracker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pricetracker/lib/htmlutil"
	"pricetracker/lib/pricestore"
	"pricetracker/lib/priceutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("services/tracker")

const DefaultSelector = "span.price"

type Product struct {
	Url         string
	Name        string
	TargetPrice decimal.Decimal
	Selector    string
}

// Tracker owns one product's monitoring state: its identity, target
// and the full recorded price history, oldest record first.
type Tracker struct {
	Product Product
	History pricestore.History

	client   *resty.Client
	store    pricestore.Store
	notifier Notifier
}

func newTracker(ctx context.Context, product Product, client *resty.Client, store pricestore.Store, notifier Notifier) *Tracker {
	if product.Selector == "" {
		product.Selector = DefaultSelector
	}

	history, err := store.Load(ctx, product.Name)
	if err != nil {
		slog.WarnContext(
			ctx, "could not load price history, starting empty",
			"product", product.Name,
			"err", err,
		)
		history = nil
	}

	return &Tracker{
		Product:  product,
		History:  history,
		client:   client,
		store:    store,
		notifier: notifier,
	}
}

// CheckPrice runs one full check cycle: fetch the product page,
// extract the price behind the css selector, append a record to the
// history and alert when the price is at or below the target. The
// returned error marks the cycle as yielding no result, it is never
// fatal to a batch.
func (t *Tracker) CheckPrice(ctx context.Context) (decimal.Decimal, error) {
	ctx, span := tracer.Start(ctx, "CheckPrice", trace.WithAttributes(
		attribute.String("product", t.Product.Name),
	))
	defer span.End()

	price, err := t.fetchCurrentPrice(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return decimal.Decimal{}, err
	}

	span.SetAttributes(attribute.String("price", price.String()))

	previous, hasPrevious := t.History.Latest()
	if hasPrevious && price.LessThan(previous.Price) {
		slog.InfoContext(
			ctx, "price drop",
			"product", t.Product.Name,
			"previous", previous.Price,
			"current", price,
		)
	}

	t.History = append(t.History, pricestore.Record{
		Time:  time.Now(),
		Price: price,
	})
	err = t.store.Save(ctx, t.Product.Name, t.History)
	if err != nil {
		// the observation still counts, the file is just stale
		span.RecordError(err)
		slog.ErrorContext(
			ctx, "could not persist price history",
			"product", t.Product.Name,
			"err", err,
		)
	}

	if price.LessThanOrEqual(t.Product.TargetPrice) {
		err = t.notifier.Notify(ctx, t.Product, price)
		if err != nil {
			span.RecordError(err)
			slog.ErrorContext(
				ctx, "could not send price alert",
				"product", t.Product.Name,
				"err", err,
			)
		} else {
			slog.InfoContext(
				ctx, "price alert sent",
				"product", t.Product.Name,
				"price", price,
				"target", t.Product.TargetPrice,
			)
		}
	}

	return price, nil
}

func (t *Tracker) fetchCurrentPrice(ctx context.Context) (decimal.Decimal, error) {
	res, err := t.client.R().
		SetContext(ctx).
		Get(t.Product.Url)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("fetch %s: %w", t.Product.Url, err)
	}
	if res.IsError() {
		return decimal.Decimal{}, fmt.Errorf("fetch %s: status %s", t.Product.Url, res.Status())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse page: %w", err)
	}

	text, err := htmlutil.SelectFirst(doc, t.Product.Selector)
	if errors.Is(err, htmlutil.ErrSelectorMiss) {
		slog.WarnContext(
			ctx, "price element not found, the page layout may have changed",
			"product", t.Product.Name,
			"selector", t.Product.Selector,
		)
		return decimal.Decimal{}, err
	}
	if err != nil {
		return decimal.Decimal{}, err
	}

	price, err := priceutil.ExtractPrice(text)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("extract price from %q: %w", text, err)
	}
	return price, nil
}
