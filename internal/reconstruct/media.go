package reconstruct

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/roach88/mallstore/internal/gateway"
	"github.com/roach88/mallstore/internal/model"
	"github.com/roach88/mallstore/internal/query"
)

// MediaLookup finds the primary media item of a variant.
type MediaLookup interface {
	// FirstMedia returns the lowest-positioned media of variantID. ok is
	// false when the variant has none.
	FirstMedia(ctx context.Context, variantID string) (m model.Media, ok bool, err error)
}

// GatewayMediaLookup reads product_media through the store gateway.
type GatewayMediaLookup struct {
	gw gateway.Gateway
}

// NewGatewayMediaLookup creates a lookup over gw.
func NewGatewayMediaLookup(gw gateway.Gateway) *GatewayMediaLookup {
	return &GatewayMediaLookup{gw: gw}
}

// FirstMedia implements MediaLookup.
func (l *GatewayMediaLookup) FirstMedia(ctx context.Context, variantID string) (model.Media, bool, error) {
	rows, err := l.gw.Select(ctx, query.Select{
		From:    "product_media",
		Columns: []string{"id", "variant_id", "url", "kind"},
		Filter:  query.Eq("variant_id", variantID),
		OrderBy: []query.Order{query.Asc("position")},
		Limit:   1,
	})
	if err != nil {
		return model.Media{}, false, fmt.Errorf("media for variant %s: %w", variantID, err)
	}
	if len(rows) == 0 {
		return model.Media{}, false, nil
	}
	row := rows[0]
	return model.Media{
		ID:        row.String("id"),
		VariantID: row.String("variant_id"),
		URL:       row.String("url"),
		Kind:      row.String("kind"),
	}, true, nil
}

// EnrichWithMedia attaches at most one media item to each line, looked up
// once per distinct variant. Lines keep their input order. A variant with
// no media, or whose lookup failed, gets an empty (non-nil) slice; failures
// are logged and never fail the batch.
func EnrichWithMedia(ctx context.Context, lookup MediaLookup, lines []model.OrderLine, log logrus.FieldLogger) []model.OrderLine {
	byVariant := make(map[string][]model.Media)
	out := make([]model.OrderLine, len(lines))

	for i, line := range lines {
		media, seen := byVariant[line.VariantID]
		if !seen {
			media = []model.Media{}
			m, ok, err := lookup.FirstMedia(ctx, line.VariantID)
			switch {
			case err != nil:
				log.WithError(err).WithFields(logrus.Fields{
					"order":   line.OrderNo,
					"variant": line.VariantID,
				}).Warn("media lookup failed, continuing without media")
			case ok:
				media = []model.Media{m}
			}
			byVariant[line.VariantID] = media
		}

		line.Media = append([]model.Media{}, media...)
		out[i] = line
	}
	return out
}
