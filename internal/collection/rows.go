package collection

import (
	"fmt"

	"github.com/roach88/mallstore/internal/gateway"
	"github.com/roach88/mallstore/internal/model"
)

// entryFromRow converts a stored row to an Entry.
func entryFromRow(c model.CollectionType, row gateway.Row) (model.Entry, error) {
	at, err := row.Time("updated_at")
	if err != nil {
		return model.Entry{}, fmt.Errorf("decode %s entry: %w", c, err)
	}

	e := model.Entry{
		ID:         row.String("id"),
		Collection: c,
		OwnerID:    row.String("owner_id"),
		ItemKey:    row.String("item_key"),
		Audit: model.Audit{
			Actor:  row.String("actor"),
			Action: row.String("action"),
			At:     at,
		},
	}

	if c.HasQuantity() {
		qty, err := row.Int("quantity")
		if err != nil {
			return model.Entry{}, fmt.Errorf("decode %s entry: %w", c, err)
		}
		e.Quantity = int(qty)
	}
	return e, nil
}

func entriesFromRows(c model.CollectionType, rows []gateway.Row) ([]model.Entry, error) {
	entries := make([]model.Entry, 0, len(rows))
	for _, row := range rows {
		e, err := entryFromRow(c, row)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}
