// Package mapper is the single place where remote rows and local snapshots are
// turned into domain entities and back, so identity and derived fields are
// computed the same way on every path.
package mapper

import (
	"fmt"

	"github.com/fjod/storefront-sync/internal/domain"
	"github.com/fjod/storefront-sync/internal/gateway"
)

// LineItemFromRow rebuilds a line item. The identity is recomputed from the
// product id and variant; a stored identity that disagrees is rejected.
func LineItemFromRow(row gateway.Row) (domain.LineItem, error) {
	id, err := domain.NewItemIdentity(row.ProductID, row.Variant)
	if err != nil {
		return domain.LineItem{}, err
	}
	if row.Identity != "" && row.Identity != id.Key() {
		return domain.LineItem{}, fmt.Errorf("%w: row identity %q does not match %q", domain.ErrValidation, row.Identity, id.Key())
	}
	if row.Quantity <= 0 {
		return domain.LineItem{}, fmt.Errorf("%w: row %q has quantity %d", domain.ErrValidation, id.Key(), row.Quantity)
	}
	return domain.LineItem{
		Identity: id,
		Product: domain.Product{
			ID:        row.ProductID,
			Name:      row.Name,
			UnitPrice: row.UnitPrice,
			Image:     row.Image,
		},
		Quantity: row.Quantity,
		AddedAt:  row.CreatedAt,
	}, nil
}

func RowFromLineItem(ownerID string, item domain.LineItem) gateway.Row {
	var variant map[string]string
	if len(item.Identity.Variant) > 0 {
		variant = make(map[string]string, len(item.Identity.Variant))
		for k, v := range item.Identity.Variant {
			variant[k] = v
		}
	}
	return gateway.Row{
		OwnerID:    ownerID,
		Collection: domain.CollectionCart,
		Identity:   item.Key(),
		ProductID:  item.Identity.ProductID,
		Variant:    variant,
		Quantity:   item.Quantity,
		Name:       item.Product.Name,
		UnitPrice:  item.Product.UnitPrice,
		Image:      item.Product.Image,
		CreatedAt:  item.AddedAt,
	}
}

func RowFromFavorite(ownerID, productID string) gateway.Row {
	return gateway.Row{
		OwnerID:    ownerID,
		Collection: domain.CollectionFavorites,
		Identity:   productID,
		ProductID:  productID,
	}
}

// CartFromRows builds the cart of ownerID. Malformed rows are skipped and
// returned as errors; rows repeating an identity are folded into one item.
func CartFromRows(ownerID string, rows []gateway.Row) (domain.Cart, []error) {
	cart := domain.NewCart(ownerID)
	var errs []error
	for _, row := range rows {
		item, err := LineItemFromRow(row)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, idx := cart.Find(item.Key()); idx >= 0 {
			cart.SetQuantity(item.Key(), item.Quantity)
			continue
		}
		cart.Add(item)
	}
	cart.Recompute()
	return cart, errs
}

func FavoritesFromRows(ownerID string, rows []gateway.Row) domain.FavoriteSet {
	set := domain.NewFavoriteSet(ownerID)
	for _, row := range rows {
		id := row.ProductID
		if id == "" {
			id = row.Identity
		}
		set.Add(id)
	}
	return set
}
