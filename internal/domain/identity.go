package domain

import (
	"fmt"
	"sort"
	"strings"
)

const (
	keySeparator  = "|"
	pairSeparator = "="
)

// Variant holds the selected attributes of a product (size, color, ...).
type Variant map[string]string

// ItemIdentity identifies one line item: the product plus its selected variant.
// Two selections of the same product with different variants are different items.
type ItemIdentity struct {
	ProductID string  `json:"product_id" bson:"product_id"`
	Variant   Variant `json:"variant,omitempty" bson:"variant,omitempty"`
}

// NewItemIdentity normalizes the product id and the variant attributes.
// Attribute names and values are trimmed, empty values are dropped.
func NewItemIdentity(productID string, variant Variant) (ItemIdentity, error) {
	pid := strings.TrimSpace(productID)
	if pid == "" {
		return ItemIdentity{}, fmt.Errorf("%w: product id is required", ErrValidation)
	}
	if strings.Contains(pid, keySeparator) {
		return ItemIdentity{}, fmt.Errorf("%w: product id %q contains %q", ErrValidation, pid, keySeparator)
	}

	var normalized Variant
	for name, value := range variant {
		n := strings.TrimSpace(name)
		v := strings.TrimSpace(value)
		if n == "" || v == "" {
			continue
		}
		if strings.ContainsAny(n, keySeparator+pairSeparator) || strings.Contains(v, keySeparator) {
			return ItemIdentity{}, fmt.Errorf("%w: variant attribute %q is malformed", ErrValidation, n)
		}
		if normalized == nil {
			normalized = Variant{}
		}
		normalized[n] = v
	}

	return ItemIdentity{ProductID: pid, Variant: normalized}, nil
}

// Key renders the deterministic composite key: productID|name=value|name=value,
// attributes sorted by name.
func (id ItemIdentity) Key() string {
	if len(id.Variant) == 0 {
		return id.ProductID
	}

	names := make([]string, 0, len(id.Variant))
	for name := range id.Variant {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(id.ProductID)
	for _, name := range names {
		b.WriteString(keySeparator)
		b.WriteString(name)
		b.WriteString(pairSeparator)
		b.WriteString(id.Variant[name])
	}
	return b.String()
}

// ParseItemKey is the inverse of Key.
func ParseItemKey(key string) (ItemIdentity, error) {
	parts := strings.Split(key, keySeparator)
	variant := Variant{}
	for _, part := range parts[1:] {
		name, value, ok := strings.Cut(part, pairSeparator)
		if !ok {
			return ItemIdentity{}, fmt.Errorf("%w: malformed item key %q", ErrValidation, key)
		}
		variant[name] = value
	}
	return NewItemIdentity(parts[0], variant)
}

func (id ItemIdentity) String() string {
	return id.Key()
}
