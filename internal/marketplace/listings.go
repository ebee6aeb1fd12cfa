package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"carbon-scribe/project-portal/dapp-portal-backend/internal/session"
	"carbon-scribe/project-portal/dapp-portal-backend/pkg/sui"
)

var ErrNotListingObject = errors.New("object is not a carbon credit listing")

// ObjectReader reads objects from the chain.
type ObjectReader interface {
	GetObject(ctx context.Context, objectID string) (*sui.Object, error)
}

// ImportListingData adds an on-chain listing to the book. Fields left empty
// are read from the listing object when it carries them.
type ImportListingData struct {
	ListingAddress       string `json:"listing_address"`
	ProjectName          string `json:"project_name,omitempty"`
	ProjectDescription   string `json:"project_description,omitempty"`
	ProjectLocation      string `json:"project_location,omitempty"`
	VerificationStandard string `json:"verification_standard,omitempty"`
	ProjectType          string `json:"project_type,omitempty"`
}

type moveContent struct {
	DataType string                     `json:"dataType"`
	Type     string                     `json:"type"`
	Fields   map[string]json.RawMessage `json:"fields"`
}

func (m *moveContent) str(keys ...string) string {
	for _, k := range keys {
		raw, ok := m.Fields[k]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return ""
}

// u64 reads a Move u64, which the fullnode renders as a string, or a coin
// balance nested under fields.balance.
func (m *moveContent) u64(keys ...string) uint64 {
	for _, k := range keys {
		raw, ok := m.Fields[k]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if n, err := strconv.ParseUint(s, 10, 64); err == nil {
				return n
			}
		}
		var n uint64
		if err := json.Unmarshal(raw, &n); err == nil {
			return n
		}
		var nested moveContent
		if err := json.Unmarshal(raw, &nested); err == nil && len(nested.Fields) > 0 {
			if v := nested.u64("balance", "value"); v > 0 {
				return v
			}
		}
	}
	return 0
}

// ImportListing reads a listing object from the chain and adds it to the
// session's book so it can be bought.
func (s *Service) ImportListing(ctx context.Context, sess *session.Session, data ImportListingData) (*Listing, error) {
	if s.objects == nil {
		return nil, errors.New("listing import is not configured")
	}
	addr, err := sui.NormalizeAddress(strings.TrimSpace(data.ListingAddress))
	if err != nil {
		return nil, &ValidationError{Fields: []string{"listing_address"}}
	}

	book := bookOf(sess)
	if existing, ok := book.listingByAddress(addr); ok {
		return &existing, nil
	}

	obj, err := s.objects.GetObject(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to read listing %s: %w", addr, err)
	}
	if obj.Data == nil || len(obj.Data.Content) == 0 {
		return nil, ErrListingNotFound
	}

	var content moveContent
	if err := json.Unmarshal(obj.Data.Content, &content); err != nil {
		return nil, fmt.Errorf("failed to decode listing %s: %w", addr, err)
	}
	if content.DataType != "moveObject" || !strings.Contains(content.Type, "::carbon_credits::") {
		return nil, ErrNotListingObject
	}

	listing := Listing{
		ID:                   addr,
		ProjectName:          firstNonEmpty(data.ProjectName, content.str("project_name", "name")),
		ProjectDescription:   firstNonEmpty(data.ProjectDescription, content.str("project_description", "description")),
		ProjectLocation:      firstNonEmpty(data.ProjectLocation, content.str("project_location", "location")),
		VerificationStandard: firstNonEmpty(data.VerificationStandard, content.str("verification_standard", "standard")),
		ProjectType:          firstNonEmpty(data.ProjectType, content.str("project_type")),
		Seller:               content.str("seller", "owner"),
		ListingAddress:       addr,
		CreditsAmount:        content.u64("credits_amount", "amount", "credits"),
		PricePerCredit:       content.u64("price_per_credit", "price"),
		Active:               true,
		CreatedAt:            s.now().UTC(),
	}
	if listing.CreditsAmount == 0 || listing.PricePerCredit == 0 {
		return nil, ErrNotListingObject
	}
	listing.TotalPrice, err = sui.MulMist(listing.CreditsAmount, listing.PricePerCredit)
	if err != nil {
		return nil, err
	}

	added, _ := book.prependIfAbsent(listing)
	return &added, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
