// Package marketplace runs the carbon-credit flows: buying credits from the
// treasury, registering projects, listing credits and buying listings.
package marketplace

import (
	"errors"
	"strings"
	"time"

	"carbon-scribe/project-portal/dapp-portal-backend/internal/transactions"
)

var (
	ErrListingNotFound   = errors.New("Carbon credit listing not found")
	ErrListingInactive   = errors.New("This listing is no longer available")
	ErrDemoListing       = errors.New("This is a demo listing and cannot be purchased.")
	ErrListingNotOnChain = errors.New("This listing has no on-chain listing address")
)

const (
	MsgFillRequired        = "Please fill in all required fields with valid values"
	MsgPurchaseFailed      = "Error purchasing carbon credits. Please try again."
	MsgTreasuryNeeds       = "Insufficient balance for transaction. You need at least %.2f SUI to purchase %d carbon credits."
	MsgBuyInsufficient     = "Insufficient balance for purchase"
	MsgTreasuryPurchased   = "Carbon credits purchased successfully! You can now list them for sale."
	MsgListingPurchased    = "Carbon credits purchased successfully! Transaction: "
	MsgProjectRegistered   = "Project registered successfully!"
	MsgCreditsListed       = "Carbon credits listed successfully!"
	MsgRegistrationFailed  = "Error registering project. Please try again."
	MsgListingFailed       = "Error listing carbon credits. Please try again."
	defaultFeePercentage   = 2.5
	defaultExpiryFromToday = 365 * 24 * time.Hour
)

// Listing is a carbon-credit offer in the session's book. Prices are in
// MIST. ListingAddress is the on-chain listing object the buy call spends
// against; it is empty for listings that only exist locally.
type Listing struct {
	ID                   string    `json:"id"`
	ProjectName          string    `json:"project_name"`
	ProjectDescription   string    `json:"project_description"`
	ProjectLocation      string    `json:"project_location"`
	VerificationStandard string    `json:"verification_standard"`
	ProjectType          string    `json:"project_type"`
	Seller               string    `json:"seller"`
	ListingAddress       string    `json:"listing_address,omitempty"`
	CreditsAmount        uint64    `json:"credits_amount"`
	PricePerCredit       uint64    `json:"price_per_credit,string"`
	TotalPrice           uint64    `json:"total_price,string"`
	Active               bool      `json:"is_active"`
	CreatedAt            time.Time `json:"created_at"`
}

// Stats summarises the book.
type Stats struct {
	TotalItems    int     `json:"total_items"`
	TotalVolume   uint64  `json:"total_volume,string"`
	FeePercentage float64 `json:"fee_percentage"`
}

// MintingData describes credits bought from the treasury and the listing
// shown for them. PricePerCredit is in MIST.
type MintingData struct {
	ProjectName          string `json:"project_name"`
	ProjectDescription   string `json:"project_description"`
	ProjectLocation      string `json:"project_location"`
	VerificationStandard string `json:"verification_standard"`
	ProjectType          string `json:"project_type"`
	CreditsAmount        uint64 `json:"credits_amount"`
	PricePerCredit       uint64 `json:"price_per_credit,string"`
}

// ProjectRegistrationData is a project to add to the registry. ProjectAddress
// defaults to the connected account and Expiry to one year from now.
type ProjectRegistrationData struct {
	ProjectAddress string     `json:"project_address,omitempty"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	Location       string     `json:"location"`
	Standard       string     `json:"verification_standard"`
	ProjectType    string     `json:"project_type"`
	Expiry         *time.Time `json:"expiry_date,omitempty"`
}

// Project is a registration submitted from this session.
type Project struct {
	ID             string    `json:"project_id"`
	ProjectAddress string    `json:"project_address"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Location       string    `json:"location"`
	Standard       string    `json:"verification_standard"`
	ProjectType    string    `json:"project_type"`
	Expiry         time.Time `json:"expiry_date"`
	Digest         string    `json:"digest"`
	CreatedAt      time.Time `json:"created_at"`
}

// ListCreditsData lists an owned credit coin for sale. PricePerCredit is in
// MIST.
type ListCreditsData struct {
	ProjectAddress string `json:"project_address,omitempty"`
	CreditCoinID   string `json:"credit_coin_id"`
	PricePerCredit uint64 `json:"price_per_credit,string"`
}

// Result is what a successful flow returns to the caller.
type Result struct {
	Message string               `json:"message"`
	Record  *transactions.Record `json:"record"`
	Listing *Listing             `json:"listing,omitempty"`
	Project *Project             `json:"project,omitempty"`
}

// ValidationError lists the fields that are missing or invalid.
type ValidationError struct {
	Fields []string `json:"fields"`
}

func (e *ValidationError) Error() string {
	return MsgFillRequired
}

func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f == field {
			return true
		}
	}
	return false
}

type validator struct {
	fields []string
}

func (v *validator) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.fields = append(v.fields, field)
	}
}

func (v *validator) check(field string, ok bool) {
	if !ok {
		v.fields = append(v.fields, field)
	}
}

func (v *validator) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: v.fields}
}
