package txbuilder

import (
	"carbon-scribe/project-portal/dapp-portal-backend/pkg/sui"
)

const (
	remittanceModule    = "remittance"
	carbonCreditsModule = "carbon_credits"
)

// ContractConfig holds the deployed package and shared object ids of the
// carbon credits contract.
type ContractConfig struct {
	PackageID     string `json:"package_id"`
	MarketplaceID string `json:"marketplace_id"`
	TreasuryID    string `json:"treasury_id"`
	RegistryID    string `json:"registry_id"`
}

func (c ContractConfig) target(fn string) string {
	return c.PackageID + "::" + carbonCreditsModule + "::" + fn
}

// ProjectRegistration is the argument set of add_verified_project. Expiry is
// in unix seconds.
type ProjectRegistration struct {
	ProjectAddress string
	Name           string
	Description    string
	Location       string
	Standard       string
	ProjectType    string
	Expiry         uint64
}

// Transfer sends amountMist from the gas coin to recipient through the
// remittance package.
func Transfer(packageID, recipient string, amountMist uint64) (*Transaction, error) {
	b := New()
	coin := b.SplitGas(amountMist)
	to := b.PureAddress("recipient", recipient)
	b.MoveCall(packageID+"::"+remittanceModule+"::send_remittance", []string{sui.SUICoinType}, coin, to)
	return b.Build()
}

// PurchaseFromTreasury pays credits*unitPriceMist into the treasury and
// mints credits.
func PurchaseFromTreasury(c ContractConfig, credits, unitPriceMist uint64) (*Transaction, error) {
	if credits == 0 {
		return nil, ErrZeroAmount
	}
	payment, err := sui.MulMist(credits, unitPriceMist)
	if err != nil {
		return nil, err
	}
	b := New()
	coin := b.SplitGas(payment)
	treasury := b.Object("treasury", c.TreasuryID)
	amount := b.PureU64(credits)
	b.MoveCall(c.target("purchase_carbon_credits"), nil, treasury, coin, amount)
	return b.Build()
}

// RegisterProject adds a verified project to the registry.
func RegisterProject(c ContractConfig, p ProjectRegistration) (*Transaction, error) {
	b := New()
	registry := b.Object("registry", c.RegistryID)
	project := b.PureAddress("project_address", p.ProjectAddress)
	name := b.PureString("name", p.Name)
	desc := b.PureString("description", p.Description)
	loc := b.PureString("location", p.Location)
	std := b.PureString("verification_standard", p.Standard)
	typ := b.PureString("project_type", p.ProjectType)
	expiry := b.PureU64(p.Expiry)
	b.MoveCall(c.target("add_verified_project"), nil, registry, project, name, desc, loc, std, typ, expiry)
	return b.Build()
}

// ListForSale lists a credit coin on the marketplace at pricePerCreditMist.
func ListForSale(c ContractConfig, projectAddress, creditCoinID string, pricePerCreditMist uint64) (*Transaction, error) {
	if pricePerCreditMist == 0 {
		return nil, ErrZeroAmount
	}
	b := New()
	market := b.Object("marketplace", c.MarketplaceID)
	registry := b.Object("registry", c.RegistryID)
	project := b.PureAddress("project_address", projectAddress)
	credit := b.Object("credit_coin", creditCoinID)
	price := b.PureU64(pricePerCreditMist)
	b.MoveCall(c.target("list_carbon_credits"), nil, market, registry, project, credit, price)
	return b.Build()
}

// BuyFromListing pays paymentMist for the listing at listingAddress.
func BuyFromListing(c ContractConfig, listingAddress string, paymentMist uint64) (*Transaction, error) {
	b := New()
	coin := b.SplitGas(paymentMist)
	market := b.Object("marketplace", c.MarketplaceID)
	listing := b.PureAddress("listing_address", listingAddress)
	b.MoveCall(c.target("buy_carbon_credits"), nil, market, listing, coin)
	return b.Build()
}
