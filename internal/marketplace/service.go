package marketplace

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carbon-scribe/project-portal/dapp-portal-backend/internal/outcome"
	"carbon-scribe/project-portal/dapp-portal-backend/internal/session"
	"carbon-scribe/project-portal/dapp-portal-backend/internal/transactions"
	"carbon-scribe/project-portal/dapp-portal-backend/internal/txbuilder"
	"carbon-scribe/project-portal/dapp-portal-backend/pkg/sui"
)

// DefaultTreasuryUnitPrice is 0.1 SUI per credit.
const DefaultTreasuryUnitPrice = 100_000_000

var demoListingID = regexp.MustCompile(`^[0-9]+$`)

var whitespace = regexp.MustCompile(`\s+`)

// Config configures the marketplace flows.
type Config struct {
	Contract              txbuilder.ContractConfig
	TreasuryUnitPriceMist uint64
}

// Service runs the marketplace flows against a session's book.
type Service struct {
	submitter *transactions.Submitter
	objects   ObjectReader
	config    Config
	logger    *zap.Logger
	now       func() time.Time
}

// NewService builds the marketplace service. objects may be nil, which
// disables listing import.
func NewService(submitter *transactions.Submitter, objects ObjectReader, logger *zap.Logger, config Config) *Service {
	if config.TreasuryUnitPriceMist == 0 {
		config.TreasuryUnitPriceMist = DefaultTreasuryUnitPrice
	}
	return &Service{
		submitter: submitter,
		objects:   objects,
		config:    config,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Service) Catalog() Catalog {
	return DefaultCatalog()
}

// Listings returns the session's listings in the given category.
func (s *Service) Listings(sess *session.Session, category string) []Listing {
	return bookOf(sess).Listings(category)
}

func (s *Service) Listing(sess *session.Session, id string) (*Listing, error) {
	l, ok := bookOf(sess).Listing(id)
	if !ok {
		return nil, ErrListingNotFound
	}
	return &l, nil
}

func (s *Service) Stats(sess *session.Session) Stats {
	return bookOf(sess).Stats()
}

func (s *Service) Projects(sess *session.Session) []Project {
	return bookOf(sess).Projects()
}

// PurchaseFromTreasury buys data.CreditsAmount credits at the treasury unit
// price and adds a listing for them to the book.
func (s *Service) PurchaseFromTreasury(ctx context.Context, sess *session.Session, data MintingData) (*Result, error) {
	account := sess.Account()
	if account == "" {
		return nil, session.ErrWalletNotConnected
	}

	v := &validator{}
	v.required("project_name", data.ProjectName)
	v.required("project_description", data.ProjectDescription)
	v.check("credits_amount", data.CreditsAmount > 0)
	v.check("price_per_credit", data.PricePerCredit > 0)
	if err := v.err(); err != nil {
		return nil, err
	}

	cost, err := sui.MulMist(data.CreditsAmount, s.config.TreasuryUnitPriceMist)
	if err != nil {
		return nil, &ValidationError{Fields: []string{"credits_amount"}}
	}
	total, err := sui.MulMist(data.CreditsAmount, data.PricePerCredit)
	if err != nil {
		return nil, &ValidationError{Fields: []string{"price_per_credit"}}
	}

	needs := fmt.Sprintf(MsgTreasuryNeeds, sui.MistToDecimal(cost).InexactFloat64(), data.CreditsAmount)
	if balance, _, ok := sess.Balance(); ok && balance < cost {
		return nil, insufficient(needs)
	}

	release, err := sess.Begin()
	if err != nil {
		return nil, err
	}
	defer release()

	tx, err := txbuilder.PurchaseFromTreasury(s.config.Contract, data.CreditsAmount, s.config.TreasuryUnitPriceMist)
	if err != nil {
		return nil, fmt.Errorf("failed to build treasury purchase: %w", err)
	}

	rec, err := s.submitter.Submit(ctx, transactions.Submission{
		Session:    sess,
		Operation:  transactions.OperationTreasuryPurchase,
		Recipient:  s.config.Contract.TreasuryID,
		Amount:     sui.MistToDecimal(cost).String(),
		AmountMist: cost,
		Tx:         tx,
		Messages: outcome.DefaultMessages.With(outcome.Messages{
			outcome.KindInsufficientFunds: needs,
			outcome.KindUnknown:           MsgPurchaseFailed,
		}),
	})
	if err != nil {
		return nil, err
	}

	listing := Listing{
		ID:                   uuid.NewString(),
		ProjectName:          data.ProjectName,
		ProjectDescription:   data.ProjectDescription,
		ProjectLocation:      data.ProjectLocation,
		VerificationStandard: data.VerificationStandard,
		ProjectType:          data.ProjectType,
		Seller:               account,
		CreditsAmount:        data.CreditsAmount,
		PricePerCredit:       data.PricePerCredit,
		TotalPrice:           total,
		Active:               true,
		CreatedAt:            s.now().UTC(),
	}
	bookOf(sess).prepend(listing)

	s.logger.Info("Carbon credits purchased from treasury",
		zap.String("session_id", sess.ID),
		zap.Uint64("credits", data.CreditsAmount),
		zap.String("digest", rec.Digest),
	)
	return &Result{Message: MsgTreasuryPurchased, Record: rec, Listing: &listing}, nil
}

// RegisterProject adds a verified project to the registry.
func (s *Service) RegisterProject(ctx context.Context, sess *session.Session, data ProjectRegistrationData) (*Result, error) {
	account := sess.Account()
	if account == "" {
		return nil, session.ErrWalletNotConnected
	}

	now := s.now()
	projectAddress := strings.TrimSpace(data.ProjectAddress)
	if projectAddress == "" {
		projectAddress = account
	}
	expiry := now.Add(defaultExpiryFromToday)
	if data.Expiry != nil {
		expiry = *data.Expiry
	}

	v := &validator{}
	v.check("project_address", sui.IsValidAddress(projectAddress))
	v.required("name", data.Name)
	v.required("description", data.Description)
	v.required("location", data.Location)
	v.required("verification_standard", data.Standard)
	v.required("project_type", data.ProjectType)
	v.check("expiry_date", expiry.After(now))
	if err := v.err(); err != nil {
		return nil, err
	}

	release, err := sess.Begin()
	if err != nil {
		return nil, err
	}
	defer release()

	tx, err := txbuilder.RegisterProject(s.config.Contract, txbuilder.ProjectRegistration{
		ProjectAddress: projectAddress,
		Name:           data.Name,
		Description:    data.Description,
		Location:       data.Location,
		Standard:       data.Standard,
		ProjectType:    data.ProjectType,
		Expiry:         uint64(expiry.Unix()),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build project registration: %w", err)
	}

	rec, err := s.submitter.Submit(ctx, transactions.Submission{
		Session:   sess,
		Operation: transactions.OperationRegisterProject,
		Recipient: s.config.Contract.RegistryID,
		Amount:    "0",
		Tx:        tx,
		Messages:  outcome.DefaultMessages.With(outcome.Messages{outcome.KindUnknown: MsgRegistrationFailed}),
	})
	if err != nil {
		return nil, err
	}

	project := Project{
		ID:             ProjectID(now, data.Name),
		ProjectAddress: projectAddress,
		Name:           data.Name,
		Description:    data.Description,
		Location:       data.Location,
		Standard:       data.Standard,
		ProjectType:    data.ProjectType,
		Expiry:         expiry.UTC(),
		Digest:         rec.Digest,
		CreatedAt:      now.UTC(),
	}
	bookOf(sess).addProject(project)

	s.logger.Info("Project registered",
		zap.String("session_id", sess.ID),
		zap.String("project_id", project.ID),
		zap.String("digest", rec.Digest),
	)
	return &Result{Message: MsgProjectRegistered, Record: rec, Project: &project}, nil
}

// ProjectID derives the local project id from the registration time and
// name.
func ProjectID(at time.Time, name string) string {
	return fmt.Sprintf("project_%d_%s", at.UnixMilli(), strings.ToLower(whitespace.ReplaceAllString(name, "_")))
}

// ListForSale lists an owned credit coin on the marketplace.
func (s *Service) ListForSale(ctx context.Context, sess *session.Session, data ListCreditsData) (*Result, error) {
	account := sess.Account()
	if account == "" {
		return nil, session.ErrWalletNotConnected
	}

	projectAddress := strings.TrimSpace(data.ProjectAddress)
	if projectAddress == "" {
		projectAddress = account
	}
	coinID := strings.TrimSpace(data.CreditCoinID)

	v := &validator{}
	v.check("project_address", sui.IsValidAddress(projectAddress))
	v.check("credit_coin_id", sui.IsValidAddress(coinID))
	v.check("price_per_credit", data.PricePerCredit > 0)
	if err := v.err(); err != nil {
		return nil, err
	}

	release, err := sess.Begin()
	if err != nil {
		return nil, err
	}
	defer release()

	tx, err := txbuilder.ListForSale(s.config.Contract, projectAddress, coinID, data.PricePerCredit)
	if err != nil {
		return nil, fmt.Errorf("failed to build listing: %w", err)
	}

	rec, err := s.submitter.Submit(ctx, transactions.Submission{
		Session:   sess,
		Operation: transactions.OperationListForSale,
		Recipient: s.config.Contract.MarketplaceID,
		Amount:    "0",
		Tx:        tx,
		Messages:  outcome.DefaultMessages.With(outcome.Messages{outcome.KindUnknown: MsgListingFailed}),
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Carbon credits listed",
		zap.String("session_id", sess.ID),
		zap.String("credit_coin_id", coinID),
		zap.String("digest", rec.Digest),
	)
	return &Result{Message: MsgCreditsListed, Record: rec}, nil
}

// Buy pays a listing's total price against its on-chain listing. Demo
// listings are refused before the wallet is involved.
func (s *Service) Buy(ctx context.Context, sess *session.Session, listingID string) (*Result, error) {
	if demoListingID.MatchString(listingID) {
		return nil, ErrDemoListing
	}
	if sess.Account() == "" {
		return nil, session.ErrWalletNotConnected
	}

	book := bookOf(sess)
	listing, ok := book.Listing(listingID)
	if !ok {
		return nil, ErrListingNotFound
	}
	if !listing.Active {
		return nil, ErrListingInactive
	}
	if listing.ListingAddress == "" {
		return nil, ErrListingNotOnChain
	}
	if balance, _, ok := sess.Balance(); ok && balance < listing.TotalPrice {
		return nil, insufficient(MsgBuyInsufficient)
	}

	release, err := sess.Begin()
	if err != nil {
		return nil, err
	}
	defer release()

	tx, err := txbuilder.BuyFromListing(s.config.Contract, listing.ListingAddress, listing.TotalPrice)
	if err != nil {
		return nil, fmt.Errorf("failed to build purchase: %w", err)
	}

	rec, err := s.submitter.Submit(ctx, transactions.Submission{
		Session:    sess,
		Operation:  transactions.OperationBuyListing,
		Recipient:  listing.Seller,
		Amount:     sui.MistToDecimal(listing.TotalPrice).String(),
		AmountMist: listing.TotalPrice,
		Tx:         tx,
		Messages: outcome.DefaultMessages.With(outcome.Messages{
			outcome.KindInsufficientFunds: MsgBuyInsufficient,
			outcome.KindUnknown:           MsgPurchaseFailed,
		}),
	})
	if err != nil {
		return nil, err
	}

	book.markSold(listing.ID)
	listing.Active = false

	s.logger.Info("Listing purchased",
		zap.String("session_id", sess.ID),
		zap.String("listing_id", listing.ID),
		zap.String("digest", rec.Digest),
	)
	return &Result{Message: MsgListingPurchased + rec.Digest, Record: rec, Listing: &listing}, nil
}

func insufficient(notice string) *outcome.Failure {
	return &outcome.Failure{
		Cause:  &outcome.Error{Kind: outcome.KindInsufficientFunds, Message: notice},
		Notice: notice,
	}
}
