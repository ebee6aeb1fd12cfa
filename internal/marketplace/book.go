package marketplace

import (
	"sync"

	"carbon-scribe/project-portal/dapp-portal-backend/internal/session"
)

// Book is a session's view of the marketplace: the listings it has seen,
// the projects it registered and the running stats.
type Book struct {
	mu       sync.RWMutex
	listings []Listing
	projects []Project
	stats    Stats
}

const bookKey = "marketplace.book"

func newBook() *Book {
	listings := sampleListings()
	var volume uint64
	for _, l := range listings {
		volume += l.TotalPrice
	}
	return &Book{
		listings: listings,
		stats: Stats{
			TotalItems:    len(listings),
			TotalVolume:   volume,
			FeePercentage: defaultFeePercentage,
		},
	}
}

func bookOf(sess *session.Session) *Book {
	return session.Value(sess, bookKey, newBook)
}

// Listings returns the listings whose project type is category, or all of
// them for CategoryAll or "".
func (b *Book) Listings(category string) []Listing {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Listing, 0, len(b.listings))
	for _, l := range b.listings {
		if category == "" || category == CategoryAll || l.ProjectType == category {
			out = append(out, l)
		}
	}
	return out
}

// Listing returns a copy of the listing with id.
func (b *Book) Listing(id string) (Listing, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, l := range b.listings {
		if l.ID == id {
			return l, true
		}
	}
	return Listing{}, false
}

func (b *Book) listingByAddress(addr string) (Listing, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, l := range b.listings {
		if l.ListingAddress == addr {
			return l, true
		}
	}
	return Listing{}, false
}

func (b *Book) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.stats
}

func (b *Book) Projects() []Project {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Project(nil), b.projects...)
}

// prependIfAbsent adds l unless a listing with the same on-chain address is
// already in the book, in which case that listing is returned instead.
func (b *Book) prependIfAbsent(l Listing) (Listing, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, existing := range b.listings {
		if existing.ListingAddress == l.ListingAddress {
			return existing, false
		}
	}
	b.listings = append([]Listing{l}, b.listings...)
	b.stats.TotalItems++
	return l, true
}

func (b *Book) prepend(l Listing) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.listings = append([]Listing{l}, b.listings...)
	b.stats.TotalItems++
}

// markSold deactivates the listing and adds its price to the volume. It
// reports false when the listing was already inactive.
func (b *Book) markSold(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.listings {
		if b.listings[i].ID != id {
			continue
		}
		if !b.listings[i].Active {
			return false
		}
		b.listings[i].Active = false
		b.stats.TotalVolume += b.listings[i].TotalPrice
		return true
	}
	return false
}

func (b *Book) addProject(p Project) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.projects = append([]Project{p}, b.projects...)
}
