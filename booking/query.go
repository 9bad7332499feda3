package booking

import (
	"net/url"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"servicedesk/models"
	"servicedesk/utils"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200

	// StatusAll disables the status restriction.
	StatusAll = "all"
)

// ListParams are the user-facing filters of the list endpoint.
type ListParams struct {
	Status string
	Search string
	Limit  int
}

// ParseListParams reads status, search and limit from a query string.
// A missing or malformed limit becomes DefaultListLimit.
func ParseListParams(q url.Values) ListParams {
	return ListParams{
		Status: strings.TrimSpace(q.Get("status")),
		Search: strings.TrimSpace(q.Get("search")),
		Limit:  utils.ParseIntDefault(q.Get("limit"), DefaultListLimit),
	}
}

// Filter is the repository-level query. The zero Status matches every status.
type Filter struct {
	Status models.Status
	Search string
	Limit  int
}

// TranslateQuery turns list params into a repository filter. maxLimit <= 0
// falls back to MaxListLimit. Results are always ordered newest first.
func TranslateQuery(p ListParams, maxLimit int) Filter {
	if maxLimit <= 0 {
		maxLimit = MaxListLimit
	}

	f := Filter{Search: strings.TrimSpace(p.Search), Limit: p.Limit}
	if s := strings.TrimSpace(p.Status); s != "" && !strings.EqualFold(s, StatusAll) {
		if st, ok := models.ParseStatus(s); ok {
			f.Status = st
		} else {
			// unknown values are matched literally and find nothing
			f.Status = models.Status(s)
		}
	}

	if f.Limit < 1 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > maxLimit {
		f.Limit = maxLimit
	}
	return f
}

// BSON renders the filter as a MongoDB query document.
func (f Filter) BSON() bson.M {
	q := bson.M{}
	if f.Status != "" {
		q["status"] = f.Status
	}
	if f.Search != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		q["$or"] = bson.A{
			bson.M{"bookingId": re},
			bson.M{"customer.name": re},
			bson.M{"customer.email": re},
		}
	}
	return q
}

// Matches applies the same semantics as BSON to an in-memory record.
func (f Filter) Matches(b *models.Booking) bool {
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	if f.Search == "" {
		return true
	}
	return utils.ContainsIgnoreCase(b.BookingID, f.Search) ||
		utils.ContainsIgnoreCase(b.Customer.Name, f.Search) ||
		utils.ContainsIgnoreCase(b.Customer.Email, f.Search)
}
