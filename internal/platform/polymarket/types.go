package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/parityarb/paritybot/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// flexFloat unmarshals from a JSON number or a numeric string; Gamma sends
// volume and liquidity both ways depending on the endpoint.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		*f = flexFloat(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

// APIEvent represents an event as returned by the Gamma API. An event groups
// one or more related markets; for the short-horizon up/down series each
// event embeds exactly one market.
type APIEvent struct {
	ID      string      `json:"id"`
	Title   string      `json:"title"`
	Slug    string      `json:"slug"`
	Active  flexBool    `json:"active"`
	Closed  bool        `json:"closed"`
	EndDate string      `json:"endDate"`
	Markets []APIMarket `json:"markets"`
}

// APIMarket represents a market as returned by the Gamma API.
type APIMarket struct {
	ID              string    `json:"id"`
	Question        string    `json:"question"`
	Slug            string    `json:"slug"`
	ConditionID     string    `json:"conditionId"`
	Active          flexBool  `json:"active"`
	Closed          bool      `json:"closed"`
	AcceptingOrders bool      `json:"acceptingOrders"`
	FeesEnabled     bool      `json:"feesEnabled"`
	Outcomes        string    `json:"outcomes"`     // JSON-encoded: e.g. "[\"Up\",\"Down\"]"
	ClobTokenIDs    string    `json:"clobTokenIds"` // JSON-encoded: e.g. "[\"123\",\"456\"]"
	Volume          flexFloat `json:"volume"`
	Liquidity       flexFloat `json:"liquidity"`
	EndDateISO      string    `json:"endDateIso"`
	EndDate         string    `json:"endDate"`
}

// ToDomainMarket converts a Gamma APIMarket to a domain.Market. The YES/first
// outcome token is clobTokenIds[0], the NO/second token clobTokenIds[1].
func (m *APIMarket) ToDomainMarket() domain.Market {
	dm := domain.Market{
		ID:          m.ID,
		Question:    m.Question,
		Slug:        m.Slug,
		ConditionID: m.ConditionID,
		FeesEnabled: m.FeesEnabled,
		Volume:      float64(m.Volume),
		Liquidity:   float64(m.Liquidity),
		Active:      bool(m.Active) && !m.Closed,
	}

	var tokenIDs []string
	if err := json.Unmarshal([]byte(m.ClobTokenIDs), &tokenIDs); err == nil {
		if len(tokenIDs) > 0 {
			dm.YesTokenID = tokenIDs[0]
		}
		if len(tokenIDs) > 1 {
			dm.NoTokenID = tokenIDs[1]
		}
	}

	end := m.EndDateISO
	if end == "" {
		end = m.EndDate
	}
	if t, err := time.Parse(time.RFC3339, end); err == nil {
		dm.EndDate = t
	}

	return dm
}
