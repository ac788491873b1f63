package yahoo

import (
	"context"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Quote is one symbol search hit.
type Quote struct {
	Symbol    string `json:"symbol"`
	ShortName string `json:"shortname,omitempty"`
	LongName  string `json:"longname,omitempty"`
	Exchange  string `json:"exchange,omitempty"`
	QuoteType string `json:"quoteType,omitempty"`
}

// Name returns the short name when present, otherwise the long name.
func (q Quote) Name() string {
	if q.ShortName != "" {
		return q.ShortName
	}
	return q.LongName
}

type searchResponse struct {
	Quotes []Quote `json:"quotes"`
}

// Search looks up symbols matching query. Hits without any name, mutual
// fund ids (0P...) and Bombay listings (.BO) are dropped. An empty query
// returns no results without calling out.
func (c *Client) Search(ctx context.Context, query string) ([]Quote, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Quote{}, nil
	}

	var out searchResponse
	_, err := c.do(ctx, "/v1/finance/search", func() *resty.Request {
		out = searchResponse{}
		return c.search.R().
			SetQueryParams(map[string]string{
				"q":           query,
				"quotesCount": "50",
				"newsCount":   "0",
			}).
			SetResult(&out)
	})
	if err != nil {
		return nil, err
	}

	quotes := FilterQuotes(out.Quotes)
	c.logger.Debug("symbol search",
		zap.String("query", query),
		zap.Int("raw", len(out.Quotes)),
		zap.Int("kept", len(quotes)),
	)
	return quotes, nil
}

// FilterQuotes drops unnamed hits, 0P... fund ids and .BO listings.
func FilterQuotes(quotes []Quote) []Quote {
	out := make([]Quote, 0, len(quotes))
	for _, q := range quotes {
		if q.ShortName == "" && q.LongName == "" {
			continue
		}
		sym := strings.ToUpper(q.Symbol)
		if strings.HasPrefix(sym, "0P") || strings.HasSuffix(sym, ".BO") {
			continue
		}
		out = append(out, q)
	}
	return out
}
