package swap

import (
	"time"

	"github.com/ggonzalez94/solw/internal/id"
	"github.com/ggonzalez94/solw/internal/model"
)

// Summary renders q for output. Token decimals come from the registry;
// unknown mints are shown in base units.
func (q Quote) Summary(provider string, in, out id.Token, fetchedAt time.Time) model.SwapQuote {
	hops := make([]model.RouteHop, 0, len(q.Route))
	for _, h := range q.Route {
		hops = append(hops, model.RouteHop{Label: h.Label, InputMint: h.InputMint, OutputMint: h.OutputMint, Percent: h.Percent})
	}
	return model.SwapQuote{
		Provider:       provider,
		InputMint:      q.InputMint.String(),
		OutputMint:     q.OutputMint.String(),
		InputAmount:    id.Amount{Base: q.InAmount, Decimals: in.Decimals}.Info(),
		EstimatedOut:   id.Amount{Base: q.OutAmount, Decimals: out.Decimals}.Info(),
		MinimumOut:     id.Amount{Base: q.MinimumOut, Decimals: out.Decimals}.Info(),
		SlippageBps:    q.SlippageBps,
		PriceImpactPct: q.PriceImpactPct,
		Route:          q.RouteLabel(provider),
		Hops:           hops,
		FetchedAt:      fetchedAt.UTC().Format(time.RFC3339),
	}
}
