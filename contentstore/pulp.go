package contentstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"runtime"

	"golang.org/x/time/rate"

	"github.com/quay/ubi-manifest"
	"github.com/quay/ubi-manifest/pkg/fastesturl"
)

// Pulp is an HTTP-backed [Client] against a Pulp 2-style content-unit
// search API: POST {Host}/pulp/api/v2/repositories/{repo_id}/search/units/{unit_type}/
// with a criteria document, paged via skip/limit.
type Pulp struct {
	Host   string
	Client *http.Client
	// Limiter throttles outbound requests; nil disables throttling.
	Limiter *rate.Limiter
	// MaxInflight bounds concurrent windowed searches per Search call.
	// Zero selects runtime.GOMAXPROCS(0).
	MaxInflight int
	// Mirrors, if non-empty, is a set of equivalent Pulp hosts (e.g. a
	// CDN fronting the same content store from multiple regions); each
	// search picks whichever mirror answers first instead of always
	// using Host.
	Mirrors []string
}

// pickHost returns the host to issue a request against: the fastest
// responder among Mirrors, or Host if Mirrors is empty or none answer.
func (p *Pulp) pickHost(ctx context.Context) string {
	if len(p.Mirrors) == 0 {
		return p.Host
	}
	urls := make([]*url.URL, 0, len(p.Mirrors))
	for _, m := range p.Mirrors {
		if u, err := url.Parse(m); err == nil {
			urls = append(urls, u)
		}
	}
	if len(urls) == 0 {
		return p.Host
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequest(http.MethodHead, p.Mirrors[0], nil)
	if err != nil {
		return p.Host
	}
	resp := fastesturl.New(client, req, nil, urls).Do(ctx)
	if resp == nil {
		return p.Host
	}
	resp.Body.Close()
	return resp.Request.URL.Scheme + "://" + resp.Request.URL.Host
}

var _ Client = (*Pulp)(nil)

type unitSearchRequest struct {
	Criteria pulpCriteria `json:"criteria"`
}

type pulpCriteria struct {
	Filters map[string]any `json:"filters,omitempty"`
	Fields  []string       `json:"fields,omitempty"`
	Skip    int            `json:"skip"`
	Limit   int            `json:"limit"`
}

type pulpUnit struct {
	Metadata json.RawMessage `json:"metadata"`
}

// Search implements [Client].
func (p *Pulp) Search(ctx context.Context, repo ubimanifest.Repo, criteria []Criteria, unitType UnitType, opts SearchOptions) (<-chan Page, <-chan error) {
	windows := window(criteria, batchSize(opts))
	maxInflight := p.MaxInflight
	if maxInflight <= 0 {
		maxInflight = runtime.GOMAXPROCS(0)
	}

	do := throttle(p.Limiter, func(ctx context.Context, w []Criteria) (Page, error) {
		return p.searchWindow(ctx, repo, w, unitType, opts)
	})

	return concurrentSearch(ctx, windows, maxInflight, do)
}

// searchWindow pages through a single OR'd criteria window until the
// store returns a short page.
func (p *Pulp) searchWindow(ctx context.Context, repo ubimanifest.Repo, w []Criteria, unitType UnitType, opts SearchOptions) (Page, error) {
	limit := pageSize(opts)
	filters := orFilter(w)
	flds := fields(unitType, opts.Fields)

	var page Page
	skip := 0
	for {
		req := unitSearchRequest{Criteria: pulpCriteria{
			Filters: filters,
			Fields:  flds,
			Skip:    skip,
			Limit:   limit,
		}}
		units, err := p.postSearch(ctx, repo, unitType, req)
		if err != nil {
			return Page{}, &ubimanifest.Error{
				Op:      "contentstore.Pulp.Search",
				Kind:    ubimanifest.ErrTransient,
				Message: fmt.Sprintf("searching repo %q for %s units", repo.ID, unitType),
				Inner:   err,
			}
		}
		logPage(ctx, repo.ID, unitType, len(units))
		page.Units = append(page.Units, units...)
		if len(units) < limit {
			return page, nil
		}
		skip += limit
	}
}

func orFilter(criteria []Criteria) map[string]any {
	if len(criteria) == 0 {
		return nil
	}
	if len(criteria) == 1 {
		return criteria[0]
	}
	or := make([]map[string]any, len(criteria))
	for i, c := range criteria {
		or[i] = c
	}
	return map[string]any{"$or": or}
}

func (p *Pulp) postSearch(ctx context.Context, repo ubimanifest.Repo, unitType UnitType, body unitSearchRequest) ([]ubimanifest.Unit, error) {
	endpoint, err := url.JoinPath(p.pickHost(ctx), "pulp", "api", "v2", "repositories", repo.ID, "search", "units", string(unitType)+"/")
	if err != nil {
		return nil, err
	}
	buf, err := json.Marshal(&body)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("contentstore: unexpected status %s", resp.Status)
	}

	var raw []pulpUnit
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	units := make([]ubimanifest.Unit, 0, len(raw))
	for _, r := range raw {
		u, err := decodeUnit(unitType, repo.ID, r.Metadata)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, nil
}
