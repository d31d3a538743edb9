package httpapi

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/quay/ubi-manifest"
)

// TopologyEntry is everything the manifest endpoint needs to turn one
// requested (binary) output repo id into a coordinator job: the
// correlated input/output repo triple, and the (input content-set,
// output content-set, version) coordinates the config resolver needs.
//
// Repo-sibling discovery (spec.md section 4.5 step 2: "fetch the repo
// handle, fetch its debuginfo and source sibling repos") is a Pulp
// repo-metadata query the contentstore.Client contract doesn't model
// (it answers unit searches, not repo-listing queries) — so that
// discovery is factored out behind this interface instead of being
// built into contentstore.Client itself.
type TopologyEntry struct {
	Group            ubimanifest.RepoGroup
	InputContentSet  string
	OutputContentSet string
	Version          string
}

// Topology maps requested output repo ids to their resolved topology.
type Topology interface {
	Resolve(repoID string) (TopologyEntry, bool)
}

// StaticTopology is a Topology backed by an operator-supplied map, the
// standalone-module realization of "repo sibling discovery": in a full
// deployment this would instead query Pulp's repo metadata, but that
// capability has no home in the content-store query contract this
// module builds on.
type StaticTopology map[string]TopologyEntry

var _ Topology = StaticTopology(nil)

// Resolve implements Topology.
func (t StaticTopology) Resolve(repoID string) (TopologyEntry, bool) {
	e, ok := t[repoID]
	return e, ok
}

// topologyDocument is the on-disk JSON shape one repo-topology entry:
// the operator-authored counterpart to spec.md section 4.5 step 2's
// repo-sibling discovery, since this module has no Pulp repo-listing
// API to discover it from automatically.
type topologyDocument struct {
	OutputRepoID     string   `json:"output_repo_id"`
	BinaryInputRepos []string `json:"binary_input_repos"`
	DebugOutputRepoID string  `json:"debug_output_repo_id"`
	DebugInputRepos  []string `json:"debug_input_repos"`
	SourceOutputRepoID string `json:"source_output_repo_id"`
	SourceInputRepos []string `json:"source_input_repos"`
	InputContentSet  string   `json:"input_content_set"`
	OutputContentSet string   `json:"output_content_set"`
	Version          string   `json:"version"`
}

func asRepos(ids []string) []ubimanifest.Repo {
	out := make([]ubimanifest.Repo, len(ids))
	for i, id := range ids {
		out[i] = ubimanifest.Repo{ID: id}
	}
	return out
}

// LoadStaticTopology reads a JSON array of topology documents from
// path and builds a StaticTopology keyed by each entry's
// output_repo_id.
func LoadStaticTopology(path string) (StaticTopology, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("httpapi: opening topology file %q: %w", path, err)
	}
	defer f.Close()

	var docs []topologyDocument
	if err := json.NewDecoder(f).Decode(&docs); err != nil {
		return nil, fmt.Errorf("httpapi: decoding topology file %q: %w", path, err)
	}

	out := make(StaticTopology, len(docs))
	for _, d := range docs {
		out[d.OutputRepoID] = TopologyEntry{
			Group: ubimanifest.RepoGroup{
				BinaryOutputRepoID: d.OutputRepoID,
				DebugOutputRepoID:  d.DebugOutputRepoID,
				SourceOutputRepoID: d.SourceOutputRepoID,
				BinaryInputRepos:   asRepos(d.BinaryInputRepos),
				DebugInputRepos:    asRepos(d.DebugInputRepos),
				SourceInputRepos:   asRepos(d.SourceInputRepos),
			},
			InputContentSet:  d.InputContentSet,
			OutputContentSet: d.OutputContentSet,
			Version:          d.Version,
		}
	}
	return out, nil
}

// knownRepoIDs lists every output repo id t knows about, sorted, for
// the 404 "no repo matches any known repo class" error message.
func knownRepoIDs(t Topology) string {
	st, ok := t.(StaticTopology)
	if !ok {
		return ""
	}
	ids := make([]string, 0, len(st))
	for id := range st {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return fmt.Sprintf("%v", ids)
}
