package ubimanifest

// Repo is a handle to an input or output repository as known to the
// content store: just enough identity for the query layer to address it
// and for the coordinator to track which output repo a population-source
// repo feeds.
type Repo struct {
	ID          string
	ContentSet  string
	Arch        string
}

// ModuleProfileRequest names a module stream whitelist entry: the module
// name, an optional pinned stream, and the profiles (if any) whose
// packages should be pulled in.
type ModuleProfileRequest struct {
	Name     string
	Stream   string // "" means "latest available stream"
	Profiles []string
}

// DepsolverItem is one output repository's demand on the RPM depsolver:
// the names it must contain, the names/arches it must not contain, and
// the input repositories to search.
type DepsolverItem struct {
	OutputRepoID string
	Whitelist    []string
	Blacklist    []PackageToExclude
	InPulpRepos  []Repo
}

// ModularDepsolverItem is one output repository's demand on the
// modulemd depsolver.
type ModularDepsolverItem struct {
	OutputRepoID string
	ModuleList   []ModuleProfileRequest
	InPulpRepos  []Repo
}

// RepoGroup is a correlated triple of output repositories (binary, debug,
// source) plus, for each, the input repositories that populate it. The
// coordinator always operates on one group at a time.
type RepoGroup struct {
	BinaryOutputRepoID string
	DebugOutputRepoID  string
	SourceOutputRepoID string

	BinaryInputRepos []Repo
	DebugInputRepos  []Repo
	SourceInputRepos []Repo
}
