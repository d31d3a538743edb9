// Package config resolves the content config: the YAML documents that
// declare, per (input content set, output content set, version), the
// module/package whitelists, package blacklist, content-set mapping,
// allowed arches, and depsolver flags the coordinator needs to run a
// job. This is distinct from the process config (host/port/credentials,
// read from the environment): the content config is operator-authored
// domain data, versioned alongside the UBI release streams it
// describes.
package config

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/quay/ubi-manifest"
)

// document is the on-disk YAML shape of a single content-config file.
type document struct {
	Modules struct {
		Whitelist []moduleEntry `yaml:"whitelist"`
	} `yaml:"modules"`
	Packages struct {
		Whitelist []string `yaml:"whitelist"`
		Blacklist []string `yaml:"blacklist"`
	} `yaml:"packages"`
	ContentSets struct {
		RPM        csPair `yaml:"rpm"`
		SRPM       csPair `yaml:"srpm"`
		Debuginfo  csPair `yaml:"debuginfo"`
	} `yaml:"content_sets"`
	Arches  []string          `yaml:"arches"`
	Flags   map[string]bool   `yaml:"flags"`
	Version string            `yaml:"version"`
}

type moduleEntry struct {
	Name     string   `yaml:"name"`
	Stream   string   `yaml:"stream"`
	Profiles []string `yaml:"profiles"`
}

type csPair struct {
	Input  string `yaml:"input"`
	Output string `yaml:"output"`
}

// key identifies one document by its resolver coordinates.
type key struct {
	InputCS  string
	OutputCS string
	Version  string
}

// Resolver answers (input content-set, output content-set, version) ->
// [ubimanifest.Config] lookups, with the X.Y -> X version fallback
// spec.md section 4.5 step 3 requires.
type Resolver struct {
	byKey map[key]ubimanifest.Config
}

// Load builds a Resolver from every ".yaml"/".yml" file directly under
// dir (non-recursive, matching the teacher's flat config-directory
// convention).
func Load(dir string) (*Resolver, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("config: reading %q: %w", dir, err)
	}
	r := &Resolver{byKey: make(map[key]ubimanifest.Config)}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		f, err := os.Open(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("config: opening %q: %w", e.Name(), err)
		}
		err = r.addDocument(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("config: parsing %q: %w", e.Name(), err)
		}
	}
	return r, nil
}

// LoadFS is Load against an [fs.FS], used in tests with
// [testing/fstest.MapFS].
func LoadFS(fsys fs.FS, dir string) (*Resolver, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("config: reading %q: %w", dir, err)
	}
	r := &Resolver{byKey: make(map[key]ubimanifest.Config)}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		f, err := fsys.Open(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("config: opening %q: %w", e.Name(), err)
		}
		err = r.addDocument(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("config: parsing %q: %w", e.Name(), err)
		}
	}
	return r, nil
}

// FetchHTTP builds a Resolver from the one YAML document served at url;
// it does not read directory listings.
// It expects the given URL to already point at a single YAML document;
// content-config directories served over HTTP are one request per
// document, unlike the filesystem case's directory scan.
func FetchHTTP(ctx context.Context, client *http.Client, url string) (*Resolver, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("config: fetching %q: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("config: fetching %q: unexpected status %s", url, resp.Status)
	}
	r := &Resolver{byKey: make(map[key]ubimanifest.Config)}
	if err := r.addDocument(resp.Body); err != nil {
		return nil, fmt.Errorf("config: parsing %q: %w", url, err)
	}
	return r, nil
}

func (r *Resolver) addDocument(rd io.Reader) error {
	var doc document
	dec := yaml.NewDecoder(rd)
	if err := dec.Decode(&doc); err != nil {
		return err
	}
	cfg := toConfig(doc)
	k := key{InputCS: doc.ContentSets.RPM.Input, OutputCS: doc.ContentSets.RPM.Output, Version: doc.Version}
	r.byKey[k] = cfg
	return nil
}

func toConfig(doc document) ubimanifest.Config {
	modules := make([]ubimanifest.ModuleProfileRequest, 0, len(doc.Modules.Whitelist))
	for _, m := range doc.Modules.Whitelist {
		modules = append(modules, ubimanifest.ModuleProfileRequest{Name: m.Name, Stream: m.Stream, Profiles: m.Profiles})
	}
	pkgs, srpms := ubimanifest.ParsePackageBlacklist(doc.Packages.Blacklist)
	return ubimanifest.Config{
		ModuleWhitelist:  modules,
		PackageWhitelist: append([]string(nil), doc.Packages.Whitelist...),
		PackageBlacklist: append(pkgs, srpms...),
		ContentSets: map[string]ubimanifest.ContentSetMapping{
			"rpm":       {Input: doc.ContentSets.RPM.Input, Output: doc.ContentSets.RPM.Output},
			"srpm":      {Input: doc.ContentSets.SRPM.Input, Output: doc.ContentSets.SRPM.Output},
			"debuginfo": {Input: doc.ContentSets.Debuginfo.Input, Output: doc.ContentSets.Debuginfo.Output},
		},
		Arches: append([]string(nil), doc.Arches...),
		Flags:  ubimanifest.Flags{BasePkgsOnly: doc.Flags["base_pkgs_only"]},
	}
}

// Resolve looks up the config for (inputCS, outputCS, version), falling
// back from "X.Y" to "X" once before giving up.
//
// Returns an *ubimanifest.Error with Kind
// [ubimanifest.ErrContentConfigMissing] when no config matches either
// version form.
func (r *Resolver) Resolve(inputCS, outputCS, version string) (ubimanifest.Config, error) {
	if cfg, ok := r.byKey[key{inputCS, outputCS, version}]; ok {
		return cfg, nil
	}
	if major, ok := majorVersion(version); ok {
		if cfg, ok := r.byKey[key{inputCS, outputCS, major}]; ok {
			return cfg, nil
		}
	}
	return ubimanifest.Config{}, &ubimanifest.Error{
		Op:      "config.Resolve",
		Kind:    ubimanifest.ErrContentConfigMissing,
		Message: fmt.Sprintf("no config for (%s, %s, %s) after version fallback", inputCS, outputCS, version),
	}
}

// majorVersion reduces "X.Y" to "X"; ok is false if version has no dot
// to strip.
func majorVersion(version string) (string, bool) {
	i := strings.Index(version, ".")
	if i < 0 {
		return "", false
	}
	return version[:i], true
}

// Versions returns every version known for an (inputCS, outputCS) pair,
// sorted ascending, for diagnostics and tests.
func (r *Resolver) Versions(inputCS, outputCS string) []string {
	var out []string
	for k := range r.byKey {
		if k.InputCS == inputCS && k.OutputCS == outputCS {
			out = append(out, k.Version)
		}
	}
	sort.Strings(out)
	return out
}
