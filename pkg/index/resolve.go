// Package index reads the remote directory-listing page and resolves a
// requested build to a concrete archive filename by pattern matching.
package index

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/glorpus-work/blendup/pkg/errors"
	"github.com/hashicorp/go-version"
)

// Pattern builds the filename pattern for a product build:
//
//	<product>-<version>-<word chars>-<tag><[0-9A-Za-z._-]*>.<extension>
//
// Every caller supplied literal is escaped, so a "." in the version or the
// extension only ever matches a dot.
func Pattern(product, ver, tag, ext string) (*regexp.Regexp, error) {
	expr := regexp.QuoteMeta(product) + "-" +
		regexp.QuoteMeta(ver) + `-\w+-` +
		regexp.QuoteMeta(tag) + `[0-9A-Za-z._-]*` +
		`\.` + regexp.QuoteMeta(ext)
	return regexp.Compile(expr)
}

// Resolve returns the first substring of text naming a build of product at
// version for the given OS tag and extension. When the page lists several
// matching builds the leftmost one wins.
func Resolve(text, product, ver, tag, ext string) (string, error) {
	re, err := Pattern(product, ver, tag, ext)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errors.ErrInvalidConfiguration, err)
	}
	match := re.FindString(text)
	if match == "" {
		return "", fmt.Errorf("%w: no %s %s build for OS %q with extension .%s",
			errors.ErrNotFound, product, ver, tag, ext)
	}
	return match, nil
}

// Build is one archive listed on the index page.
type Build struct {
	Filename string
	Version  string
}

// ListBuilds returns every distinct build of product for tag and ext found in
// text, newest version first. Filenames whose version cannot be parsed sort last.
func ListBuilds(text, product, tag, ext string) ([]Build, error) {
	re, err := regexp.Compile(regexp.QuoteMeta(product) + `-([0-9][0-9A-Za-z.]*)-\w+-` +
		regexp.QuoteMeta(tag) + `[0-9A-Za-z._-]*\.` + regexp.QuoteMeta(ext))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrInvalidConfiguration, err)
	}

	seen := make(map[string]struct{})
	var builds []Build
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if _, ok := seen[m[0]]; ok {
			continue
		}
		seen[m[0]] = struct{}{}
		builds = append(builds, Build{Filename: m[0], Version: m[1]})
	}

	sort.SliceStable(builds, func(i, j int) bool {
		vi, erri := version.NewVersion(builds[i].Version)
		vj, errj := version.NewVersion(builds[j].Version)
		switch {
		case erri != nil && errj != nil:
			return builds[i].Filename < builds[j].Filename
		case erri != nil:
			return false
		case errj != nil:
			return true
		case vi.Equal(vj):
			return builds[i].Filename < builds[j].Filename
		default:
			return vi.GreaterThan(vj)
		}
	})
	return builds, nil
}
