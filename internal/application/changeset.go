package application

import (
	"regexp"
	"strings"

	"github.com/ericfisherdev/orgsync/internal/domain/model"
)

// Extract groups files by the organization directory directly below basePath.
// Paths outside basePath are dropped. An empty basePath treats the first path
// segment as the organization.
func Extract(files []model.ChangedFile, basePath string) model.ChangeSet {
	re := orgPattern(basePath)
	cs := model.NewChangeSet()

	for _, f := range files {
		m := re.FindStringSubmatch(f.SourcePath)
		if m == nil {
			continue
		}
		cs.Add(m[1], f)
	}

	return cs
}

// orgPattern compiles ^<base>/([^/]+)(?:/|$) with base taken literally.
func orgPattern(basePath string) *regexp.Regexp {
	base := strings.TrimRight(basePath, "/")
	if base == "" {
		return regexp.MustCompile(`^([^/]+)(?:/|$)`)
	}
	return regexp.MustCompile(`^` + regexp.QuoteMeta(base) + `/([^/]+)(?:/|$)`)
}

// remainderPath returns the part of sourcePath below <basePath>/<org>/.
// It is empty when sourcePath names the organization directory itself.
func remainderPath(sourcePath, basePath, org string) string {
	base := strings.TrimRight(basePath, "/")
	prefix := org
	if base != "" {
		prefix = base + "/" + org
	}
	rest := strings.TrimPrefix(sourcePath, prefix)
	return strings.TrimPrefix(rest, "/")
}

// destinationPath maps a source file to its location in the organization's
// admin repository: <folder>/<org>/<remainder>, with README.md standing in for
// an empty remainder.
func destinationPath(folder, org, remainder string) string {
	folder = strings.Trim(folder, "/")
	if remainder == "" {
		remainder = "README.md"
	}
	if folder == "" {
		return org + "/" + remainder
	}
	return folder + "/" + org + "/" + remainder
}
