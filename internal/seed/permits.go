// Package seed loads reference data shipped with the binary.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"buildwise/api/internal/store"
)

//go:embed data/permits_dallas.yaml
var dallasPermits []byte

type permitFile struct {
	State     string                            `yaml:"state"`
	Documents map[string][]store.PermitDocument `yaml:"documents"`
	Cities    []struct {
		City string   `yaml:"city"`
		Zips []string `yaml:"zips"`
	} `yaml:"cities"`
}

type PermitWriter interface {
	InsertPermitSetIfMissing(ctx context.Context, set store.PermitDocumentSet) (bool, error)
}

// PermitSets expands the embedded file into one set per city and project type.
func PermitSets() ([]store.PermitDocumentSet, error) {
	return parsePermitSets(dallasPermits)
}

func parsePermitSets(raw []byte) ([]store.PermitDocumentSet, error) {
	var f permitFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode permit seed: %w", err)
	}
	types := make([]string, 0, len(f.Documents))
	for t := range f.Documents {
		types = append(types, t)
	}
	sort.Strings(types)

	var sets []store.PermitDocumentSet
	for _, c := range f.Cities {
		for _, projectType := range types {
			sets = append(sets, store.PermitDocumentSet{
				ID:          uuid.NewString(),
				City:        c.City,
				State:       f.State,
				ZipCodes:    store.NewJSONB(c.Zips),
				ProjectType: projectType,
				Documents:   store.NewJSONB(f.Documents[projectType]),
			})
		}
	}
	return sets, nil
}

// SeedPermits inserts every missing set and reports how many were written.
func SeedPermits(ctx context.Context, w PermitWriter) (inserted, skipped int, err error) {
	sets, err := PermitSets()
	if err != nil {
		return 0, 0, err
	}
	for _, set := range sets {
		ok, err := w.InsertPermitSetIfMissing(ctx, set)
		if err != nil {
			return inserted, skipped, err
		}
		if ok {
			inserted++
			log.Info().Str("city", set.City).Str("project_type", set.ProjectType).Msg("seeded permit set")
			continue
		}
		skipped++
		log.Debug().Str("city", set.City).Str("project_type", set.ProjectType).Msg("permit set already exists")
	}
	return inserted, skipped, nil
}
