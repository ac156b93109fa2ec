package reference

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xpanvictor/chemtalk/pkg/Logger"
	"github.com/xpanvictor/chemtalk/pkg/cache"
)

var ErrNotFound = errors.New("compound not found")

type Compound struct {
	Name        string  `json:"name"`
	Formula     string  `json:"formula"`
	MolarMass   float64 `json:"molar_mass"`
	Polar       bool    `json:"polar"`
	Description string  `json:"description"`
}

// Source is the reference data collaborator.
type Source interface {
	Find(ctx context.Context, name string) (*Compound, error)
}

// Lookup fronts a Source with a time-bounded cache. Misses and errors are
// not cached.
type Lookup struct {
	src    Source
	cache  cache.Cache[Compound]
	logger *Logger.Logger
}

func NewLookup(src Source, c cache.Cache[Compound], logger *Logger.Logger) *Lookup {
	return &Lookup{src: src, cache: c, logger: Logger.OrNop(logger).Named("reference")}
}

func key(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

func (l *Lookup) Get(ctx context.Context, name string) (*Compound, error) {
	k := key(name)
	if k == "" {
		return nil, ErrNotFound
	}
	if c, ok := l.cache.Get(k); ok {
		return &c, nil
	}
	c, err := l.src.Find(ctx, name)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			l.logger.Warnf("lookup %q: %v", name, err)
		}
		return nil, fmt.Errorf("reference %q: %w", name, err)
	}
	l.cache.Set(k, *c)
	return c, nil
}
