package inventory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jbweber/hvconn/internal/libvirt"
)

// Scope selects which domains List returns.
type Scope int

const (
	// ScopeRunning lists running domains only.
	ScopeRunning Scope = iota
	// ScopeDefined lists defined, inactive domains only.
	ScopeDefined
	// ScopeAll lists both.
	ScopeAll
)

const (
	// StateRunning marks a domain reported by the running enumeration.
	StateRunning = "running"
	// StateDefined marks a domain reported by the defined enumeration.
	StateDefined = "defined"
)

// DomainRow represents one listed domain.
type DomainRow struct {
	Name  string `json:"name" yaml:"name"`
	ID    int32  `json:"id" yaml:"id"`
	UUID  string `json:"uuid" yaml:"uuid"`
	State string `json:"state" yaml:"state"`
}

// List lists domains on c according to scope.
//
// Running domains come first, in the order libvirt reports their ids,
// followed by defined domains. Domains removed between enumeration and
// lookup are skipped; any other lookup failure fails the listing.
func List(ctx context.Context, c *libvirt.Connection, scope Scope) ([]DomainRow, error) {
	return listWithDeps(ctx, connReader{c}, scope)
}

// listWithDeps lists domains with injected dependencies.
// This allows for testing by accepting interfaces instead of concrete types.
func listWithDeps(ctx context.Context, r domainReader, scope Scope) ([]DomainRow, error) {
	logger := zerolog.Ctx(ctx)
	rows := []DomainRow{}

	if scope == ScopeRunning || scope == ScopeAll {
		ids, err := r.ListDomains()
		if err != nil {
			return nil, fmt.Errorf("failed to list running domains: %w", err)
		}

		for _, id := range ids {
			d, err := r.DomainByID(id)
			if libvirt.IsNotFound(err) {
				// The domain stopped between enumeration and lookup.
				logger.Warn().Err(err).Int32("id", id).Msg("skipping running domain")
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("failed to look up domain %d: %w", id, err)
			}
			rows = append(rows, rowFor(d, StateRunning))
		}
	}

	if scope == ScopeDefined || scope == ScopeAll {
		names, err := r.ListDefinedDomains()
		if err != nil {
			return nil, fmt.Errorf("failed to list defined domains: %w", err)
		}

		for _, name := range names {
			d, err := r.DomainByName(name)
			if libvirt.IsNotFound(err) {
				logger.Warn().Err(err).Str("name", name).Msg("skipping defined domain")
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("failed to look up domain %s: %w", name, err)
			}
			rows = append(rows, rowFor(d, StateDefined))
		}
	}

	return rows, nil
}

// Describe returns the row for a single looked-up domain. A domain with a
// runtime id is reported as running.
func Describe(d *libvirt.Domain) DomainRow {
	return describe(d)
}

func describe(d domainRef) DomainRow {
	if d.ID() >= 0 {
		return rowFor(d, StateRunning)
	}
	return rowFor(d, StateDefined)
}

func rowFor(d domainRef, state string) DomainRow {
	return DomainRow{
		Name:  d.Name(),
		ID:    d.ID(),
		UUID:  d.UUID(),
		State: state,
	}
}

// ParseScope converts the CLI spelling of a scope.
func ParseScope(s string) (Scope, error) {
	switch s {
	case "", "running":
		return ScopeRunning, nil
	case "defined":
		return ScopeDefined, nil
	case "all":
		return ScopeAll, nil
	default:
		return 0, fmt.Errorf("invalid scope: %s (valid scopes: running, defined, all)", s)
	}
}
