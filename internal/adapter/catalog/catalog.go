package catalog

import (
	"encoding/json"
	"fmt"
	"os"

	"personachat/internal/domain"
)

// Catalog holds the persona profiles loaded at startup. Read-only after
// Load; a fetch failure is terminal for the UI, not retried.
type Catalog struct {
	personas []domain.PersonaConfig
	byHandle map[string]domain.PersonaConfig
}

// manifest is the on-disk catalog document.
type manifest struct {
	Personas []domain.PersonaConfig `json:"personas"`
}

// Load reads the persona catalog from path. Any failure wraps
// domain.ErrCatalogLoad.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrCatalogLoad, err)
	}

	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrCatalogLoad, err)
	}
	if len(m.Personas) == 0 {
		return nil, fmt.Errorf("%w: catalog is empty", domain.ErrCatalogLoad)
	}

	byHandle := make(map[string]domain.PersonaConfig, len(m.Personas))
	for _, p := range m.Personas {
		if p.Handle() == "" {
			return nil, fmt.Errorf("%w: persona %q has no handle", domain.ErrCatalogLoad, p.Name)
		}
		byHandle[p.Handle()] = p
	}

	return &Catalog{personas: m.Personas, byHandle: byHandle}, nil
}

// Personas returns all profiles in catalog order.
func (c *Catalog) Personas() []domain.PersonaConfig {
	out := make([]domain.PersonaConfig, len(c.personas))
	copy(out, c.personas)
	return out
}

// Lookup resolves a persona handle.
func (c *Catalog) Lookup(handle string) (domain.PersonaConfig, error) {
	p, ok := c.byHandle[handle]
	if !ok {
		return domain.PersonaConfig{}, domain.NewDomainError("Catalog.Lookup", domain.ErrPersonaNotFound, handle)
	}
	return p, nil
}
