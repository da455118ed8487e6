package game

import (
	"fmt"
	"strings"
)

// Catalog indexes the static location table of a Balance.
type Catalog struct {
	starter   string
	locations []LocationDefinition
	byName    map[string]int
}

func NewCatalog(b Balance) *Catalog {
	c := &Catalog{
		starter:   b.StarterLocation,
		locations: append([]LocationDefinition(nil), b.Locations...),
		byName:    make(map[string]int, len(b.Locations)),
	}
	for i, loc := range c.locations {
		c.byName[strings.ToLower(strings.TrimSpace(loc.Name))] = i
	}
	if i, ok := c.byName[strings.ToLower(b.StarterLocation)]; ok {
		c.starter = c.locations[i].Name
	}
	return c
}

// Location resolves a user-supplied name, ignoring case and surrounding space.
func (c *Catalog) Location(name string) (LocationDefinition, bool) {
	i, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return LocationDefinition{}, false
	}
	return c.locations[i], true
}

func (c *Catalog) Starter() string { return c.starter }

func (c *Catalog) All() []LocationDefinition {
	return append([]LocationDefinition(nil), c.locations...)
}

// Expandable lists every location a player can open after the starter shop.
func (c *Catalog) Expandable() []LocationDefinition {
	out := make([]LocationDefinition, 0, len(c.locations))
	for _, loc := range c.locations {
		if loc.Name == c.starter {
			continue
		}
		out = append(out, loc)
	}
	return out
}

func (c *Catalog) gdp(location string) float64 {
	if loc, ok := c.Location(location); ok {
		return loc.GDPFactor
	}
	return 1
}

func (c *Catalog) RequirementMet(p *Player, def LocationDefinition) bool {
	req := def.Requirement
	switch req.Kind {
	case ReqInitialShopLevel:
		return float64(shopLevel(p, c.starter)) >= req.Value
	case ReqShopLevel:
		return float64(shopLevel(p, c.canonical(req.Location))) >= req.Value
	case ReqTotalIncome:
		return p.TotalIncomeMicros >= DollarsToMicros(req.Value)
	case ReqShopCount:
		return float64(len(p.Shops)) >= req.Value
	case ReqOwnsShop:
		_, ok := p.Shops[c.canonical(req.Location)]
		return ok
	case "":
		return true
	}
	return false
}

// RequirementReason describes an unmet requirement to the player.
func (c *Catalog) RequirementReason(def LocationDefinition) string {
	req := def.Requirement
	switch req.Kind {
	case ReqInitialShopLevel:
		return fmt.Sprintf("requires %s to be level %d", c.starter, int(req.Value))
	case ReqShopLevel:
		return fmt.Sprintf("requires %s to be level %d", c.canonical(req.Location), int(req.Value))
	case ReqTotalIncome:
		return fmt.Sprintf("requires %s total income earned", FormatMoney(DollarsToMicros(req.Value)))
	case ReqShopCount:
		return fmt.Sprintf("requires owning %d shops", int(req.Value))
	case ReqOwnsShop:
		return fmt.Sprintf("requires a shop in %s", c.canonical(req.Location))
	}
	return "requirements not met"
}

func (c *Catalog) canonical(name string) string {
	if loc, ok := c.Location(name); ok {
		return loc.Name
	}
	return name
}

func shopLevel(p *Player, location string) int {
	if s, ok := p.Shops[location]; ok {
		return s.Level
	}
	return 0
}
