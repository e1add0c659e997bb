package economy

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var defaultTables []byte

type Suit struct {
	ID    string  `yaml:"id" json:"id"`
	Name  string  `yaml:"name" json:"name"`
	Price int64   `yaml:"price" json:"price"`
	Mult  float64 `yaml:"mult" json:"mult"`
}

type Pet struct {
	ID         string  `yaml:"id" json:"id"`
	Name       string  `yaml:"name" json:"name"`
	Price      int64   `yaml:"price" json:"price"`
	TapMult    float64 `yaml:"tapMult" json:"tapMult"`
	AutoMult   float64 `yaml:"autoMult" json:"autoMult"`
	GlobalMult float64 `yaml:"globalMult" json:"globalMult"`
}

type Region struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	APSBonus    float64  `yaml:"apsBonus" json:"apsBonus"`
	CouponBonus float64  `yaml:"couponBonus" json:"couponBonus"`
	Neighbors   []string `yaml:"neighbors" json:"neighbors"`
	Countries   []string `yaml:"countries" json:"countries"`
}

type Pack struct {
	ID    string `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Cost  int64  `yaml:"cost" json:"cost"`
	Cards int    `yaml:"cards" json:"cards"`
}

type UpgradeDef struct {
	Kind     UpgradeKind `yaml:"kind" json:"kind"`
	BaseCost float64     `yaml:"baseCost" json:"baseCost"`
	Growth   float64     `yaml:"growth" json:"growth"`
	MaxLevel int         `yaml:"maxLevel" json:"maxLevel"`
}

type Achievement struct {
	ID        string  `yaml:"id" json:"id"`
	Metric    Metric  `yaml:"metric" json:"metric"`
	Threshold float64 `yaml:"threshold" json:"threshold"`
	Reward    int64   `yaml:"reward" json:"reward"`
	Title     string  `yaml:"title" json:"title,omitempty"`
}

type tablesFile struct {
	HomeRegion   string        `yaml:"homeRegion"`
	Suits        []Suit        `yaml:"suits"`
	Pets         []Pet         `yaml:"pets"`
	Regions      []Region      `yaml:"regions"`
	Packs        []Pack        `yaml:"packs"`
	Upgrades     []UpgradeDef  `yaml:"upgrades"`
	Achievements []Achievement `yaml:"achievements"`
}

// Catalog is the read-only game data with lookup indexes.
type Catalog struct {
	HomeRegion   string
	Suits        []Suit
	Pets         []Pet
	Regions      []Region
	Packs        []Pack
	Upgrades     []UpgradeDef
	Achievements []Achievement

	suitByID        map[string]Suit
	petByID         map[string]Pet
	regionByID      map[string]Region
	regionOfCountry map[string]string
	packByID        map[string]Pack
	upgradeByKind   map[UpgradeKind]UpgradeDef
	achievementByID map[string]Achievement
}

// DefaultCatalog parses the embedded tables. The embedded document is part
// of the build, so a parse failure is a programming error.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultTables)
	if err != nil {
		panic(fmt.Sprintf("embedded tables: %v", err))
	}
	return c
}

// ParseCatalog decodes and validates a tables document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f tablesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode tables: %w", err)
	}

	c := &Catalog{
		HomeRegion:      f.HomeRegion,
		Suits:           f.Suits,
		Pets:            f.Pets,
		Regions:         f.Regions,
		Packs:           f.Packs,
		Upgrades:        f.Upgrades,
		Achievements:    f.Achievements,
		suitByID:        make(map[string]Suit, len(f.Suits)),
		petByID:         make(map[string]Pet, len(f.Pets)),
		regionByID:      make(map[string]Region, len(f.Regions)),
		regionOfCountry: make(map[string]string),
		packByID:        make(map[string]Pack, len(f.Packs)),
		upgradeByKind:   make(map[UpgradeKind]UpgradeDef, len(f.Upgrades)),
		achievementByID: make(map[string]Achievement, len(f.Achievements)),
	}

	for _, s := range f.Suits {
		c.suitByID[s.ID] = s
	}
	for _, p := range f.Pets {
		c.petByID[p.ID] = p
	}
	for _, r := range f.Regions {
		if _, dup := c.regionByID[r.ID]; dup {
			return nil, fmt.Errorf("duplicate region %q", r.ID)
		}
		c.regionByID[r.ID] = r
		for _, code := range r.Countries {
			if prev, dup := c.regionOfCountry[code]; dup {
				return nil, fmt.Errorf("country %s listed in %s and %s", code, prev, r.ID)
			}
			c.regionOfCountry[code] = r.ID
		}
	}
	for _, r := range f.Regions {
		for _, n := range r.Neighbors {
			if _, ok := c.regionByID[n]; !ok {
				return nil, fmt.Errorf("region %s: unknown neighbor %q", r.ID, n)
			}
		}
	}
	if _, ok := c.regionByID[c.HomeRegion]; !ok {
		return nil, fmt.Errorf("home region %q not defined", c.HomeRegion)
	}
	for _, p := range f.Packs {
		if p.Cost <= 0 || p.Cards <= 0 {
			return nil, fmt.Errorf("pack %s: cost and cards must be positive", p.ID)
		}
		c.packByID[p.ID] = p
	}
	for _, u := range f.Upgrades {
		if !u.Kind.valid() {
			return nil, fmt.Errorf("unknown upgrade kind %q", u.Kind)
		}
		if u.MaxLevel <= 0 {
			return nil, fmt.Errorf("upgrade %q: maxLevel must be positive", u.Kind)
		}
		c.upgradeByKind[u.Kind] = u
	}
	for _, a := range f.Achievements {
		c.achievementByID[a.ID] = a
	}
	return c, nil
}

func (c *Catalog) Suit(id string) (Suit, bool) {
	s, ok := c.suitByID[id]
	return s, ok
}

func (c *Catalog) Pet(id string) (Pet, bool) {
	p, ok := c.petByID[id]
	return p, ok
}

func (c *Catalog) Region(id string) (Region, bool) {
	r, ok := c.regionByID[id]
	return r, ok
}

// RegionOf returns the region a country belongs to.
func (c *Catalog) RegionOf(code string) (string, bool) {
	r, ok := c.regionOfCountry[code]
	return r, ok
}

func (c *Catalog) Pack(id string) (Pack, bool) {
	p, ok := c.packByID[id]
	return p, ok
}

func (c *Catalog) Upgrade(kind UpgradeKind) (UpgradeDef, bool) {
	u, ok := c.upgradeByKind[kind]
	return u, ok
}

func (c *Catalog) Achievement(id string) (Achievement, bool) {
	a, ok := c.achievementByID[id]
	return a, ok
}

// CountryCount is the number of conquerable countries.
func (c *Catalog) CountryCount() int {
	return len(c.regionOfCountry)
}
