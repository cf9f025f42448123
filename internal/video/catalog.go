package video

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Category describes one searchable action: the clip it should produce,
// its motion type, and the query phrases used to find candidates.
type Category struct {
	Type        string   `yaml:"type"`
	Description string   `yaml:"description"`
	Keywords    []string `yaml:"keywords"`
}

// Catalog maps action names to their categories.
type Catalog map[string]Category

// CategoryTypes in display order.
var CategoryTypes = []string{"static", "dynamic", "transition"}

// BuiltinCatalog returns the default action categories. Callers get a
// fresh copy and may mutate it freely.
func BuiltinCatalog() Catalog {
	c := make(Catalog, len(builtinCatalog))
	for name, cat := range builtinCatalog {
		c[name] = cat
	}
	return c
}

var builtinCatalog = Catalog{
	"standing": {
		Type:        "static",
		Description: "Person standing idle with natural breathing/subtle movements",
		Keywords: []string{
			"person standing idle breathing loop",
			"human standing still subtle movement",
			"character standing idle animation",
			"person standing neutral breathing",
		},
	},
	"sitting": {
		Type:        "static",
		Description: "Person sitting idle with natural breathing/subtle movements",
		Keywords: []string{
			"person sitting idle breathing loop",
			"human sitting still subtle movement",
			"character sitting idle animation",
			"person sitting relaxed breathing",
		},
	},
	"walking": {
		Type:        "dynamic",
		Description: "Person walking (can be in place or on treadmill)",
		Keywords: []string{
			"person walking loop seamless",
			"human walking cycle animation",
			"character walking treadmill loop",
			"person walking in place loop",
		},
	},
	"running": {
		Type:        "dynamic",
		Description: "Person running or jogging",
		Keywords: []string{
			"person running loop seamless",
			"human running cycle animation",
			"character running treadmill loop",
			"person jogging in place loop",
		},
	},
	"jumping": {
		Type:        "dynamic",
		Description: "Person jumping",
		Keywords: []string{
			"person jumping loop",
			"human jump animation loop",
			"character jumping rope loop",
			"person jumping jacks loop",
		},
	},
	"dancing": {
		Type:        "dynamic",
		Description: "Person dancing",
		Keywords: []string{
			"person dancing loop seamless",
			"human dance move loop",
			"character dancing animation loop",
			"person dance routine loop",
		},
	},
	"waving": {
		Type:        "dynamic",
		Description: "Person waving hand",
		Keywords: []string{
			"person waving hand loop",
			"human waving hello loop",
			"character waving animation",
			"person greeting wave loop",
		},
	},
	"stand_to_sit": {
		Type:        "transition",
		Description: "Transition from standing to sitting",
		Keywords: []string{
			"person standing to sitting transition",
			"human sit down animation",
			"character standing to sitting",
			"person sitting down motion",
		},
	},
	"sit_to_stand": {
		Type:        "transition",
		Description: "Transition from sitting to standing",
		Keywords: []string{
			"person sitting to standing transition",
			"human stand up animation",
			"character sitting to standing",
			"person standing up motion",
		},
	},
	"stand_to_walk": {
		Type:        "transition",
		Description: "Transition from standing to walking",
		Keywords: []string{
			"person start walking from standing",
			"human begin walking animation",
			"character standing to walking",
			"person walking start motion",
		},
	},
	"walk_to_stand": {
		Type:        "transition",
		Description: "Transition from walking to standing",
		Keywords: []string{
			"person stop walking to standing",
			"human stop walking animation",
			"character walking to standing",
			"person walking stop motion",
		},
	},
}

// sourceKeywords search for reels containing multiple actions from the
// same person, which split into cohesive clip sets.
var sourceKeywords = []string{
	"animation reference idle walk run jump",
	"motion capture reference all actions",
	"character animation reference reel",
	"actor reference idle walk run",
	"mocap reference video multiple actions",
	"animation reference video human actions",
	"movement reference idle to walk to run",
	"acting reference standing walking running",
}

// LoadCatalog returns the builtin catalog, overlaid with categories from
// the YAML file at path when path is non-empty. Same-named categories
// are replaced wholesale; the rest of the builtins are kept.
func LoadCatalog(path string) (Catalog, error) {
	catalog := BuiltinCatalog()
	if path == "" {
		return catalog, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var overlay Catalog
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	for name, cat := range overlay {
		catalog[name] = cat
	}
	return catalog, nil
}

// Names returns the catalog's action names grouped by category type, in
// CategoryTypes order and alphabetical within each group.
func (c Catalog) Names() []string {
	known := func(typ string) bool {
		for _, t := range CategoryTypes {
			if t == typ {
				return true
			}
		}
		return false
	}

	var names []string
	appendGroup := func(match func(Category) bool) {
		var group []string
		for name, cat := range c {
			if match(cat) {
				group = append(group, name)
			}
		}
		sort.Strings(group)
		names = append(names, group...)
	}
	for _, typ := range CategoryTypes {
		appendGroup(func(cat Category) bool { return cat.Type == typ })
	}
	// Overlay categories may introduce their own types; list them last.
	appendGroup(func(cat Category) bool { return !known(cat.Type) })
	return names
}
