package extract

import (
	_ "embed"
	"errors"
	"io/fs"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/geopack/internal/textclean"
)

//go:embed lexicon.yaml
var defaultLexicon []byte

// Lexicon drives the rules extractor.
type Lexicon struct {
	Connectors    []string               `yaml:"connectors"`
	Ignore        []string               `yaml:"ignore"`
	Places        map[string]Label       `yaml:"places"`
	FacilityWords []string               `yaml:"facility_words"`
	LocationWords []string               `yaml:"location_words"`
	Languages     map[string]LangLexicon `yaml:"languages"`
}

// LangLexicon adds language-specific entries on top of the base lexicon.
type LangLexicon struct {
	Connectors []string         `yaml:"connectors"`
	Ignore     []string         `yaml:"ignore"`
	Places     map[string]Label `yaml:"places"`
}

// DefaultLexicon returns the embedded lexicon.
func DefaultLexicon() (*Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(defaultLexicon, &lex); err != nil {
		return nil, eris.Wrap(err, "extract: parse embedded lexicon")
	}
	lex.addTypeWords()
	return &lex, nil
}

// LoadLexicon merges the YAML lexicon at path onto the embedded default.
// An empty path returns the default.
func LoadLexicon(path string) (*Lexicon, error) {
	lex, err := DefaultLexicon()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return lex, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &ResourceMissingError{Resource: "lexicon " + path, Err: err}
	}
	if err != nil {
		return nil, eris.Wrapf(err, "extract: read lexicon %s", path)
	}

	var extra Lexicon
	if err := yaml.Unmarshal(data, &extra); err != nil {
		return nil, eris.Wrapf(err, "extract: parse lexicon %s", path)
	}
	lex.merge(extra)
	return lex, nil
}

func (l *Lexicon) merge(o Lexicon) {
	l.Connectors = append(l.Connectors, o.Connectors...)
	l.Ignore = append(l.Ignore, o.Ignore...)
	l.FacilityWords = append(l.FacilityWords, o.FacilityWords...)
	l.LocationWords = append(l.LocationWords, o.LocationWords...)
	if l.Places == nil {
		l.Places = map[string]Label{}
	}
	for k, v := range o.Places {
		l.Places[k] = v
	}
	if l.Languages == nil {
		l.Languages = map[string]LangLexicon{}
	}
	for lang, ll := range o.Languages {
		cur := l.Languages[lang]
		cur.Connectors = append(cur.Connectors, ll.Connectors...)
		cur.Ignore = append(cur.Ignore, ll.Ignore...)
		if cur.Places == nil {
			cur.Places = map[string]Label{}
		}
		for k, v := range ll.Places {
			cur.Places[k] = v
		}
		l.Languages[lang] = cur
	}
}

// Trailing words that mark a name as a facility or a natural location.
var (
	facilityWords = []string{
		"Airport", "Bridge", "Station", "Tower", "Stadium", "Hospital",
		"University", "Museum", "Cathedral", "Castle", "Palace", "Harbour", "Port",
	}
	locationWords = []string{
		"River", "Lake", "Mountain", "Mountains", "Sea", "Ocean", "Valley",
		"Island", "Islands", "Desert", "Gulf", "Peninsula", "Forest", "Coast",
	}
)

func (l *Lexicon) addTypeWords() {
	l.FacilityWords = append(l.FacilityWords, facilityWords...)
	l.LocationWords = append(l.LocationWords, locationWords...)
}

// ruleSet is a Lexicon compiled for one language.
type ruleSet struct {
	connectors map[string]bool
	ignore     map[string]bool
	places     map[string]Label
	facility   map[string]bool
	location   map[string]bool
}

func (l *Lexicon) compile(lang string) *ruleSet {
	rs := &ruleSet{
		connectors: map[string]bool{},
		ignore:     map[string]bool{},
		places:     map[string]Label{},
		facility:   map[string]bool{},
		location:   map[string]bool{},
	}
	add := func(connectors, ignore []string, places map[string]Label) {
		for _, c := range connectors {
			rs.connectors[c] = true
		}
		for _, w := range ignore {
			rs.ignore[w] = true
		}
		for name, label := range places {
			if canonical, ok := CanonicalLabel(string(label)); ok {
				rs.places[textclean.Fold(textclean.Clean(name))] = canonical
			}
		}
	}
	add(l.Connectors, l.Ignore, l.Places)
	if ll, ok := l.Languages[lang]; ok {
		add(ll.Connectors, ll.Ignore, ll.Places)
	}
	for _, w := range l.FacilityWords {
		rs.facility[textclean.Fold(w)] = true
	}
	for _, w := range l.LocationWords {
		rs.location[textclean.Fold(w)] = true
	}
	return rs
}
