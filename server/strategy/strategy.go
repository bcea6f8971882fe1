// Package strategy maps a hand, dealer upcard, and true count to a play
// action using data-driven basic and deviation tables.
package strategy

import (
	"embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"tabletrack/server/engine"
)

//go:embed tables/basic.json tables/deviations.json
var tablesFS embed.FS

type Action string

const (
	Hit       Action = "Hit"
	Stand     Action = "Stand"
	Double    Action = "Double"
	Split     Action = "Split"
	Surrender Action = "Surrender"
	Insurance Action = "Insurance"
)

// Advice is the play recommendation for one hand. DeviationTag is empty when
// the basic table decided.
type Advice struct {
	Action       Action `json:"action"`
	DeviationTag string `json:"deviationTag,omitempty"`
	Tooltip      string `json:"tooltip,omitempty"`
}

type handKind string

const (
	kindHard handKind = "hard"
	kindSoft handKind = "soft"
	kindPair handKind = "pair"
)

type tableKey struct {
	kind  handKind
	total int // hard/soft total, or pair card value (aces = 11)
	up    int // dealer upcard value (ace = 11)
}

type deviation struct {
	threshold float64
	code      string
	tag       string
	tooltip   string
}

// Advisor holds the immutable tables for one session's rule set.
type Advisor struct {
	rules     engine.RulesConfig
	basic     map[tableKey]string
	devs      map[tableKey]deviation
	insurance *deviation
}

type basicFile struct {
	Hard  map[string]map[string]string `json:"hard"`
	Soft  map[string]map[string]string `json:"soft"`
	Pairs map[string]map[string]string `json:"pairs"`
	H17   struct {
		Hard map[string]map[string]string `json:"hard"`
		Soft map[string]map[string]string `json:"soft"`
	} `json:"h17"`
}

type deviationFile struct {
	Deviations []struct {
		Hand    string  `json:"hand"`
		Up      string  `json:"up"`
		TC      float64 `json:"tc"`
		Action  string  `json:"action"`
		Tag     string  `json:"tag"`
		Tooltip string  `json:"tooltip"`
	} `json:"deviations"`
}

// Load parses the embedded tables and applies the rule-dependent overlays.
func Load(rules engine.RulesConfig) (*Advisor, error) {
	raw, err := tablesFS.ReadFile("tables/basic.json")
	if err != nil {
		return nil, fmt.Errorf("%w: read basic table: %v", engine.ErrConfig, err)
	}
	var bf basicFile
	if err := json.Unmarshal(raw, &bf); err != nil {
		return nil, fmt.Errorf("%w: parse basic table: %v", engine.ErrConfig, err)
	}

	a := &Advisor{
		rules: rules,
		basic: make(map[tableKey]string),
		devs:  make(map[tableKey]deviation),
	}
	if err := a.index(kindHard, bf.Hard); err != nil {
		return nil, err
	}
	if err := a.index(kindSoft, bf.Soft); err != nil {
		return nil, err
	}
	if err := a.index(kindPair, bf.Pairs); err != nil {
		return nil, err
	}
	if rules.DealerHitsSoft17 {
		if err := a.index(kindHard, bf.H17.Hard); err != nil {
			return nil, err
		}
		if err := a.index(kindSoft, bf.H17.Soft); err != nil {
			return nil, err
		}
	}

	raw, err = tablesFS.ReadFile("tables/deviations.json")
	if err != nil {
		return nil, fmt.Errorf("%w: read deviation table: %v", engine.ErrConfig, err)
	}
	var df deviationFile
	if err := json.Unmarshal(raw, &df); err != nil {
		return nil, fmt.Errorf("%w: parse deviation table: %v", engine.ErrConfig, err)
	}
	for _, d := range df.Deviations {
		dev := deviation{threshold: d.TC, code: d.Action, tag: d.Tag, tooltip: d.Tooltip}
		if d.Hand == "insurance" {
			ins := dev
			a.insurance = &ins
			continue
		}
		kind, total, err := parseHandKey(d.Hand)
		if err != nil {
			return nil, err
		}
		up, err := parseUpcard(d.Up)
		if err != nil {
			return nil, err
		}
		a.devs[tableKey{kind, total, up}] = dev
	}
	return a, nil
}

func (a *Advisor) index(kind handKind, rows map[string]map[string]string) error {
	for totalStr, row := range rows {
		total, err := strconv.Atoi(totalStr)
		if err != nil {
			return fmt.Errorf("%w: bad hand total %q in %s table", engine.ErrConfig, totalStr, kind)
		}
		for upStr, code := range row {
			up, err := strconv.Atoi(upStr)
			if err != nil {
				return fmt.Errorf("%w: bad upcard %q in %s table", engine.ErrConfig, upStr, kind)
			}
			a.basic[tableKey{kind, total, up}] = code
		}
	}
	return nil
}

func parseHandKey(s string) (handKind, int, error) {
	parts := strings.Fields(s)
	if len(parts) != 2 {
		return "", 0, fmt.Errorf("%w: bad deviation hand key %q", engine.ErrConfig, s)
	}
	kind := handKind(parts[0])
	switch kind {
	case kindHard, kindSoft, kindPair:
	default:
		return "", 0, fmt.Errorf("%w: bad deviation hand kind %q", engine.ErrConfig, parts[0])
	}
	total, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, fmt.Errorf("%w: bad deviation hand total %q", engine.ErrConfig, parts[1])
	}
	return kind, total, nil
}

func parseUpcard(s string) (int, error) {
	if s == "A" {
		return 11, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 2 || v > 10 {
		return 0, fmt.Errorf("%w: bad deviation upcard %q", engine.ErrConfig, s)
	}
	return v, nil
}

// classify buckets a hand into the table key space.
func classify(hv engine.HandView) (handKind, int, error) {
	if len(hv.Cards) < 2 {
		return "", 0, fmt.Errorf("%w: hand has %d cards", engine.ErrLookup, len(hv.Cards))
	}
	if len(hv.Cards) == 2 && hv.Cards[0].Value() == hv.Cards[1].Value() {
		return kindPair, hv.Cards[0].Value(), nil
	}
	h := engine.Hand{Cards: hv.Cards}
	total, soft := h.Total()
	if total > 21 {
		return "", 0, fmt.Errorf("%w: hand is busted at %d", engine.ErrLookup, total)
	}
	if soft {
		return kindSoft, total, nil
	}
	return kindHard, total, nil
}

// Advise looks up the play for a hand against the dealer upcard. The
// deviation table is consulted first; a deviation fires on trueCount >=
// threshold, ties included. Unknown hand shapes fail with a LookupError.
func (a *Advisor) Advise(hv engine.HandView, upcard engine.Rank, trueCount float64) (Advice, error) {
	upVal := upcard.Value()
	if upVal == 0 {
		return Advice{}, fmt.Errorf("%w: unknown dealer upcard %q", engine.ErrLookup, upcard)
	}
	kind, total, err := classify(hv)
	if err != nil {
		return Advice{}, err
	}
	key := tableKey{kind, total, upVal}

	if dev, ok := a.devs[key]; ok && trueCount >= dev.threshold {
		action, err := a.resolve(dev.code, hv)
		if err != nil {
			return Advice{}, err
		}
		return Advice{Action: action, DeviationTag: dev.tag, Tooltip: dev.tooltip}, nil
	}

	code, ok := a.basic[key]
	if !ok {
		return Advice{}, fmt.Errorf("%w: no basic entry for %s %d vs %d", engine.ErrLookup, kind, total, upVal)
	}
	action, err := a.resolve(code, hv)
	if err != nil {
		return Advice{}, err
	}
	return Advice{Action: action}, nil
}

// TakeInsurance reports whether the insurance deviation fires for the given
// upcard and true count, with its tag.
func (a *Advisor) TakeInsurance(upcard engine.Rank, trueCount float64) (bool, string) {
	if a.insurance == nil || upcard.Value() != 11 {
		return false, ""
	}
	if trueCount >= a.insurance.threshold {
		return true, a.insurance.tag
	}
	return false, ""
}

// resolve turns a table code into a concrete action given what the hand may
// still legally do.
func (a *Advisor) resolve(code string, hv engine.HandView) (Action, error) {
	canDouble := len(hv.Cards) == 2 && !hv.Doubled &&
		(!hv.FromSplit || a.rules.DoubleAfterSplit)
	canSurrender := a.rules.Surrender && len(hv.Cards) == 2 && !hv.FromSplit
	switch code {
	case "H":
		return Hit, nil
	case "S":
		return Stand, nil
	case "D":
		if canDouble {
			return Double, nil
		}
		return Hit, nil
	case "Ds":
		if canDouble {
			return Double, nil
		}
		return Stand, nil
	case "P":
		return Split, nil
	case "Ph":
		if a.rules.DoubleAfterSplit {
			return Split, nil
		}
		return Hit, nil
	case "Rh":
		if canSurrender {
			return Surrender, nil
		}
		return Hit, nil
	case "Rs":
		if canSurrender {
			return Surrender, nil
		}
		return Stand, nil
	case "Insurance":
		return Insurance, nil
	}
	return "", fmt.Errorf("%w: unknown table code %q", engine.ErrConfig, code)
}
