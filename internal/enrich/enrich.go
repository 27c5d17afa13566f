// Package enrich derives display tags from raw live-feed entities.
package enrich

import (
	"strings"

	"github.com/bryan-buckman/parkline/internal/model"
)

// Queue status thresholds in minutes (inclusive upper bounds).
const (
	ShortWaitMax  = 20
	MediumWaitMax = 45
)

// styleRule tags an entity when its lower-cased name contains any keyword, or,
// for rules with showLike set, when its type is show-like.
type styleRule struct {
	style    model.Style
	keywords []string
	showLike bool
}

// styleRules is evaluated in order and every matching rule applies.
var styleRules = []styleRule{
	{style: model.StyleRadical, keywords: []string{"mountain", "coaster", "tower", "drop", "expedition", "everest", "space", "thunder", "splash"}},
	{style: model.StyleFamily, keywords: []string{"pirates", "haunted", "jungle", "safari", "carousel", "dumbo", "tea", "small world", "buzz"}},
	{style: model.StyleKids, keywords: []string{"dumbo", "carousel", "barnstormer", "carpet", "tea"}},
	{style: model.StyleShow, showLike: true},
	{style: model.StyleSimulator, keywords: []string{"flight", "soarin", "star tours", "simulator"}},
	{style: model.StyleWater, keywords: []string{"splash", "rapids", "kali", "water"}},
}

// Summary sentences.
const (
	summaryRestaurant = "A dining spot to refuel between rides."
	summaryShow       = "A live show worth planning a break around."
	summaryParade     = "A parade rolling through the park with characters and floats."
	summaryFireworks  = "A nighttime fireworks spectacular to end the day."
	summaryRadical    = "A high-thrill ride with big drops and speed."
	summarySimulator  = "An immersive simulator experience."
	summaryWater      = "A water ride where you may get wet."
	summaryKids       = "A gentle ride perfect for little ones."
	summaryDefault    = "A classic attraction the whole family can enjoy."
)

// Entity enriches a single live entity. It is pure: the same input always
// yields the same output and the input is not modified.
func Entity(e model.LiveEntity) model.EnrichedEntity {
	styles := Styles(e.Name, e.EntityType)
	return model.EnrichedEntity{
		LiveEntity:      e,
		AttractionStyle: styles,
		Intensity:       Intensity(styles),
		Summary:         Summary(e.EntityType, styles),
		QueueStatus:     QueueStatusFor(e),
	}
}

// Styles classifies an entity. The result is never empty.
func Styles(name string, typ model.EntityType) []model.Style {
	lower := strings.ToLower(name)
	var styles []model.Style
	for _, rule := range styleRules {
		if rule.matches(lower, typ) {
			styles = append(styles, rule.style)
		}
	}
	if len(styles) == 0 {
		return []model.Style{model.StyleFamily}
	}
	return styles
}

func (r styleRule) matches(lowerName string, typ model.EntityType) bool {
	if r.showLike {
		return typ.IsShowLike()
	}
	for _, kw := range r.keywords {
		if strings.Contains(lowerName, kw) {
			return true
		}
	}
	return false
}

// Intensity derives the thrill level. Radical beats water and simulator.
func Intensity(styles []model.Style) model.Intensity {
	switch {
	case hasStyle(styles, model.StyleRadical):
		return model.IntensityHigh
	case hasStyle(styles, model.StyleWater), hasStyle(styles, model.StyleSimulator):
		return model.IntensityMedium
	default:
		return model.IntensityLow
	}
}

// Summary picks a fixed sentence by entity type, then by style priority.
func Summary(typ model.EntityType, styles []model.Style) string {
	switch typ {
	case model.EntityRestaurant:
		return summaryRestaurant
	case model.EntityShow, model.EntityEntertainment:
		return summaryShow
	case model.EntityParade:
		return summaryParade
	case model.EntityFireworks:
		return summaryFireworks
	}
	switch {
	case hasStyle(styles, model.StyleRadical):
		return summaryRadical
	case hasStyle(styles, model.StyleSimulator):
		return summarySimulator
	case hasStyle(styles, model.StyleWater):
		return summaryWater
	case hasStyle(styles, model.StyleKids):
		return summaryKids
	default:
		return summaryDefault
	}
}

// QueueStatusFor buckets the standby wait. A missing or zero wait counts as
// no wait.
func QueueStatusFor(e model.LiveEntity) model.QueueStatus {
	wait, ok := e.StandbyWait()
	if !ok {
		return model.QueueShort
	}
	return QueueStatusForWait(wait)
}

// QueueStatusForWait buckets a wait in minutes.
func QueueStatusForWait(wait int) model.QueueStatus {
	switch {
	case wait <= ShortWaitMax:
		return model.QueueShort
	case wait <= MediumWaitMax:
		return model.QueueMedium
	default:
		return model.QueueLong
	}
}

// Partition enriches entities and sorts them into buckets. Entities with an
// unrecognized type are dropped.
func Partition(entities []model.LiveEntity) model.Buckets {
	b := model.EmptyBuckets()
	for _, e := range entities {
		switch {
		case e.EntityType == model.EntityAttraction:
			b.Attractions = append(b.Attractions, Entity(e))
		case e.EntityType == model.EntityRestaurant:
			b.Restaurants = append(b.Restaurants, Entity(e))
		case e.EntityType.IsShowLike():
			b.Shows = append(b.Shows, Entity(e))
		}
	}
	return b
}

func hasStyle(styles []model.Style, s model.Style) bool {
	for _, st := range styles {
		if st == s {
			return true
		}
	}
	return false
}
