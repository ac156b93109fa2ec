package conversation

import (
	"fmt"
	"strings"

	"github.com/xpanvictor/chemtalk/internal/types"
)

// Rule is one entry of the fallback table. Match receives the lowercased
// utterance; Respond must not fail.
type Rule struct {
	Name       string
	Match      func(utterance string, ctx *types.ChatContext) bool
	Respond    func(utterance string, ctx *types.ChatContext) string
	Confidence float64
}

const (
	waterAnswer = "Water (H2O) is a polar molecule: oxygen pulls electron density away from the two " +
		"hydrogens, so the bent molecule has a partial negative end and a partial positive end. " +
		"That polarity drives hydrogen bonding, its high boiling point and its power to dissolve salts."
	saltAnswer = "Sodium chloride (NaCl) is an ionic compound. Sodium gives up one electron to chlorine, " +
		"and the resulting Na+ and Cl- ions pack into a cubic crystal lattice held together by electrostatic attraction."
	co2Answer = "Carbon dioxide (CO2) is a linear molecule with two polar C=O double bonds that cancel out, " +
		"so the molecule as a whole is nonpolar. It dissolves in water to form weak carbonic acid."
	acidAnswer = "Acids donate protons (H+) and bases accept them. The pH scale runs from 0 to 14: below 7 is " +
		"acidic, 7 is neutral and above 7 is basic. Each step is a tenfold change in H+ concentration."
	bondAnswer = "Atoms bond to reach a more stable arrangement of electrons. Ionic bonds transfer electrons " +
		"between a metal and a nonmetal, covalent bonds share electron pairs, and metallic bonds share a sea of electrons."
	periodicAnswer = "The periodic table orders elements by atomic number. Rows (periods) add electron shells; " +
		"columns (groups) share valence electron counts, which is why elements in a group behave alike."
	reactionAnswer = "A balanced equation has the same number of each kind of atom on both sides. Adjust the " +
		"coefficients, never the subscripts, starting with the element that appears in the fewest compounds."
	moleAnswer = "A mole is 6.022 x 10^23 particles. Molar mass in g/mol converts between grams and moles: " +
		"moles = mass / molar mass."
	safetyAnswer = "In the lab: wear goggles and gloves, add acid to water (never the reverse), work with volatile " +
		"chemicals in a fume hood, and know where the eyewash and extinguisher are."
	greetingAnswer = "Hello! I'm ChemTalk. Ask me about a compound, an element or a reaction and I'll explain it."
	helpAnswer     = "You can ask me things like \"What is water?\", \"Why is NaCl ionic?\" or \"How do I balance an " +
		"equation?\". Select a compound first and I'll keep it in mind."
	defaultAnswer = "I'm having trouble reaching my knowledge service right now. Try asking about a specific " +
		"compound, element or reaction, or try again in a moment."
)

// compounds maps known subjects (lowercased) to their canned answer.
var compounds = map[string]string{
	"h2o":             waterAnswer,
	"water":           waterAnswer,
	"nacl":            saltAnswer,
	"sodium chloride": saltAnswer,
	"salt":            saltAnswer,
	"co2":             co2Answer,
	"carbon dioxide":  co2Answer,
}

func knownSubject(ctx *types.ChatContext) (string, bool) {
	if ctx == nil {
		return "", false
	}
	a, ok := compounds[strings.ToLower(strings.TrimSpace(ctx.Subject))]
	return a, ok
}

func hasSubject(ctx *types.ChatContext) bool {
	return ctx != nil && strings.TrimSpace(ctx.Subject) != ""
}

// containsAny matches substrings; keys wrapped in spaces only match whole words.
func containsAny(keys ...string) func(string, *types.ChatContext) bool {
	return func(u string, _ *types.ChatContext) bool {
		padded := " " + strings.Map(func(r rune) rune {
			if strings.ContainsRune("?!.,;:'\"", r) {
				return ' '
			}
			return r
		}, u) + " "
		for _, k := range keys {
			if strings.Contains(padded, k) {
				return true
			}
		}
		return false
	}
}

func fixed(s string) func(string, *types.ChatContext) string {
	return func(string, *types.ChatContext) string { return s }
}

// DefaultRules is evaluated top to bottom; the first match answers.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:       "known-subject",
			Match:      func(_ string, ctx *types.ChatContext) bool { _, ok := knownSubject(ctx); return ok },
			Respond:    func(_ string, ctx *types.ChatContext) string { a, _ := knownSubject(ctx); return a },
			Confidence: 0.8,
		},
		{
			Name:  "subject",
			Match: func(_ string, ctx *types.ChatContext) bool { return hasSubject(ctx) },
			Respond: func(_ string, ctx *types.ChatContext) string {
				return fmt.Sprintf("I can't reach my knowledge service right now, but you're looking at %s. "+
					"Ask about its structure, bonding or properties and I'll go deeper once I'm back.", strings.TrimSpace(ctx.Subject))
			},
			Confidence: 0.6,
		},
		{Name: "water", Match: containsAny("water", " h2o "), Respond: fixed(waterAnswer), Confidence: 0.8},
		{Name: "salt", Match: containsAny("sodium chloride", " nacl ", " salt "), Respond: fixed(saltAnswer), Confidence: 0.8},
		{Name: "co2", Match: containsAny("carbon dioxide", " co2 "), Respond: fixed(co2Answer), Confidence: 0.8},
		{Name: "acid-base", Match: containsAny("acid", " base ", " bases ", " ph "), Respond: fixed(acidAnswer), Confidence: 0.8},
		{Name: "bonding", Match: containsAny(" bond", "ionic", "covalent"), Respond: fixed(bondAnswer), Confidence: 0.8},
		{Name: "periodic", Match: containsAny("periodic", "element"), Respond: fixed(periodicAnswer), Confidence: 0.8},
		{Name: "reaction", Match: containsAny("reaction", "balance", "equation"), Respond: fixed(reactionAnswer), Confidence: 0.8},
		{Name: "mole", Match: containsAny(" mole ", " moles ", "molar"), Respond: fixed(moleAnswer), Confidence: 0.8},
		{Name: "safety", Match: containsAny("safety", " lab "), Respond: fixed(safetyAnswer), Confidence: 0.8},
		{Name: "greeting", Match: containsAny(" hello ", " hi ", " hey ", "good morning", "good evening"), Respond: fixed(greetingAnswer), Confidence: 0.9},
		{Name: "help", Match: containsAny("help"), Respond: fixed(helpAnswer), Confidence: 0.9},
	}
}

// Fallback answers from a fixed rule table when no provider can.
type Fallback struct {
	rules []Rule
	def   Rule
}

func NewFallback(rules ...Rule) *Fallback {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Fallback{
		rules: rules,
		def:   Rule{Name: "default", Respond: fixed(defaultAnswer), Confidence: 0.3},
	}
}

func (f *Fallback) Rules() []Rule {
	return append([]Rule(nil), f.rules...)
}

// Respond never fails. A rule that panics is skipped.
func (f *Fallback) Respond(utterance string, ctx *types.ChatContext) types.AnswerResult {
	u := strings.ToLower(strings.TrimSpace(utterance))
	for _, r := range f.rules {
		if text, ok := f.try(r, u, ctx); ok {
			return types.AnswerResult{Text: text, Confidence: r.Confidence, Origin: types.OriginFallback}
		}
	}
	return types.AnswerResult{Text: f.def.Respond(u, ctx), Confidence: f.def.Confidence, Origin: types.OriginFallback}
}

func (f *Fallback) try(r Rule, u string, ctx *types.ChatContext) (text string, ok bool) {
	defer func() {
		if recover() != nil {
			text, ok = "", false
		}
	}()
	if r.Match == nil || r.Respond == nil || !r.Match(u, ctx) {
		return "", false
	}
	text = r.Respond(u, ctx)
	return text, text != ""
}
