package persona

import (
	"fmt"
	"strings"

	"github.com/closerflow/whatsapp-agent/internal/domain"
)

// Environment variables read by FromEnv.
const (
	EnvCompanyName            = "AGENT_COMPANY_NAME"
	EnvValueProposition       = "AGENT_VALUE_PROPOSITION"
	EnvTargetProfile          = "AGENT_TARGET_PROFILE"
	EnvTone                   = "AGENT_TONE"
	EnvQualificationQuestions = "AGENT_QUALIFICATION_POINTS"
	EnvClosingStrategy        = "AGENT_CLOSING_STRATEGY"
	EnvCallToAction           = "AGENT_CALL_TO_ACTION"
	EnvLanguage               = "AGENT_LANGUAGE"
)

// QuestionSeparator splits the qualification questions variable.
const QuestionSeparator = "||"

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Validate normalizes p and checks it against the persona schema.
func Validate(p Persona) (Persona, error) {
	p = Normalize(p)
	if err := domain.ValidateStruct(p); err != nil {
		return Persona{}, err
	}
	return p, nil
}

// SplitQuestions splits raw on QuestionSeparator, trims each segment and drops empty ones.
func SplitQuestions(raw string) []string {
	questions := []string{}
	for _, q := range strings.Split(raw, QuestionSeparator) {
		if q = strings.TrimSpace(q); q != "" {
			questions = append(questions, q)
		}
	}
	return questions
}

// FromEnv derives a persona from environment variables. Unset variables take the
// matching Default field. When the derived persona is invalid, FromEnv returns
// Default together with the validation error so the caller can report the fallback.
func FromEnv(lookup LookupFunc) (Persona, error) {
	def := Default()
	get := func(key, fallback string) string {
		if v, ok := lookup(key); ok {
			return v
		}
		return fallback
	}

	candidate := Persona{
		CompanyName:            get(EnvCompanyName, def.CompanyName),
		ValueProposition:       get(EnvValueProposition, def.ValueProposition),
		TargetProfile:          get(EnvTargetProfile, def.TargetProfile),
		Tone:                   Tone(get(EnvTone, string(def.Tone))),
		QualificationQuestions: SplitQuestions(get(EnvQualificationQuestions, strings.Join(def.QualificationQuestions, " "+QuestionSeparator+" "))),
		ClosingStrategy:        get(EnvClosingStrategy, def.ClosingStrategy),
		CallToAction:           get(EnvCallToAction, def.CallToAction),
		Language:               Language(get(EnvLanguage, string(def.Language))),
	}

	p, err := Validate(candidate)
	if err != nil {
		return def, fmt.Errorf("environment persona: %w", err)
	}
	return p, nil
}
