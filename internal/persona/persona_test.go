package persona

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/closerflow/whatsapp-agent/internal/domain"
)

func envMap(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestParseToneAcceptsFrenchAliases(t *testing.T) {
	t.Parallel()

	cases := map[string]Tone{
		"concise":      ToneConcise,
		"concis":       ToneConcise,
		"Consultatif":  ToneConsultative,
		"enthousiaste": ToneEnthusiastic,
		" premium ":    TonePremium,
	}
	for in, want := range cases {
		got, ok := ParseTone(in)
		if !ok || got != want {
			t.Errorf("ParseTone(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
	if _, ok := ParseTone("aggressive"); ok {
		t.Error("expected unknown tone to be rejected")
	}
}

func TestValidateNamesOffendingField(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		edit  func(*Persona)
		field string
	}{
		{"empty company", func(p *Persona) { p.CompanyName = "   " }, "companyName"},
		{"missing call to action", func(p *Persona) { p.CallToAction = "" }, "callToAction"},
		{"unknown tone", func(p *Persona) { p.Tone = "aggressive" }, "tone"},
		{"unknown language", func(p *Persona) { p.Language = "de" }, "language"},
		{"no questions", func(p *Persona) { p.QualificationQuestions = nil }, "qualificationQuestions"},
		{"blank question", func(p *Persona) { p.QualificationQuestions = []string{"ok", " "} }, "qualificationQuestions[1]"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := Default()
			tt.edit(&p)
			_, err := Validate(p)
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Fatalf("expected field %q, got %q", tt.field, verr.Field)
			}
		})
	}
}

func TestValidateAllowsDuplicateQuestions(t *testing.T) {
	t.Parallel()

	p := Default()
	p.QualificationQuestions = []string{"Budget ?", "Budget ?"}
	got, err := Validate(p)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if len(got.QualificationQuestions) != 2 {
		t.Fatalf("expected duplicates to be kept, got %v", got.QualificationQuestions)
	}
}

func TestValidateCanonicalizesDecodedTone(t *testing.T) {
	t.Parallel()

	body := `{"companyName":"Acme","valueProposition":"v","targetProfile":"t","tone":"enthousiaste",
		"qualificationQuestions":["q1","q2"],"closingStrategy":"c","callToAction":"cta","language":"en"}`
	var raw Persona
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		t.Fatal(err)
	}
	p, err := Validate(raw)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if p.Tone != ToneEnthusiastic {
		t.Fatalf("expected canonical tone, got %q", p.Tone)
	}
}

func TestSplitQuestions(t *testing.T) {
	t.Parallel()

	got := SplitQuestions(" First? ||  || Second? ||Third?|| ")
	want := []string{"First?", "Second?", "Third?"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SplitQuestions = %v, want %v", got, want)
	}
}

func TestFromEnvUsesDefaultsForUnsetVariables(t *testing.T) {
	t.Parallel()

	p, err := FromEnv(envMap(map[string]string{
		EnvCompanyName: "Acme",
		EnvTone:        "concis",
		EnvLanguage:    "en",
	}))
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}
	if p.CompanyName != "Acme" || p.Tone != ToneConcise || p.Language != LanguageEnglish {
		t.Fatalf("unexpected persona: %+v", p)
	}
	if !reflect.DeepEqual(p.QualificationQuestions, Default().QualificationQuestions) {
		t.Fatalf("expected default questions, got %v", p.QualificationQuestions)
	}
}

func TestFromEnvFallsBackOnInvalidValues(t *testing.T) {
	t.Parallel()

	p, err := FromEnv(envMap(map[string]string{
		EnvCompanyName:            "Acme",
		EnvQualificationQuestions: " || ",
	}))
	if err == nil {
		t.Fatal("expected fallback error")
	}
	if !reflect.DeepEqual(p, Default()) {
		t.Fatalf("expected default persona, got %+v", p)
	}
}
